package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev"

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   VersionCmdName,
		Short: VersionCmdShort,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", RootCmdName, version)
		},
	}
}
