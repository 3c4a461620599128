package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/auth"
	"github.com/spf13/cobra"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   AdminCmdName,
		Short: AdminCmdShort,
	}
	cmd.AddCommand(hashPasswordCmd())
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   HashPasswordCmdName,
		Short: HashPasswordShort,
		Long: `Print the bcrypt hash of a password. The password is taken from
--password or, when the flag is absent, from the first line of stdin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to hash")
	return cmd
}
