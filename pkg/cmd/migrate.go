package cmd

import (
	"fmt"
	"log/slog"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/store"
	"github.com/spf13/cobra"
)

var MigrateCmd = &cobra.Command{
	Use:   MigrateCmdName,
	Short: MigrateCmdShort,
	Long: `Initialize or update the database schema to the latest version.

serve migrates on start-up as well; this command is for preparing a
database ahead of time or checking its version.`,
	RunE: runMigrate,
}

func init() {
	MigrateCmd.Flags().Bool("status", false, "show the schema version without applying changes")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()
	if !status {
		slog.Info("Running database migrations", "database", cfg.Database.Path)
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	version, err := st.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "database: %s\nschema version: %d (latest %d)\n", cfg.Database.Path, version, store.SchemaVersion)
	return nil
}
