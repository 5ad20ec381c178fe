package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bher20/slotariff/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQL schema (sqlite, postgres, postgrespool drivers)",
}

func migrateRun(name string, fn func(cmd *cobra.Command, driver, dsn string) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Run goose %s on the configured database", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.Storage.Driver == "memory" {
				return fmt.Errorf("storage driver %q has no schema", cfg.Storage.Driver)
			}
			return fn(cmd, cfg.Storage.Driver, cfg.Storage.DSN)
		},
	}
}

func init() {
	migrateCmd.AddCommand(
		migrateRun("up", func(cmd *cobra.Command, driver, dsn string) error {
			return migrate.Up(cmd.Context(), driver, dsn)
		}),
		migrateRun("down", func(cmd *cobra.Command, driver, dsn string) error {
			return migrate.Down(cmd.Context(), driver, dsn)
		}),
		migrateRun("status", func(cmd *cobra.Command, driver, dsn string) error {
			return migrate.Status(cmd.Context(), driver, dsn)
		}),
		migrateRun("version", func(cmd *cobra.Command, driver, dsn string) error {
			v, err := migrate.Version(cmd.Context(), driver, dsn)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}),
	)
	rootCmd.AddCommand(migrateCmd)
}
