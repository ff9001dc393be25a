package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatomy-twin-server/internal/app"
	"github.com/anatomy-twin-server/internal/database"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.AddCommand(
		migrationStep(opts, "up", "Apply pending migrations", (*database.MigrationRunner).Up),
		migrationStep(opts, "down", "Roll back the most recent migration", (*database.MigrationRunner).Down),
	)
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := openRunner(opts)
			if err != nil {
				return err
			}
			defer runner.Close()

			version, dirty, err := runner.Version()
			if err != nil {
				return fmt.Errorf("reading schema version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})
	return cmd
}

func migrationStep(opts *rootOptions, use, short string, run func(*database.MigrationRunner) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runner, err := openRunner(opts)
			if err != nil {
				return err
			}
			defer runner.Close()
			return run(runner)
		},
	}
}

func openRunner(opts *rootOptions) (*database.MigrationRunner, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	path := cfg.Database.MigrationsPath
	if path == "" {
		path = "migrations"
	}
	return database.NewMigrationRunner(database.ConfigFrom(cfg.Database).URL(), path, app.NewLogger(cfg.Logging))
}
