package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded schema migrations",
	}
	cmd.AddCommand(
		migrateStep("up", "Run all pending migrations"),
		migrateStep("down", "Roll back every migration"),
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				database, err := connect(cfg)
				if err != nil {
					return err
				}
				defer database.Close()

				version, dirty, err := db.GetMigrationVersion(database.DB)
				if err != nil {
					return fmt.Errorf("failed to get migration version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", version, dirty)
				return nil
			},
		},
	)
	return cmd
}

func migrateStep(direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   direction,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := connect(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.RunMigrations(database.DB, direction); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			version, dirty, err := db.GetMigrationVersion(database.DB)
			if err != nil {
				return fmt.Errorf("failed to get migration version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s, version %d (dirty: %v)\n", direction, version, dirty)
			return nil
		},
	}
}
