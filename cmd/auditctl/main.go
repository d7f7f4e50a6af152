// Package main is auditctl, the operator tool for the portal activity trail. It reads
// the same configuration as the server and talks to the database and export storage
// directly, so it works while the API is down.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/Rodrigo270695/portalAD-sub001/internal/api"
	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db"
	"github.com/Rodrigo270695/portalAD-sub001/internal/telemetry"

	_ "github.com/Rodrigo270695/portalAD-sub001/internal/storage/azure"
	_ "github.com/Rodrigo270695/portalAD-sub001/internal/storage/gcs"
	_ "github.com/Rodrigo270695/portalAD-sub001/internal/storage/local"
	_ "github.com/Rodrigo270695/portalAD-sub001/internal/storage/s3"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "auditctl",
	Short:         "Operator tool for the portal activity trail",
	Version:       api.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config.yaml")

	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newArchivesCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newTokenCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and sends text logs to stderr.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLoggerTo(os.Stderr, "text", cfg.Logging.Level)
	return cfg, nil
}

func connect(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}
