package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rodrigo270695/portalAD-sub001/internal/audit"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
)

func newStatsCmd() *cobra.Command {
	var (
		userID string
		window time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard statistics from the activity trail",
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

			repo := repositories.NewActivityLogRepository(database)
			out := cmd.OutOrStdout()

			avg := audit.NewReports(repo).AverageResponseTime(cmd.Context())
			fmt.Fprintf(out, "average response time (24h): %.2f ms\n", avg)

			if userID != "" {
				count, err := repo.CountSince(cmd.Context(), userID, time.Now().Add(-window))
				if err != nil {
					return fmt.Errorf("failed to count activity: %w", err)
				}
				fmt.Fprintf(out, "records for %s in the last %s: %d (unusual above %d)\n",
					userID, window, count, cfg.Audit.Anomaly.VolumeThreshold)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "also count this user's records")
	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "window for --user")
	return cmd
}
