package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
	"github.com/Rodrigo270695/portalAD-sub001/internal/export"
)

// addFilterFlags binds the activity filters shared by export and archives create.
func addFilterFlags(cmd *cobra.Command, p *export.FilterParams) {
	cmd.Flags().StringVar(&p.UserID, "user", "", "only records of this user id")
	cmd.Flags().StringVar(&p.Action, "action", "", "only records with this action")
	cmd.Flags().StringVar(&p.DeviceType, "device", "", "phone, tablet, desktop or unknown")
	cmd.Flags().StringVar(&p.Search, "search", "", "substring of description, route or user agent")
	cmd.Flags().StringVar(&p.From, "from", "", "start (RFC3339 or YYYY-MM-DD in the audit time zone)")
	cmd.Flags().StringVar(&p.To, "to", "", "end (RFC3339, or YYYY-MM-DD for the whole day)")
}

func newExportCmd() *cobra.Command {
	var (
		params  export.FilterParams
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered activity trail as CSV",
		Example: `  auditctl export --from 2026-03-01 --to 2026-03-31 --out march.csv
  auditctl export --user 42 --action file_download`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			filters, err := export.ParseFilters(params, cfg.Audit.Location())
			if err != nil {
				return err
			}

			database, err := connect(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}

			rows, err := runExport(cmd.Context(), out, repositories.NewActivityLogRepository(database), filters, cfg.Audit.Export.BatchSize)
			if err != nil {
				return err
			}
			slog.Info("export finished", "rows", rows, "out", outPath)
			return nil
		},
	}

	addFilterFlags(cmd, &params)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func runExport(ctx context.Context, w io.Writer, src export.Source, filters repositories.ActivityFilters, batchSize int) (int, error) {
	rows, err := export.WriteCSV(ctx, w, src, filters, batchSize)
	if err != nil {
		return rows, fmt.Errorf("export failed after %d rows: %w", rows, err)
	}
	return rows, nil
}
