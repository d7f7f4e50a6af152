package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
	"github.com/Rodrigo270695/portalAD-sub001/internal/export"
	"github.com/Rodrigo270695/portalAD-sub001/internal/storage"
)

func newArchivesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archives",
		Short: "Manage CSV exports kept in the configured storage backend",
	}
	cmd.AddCommand(newArchivesCreateCmd(), newArchivesListCmd(), newArchivesVerifyCmd())
	return cmd
}

// openArchiver builds an Archiver over the configured backend. The repository is nil
// for commands that only read stored archives.
func openArchiver(cfg *config.Config, repo *repositories.ActivityLogRepository) (*export.Archiver, error) {
	if cfg.Storage.DefaultBackend == "" {
		return nil, fmt.Errorf("no storage backend configured (storage.default_backend)")
	}
	store, err := storage.NewStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	var src export.Source
	if repo != nil {
		src = repo
	}
	return export.NewArchiver(src, store, cfg.Audit.Export.ArchivePrefix, cfg.Audit.Export.BatchSize), nil
}

func newArchivesCreateCmd() *cobra.Command {
	var params export.FilterParams

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a filtered CSV export in the storage backend",
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

			archiver, err := openArchiver(cfg, repositories.NewActivityLogRepository(database))
			if err != nil {
				return err
			}
			archive, err := archiver.Create(cmd.Context(), filters)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\t%d bytes\tsha256:%s\n",
				archive.Name, archive.Rows, archive.Size, archive.Checksum)
			return nil
		},
	}
	addFilterFlags(cmd, &params)
	return cmd
}

func newArchivesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored exports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			archiver, err := openArchiver(cfg, nil)
			if err != nil {
				return err
			}
			archives, err := archiver.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
			for _, a := range archives {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", a.Name, a.Size, a.LastModified.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}
}

func newArchivesVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <name>",
		Short: "Recompute an export's SHA-256 and compare it with the stored checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			archiver, err := openArchiver(cfg, nil)
			if err != nil {
				return err
			}
			ok, err := archiver.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: checksum mismatch", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
			return nil
		},
	}
}
