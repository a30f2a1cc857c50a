// Command crossguard serves the border-crossing dataset API and manages its
// database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/hed1ad/crossguard/pkg/api"
	"github.com/hed1ad/crossguard/pkg/config"
	"github.com/hed1ad/crossguard/pkg/ingest"
	"github.com/hed1ad/crossguard/pkg/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "crossguard",
		Short:        "Border-crossing data API with anomaly detection",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newInitDBCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.StoreConfig())
			if err != nil {
				return err
			}
			defer st.Close()

			srv := api.NewServer(st)
			slog.Info("serving", "listen", cfg.Listen, "database", cfg.Database.Path)
			return http.ListenAndServe(cfg.Listen, srv.Handler())
		},
	}
}

func newInitDBCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Recreate the database and load the border-crossing CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.StoreConfig())
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			if err := st.Init(ctx); err != nil {
				return err
			}
			slog.Info("schema created", "database", cfg.Database.Path)

			res, err := ingest.LoadFile(cfg.Ingest.CSVPath)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", cfg.Ingest.CSVPath, err)
			}
			if res.Skipped > 0 {
				slog.Warn("skipped malformed CSV records", "count", res.Skipped)
			}

			if err := st.InsertEntries(ctx, res.Entries); err != nil {
				return err
			}
			slog.Info("data loaded", "rows", len(res.Entries), "csv", cfg.Ingest.CSVPath)
			return nil
		},
	}
}
