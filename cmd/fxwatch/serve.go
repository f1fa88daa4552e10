package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/fxwatch/api"
	"github.com/seenimoa/fxwatch/internal/datasource"
	"github.com/seenimoa/fxwatch/internal/scheduler"
)

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server. The dataset is loaded once at startup and
again on POST /api/v1/reload or on the refresh.schedule cron, if set.
A failed initial load is logged and data endpoints answer 503 until a
reload succeeds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		holder := datasource.NewHolder(datasource.NewLoader(cfg.DatasetLocation()))
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		snap, err := holder.Reload(ctx)
		cancel()
		if err != nil {
			logger.WithError(err).Error("initial dataset load failed")
		} else {
			logger.WithField("records", snap.Dataset.Len()).WithField("source", snap.Source).Info("dataset loaded")
		}

		srv := api.NewServer(cfg, holder, logger)

		if cfg.Refresh.Schedule != "" {
			refresher := scheduler.New(holder, logger)
			if err := refresher.Schedule(cfg.Refresh.Schedule); err != nil {
				return fmt.Errorf("refresh.schedule: %w", err)
			}
			srv.SetRefresher(refresher)
			logger.WithField("schedule", cfg.Refresh.Schedule).Info("dataset refresh scheduled")
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting fxwatch API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
}
