// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long: `Serve exposes paper generation as a streaming HTTP service. Runs stream
their progress as Server-Sent Events (POST /api/papers/stream), NDJSON
(POST /api/papers/ndjson) or WebSocket frames (GET /api/papers/ws).
Literature surveys are written by POST /api/surveys. When
cache.purge_schedule is set, expired cache entries are purged on that cron
schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.cfg
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		c, orch, err := buildAll(cfg, app.logger)
		if err != nil {
			return err
		}
		defer c.Close()

		if cfg.Cache.PurgeSchedule != "" {
			purger, err := server.NewPurgeScheduler(cfg.Cache.PurgeSchedule, c.store, app.logger)
			if err != nil {
				return err
			}
			purger.Start()
			defer purger.Stop()
		}

		srv := server.New(cfg.Server, server.Deps{
			Runner:    orch,
			Retriever: c.retriever,
			Titles:    c.engine,
			Surveys:   orch,
			Cache:     c.store,
			Logger:    app.logger,
			Version:   version,
			Provider:  c.engine.Provider().Name(),
		})
		return srv.ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	rootCmd.AddCommand(serveCmd)
}
