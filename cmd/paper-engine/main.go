// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-engine CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-engine/internal/config"
	"github.com/pdiddy/paper-engine/internal/secrets"
	"github.com/pdiddy/paper-engine/internal/telemetry"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// app holds what the root command resolved for its subcommands.
var app struct {
	cfg      types.Config
	logger   *slog.Logger
	shutdown telemetry.Shutdown
}

// rootCmd is the base command for the paper-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-engine",
	Short: "Generate literature-grounded research paper drafts",
	Long: `paper-engine turns a research topic into a structured paper draft. It
retrieves related literature from academic search APIs, then asks a language
model for a title, an abstract and six sections, and numbers the references the
text cites.

Use generate for a full run, retrieve or titles for a single stage, and serve
to expose the pipeline as a streaming HTTP service.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.shutdown == nil {
			return nil
		}
		return app.shutdown(context.WithoutCancel(cmd.Context()))
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-engine.yaml or ~/.config/paper-engine/paper-engine.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("cache", "", "cache backend override: file, sqlite or memory")
}

func setup(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	app.logger = logger

	cfgFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, used, err := config.Load(config.Options{File: cfgFile, EnvFile: envFile})
	if err != nil {
		return err
	}
	if used != "" {
		logger.Debug("using config file", "path", used)
	}

	s, err := secrets.Load(secrets.DefaultDir, logger)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		logger.Debug("loaded secrets", "keys", secrets.Names(s))
	}
	secrets.Apply(&cfg, s)
	if backend, _ := cmd.Flags().GetString("cache"); backend != "" {
		cfg.Cache.Backend = types.CacheBackend(backend)
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}
	app.cfg = cfg

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry, version)
	if err != nil {
		return err
	}
	app.shutdown = shutdown
	return nil
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", levelName, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: use text or json", format)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
