// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads paper-engine settings from defaults, an optional
// paper-engine.yaml, a .env file and PAPER_ENGINE_* environment variables,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-engine/internal/cache"
	"github.com/pdiddy/paper-engine/internal/pipeline"
	"github.com/pdiddy/paper-engine/internal/retrieval"
	"github.com/pdiddy/paper-engine/pkg/types"
)

const (
	// Name is the config file base name and the ~/.config subdirectory.
	Name = "paper-engine"

	// EnvPrefix prefixes every environment override, e.g.
	// PAPER_ENGINE_GENERATION_PROVIDER.
	EnvPrefix = "PAPER_ENGINE"
)

// SetDefaults registers every key with its default so that environment
// variables can override keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("retrieval.timeout", 30*time.Second)
	v.SetDefault("retrieval.user_agent", Name+"/0.1")
	v.SetDefault("retrieval.limit", retrieval.DefaultLimit)
	v.SetDefault("retrieval.max_context_chars", retrieval.DefaultMaxContextChars)
	v.SetDefault("retrieval.enable_semantic_scholar", true)
	v.SetDefault("retrieval.enable_openalex", false)
	v.SetDefault("retrieval.enable_arxiv", false)
	v.SetDefault("retrieval.semantic_scholar_api_key", "")
	v.SetDefault("retrieval.openalex_email", "")

	v.SetDefault("cache.backend", string(types.CacheFile))
	v.SetDefault("cache.dir", filepath.Join(".cache", Name))
	v.SetDefault("cache.ttl", cache.DefaultTTL)
	v.SetDefault("cache.purge_schedule", "")

	v.SetDefault("generation.provider", string(types.ProviderOllama))
	v.SetDefault("generation.model", "")
	v.SetDefault("generation.base_url", "")
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.timeout", 120*time.Second)
	v.SetDefault("generation.max_retries", 2)
	v.SetDefault("generation.retry_base_delay", 2*time.Second)
	v.SetDefault("generation.retry_max_delay", 30*time.Second)

	v.SetDefault("pipeline.event_buffer", pipeline.DefaultEventBuffer)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
}

// Options control where Load looks.
type Options struct {
	// File is an explicit config file; empty searches the default paths.
	File string

	// EnvFile is loaded into the process environment first. Missing files
	// are ignored. Empty skips .env loading.
	EnvFile string
}

// New returns a viper instance with defaults, search paths and environment
// binding configured, but nothing read yet.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration. It returns the config file used, which
// is empty when no file was found.
func Load(opts Options) (types.Config, string, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return types.Config{}, "", fmt.Errorf("loading %s: %w", opts.EnvFile, err)
		}
	}

	v := New(opts.File)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return types.Config{}, "", fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, "", err
	}
	return cfg, v.ConfigFileUsed(), nil
}

// Validate rejects values the components cannot run with.
func Validate(cfg types.Config) error {
	switch cfg.Cache.Backend {
	case types.CacheFile, types.CacheSQLite, types.CacheMemory:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", cfg.Cache.Backend)
	}
	switch cfg.Generation.Provider {
	case types.ProviderOllama, types.ProviderAnthropic, types.ProviderOpenAI:
	default:
		return fmt.Errorf("generation.provider: unknown provider %q", cfg.Generation.Provider)
	}
	if cfg.Retrieval.Limit < 1 || cfg.Retrieval.Limit > pipeline.MaxLimit {
		return fmt.Errorf("retrieval.limit: must be between 1 and %d, got %d", pipeline.MaxLimit, cfg.Retrieval.Limit)
	}
	if cfg.Generation.MaxRetries < 0 {
		return fmt.Errorf("generation.max_retries: must not be negative")
	}
	return nil
}
