// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// CacheBackend selects the CacheStore implementation.
type CacheBackend string

const (
	CacheFile   CacheBackend = "file"
	CacheSQLite CacheBackend = "sqlite"
	CacheMemory CacheBackend = "memory"
)

// CacheConfig holds settings for the retrieval cache.
type CacheConfig struct {
	// Backend selects file, sqlite, or memory storage.
	Backend CacheBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Dir is the directory for cache files or the SQLite database.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// TTL is how long an entry stays usable (default 24h).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// PurgeSchedule is the cron expression for purging expired entries
	// while serving. Empty disables the job.
	PurgeSchedule string `json:"purge_schedule" yaml:"purge_schedule" mapstructure:"purge_schedule"`
}

// RetrievalConfig holds settings for the literature retrieval stage.
type RetrievalConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Limit is the default number of papers to retrieve (default 10).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// MaxContextChars caps the literature context fed to generation (default 4000).
	MaxContextChars int `json:"max_context_chars" yaml:"max_context_chars" mapstructure:"max_context_chars"`

	// EnableSemanticScholar controls whether the Semantic Scholar backend is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// EnableOpenAlex controls whether the OpenAlex backend is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex" mapstructure:"enable_openalex"`

	// EnableArxiv controls whether the arXiv backend is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// OpenAlexEmail is sent as the mailto parameter for the polite pool.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`
}

// ProviderKind selects the text-generation provider.
type ProviderKind string

const (
	ProviderOllama    ProviderKind = "ollama"
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderOpenAI    ProviderKind = "openai"
)

// GenerationConfig holds settings for the generation engine.
type GenerationConfig struct {
	// Provider selects ollama, anthropic, or openai.
	Provider ProviderKind `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the provider model identifier (e.g. "llama3.1:8b").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey authenticates against hosted providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout bounds one provider call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of retries after the first attempt (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryBaseDelay is the first backoff interval (default 2s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay"`

	// RetryMaxDelay caps a single backoff interval (default 30s).
	RetryMaxDelay time.Duration `json:"retry_max_delay" yaml:"retry_max_delay" mapstructure:"retry_max_delay"`
}

// ServerConfig holds settings for the HTTP streaming service.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// AllowedOrigins lists host patterns accepted for WebSocket upgrades
	// from another origin.
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty" mapstructure:"allowed_origins"`

	// MaxBodyBytes caps request bodies (default 1 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	// Endpoint is the OTLP HTTP endpoint; empty disables export.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `json:"insecure" yaml:"insecure" mapstructure:"insecure"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	// EventBuffer is the capacity of each run's progress channel (default 16).
	EventBuffer int `json:"event_buffer" yaml:"event_buffer" mapstructure:"event_buffer"`
}

// Config groups all component configurations.
type Config struct {
	Retrieval  RetrievalConfig  `json:"retrieval" yaml:"retrieval" mapstructure:"retrieval"`
	Cache      CacheConfig      `json:"cache" yaml:"cache" mapstructure:"cache"`
	Generation GenerationConfig `json:"generation" yaml:"generation" mapstructure:"generation"`
	Pipeline   PipelineConfig   `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Telemetry  TelemetryConfig  `json:"telemetry" yaml:"telemetry" mapstructure:"telemetry"`
}
