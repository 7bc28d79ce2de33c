// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pdiddy/paper-engine/internal/cache"
	"github.com/pdiddy/paper-engine/internal/generate"
	"github.com/pdiddy/paper-engine/internal/pipeline"
	"github.com/pdiddy/paper-engine/internal/retrieval"
	"github.com/pdiddy/paper-engine/internal/search"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// searchProvider builds the enabled search backends. Several backends are
// queried together through a Fanout.
func searchProvider(cfg types.RetrievalConfig, logger *slog.Logger) (search.Provider, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	var providers []search.Provider
	if cfg.EnableSemanticScholar {
		providers = append(providers, &search.SemanticScholarBackend{
			Client: client, APIKey: cfg.SemanticScholarAPIKey, UserAgent: cfg.UserAgent,
		})
	}
	if cfg.EnableOpenAlex {
		providers = append(providers, &search.OpenAlexBackend{
			Client: client, Email: cfg.OpenAlexEmail, UserAgent: cfg.UserAgent,
		})
	}
	if cfg.EnableArxiv {
		providers = append(providers, &search.ArxivBackend{Client: client, UserAgent: cfg.UserAgent})
	}

	switch len(providers) {
	case 0:
		return nil, fmt.Errorf("no search backend enabled: set retrieval.enable_semantic_scholar, enable_openalex or enable_arxiv")
	case 1:
		return providers[0], nil
	default:
		return &search.Fanout{Providers: providers, Logger: logger}, nil
	}
}

// components are the long-lived pieces a command works with. Close releases
// the cache.
type components struct {
	store     cache.Store
	retriever *retrieval.Service
	engine    *generate.Engine
}

func (c *components) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// buildRetriever opens the cache and the retrieval service.
func buildRetriever(cfg types.Config, logger *slog.Logger) (*components, error) {
	provider, err := searchProvider(cfg.Retrieval, logger)
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return &components{
		store:     store,
		retriever: retrieval.New(provider, store, cfg.Cache.TTL, logger),
	}, nil
}

// buildEngine builds the generation engine for the configured provider.
func buildEngine(cfg types.GenerationConfig, logger *slog.Logger) (*generate.Engine, error) {
	provider, err := generate.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return generate.NewEngine(provider, generate.RetryPolicyFrom(cfg), logger), nil
}

// buildAll wires retrieval, generation and the orchestrator.
func buildAll(cfg types.Config, logger *slog.Logger) (*components, *pipeline.Orchestrator, error) {
	c, err := buildRetriever(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	c.engine, err = buildEngine(cfg.Generation, logger)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	orch := pipeline.New(c.retriever, c.engine, pipeline.Options{
		Limit:           cfg.Retrieval.Limit,
		MaxContextChars: cfg.Retrieval.MaxContextChars,
		EventBuffer:     cfg.Pipeline.EventBuffer,
		Logger:          logger,
	})
	return c, orch, nil
}
