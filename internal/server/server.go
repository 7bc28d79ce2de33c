// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the pipeline over HTTP. A run's progress streams as
// Server-Sent Events, newline-delimited JSON or WebSocket frames; retrieval,
// title options, surveys and cache maintenance are plain JSON endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdiddy/paper-engine/internal/cache"
	"github.com/pdiddy/paper-engine/internal/pipeline"
	"github.com/pdiddy/paper-engine/pkg/types"
)

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxBodyBytes    = 1 << 20
)

// Runner starts pipeline runs. *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (<-chan types.ProgressEvent, error)
}

// TitleProposer proposes alternative titles. *generate.Engine satisfies it.
type TitleProposer interface {
	TitleOptions(ctx context.Context, topic string, n int) ([]string, error)
}

// SurveyWriter writes literature surveys. *pipeline.Orchestrator satisfies
// it.
type SurveyWriter interface {
	Survey(ctx context.Context, req pipeline.SurveyRequest) (*types.Survey, error)
}

// Deps holds the server's collaborators. Retriever, Titles, Surveys and Cache
// may be nil; their endpoints then answer 503.
type Deps struct {
	Runner    Runner
	Retriever pipeline.Retriever
	Titles    TitleProposer
	Surveys   SurveyWriter
	Cache     cache.Store
	Logger    *slog.Logger

	// Version and Provider are reported by /healthz.
	Version  string
	Provider string
}

// Server is the paper-engine HTTP server.
type Server struct {
	httpServer      *http.Server
	handler         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New builds a Server with all routes registered.
func New(cfg types.ServerConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	h := &handlers{
		deps:           deps,
		logger:         deps.Logger,
		maxBodyBytes:   cfg.MaxBodyBytes,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/papers/stream", h.handleSSE)
	mux.HandleFunc("POST /api/papers/ndjson", h.handleNDJSON)
	mux.HandleFunc("GET /api/papers/ws", h.handleWS)
	mux.HandleFunc("POST /api/retrieve", h.handleRetrieve)
	mux.HandleFunc("POST /api/titles", h.handleTitles)
	mux.HandleFunc("POST /api/surveys", h.handleSurvey)
	mux.HandleFunc("POST /api/cache/purge", h.handlePurge)
	mux.HandleFunc("GET /healthz", h.handleHealth)

	// Outermost first: request ID, tracing, logging, recovery.
	var handler http.Handler = mux
	handler = recoveryMiddleware(deps.Logger, handler)
	handler = loggingMiddleware(deps.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler:         handler,
		logger:          deps.Logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
