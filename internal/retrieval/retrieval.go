// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval finds supporting literature for a topic. It walks a
// ladder of progressively broader queries against a search.Provider, caching
// each query's response and collapsing concurrent identical lookups, until
// enough unique papers have been collected.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/paper-engine/internal/cache"
	"github.com/pdiddy/paper-engine/internal/search"
	"github.com/pdiddy/paper-engine/internal/telemetry"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// DefaultLimit is the number of papers requested when the caller passes 0.
const DefaultLimit = 10

// flightTimeout bounds a shared upstream lookup once it no longer follows
// any single caller's context.
const flightTimeout = 2 * time.Minute

// ErrUnavailable reports that no ladder step produced any paper. Callers
// continue without literature context.
var ErrUnavailable = errors.New("retrieval unavailable")

// Service runs the query ladder. It is safe for concurrent use.
type Service struct {
	provider search.Provider
	store    cache.Store
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	group singleflight.Group

	stepCount     metric.Int64Counter
	upstreamCount metric.Int64Counter
	stepDuration  metric.Float64Histogram
}

// New returns a Service querying provider. store may be nil to disable
// caching; ttl <= 0 uses cache.DefaultTTL.
func New(provider search.Provider, store cache.Store, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	meter := telemetry.Meter("paper-engine/retrieval")
	steps, _ := meter.Int64Counter("retrieval.steps",
		metric.WithDescription("Ladder steps executed, by step and outcome"),
	)
	upstream, _ := meter.Int64Counter("retrieval.upstream_calls",
		metric.WithDescription("Calls issued to the search provider"),
	)
	dur, _ := meter.Float64Histogram("retrieval.step.duration",
		metric.WithDescription("Time to resolve one ladder step (ms)"),
		metric.WithUnit("ms"),
	)
	return &Service{
		provider:      provider,
		store:         store,
		ttl:           ttl,
		logger:        logger,
		now:           time.Now,
		stepCount:     steps,
		upstreamCount: upstream,
		stepDuration:  dur,
	}
}

// Search returns up to limit unique papers for topic. Steps run in ladder
// order and only while fewer than limit papers have been found. A step whose
// lookup fails is skipped. When nothing is found the empty result comes back
// with ErrUnavailable; only context cancellation yields another error.
func (s *Service) Search(ctx context.Context, topic string, limit int) ([]types.RetrievedPaper, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	merger := search.NewMerger()
	for _, step := range Steps(topic) {
		if merger.Len() >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := s.now()
		papers, source, err := s.lookup(ctx, step.Query, limit)
		outcome := source
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			outcome = "failed"
			s.logger.Warn("retrieval step skipped",
				"step", step.Name, "query", step.Query, "error", err)
		}

		added := 0
		for _, p := range papers {
			if merger.Add(p) {
				added++
			}
		}
		s.logger.Debug("retrieval step",
			"step", step.Name, "query", step.Query, "source", outcome,
			"returned", len(papers), "added", added, "total", merger.Len())

		attrs := metric.WithAttributes(
			attribute.String("step", step.Name),
			attribute.String("outcome", outcome),
		)
		s.stepCount.Add(ctx, 1, attrs)
		s.stepDuration.Record(ctx, telemetry.Milliseconds(s.now().Sub(start)), attrs)
	}

	papers := merger.Papers()
	if len(papers) > limit {
		papers = papers[:limit]
	}
	if len(papers) == 0 {
		return papers, ErrUnavailable
	}
	return papers, nil
}

// lookup resolves one step query through the cache and, on a miss, the
// provider. Concurrent misses on the same key share one upstream call. The
// shared call runs detached from ctx so one caller's cancellation cannot fail
// the others; a cancelled caller stops waiting and returns ctx.Err(). The
// second return value names where the papers came from.
func (s *Service) lookup(ctx context.Context, query string, limit int) ([]types.RetrievedPaper, string, error) {
	key := cache.Key(query)
	if papers, ok := s.cached(ctx, key); ok {
		return papers, "cache", nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()

		// A flight that finished just before this one started has already
		// filled the cache.
		if papers, ok := s.cached(fctx, key); ok {
			return papers, nil
		}
		s.upstreamCount.Add(fctx, 1, metric.WithAttributes(attribute.String("provider", s.provider.Name())))
		papers, err := s.provider.Search(fctx, query, limit)
		if err != nil {
			return nil, fmt.Errorf("%s search %q: %w", s.provider.Name(), query, err)
		}
		s.save(fctx, key, papers)
		return papers, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, "upstream", ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, "upstream", res.Err
	}
	source := "upstream"
	if res.Shared {
		source = "shared"
	}
	return res.Val.([]types.RetrievedPaper), source, nil
}

// cached reads key from the store. Read errors, expired entries and
// undecodable payloads all count as a miss.
func (s *Service) cached(ctx context.Context, key string) ([]types.RetrievedPaper, bool) {
	if s.store == nil {
		return nil, false
	}
	entry, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok || cache.IsExpired(entry, s.now()) {
		return nil, false
	}
	var papers []types.RetrievedPaper
	if err := entry.Decode(&papers); err != nil {
		s.logger.Warn("cache entry undecodable", "key", key, "error", err)
		return nil, false
	}
	return papers, true
}

// save writes a non-empty provider response. Empty responses are not cached
// so a later call can still find papers once the index catches up.
func (s *Service) save(ctx context.Context, key string, papers []types.RetrievedPaper) {
	if s.store == nil || len(papers) == 0 {
		return
	}
	if err := s.store.Put(ctx, key, papers, s.ttl); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
