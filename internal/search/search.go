// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries academic literature APIs and returns unified,
// deduplicated RetrievedPaper records. Each API is a Provider; Fanout
// combines several behind the same interface.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"unicode"

	"github.com/pdiddy/paper-engine/pkg/types"
)

// Provider answers one literature query. Implementations return an error for
// transport failures, non-2xx responses, and malformed payloads; callers
// treat all of these as a soft failure for that query.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]types.RetrievedPaper, error)
}

// ErrMalformed marks a provider response that failed schema validation.
var ErrMalformed = errors.New("malformed provider response")

// StatusError reports a non-2xx response from a provider.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned HTTP %d", e.Provider, e.Code)
}

// Fanout queries every provider concurrently and merges the results.
// It fails only when every provider fails.
type Fanout struct {
	Providers []Provider
	Logger    *slog.Logger
}

// Name lists the member providers.
func (f *Fanout) Name() string {
	names := make([]string, len(f.Providers))
	for i, p := range f.Providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// Search fans the query out and returns deduplicated results in provider
// order, truncated to limit.
func (f *Fanout) Search(ctx context.Context, query string, limit int) ([]types.RetrievedPaper, error) {
	if len(f.Providers) == 0 {
		return nil, fmt.Errorf("no search providers configured")
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	type providerResult struct {
		papers []types.RetrievedPaper
		err    error
	}
	results := make([]providerResult, len(f.Providers))

	var wg sync.WaitGroup
	for i, p := range f.Providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			papers, err := p.Search(ctx, query, limit)
			results[i] = providerResult{papers: papers, err: err}
		}(i, p)
	}
	wg.Wait()

	m := NewMerger()
	var errs []error
	for i, r := range results {
		name := f.Providers[i].Name()
		if r.err != nil {
			logger.Warn("search provider failed", "provider", name, "query", query, "error", r.err)
			errs = append(errs, fmt.Errorf("%s: %w", name, r.err))
			continue
		}
		for _, p := range r.papers {
			m.Add(p)
		}
	}
	if len(errs) == len(f.Providers) {
		return nil, errors.Join(errs...)
	}

	papers := m.Papers()
	if limit > 0 && len(papers) > limit {
		papers = papers[:limit]
	}
	return papers, nil
}

// Merger accumulates papers, collapsing records that share an identity
// (DOI, then arXiv id, then provider id). Records with no identity fall back
// to their normalized title. The first occurrence keeps its position; later
// duplicates only fill its empty fields.
type Merger struct {
	seen    map[string]int
	papers  []types.RetrievedPaper
	removed int
}

// NewMerger returns an empty Merger.
func NewMerger() *Merger {
	return &Merger{seen: make(map[string]int)}
}

// Add merges p and reports whether it was new. The merger keeps its own copy
// of p.ExternalIDs, so the caller's map is never written.
func (m *Merger) Add(p types.RetrievedPaper) bool {
	key := dedupKey(p)
	if key != "" {
		if idx, ok := m.seen[key]; ok {
			mergeInto(&m.papers[idx], p)
			m.removed++
			return false
		}
	}

	p.ExternalIDs = maps.Clone(p.ExternalIDs)
	m.papers = append(m.papers, p)
	if key != "" {
		m.seen[key] = len(m.papers) - 1
	}
	return true
}

func dedupKey(p types.RetrievedPaper) string {
	if id := p.Identity(); id != "" {
		return id
	}
	if t := NormalizeTitle(p.Title); t != "" {
		return "title:" + t
	}
	return ""
}

// Len returns the number of unique papers.
func (m *Merger) Len() int { return len(m.papers) }

// Removed returns how many duplicates were collapsed.
func (m *Merger) Removed() int { return m.removed }

// Papers returns a copy of the unique papers in insertion order.
func (m *Merger) Papers() []types.RetrievedPaper {
	out := make([]types.RetrievedPaper, len(m.papers))
	copy(out, m.papers)
	return out
}

// Deduplicate collapses duplicates in papers and returns the unique records
// and the number removed.
func Deduplicate(papers []types.RetrievedPaper) ([]types.RetrievedPaper, int) {
	m := NewMerger()
	for _, p := range papers {
		m.Add(p)
	}
	return m.Papers(), m.Removed()
}

// mergeInto fills empty fields of dst from src.
func mergeInto(dst *types.RetrievedPaper, src types.RetrievedPaper) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Year == 0 {
		dst.Year = src.Year
	}
	if dst.Venue == "" {
		dst.Venue = src.Venue
	}
	if src.CitationCount > dst.CitationCount {
		dst.CitationCount = src.CitationCount
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	for k, v := range src.ExternalIDs {
		if dst.ExternalIDs == nil {
			dst.ExternalIDs = make(map[string]string)
		}
		if _, ok := dst.ExternalIDs[k]; !ok {
			dst.ExternalIDs[k] = v
		}
	}
	if src.Source != "" && !strings.Contains(dst.Source, src.Source) {
		if dst.Source == "" {
			dst.Source = src.Source
		} else {
			dst.Source += "," + src.Source
		}
	}
}

// NormalizeTitle lowercases a title, drops punctuation, and collapses
// whitespace.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// clampLimit bounds a requested page size to [1, max], defaulting to def.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
