// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"time"

	"github.com/pdiddy/paper-engine/internal/format"
	"github.com/pdiddy/paper-engine/internal/generate"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// run holds the state of one pipeline run. Only the run's goroutine touches
// it.
type run struct {
	id      string
	req     Request
	started time.Time
	now     func() time.Time
	events  chan types.ProgressEvent

	title          string
	papers         []types.RetrievedPaper
	literature     string
	ragUnavailable bool
	abstract       string
	sections       []types.GeneratedSection
	references     []types.Reference
}

// emit stamps ev and sends it, giving up when ctx ends.
func (r *run) emit(ctx context.Context, ev types.ProgressEvent) error {
	ev.RunID = r.id
	ev.Time = r.now()
	select {
	case r.events <- ev:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// assemble builds the finished paper.
func (r *run) assemble(p generate.Provider) *types.GeneratedPaper {
	finished := r.now()
	meta := types.PaperMetadata{
		WordCounts:     make(map[string]int, len(r.sections)),
		SectionCount:   len(r.sections),
		ReferenceCount: len(r.references),
		RetrievedCount: len(r.papers),
		RAGEnabled:     r.req.UseRAG,
		RAGUnavailable: r.req.UseRAG && r.ragUnavailable,
		Duration:       finished.Sub(r.started),
		GeneratedAt:    finished.UTC(),
		TotalWords:     format.WordCount(r.abstract),
	}
	if p != nil {
		meta.Provider = p.Name()
		meta.Model = p.Model()
	}
	for _, s := range r.sections {
		meta.WordCounts[s.Name] = s.WordCount
		meta.TotalWords += s.WordCount
	}

	sections := make([]types.GeneratedSection, len(r.sections))
	copy(sections, r.sections)
	return &types.GeneratedPaper{
		RunID:      r.id,
		Topic:      r.req.Topic,
		Title:      r.title,
		Abstract:   r.abstract,
		Sections:   sections,
		References: r.references,
		Metadata:   meta,
	}
}
