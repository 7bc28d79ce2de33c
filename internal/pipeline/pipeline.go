// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences one paper generation run: title, optional
// literature retrieval, abstract, the six sections and the reference list.
// Progress is reported as an ordered stream of events ending in exactly one
// complete or error event.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/paper-engine/internal/generate"
	"github.com/pdiddy/paper-engine/internal/retrieval"
	"github.com/pdiddy/paper-engine/internal/telemetry"
	"github.com/pdiddy/paper-engine/pkg/types"
)

const (
	// MinTopicChars is the shortest accepted topic after trimming.
	MinTopicChars = 10

	// MaxLimit caps the number of papers a run may retrieve.
	MaxLimit = 20

	// DefaultEventBuffer is the capacity of a run's event channel.
	DefaultEventBuffer = 16
)

// Stage names reported on error events. Section failures report the section
// name instead.
const (
	StageTitle      = "title"
	StageRetrieval  = "retrieval"
	StageAbstract   = "abstract"
	StageSections   = "sections"
	StageReferences = "references"
	StageComplete   = "complete"
)

// Retriever finds literature for a topic.
type Retriever interface {
	Search(ctx context.Context, topic string, limit int) ([]types.RetrievedPaper, error)
}

// Generator writes paper text. *generate.Engine satisfies it.
type Generator interface {
	Provider() generate.Provider
	GenerateTitle(ctx context.Context, topic string) (string, error)
	GenerateAbstract(ctx context.Context, title, literature string) (string, error)
	GenerateSection(ctx context.Context, spec generate.SectionSpec, title string, sc generate.SectionContext) (types.GeneratedSection, error)
	GenerateSurvey(ctx context.Context, topic, literature string) (string, error)
}

// Request describes one run.
type Request struct {
	Topic         string          `json:"topic"`
	UseRAG        bool            `json:"use_rag"`
	Limit         int             `json:"limit,omitempty"`
	SelectedTitle string          `json:"selected_title,omitempty"`
	UserData      *types.UserData `json:"user_data,omitempty"`
}

// ValidationError reports a request rejected before the run starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate trims the request, fills the default limit and checks it.
func (r Request) Validate(defaultLimit int) (Request, error) {
	r.Topic = strings.TrimSpace(r.Topic)
	r.SelectedTitle = strings.Join(strings.Fields(r.SelectedTitle), " ")
	if utf8.RuneCountInString(r.Topic) < MinTopicChars {
		return r, &ValidationError{Field: "topic", Reason: fmt.Sprintf("must be at least %d characters", MinTopicChars)}
	}
	if r.Limit == 0 {
		r.Limit = defaultLimit
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return r, &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
	}
	return r, nil
}

// Options tunes an Orchestrator. Zero values take defaults.
type Options struct {
	// Limit is the number of papers retrieved when a request sets none.
	Limit int

	// MaxContextChars caps the literature context.
	MaxContextChars int

	// EventBuffer is the capacity of each run's event channel.
	EventBuffer int

	// Sections overrides the section set, mainly for tests.
	Sections []generate.SectionSpec

	Logger *slog.Logger
}

// Orchestrator runs the pipeline. It keeps no per-run state; each run owns
// its own run value.
type Orchestrator struct {
	retriever       Retriever
	generator       Generator
	sections        []generate.SectionSpec
	limit           int
	maxContextChars int
	buffer          int
	logger          *slog.Logger
	now             func() time.Time

	tracer        trace.Tracer
	phaseDuration metric.Float64Histogram
	runs          metric.Int64Counter
}

// New returns an Orchestrator. retriever may be nil, in which case runs that
// ask for retrieval report it unavailable.
func New(retriever Retriever, generator Generator, opts Options) *Orchestrator {
	if opts.Limit <= 0 {
		opts.Limit = retrieval.DefaultLimit
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = retrieval.DefaultMaxContextChars
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}
	if opts.Sections == nil {
		opts.Sections = generate.Sections()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	meter := telemetry.Meter("paper-engine/pipeline")
	phaseDuration, _ := meter.Float64Histogram("pipeline.phase.duration",
		metric.WithDescription("Duration of each pipeline phase (ms)"),
		metric.WithUnit("ms"),
	)
	runs, _ := meter.Int64Counter("pipeline.runs",
		metric.WithDescription("Pipeline runs by outcome"),
	)

	return &Orchestrator{
		retriever:       retriever,
		generator:       generator,
		sections:        opts.Sections,
		limit:           min(opts.Limit, MaxLimit),
		maxContextChars: opts.MaxContextChars,
		buffer:          opts.EventBuffer,
		logger:          opts.Logger,
		now:             time.Now,
		tracer:          telemetry.Tracer("paper-engine/pipeline"),
		phaseDuration:   phaseDuration,
		runs:            runs,
	}
}

// Run validates req and starts a run. The returned channel delivers the
// run's events and is closed after the terminal event, or early if ctx ends.
func (o *Orchestrator) Run(ctx context.Context, req Request) (<-chan types.ProgressEvent, error) {
	req, err := req.Validate(o.limit)
	if err != nil {
		return nil, err
	}
	r := &run{
		id:      uuid.NewString(),
		req:     req,
		started: o.now(),
		now:     o.now,
		events:  make(chan types.ProgressEvent, o.buffer),
	}
	go o.execute(ctx, r)
	return r.events, nil
}

// Generate runs req to completion and returns the paper, or the error the
// run ended with.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*types.GeneratedPaper, error) {
	events, err := o.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	var paper *types.GeneratedPaper
	var runErr error
	for ev := range events {
		switch ev.Status {
		case types.StatusComplete:
			paper = ev.Paper
		case types.StatusError:
			runErr = &RunError{RunID: ev.RunID, Stage: ev.Stage, Message: ev.Message}
		}
	}
	if paper != nil {
		return paper, nil
	}
	if runErr != nil {
		return nil, runErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("run ended without a result")
}

// RunError is the error event of a failed run, as returned by Generate.
type RunError struct {
	RunID   string
	Stage   string
	Message string
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed at %s: %s", e.RunID, e.Stage, e.Message)
}

// phase is one step of a run. Phases emit their own events.
type phase struct {
	name string
	run  func(o *Orchestrator, ctx context.Context, r *run) error
}

// phases run in order.
var phases = []phase{
	{StageTitle, (*Orchestrator).titlePhase},
	{StageRetrieval, (*Orchestrator).retrievalPhase},
	{StageAbstract, (*Orchestrator).abstractPhase},
	{StageSections, (*Orchestrator).sectionsPhase},
	{StageReferences, (*Orchestrator).referencesPhase},
	{StageComplete, (*Orchestrator).completePhase},
}

func (o *Orchestrator) execute(ctx context.Context, r *run) {
	defer close(r.events)

	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", r.id),
		attribute.Bool("use_rag", r.req.UseRAG),
	))
	defer span.End()

	log := o.logger.With("run_id", r.id)
	log.Info("run started", "topic", r.req.Topic, "use_rag", r.req.UseRAG, "limit", r.req.Limit)

	if err := r.emit(ctx, types.ProgressEvent{Status: types.StatusStart, Message: "Starting paper generation"}); err != nil {
		o.finish(ctx, "cancelled")
		return
	}

	for _, ph := range phases {
		if err := ctx.Err(); err != nil {
			log.Info("run cancelled", "before", ph.name)
			o.finish(ctx, "cancelled")
			return
		}
		start := time.Now()
		err := ph.run(o, ctx, r)
		o.phaseDuration.Record(ctx, telemetry.Milliseconds(time.Since(start)),
			metric.WithAttributes(attribute.String("phase", ph.name)))
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			log.Info("run cancelled", "during", ph.name)
			o.finish(ctx, "cancelled")
			return
		}
		stage := ph.name
		var f *generate.Failure
		if errors.As(err, &f) {
			stage = f.Stage
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("run failed", "stage", stage, "error", err)
		_ = r.emit(ctx, types.ProgressEvent{Status: types.StatusError, Stage: stage, Message: err.Error()})
		o.finish(ctx, "failed")
		return
	}
	log.Info("run complete", "duration", time.Since(r.started).Round(time.Millisecond),
		"references", len(r.references))
	o.finish(ctx, "complete")
}

func (o *Orchestrator) finish(ctx context.Context, outcome string) {
	o.runs.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (o *Orchestrator) titlePhase(ctx context.Context, r *run) error {
	switch {
	case r.req.SelectedTitle != "":
		r.title = r.req.SelectedTitle
	default:
		if t, ok := generate.TitleFromTopic(r.req.Topic); ok {
			r.title = t
			break
		}
		t, err := o.generator.GenerateTitle(ctx, r.req.Topic)
		if err != nil {
			return err
		}
		r.title = t
	}
	return r.emit(ctx, types.ProgressEvent{Status: types.StatusTitle, Title: r.title, Message: "Title selected"})
}

func (o *Orchestrator) retrievalPhase(ctx context.Context, r *run) error {
	if !r.req.UseRAG {
		if err := r.emit(ctx, types.ProgressEvent{Status: types.StatusRAGStart, Skipped: true, Message: "Literature retrieval disabled"}); err != nil {
			return err
		}
		return r.emit(ctx, types.ProgressEvent{Status: types.StatusRAGComplete, Skipped: true, Count: intPtr(0), Message: "Literature retrieval skipped"})
	}

	if err := r.emit(ctx, types.ProgressEvent{Status: types.StatusRAGStart, Message: "Searching for related literature"}); err != nil {
		return err
	}

	var papers []types.RetrievedPaper
	if o.retriever != nil {
		var err error
		papers, err = o.retriever.Search(ctx, r.req.Topic, r.req.Limit)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return err
		case errors.Is(err, retrieval.ErrUnavailable):
			papers = nil
		default:
			o.logger.Warn("retrieval failed, continuing without literature", "run_id", r.id, "error", err)
			papers = nil
		}
	}
	r.papers = papers
	r.literature = retrieval.BuildContext(papers, o.maxContextChars)
	r.ragUnavailable = len(papers) == 0

	ev := types.ProgressEvent{Status: types.StatusRAGComplete, Count: intPtr(len(papers))}
	if r.ragUnavailable {
		ev.Unavailable = true
		ev.Message = "No literature found, continuing without retrieval"
	} else {
		ev.Message = fmt.Sprintf("Retrieved %d papers", len(papers))
	}
	return r.emit(ctx, ev)
}

func (o *Orchestrator) abstractPhase(ctx context.Context, r *run) error {
	abstract, err := o.generator.GenerateAbstract(ctx, r.title, r.literature)
	if err != nil {
		return err
	}
	if strings.TrimSpace(abstract) == "" {
		o.logger.Warn("empty abstract, using fallback text", "run_id", r.id)
		abstract = fallbackText("abstract", r.title)
	}
	r.abstract = abstract
	return r.emit(ctx, types.ProgressEvent{Status: types.StatusAbstract, Message: "Abstract generated"})
}

func (o *Orchestrator) sectionsPhase(ctx context.Context, r *run) error {
	total := len(o.sections)
	for i, spec := range o.sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.emit(ctx, types.ProgressEvent{
			Status:  types.StatusSectionStart,
			Section: spec.Name,
			Index:   i + 1,
			Total:   total,
			Message: fmt.Sprintf("Writing %s (%d/%d)", spec.Heading, i+1, total),
		}); err != nil {
			return err
		}

		sec, err := o.generator.GenerateSection(ctx, spec, r.title, generate.SectionContext{
			Abstract:   r.abstract,
			Previous:   r.sections,
			Literature: r.literature,
			UserData:   r.req.UserData,
		})
		if err != nil {
			return err
		}
		if strings.TrimSpace(sec.Text) == "" {
			o.logger.Warn("empty section, using fallback text", "run_id", r.id, "section", spec.Name)
			sec = types.GeneratedSection{Name: spec.Name, Heading: spec.Heading, Fallback: true}
			sec.Text = fallbackText(strings.ToLower(spec.Heading), r.title)
			sec.WordCount = len(strings.Fields(sec.Text))
		}
		r.sections = append(r.sections, sec)
	}
	return nil
}

func (o *Orchestrator) referencesPhase(ctx context.Context, r *run) error {
	texts := make([]string, 0, len(r.sections)+1)
	texts = append(texts, r.abstract)
	for _, s := range r.sections {
		texts = append(texts, s.Text)
	}
	r.references = References(r.papers, texts...)
	return r.emit(ctx, types.ProgressEvent{
		Status:  types.StatusReferences,
		Count:   intPtr(len(r.references)),
		Message: fmt.Sprintf("%d references cited", len(r.references)),
	})
}

func (o *Orchestrator) completePhase(ctx context.Context, r *run) error {
	paper := r.assemble(o.generator.Provider())
	return r.emit(ctx, types.ProgressEvent{Status: types.StatusComplete, Paper: paper, Message: "Paper generation complete"})
}

// fallbackText stands in for content the provider failed to produce.
func fallbackText(what, title string) string {
	return fmt.Sprintf("The %s for %q could not be generated in this run and should be written manually.", what, title)
}

func intPtr(n int) *int { return &n }
