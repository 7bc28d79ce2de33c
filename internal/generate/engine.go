// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate writes paper text with a text-generation provider. Each
// section takes two provider round-trips: a draft at a higher temperature,
// then a formal rewrite at a lower one. The rewrite is sanitized and
// formatted deterministically before it is returned.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/pdiddy/paper-engine/internal/format"
	"github.com/pdiddy/paper-engine/internal/telemetry"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// Pass names.
const (
	PassDraft     = "draft"
	PassFormalize = "formalize"
	PassTitle     = "title"
)

// Failure reports a provider call that exhausted its retries or failed
// permanently.
type Failure struct {
	Stage    string
	Pass     string
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("generating %s (%s pass) failed after %d attempt(s): %v", f.Stage, f.Pass, f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// RetryPolicy bounds provider retries.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries twice starting at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// RetryPolicyFrom reads the policy from cfg, filling unset fields with
// defaults.
func RetryPolicyFrom(cfg types.GenerationConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.MaxRetries >= 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryBaseDelay > 0 {
		p.BaseDelay = cfg.RetryBaseDelay
	}
	if cfg.RetryMaxDelay > 0 {
		p.MaxDelay = cfg.RetryMaxDelay
	}
	return p
}

// SectionContext is what a section prompt may draw on besides the title.
type SectionContext struct {
	// Abstract is the generated abstract, if any.
	Abstract string

	// Previous holds the sections generated so far, in order.
	Previous []types.GeneratedSection

	// Literature is the numbered context from retrieval. Only sections with
	// UseRetrieval see it.
	Literature string

	// UserData is caller-supplied detail. Only sections with UseUserData see
	// it.
	UserData *types.UserData
}

// pass is one provider round-trip of section composition.
type pass struct {
	name        string
	tmpl        *template.Template
	temperature func(SectionSpec) float64
}

// passes run in order; each sees the previous pass's output as Draft.
var passes = []pass{
	{PassDraft, draftTmpl, func(s SectionSpec) float64 { return s.DraftTemperature }},
	{PassFormalize, formalizeTmpl, func(s SectionSpec) float64 { return s.FormalTemperature }},
}

// Engine composes titles, abstracts and sections. It holds no per-run state
// and is safe for concurrent use.
type Engine struct {
	provider Provider
	retry    RetryPolicy
	logger   *slog.Logger
	tracer   trace.Tracer

	callDuration metric.Float64Histogram
	retries      metric.Int64Counter
}

// NewEngine returns an Engine calling provider.
func NewEngine(provider Provider, retry RetryPolicy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	meter := telemetry.Meter("paper-engine/generate")
	dur, _ := meter.Float64Histogram("generate.call.duration",
		metric.WithDescription("Time spent in provider calls including retries (ms)"),
		metric.WithUnit("ms"),
	)
	retries, _ := meter.Int64Counter("generate.call.retries",
		metric.WithDescription("Provider calls retried after a transient failure"),
	)
	return &Engine{
		provider:     provider,
		retry:        retry,
		logger:       logger,
		tracer:       telemetry.Tracer("paper-engine/generate"),
		callDuration: dur,
		retries:      retries,
	}
}

// Provider returns the engine's provider.
func (e *Engine) Provider() Provider { return e.provider }

// GenerateSection writes one section of the paper titled title.
func (e *Engine) GenerateSection(ctx context.Context, spec SectionSpec, title string, sc SectionContext) (types.GeneratedSection, error) {
	text, err := e.compose(ctx, spec, title, sc)
	if err != nil {
		return types.GeneratedSection{}, err
	}
	return types.GeneratedSection{
		Name:      spec.Name,
		Heading:   spec.Heading,
		Text:      text,
		WordCount: format.WordCount(text),
	}, nil
}

// GenerateAbstract writes the abstract, grounded in literature when given.
func (e *Engine) GenerateAbstract(ctx context.Context, title, literature string) (string, error) {
	return e.compose(ctx, AbstractSpec, title, SectionContext{Literature: literature})
}

func (e *Engine) compose(ctx context.Context, spec SectionSpec, title string, sc SectionContext) (string, error) {
	ctx, span := e.tracer.Start(ctx, "generate."+spec.Name)
	defer span.End()

	title = SanitizeUserInput(title)
	data := promptData{
		Title:    title,
		Heading:  spec.Heading,
		Words:    spec.Words,
		Guidance: spec.Guidance,
		Summary:  paperSummary(title, sc),
	}
	if spec.UseRetrieval {
		data.Literature = SanitizeUserInput(sc.Literature)
	}
	if spec.UseUserData {
		data.UserData = SanitizeUserInput(userDataFor(spec.Name, sc.UserData))
	}

	text := ""
	for _, p := range passes {
		data.Draft = text
		prompt, err := render(p.tmpl, data)
		if err != nil {
			return "", fmt.Errorf("rendering %s prompt for %s: %w", p.name, spec.Name, err)
		}
		text, err = e.call(ctx, spec.Name, p.name, Request{
			Prompt:      prompt,
			Temperature: p.temperature(spec),
			MaxTokens:   spec.MaxTokens(),
		})
		if err != nil {
			span.RecordError(err)
			return "", err
		}
	}

	return format.Format(SanitizeSection(spec, text)), nil
}

// call makes one provider call with retries. Transient failures back off
// exponentially; anything else, or a cancelled context, stops at once.
func (e *Engine) call(ctx context.Context, stage, passName string, req Request) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retry.BaseDelay
	b.MaxInterval = e.retry.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.1

	start := time.Now()
	attempts := 0
	text, err := backoff.Retry(ctx, func() (string, error) {
		attempts++
		out, err := e.provider.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil || !Transient(err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.retry.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, d time.Duration) {
			e.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
			e.logger.Warn("provider call failed, retrying",
				"stage", stage, "pass", passName, "attempt", attempts, "delay", d, "error", err)
		}),
	)

	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	e.callDuration.Record(ctx, telemetry.Milliseconds(time.Since(start)), metric.WithAttributes(
		attribute.String("provider", e.provider.Name()),
		attribute.String("stage", stage),
		attribute.String("pass", passName),
		attribute.String("outcome", outcome),
	))

	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		return "", &Failure{Stage: stage, Pass: passName, Attempts: attempts, Err: err}
	}
	e.logger.Debug("provider call", "stage", stage, "pass", passName, "attempts", attempts,
		"words", format.WordCount(text))
	return text, nil
}

// userDataFor assembles the caller detail relevant to section.
func userDataFor(section string, u *types.UserData) string {
	if u.IsZero() {
		return ""
	}
	var parts []string
	switch section {
	case SectionMethodology:
		if u.Methodology != "" {
			parts = append(parts, u.Methodology)
		}
		if d := u.Dataset; d.Name != "" {
			line := "Dataset: " + d.Name
			if d.Size != "" {
				line += ", " + d.Size
			}
			if d.Details != "" {
				line += ". " + d.Details
			}
			parts = append(parts, line)
		}
	case SectionResults:
		if u.Results != "" {
			parts = append(parts, u.Results)
		}
		if u.Findings != "" {
			parts = append(parts, "Key observations: "+u.Findings)
		}
	}
	return strings.Join(parts, "\n\n")
}
