// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/pdiddy/paper-engine/internal/format"
	"github.com/pdiddy/paper-engine/internal/retrieval"
	"github.com/pdiddy/paper-engine/internal/telemetry"
	"github.com/pdiddy/paper-engine/pkg/types"
)

const (
	// MinSurveyTopicChars is the shortest accepted survey topic.
	MinSurveyTopicChars = 3

	// MaxSurveyPapers caps the papers a survey is written from.
	MaxSurveyPapers = 20
)

// StageSurvey is reported in survey failures.
const StageSurvey = "survey"

// ErrNoLiterature reports a survey request with nothing to survey.
var ErrNoLiterature = errors.New("no literature found for topic")

// SurveyRequest asks for a literature survey. When Papers is empty the
// orchestrator retrieves Limit papers for Topic first.
type SurveyRequest struct {
	Topic  string                 `json:"topic"`
	Limit  int                    `json:"limit,omitempty"`
	Papers []types.RetrievedPaper `json:"papers,omitempty"`
}

// Validate trims the request, fills the default limit and checks it.
func (r SurveyRequest) Validate(defaultLimit int) (SurveyRequest, error) {
	r.Topic = strings.TrimSpace(r.Topic)
	if utf8.RuneCountInString(r.Topic) < MinSurveyTopicChars {
		return r, &ValidationError{Field: "topic", Reason: fmt.Sprintf("must be at least %d characters", MinSurveyTopicChars)}
	}
	if len(r.Papers) > MaxSurveyPapers {
		return r, &ValidationError{Field: "papers", Reason: fmt.Sprintf("at most %d papers", MaxSurveyPapers)}
	}
	if r.Limit == 0 {
		r.Limit = defaultLimit
	}
	if r.Limit < 1 || r.Limit > MaxSurveyPapers {
		return r, &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", MaxSurveyPapers)}
	}
	return r, nil
}

// Survey writes a literature survey for req. Papers supplied with the request
// are used as given; otherwise they are retrieved. Finding no papers yields
// ErrNoLiterature.
func (o *Orchestrator) Survey(ctx context.Context, req SurveyRequest) (*types.Survey, error) {
	req, err := req.Validate(o.limit)
	if err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.survey")
	defer span.End()
	start := time.Now()
	outcome := "failed"
	defer func() {
		o.phaseDuration.Record(ctx, telemetry.Milliseconds(time.Since(start)),
			metric.WithAttributes(attribute.String("phase", StageSurvey)))
		o.runs.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
			attribute.String("kind", StageSurvey), attribute.String("outcome", outcome)))
	}()

	papers := req.Papers
	if len(papers) == 0 {
		if papers, err = o.surveyPapers(ctx, req); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	literature := retrieval.BuildContext(papers, o.maxContextChars)
	text, err := o.generator.GenerateSurvey(ctx, req.Topic, literature)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	outcome = "complete"

	s := &types.Survey{
		Topic:       req.Topic,
		Title:       "Literature Survey: " + req.Topic,
		Text:        text,
		WordCount:   format.WordCount(text),
		Papers:      papers,
		GeneratedAt: o.now().UTC(),
	}
	if p := o.generator.Provider(); p != nil {
		s.Provider = p.Name()
	}
	o.logger.Info("survey generated", "topic", req.Topic, "papers", len(papers), "words", s.WordCount)
	return s, nil
}

func (o *Orchestrator) surveyPapers(ctx context.Context, req SurveyRequest) ([]types.RetrievedPaper, error) {
	if o.retriever == nil {
		return nil, ErrNoLiterature
	}
	papers, err := o.retriever.Search(ctx, req.Topic, req.Limit)
	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil && !errors.Is(err, retrieval.ErrUnavailable):
		o.logger.Warn("survey retrieval failed", "topic", req.Topic, "error", err)
	}
	if len(papers) == 0 {
		return nil, ErrNoLiterature
	}
	return papers, nil
}
