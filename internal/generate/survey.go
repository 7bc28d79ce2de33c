// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pdiddy/paper-engine/internal/format"
)

// PassSurvey names the single survey pass.
const PassSurvey = "survey"

const (
	// SurveyWords is the target length of a survey.
	SurveyWords = 900

	// SurveyTemperature is the sampling temperature for surveys.
	SurveyTemperature = 0.7

	surveyMaxTokens = 1400
)

var (
	listMarker = regexp.MustCompile(`(?m)^[ \t]*(?:[-*•]|\d{1,2}[.)])[ \t]+`)
	emphasis   = regexp.MustCompile(`\*([^*\n]+)\*`)
	underscore = regexp.MustCompile(`(^|[\s(])_([^_\n]+)_`)
)

// GenerateSurvey writes a literature survey on topic from the numbered
// literature context. The five section names stay on their own lines; list
// markers and emphasis are removed.
func (e *Engine) GenerateSurvey(ctx context.Context, topic, literature string) (string, error) {
	ctx, span := e.tracer.Start(ctx, "generate.survey")
	defer span.End()

	prompt, err := render(surveyTmpl, struct {
		Topic      string
		Literature string
		Words      int
	}{SanitizeUserInput(topic), SanitizeUserInput(literature), SurveyWords})
	if err != nil {
		return "", fmt.Errorf("rendering survey prompt: %w", err)
	}
	raw, err := e.call(ctx, PassSurvey, PassSurvey, Request{
		Prompt:      prompt,
		Temperature: SurveyTemperature,
		MaxTokens:   surveyMaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	text := CleanSurvey(raw)
	if text == "" {
		return "", &Failure{Stage: PassSurvey, Pass: PassSurvey, Attempts: 1, Err: ErrEmptyOutput}
	}
	return text, nil
}

// CleanSurvey strips markdown from survey text. Unlike Sanitize it keeps a
// leading "Introduction" heading.
func CleanSurvey(text string) string {
	text = chatPreamble.ReplaceAllString(text, "")
	text = removeFiller(text)
	text = rewriteFirstPerson(text)
	text = format.Format(text)
	text = listMarker.ReplaceAllString(text, "")
	text = emphasis.ReplaceAllString(text, "$1")
	text = underscore.ReplaceAllString(text, "$1$2")
	text = multiSpace.ReplaceAllString(text, " ")
	return CompleteSentence(text)
}
