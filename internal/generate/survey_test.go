// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const surveyReply = `Here is the survey:
## Introduction
We examine **federated learning**. Moreover, it matters.

Summary of Key Papers and Their Contributions
- Smith et al. (2021) propose *FedAvg*.
1. Lee (2022) extends it.

Conclusion
The field is growing. Trailing`

func TestGenerateSurvey(t *testing.T) {
	p := &stubProvider{replies: replies(surveyReply)}
	got, err := newTestEngine(p).GenerateSurvey(context.Background(), "Federated Learning", "[1] FedAvg\nAuthors: Smith")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "Introduction\nThis research examines federated learning. It matters."), got)
	assert.Contains(t, got, "\nSummary of Key Papers and Their Contributions\n")
	assert.Contains(t, got, "Smith et al. (2021) propose FedAvg.")
	assert.Contains(t, got, "Lee (2022) extends it.")
	assert.True(t, strings.HasSuffix(got, "The field is growing."), got)
	for _, marker := range []string{"#", "*", "- ", "1. "} {
		assert.NotContains(t, got, marker)
	}

	calls := p.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, `"Federated Learning"`)
	assert.Contains(t, calls[0].Prompt, "[1] FedAvg")
	assert.Equal(t, SurveyTemperature, calls[0].Temperature)
	assert.Equal(t, surveyMaxTokens, calls[0].MaxTokens)
}

func TestGenerateSurveyEmptyAfterCleanup(t *testing.T) {
	p := &stubProvider{replies: replies("Here is the survey:")}
	_, err := newTestEngine(p).GenerateSurvey(context.Background(), "Federated Learning", "[1] FedAvg")
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestCleanSurveyKeepsSnakeCase(t *testing.T) {
	assert.Equal(t, "The field_name column and the bold term stay.", CleanSurvey("The field_name column and the _bold_ term stay."))
}
