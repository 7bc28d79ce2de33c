// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/paper-engine/pkg/types"
)

func TestSteps(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  []Step
	}{
		{
			name:  "all four rungs",
			topic: "Federated Learning for Medical Imaging",
			want: []Step{
				{StepExact, "Federated Learning for Medical Imaging"},
				{StepSimplified, "federated learning medical imaging"},
				{StepMinimal, "federated learning medical"},
				{StepBroad, "medical imaging"},
			},
		},
		{
			name:  "stopword-heavy topic",
			topic: "Investigating the efficacy of vitamin D in preventing respiratory infections",
			want: []Step{
				{StepExact, "Investigating the efficacy of vitamin D in preventing respiratory infections"},
				{StepSimplified, "vitamin d respiratory infections"},
				{StepMinimal, "vitamin respiratory infections"},
				{StepBroad, "respiratory infections"},
			},
		},
		{
			name:  "duplicates collapse",
			topic: "quantum annealing",
			want:  []Step{{StepExact, "quantum annealing"}},
		},
		{
			name:  "whitespace only",
			topic: "   ",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Steps(tt.topic))
		})
	}
}

func TestStepsNamesFollowLadderOrder(t *testing.T) {
	steps := Steps("Graph neural networks for drug discovery pipelines")
	var names []string
	for _, s := range steps {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{StepExact, StepSimplified, StepMinimal, StepBroad}, names)
}

func TestBuildContext(t *testing.T) {
	papers := []types.RetrievedPaper{
		{
			Title:         "Federated Averaging",
			Authors:       []string{"A One", "B Two", "C Three", "D Four"},
			Year:          2017,
			Venue:         "AISTATS",
			CitationCount: 5000,
			Abstract:      strings.Repeat("x", 600),
		},
		{Title: "Untitled Venue", Authors: []string{"Solo Author"}},
	}

	got := BuildContext(papers, 0)

	assert.Contains(t, got, "[1] Federated Averaging\n")
	assert.Contains(t, got, "Authors: A One, B Two, C Three et al.\n")
	assert.Contains(t, got, "Year: 2017\n")
	assert.Contains(t, got, "Citations: 5000\n")
	assert.Contains(t, got, "Abstract: "+strings.Repeat("x", 500)+"...\n")
	assert.NotContains(t, got, strings.Repeat("x", 501))
	assert.Contains(t, got, "[2] Untitled Venue\n")
	assert.Contains(t, got, "Venue: Unknown\n")
	assert.Contains(t, got, "Year: n.d.\n")
}

func TestBuildContextCap(t *testing.T) {
	var papers []types.RetrievedPaper
	for i := 0; i < 20; i++ {
		papers = append(papers, types.RetrievedPaper{
			Title:    "A reasonably long paper title for context budgeting",
			Authors:  []string{"Author"},
			Abstract: strings.Repeat("word ", 90),
		})
	}

	got := BuildContext(papers, 4000)
	assert.LessOrEqual(t, len(got), 4000)
	assert.Contains(t, got, "[1] ")
	assert.NotContains(t, got, "[20] ", "later entries are dropped whole")

	tiny := BuildContext(papers[:1], 50)
	assert.LessOrEqual(t, len(tiny), 50)
	assert.True(t, strings.HasPrefix(tiny, "[1] "))
}

func TestBuildContextEmpty(t *testing.T) {
	assert.Equal(t, "", BuildContext(nil, 100))
}

func TestAuthorList(t *testing.T) {
	assert.Equal(t, "Unknown", AuthorList(nil))
	assert.Equal(t, "A, B, C", AuthorList([]string{"A", "B", "C"}))
	assert.Equal(t, "A, B, C et al.", AuthorList([]string{"A", "B", "C", "D"}))
}
