// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-engine/pkg/types"
)

func TestCitedNumbers(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  []int
	}{
		{"single", []string{"As shown in [2]."}, []int{2}},
		{"list", []string{"Prior work [3, 1; 5]."}, []int{1, 3, 5}},
		{"range", []string{"Several studies [2-4] and [6–7]."}, []int{2, 3, 4, 6, 7}},
		{"across texts", []string{"[1]", "[1] and [9]"}, []int{1, 9}},
		{"not citations", []string{"See [Table 1], [a], [0] and [5-2]."}, []int{}},
		{"none", []string{"plain text"}, []int{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, citedNumbers(tc.texts...))
		})
	}
}

func TestReferencesCitedSubsetOnly(t *testing.T) {
	papers := samplePapers(5)
	refs := References(papers, "Intro cites [4] and [2].", "Later [2] again and [8] which does not exist.")

	require.Len(t, refs, 2)
	assert.Equal(t, 2, refs[0].Number)
	assert.Equal(t, "p2", refs[0].Paper.ID)
	assert.Equal(t, 4, refs[1].Number)
	assert.True(t, strings.HasPrefix(refs[1].Citation, "[4] "))

	assert.Empty(t, References(nil, "[1] [2]"))
}

func TestIEEE(t *testing.T) {
	tests := []struct {
		name  string
		paper types.RetrievedPaper
		want  string
	}{
		{
			name: "full",
			paper: types.RetrievedPaper{
				Title:       "Federated Learning for Medical Imaging.",
				Authors:     []string{"A. One", "B. Two", "C. Three", "D. Four"},
				Venue:       "Nature Medicine",
				Year:        2021,
				ExternalIDs: map[string]string{types.ExternalDOI: "10.1038/x"},
			},
			want: `[1] A. One, B. Two, C. Three et al., "Federated Learning for Medical Imaging," Nature Medicine, 2021. DOI: 10.1038/x`,
		},
		{
			name:  "minimal",
			paper: types.RetrievedPaper{Title: "Untitled Work"},
			want:  `[1] "Untitled Work," n.d.`,
		},
		{
			name:  "three authors no venue",
			paper: types.RetrievedPaper{Title: "T", Authors: []string{"A", "B", "C"}, Year: 2019},
			want:  `[1] A, B, C, "T," 2019.`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IEEE(1, tc.paper))
		})
	}
}

func TestBibTeX(t *testing.T) {
	refs := []types.Reference{
		{Number: 1, Paper: types.RetrievedPaper{Title: "First", Authors: []string{"Ada Lovelace", "Alan Turing"}, Year: 2021, Venue: "MICCAI",
			ExternalIDs: map[string]string{types.ExternalDOI: "10.1/a"}}},
		{Number: 2, Paper: types.RetrievedPaper{Title: "Second", Authors: []string{"Ada Lovelace"}, Year: 2021}},
		{Number: 3, Paper: types.RetrievedPaper{Title: "Third"}},
	}
	got := BibTeX(refs)

	assert.Contains(t, got, "@article{Lovelace2021,\n")
	assert.Contains(t, got, "  author = {Ada Lovelace and Alan Turing},\n")
	assert.Contains(t, got, "  doi = {10.1/a},\n")
	assert.Contains(t, got, "@misc{Lovelace2021a,\n")
	assert.Contains(t, got, "@misc{refnd,\n")
	assert.Equal(t, 3, strings.Count(got, "\n}\n"))
}
