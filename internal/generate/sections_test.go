// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionsOrderAndParameters(t *testing.T) {
	got := Sections()
	require.Len(t, got, 6)

	want := []struct {
		name          string
		words         int
		draft, formal float64
		rag, userData bool
	}{
		{SectionIntroduction, 350, 0.7, 0.3, true, false},
		{SectionLiteratureReview, 400, 0.6, 0.3, true, false},
		{SectionMethodology, 350, 0.5, 0.2, false, true},
		{SectionResults, 300, 0.5, 0.2, false, true},
		{SectionDiscussion, 350, 0.7, 0.3, true, false},
		{SectionConclusion, 250, 0.7, 0.3, false, false},
	}
	for i, w := range want {
		s := got[i]
		assert.Equal(t, w.name, s.Name)
		assert.Equal(t, w.words, s.Words, s.Name)
		assert.Equal(t, w.draft, s.DraftTemperature, s.Name)
		assert.Equal(t, w.formal, s.FormalTemperature, s.Name)
		assert.Equal(t, w.rag, s.UseRetrieval, s.Name)
		assert.Equal(t, w.userData, s.UseUserData, s.Name)
		assert.NotEmpty(t, s.Heading)
		assert.Greater(t, s.MaxTokens(), s.Words)
	}
}

func TestSectionsReturnsCopy(t *testing.T) {
	got := Sections()
	got[0].Words = 1
	s, ok := LookupSection(SectionIntroduction)
	require.True(t, ok)
	assert.Equal(t, 350, s.Words)

	_, ok = LookupSection("appendix")
	assert.False(t, ok)
}
