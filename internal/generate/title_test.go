// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleFromTopic(t *testing.T) {
	got, ok := TitleFromTopic("  Federated Learning for   Medical Imaging ")
	assert.True(t, ok)
	assert.Equal(t, "Federated Learning for Medical Imaging", got)

	_, ok = TitleFromTopic(strings.Repeat("word ", TitleWordLimit+1))
	assert.False(t, ok)

	_, ok = TitleFromTopic("   ")
	assert.False(t, ok)
}

func TestFallbackTitle(t *testing.T) {
	assert.Equal(t, "Short topic", FallbackTitle("Short topic"))

	long := strings.Repeat("federated ", 20)
	got := FallbackTitle(long)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), FallbackTitleChars)
	assert.False(t, strings.HasSuffix(got, " "))
	assert.True(t, strings.HasSuffix(got, "federated"))
}

func TestCleanTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{`"Privacy-Preserving Federated Learning."`, "Privacy-Preserving Federated Learning"},
		{"Title: Robust Aggregation", "Robust Aggregation"},
		{"**Paper Title: Robust Aggregation**", "Robust Aggregation"},
		{"\n\n  “Curly Quoted”  \nsecond line", "Curly Quoted"},
		{"  \n ", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, cleanTitle(tc.in), tc.in)
	}
}

func TestGenerateTitle(t *testing.T) {
	p := &stubProvider{replies: replies(`Title: "Secure Aggregation in Clinical Federated Learning"`)}
	got, err := newTestEngine(p).GenerateTitle(context.Background(), "a long topic description")
	require.NoError(t, err)
	assert.Equal(t, "Secure Aggregation in Clinical Federated Learning", got)

	calls := p.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, TitleTemperature, calls[0].Temperature)
	assert.Contains(t, calls[0].Prompt, "a long topic description")
}

func TestGenerateTitleUnusableFallsBack(t *testing.T) {
	p := &stubProvider{replies: replies(`"" `)}
	got, err := newTestEngine(p).GenerateTitle(context.Background(), "privacy in hospitals")
	require.NoError(t, err)
	assert.Equal(t, "privacy in hospitals", got)
}

func TestGenerateTitleFailure(t *testing.T) {
	p := &stubProvider{replies: []stubReply{{err: &StatusError{Provider: "stub", Code: http.StatusForbidden}}}}
	_, err := newTestEngine(p).GenerateTitle(context.Background(), "topic")

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, PassTitle, f.Stage)
}

func TestTitleOptions(t *testing.T) {
	reply := "Here are the titles:\n1. First Title\n2) \"Second Title\"\n3: Third Title.\nnot numbered\n4 - First title\n"
	p := &stubProvider{replies: replies(reply)}

	got, err := newTestEngine(p).TitleOptions(context.Background(), "federated learning in clinics", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"First Title", "Second Title", "Third Title"}, got)
	assert.Contains(t, p.calls()[0].Prompt, "3. [Title]")
}

func TestTitleOptionsPadsShortReply(t *testing.T) {
	p := &stubProvider{replies: replies("1. Only One")}
	got, err := newTestEngine(p).TitleOptions(context.Background(), "federated learning in clinics", 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "Only One", got[0])
	assert.Equal(t, "federated learning in clinics", got[1])
	assert.Equal(t, "A Study of federated learning in clinics", got[2])
}

func TestTitleOptionsClampsCount(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "%d. Title Number %d\n", i, i)
	}
	p := &stubProvider{replies: replies(b.String())}
	got, err := newTestEngine(p).TitleOptions(context.Background(), "topic words here", 50)
	require.NoError(t, err)
	assert.Len(t, got, MaxTitleOptions)
	assert.Equal(t, MaxTitleOptions*titleOptionMaxTokens, p.calls()[0].MaxTokens)

	p = &stubProvider{replies: replies("1. A")}
	got, err = newTestEngine(p).TitleOptions(context.Background(), "topic words here", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got)
}

func TestTitleOptionsFailure(t *testing.T) {
	p := &stubProvider{replies: []stubReply{{err: ErrEmptyOutput}}}
	got, err := newTestEngine(p).TitleOptions(context.Background(), "topic words here", 3)
	require.ErrorIs(t, err, ErrEmptyOutput)
	assert.Nil(t, got)
	assert.Len(t, p.calls(), fastRetry.MaxRetries+1)
}
