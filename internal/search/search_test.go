// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/paper-engine/internal/httputil"
	"github.com/pdiddy/paper-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

// --- mock provider ---

type mockProvider struct {
	name   string
	papers []types.RetrievedPaper
	err    error
	calls  atomic.Int32
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(_ context.Context, _ string, _ int) ([]types.RetrievedPaper, error) {
	m.calls.Add(1)
	return m.papers, m.err
}

// --- Deduplication ---

func TestDeduplicateByDOI(t *testing.T) {
	papers := []types.RetrievedPaper{
		{ID: "s2-1", Title: "Paper A", Source: "semantic_scholar", ExternalIDs: map[string]string{types.ExternalDOI: "10.1/ABC"}},
		{ID: "oa-1", Title: "Paper A (OpenAlex)", Source: "openalex", ExternalIDs: map[string]string{types.ExternalDOI: "10.1/abc"}},
		{ID: "s2-2", Title: "Paper B", Source: "semantic_scholar"},
	}

	deduped, removed := Deduplicate(papers)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if len(deduped) != 2 {
		t.Fatalf("len(deduped) = %d, want 2", len(deduped))
	}
	if deduped[0].ID != "s2-1" {
		t.Errorf("first occurrence should win, got %q", deduped[0].ID)
	}
	if deduped[0].Source != "semantic_scholar,openalex" {
		t.Errorf("Source = %q, want merged sources", deduped[0].Source)
	}
}

func TestDeduplicateByTitle(t *testing.T) {
	papers := []types.RetrievedPaper{
		{Title: "Attention Is All You Need", Year: 2017},
		{Title: "attention is all you need.", Abstract: "The dominant models...", CitationCount: 900},
	}

	deduped, removed := Deduplicate(papers)
	if removed != 1 || len(deduped) != 1 {
		t.Fatalf("got %d papers, %d removed; want 1 and 1", len(deduped), removed)
	}
	got := deduped[0]
	if got.Abstract != "The dominant models..." {
		t.Errorf("empty abstract should be filled from the duplicate, got %q", got.Abstract)
	}
	if got.CitationCount != 900 {
		t.Errorf("CitationCount = %d, want the larger count 900", got.CitationCount)
	}
	if got.Year != 2017 {
		t.Errorf("Year = %d, want 2017 kept from the first record", got.Year)
	}
}

func TestDeduplicateDistinctDOIsShareTitle(t *testing.T) {
	papers := []types.RetrievedPaper{
		{ID: "a", Title: "A Survey of Federated Learning", ExternalIDs: map[string]string{types.ExternalDOI: "10.1/one"}},
		{ID: "b", Title: "A survey of federated learning", ExternalIDs: map[string]string{types.ExternalDOI: "10.1/two"}},
	}
	deduped, removed := Deduplicate(papers)
	if removed != 0 || len(deduped) != 2 {
		t.Fatalf("got %d papers, %d removed; want 2 and 0", len(deduped), removed)
	}
}

func TestDeduplicateTitleIgnoredWhenIdentityDiffers(t *testing.T) {
	papers := []types.RetrievedPaper{
		{ID: "s2-1", Title: "Deep Residual Learning"},
		{ID: "W99", Title: "Deep residual learning"},
		{Title: "Deep Residual Learning!"},
	}
	deduped, _ := Deduplicate(papers)
	if len(deduped) != 3 {
		t.Fatalf("len(deduped) = %d, want 3: only identity-less records fall back to the title", len(deduped))
	}
}

func TestMergerDoesNotMutateInput(t *testing.T) {
	first := types.RetrievedPaper{ID: "1", ExternalIDs: map[string]string{types.ExternalDOI: "10.1/x"}}
	second := types.RetrievedPaper{ID: "2", ExternalIDs: map[string]string{
		types.ExternalDOI:   "10.1/x",
		types.ExternalArXiv: "2301.00001",
	}}

	m := NewMerger()
	m.Add(first)
	m.Add(second)

	if len(first.ExternalIDs) != 1 {
		t.Errorf("caller's ExternalIDs was written: %v", first.ExternalIDs)
	}
	got := m.Papers()[0].ExternalIDs
	if got[types.ExternalArXiv] != "2301.00001" {
		t.Errorf("merged ExternalIDs = %v, want the arXiv id filled in", got)
	}
}

func TestDeduplicateByArxivID(t *testing.T) {
	papers := []types.RetrievedPaper{
		{ID: "2301.07041", Title: "One title", ExternalIDs: map[string]string{types.ExternalArXiv: "2301.07041"}},
		{ID: "abc", Title: "A different title", ExternalIDs: map[string]string{types.ExternalArXiv: "2301.07041"}},
	}
	deduped, removed := Deduplicate(papers)
	if removed != 1 || len(deduped) != 1 {
		t.Fatalf("got %d papers, %d removed; want 1 and 1", len(deduped), removed)
	}
}

func TestMergerKeepsInsertionOrder(t *testing.T) {
	m := NewMerger()
	titles := []string{"Gamma", "Alpha", "Beta", "alpha"}
	var added int
	for _, title := range titles {
		if m.Add(types.RetrievedPaper{Title: title}) {
			added++
		}
	}
	if added != 3 || m.Len() != 3 || m.Removed() != 1 {
		t.Fatalf("added=%d len=%d removed=%d, want 3/3/1", added, m.Len(), m.Removed())
	}
	got := m.Papers()
	want := []string{"Gamma", "Alpha", "Beta"}
	for i, p := range got {
		if p.Title != want[i] {
			t.Errorf("papers[%d].Title = %q, want %q", i, p.Title, want[i])
		}
	}
}

func TestMergerUntitledWithoutIdentityIsKept(t *testing.T) {
	m := NewMerger()
	m.Add(types.RetrievedPaper{})
	m.Add(types.RetrievedPaper{})
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2 (no key to collapse on)", m.Len())
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Attention Is All You Need", "attention is all you need"},
		{"  BERT:   Pre-training of Deep   Bidirectional Transformers ", "bert pretraining of deep bidirectional transformers"},
		{"Graph Neural Networks: A Survey!", "graph neural networks a survey"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, def, max, want int
	}{
		{0, 10, 100, 10},
		{-5, 10, 100, 10},
		{25, 10, 100, 25},
		{500, 10, 100, 100},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.limit, tt.def, tt.max); got != tt.want {
			t.Errorf("clampLimit(%d, %d, %d) = %d, want %d", tt.limit, tt.def, tt.max, got, tt.want)
		}
	}
}

// --- Fanout ---

func TestFanoutMergesInProviderOrder(t *testing.T) {
	s2 := &mockProvider{name: "semantic_scholar", papers: []types.RetrievedPaper{
		{ID: "1", Title: "Shared Paper", ExternalIDs: map[string]string{types.ExternalDOI: "10.1/x"}},
		{ID: "2", Title: "Only In S2"},
	}}
	oa := &mockProvider{name: "openalex", papers: []types.RetrievedPaper{
		{ID: "W1", Title: "Shared Paper (OA)", ExternalIDs: map[string]string{types.ExternalDOI: "10.1/X"}},
		{ID: "W2", Title: "Only In OpenAlex"},
	}}
	f := &Fanout{Providers: []Provider{s2, oa}}

	papers, err := f.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var ids []string
	for _, p := range papers {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "1,2,W2" {
		t.Errorf("ids = %v, want [1 2 W2]", ids)
	}
	if f.Name() != "semantic_scholar+openalex" {
		t.Errorf("Name() = %q", f.Name())
	}
}

func TestFanoutTruncatesToLimit(t *testing.T) {
	var many []types.RetrievedPaper
	for i := 0; i < 8; i++ {
		many = append(many, types.RetrievedPaper{ID: string(rune('a' + i)), Title: "Title " + string(rune('a'+i))})
	}
	f := &Fanout{Providers: []Provider{&mockProvider{name: "m", papers: many}}}

	papers, err := f.Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 5 {
		t.Errorf("len = %d, want 5", len(papers))
	}
}

func TestFanoutPartialFailure(t *testing.T) {
	bad := &mockProvider{name: "bad", err: errors.New("boom")}
	good := &mockProvider{name: "good", papers: []types.RetrievedPaper{{ID: "1", Title: "Survivor"}}}
	f := &Fanout{Providers: []Provider{bad, good}}

	papers, err := f.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("partial failure should not error: %v", err)
	}
	if len(papers) != 1 || papers[0].Title != "Survivor" {
		t.Errorf("papers = %+v", papers)
	}
}

func TestFanoutAllFail(t *testing.T) {
	f := &Fanout{Providers: []Provider{
		&mockProvider{name: "a", err: errors.New("a down")},
		&mockProvider{name: "b", err: ErrMalformed},
	}}
	_, err := f.Search(context.Background(), "q", 10)
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("joined error should wrap ErrMalformed: %v", err)
	}
}

func TestFanoutNoProviders(t *testing.T) {
	f := &Fanout{}
	if _, err := f.Search(context.Background(), "q", 10); err == nil {
		t.Fatal("expected error with no providers")
	}
}

// --- Output ---

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable([]types.RetrievedPaper{
		{Title: "Short", Authors: []string{"Ada Lovelace", "Alan Turing"}, Year: 2021, CitationCount: 7, Source: "openalex"},
	}, &buf)
	out := buf.String()
	for _, want := range []string{"Short", "Ada Lovelace et al.", "2021", "openalex", "1 results"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	FormatTable(nil, &buf)
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("empty table output = %q", buf.String())
	}
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	in := []types.RetrievedPaper{{ID: "1", Title: "T", Year: 2020}}
	if err := FormatJSON(in, &buf); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	var out []types.RetrievedPaper
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(out) != 1 || out[0].Title != "T" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncate("héllo wörld", 8); got != "héllo..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}
