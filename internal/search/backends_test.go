// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// serve starts an httptest server returning body with status and points
// *base at it for the duration of the test.
func serve(t *testing.T, base *string, status int, contentType, body string, capture **http.Request) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			*capture = r
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)

	old := *base
	*base = ts.URL
	t.Cleanup(func() { *base = old })
	return ts
}

// --- Semantic Scholar ---

const semanticBody = `{"total":2,"offset":0,"data":[
 {"paperId":"abc","title":"Federated Learning for Medical Imaging","abstract":" Privacy preserving training. ",
  "year":2021,"venue":"MICCAI","citationCount":42,"url":"https://s2/abc",
  "authors":[{"name":"Ada Lovelace"},{"name":""},{"name":"Alan Turing"}],
  "externalIds":{"DOI":"10.1000/fl","ArXiv":"2101.00001"}},
 {"paperId":"untitled","title":"   ","authors":[]}
]}`

func TestSemanticSearchParsesRecords(t *testing.T) {
	var req *http.Request
	ts := serve(t, &semanticAPIBase, http.StatusOK, "application/json", semanticBody, &req)

	b := &SemanticScholarBackend{Client: ts.Client(), APIKey: "k-123", UserAgent: "paper-engine/test"}
	papers, err := b.Search(context.Background(), "federated learning", 15)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := req.URL.Query()
	if q.Get("query") != "federated learning" || q.Get("limit") != "15" {
		t.Errorf("query params = %v", q)
	}
	if !strings.Contains(q.Get("fields"), "externalIds") {
		t.Errorf("fields = %q, missing externalIds", q.Get("fields"))
	}
	if req.Header.Get("x-api-key") != "k-123" {
		t.Errorf("x-api-key = %q", req.Header.Get("x-api-key"))
	}
	if req.Header.Get("User-Agent") != "paper-engine/test" {
		t.Errorf("User-Agent = %q", req.Header.Get("User-Agent"))
	}

	if len(papers) != 1 {
		t.Fatalf("len(papers) = %d, want 1 (untitled record skipped)", len(papers))
	}
	p := papers[0]
	if p.ID != "abc" || p.Year != 2021 || p.Venue != "MICCAI" || p.CitationCount != 42 {
		t.Errorf("paper = %+v", p)
	}
	if p.Abstract != "Privacy preserving training." {
		t.Errorf("Abstract = %q", p.Abstract)
	}
	if len(p.Authors) != 2 {
		t.Errorf("Authors = %v, want blank names dropped", p.Authors)
	}
	if p.DOI() != "10.1000/fl" || p.ExternalIDs["ArXiv"] != "2101.00001" {
		t.Errorf("ExternalIDs = %v", p.ExternalIDs)
	}
	if p.Source != "semantic_scholar" {
		t.Errorf("Source = %q", p.Source)
	}
}

func TestSemanticSearchNoAPIKeyHeader(t *testing.T) {
	var req *http.Request
	ts := serve(t, &semanticAPIBase, http.StatusOK, "application/json", `{"data":[]}`, &req)

	b := &SemanticScholarBackend{Client: ts.Client()}
	papers, err := b.Search(context.Background(), "q", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("len = %d, want 0", len(papers))
	}
	if req.Header.Get("x-api-key") != "" {
		t.Errorf("x-api-key should be absent")
	}
	if req.URL.Query().Get("limit") != "10" {
		t.Errorf("default limit = %q, want 10", req.URL.Query().Get("limit"))
	}
}

func TestSemanticSearchErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
	}{
		{"server error", http.StatusInternalServerError, `oops`, false},
		{"throttled after retries", http.StatusTooManyRequests, `{}`, false},
		{"invalid JSON", http.StatusOK, `{not json`, true},
		{"missing data array", http.StatusOK, `{"total":0}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := serve(t, &semanticAPIBase, tt.status, "application/json", tt.body, nil)
			b := &SemanticScholarBackend{Client: ts.Client()}
			_, err := b.Search(context.Background(), "q", 5)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrMalformed); got != tt.malformed {
				t.Errorf("errors.Is(err, ErrMalformed) = %v, want %v (err=%v)", got, tt.malformed, err)
			}
			var se *StatusError
			if !tt.malformed && !errors.As(err, &se) {
				t.Errorf("want *StatusError, got %T: %v", err, err)
			}
		})
	}
}

func TestSemanticSearchEmptyQuery(t *testing.T) {
	b := &SemanticScholarBackend{Client: http.DefaultClient}
	if _, err := b.Search(context.Background(), "   ", 5); err == nil {
		t.Fatal("expected error for empty query")
	}
}

// --- OpenAlex ---

const openAlexBody = `{"results":[
 {"id":"https://openalex.org/W1","title":"Graph Neural Networks: A Survey","doi":"https://doi.org/10.5555/gnn",
  "publication_year":2020,"cited_by_count":310,
  "authorships":[{"author":{"display_name":"Grace Hopper"}}],
  "abstract_inverted_index":{"Graphs":[0],"are":[1],"everywhere.":[2]},
  "primary_location":{"landing_page_url":"https://example.org/gnn","source":{"display_name":"IEEE TNNLS"}}},
 {"id":"https://openalex.org/W2","title":"No DOI Work","doi":"","primary_location":{"source":null}},
 {"id":"https://openalex.org/W3","title":""}
]}`

func TestOpenAlexSearchParsesRecords(t *testing.T) {
	var req *http.Request
	ts := serve(t, &openAlexSearchBase, http.StatusOK, "application/json", openAlexBody, &req)

	b := &OpenAlexBackend{Client: ts.Client(), Email: "dev@example.org"}
	papers, err := b.Search(context.Background(), "graph neural networks", 500)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := req.URL.Query()
	if q.Get("search") != "graph neural networks" {
		t.Errorf("search = %q", q.Get("search"))
	}
	if q.Get("per_page") != "200" {
		t.Errorf("per_page = %q, want clamped 200", q.Get("per_page"))
	}
	if q.Get("mailto") != "dev@example.org" {
		t.Errorf("mailto = %q", q.Get("mailto"))
	}

	if len(papers) != 2 {
		t.Fatalf("len(papers) = %d, want 2", len(papers))
	}
	p := papers[0]
	if p.DOI() != "10.5555/gnn" {
		t.Errorf("DOI = %q, want prefix stripped", p.DOI())
	}
	if p.Abstract != "Graphs are everywhere." {
		t.Errorf("Abstract = %q", p.Abstract)
	}
	if p.Venue != "IEEE TNNLS" || p.CitationCount != 310 || p.Year != 2020 {
		t.Errorf("paper = %+v", p)
	}
	if p.URL != "https://example.org/gnn" {
		t.Errorf("URL = %q", p.URL)
	}
	if papers[1].Venue != "" || papers[1].ExternalIDs != nil {
		t.Errorf("second paper = %+v", papers[1])
	}
}

func TestOpenAlexSearchErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
	}{
		{"bad request", http.StatusBadRequest, `{}`, false},
		{"missing results", http.StatusOK, `{"meta":{}}`, true},
		{"truncated JSON", http.StatusOK, `{"results":[`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := serve(t, &openAlexSearchBase, tt.status, "application/json", tt.body, nil)
			b := &OpenAlexBackend{Client: ts.Client()}
			_, err := b.Search(context.Background(), "q", 5)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrMalformed); got != tt.malformed {
				t.Errorf("errors.Is(err, ErrMalformed) = %v, want %v", got, tt.malformed)
			}
		})
	}
}

func TestReconstructAbstract(t *testing.T) {
	got := reconstructAbstract(map[string][]int{
		"the": {0, 3}, "cat": {1}, "saw": {2}, "dog": {4},
	})
	if got != "the cat saw the dog" {
		t.Errorf("reconstructAbstract = %q", got)
	}
	if reconstructAbstract(nil) != "" {
		t.Error("nil index should give empty abstract")
	}
}

// --- arXiv ---

const arxivBody = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Federated
      Learning at Scale</title>
    <summary>  We study federated learning.  </summary>
    <published>2023-01-17T18:00:00Z</published>
    <arxiv:doi>10.48550/arXiv.2301.07041</arxiv:doi>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
  </entry>
  <entry>
    <id>not-an-arxiv-url</id>
    <title>Skipped</title>
  </entry>
</feed>`

func TestArxivSearchParsesFeed(t *testing.T) {
	var req *http.Request
	ts := serve(t, &arxivAPIBase, http.StatusOK, "application/atom+xml", arxivBody, &req)

	b := &ArxivBackend{Client: ts.Client()}
	papers, err := b.Search(context.Background(), "federated learning", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := req.URL.Query()
	if q.Get("search_query") != "all:federated AND all:learning" {
		t.Errorf("search_query = %q", q.Get("search_query"))
	}
	if q.Get("max_results") != "5" {
		t.Errorf("max_results = %q", q.Get("max_results"))
	}

	if len(papers) != 1 {
		t.Fatalf("len(papers) = %d, want 1", len(papers))
	}
	p := papers[0]
	if p.ID != "2301.07041" {
		t.Errorf("ID = %q, want version suffix stripped", p.ID)
	}
	if p.Title != "Federated Learning at Scale" {
		t.Errorf("Title = %q, want whitespace collapsed", p.Title)
	}
	if p.Abstract != "We study federated learning." {
		t.Errorf("Abstract = %q", p.Abstract)
	}
	if p.Year != 2023 || p.Venue != "arXiv" || len(p.Authors) != 2 {
		t.Errorf("paper = %+v", p)
	}
	if p.DOI() != "10.48550/arXiv.2301.07041" {
		t.Errorf("DOI = %q", p.DOI())
	}
}

func TestArxivSearchMalformed(t *testing.T) {
	ts := serve(t, &arxivAPIBase, http.StatusOK, "application/atom+xml", `<feed><entry>`, nil)
	b := &ArxivBackend{Client: ts.Client()}
	_, err := b.Search(context.Background(), "q", 5)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"http://arxiv.org/abs/hep-th/9901001v3", "hep-th/9901001"},
		{"https://example.org/paper", ""},
	}
	for _, tt := range tests {
		if got := extractArxivID(tt.in); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildArxivQuery(t *testing.T) {
	if got := buildArxivQuery("  "); got != "" {
		t.Errorf("empty query = %q", got)
	}
	if got := buildArxivQuery("deep learning"); got != "all:deep AND all:learning" {
		t.Errorf("buildArxivQuery = %q", got)
	}
}
