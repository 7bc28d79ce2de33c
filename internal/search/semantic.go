// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-engine/internal/httputil"
	"github.com/pdiddy/paper-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,year,citationCount,venue,externalIds,url"

// SemanticScholarBackend queries the Semantic Scholar Graph API.
type SemanticScholarBackend struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return "semantic_scholar" }

// Search returns up to limit papers for query.
func (b *SemanticScholarBackend) Search(ctx context.Context, query string, limit int) ([]types.RetrievedPaper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	params := url.Values{
		"query":  {query},
		"limit":  {strconv.Itoa(clampLimit(limit, 10, 100))},
		"fields": {semanticFields},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: "Semantic Scholar", Code: resp.StatusCode}
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w: %v", ErrMalformed, err)
	}
	if sr.Data == nil {
		return nil, fmt.Errorf("Semantic Scholar response has no data array: %w", ErrMalformed)
	}

	var papers []types.RetrievedPaper
	for _, sp := range *sr.Data {
		if strings.TrimSpace(sp.Title) == "" {
			continue
		}
		p := types.RetrievedPaper{
			ID:            sp.PaperID,
			Title:         strings.TrimSpace(sp.Title),
			Abstract:      strings.TrimSpace(sp.Abstract),
			Year:          sp.Year,
			Venue:         sp.Venue,
			CitationCount: sp.CitationCount,
			URL:           sp.URL,
			Source:        "semantic_scholar",
		}
		for _, a := range sp.Authors {
			if a.Name != "" {
				p.Authors = append(p.Authors, a.Name)
			}
		}
		ids := map[string]string{}
		if sp.ExternalIDs.DOI != "" {
			ids[types.ExternalDOI] = sp.ExternalIDs.DOI
		}
		if sp.ExternalIDs.ArXiv != "" {
			ids[types.ExternalArXiv] = sp.ExternalIDs.ArXiv
		}
		if len(ids) > 0 {
			p.ExternalIDs = ids
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int              `json:"total"`
	Data  *[]semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          int                 `json:"year"`
	Venue         string              `json:"venue"`
	CitationCount int                 `json:"citationCount"`
	URL           string              `json:"url"`
	Authors       []semanticAuthor    `json:"authors"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
