// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-engine pipeline:
// retrieved literature, generated papers, progress events, and configuration.
package types

import (
	"strings"
	"time"
)

// Well-known keys in RetrievedPaper.ExternalIDs.
const (
	ExternalDOI   = "DOI"
	ExternalArXiv = "ArXiv"
)

// RetrievedPaper is a literature record returned by a search provider. It is
// read-only once produced: generation uses it for context and the reference
// list quotes it.
type RetrievedPaper struct {
	// ID is the provider's own identifier (Semantic Scholar paperId, OpenAlex
	// work URL, arXiv ID).
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract, possibly empty.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year, 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal or conference name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// CitationCount is the provider-reported citation count.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// ExternalIDs maps identifier kinds (DOI, ArXiv) to values.
	ExternalIDs map[string]string `json:"external_ids,omitempty" yaml:"external_ids,omitempty"`

	// URL links to the paper landing page.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Source names the backend that produced the record.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// DOI returns the paper's DOI or "".
func (p RetrievedPaper) DOI() string {
	return p.ExternalIDs[ExternalDOI]
}

// Identity returns the external identifier used for deduplication: the DOI,
// then the arXiv ID, then the provider ID. It returns "" when none is set.
func (p RetrievedPaper) Identity() string {
	if doi := p.DOI(); doi != "" {
		return "doi:" + strings.ToLower(doi)
	}
	if ax := p.ExternalIDs[ExternalArXiv]; ax != "" {
		return "arxiv:" + ax
	}
	if p.ID != "" {
		return "id:" + p.ID
	}
	return ""
}

// GeneratedSection is the formatted text of one section. It is replaced
// wholesale on regeneration.
type GeneratedSection struct {
	// Name is the section key (e.g. "literature_review").
	Name string `json:"name" yaml:"name"`

	// Heading is the display heading (e.g. "Literature Review").
	Heading string `json:"heading" yaml:"heading"`

	// Text is the formatted section body.
	Text string `json:"text" yaml:"text"`

	// WordCount is the number of whitespace-separated words in Text.
	WordCount int `json:"word_count" yaml:"word_count"`

	// Fallback is true when the provider produced nothing usable and Text
	// holds placeholder content.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// Reference is a retrieved paper cited in the generated text.
type Reference struct {
	// Number is the [n] marker the generated text uses for this paper.
	Number int `json:"number" yaml:"number"`

	// Citation is the IEEE-formatted reference line.
	Citation string `json:"citation" yaml:"citation"`

	// Paper is the cited record.
	Paper RetrievedPaper `json:"paper" yaml:"paper"`
}

// PaperMetadata summarizes a generation run.
type PaperMetadata struct {
	WordCounts     map[string]int `json:"word_counts" yaml:"word_counts"`
	TotalWords     int            `json:"total_words" yaml:"total_words"`
	SectionCount   int            `json:"section_count" yaml:"section_count"`
	ReferenceCount int            `json:"reference_count" yaml:"reference_count"`
	RetrievedCount int            `json:"retrieved_count" yaml:"retrieved_count"`

	// RAGEnabled reports whether the caller asked for retrieval.
	RAGEnabled bool `json:"rag_enabled" yaml:"rag_enabled"`

	// RAGUnavailable is set when retrieval ran but produced nothing.
	RAGUnavailable bool `json:"rag_unavailable,omitempty" yaml:"rag_unavailable,omitempty"`

	Provider    string        `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model       string        `json:"model,omitempty" yaml:"model,omitempty"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	GeneratedAt time.Time     `json:"generated_at" yaml:"generated_at"`
}

// GeneratedPaper is the assembled result of one successful pipeline run. It
// is immutable after assembly.
type GeneratedPaper struct {
	RunID    string `json:"run_id" yaml:"run_id"`
	Topic    string `json:"topic" yaml:"topic"`
	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract" yaml:"abstract"`

	// Sections holds one entry per configured section, in generation order.
	Sections []GeneratedSection `json:"sections" yaml:"sections"`

	References []Reference   `json:"references" yaml:"references"`
	Metadata   PaperMetadata `json:"metadata" yaml:"metadata"`
}

// Section returns the named section and whether it exists.
func (p *GeneratedPaper) Section(name string) (GeneratedSection, bool) {
	for _, s := range p.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return GeneratedSection{}, false
}

// SectionNames returns section names in order.
func (p *GeneratedPaper) SectionNames() []string {
	names := make([]string, len(p.Sections))
	for i, s := range p.Sections {
		names[i] = s.Name
	}
	return names
}

// Survey is a literature survey written from retrieved papers.
type Survey struct {
	Topic     string `json:"topic" yaml:"topic"`
	Title     string `json:"title" yaml:"title"`
	Text      string `json:"text" yaml:"text"`
	WordCount int    `json:"word_count" yaml:"word_count"`

	// Papers are the records the survey was written from, in context order.
	Papers []RetrievedPaper `json:"papers" yaml:"papers"`

	Provider    string    `json:"provider,omitempty" yaml:"provider,omitempty"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// UserData is caller-supplied experiment detail. Methodology and dataset feed
// the methodology section; results and findings feed the results section.
type UserData struct {
	Methodology string  `json:"methodology,omitempty" yaml:"methodology,omitempty"`
	Dataset     Dataset `json:"dataset,omitempty" yaml:"dataset,omitempty"`
	Results     string  `json:"results,omitempty" yaml:"results,omitempty"`
	Findings    string  `json:"findings,omitempty" yaml:"findings,omitempty"`
}

// Dataset describes the data an experiment used.
type Dataset struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Size    string `json:"size,omitempty" yaml:"size,omitempty"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
}

// IsZero reports whether u carries no content.
func (u *UserData) IsZero() bool {
	return u == nil || (u.Methodology == "" && u.Dataset == Dataset{} && u.Results == "" && u.Findings == "")
}
