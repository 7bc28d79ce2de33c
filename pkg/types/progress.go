// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Status identifies a progress event kind. Consumers must ignore values they
// do not recognize.
type Status string

const (
	StatusStart        Status = "start"
	StatusTitle        Status = "title"
	StatusRAGStart     Status = "rag_start"
	StatusRAGComplete  Status = "rag_complete"
	StatusAbstract     Status = "abstract"
	StatusSectionStart Status = "section_start"
	StatusReferences   Status = "references"
	StatusComplete     Status = "complete"
	StatusError        Status = "error"
)

// Terminal reports whether no event follows s.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// ProgressEvent is one frame of a run's progress stream. Only the fields
// relevant to Status are populated.
type ProgressEvent struct {
	Status  Status    `json:"status" yaml:"status"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`
	RunID   string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Time    time.Time `json:"time" yaml:"time"`

	// Title is set on title events.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Section, Index and Total are set on section_start events. Index is
	// 1-based.
	Section string `json:"section,omitempty" yaml:"section,omitempty"`
	Index   int    `json:"index,omitempty" yaml:"index,omitempty"`
	Total   int    `json:"total,omitempty" yaml:"total,omitempty"`

	// Count is set on rag_complete (papers retrieved) and references
	// (references cited) events.
	Count *int `json:"count,omitempty" yaml:"count,omitempty"`

	// Skipped marks retrieval events of a run with RAG disabled.
	Skipped bool `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// Unavailable marks a rag_complete whose retrieval produced nothing.
	Unavailable bool `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`

	// Stage names the failing phase on error events.
	Stage string `json:"stage,omitempty" yaml:"stage,omitempty"`

	// Paper is set on complete events.
	Paper *GeneratedPaper `json:"paper,omitempty" yaml:"paper,omitempty"`
}
