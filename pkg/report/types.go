// Package report records validation results for a batch of graph documents.
//
// Architecture:
//   - report.json: one index file holding per-document status, counts and
//     the full ordered diagnostic list
//
// The index is written atomically so editors and CI jobs polling the file
// never observe a partial report.
package report

import (
	"time"

	"github.com/devicelab-dev/cutscene-compiler/pkg/validator"
)

// Version is the report schema version.
const Version = "1.0.0"

// Status represents the outcome for one document or the whole run.
type Status string

// Status values.
const (
	StatusPassed  Status = "passed"  // exportable; warnings and tips allowed
	StatusFailed  Status = "failed"  // at least one blocking diagnostic
	StatusInvalid Status = "invalid" // document could not be loaded
)

// IsFailure returns true if the status blocks export.
func (s Status) IsFailure() bool {
	return s == StatusFailed || s == StatusInvalid
}

// Index is the report file.
type Index struct {
	Version     string          `json:"version"`
	Status      Status          `json:"status"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Tool        ToolInfo        `json:"tool"`
	Summary     Summary         `json:"summary"`
	Documents   []DocumentEntry `json:"documents"`
}

// ToolInfo identifies the binary that produced the report.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Summary contains aggregated counts.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Invalid  int `json:"invalid"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Tips     int `json:"tips"`
}

// DocumentEntry is the result for a single graph document.
type DocumentEntry struct {
	Index       int                    `json:"index"`      // Original position
	CutsceneID  string                 `json:"cutsceneId"` // Slug the document exports to
	Title       string                 `json:"title,omitempty"`
	SourceFile  string                 `json:"sourceFile"`
	Status      Status                 `json:"status"`
	Counts      Counts                 `json:"counts"`
	Diagnostics []validator.Diagnostic `json:"diagnostics"`
	Error       *string                `json:"error,omitempty"` // Load failure
}

// Counts contains per-severity diagnostic counts.
type Counts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Tips     int `json:"tips"`
}
