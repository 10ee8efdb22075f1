package report

import (
	"sort"
	"sync"
	"time"

	"github.com/devicelab-dev/cutscene-compiler/pkg/core"
	"github.com/devicelab-dev/cutscene-compiler/pkg/export"
	"github.com/devicelab-dev/cutscene-compiler/pkg/validator"
)

// Builder collects document results. Documents may be added concurrently
// from several goroutines; Build orders them by their original index.
type Builder struct {
	mu      sync.Mutex
	tool    ToolInfo
	entries []DocumentEntry
	now     func() time.Time
}

// NewBuilder creates a new Builder.
func NewBuilder(toolName, toolVersion string) *Builder {
	return &Builder{
		tool: ToolInfo{Name: toolName, Version: toolVersion},
		now:  time.Now,
	}
}

// Add records the validation report of a loaded document.
func (b *Builder) Add(index int, sourceFile, title string, r *validator.Report) {
	entry := DocumentEntry{
		Index:       index,
		CutsceneID:  export.Slugify(title),
		Title:       title,
		SourceFile:  sourceFile,
		Status:      StatusPassed,
		Diagnostics: []validator.Diagnostic{},
	}
	if r != nil {
		entry.Diagnostics = append(entry.Diagnostics, r.Diagnostics...)
		entry.Counts = Counts{
			Errors:   r.Count(core.SeverityError),
			Warnings: r.Count(core.SeverityWarn),
			Tips:     r.Count(core.SeverityTip),
		}
		if r.HasErrors() {
			entry.Status = StatusFailed
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
}

// AddFailure records a document that could not be loaded.
func (b *Builder) AddFailure(index int, sourceFile string, err error) {
	msg := err.Error()
	entry := DocumentEntry{
		Index:       index,
		SourceFile:  sourceFile,
		Status:      StatusInvalid,
		Diagnostics: []validator.Diagnostic{},
		Error:       &msg,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
}

// Build returns the report index.
func (b *Builder) Build() *Index {
	b.mu.Lock()
	defer b.mu.Unlock()

	docs := append([]DocumentEntry(nil), b.entries...)
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Index < docs[j].Index })
	if docs == nil {
		docs = []DocumentEntry{}
	}

	idx := &Index{
		Version:     Version,
		GeneratedAt: b.now().UTC(),
		Tool:        b.tool,
		Documents:   docs,
	}
	idx.Summary = computeSummary(docs)
	idx.Status = computeRunStatus(docs)
	return idx
}

// computeSummary calculates the summary from document statuses.
func computeSummary(docs []DocumentEntry) Summary {
	var s Summary
	for _, d := range docs {
		s.Total++
		switch d.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusInvalid:
			s.Invalid++
		}
		s.Errors += d.Counts.Errors
		s.Warnings += d.Counts.Warnings
		s.Tips += d.Counts.Tips
	}
	return s
}

// computeRunStatus determines the overall status: invalid beats failed
// beats passed.
func computeRunStatus(docs []DocumentEntry) Status {
	status := StatusPassed
	for _, d := range docs {
		switch d.Status {
		case StatusInvalid:
			return StatusInvalid
		case StatusFailed:
			status = StatusFailed
		}
	}
	return status
}
