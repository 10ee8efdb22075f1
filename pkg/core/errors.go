package core

import (
	"fmt"
	"strings"
)

// CompileError represents a structured error naming the failing graph element
type CompileError struct {
	Category ErrorCategory
	Code     string         // Machine-readable code: cycle_detected, ambiguous_flow, etc.
	Message  string         // Human-readable message
	NodeID   string         // Offending node, if any
	EdgeID   string         // Offending edge, if any
	Details  map[string]any // Additional context
	Cause    error          // Underlying error
}

// Error implements the error interface
func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.NodeID != "" {
		fmt.Fprintf(&b, " (node %s)", e.NodeID)
	}
	if e.EdgeID != "" {
		fmt.Fprintf(&b, " (edge %s)", e.EdgeID)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Is matches predefined errors by code, so errors.Is(err, ErrCycleDetected)
// holds for any copy made with the With* helpers.
func (e *CompileError) Is(target error) bool {
	t, ok := target.(*CompileError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func (e *CompileError) clone() *CompileError {
	c := *e
	return &c
}

// WithNode returns a copy of the error naming the given node
func (e *CompileError) WithNode(id string) *CompileError {
	c := e.clone()
	c.NodeID = id
	return c
}

// WithEdge returns a copy of the error naming the given edge
func (e *CompileError) WithEdge(id string) *CompileError {
	c := e.clone()
	c.EdgeID = id
	return c
}

// WithCause returns a copy of the error with the given cause
func (e *CompileError) WithCause(cause error) *CompileError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithMessage returns a copy of the error with a custom message
func (e *CompileError) WithMessage(msg string) *CompileError {
	c := e.clone()
	c.Message = msg
	return c
}

// WithMessagef is WithMessage with printf formatting
func (e *CompileError) WithMessagef(format string, args ...any) *CompileError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *CompileError) WithDetails(details map[string]any) *CompileError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	c := e.clone()
	c.Details = merged
	return c
}

// Predefined errors
var (
	// Structural errors
	ErrMissingStart = &CompileError{
		Category: ErrCategoryStructural,
		Code:     "missing_start",
		Message:  "graph has no start node",
	}
	ErrMultipleStart = &CompileError{
		Category: ErrCategoryStructural,
		Code:     "multiple_start",
		Message:  "graph has more than one start node",
	}
	ErrMissingEnd = &CompileError{
		Category: ErrCategoryStructural,
		Code:     "missing_end",
		Message:  "graph has no end node",
	}
	ErrAmbiguousFlow = &CompileError{
		Category: ErrCategoryStructural,
		Code:     "ambiguous_flow",
		Message:  "node has more than one outgoing edge",
	}
	ErrParallelDeadEnd = &CompileError{
		Category: ErrCategoryStructural,
		Code:     "parallel_dead_end",
		Message:  "parallel branch ends before reaching its join",
	}
	ErrParallelRefork = &CompileError{
		Category: ErrCategoryStructural,
		Code:     "parallel_refork",
		Message:  "parallel branch forks again before reaching its join",
	}
	ErrMissingLink = &CompileError{
		Category: ErrCategoryStructural,
		Code:     "missing_link",
		Message:  "parallel_start has no usable joinId",
	}
	ErrDanglingReference = &CompileError{
		Category: ErrCategoryStructural,
		Code:     "dangling_reference",
		Message:  "edge references a node that does not exist",
	}

	// Cycle errors
	ErrCycleDetected = &CompileError{
		Category: ErrCategoryCycle,
		Code:     "cycle_detected",
		Message:  "cycle detected",
	}
)

// NewCompileError creates a new CompileError with the given parameters
func NewCompileError(category ErrorCategory, code, message string) *CompileError {
	return &CompileError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
