// Package core holds the types shared by the validator, the compiler and the
// command-line layer: diagnostic severities and the compile error taxonomy.
package core

import "fmt"

// Severity classifies a validator finding.
type Severity string

const (
	SeverityError Severity = "error" // Blocks export
	SeverityWarn  Severity = "warn"  // Advisory, export still attempted
	SeverityTip   Severity = "tip"   // Advisory hint
)

// String returns the string representation of Severity
func (s Severity) String() string {
	return string(s)
}

// IsBlocking returns true if the severity prevents export
func (s Severity) IsBlocking() bool {
	return s == SeverityError
}

// Rank orders severities from most to least severe. Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarn:
		return 1
	case SeverityTip:
		return 2
	default:
		return 3
	}
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone        ErrorCategory = iota // No error
	ErrCategoryStructural                       // Missing start/end, ambiguous branching, parallel dead-end or re-fork
	ErrCategoryCycle                            // Node re-entered before its subtree completed
	ErrCategoryReferential                      // Dangling edge endpoint, unresolved joinId/pairId
	ErrCategoryParameter                        // Missing or malformed node parameter
	ErrCategoryGuard                            // Malformed edge guard
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryStructural:
		return "structural"
	case ErrCategoryCycle:
		return "cycle"
	case ErrCategoryReferential:
		return "referential"
	case ErrCategoryParameter:
		return "parameter"
	case ErrCategoryGuard:
		return "guard"
	default:
		return "unknown"
	}
}

// MarshalText encodes the category by name for JSON reports
func (c ErrorCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category written by MarshalText
func (c *ErrorCategory) UnmarshalText(text []byte) error {
	for cat := ErrCategoryNone; cat <= ErrCategoryGuard; cat++ {
		if cat.String() == string(text) {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("unknown error category %q", text)
}
