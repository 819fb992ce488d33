// Package diag defines the structured diagnostic type and the append-only
// collector shared by every compilation phase.
package diag

import (
	"sort"

	"urd/internal/span"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "info"
	}
}

// Diagnostic is one structured finding. Code is always "URD" followed by
// three digits (e.g. "URD301"). Related holds auxiliary spans such as a
// duplicate symbol's first declaration.
type Diagnostic struct {
	Severity   Severity
	Code       string
	Message    string
	Span       span.Span
	Suggestion string
	Related    []span.Span
}

// Collector is an append-only sink of diagnostics. Ordering of appended
// entries is preserved; nothing in the core ever removes or reorders an
// entry once appended.
type Collector struct {
	entries []Diagnostic
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends a Diagnostic.
func (c *Collector) Add(d Diagnostic) {
	c.entries = append(c.entries, d)
}

// Errorf is a convenience for appending an Error-severity diagnostic.
func (c *Collector) Errorf(code string, sp span.Span, message string) {
	c.Add(Diagnostic{Severity: Error, Code: code, Message: message, Span: sp})
}

// Warnf is a convenience for appending a Warning-severity diagnostic.
func (c *Collector) Warnf(code string, sp span.Span, message string) {
	c.Add(Diagnostic{Severity: Warning, Code: code, Message: message, Span: sp})
}

// Infof is a convenience for appending an Info-severity diagnostic.
func (c *Collector) Infof(code string, sp span.Span, message string) {
	c.Add(Diagnostic{Severity: Info, Code: code, Message: message, Span: sp})
}

// All returns every diagnostic in append order. The returned slice must
// not be mutated by callers.
func (c *Collector) All() []Diagnostic {
	return c.entries
}

// HasErrors reports whether any appended diagnostic has Error severity.
func (c *Collector) HasErrors() bool {
	for _, d := range c.entries {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Len returns the number of appended diagnostics.
func (c *Collector) Len() int {
	return len(c.entries)
}

// Sorted returns a copy ordered by file, then start line/col, then code.
func (c *Collector) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(c.entries))
	copy(out, c.entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Span.File != b.Span.File {
			return a.Span.File < b.Span.File
		}
		if a.Span.StartLine != b.Span.StartLine {
			return a.Span.StartLine < b.Span.StartLine
		}
		if a.Span.StartCol != b.Span.StartCol {
			return a.Span.StartCol < b.Span.StartCol
		}
		return a.Code < b.Code
	})
	return out
}
