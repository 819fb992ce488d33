package main

import (
	"fmt"
	"io"

	"urd/internal/diag"
)

// printDiagnostics writes one line per diagnostic, sorted by position,
// in the "path:line:col: severity CODE: message" form most compiler
// CLIs use, with an optional "suggestion:" follow-up line.
func printDiagnostics(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n", d.Span.File, d.Span.StartLine, d.Span.StartCol, d.Severity, d.Code, d.Message)
		if d.Suggestion != "" {
			fmt.Fprintf(w, "  suggestion: %s\n", d.Suggestion)
		}
	}
}

// countErrors reports how many diagnostics are Error severity.
func countErrors(diags []diag.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == diag.Error {
			n++
		}
	}
	return n
}
