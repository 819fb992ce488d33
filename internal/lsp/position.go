package lsp

import "urd/internal/span"

// Position identifies one cursor location inside one file, in the same
// 1-based line / byte-offset-column coordinate system span.Span uses.
type Position struct {
	Path   string
	Line   uint32
	Column uint32
}

// contains reports whether sp spans pos's line/column. Spans are almost
// always single-line (span.New only ever builds single-line spans), but
// this also handles the general multi-line case correctly since nothing
// guarantees every span in the tree was built that way.
func contains(sp span.Span, pos Position) bool {
	if sp.File != pos.Path || sp.Zero() {
		return false
	}
	if pos.Line < sp.StartLine || pos.Line > sp.EndLine {
		return false
	}
	if sp.StartLine == sp.EndLine {
		return pos.Column >= sp.StartCol && pos.Column < sp.EndCol
	}
	if pos.Line == sp.StartLine {
		return pos.Column >= sp.StartCol
	}
	if pos.Line == sp.EndLine {
		return pos.Column < sp.EndCol
	}
	return true
}
