// Package parse implements PARSE: turning one file's UTF-8 source into
// an AST via the frontmatter and content line-oriented sub-parsers.
package parse

import (
	"strconv"
	"strings"

	"urd/internal/ast"
	"urd/internal/config"
	"urd/internal/diag"
	"urd/internal/span"
)

const bom = "\xef\xbb\xbf"

// sourceLine is one physical line of the original source, 1-based.
type sourceLine struct {
	raw    string
	lineNo int
}

// parser holds the state shared by the frontmatter and content
// sub-parsers: the source lines, the file's path label, and the
// diagnostic sink they both append to.
type parser struct {
	path      string
	diags     *diag.Collector
	cfg       config.Compiler
	lines     []sourceLine
	tabWarned map[int]bool

	// content-parsing cursor; curLine advances as content nodes are
	// consumed, end is the exclusive boundary of the content region.
	curLine int
	end     int
}

// File runs PARSE on a single source string, returning its AST (nil on
// catastrophic failure, one of: oversized source, unterminated
// frontmatter) and appending diagnostics to diags.
func File(path, src string, diags *diag.Collector, cfg config.Compiler) (*ast.File, bool) {
	if int64(len(src)) > cfg.MaxFileBytes {
		diags.Errorf("URD103", span.New(path, 1, 1, 1),
			"source exceeds the maximum file size of "+strconv.FormatInt(cfg.MaxFileBytes, 10)+" bytes")
		return nil, false
	}
	src = strings.TrimPrefix(src, bom)

	raw := strings.Split(src, "\n")
	lines := make([]sourceLine, len(raw))
	for i, r := range raw {
		lines[i] = sourceLine{raw: strings.TrimSuffix(r, "\r"), lineNo: i + 1}
	}

	if len(lines) == 0 || lines[0].raw != "---" {
		diags.Errorf("URD101", span.New(path, 1, 1, 1),
			"file must begin with a frontmatter block delimited by '---'")
		return nil, false
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if lines[i].raw == "---" {
			closeIdx = i
			break
		}
	}
	if closeIdx == -1 {
		diags.Errorf("URD101", span.New(path, uint32(lines[0].lineNo), 1, 4),
			"frontmatter block is never closed with a matching '---'")
		return nil, false
	}

	p := &parser{path: path, diags: diags, cfg: cfg, lines: lines, tabWarned: make(map[int]bool)}
	fm := p.parseFrontmatter(1, closeIdx)
	content := p.parseContent(closeIdx+1, len(lines), 0)

	return &ast.File{Path: path, Frontmatter: fm, Content: content}, true
}

// lineSpan returns the span of a single line by its 0-based slice index.
func (p *parser) lineSpan(idx int) span.Span {
	ln := p.lines[idx]
	return span.New(p.path, uint32(ln.lineNo), 1, uint32(len(ln.raw))+1)
}

// spanLines returns a span covering lines startIdx..=endIdx (0-based,
// inclusive).
func (p *parser) spanLines(startIdx, endIdx int) span.Span {
	if endIdx < startIdx {
		endIdx = startIdx
	}
	start := p.lines[startIdx]
	end := p.lines[endIdx]
	return span.Span{
		File:      p.path,
		StartLine: uint32(start.lineNo),
		StartCol:  1,
		EndLine:   uint32(end.lineNo),
		EndCol:    uint32(len(end.raw)) + 1,
	}
}

// checkTabs expands any leading tab run in line idx into two spaces per
// tab (one indent unit each), emitting URD102 once per offending line,
// and returns the processed text. Original columns are unaffected since
// spans are always built from the untouched raw line.
func (p *parser) checkTabs(idx int) string {
	raw := p.lines[idx].raw
	i := 0
	hasTab := false
	for i < len(raw) && (raw[i] == ' ' || raw[i] == '\t') {
		if raw[i] == '\t' {
			hasTab = true
		}
		i++
	}
	if !hasTab {
		return raw
	}
	if !p.tabWarned[idx] {
		p.tabWarned[idx] = true
		p.diags.Add(diag.Diagnostic{
			Severity: diag.Warning,
			Code:     "URD102",
			Message:  "tab used in leading whitespace; treated as one indent unit",
			Span:     p.lineSpan(idx),
		})
	}
	var b strings.Builder
	for _, c := range raw[:i] {
		if c == '\t' {
			b.WriteString("  ")
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteString(raw[i:])
	return b.String()
}

// measureIndent returns the indent level (leading-space count / 2) and
// the trimmed remainder of a processed line.
func measureIndent(text string) (int, string) {
	spaces := 0
	for spaces < len(text) && text[spaces] == ' ' {
		spaces++
	}
	return spaces / 2, text[spaces:]
}

// stripInlineComment removes a trailing ` // ...` or `//...` not inside
// a quoted string.
func stripInlineComment(s string) string {
	inQuote := byte(0)
	for i := 0; i < len(s)-1; i++ {
		c := s[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			inQuote = c
			continue
		}
		if c == '/' && s[i+1] == '/' {
			return s[:i]
		}
	}
	return s
}

func truncateForDisplay(text string) string {
	if len(text) > 60 {
		return text[:57] + "..."
	}
	return text
}
