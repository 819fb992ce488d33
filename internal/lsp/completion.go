package lsp

import (
	"strings"

	"urd/internal/link"
	"urd/internal/symtab"
)

// SlotKind classifies the kind of reference being typed at a completion
// request's cursor position.
type SlotKind int

const (
	SlotNone SlotKind = iota
	SlotJumpTarget
	SlotEntityRef
	SlotProperty
)

// builtinJumpTargets mirrors link's own terminal-target set: the slot
// detector needs the same list so "end" shows up as a completion
// candidate alongside every real section name.
var builtinJumpTargets = []string{"end"}

// implicitProperties mirrors link's own always-valid property set.
var implicitProperties = []string{"container"}

// CompletionInfo is the result of a completion request: what kind of
// reference the cursor sits in, and the ids visible from that point that
// could complete it.
type CompletionInfo struct {
	Slot       SlotKind
	Candidates []string
}

// ResolveCompletionContext inspects line (the raw source text of the
// cursor's line, up to and including the character immediately before
// pos.Column) to classify the slot the author is filling in, then lists
// the symbols visible from pos.Path that could fill it. An editor calls
// this on every keystroke inside an incomplete reference, where the text
// typed so far can't yet be parsed into a resolved AST node — slot
// detection necessarily works on raw text, not the annotated tree
// ResolveSymbolAt walks.
func ResolveCompletionContext(line string, pos Position, symbols *symtab.Table, ctx *link.FileContext) *CompletionInfo {
	prefix := linePrefix(line, pos.Column)

	if entityRef, property, ok := splitPropertyAccess(prefix); ok {
		if candidates, ok := propertyCandidates(entityRef, symbols); ok {
			_ = property
			return &CompletionInfo{Slot: SlotProperty, Candidates: candidates}
		}
	}

	if isJumpSlot(prefix) {
		return &CompletionInfo{Slot: SlotJumpTarget, Candidates: jumpCandidates(symbols, ctx)}
	}

	if isEntityRefSlot(prefix) {
		return &CompletionInfo{Slot: SlotEntityRef, Candidates: entityCandidates(symbols, ctx)}
	}

	return &CompletionInfo{Slot: SlotNone}
}

// linePrefix returns line truncated to the byte offset col-1 (pos.Column
// is 1-based, matching span.Span's convention).
func linePrefix(line string, col uint32) string {
	idx := int(col) - 1
	if idx < 0 {
		return ""
	}
	if idx > len(line) {
		idx = len(line)
	}
	return line[:idx]
}

// lastToken returns the run of non-whitespace characters immediately
// preceding the cursor.
func lastToken(prefix string) string {
	i := len(prefix)
	for i > 0 && !isSpace(prefix[i-1]) {
		i--
	}
	return prefix[i:]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' }

// splitPropertyAccess recognizes a trailing "@entity.partial" token and
// splits it into the entity reference and the (possibly empty) partial
// property name typed so far.
func splitPropertyAccess(prefix string) (entityRef, property string, ok bool) {
	tok := lastToken(prefix)
	stripped := strings.TrimPrefix(tok, "@")
	if stripped == tok {
		return "", "", false
	}
	dot := strings.IndexByte(stripped, '.')
	if dot < 0 {
		return "", "", false
	}
	return stripped[:dot], stripped[dot+1:], true
}

// isEntityRefSlot reports whether the cursor sits right after a bare
// leading '@', the start of an entity reference with nothing typed yet
// or a partial id typed so far (and no '.' splitting it into a property
// access, which splitPropertyAccess already claims first).
func isEntityRefSlot(prefix string) bool {
	return strings.HasPrefix(lastToken(prefix), "@")
}

// isJumpSlot reports whether the cursor follows a "->" jump arrow, with
// only whitespace and a possibly-partial target name typed since.
func isJumpSlot(prefix string) bool {
	arrow := strings.LastIndex(prefix, "->")
	if arrow < 0 {
		return false
	}
	rest := strings.TrimSpace(prefix[arrow+2:])
	return !strings.ContainsAny(rest, " \t") || rest == ""
}

func entityCandidates(symbols *symtab.Table, ctx *link.FileContext) []string {
	var out []string
	symbols.Entities.Each(func(id string, es *symtab.EntitySymbol) {
		if ctx == nil || ctx.VisibleScope[es.DeclaredIn.File] {
			out = append(out, id)
		}
	})
	return out
}

func jumpCandidates(symbols *symtab.Table, ctx *link.FileContext) []string {
	out := append([]string{}, builtinJumpTargets...)
	if ctx != nil {
		for name := range ctx.LocalSections {
			out = append(out, name)
		}
	}
	return out
}

func propertyCandidates(entityRef string, symbols *symtab.Table) ([]string, bool) {
	es, ok := symbols.Entities.Get(entityRef)
	if !ok && entityRef != "target" && entityRef != "player" {
		return nil, false
	}
	out := append([]string{}, implicitProperties...)
	if ok && es.TypeResolved {
		if ts, typeOK := symbols.Types.Get(es.TypeName); typeOK {
			for _, k := range ts.Properties.Keys() {
				out = append(out, k)
			}
		}
	}
	return out, true
}
