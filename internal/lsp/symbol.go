package lsp

import (
	"urd/internal/ast"
	"urd/internal/span"
	"urd/internal/symtab"
)

// SymbolKind classifies what ResolveSymbolAt found under the cursor.
type SymbolKind int

const (
	SymbolNone SymbolKind = iota
	SymbolEntity
	SymbolProperty
	SymbolJumpTarget
	SymbolSection
	SymbolType
)

// SymbolInfo is one resolved symbol reference: what it is, its canonical
// id, and the span of its defining declaration (a location heading, a
// section label, an entity or type declaration, or a property
// definition), for an editor to jump to on "go to definition".
type SymbolInfo struct {
	Kind         SymbolKind
	ID           string
	DefiningSpan span.Span
}

// ResolveSymbolAt finds the narrowest AST node whose span contains pos
// and, if it carries a resolved annotation, the symbol table entry that
// annotation points at. It returns false if pos lands on no annotatable
// node, or the node there was never resolved (an unresolved reference
// already has its own diagnostic; this just reports nothing to jump to).
func ResolveSymbolAt(file *ast.File, symbols *symtab.Table, pos Position) (*SymbolInfo, bool) {
	if file == nil {
		return nil, false
	}
	if file.Frontmatter != nil {
		if info, ok := resolveFrontmatterSymbolAt(file.Frontmatter.Entries, symbols, pos); ok {
			return info, true
		}
	}
	for _, n := range file.Content {
		if info, ok := resolveContentSymbolAt(n, symbols, pos); ok {
			return info, true
		}
	}
	return nil, false
}

func resolveFrontmatterSymbolAt(entries []ast.FrontmatterEntry, symbols *symtab.Table, pos Position) (*SymbolInfo, bool) {
	for _, entry := range entries {
		switch v := entry.Value.(type) {
		case *ast.TypeDef:
			if contains(v.Span, pos) {
				if ts, ok := symbols.Types.Get(v.Name); ok {
					return &SymbolInfo{Kind: SymbolType, ID: v.Name, DefiningSpan: ts.DeclaredIn}, true
				}
			}
		case *ast.EntityDecl:
			if contains(v.Span, pos) {
				if es, ok := symbols.Entities.Get(v.ID); ok && es.TypeResolved {
					if ts, ok := symbols.Types.Get(es.TypeName); ok {
						return &SymbolInfo{Kind: SymbolType, ID: es.TypeName, DefiningSpan: ts.DeclaredIn}, true
					}
				}
				if es, ok := symbols.Entities.Get(v.ID); ok {
					return &SymbolInfo{Kind: SymbolEntity, ID: v.ID, DefiningSpan: es.DeclaredIn}, true
				}
			}
		case *ast.MapValue:
			if info, ok := resolveFrontmatterSymbolAt(v.Entries, symbols, pos); ok {
				return info, true
			}
		}
	}
	return nil, false
}

func resolveContentSymbolAt(n ast.ContentNode, symbols *symtab.Table, pos Position) (*SymbolInfo, bool) {
	if !contains(n.NodeSpan(), pos) {
		return nil, false
	}
	switch v := n.(type) {
	case *ast.LocationHeading:
		id := locationIDOf(v, symbols)
		if loc, ok := symbols.Locations.Get(id); ok {
			return &SymbolInfo{Kind: SymbolSection, ID: id, DefiningSpan: loc.DeclaredIn}, true
		}

	case *ast.SectionLabel:
		for _, sec := range allSections(symbols) {
			if sec.LocalName == v.Name && sec.DeclaredIn == n.NodeSpan() {
				return &SymbolInfo{Kind: SymbolSection, ID: sec.CompiledID, DefiningSpan: sec.DeclaredIn}, true
			}
		}

	case *ast.EntitySpeech:
		if info, ok := annotationSymbol(v.Annotation, symbols); ok {
			return info, true
		}

	case *ast.StageDirection:
		if info, ok := annotationSymbol(v.Annotation, symbols); ok {
			return info, true
		}

	case *ast.EntityPresence:
		for _, ref := range v.Refs {
			if contains(ref.Span, pos) {
				if info, ok := annotationSymbol(ref.Annotation, symbols); ok {
					return info, true
				}
			}
		}

	case *ast.Choice:
		if v.Target != "" && contains(v.Span, pos) {
			if info, ok := annotationSymbol(v.Annotation, symbols); ok {
				return info, true
			}
		}
		for _, child := range v.Content {
			if info, ok := resolveContentSymbolAt(child, symbols, pos); ok {
				return info, true
			}
		}

	case *ast.Condition:
		if info, ok := resolveConditionSymbolAt(v.Expr, symbols, pos); ok {
			return info, true
		}

	case *ast.OrConditionBlock:
		for _, e := range v.Conditions {
			if info, ok := resolveConditionSymbolAt(e, symbols, pos); ok {
				return info, true
			}
		}

	case *ast.Effect:
		if info, ok := annotationSymbol(v.Annotation, symbols); ok {
			return info, true
		}

	case *ast.Jump:
		if info, ok := jumpSymbol(v.Annotation, symbols); ok {
			return info, true
		}

	case *ast.ExitDeclaration:
		if contains(v.Span, pos) && v.Annotation.HasLocation() {
			if loc, ok := symbols.Locations.Get(v.Annotation.ResolvedLocation); ok {
				return &SymbolInfo{Kind: SymbolSection, ID: loc.ID, DefiningSpan: loc.DeclaredIn}, true
			}
		}
		for _, child := range v.Children {
			if info, ok := resolveContentSymbolAt(child, symbols, pos); ok {
				return info, true
			}
		}

	case *ast.RuleBlock:
		for _, e := range v.WhereClauses {
			if info, ok := resolveConditionSymbolAt(e, symbols, pos); ok {
				return info, true
			}
		}
		for _, eff := range v.Effects {
			if contains(eff.Span, pos) {
				if info, ok := annotationSymbol(eff.Annotation, symbols); ok {
					return info, true
				}
			}
		}
	}
	return nil, false
}

func resolveConditionSymbolAt(e ast.ConditionExpr, symbols *symtab.Table, pos Position) (*SymbolInfo, bool) {
	if !contains(e.ExprSpan(), pos) {
		return nil, false
	}
	switch v := e.(type) {
	case *ast.PropertyComparison:
		return annotationSymbol(v.Annotation, symbols)
	case *ast.ContainmentCheck:
		return annotationSymbol(v.Annotation, symbols)
	case *ast.ExhaustionCheck:
		if v.Annotation.HasSection() {
			if sec, ok := symbols.Sections.Get(v.Annotation.ResolvedSection); ok {
				return &SymbolInfo{Kind: SymbolSection, ID: v.Annotation.ResolvedSection, DefiningSpan: sec.DeclaredIn}, true
			}
		}
	}
	return nil, false
}

// annotationSymbol prefers a property result over a bare entity result,
// since a resolved property implies a resolved entity too (the entity
// was needed to find the property's owning type).
func annotationSymbol(ann *ast.Annotation, symbols *symtab.Table) (*SymbolInfo, bool) {
	if ann == nil {
		return nil, false
	}
	if ann.HasProperty() && ann.ResolvedType != "" {
		if ts, ok := symbols.Types.Get(ann.ResolvedType); ok {
			if ps, ok := ts.Properties.Get(ann.ResolvedProperty); ok {
				return &SymbolInfo{Kind: SymbolProperty, ID: ann.ResolvedType + "." + ann.ResolvedProperty, DefiningSpan: ps.DeclaredIn}, true
			}
		}
	}
	if ann.HasEntity() {
		if es, ok := symbols.Entities.Get(ann.ResolvedEntity); ok {
			return &SymbolInfo{Kind: SymbolEntity, ID: ann.ResolvedEntity, DefiningSpan: es.DeclaredIn}, true
		}
	}
	if ann.HasLocation() {
		if loc, ok := symbols.Locations.Get(ann.ResolvedLocation); ok {
			return &SymbolInfo{Kind: SymbolSection, ID: ann.ResolvedLocation, DefiningSpan: loc.DeclaredIn}, true
		}
	}
	return nil, false
}

func jumpSymbol(ann *ast.Annotation, symbols *symtab.Table) (*SymbolInfo, bool) {
	if ann == nil {
		return nil, false
	}
	if ann.HasSection() {
		if sec, ok := symbols.Sections.Get(ann.ResolvedSection); ok {
			return &SymbolInfo{Kind: SymbolJumpTarget, ID: ann.ResolvedSection, DefiningSpan: sec.DeclaredIn}, true
		}
	}
	if ann.HasLocation() {
		if loc, ok := symbols.Locations.Get(ann.ResolvedLocation); ok {
			return &SymbolInfo{Kind: SymbolJumpTarget, ID: ann.ResolvedLocation, DefiningSpan: loc.DeclaredIn}, true
		}
	}
	return nil, false
}

func locationIDOf(h *ast.LocationHeading, symbols *symtab.Table) string {
	var id string
	symbols.Locations.Each(func(k string, loc *symtab.LocationSymbol) {
		if loc.DisplayName == h.DisplayName && loc.DeclaredIn == h.Span {
			id = k
		}
	})
	return id
}

func allSections(symbols *symtab.Table) []*symtab.SectionSymbol {
	var out []*symtab.SectionSymbol
	symbols.Sections.Each(func(_ string, sec *symtab.SectionSymbol) {
		out = append(out, sec)
	})
	return out
}
