package link

import (
	"strings"

	"urd/internal/ast"
	"urd/internal/diag"
	"urd/internal/graph"
	"urd/internal/slugify"
	"urd/internal/span"
	"urd/internal/symtab"
)

// implicitProperties are valid on any entity regardless of its declared
// type — defined by the runtime's containment model, not by authors.
var implicitProperties = map[string]bool{"container": true}

// builtinJumpTargets are terminal jump targets recognised before any
// section/exit lookup is attempted.
var builtinJumpTargets = map[string]bool{"end": true}

// resolve runs LINK's second pass: world.start/world.entry, then every
// file's frontmatter and content references, in topological order.
func resolve(g *graph.Graph, order []string, symbols *symtab.Table, contexts map[string]*FileContext, diags *diag.Collector) {
	if entry, ok := g.Nodes[g.EntryPath]; ok {
		wc := pendingWorldConfig(entry.AST)
		if wc.Start != nil {
			slug := slugify.Slugify(wc.Start.Value.Str)
			if symbols.Locations.Contains(slug) {
				symbols.WorldStart = slug
			}
		}
		if wc.Entry != nil {
			name := wc.Entry.Value.Str
			if symbols.Sequences.Contains(name) {
				symbols.WorldEntry = name
			}
		}
	}

	for _, path := range order {
		node, ok := g.Nodes[path]
		if !ok {
			continue
		}
		ctx := contexts[path]
		r := &resolver{path: path, ctx: ctx, symbols: symbols, diags: diags}

		for _, entry := range node.AST.Frontmatter.Entries {
			r.resolveFrontmatterValue(entry.Value)
		}

		r.currentLocationID = ""
		for _, n := range node.AST.Content {
			r.resolveContentNode(n)
		}
	}
}

type resolver struct {
	path              string
	ctx               *FileContext
	symbols           *symtab.Table
	diags             *diag.Collector
	currentLocationID string
}

func (r *resolver) resolveFrontmatterValue(v ast.FrontmatterValue) {
	switch fv := v.(type) {
	case *ast.EntityDecl:
		r.resolveEntityDecl(fv)
	case *ast.MapValue:
		for _, e := range fv.Entries {
			r.resolveFrontmatterValue(e.Value)
		}
	}
}

func (r *resolver) resolveEntityDecl(ed *ast.EntityDecl) {
	ts, _, outcome := resolveInScope(ed.TypeName, r.symbols.Types, func(t *symtab.TypeSymbol) string { return t.DeclaredIn.File }, r.ctx.VisibleScope)
	switch outcome {
	case resolveFound:
		if es, ok := r.symbols.Entities.Get(ed.ID); ok {
			es.TypeResolved = true
		}
		ed.Annotation = &ast.Annotation{ResolvedEntity: ed.ID, ResolvedType: ts.Name}
	case resolveNotVisible:
		declaredIn := ts.DeclaredIn.File
		r.diags.Add(diag.Diagnostic{
			Severity: diag.Error, Code: "URD301", Span: ed.Span,
			Message:    "unresolved type reference '" + ed.TypeName + "'",
			Suggestion: "'" + ed.TypeName + "' is declared in " + declaredIn + " but " + declaredIn + " is not imported by " + r.path,
		})
		return
	case resolveNotFound:
		diagnostic := diag.Diagnostic{Severity: diag.Error, Code: "URD307", Span: ed.Span, Message: "unknown type '" + ed.TypeName + "' for entity '@" + ed.ID + "'"}
		if s, ok := findSuggestion(ed.TypeName, r.symbols.Types); ok {
			diagnostic.Suggestion = "Did you mean '" + s + "'?"
		}
		r.diags.Add(diagnostic)
		return
	}

	for _, ov := range ed.PropertyOverrides {
		if ts.Properties.Contains(ov.Key) || implicitProperties[ov.Key] {
			continue
		}
		r.diags.Errorf("URD308", ed.Span, "property '"+ov.Key+"' does not exist on type '"+ed.TypeName+"'")
	}
}

func (r *resolver) resolveContentNode(n ast.ContentNode) {
	switch v := n.(type) {
	case *ast.LocationHeading:
		if id := slugify.Slugify(v.DisplayName); id != "" {
			r.currentLocationID = id
		}

	case *ast.EntitySpeech:
		if id, ok := r.resolveEntityRefValue(v.EntityRef, v.Span); ok {
			v.Annotation = &ast.Annotation{ResolvedEntity: id}
		}

	case *ast.StageDirection:
		if id, ok := r.resolveEntityRefValue(v.EntityRef, v.Span); ok {
			v.Annotation = &ast.Annotation{ResolvedEntity: id}
		}

	case *ast.EntityPresence:
		r.resolveEntityPresence(v)

	case *ast.Choice:
		// A target naming neither a local section nor a declared entity
		// is left unannotated and not reported here.
		if v.Target != "" {
			if compiledID, ok := r.ctx.LocalSections[v.Target]; ok {
				v.Annotation = &ast.Annotation{ResolvedSection: compiledID}
			} else if r.symbols.Entities.Contains(v.Target) {
				if id, ok := r.resolveEntityRefValue(v.Target, v.Span); ok {
					v.Annotation = &ast.Annotation{ResolvedEntity: id}
				}
			}
		}
		for _, child := range v.Content {
			r.resolveContentNode(child)
		}

	case *ast.Condition:
		r.resolveConditionExpr(v.Expr)

	case *ast.OrConditionBlock:
		for _, e := range v.Conditions {
			r.resolveConditionExpr(e)
		}

	case *ast.Effect:
		r.resolveEffect(v.EffectType, &v.Annotation, v.Span)

	case *ast.Jump:
		r.resolveJump(v)

	case *ast.ExitDeclaration:
		r.resolveExit(v)

	case *ast.RuleBlock:
		r.resolveRule(v)
	}
}

func (r *resolver) resolveEntityPresence(ep *ast.EntityPresence) {
	if r.currentLocationID == "" {
		return
	}
	for i := range ep.Refs {
		ref := &ep.Refs[i]
		id, ok := r.resolveEntityRefValue(ref.Ref, ref.Span)
		if !ok {
			continue
		}
		ref.Annotation = &ast.Annotation{ResolvedEntity: id}
		if loc, ok := r.symbols.Locations.Get(r.currentLocationID); ok {
			found := false
			for _, existing := range loc.Contains {
				if existing == id {
					found = true
					break
				}
			}
			if !found {
				loc.Contains = append(loc.Contains, id)
			}
		}
	}
}

func (r *resolver) resolveExit(e *ast.ExitDeclaration) {
	if r.currentLocationID == "" {
		for _, child := range e.Children {
			r.resolveContentNode(child)
		}
		return
	}
	destSlug := slugify.Slugify(e.Destination)
	if destSlug != "" {
		_, declaredIn, outcome := resolveInScope(destSlug, r.symbols.Locations, func(l *symtab.LocationSymbol) string { return l.DeclaredIn.File }, r.ctx.VisibleScope)
		switch outcome {
		case resolveFound:
			if loc, ok := r.symbols.Locations.Get(r.currentLocationID); ok {
				if exit, ok := loc.Exits.Get(e.Direction); ok {
					exit.ResolvedDestination = destSlug
				}
			}
			e.Annotation = &ast.Annotation{ResolvedLocation: destSlug}
		case resolveNotVisible:
			r.diags.Add(diag.Diagnostic{
				Severity: diag.Error, Code: "URD312", Span: e.Span,
				Message:    "exit destination '" + e.Destination + "' does not resolve to any known location",
				Suggestion: "'" + e.Destination + "' is declared in " + declaredIn + " but " + declaredIn + " is not imported by " + r.path,
			})
		case resolveNotFound:
			r.diags.Errorf("URD312", e.Span, "exit destination '"+e.Destination+"' does not resolve to any known location")
		}
	}
	for _, child := range e.Children {
		r.resolveContentNode(child)
	}
}

func (r *resolver) resolveRule(rule *ast.RuleBlock) {
	if rule.SelectClause != nil {
		for _, ref := range rule.SelectClause.From {
			r.resolveEntityRefValue(ref, rule.Span)
		}
		for _, e := range rule.SelectClause.WhereClauses {
			r.resolveConditionExpr(e)
		}
	}
	for _, e := range rule.WhereClauses {
		r.resolveConditionExpr(e)
	}
	for _, eff := range rule.Effects {
		r.resolveEffect(eff.EffectType, &eff.Annotation, eff.Span)
	}
}

func (r *resolver) resolveEntityRefValue(ref string, sp span.Span) (string, bool) {
	es, declaredIn, outcome := resolveInScope(ref, r.symbols.Entities, func(e *symtab.EntitySymbol) string { return e.DeclaredIn.File }, r.ctx.VisibleScope)
	switch outcome {
	case resolveFound:
		return es.ID, true
	case resolveNotVisible:
		r.diags.Add(diag.Diagnostic{
			Severity: diag.Error, Code: "URD301", Span: sp,
			Message:    "unresolved entity reference '@" + ref + "'",
			Suggestion: "'@" + ref + "' is declared in " + declaredIn + " but " + declaredIn + " is not imported by " + r.path,
		})
		return "", false
	default:
		d := diag.Diagnostic{Severity: diag.Error, Code: "URD301", Span: sp, Message: "unresolved entity reference '@" + ref + "'"}
		if s, ok := findSuggestion(ref, r.symbols.Entities); ok {
			d.Suggestion = "Did you mean '@" + s + "'?"
		}
		r.diags.Add(d)
		return "", false
	}
}

// containerOrDest is the pre-ContainerKind/DestinationKind resolution
// outcome shared by ContainmentCheck.container_ref and Move's
// destination_ref.
type containerOrDest struct {
	keyword  string // "player" | "here" | ""
	entityID string
	locID    string
}

func (r *resolver) resolveContainerOrDestination(token string, sp span.Span) (containerOrDest, bool) {
	if token == "player" {
		return containerOrDest{keyword: "player"}, true
	}
	if token == "here" {
		return containerOrDest{keyword: "here"}, true
	}

	es, declaredIn, outcome := resolveInScope(token, r.symbols.Entities, func(e *symtab.EntitySymbol) string { return e.DeclaredIn.File }, r.ctx.VisibleScope)
	switch outcome {
	case resolveFound:
		return containerOrDest{entityID: es.ID}, true
	case resolveNotVisible:
		r.diags.Add(diag.Diagnostic{
			Severity: diag.Error, Code: "URD301", Span: sp,
			Message:    "unresolved reference '" + token + "'",
			Suggestion: "'" + token + "' is declared in " + declaredIn + " but " + declaredIn + " is not imported by " + r.path,
		})
		return containerOrDest{}, false
	}

	slug := slugify.Slugify(token)
	if slug != "" {
		ls, locDeclaredIn, locOutcome := resolveInScope(slug, r.symbols.Locations, func(l *symtab.LocationSymbol) string { return l.DeclaredIn.File }, r.ctx.VisibleScope)
		switch locOutcome {
		case resolveFound:
			return containerOrDest{locID: ls.ID}, true
		case resolveNotVisible:
			r.diags.Add(diag.Diagnostic{
				Severity: diag.Error, Code: "URD301", Span: sp,
				Message:    "unresolved reference '" + token + "'",
				Suggestion: "'" + token + "' is declared in " + locDeclaredIn + " but " + locDeclaredIn + " is not imported by " + r.path,
			})
			return containerOrDest{}, false
		}
	}

	d := diag.Diagnostic{Severity: diag.Error, Code: "URD301", Span: sp, Message: "unresolved reference '" + token + "'"}
	if s, ok := findSuggestion(token, r.symbols.Entities); ok {
		d.Suggestion = "Did you mean '@" + s + "'?"
	} else if s, ok := findSuggestion(slug, r.symbols.Locations); ok {
		d.Suggestion = "Did you mean '" + s + "'?"
	}
	r.diags.Add(d)
	return containerOrDest{}, false
}

func toContainerKind(c containerOrDest) *ast.ContainerKind {
	switch {
	case c.keyword == "player":
		return &ast.ContainerKind{Tag: ast.ContainerKeywordPlayer}
	case c.keyword == "here":
		return &ast.ContainerKind{Tag: ast.ContainerKeywordHere}
	case c.entityID != "":
		return &ast.ContainerKind{Tag: ast.ContainerEntityRef, ID: c.entityID}
	default:
		return &ast.ContainerKind{Tag: ast.ContainerLocationRef, ID: c.locID}
	}
}

func toDestinationKind(c containerOrDest) *ast.DestinationKind {
	switch {
	case c.keyword == "player":
		return &ast.DestinationKind{Tag: ast.DestinationKeywordPlayer}
	case c.keyword == "here":
		return &ast.DestinationKind{Tag: ast.DestinationKeywordHere}
	case c.entityID != "":
		return &ast.DestinationKind{Tag: ast.DestinationEntityRef, ID: c.entityID}
	default:
		return &ast.DestinationKind{Tag: ast.DestinationLocationRef, ID: c.locID}
	}
}

func (r *resolver) resolveConditionExpr(expr ast.ConditionExpr) {
	switch e := expr.(type) {
	case *ast.PropertyComparison:
		if e.EntityRef == "target" || e.EntityRef == "player" {
			e.Annotation = &ast.Annotation{ResolvedEntity: e.EntityRef}
			return
		}
		id, ok := r.resolveEntityRefValue(e.EntityRef, e.Span)
		if !ok {
			return
		}
		e.Annotation = &ast.Annotation{ResolvedEntity: id}
		es, ok := r.symbols.Entities.Get(id)
		if !ok || !es.TypeResolved {
			return
		}
		ts, ok := r.symbols.Types.Get(es.TypeName)
		if !ok {
			return
		}
		if ts.Properties.Contains(e.Property) || implicitProperties[e.Property] {
			e.Annotation.ResolvedProperty = e.Property
			e.Annotation.ResolvedType = es.TypeName
		} else {
			r.diags.Errorf("URD308", e.Span, "property '"+e.Property+"' does not exist on type '"+es.TypeName+"'")
		}

	case *ast.ContainmentCheck:
		entityID, _ := r.resolveEntityRefValue(e.EntityRef, e.Span)
		cd, ok := r.resolveContainerOrDestination(e.ContainerRef, e.Span)
		if entityID != "" || ok {
			e.Annotation = &ast.Annotation{ResolvedEntity: entityID}
			if ok {
				e.Annotation.ContainerKind = toContainerKind(cd)
			}
		}

	case *ast.ExhaustionCheck:
		if compiledID, ok := r.ctx.LocalSections[e.SectionName]; ok {
			e.Annotation = &ast.Annotation{ResolvedSection: compiledID}
		} else {
			r.diags.Errorf("URD309", e.Span, "unresolved section '"+e.SectionName+"' in exhaustion check")
		}
	}
}

func (r *resolver) resolveEffect(effectType ast.EffectType, annotation **ast.Annotation, sp span.Span) {
	switch eff := effectType.(type) {
	case ast.SetEffect:
		r.resolvePropertyTarget(eff.TargetProp, annotation, sp)
	case ast.RevealEffect:
		r.resolvePropertyTarget(eff.TargetProp, annotation, sp)

	case ast.MoveEffect:
		entityID, _ := r.resolveEntityRefValue(eff.EntityRef, sp)
		cd, ok := r.resolveContainerOrDestination(eff.DestinationRef, sp)
		if entityID != "" || ok {
			ann := &ast.Annotation{ResolvedEntity: entityID}
			if ok {
				ann.DestinationKind = toDestinationKind(cd)
			}
			*annotation = ann
		}

	case ast.DestroyEffect:
		if entityID, ok := r.resolveEntityRefValue(eff.EntityRef, sp); ok {
			*annotation = &ast.Annotation{ResolvedEntity: entityID}
		}
	}
}

// resolvePropertyTarget resolves a `@entity.property`-shaped target
// string shared by Set and Reveal effects.
func (r *resolver) resolvePropertyTarget(targetProp string, annotation **ast.Annotation, sp span.Span) {
	stripped := strings.TrimPrefix(targetProp, "@")
	if stripped == targetProp {
		return
	}
	dotPos := strings.IndexByte(stripped, '.')
	if dotPos < 0 {
		return
	}
	entityRef, property := stripped[:dotPos], stripped[dotPos+1:]

	entityID, ok := r.resolveEntityRefValue(entityRef, sp)
	if !ok {
		return
	}
	ann := &ast.Annotation{ResolvedEntity: entityID}
	if es, ok := r.symbols.Entities.Get(entityID); ok && es.TypeResolved {
		if ts, ok := r.symbols.Types.Get(es.TypeName); ok {
			if ts.Properties.Contains(property) || implicitProperties[property] {
				ann.ResolvedProperty = property
				ann.ResolvedType = es.TypeName
			} else {
				r.diags.Errorf("URD308", sp, "property '"+property+"' does not exist on type '"+es.TypeName+"'")
			}
		}
	}
	*annotation = ann
}

func (r *resolver) resolveJump(j *ast.Jump) {
	if builtinJumpTargets[j.Target] {
		if _, ok := r.ctx.LocalSections[j.Target]; ok {
			r.diags.Warnf("URD431", j.Span, "section '"+j.Target+"' shadows the built-in '-> "+j.Target+"' terminal")
		}
		j.Annotation = &ast.Annotation{}
		return
	}

	if j.IsExitQualified {
		if r.currentLocationID == "" {
			r.diags.Errorf("URD314", j.Span, "exit construct outside of a location context")
			return
		}
		loc, ok := r.symbols.Locations.Get(r.currentLocationID)
		if ok && loc.Exits.Contains(j.Target) {
			j.Annotation = &ast.Annotation{ResolvedLocation: r.currentLocationID}
		} else {
			r.diags.Errorf("URD311", j.Span, "unresolved exit reference 'exit:"+j.Target+"'")
		}
		return
	}

	compiledID, sectionOK := r.ctx.LocalSections[j.Target]
	var exitOK bool
	if r.currentLocationID != "" {
		if loc, ok := r.symbols.Locations.Get(r.currentLocationID); ok {
			exitOK = loc.Exits.Contains(j.Target)
		}
	}

	switch {
	case sectionOK && exitOK:
		j.Annotation = &ast.Annotation{ResolvedSection: compiledID}
		r.diags.Warnf("URD310", j.Span, "section '"+j.Target+"' shadows exit '"+j.Target+"' in this location; use -> exit:"+j.Target+" to target the exit")
	case sectionOK:
		j.Annotation = &ast.Annotation{ResolvedSection: compiledID}
	case exitOK:
		j.Annotation = &ast.Annotation{ResolvedLocation: r.currentLocationID}
	default:
		r.diags.Errorf("URD309", j.Span, "unresolved jump target '"+j.Target+"'")
	}
}
