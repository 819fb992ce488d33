package analyze

import (
	"strconv"
	"strings"

	"urd/internal/ast"
	"urd/internal/graph"
	"urd/internal/slugify"
	"urd/internal/symtab"
)

// ExtractFacts walks the linked graph and symbol table to build a
// normalized FactSet. Called after LINK, read-only and deterministic:
// the same resolved world always produces the same FactSet.
func ExtractFacts(g *graph.Graph, order []string, symbols *symtab.Table) *FactSet {
	b := &factSetBuilder{}

	// Phase A: exits come straight from the symbol table, one ExitEdge per
	// resolved destination, regardless of which file declared it.
	symbols.Locations.Each(func(locID string, loc *symtab.LocationSymbol) {
		loc.Exits.Each(func(exitName string, exit *symtab.ExitSymbol) {
			if exit.ResolvedDestination == "" {
				return
			}
			b.pushExit(ExitEdge{
				FromLocation:  locID,
				ToLocation:    exit.ResolvedDestination,
				ExitName:      exitName,
				IsConditional: exit.ConditionNode != nil,
				Span:          exit.DeclaredIn,
			})
		})
	})

	// Phase B: walk AST content in topological file order, tracking the
	// current location/section context as headings and labels are seen.
	for _, path := range order {
		node, ok := g.Nodes[path]
		if !ok {
			continue
		}
		fileStem := graph.FileStem(path)
		ex := &extractor{builder: b, symbols: symbols, fileStem: fileStem}
		for _, n := range node.AST.Content {
			ex.extractTopLevel(n)
		}
	}

	return b.finish()
}

type extractor struct {
	builder          *factSetBuilder
	symbols          *symtab.Table
	fileStem         string
	currentLocation  string
	currentSection   string
}

func (ex *extractor) extractTopLevel(n ast.ContentNode) {
	switch node := n.(type) {
	case *ast.LocationHeading:
		slug := slugify.Slugify(node.DisplayName)
		if ex.symbols.Locations.Contains(slug) {
			ex.currentLocation = slug
		} else {
			ex.currentLocation = ""
		}

	case *ast.SectionLabel:
		lookupKey := ex.fileStem + "/" + node.Name
		if _, ok := ex.symbols.Sections.Get(lookupKey); ok {
			ex.currentSection = lookupKey
		} else {
			ex.currentSection = ""
		}

	case *ast.Choice:
		ex.extractChoice(node, "")

	case *ast.Jump:
		ex.extractJump(node)

	case *ast.ExitDeclaration:
		ex.extractExitGuards(node)

	case *ast.RuleBlock:
		ex.extractRule(node)

	default:
		// Prose, speech, stage directions, conditions outside choices —
		// not facts.
	}
}

// extractChoice registers a ChoiceFact for this choice and recurses into
// its children, including nested choices which get their own fact under
// the same enclosing section. parentID is the compiled id of the
// enclosing choice ("" at top level): LINK registers a nested choice
// under its parent's id, so that scope is searched first.
func (ex *extractor) extractChoice(choice *ast.Choice, parentID string) {
	sectionID := ex.currentSection
	if sectionID == "" {
		sectionID = ex.fileStem // LINK's scope for choices outside any label
	}
	section, ok := ex.symbols.Sections.Get(parentID)
	if !ok {
		section, ok = ex.symbols.Sections.Get(sectionID)
	}
	if !ok {
		return
	}
	var choiceID string
	found := false
	for _, c := range section.Choices {
		if c.Label == choice.Label && c.Sticky == choice.Sticky {
			choiceID = c.CompiledID
			found = true
			break
		}
	}
	if !found {
		return
	}

	site := FactSite{Kind: SiteChoice, ID: choiceID}
	var conditionReads, effectWrites []int

	for _, child := range choice.Content {
		switch c := child.(type) {
		case *ast.Condition:
			if pc, ok := c.Expr.(*ast.PropertyComparison); ok {
				if idx, ok := ex.extractPropertyRead(pc, site); ok {
					conditionReads = append(conditionReads, idx)
				}
			}
		case *ast.OrConditionBlock:
			for _, e := range c.Conditions {
				if pc, ok := e.(*ast.PropertyComparison); ok {
					if idx, ok := ex.extractPropertyRead(pc, site); ok {
						conditionReads = append(conditionReads, idx)
					}
				}
			}
		case *ast.Effect:
			if idx, ok := ex.extractPropertyWrite(c, site); ok {
				effectWrites = append(effectWrites, idx)
			}
		case *ast.Choice:
			ex.extractChoice(c, choiceID)
		case *ast.Jump:
			ex.extractJump(c)
		}
	}

	ex.builder.pushChoice(ChoiceFact{
		Section:        sectionID,
		ChoiceID:       choiceID,
		Label:          choice.Label,
		Sticky:         choice.Sticky,
		ConditionReads: conditionReads,
		EffectWrites:   effectWrites,
		Span:           choice.Span,
	})
}

func (ex *extractor) extractJump(jump *ast.Jump) {
	ann := jump.Annotation
	if ann == nil {
		return
	}
	if ex.currentSection == "" {
		return
	}

	var target JumpTarget
	switch {
	case ann.HasSection():
		target = JumpTarget{Kind: JumpToSection, ID: ann.ResolvedSection}
	case ann.HasLocation():
		exitID := makeExitID(ann.ResolvedLocation, jump.Target)
		if ex.builder.exitExists(exitID) {
			target = JumpTarget{Kind: JumpToExit, ID: exitID}
		} else {
			return // exit destination unresolved, no JumpEdge
		}
	case jump.Target == "end":
		target = JumpTarget{Kind: JumpToEnd}
	default:
		return
	}

	ex.builder.pushJump(JumpEdge{
		FromSection: ex.currentSection,
		Target:      target,
		Span:        jump.Span,
	})
}

func (ex *extractor) extractExitGuards(decl *ast.ExitDeclaration) {
	if ex.currentLocation == "" {
		return
	}
	exitID := makeExitID(ex.currentLocation, decl.Direction)
	var guardReads []int
	for _, child := range decl.Children {
		cond, ok := child.(*ast.Condition)
		if !ok {
			continue
		}
		pc, ok := cond.Expr.(*ast.PropertyComparison)
		if !ok {
			continue
		}
		site := FactSite{Kind: SiteExit, ID: exitID}
		if idx, ok := ex.extractPropertyRead(pc, site); ok {
			guardReads = append(guardReads, idx)
		}
	}
	if len(guardReads) > 0 {
		ex.builder.setExitGuardReads(ex.currentLocation, decl.Direction, guardReads)
	}
}

func (ex *extractor) extractRule(rb *ast.RuleBlock) {
	ruleID := rb.Name
	site := FactSite{Kind: SiteRule, ID: ruleID}
	var conditionReads, effectWrites []int

	for _, e := range rb.WhereClauses {
		if pc, ok := e.(*ast.PropertyComparison); ok {
			if idx, ok := ex.extractPropertyRead(pc, site); ok {
				conditionReads = append(conditionReads, idx)
			}
		}
	}
	if rb.SelectClause != nil {
		for _, e := range rb.SelectClause.WhereClauses {
			if pc, ok := e.(*ast.PropertyComparison); ok {
				if idx, ok := ex.extractPropertyRead(pc, site); ok {
					conditionReads = append(conditionReads, idx)
				}
			}
		}
	}
	for _, eff := range rb.Effects {
		if idx, ok := ex.extractPropertyWrite(eff, site); ok {
			effectWrites = append(effectWrites, idx)
		}
	}

	ex.builder.pushRule(RuleFact{
		RuleID:         ruleID,
		ConditionReads: conditionReads,
		EffectWrites:   effectWrites,
		Span:           rb.Span,
	})
}

func (ex *extractor) extractPropertyRead(pc *ast.PropertyComparison, site FactSite) (int, bool) {
	ann := pc.Annotation
	if ann == nil || !ann.HasProperty() {
		return 0, false
	}
	op, ok := compareOpFromToken(pc.Operator)
	if !ok {
		return 0, false
	}

	valueKind := LiteralStr
	if pt, ok := ex.lookupPropertyType(ann.ResolvedType, ann.ResolvedProperty); ok {
		valueKind = classifyLiteral(pt)
	}

	idx := ex.builder.pushRead(PropertyRead{
		Site:         site,
		EntityType:   ann.ResolvedType,
		Property:     ann.ResolvedProperty,
		Operator:     op,
		ValueLiteral: pc.Value,
		ValueKind:    valueKind,
		Span:         pc.Span,
	})
	return idx, true
}

// extractPropertyWrite only handles SetEffect — lifecycle effects (Move,
// Reveal, Destroy) are out of the FactSet's scope.
func (ex *extractor) extractPropertyWrite(effect *ast.Effect, site FactSite) (int, bool) {
	set, ok := effect.EffectType.(ast.SetEffect)
	if !ok {
		return 0, false
	}
	ann := effect.Annotation
	if ann == nil || !ann.HasProperty() {
		return 0, false
	}
	op, ok := writeOpFromToken(set.Operator)
	if !ok {
		return 0, false
	}

	var valueKind *LiteralKind
	if pt, ok := ex.lookupPropertyType(ann.ResolvedType, ann.ResolvedProperty); ok {
		if k, ok := classifyWriteValueKind(op, set.ValueExpr, pt); ok {
			valueKind = &k
		}
	}

	idx := ex.builder.pushWrite(PropertyWrite{
		Site:       site,
		EntityType: ann.ResolvedType,
		Property:   ann.ResolvedProperty,
		Operator:   op,
		ValueExpr:  set.ValueExpr,
		ValueKind:  valueKind,
		Span:       effect.Span,
	})
	return idx, true
}

func (ex *extractor) lookupPropertyType(entityType, property string) (ast.PropertyType, bool) {
	t, ok := ex.symbols.Types.Get(entityType)
	if !ok {
		return 0, false
	}
	p, ok := t.Properties.Get(property)
	if !ok {
		return 0, false
	}
	return p.PropertyType, true
}

func classifyLiteral(pt ast.PropertyType) LiteralKind {
	switch pt {
	case ast.TypeBoolean:
		return LiteralBool
	case ast.TypeInteger, ast.TypeNumber:
		return LiteralInt
	case ast.TypeEnum:
		return LiteralIdent
	default:
		return LiteralStr // String, Ref, List — fallback
	}
}

func classifyWriteValueKind(op WriteOp, valueExpr string, pt ast.PropertyType) (LiteralKind, bool) {
	switch op {
	case WriteSet:
		return classifyLiteral(pt), true
	case WriteAdd, WriteSub:
		trimmed := strings.TrimSpace(valueExpr)
		if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return LiteralInt, true
		}
		if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return LiteralInt, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// exitExists reports whether an exit with the given composite id has been
// pushed to the builder already (Phase A always runs before Phase B).
func (b *factSetBuilder) exitExists(exitID string) bool {
	for i := range b.exits {
		if b.exits[i].ExitID() == exitID {
			return true
		}
	}
	return false
}
