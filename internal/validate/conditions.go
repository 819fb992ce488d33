package validate

import (
	"urd/internal/ast"
	"urd/internal/diag"
	"urd/internal/span"
	"urd/internal/symtab"
)

type contentValidator struct {
	symbols *symtab.Table
	diags   *diag.Collector
}

// walk descends one file's top-level content, tracking choice nesting
// depth (1 for a top-level choice) to enforce the 1–2/3/>=4 rule.
func (v *contentValidator) walk(n ast.ContentNode, choiceDepth int) {
	switch node := n.(type) {
	case *ast.Choice:
		depth := choiceDepth + 1
		switch {
		case depth == maxChoiceDepthWarn:
			v.diags.Warnf("URD410", node.Span, "choice nesting reaches depth 3")
		case depth >= maxChoiceDepthError:
			v.diags.Errorf("URD410", node.Span, "choice nesting reaches depth 4 or deeper")
		}
		for _, child := range node.Content {
			v.walk(child, depth)
		}

	case *ast.ExitDeclaration:
		for _, child := range node.Children {
			v.walk(child, choiceDepth)
		}

	case *ast.Condition:
		v.checkConditionExpr(node.Expr)

	case *ast.OrConditionBlock:
		for _, e := range node.Conditions {
			v.checkConditionExpr(e)
		}

	case *ast.Effect:
		v.checkEffect(node.EffectType, node.Annotation, node.Span)

	case *ast.RuleBlock:
		if node.SelectClause != nil {
			for _, e := range node.SelectClause.WhereClauses {
				v.checkConditionExpr(e)
			}
		}
		for _, e := range node.WhereClauses {
			v.checkConditionExpr(e)
		}
		for _, eff := range node.Effects {
			v.checkEffect(eff.EffectType, eff.Annotation, eff.Span)
		}
	}
}

var orderingOps = map[string]bool{"<": true, ">": true, "<=": true, ">=": true}

func (v *contentValidator) checkConditionExpr(expr ast.ConditionExpr) {
	switch e := expr.(type) {
	case *ast.PropertyComparison:
		if !e.Annotation.HasProperty() {
			return
		}
		ps, ok := v.lookupProperty(e.Annotation.ResolvedType, e.Annotation.ResolvedProperty)
		if !ok {
			return
		}
		if orderingOps[e.Operator] && (ps.PropertyType == ast.TypeEnum || ps.PropertyType == ast.TypeBoolean) {
			v.diags.Errorf("URD420", e.Span, "ordering operator '"+e.Operator+"' used on enum or boolean property '"+e.Property+"'")
		}
		v.checkLiteralAgainstProperty(ps, e.Value, e.Span)

	case *ast.ContainmentCheck:
		if e.Annotation == nil || e.Annotation.ContainerKind == nil {
			return
		}
		v.checkContainerTrait(e.Annotation.ContainerKind, e.Span)
	}
}

func (v *contentValidator) checkEffect(effectType ast.EffectType, annotation *ast.Annotation, sp span.Span) {
	switch eff := effectType.(type) {
	case ast.SetEffect:
		if !annotation.HasProperty() {
			return
		}
		ps, ok := v.lookupProperty(annotation.ResolvedType, annotation.ResolvedProperty)
		if !ok {
			return
		}
		if eff.Operator == "+" || eff.Operator == "-" {
			if ps.PropertyType != ast.TypeInteger && ps.PropertyType != ast.TypeNumber {
				v.diags.Errorf("URD424", sp, "arithmetic operator '"+eff.Operator+"' used on non-numeric property")
			}
		}
		v.checkLiteralAgainstProperty(ps, eff.ValueExpr, sp)

	case ast.RevealEffect:
		if !annotation.HasProperty() {
			return
		}
		ps, ok := v.lookupProperty(annotation.ResolvedType, annotation.ResolvedProperty)
		if !ok {
			return
		}
		if ps.Visibility != ast.Hidden {
			v.diags.Warnf("URD426", sp, "reveal on property '"+ps.Name+"' that is not hidden")
		}

	case ast.MoveEffect:
		if annotation == nil {
			return
		}
		if annotation.HasEntity() {
			if ts, ok := v.entityType(annotation.ResolvedEntity); ok && !hasTrait(ts.Traits, "portable") {
				v.diags.Errorf("URD425", sp, "move of entity '"+annotation.ResolvedEntity+"' lacking the portable trait")
			}
		}
		if annotation.DestinationKind != nil {
			v.checkDestinationTrait(annotation.DestinationKind, sp)
		}

	case ast.DestroyEffect:
		// Destroy has no type-level constraint beyond entity resolution,
		// already checked at LINK.
	}
}

func (v *contentValidator) lookupProperty(typeName, propName string) (*symtab.PropertySymbol, bool) {
	if propName == "container" {
		return nil, false // implicit property, no declared PropertySymbol to check
	}
	ts, ok := v.symbols.Types.Get(typeName)
	if !ok {
		return nil, false
	}
	return ts.Properties.Get(propName)
}

func (v *contentValidator) entityType(entityID string) (*symtab.TypeSymbol, bool) {
	es, ok := v.symbols.Entities.Get(entityID)
	if !ok || !es.TypeResolved {
		return nil, false
	}
	return v.symbols.Types.Get(es.TypeName)
}

func (v *contentValidator) checkLiteralAgainstProperty(ps *symtab.PropertySymbol, literal string, sp span.Span) {
	kind := classifyLiteral(literal)
	if kind == literalRef {
		return // references another property; not a literal-typing concern here
	}
	switch ps.PropertyType {
	case ast.TypeBoolean:
		if kind != literalBool {
			v.diags.Errorf("URD401", sp, "value '"+literal+"' does not match property type of '"+ps.Name+"'")
		}
	case ast.TypeInteger:
		if kind != literalInt {
			v.diags.Errorf("URD401", sp, "value '"+literal+"' does not match property type of '"+ps.Name+"'")
		}
	case ast.TypeNumber:
		if kind != literalInt && kind != literalNumber {
			v.diags.Errorf("URD401", sp, "value '"+literal+"' does not match property type of '"+ps.Name+"'")
		}
	case ast.TypeString:
		if kind == literalBool {
			v.diags.Errorf("URD401", sp, "value '"+literal+"' does not match property type of '"+ps.Name+"'")
		}
	case ast.TypeEnum:
		if kind == literalBareword && len(ps.Values) > 0 && !stringSliceContains(ps.Values, literal) {
			v.diags.Errorf("URD402", sp, "value '"+literal+"' is not a declared enum value for '"+ps.Name+"'")
		}
	}
}

// checkContainerTrait enforces 422 for ContainmentCheck targets:
// keyword containers (player/here) always skip the check; locations
// are implicit containers; entities require the explicit container
// trait.
func (v *contentValidator) checkContainerTrait(ck *ast.ContainerKind, sp span.Span) {
	if ck.Tag != ast.ContainerEntityRef {
		return
	}
	if ts, ok := v.entityType(ck.ID); ok && !hasTrait(ts.Traits, "container") {
		v.diags.Errorf("URD422", sp, "containment target '"+ck.ID+"' lacks the container trait")
	}
}

func (v *contentValidator) checkDestinationTrait(dk *ast.DestinationKind, sp span.Span) {
	if dk.Tag != ast.DestinationEntityRef {
		return
	}
	if ts, ok := v.entityType(dk.ID); ok && !hasTrait(ts.Traits, "container") {
		v.diags.Errorf("URD422", sp, "move destination '"+dk.ID+"' lacks the container trait")
	}
}
