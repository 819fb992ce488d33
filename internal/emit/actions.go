package emit

import (
	"urd/internal/ast"
	"urd/internal/graph"
	"urd/internal/slugify"
	"urd/internal/symtab"
)

func buildActions(g *graph.Graph, order []string, symbols *symtab.Table) *object {
	choiceNodes := make(map[string]*ast.Choice)
	for _, path := range order {
		node, ok := g.Nodes[path]
		if !ok {
			continue
		}
		stem := graph.FileStem(path)
		var currentSectionID string
		for _, content := range node.AST.Content {
			switch n := content.(type) {
			case *ast.SectionLabel:
				currentSectionID = stem
				if n.Name != "" {
					currentSectionID = stem + "/" + n.Name
				}
			case *ast.LocationHeading:
				currentSectionID = ""
			case *ast.Choice:
				scopeID := currentSectionID
				if scopeID == "" {
					scopeID = stem
				}
				collectChoiceNodes(n, scopeID, choiceNodes)
			}
		}
	}

	actions := newObject()
	symbols.Actions.Each(func(id string, as *symtab.ActionSymbol) {
		actionObj := newObject()
		if as.Target != "" {
			actionObj.set("target", stripAt(as.Target))
		}
		if as.TargetType != "" {
			actionObj.set("target_type", as.TargetType)
		}
		if choice, ok := choiceNodes[id]; ok {
			conds, effs := collectChoiceConditionsEffects(choice, symbols)
			if conds != nil {
				actionObj.setRaw("conditions", mustMarshal(conds))
			}
			actionObj.set("effects", effs)
		}
		actions.setObject(id, actionObj)
	})
	return actions
}

// collectChoiceNodes mirrors LINK's registerChoice recursion exactly:
// a nested choice compiles under its parent choice's id, not the
// enclosing section directly.
func collectChoiceNodes(choice *ast.Choice, scopeID string, out map[string]*ast.Choice) {
	compiledID := scopeID + "/" + slugify.Slugify(choice.Label)
	out[compiledID] = choice

	for _, child := range choice.Content {
		if sub, ok := child.(*ast.Choice); ok {
			collectChoiceNodes(sub, compiledID, out)
		}
	}
}

// collectChoiceConditionsEffects gathers a single choice's direct
// conditions/effects, returning the conditions value (any, possibly nil)
// and a (never-nil) effects list.
func collectChoiceConditionsEffects(choice *ast.Choice, symbols *symtab.Table) (any, []*object) {
	var andConditions []string
	var orConditions []string
	hasOr := false
	effects := []*object{}

	for _, child := range choice.Content {
		switch n := child.(type) {
		case *ast.Condition:
			andConditions = append(andConditions, lowerCondition(n.Expr))
		case *ast.OrConditionBlock:
			hasOr = true
			orConditions = make([]string, len(n.Conditions))
			for i, c := range n.Conditions {
				orConditions[i] = lowerCondition(c)
			}
		case *ast.Effect:
			effects = append(effects, lowerEffect(n.EffectType, n.Annotation, symbols))
		}
	}

	return buildConditionsValue(andConditions, orConditions, hasOr), effects
}

// buildConditionsValue mirrors the "any" wrapper vs. plain AND-list
// shape shared by exits, actions, and section/choice conditions.
func buildConditionsValue(andConditions, orConditions []string, hasOr bool) any {
	if hasOr && len(orConditions) > 0 {
		obj := newObject()
		obj.set("any", orConditions)
		return obj
	}
	if len(andConditions) > 0 {
		return andConditions
	}
	return nil
}
