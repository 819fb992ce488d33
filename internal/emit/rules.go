package emit

import (
	"urd/internal/ast"
	"urd/internal/graph"
	"urd/internal/symtab"
)

func buildRules(g *graph.Graph, order []string, symbols *symtab.Table) *object {
	ruleBlocks := make(map[string]*ast.RuleBlock)
	for _, path := range order {
		node, ok := g.Nodes[path]
		if !ok {
			continue
		}
		for _, content := range node.AST.Content {
			if rb, ok := content.(*ast.RuleBlock); ok {
				ruleBlocks[rb.Name] = rb
			}
		}
	}

	rules := newObject()
	symbols.Rules.Each(func(name string, rs *symtab.RuleSymbol) {
		ruleObj := newObject()

		if rs.Actor != "" {
			ruleObj.set("actor", stripAt(rs.Actor))
		}
		ruleObj.set("trigger", rs.Trigger)

		rb, hasBlock := ruleBlocks[name]
		if hasBlock && len(rb.WhereClauses) > 0 {
			conds := make([]string, len(rb.WhereClauses))
			for i, c := range rb.WhereClauses {
				conds[i] = lowerCondition(c)
			}
			ruleObj.set("conditions", conds)
		}

		if rs.Select != nil {
			selObj := newObject()
			from := make([]string, len(rs.Select.From))
			for i, e := range rs.Select.From {
				from[i] = stripAt(e)
			}
			selObj.set("from", from)
			selObj.set("as", rs.Select.Variable)
			if len(rs.Select.WhereClauses) > 0 {
				whereConds := make([]string, len(rs.Select.WhereClauses))
				for i, c := range rs.Select.WhereClauses {
					whereConds[i] = lowerCondition(c)
				}
				selObj.set("where", whereConds)
			}
			ruleObj.setObject("select", selObj)
		}

		if hasBlock && len(rb.Effects) > 0 {
			effs := make([]*object, len(rb.Effects))
			for i, e := range rb.Effects {
				effs[i] = lowerEffect(e.EffectType, e.Annotation, symbols)
			}
			ruleObj.set("effects", effs)
		}

		rules.setObject(name, ruleObj)
	})
	return rules
}
