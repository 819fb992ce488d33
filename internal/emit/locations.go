package emit

import (
	"strings"

	"urd/internal/ast"
	"urd/internal/graph"
	"urd/internal/slugify"
	"urd/internal/symtab"
)

type exitContent struct {
	condition      string
	blockedMessage string
	effects        []*object
}

func buildLocations(g *graph.Graph, order []string, symbols *symtab.Table) *object {
	descriptions := make(map[string][]string)
	type exitKey struct{ location, direction string }
	exitContents := make(map[exitKey]exitContent)

	for _, path := range order {
		node, ok := g.Nodes[path]
		if !ok {
			continue
		}
		var currentLocID string
		var descBuffer []string
		inDescZone := false

		flush := func() {
			if currentLocID != "" && len(descBuffer) > 0 {
				descriptions[currentLocID] = append(descriptions[currentLocID], descBuffer...)
				descBuffer = nil
			}
		}

		for _, content := range node.AST.Content {
			switch n := content.(type) {
			case *ast.LocationHeading:
				flush()
				currentLocID = slugify.Slugify(n.DisplayName)
				inDescZone = true
				descBuffer = nil

			case *ast.Prose:
				if inDescZone {
					trimmed := strings.TrimSpace(n.Text)
					if trimmed != "" {
						descBuffer = append(descBuffer, trimmed)
					}
				}

			case *ast.ExitDeclaration:
				inDescZone = false
				if currentLocID != "" {
					exitContents[exitKey{currentLocID, n.Direction}] = collectExitContent(n.Children, symbols)
				}

			case *ast.EntityPresence, *ast.SectionLabel, *ast.Choice, *ast.SequenceHeading, *ast.PhaseHeading:
				inDescZone = false

			default:
				// other nodes don't affect the description zone
			}
		}
		flush()
	}

	locations := newObject()
	symbols.Locations.Each(func(id string, ls *symtab.LocationSymbol) {
		locObj := newObject()

		if blocks, ok := descriptions[id]; ok && len(blocks) > 0 {
			locObj.set("description", strings.Join(blocks, "\n\n"))
		}

		if len(ls.Contains) > 0 {
			contains := make([]string, len(ls.Contains))
			for i, e := range ls.Contains {
				contains[i] = stripAt(e)
			}
			locObj.set("contains", contains)
		}

		if ls.Exits.Len() > 0 {
			exits := newObject()
			ls.Exits.Each(func(direction string, es *symtab.ExitSymbol) {
				exitObj := newObject()
				if es.ResolvedDestination != "" {
					exitObj.set("to", es.ResolvedDestination)
				}
				if ec, ok := exitContents[exitKey{id, direction}]; ok {
					if ec.condition != "" {
						exitObj.set("condition", ec.condition)
					}
					if ec.blockedMessage != "" {
						exitObj.set("blocked_message", ec.blockedMessage)
					}
					if len(ec.effects) > 0 {
						exitObj.set("effects", ec.effects)
					}
				}
				exits.setObject(direction, exitObj)
			})
			locObj.setObject("exits", exits)
		}

		locations.setObject(id, locObj)
	})
	return locations
}

func collectExitContent(children []ast.ContentNode, symbols *symtab.Table) exitContent {
	var ec exitContent
	for _, child := range children {
		switch n := child.(type) {
		case *ast.Condition:
			ec.condition = lowerCondition(n.Expr)
		case *ast.BlockedMessage:
			ec.blockedMessage = n.Text
		case *ast.Effect:
			ec.effects = append(ec.effects, lowerEffect(n.EffectType, n.Annotation, symbols))
		}
	}
	return ec
}
