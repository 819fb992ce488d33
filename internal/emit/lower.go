package emit

import (
	"strconv"
	"strings"

	"urd/internal/ast"
	"urd/internal/symtab"
)

// lowerCondition renders a resolved ConditionExpr as the narrative
// condition string the runtime evaluates: "entity.property op value",
// "entity.container == container", or "section.exhausted".
func lowerCondition(expr ast.ConditionExpr) string {
	switch e := expr.(type) {
	case *ast.PropertyComparison:
		return stripAt(e.EntityRef) + "." + e.Property + " " + e.Operator + " " + e.Value

	case *ast.ContainmentCheck:
		entity := stripAt(e.EntityRef)
		op := "=="
		if e.Negated {
			op = "!="
		}
		container := resolveContainerString(e.Annotation, e.ContainerRef)
		return entity + ".container " + op + " " + container

	case *ast.ExhaustionCheck:
		sectionID := e.SectionName
		if e.Annotation != nil && e.Annotation.HasSection() {
			sectionID = e.Annotation.ResolvedSection
		}
		return sectionID + ".exhausted"

	default:
		return ""
	}
}

func resolveContainerString(ann *ast.Annotation, raw string) string {
	if ann != nil && ann.ContainerKind != nil {
		switch ann.ContainerKind.Tag {
		case ast.ContainerKeywordPlayer:
			return "player"
		case ast.ContainerKeywordHere:
			return "player.container"
		case ast.ContainerEntityRef:
			return stripAt(ann.ContainerKind.ID)
		case ast.ContainerLocationRef:
			return ann.ContainerKind.ID
		}
	}
	return stripAt(raw) // fallback, shouldn't happen once LINK has run
}

// lowerEffect renders a resolved EffectType as its output object.
func lowerEffect(effectType ast.EffectType, annotation *ast.Annotation, symbols *symtab.Table) *object {
	switch eff := effectType.(type) {
	case ast.SetEffect:
		entityID, propName := "", ""
		if annotation != nil {
			entityID = stripAt(annotation.ResolvedEntity)
			propName = annotation.ResolvedProperty
		}
		target := entityID + "." + propName

		obj := newObject()
		obj.set("set", target)
		if eff.Operator == "+" || eff.Operator == "-" {
			obj.set("to", target+" "+eff.Operator+" "+eff.ValueExpr)
		} else {
			var typeName string
			if annotation != nil {
				typeName = annotation.ResolvedType
			}
			obj.setRaw("to", mustMarshal(typedValue(eff.ValueExpr, typeName, propName, symbols)))
		}
		return obj

	case ast.MoveEffect:
		entityID := ""
		if annotation != nil {
			entityID = stripAt(annotation.ResolvedEntity)
		}
		destination := ""
		if annotation != nil && annotation.DestinationKind != nil {
			switch annotation.DestinationKind.Tag {
			case ast.DestinationKeywordPlayer:
				destination = "player"
			case ast.DestinationKeywordHere:
				destination = "player.container"
			case ast.DestinationEntityRef:
				destination = stripAt(annotation.DestinationKind.ID)
			case ast.DestinationLocationRef:
				destination = annotation.DestinationKind.ID
			}
		}
		obj := newObject()
		obj.set("move", entityID)
		obj.set("to", destination)
		return obj

	case ast.RevealEffect:
		entityID, propName := "", ""
		if annotation != nil {
			entityID = stripAt(annotation.ResolvedEntity)
			propName = annotation.ResolvedProperty
		}
		obj := newObject()
		obj.set("reveal", entityID+"."+propName)
		return obj

	case ast.DestroyEffect:
		entityID := ""
		if annotation != nil {
			entityID = stripAt(annotation.ResolvedEntity)
		}
		obj := newObject()
		obj.set("destroy", entityID)
		return obj

	default:
		return newObject()
	}
}

// typedValue converts a raw value expression string to a typed JSON value
// by looking up the property's declared type, falling back to a bare
// string when the type is unknown or the expression doesn't parse.
func typedValue(valueExpr, typeName, propName string, symbols *symtab.Table) any {
	var propType ast.PropertyType
	found := false
	if typeName != "" {
		if ts, ok := symbols.Types.Get(typeName); ok {
			if ps, ok := ts.Properties.Get(propName); ok {
				propType = ps.PropertyType
				found = true
			}
		}
	}
	if !found {
		return valueExpr
	}

	switch propType {
	case ast.TypeBoolean:
		switch valueExpr {
		case "true":
			return true
		case "false":
			return false
		default:
			return valueExpr
		}
	case ast.TypeInteger:
		if i, err := strconv.ParseInt(strings.TrimSpace(valueExpr), 10, 64); err == nil {
			return i
		}
		return valueExpr
	case ast.TypeNumber:
		if n, err := strconv.ParseFloat(strings.TrimSpace(valueExpr), 64); err == nil {
			return numberJSON(n)
		}
		return valueExpr
	default:
		// Enum, String, Ref, List, or unknown: emit as string.
		return valueExpr
	}
}
