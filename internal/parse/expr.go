package parse

import (
	"strings"

	"urd/internal/ast"
	"urd/internal/span"
)

var comparisonOps = []string{"==", "!=", ">=", "<=", ">", "<"}

// parseConditionExpr parses the text following a `?` sigil (or a bare
// OrConditionBlock child line) into a ConditionExpr, returning nil when
// the text matches none of the recognised shapes.
func parseConditionExpr(expr string, sp span.Span) ast.ConditionExpr {
	expr = strings.TrimSpace(expr)

	if strings.HasSuffix(expr, ".exhausted") {
		section := expr[:len(expr)-len(".exhausted")]
		return &ast.ExhaustionCheck{SectionName: section, Span: sp}
	}

	if strings.HasPrefix(expr, "@") {
		return parseEntityConditionExpr(expr[1:], sp)
	}

	// Reserved bare identifiers resolve at runtime but parse here like
	// an entity reference without the `@` sigil.
	if strings.HasPrefix(expr, "target") || strings.HasPrefix(expr, "player") {
		name := "target"
		if strings.HasPrefix(expr, "player") {
			name = "player"
		}
		if pc := parseEntityConditionExpr(expr[len(name):], sp); pc != nil {
			if cmp, ok := pc.(*ast.PropertyComparison); ok {
				cmp.EntityRef = name
				return cmp
			}
		}
	}

	return nil
}

// parseEntityConditionExpr parses the portion of a condition expression
// after a resolved identifier (either an `@entity` sigil stripped off,
// or a bare reserved name): `.property OP value`, ` in container`, or
// ` not in container`.
func parseEntityConditionExpr(rest string, sp span.Span) ast.ConditionExpr {
	idEnd := 0
	for idEnd < len(rest) && isAlnumOrUnderscore(rest[idEnd]) {
		idEnd++
	}
	entity := rest[:idEnd]
	afterEntity := strings.TrimSpace(rest[idEnd:])

	if strings.HasPrefix(afterEntity, "not in ") {
		return &ast.ContainmentCheck{EntityRef: entity, ContainerRef: strings.TrimSpace(afterEntity[len("not in "):]), Negated: true, Span: sp}
	}
	if strings.HasPrefix(afterEntity, "in ") {
		return &ast.ContainmentCheck{EntityRef: entity, ContainerRef: strings.TrimSpace(afterEntity[len("in "):]), Negated: false, Span: sp}
	}

	dotPos := -1
	if idEnd < len(rest) && rest[idEnd] == '.' {
		dotPos = idEnd
	} else if p := strings.IndexByte(entity, '.'); p >= 0 {
		dotPos = p
	}
	if dotPos < 0 {
		return nil
	}

	var entityRef, remaining string
	if dotPos < idEnd {
		entityRef = rest[:dotPos]
		remaining = rest[dotPos+1:]
	} else {
		entityRef = rest[:idEnd]
		remaining = rest[idEnd+1:]
	}

	for _, op := range comparisonOps {
		if opPos := strings.Index(remaining, op); opPos >= 0 {
			property := strings.TrimSpace(remaining[:opPos])
			value := strings.TrimSpace(remaining[opPos+len(op):])
			if property != "" {
				return &ast.PropertyComparison{EntityRef: entityRef, Property: property, Operator: op, Value: value, Span: sp}
			}
		}
	}
	return nil
}

// parseEffectType parses the text following a `>` sigil into an
// EffectType, falling back to an empty Set when nothing else matches.
func parseEffectType(text string) ast.EffectType {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "move ") {
		rest := text[len("move "):]
		if strings.HasPrefix(rest, "@") {
			afterAt := rest[1:]
			if arrowPos := strings.Index(afterAt, " -> "); arrowPos >= 0 {
				return ast.MoveEffect{
					EntityRef:      strings.TrimSpace(afterAt[:arrowPos]),
					DestinationRef: strings.TrimSpace(afterAt[arrowPos+4:]),
				}
			}
		}
	}

	if strings.HasPrefix(text, "reveal ") {
		return ast.RevealEffect{TargetProp: strings.TrimSpace(text[len("reveal "):])}
	}

	if strings.HasPrefix(text, "destroy ") {
		rest := strings.TrimSpace(text[len("destroy "):])
		rest = strings.TrimPrefix(rest, "@")
		return ast.DestroyEffect{EntityRef: rest}
	}

	for _, opStr := range []string{" = ", " + ", " - "} {
		if opPos := strings.Index(text, opStr); opPos >= 0 {
			return ast.SetEffect{
				TargetProp: strings.TrimSpace(text[:opPos]),
				Operator:   strings.TrimSpace(opStr),
				ValueExpr:  strings.TrimSpace(text[opPos+len(opStr):]),
			}
		}
	}

	return ast.SetEffect{TargetProp: text, Operator: "=", ValueExpr: ""}
}
