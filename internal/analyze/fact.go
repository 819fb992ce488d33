// Package analyze implements ANALYZE: extraction of a normalized, flat
// FactSet from the linked AST and symbol table, plus the derived
// PropertyDependencyIndex. Read-only, deterministic, and additive — its
// diagnostics are advisories that never block EMIT.
package analyze

import "urd/internal/span"

// CompareOp is the normalized form of a PropertyComparison operator.
type CompareOp int

const (
	CompareEq CompareOp = iota
	CompareNe
	CompareLt
	CompareGt
	CompareLe
	CompareGe
)

func compareOpFromToken(tok string) (CompareOp, bool) {
	switch tok {
	case "==":
		return CompareEq, true
	case "!=":
		return CompareNe, true
	case "<":
		return CompareLt, true
	case ">":
		return CompareGt, true
	case "<=":
		return CompareLe, true
	case ">=":
		return CompareGe, true
	default:
		return 0, false
	}
}

// WriteOp is the normalized form of a Set effect operator.
type WriteOp int

const (
	WriteSet WriteOp = iota
	WriteAdd
	WriteSub
)

func writeOpFromToken(tok string) (WriteOp, bool) {
	switch tok {
	case "=":
		return WriteSet, true
	case "+":
		return WriteAdd, true
	case "-":
		return WriteSub, true
	default:
		return 0, false
	}
}

// LiteralKind classifies the shape of a literal value carried by a fact.
type LiteralKind int

const (
	LiteralBool LiteralKind = iota
	LiteralInt
	LiteralStr
	LiteralIdent
)

// SiteKind distinguishes which fact list a FactSite anchors into.
type SiteKind int

const (
	SiteChoice SiteKind = iota
	SiteExit
	SiteRule
)

// FactSite identifies the owner of a condition-read or effect-write: a
// choice, an exit, or a rule, by its compiled id.
type FactSite struct {
	Kind SiteKind
	ID   string
}

// JumpTargetKind distinguishes the three forms a resolved jump may take.
type JumpTargetKind int

const (
	JumpToSection JumpTargetKind = iota
	JumpToExit
	JumpToEnd
)

// JumpTarget is the normalized destination of a JumpEdge.
type JumpTarget struct {
	Kind JumpTargetKind
	ID   string // section id or "location/exit" exit id; empty for JumpToEnd
}

// PropertyKey is the (entity_type, property) pair used to index reads and
// writes for dependency queries.
type PropertyKey struct {
	EntityType string
	Property   string
}

// PropertyRead is a single resolved PropertyComparison, tied to the site
// (choice/exit/rule) that guards on it.
type PropertyRead struct {
	Site         FactSite
	EntityType   string
	Property     string
	Operator     CompareOp
	ValueLiteral string
	ValueKind    LiteralKind
	Span         span.Span
}

func (r *PropertyRead) Key() PropertyKey {
	return PropertyKey{EntityType: r.EntityType, Property: r.Property}
}

// PropertyWrite is a single resolved Set effect, tied to its owning site.
type PropertyWrite struct {
	Site       FactSite
	EntityType string
	Property   string
	Operator   WriteOp
	ValueExpr  string
	ValueKind  *LiteralKind
	Span       span.Span
}

func (w *PropertyWrite) Key() PropertyKey {
	return PropertyKey{EntityType: w.EntityType, Property: w.Property}
}

// ExitEdge is a resolved location exit, with guard_reads populated after
// its ExitDeclaration's children (if any) are walked.
type ExitEdge struct {
	FromLocation  string
	ToLocation    string
	ExitName      string
	IsConditional bool
	GuardReads    []int
	Span          span.Span
}

// ExitID returns the composite "location/exit_name" identifier.
func (e *ExitEdge) ExitID() string { return makeExitID(e.FromLocation, e.ExitName) }

// JumpEdge is a resolved Jump, always anchored to its enclosing section.
type JumpEdge struct {
	FromSection string
	Target      JumpTarget
	Span        span.Span
}

// ChoiceFact is one Choice (including nested choices, which get their own
// fact keyed under the same enclosing section).
type ChoiceFact struct {
	Section        string
	ChoiceID       string
	Label          string
	Sticky         bool
	ConditionReads []int
	EffectWrites   []int
	Span           span.Span
}

// RuleFact is one rule block.
type RuleFact struct {
	RuleID         string
	ConditionReads []int
	EffectWrites   []int
	Span           span.Span
}

// makeExitID builds the composite exit identifier shared with symtab/link.
func makeExitID(locationID, exitName string) string {
	return locationID + "/" + exitName
}

// splitExitID reverses makeExitID, splitting on the first slash.
func splitExitID(exitID string) (location, exit string, ok bool) {
	for i := 0; i < len(exitID); i++ {
		if exitID[i] == '/' {
			return exitID[:i], exitID[i+1:], true
		}
	}
	return "", "", false
}
