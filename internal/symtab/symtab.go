// Package symtab defines the symbol table built by LINK's collect pass:
// disjoint, insertion-ordered namespaces for types, entities, locations,
// sections, choices, actions, rules, and sequences.
package symtab

import (
	"urd/internal/ast"
	"urd/internal/ordmap"
	"urd/internal/span"
)

// PropertySymbol mirrors ast.PropertyDef after being registered on a type.
type PropertySymbol struct {
	Name           string
	PropertyType   ast.PropertyType
	Default        *ast.Scalar
	Visibility     ast.Visibility
	Values         []string
	Min            *float64
	Max            *float64
	RefType        string
	ElementType    *ast.PropertyType
	ElementValues  []string
	ElementRefType string
	Description    string
	UnrecognizedSpelling string
	DeclaredIn     span.Span
}

// TypeSymbol is a registered `types:` entry.
type TypeSymbol struct {
	Name       string
	Traits     []string
	Properties *ordmap.Map[*PropertySymbol]
	DeclaredIn span.Span
}

// EntitySymbol is a registered `entities:` entry.
type EntitySymbol struct {
	ID                string
	TypeName          string
	TypeResolved      bool
	PropertyOverrides []ast.KV
	DeclaredIn        span.Span
}

// ExitSymbol is one direction entry on a LocationSymbol.
type ExitSymbol struct {
	Direction           string
	Destination         string // raw, pre-slugify text
	ConditionNode       *ast.Condition
	ResolvedDestination string
	DeclaredIn          span.Span
}

// LocationSymbol is a registered location, keyed by its slug.
type LocationSymbol struct {
	ID          string
	DisplayName string
	Contains    []string // ordered, de-duplicated entity ids
	Exits       *ordmap.Map[*ExitSymbol]
	DeclaredIn  span.Span
}

// ChoiceSymbol is one choice registered under a section.
type ChoiceSymbol struct {
	CompiledID string
	Label      string
	Sticky     bool
	DeclaredIn span.Span
}

// SectionSymbol is a registered `== label` section, keyed by compiled id
// ("<file_stem>/<local_name>").
type SectionSymbol struct {
	CompiledID string
	LocalName  string
	Choices    []*ChoiceSymbol
	DeclaredIn span.Span
}

// ActionSymbol is created for every leaf and nested choice at LINK.
type ActionSymbol struct {
	ID         string // == choice.CompiledID
	Target     string
	TargetType string
}

// RuleSymbol is a registered `rule <name>:` block.
type RuleSymbol struct {
	RuleID     string
	Actor      string
	Trigger    string
	Select     *ast.Select
	DeclaredIn span.Span
}

// PhaseSymbol is one phase within a SequenceSymbol.
type PhaseSymbol struct {
	ID      string
	Advance string // "auto" | "manual" | "on_action" | "on_condition <expr>" | "end"
	Action  string
	Actions []string
	Rule    string
}

// SequenceSymbol is a registered sequence, keyed by slug(name).
type SequenceSymbol struct {
	ID     string
	Phases []*PhaseSymbol
}

// DuplicateRecord logs a rejected second declaration of an identifier.
type DuplicateRecord struct {
	Namespace string
	ID        string
	First     span.Span
	Later     span.Span
}

// Table is the symbol table built by LINK's collect pass and consumed
// read-only (except annotation mutation on the owning AST) by every
// later phase.
type Table struct {
	Types     *ordmap.Map[*TypeSymbol]
	Entities  *ordmap.Map[*EntitySymbol]
	Locations *ordmap.Map[*LocationSymbol]
	Sections  *ordmap.Map[*SectionSymbol]
	Actions   *ordmap.Map[*ActionSymbol]
	Rules     *ordmap.Map[*RuleSymbol]
	Sequences *ordmap.Map[*SequenceSymbol]

	WorldStart    string
	WorldStartRaw string // raw declared value, set even when resolution fails
	WorldEntry    string
	WorldEntryRaw string
	WorldName      string
	WorldBlockSpan span.Span
	Duplicates []DuplicateRecord

	// World-level scalar fields held for EMIT.
	WorldVersion     *ast.Scalar
	WorldDescription *ast.Scalar
	WorldAuthor      *ast.Scalar
	WorldSeed        *ast.Scalar
	WorldRawURD      *ast.Scalar
}

// New returns an empty symbol table with all namespaces initialized.
func New() *Table {
	return &Table{
		Types:     ordmap.New[*TypeSymbol](),
		Entities:  ordmap.New[*EntitySymbol](),
		Locations: ordmap.New[*LocationSymbol](),
		Sections:  ordmap.New[*SectionSymbol](),
		Actions:   ordmap.New[*ActionSymbol](),
		Rules:     ordmap.New[*RuleSymbol](),
		Sequences: ordmap.New[*SequenceSymbol](),
	}
}

// AddDuplicate records a rejected redeclaration.
func (t *Table) AddDuplicate(namespace, id string, first, later span.Span) {
	t.Duplicates = append(t.Duplicates, DuplicateRecord{Namespace: namespace, ID: id, First: first, Later: later})
}

// ChoiceByID searches every section for a choice with the given compiled id.
func (t *Table) ChoiceByID(id string) *ChoiceSymbol {
	var found *ChoiceSymbol
	t.Sections.Each(func(_ string, s *SectionSymbol) {
		if found != nil {
			return
		}
		for _, c := range s.Choices {
			if c.CompiledID == id {
				found = c
				return
			}
		}
	})
	return found
}
