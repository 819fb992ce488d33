// Package diff implements a normalized, comparable snapshot of a compiled
// world and the engine that compares two snapshots into a deterministic,
// categorized change report. Snapshots can be built from a live compilation
// or loaded back from a previously saved file, so a world can be diffed
// against its own history.
package diff

import "urd/internal/ordmap"

// EntitySnapshot is the comparable projection of one entities: entry.
type EntitySnapshot struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
	Container  string            `json:"container"` // location id, "" if none
}

// LocationSnapshot is the comparable projection of one locations: entry.
// Description text is intentionally not captured: prose wording changes
// constantly and carries no structural signal.
type LocationSnapshot struct {
	DisplayName string   `json:"display_name"`
	EntityIDs   []string `json:"entity_ids"`
}

// ExitSnapshot is one location exit. GuardKeys is the sorted set of
// "EntityType.Property" pairs the exit's guard reads from — tracked
// separately from GuardCount so that swapping which property a guard
// reads (without changing how many reads there are) still registers as
// a condition change.
type ExitSnapshot struct {
	From          string   `json:"from"`
	To            string   `json:"to"`
	IsConditional bool     `json:"is_conditional"`
	GuardCount    int      `json:"guard_count"`
	GuardKeys     []string `json:"guard_keys"`
}

// SectionSnapshot is one dialogue section.
type SectionSnapshot struct {
	ChoiceIDs   []string `json:"choice_ids"`
	JumpTargets []string `json:"jump_targets"`
}

// ChoiceSnapshot is one choice, keyed by its compiled id.
type ChoiceSnapshot struct {
	Label          string   `json:"label"`
	Sticky         bool     `json:"sticky"`
	ConditionCount int      `json:"condition_count"`
	EffectCount    int      `json:"effect_count"`
	JumpTargets    []string `json:"jump_targets"`
}

// RuleSnapshot is one rule block.
type RuleSnapshot struct {
	ConditionCount int `json:"condition_count"`
	EffectCount    int `json:"effect_count"`
}

// PropertySnapshot is one (entity_type, property) pair's read/write shape.
// Orphaned is "read_never_written" or "written_never_read" when exactly one
// side is empty, "" otherwise. Keyed in the parent Snapshot as "Type.property".
type PropertySnapshot struct {
	ReadCount  int    `json:"read_count"`
	WriteCount int    `json:"write_count"`
	Orphaned   string `json:"orphaned"`
}

// DiagnosticKey identifies one reachability diagnostic by code and target,
// used to detect a location/section flipping reachable <-> unreachable
// between two compilations.
type DiagnosticKey struct {
	Code     string `json:"code"`
	TargetID string `json:"target_id"`
}

// SnapshotVersion is the only urd_snapshot value this package accepts.
const SnapshotVersion = "1"

// Snapshot is the full normalized projection of one compilation, built
// either by BuildSnapshot (from a live FactSet/symbol table) or by
// ParseSnapshot (from a previously saved urd_snapshot file).
type Snapshot struct {
	WorldName      string
	Entities       *ordmap.Map[EntitySnapshot]
	Locations      *ordmap.Map[LocationSnapshot]
	Exits          *ordmap.Map[ExitSnapshot]
	Sections       *ordmap.Map[SectionSnapshot]
	Choices        *ordmap.Map[ChoiceSnapshot]
	Rules          *ordmap.Map[RuleSnapshot]
	Properties     *ordmap.Map[PropertySnapshot]
	DiagnosticKeys []DiagnosticKey
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		Entities:   ordmap.New[EntitySnapshot](),
		Locations:  ordmap.New[LocationSnapshot](),
		Exits:      ordmap.New[ExitSnapshot](),
		Sections:   ordmap.New[SectionSnapshot](),
		Choices:    ordmap.New[ChoiceSnapshot](),
		Rules:      ordmap.New[RuleSnapshot](),
		Properties: ordmap.New[PropertySnapshot](),
	}
}
