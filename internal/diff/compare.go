package diff

import (
	"reflect"
	"sort"

	"github.com/google/go-cmp/cmp"
)

// ChangeEntry is one detected difference between two snapshots.
type ChangeEntry struct {
	Category string `json:"category"`
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Detail   any    `json:"detail"`
}

// Report is the full set of changes between two snapshots, in deterministic
// order: category, then kind (added/removed before any "changed" variant),
// then id lexicographically.
type Report struct {
	Changes []ChangeEntry
}

var categoryOrder = map[string]int{
	"entity":               0,
	"location":             1,
	"exit":                 2,
	"section":              3,
	"choice":               4,
	"rule":                 5,
	"property_dependency":  6,
	"reachability":         7,
}

func categoryRank(c string) int {
	if r, ok := categoryOrder[c]; ok {
		return r
	}
	return 8
}

func kindRank(k string) int {
	switch k {
	case "added":
		return 0
	case "removed":
		return 1
	default:
		return 2
	}
}

// Diff compares two snapshots and returns a deterministically ordered
// change report.
func Diff(a, b *Snapshot) *Report {
	var changes []ChangeEntry

	changes = append(changes, diffEntities(a, b)...)
	changes = append(changes, diffLocations(a, b)...)
	changes = append(changes, diffExits(a, b)...)
	changes = append(changes, diffSections(a, b)...)
	changes = append(changes, diffChoices(a, b)...)
	changes = append(changes, diffRules(a, b)...)
	changes = append(changes, diffProperties(a, b)...)
	changes = append(changes, diffReachability(a, b)...)

	sort.SliceStable(changes, func(i, j int) bool {
		ci, cj := changes[i], changes[j]
		if categoryRank(ci.Category) != categoryRank(cj.Category) {
			return categoryRank(ci.Category) < categoryRank(cj.Category)
		}
		if kindRank(ci.Kind) != kindRank(cj.Kind) {
			return kindRank(ci.Kind) < kindRank(cj.Kind)
		}
		return ci.ID < cj.ID
	})

	return &Report{Changes: changes}
}

// diffKeys returns the sorted union handling: keys only in a (removed),
// only in b (added), and in both (candidates for a "changed" comparator).
func diffKeys(aKeys, bKeys []string) (removed, added, both []string) {
	aSet := make(map[string]bool, len(aKeys))
	for _, k := range aKeys {
		aSet[k] = true
	}
	bSet := make(map[string]bool, len(bKeys))
	for _, k := range bKeys {
		bSet[k] = true
	}
	for _, k := range aKeys {
		if !bSet[k] {
			removed = append(removed, k)
		} else {
			both = append(both, k)
		}
	}
	for _, k := range bKeys {
		if !aSet[k] {
			added = append(added, k)
		}
	}
	return
}

func diffEntities(a, b *Snapshot) []ChangeEntry {
	removed, added, both := diffKeys(a.Entities.Keys(), b.Entities.Keys())
	var out []ChangeEntry
	for _, id := range removed {
		out = append(out, ChangeEntry{Category: "entity", Kind: "removed", ID: id, Detail: map[string]any{}})
	}
	for _, id := range added {
		out = append(out, ChangeEntry{Category: "entity", Kind: "added", ID: id, Detail: map[string]any{}})
	}
	for _, id := range both {
		av, _ := a.Entities.Get(id)
		bv, _ := b.Entities.Get(id)
		if av.Type != bv.Type {
			out = append(out, ChangeEntry{Category: "entity", Kind: "type_changed", ID: id,
				Detail: map[string]any{"before": av.Type, "after": bv.Type}})
		}
		if !cmp.Equal(av.Properties, bv.Properties) {
			out = append(out, ChangeEntry{Category: "entity", Kind: "default_changed", ID: id,
				Detail: map[string]any{"before": av.Properties, "after": bv.Properties}})
		}
		if av.Container != bv.Container {
			out = append(out, ChangeEntry{Category: "entity", Kind: "container_changed", ID: id,
				Detail: map[string]any{"before": av.Container, "after": bv.Container}})
		}
	}
	return out
}

// diffLocations mirrors compare_location's no-op: location-level attribute
// changes surface through entity container changes and exit changes
// instead, so only added/removed locations are reported here.
func diffLocations(a, b *Snapshot) []ChangeEntry {
	removed, added, _ := diffKeys(a.Locations.Keys(), b.Locations.Keys())
	var out []ChangeEntry
	for _, id := range removed {
		out = append(out, ChangeEntry{Category: "location", Kind: "removed", ID: id, Detail: map[string]any{}})
	}
	for _, id := range added {
		out = append(out, ChangeEntry{Category: "location", Kind: "added", ID: id, Detail: map[string]any{}})
	}
	return out
}

func diffExits(a, b *Snapshot) []ChangeEntry {
	removed, added, both := diffKeys(a.Exits.Keys(), b.Exits.Keys())
	var out []ChangeEntry
	for _, id := range removed {
		out = append(out, ChangeEntry{Category: "exit", Kind: "removed", ID: id, Detail: map[string]any{}})
	}
	for _, id := range added {
		out = append(out, ChangeEntry{Category: "exit", Kind: "added", ID: id, Detail: map[string]any{}})
	}
	for _, id := range both {
		av, _ := a.Exits.Get(id)
		bv, _ := b.Exits.Get(id)
		if av.To != bv.To {
			out = append(out, ChangeEntry{Category: "exit", Kind: "target_changed", ID: id,
				Detail: map[string]any{"before": av.To, "after": bv.To}})
		}
		if av.IsConditional != bv.IsConditional || av.GuardCount != bv.GuardCount || !cmp.Equal(av.GuardKeys, bv.GuardKeys) {
			out = append(out, ChangeEntry{Category: "exit", Kind: "condition_changed", ID: id,
				Detail: map[string]any{
					"before": map[string]any{"is_conditional": av.IsConditional, "guard_count": av.GuardCount, "guard_keys": av.GuardKeys},
					"after":  map[string]any{"is_conditional": bv.IsConditional, "guard_count": bv.GuardCount, "guard_keys": bv.GuardKeys},
				}})
		}
	}
	return out
}

func diffSections(a, b *Snapshot) []ChangeEntry {
	removed, added, both := diffKeys(a.Sections.Keys(), b.Sections.Keys())
	var out []ChangeEntry
	for _, id := range removed {
		out = append(out, ChangeEntry{Category: "section", Kind: "removed", ID: id, Detail: map[string]any{}})
	}
	for _, id := range added {
		out = append(out, ChangeEntry{Category: "section", Kind: "added", ID: id, Detail: map[string]any{}})
	}
	for _, id := range both {
		av, _ := a.Sections.Get(id)
		bv, _ := b.Sections.Get(id)
		if !sortedEqual(av.JumpTargets, bv.JumpTargets) {
			out = append(out, ChangeEntry{Category: "section", Kind: "jumps_changed", ID: id,
				Detail: map[string]any{"before": av.JumpTargets, "after": bv.JumpTargets}})
		}
	}
	return out
}

func diffChoices(a, b *Snapshot) []ChangeEntry {
	removed, added, both := diffKeys(a.Choices.Keys(), b.Choices.Keys())
	var out []ChangeEntry
	for _, id := range removed {
		out = append(out, ChangeEntry{Category: "choice", Kind: "removed", ID: id, Detail: map[string]any{}})
	}
	for _, id := range added {
		out = append(out, ChangeEntry{Category: "choice", Kind: "added", ID: id, Detail: map[string]any{}})
	}
	for _, id := range both {
		av, _ := a.Choices.Get(id)
		bv, _ := b.Choices.Get(id)
		if av.Label != bv.Label {
			out = append(out, ChangeEntry{Category: "choice", Kind: "label_changed", ID: id,
				Detail: map[string]any{"before": av.Label, "after": bv.Label}})
		}
		if av.Sticky != bv.Sticky {
			out = append(out, ChangeEntry{Category: "choice", Kind: "sticky_changed", ID: id,
				Detail: map[string]any{"before": av.Sticky, "after": bv.Sticky}})
		}
		if av.ConditionCount != bv.ConditionCount {
			out = append(out, ChangeEntry{Category: "choice", Kind: "guard_changed", ID: id,
				Detail: map[string]any{"before": map[string]any{"condition_count": av.ConditionCount}, "after": map[string]any{"condition_count": bv.ConditionCount}}})
		}
		if av.EffectCount != bv.EffectCount {
			out = append(out, ChangeEntry{Category: "choice", Kind: "effect_changed", ID: id,
				Detail: map[string]any{"before": map[string]any{"effect_count": av.EffectCount}, "after": map[string]any{"effect_count": bv.EffectCount}}})
		}
		if !sortedEqual(av.JumpTargets, bv.JumpTargets) {
			out = append(out, ChangeEntry{Category: "choice", Kind: "target_changed", ID: id,
				Detail: map[string]any{"before": av.JumpTargets, "after": bv.JumpTargets}})
		}
	}
	return out
}

func diffRules(a, b *Snapshot) []ChangeEntry {
	removed, added, both := diffKeys(a.Rules.Keys(), b.Rules.Keys())
	var out []ChangeEntry
	for _, id := range removed {
		out = append(out, ChangeEntry{Category: "rule", Kind: "removed", ID: id, Detail: map[string]any{}})
	}
	for _, id := range added {
		out = append(out, ChangeEntry{Category: "rule", Kind: "added", ID: id, Detail: map[string]any{}})
	}
	for _, id := range both {
		av, _ := a.Rules.Get(id)
		bv, _ := b.Rules.Get(id)
		if av.ConditionCount != bv.ConditionCount {
			out = append(out, ChangeEntry{Category: "rule", Kind: "trigger_changed", ID: id,
				Detail: map[string]any{"condition_count": map[string]any{"before": av.ConditionCount, "after": bv.ConditionCount}}})
		}
		if av.EffectCount != bv.EffectCount {
			out = append(out, ChangeEntry{Category: "rule", Kind: "effect_changed", ID: id,
				Detail: map[string]any{"effect_count": map[string]any{"before": av.EffectCount, "after": bv.EffectCount}}})
		}
	}
	return out
}

func diffProperties(a, b *Snapshot) []ChangeEntry {
	removed, added, both := diffKeys(a.Properties.Keys(), b.Properties.Keys())
	var out []ChangeEntry
	for _, id := range removed {
		out = append(out, ChangeEntry{Category: "property_dependency", Kind: "removed", ID: id, Detail: map[string]any{}})
	}
	for _, id := range added {
		out = append(out, ChangeEntry{Category: "property_dependency", Kind: "added", ID: id, Detail: map[string]any{}})
	}
	for _, id := range both {
		av, _ := a.Properties.Get(id)
		bv, _ := b.Properties.Get(id)
		if bv.ReadCount > av.ReadCount {
			out = append(out, ChangeEntry{Category: "property_dependency", Kind: "reader_added", ID: id,
				Detail: map[string]any{"read_count": map[string]any{"before": av.ReadCount, "after": bv.ReadCount}}})
		} else if bv.ReadCount < av.ReadCount {
			out = append(out, ChangeEntry{Category: "property_dependency", Kind: "reader_removed", ID: id,
				Detail: map[string]any{"read_count": map[string]any{"before": av.ReadCount, "after": bv.ReadCount}}})
		}
		if bv.WriteCount > av.WriteCount {
			out = append(out, ChangeEntry{Category: "property_dependency", Kind: "writer_added", ID: id,
				Detail: map[string]any{"write_count": map[string]any{"before": av.WriteCount, "after": bv.WriteCount}}})
		} else if bv.WriteCount < av.WriteCount {
			out = append(out, ChangeEntry{Category: "property_dependency", Kind: "writer_removed", ID: id,
				Detail: map[string]any{"write_count": map[string]any{"before": av.WriteCount, "after": bv.WriteCount}}})
		}
		if av.Orphaned != bv.Orphaned {
			out = append(out, ChangeEntry{Category: "property_dependency", Kind: "orphan_status_changed", ID: id,
				Detail: map[string]any{"before": av.Orphaned, "after": bv.Orphaned}})
		}
	}
	return out
}

// diffReachability compares the two snapshots' diagnostic_keys sets. A key
// present only in b is a regression just introduced; present only in a is
// a prior problem just resolved.
func diffReachability(a, b *Snapshot) []ChangeEntry {
	aSet := make(map[DiagnosticKey]bool, len(a.DiagnosticKeys))
	for _, k := range a.DiagnosticKeys {
		aSet[k] = true
	}
	bSet := make(map[DiagnosticKey]bool, len(b.DiagnosticKeys))
	for _, k := range b.DiagnosticKeys {
		bSet[k] = true
	}

	var out []ChangeEntry
	for _, k := range b.DiagnosticKeys {
		if aSet[k] {
			continue
		}
		kind, elementType, ok := reachabilityRegressionKind(k.Code)
		if !ok {
			continue
		}
		out = append(out, ChangeEntry{Category: "reachability", Kind: kind, ID: k.TargetID,
			Detail: map[string]any{"element_type": elementType}})
	}
	for _, k := range a.DiagnosticKeys {
		if bSet[k] {
			continue
		}
		kind, elementType, ok := reachabilityResolutionKind(k.Code)
		if !ok {
			continue
		}
		out = append(out, ChangeEntry{Category: "reachability", Kind: kind, ID: k.TargetID,
			Detail: map[string]any{"element_type": elementType}})
	}
	return out
}

func reachabilityRegressionKind(code string) (kind, elementType string, ok bool) {
	switch code {
	case "URD430":
		return "became_unreachable", "location", true
	case "URD432":
		return "choice_became_impossible", "section", true
	default:
		return "", "", false
	}
}

func reachabilityResolutionKind(code string) (kind, elementType string, ok bool) {
	switch code {
	case "URD430":
		return "became_reachable", "location", true
	case "URD432":
		return "choice_became_possible", "section", true
	default:
		return "", "", false
	}
}

// sortedEqual compares two string slices as sets-with-original-order: the
// comparator decides equality on a sorted copy (so jump reordering alone
// isn't a change) while change details above still show the original,
// unsorted slices.
func sortedEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	ac := append([]string(nil), a...)
	bc := append([]string(nil), b...)
	sort.Strings(ac)
	sort.Strings(bc)
	return reflect.DeepEqual(ac, bc)
}
