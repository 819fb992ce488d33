package diff

import (
	"sort"
	"strconv"

	"urd/internal/analyze"
	"urd/internal/ast"
	"urd/internal/diag"
	"urd/internal/graph"
	"urd/internal/slugify"
	"urd/internal/symtab"
)

// BuildSnapshot projects a finished ANALYZE pass into a Snapshot. Unlike the
// Rust original, entity/location data is read directly off the symbol
// table rather than re-parsed out of the emitted world JSON — the symbol
// table already holds fully resolved values, so re-parsing would just be
// EMIT's own work done twice (the same reasoning EMIT's buildWorld applies
// to the frontmatter).
func BuildSnapshot(worldName string, g *graph.Graph, order []string, symbols *symtab.Table, facts *analyze.FactSet, idx *analyze.PropertyDependencyIndex, diags *diag.Collector) *Snapshot {
	snap := newSnapshot()
	snap.WorldName = worldName

	container := make(map[string]string)
	symbols.Locations.Each(func(locID string, ls *symtab.LocationSymbol) {
		for _, entityID := range ls.Contains {
			container[entityID] = locID
		}
	})

	symbols.Entities.Each(func(id string, es *symtab.EntitySymbol) {
		props := make(map[string]string, len(es.PropertyOverrides))
		for _, kv := range es.PropertyOverrides {
			props[kv.Key] = scalarString(&kv.Value)
		}
		snap.Entities.Set(id, EntitySnapshot{
			Type:       es.TypeName,
			Properties: props,
			Container:  container[id],
		})
	})

	symbols.Locations.Each(func(id string, ls *symtab.LocationSymbol) {
		ids := make([]string, len(ls.Contains))
		copy(ids, ls.Contains)
		snap.Locations.Set(id, LocationSnapshot{DisplayName: ls.DisplayName, EntityIDs: ids})
	})

	reads := facts.Reads()
	for _, e := range facts.Exits() {
		guardKeys := make([]string, 0, len(e.GuardReads))
		for _, idx := range e.GuardReads {
			if idx >= 0 && idx < len(reads) {
				k := reads[idx].Key()
				guardKeys = append(guardKeys, k.EntityType+"."+k.Property)
			}
		}
		sort.Strings(guardKeys)
		snap.Exits.Set(e.ExitID(), ExitSnapshot{
			From:          e.FromLocation,
			To:            e.ToLocation,
			IsConditional: e.IsConditional,
			GuardCount:    len(e.GuardReads),
			GuardKeys:     guardKeys,
		})
	}

	sectionJumps := make(map[string][]string)
	for _, j := range facts.Jumps() {
		sectionJumps[j.FromSection] = append(sectionJumps[j.FromSection], jumpTargetToString(j.Target))
	}

	choiceJumps := collectChoiceJumps(g, order, symbols)

	symbols.Sections.Each(func(id string, ss *symtab.SectionSymbol) {
		if symbols.Actions.Contains(id) {
			return
		}
		choiceIDs := make([]string, len(ss.Choices))
		for i, cs := range ss.Choices {
			choiceIDs[i] = cs.CompiledID
		}
		snap.Sections.Set(id, SectionSnapshot{
			ChoiceIDs:   choiceIDs,
			JumpTargets: sectionJumps[id],
		})
	})

	for _, c := range facts.Choices() {
		snap.Choices.Set(c.ChoiceID, ChoiceSnapshot{
			Label:          c.Label,
			Sticky:         c.Sticky,
			ConditionCount: len(c.ConditionReads),
			EffectCount:    len(c.EffectWrites),
			JumpTargets:    choiceJumps[c.ChoiceID],
		})
	}

	for _, r := range facts.Rules() {
		snap.Rules.Set(r.RuleID, RuleSnapshot{
			ConditionCount: len(r.ConditionReads),
			EffectCount:    len(r.EffectWrites),
		})
	}

	buildPropertySnapshots(snap, idx)
	snap.DiagnosticKeys = extractDiagnosticKeys(diags)

	return snap
}

func buildPropertySnapshots(snap *Snapshot, idx *analyze.PropertyDependencyIndex) {
	seen := make(map[analyze.PropertyKey]bool)
	var keys []analyze.PropertyKey
	for _, k := range idx.ReadProperties() {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range idx.WrittenProperties() {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	for _, k := range keys {
		reads := len(idx.ReadsOf(k))
		writes := len(idx.WritesOf(k))
		orphaned := ""
		switch {
		case writes == 0:
			orphaned = "read_never_written"
		case reads == 0:
			orphaned = "written_never_read"
		}
		snap.Properties.Set(k.EntityType+"."+k.Property, PropertySnapshot{
			ReadCount:  reads,
			WriteCount: writes,
			Orphaned:   orphaned,
		})
	}
}

// extractDiagnosticKeys pulls URD430/URD432 keys out of the free-text
// diagnostic messages reachability.go emits, matching its own quoting
// convention exactly: the target id is the first single-quoted token
// after a fixed marker phrase. Sorted and de-duplicated so set-difference
// comparisons in Diff are stable.
func extractDiagnosticKeys(diags *diag.Collector) []DiagnosticKey {
	markers := map[string]string{
		"URD430": "Location '",
		"URD432": "Choice in section '",
	}
	seen := make(map[DiagnosticKey]bool)
	var keys []DiagnosticKey
	for _, d := range diags.All() {
		marker, ok := markers[d.Code]
		if !ok {
			continue
		}
		target, ok := extractQuotedTarget(d.Message, marker)
		if !ok {
			continue
		}
		key := DiagnosticKey{Code: d.Code, TargetID: target}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Code != keys[j].Code {
			return keys[i].Code < keys[j].Code
		}
		return keys[i].TargetID < keys[j].TargetID
	})
	return keys
}

func extractQuotedTarget(message, marker string) (string, bool) {
	idx := indexOf(message, marker)
	if idx == -1 {
		return "", false
	}
	rest := message[idx+len(marker):]
	end := indexOf(rest, "'")
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func jumpTargetToString(t analyze.JumpTarget) string {
	switch t.Kind {
	case analyze.JumpToExit:
		return "exit:" + t.ID
	case analyze.JumpToEnd:
		return "__end__"
	default:
		return t.ID
	}
}

// scalarString renders an entity property-override value as plain text for
// snapshot comparison; the exact numeric/bool formatting doesn't matter
// since snapshots only ever compare a whole map for equality, never a
// single field's formatted text.
func scalarString(v *ast.Scalar) string {
	switch v.Kind {
	case ast.ScalarString:
		return v.Str
	case ast.ScalarInteger:
		return strconv.FormatInt(v.Int, 10)
	case ast.ScalarNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case ast.ScalarBoolean:
		return strconv.FormatBool(v.Bool)
	case ast.ScalarEntityRef:
		return v.EntRef
	default:
		return ""
	}
}

// collectChoiceJumps walks the AST mirroring internal/emit's choice-scope
// computation (actions.go's collectChoiceNodes), since a choice's own
// direct jump targets aren't tracked anywhere in the FactSet — ChoiceFact
// only owns condition/effect indices, and JumpEdge.FromSection is the same
// for a jump inside a choice as for one directly in its enclosing section.
func collectChoiceJumps(g *graph.Graph, order []string, symbols *symtab.Table) map[string][]string {
	out := make(map[string][]string)
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
				walkChoiceJumps(n, scopeID, symbols, out)
			}
		}
	}
	return out
}

func walkChoiceJumps(choice *ast.Choice, scopeID string, symbols *symtab.Table, out map[string][]string) {
	compiledID := scopeID + "/" + slugify.Slugify(choice.Label)
	for _, child := range choice.Content {
		switch v := child.(type) {
		case *ast.Jump:
			if target, ok := resolveJumpTargetString(v, symbols); ok {
				out[compiledID] = append(out[compiledID], target)
			}
		case *ast.Choice:
			walkChoiceJumps(v, compiledID, symbols, out)
		}
	}
}

func resolveJumpTargetString(jump *ast.Jump, symbols *symtab.Table) (string, bool) {
	ann := jump.Annotation
	if ann == nil {
		return "", false
	}
	switch {
	case ann.HasSection():
		return ann.ResolvedSection, true
	case ann.HasLocation():
		if loc, ok := symbols.Locations.Get(ann.ResolvedLocation); ok && loc.Exits.Contains(jump.Target) {
			return "exit:" + ann.ResolvedLocation + "/" + jump.Target, true
		}
		return "", false
	case jump.Target == "end":
		return "__end__", true
	default:
		return "", false
	}
}
