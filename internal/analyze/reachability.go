package analyze

import (
	"strings"

	"urd/internal/diag"
	"urd/internal/symtab"
)

// ReportReachabilityDiagnostics walks the location/exit graph and the
// section/jump graph extracted into the FactSet and reports advisory
// URD430/URD432 warnings for nodes no path reaches. Additive only — never
// blocks EMIT, and never consults conditions: a conditional exit or jump
// still counts as a path for reachability purposes.
func ReportReachabilityDiagnostics(facts *FactSet, symbols *symtab.Table, diags *diag.Collector) {
	reportUnreachableLocations(facts, symbols, diags)
	reportImpossibleChoices(facts, symbols, diags)
}

// reportUnreachableLocations flags every location no exit chain reaches
// starting from world.start. If start wasn't resolved, LINK/VALIDATE has
// already reported that separately, so this check stays silent.
func reportUnreachableLocations(facts *FactSet, symbols *symtab.Table, diags *diag.Collector) {
	if symbols.WorldStart == "" {
		return
	}
	if _, ok := symbols.Locations.Get(symbols.WorldStart); !ok {
		return
	}

	adjacency := make(map[string][]string)
	for _, e := range facts.Exits() {
		adjacency[e.FromLocation] = append(adjacency[e.FromLocation], e.ToLocation)
	}

	visited := map[string]bool{symbols.WorldStart: true}
	queue := []string{symbols.WorldStart}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	symbols.Locations.Each(func(id string, loc *symtab.LocationSymbol) {
		if !visited[id] {
			diags.Warnf("URD430", loc.DeclaredIn, "Location '"+id+"' is unreachable")
		}
	})
}

// reportImpossibleChoices flags every real dialogue section no jump chain
// reaches, starting from each file's anonymous (label-less) section —
// the section a reader lands in on arriving at that file — or, in a file
// that has no anonymous section, from its first section. A section
// registered under Actions is the synthetic per-nested-choice scope
// created by registerChoice, not a real dialogue section, and is skipped
// both as a root and as a target.
func reportImpossibleChoices(facts *FactSet, symbols *symtab.Table, diags *diag.Collector) {
	adjacency := make(map[string][]string)
	for _, j := range facts.Jumps() {
		if j.Target.Kind != JumpToSection {
			continue
		}
		adjacency[j.FromSection] = append(adjacency[j.FromSection], j.Target.ID)
	}

	visited := make(map[string]bool)
	var queue []string
	var firstStems []string
	firstByStem := make(map[string]string)
	hasAnonymous := make(map[string]bool)
	symbols.Sections.Each(func(id string, sec *symtab.SectionSymbol) {
		if symbols.Actions.Contains(id) {
			return
		}
		stem, _, _ := strings.Cut(id, "/")
		if _, ok := firstByStem[stem]; !ok {
			firstByStem[stem] = id
			firstStems = append(firstStems, stem)
		}
		if sec.LocalName == "" && !visited[id] {
			hasAnonymous[stem] = true
			visited[id] = true
			queue = append(queue, id)
		}
	})
	for _, stem := range firstStems {
		if id := firstByStem[stem]; !hasAnonymous[stem] && !visited[id] {
			visited[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[cur] {
			if symbols.Actions.Contains(next) {
				continue
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	symbols.Sections.Each(func(id string, sec *symtab.SectionSymbol) {
		if symbols.Actions.Contains(id) {
			return
		}
		if !visited[id] && len(sec.Choices) > 0 {
			diags.Warnf("URD432", sec.DeclaredIn, "Choice in section '"+id+"' is impossible")
		}
	})
}
