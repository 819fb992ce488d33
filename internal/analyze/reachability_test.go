package analyze

import (
	"testing"

	"github.com/stretchr/testify/require"

	"urd/internal/ast"
	"urd/internal/diag"
	"urd/internal/graph"
	"urd/internal/ordmap"
	"urd/internal/symtab"
)

func codesOf(diags *diag.Collector) []string {
	var codes []string
	for _, d := range diags.All() {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestReportReachabilityFlagsLocationWithNoIncomingExit(t *testing.T) {
	st := symtab.New()
	st.WorldStart = "square"
	northExits := ordmap.New[*symtab.ExitSymbol]()
	northExits.Set("north", &symtab.ExitSymbol{Direction: "north", ResolvedDestination: "tavern"})
	st.Locations.Set("square", &symtab.LocationSymbol{ID: "square", Exits: northExits})
	st.Locations.Set("tavern", &symtab.LocationSymbol{ID: "tavern", Exits: ordmap.New[*symtab.ExitSymbol]()})
	st.Locations.Set("cellar", &symtab.LocationSymbol{ID: "cellar", Exits: ordmap.New[*symtab.ExitSymbol]()})

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	diags := diag.NewCollector()
	ReportReachabilityDiagnostics(facts, st, diags)

	require.Contains(t, codesOf(diags), "URD430")
	for _, d := range diags.All() {
		if d.Code == "URD430" {
			require.Contains(t, d.Message, "cellar")
		}
	}
}

func TestReportReachabilityOmitsLocationsReachableViaExitChain(t *testing.T) {
	st := symtab.New()
	st.WorldStart = "square"
	squareExits := ordmap.New[*symtab.ExitSymbol]()
	squareExits.Set("north", &symtab.ExitSymbol{Direction: "north", ResolvedDestination: "tavern"})
	st.Locations.Set("square", &symtab.LocationSymbol{ID: "square", Exits: squareExits})
	st.Locations.Set("tavern", &symtab.LocationSymbol{ID: "tavern", Exits: ordmap.New[*symtab.ExitSymbol]()})

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	diags := diag.NewCollector()
	ReportReachabilityDiagnostics(facts, st, diags)

	require.NotContains(t, codesOf(diags), "URD430")
}

func TestReportReachabilityFlagsSectionWithNoIncomingJump(t *testing.T) {
	st := symtab.New()
	st.Sections.Set("a/start", &symtab.SectionSymbol{CompiledID: "a/start", LocalName: "", Choices: []*symtab.ChoiceSymbol{
		{CompiledID: "a/start/leave", Label: "leave"},
	}})
	st.Sections.Set("a/orphan", &symtab.SectionSymbol{CompiledID: "a/orphan", LocalName: "orphan", Choices: []*symtab.ChoiceSymbol{
		{CompiledID: "a/orphan/nowhere", Label: "nowhere"},
	}})

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	diags := diag.NewCollector()
	ReportReachabilityDiagnostics(facts, st, diags)

	require.Contains(t, codesOf(diags), "URD432")
	for _, d := range diags.All() {
		if d.Code == "URD432" {
			require.Contains(t, d.Message, "a/orphan")
		}
	}
}

func TestReportReachabilitySkipsSyntheticNestedChoiceSections(t *testing.T) {
	st := symtab.New()
	st.Sections.Set("a/start", &symtab.SectionSymbol{CompiledID: "a/start", LocalName: "", Choices: []*symtab.ChoiceSymbol{
		{CompiledID: "a/start/open-door", Label: "open door"},
	}})
	// Synthetic scope section keyed by a choice's own compiled id.
	st.Sections.Set("a/start/open-door", &symtab.SectionSymbol{CompiledID: "a/start/open-door", Choices: []*symtab.ChoiceSymbol{
		{CompiledID: "a/start/open-door/peek", Label: "peek"},
	}})
	st.Actions.Set("a/start/open-door", &symtab.ActionSymbol{ID: "a/start/open-door"})

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	diags := diag.NewCollector()
	ReportReachabilityDiagnostics(facts, st, diags)

	require.NotContains(t, codesOf(diags), "URD432")
}
