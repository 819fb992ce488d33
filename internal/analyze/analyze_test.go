package analyze

import (
	"testing"

	"github.com/stretchr/testify/require"

	"urd/internal/ast"
	"urd/internal/diag"
	"urd/internal/graph"
	"urd/internal/ordmap"
	"urd/internal/span"
	"urd/internal/symtab"
)

func newTypeTable(typeName string, props ...*symtab.PropertySymbol) *symtab.Table {
	st := symtab.New()
	pm := ordmap.New[*symtab.PropertySymbol]()
	for _, p := range props {
		pm.Set(p.Name, p)
	}
	st.Types.Set(typeName, &symtab.TypeSymbol{Name: typeName, Properties: pm})
	return st
}

func sp(file string) span.Span { return span.Span{File: file, StartLine: 1, EndLine: 1} }

func TestExtractExitEdgeFromSymbolTable(t *testing.T) {
	st := symtab.New()
	exits := ordmap.New[*symtab.ExitSymbol]()
	exits.Set("north", &symtab.ExitSymbol{Direction: "north", ResolvedDestination: "tavern", DeclaredIn: sp("a.urd.md")})
	st.Locations.Set("square", &symtab.LocationSymbol{ID: "square", Exits: exits})
	st.Locations.Set("tavern", &symtab.LocationSymbol{ID: "tavern", Exits: ordmap.New[*symtab.ExitSymbol]()})

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	require.Len(t, facts.Exits(), 1)
	require.Equal(t, "square", facts.Exits()[0].FromLocation)
	require.Equal(t, "tavern", facts.Exits()[0].ToLocation)
	require.Equal(t, "square/north", facts.Exits()[0].ExitID())
}

func TestExtractChoiceWithConditionAndEffect(t *testing.T) {
	st := newTypeTable("Door", &symtab.PropertySymbol{Name: "state", PropertyType: ast.TypeEnum, Values: []string{"locked", "unlocked"}})
	st.Sections.Set("a/start", &symtab.SectionSymbol{
		CompiledID: "a/start",
		Choices:    []*symtab.ChoiceSymbol{{CompiledID: "a/start/open-door", Label: "open door", Sticky: false}},
	})

	cond := &ast.Condition{
		Expr: &ast.PropertyComparison{
			EntityRef: "door1", Property: "state", Operator: "==", Value: "unlocked",
			Annotation: &ast.Annotation{ResolvedEntity: "door1", ResolvedType: "Door", ResolvedProperty: "state"},
			Span:       sp("a.urd.md"),
		},
		Span: sp("a.urd.md"),
	}
	effect := &ast.Effect{
		EffectType: ast.SetEffect{TargetProp: "@door1.state", Operator: "=", ValueExpr: "unlocked"},
		Annotation: &ast.Annotation{ResolvedEntity: "door1", ResolvedType: "Door", ResolvedProperty: "state"},
		Span:       sp("a.urd.md"),
	}
	choice := &ast.Choice{
		Label:   "open door",
		Content: []ast.ContentNode{cond, effect},
		Span:    sp("a.urd.md"),
	}

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{
		Content: []ast.ContentNode{&ast.SectionLabel{Name: "start", Span: sp("a.urd.md")}, choice},
	}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)

	require.Len(t, facts.Choices(), 1)
	cf := facts.Choices()[0]
	require.Equal(t, "a/start/open-door", cf.ChoiceID)
	require.Equal(t, "a/start", cf.Section)
	require.Len(t, cf.ConditionReads, 1)
	require.Len(t, cf.EffectWrites, 1)

	read := facts.Reads()[cf.ConditionReads[0]]
	require.Equal(t, FactSite{Kind: SiteChoice, ID: "a/start/open-door"}, read.Site)
	require.Equal(t, CompareEq, read.Operator)
	require.Equal(t, LiteralIdent, read.ValueKind)

	write := facts.Writes()[cf.EffectWrites[0]]
	require.Equal(t, FactSite{Kind: SiteChoice, ID: "a/start/open-door"}, write.Site)
	require.Equal(t, WriteSet, write.Operator)
}

func TestExtractNestedChoiceGetsOwnFact(t *testing.T) {
	st := symtab.New()
	st.Sections.Set("a/start", &symtab.SectionSymbol{
		CompiledID: "a/start",
		Choices: []*symtab.ChoiceSymbol{
			{CompiledID: "a/start/outer", Label: "outer", Sticky: false},
			{CompiledID: "a/start/outer/inner", Label: "inner", Sticky: false},
		},
	})
	inner := &ast.Choice{Label: "inner", Span: sp("a.urd.md")}
	outer := &ast.Choice{Label: "outer", Content: []ast.ContentNode{inner}, Span: sp("a.urd.md")}

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{
		Content: []ast.ContentNode{&ast.SectionLabel{Name: "start", Span: sp("a.urd.md")}, outer},
	}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	require.Len(t, facts.Choices(), 2)
	ids := []string{facts.Choices()[0].ChoiceID, facts.Choices()[1].ChoiceID}
	require.Contains(t, ids, "a/start/outer")
	require.Contains(t, ids, "a/start/outer/inner")
}

func TestExtractJumpBuiltinEnd(t *testing.T) {
	st := symtab.New()
	st.Sections.Set("a/start", &symtab.SectionSymbol{CompiledID: "a/start"})
	jump := &ast.Jump{Target: "end", Annotation: &ast.Annotation{}, Span: sp("a.urd.md")}

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{
		Content: []ast.ContentNode{&ast.SectionLabel{Name: "start", Span: sp("a.urd.md")}, jump},
	}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	require.Len(t, facts.Jumps(), 1)
	require.Equal(t, JumpToEnd, facts.Jumps()[0].Target.Kind)
	require.Equal(t, "a/start", facts.Jumps()[0].FromSection)
}

func TestExtractJumpToExitRequiresExistingExitEdge(t *testing.T) {
	st := symtab.New()
	st.Sections.Set("a/start", &symtab.SectionSymbol{CompiledID: "a/start"})
	exits := ordmap.New[*symtab.ExitSymbol]()
	exits.Set("north", &symtab.ExitSymbol{Direction: "north", ResolvedDestination: "tavern", DeclaredIn: sp("a.urd.md")})
	st.Locations.Set("square", &symtab.LocationSymbol{ID: "square", Exits: exits})
	st.Locations.Set("tavern", &symtab.LocationSymbol{ID: "tavern", Exits: ordmap.New[*symtab.ExitSymbol]()})

	jump := &ast.Jump{
		Target:          "north",
		IsExitQualified: true,
		Annotation:      &ast.Annotation{ResolvedLocation: "square"},
		Span:            sp("a.urd.md"),
	}

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{
		Content: []ast.ContentNode{&ast.SectionLabel{Name: "start", Span: sp("a.urd.md")}, jump},
	}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	require.Len(t, facts.Jumps(), 1)
	require.Equal(t, JumpToExit, facts.Jumps()[0].Target.Kind)
	require.Equal(t, "square/north", facts.Jumps()[0].Target.ID)
}

func TestExtractExitGuardReads(t *testing.T) {
	st := newTypeTable("Avatar", &symtab.PropertySymbol{Name: "has_key", PropertyType: ast.TypeBoolean})
	exits := ordmap.New[*symtab.ExitSymbol]()
	exits.Set("north", &symtab.ExitSymbol{Direction: "north", ResolvedDestination: "tavern", DeclaredIn: sp("a.urd.md")})
	st.Locations.Set("square", &symtab.LocationSymbol{ID: "square", Exits: exits})
	st.Locations.Set("tavern", &symtab.LocationSymbol{ID: "tavern", Exits: ordmap.New[*symtab.ExitSymbol]()})

	cond := &ast.Condition{
		Expr: &ast.PropertyComparison{
			Annotation: &ast.Annotation{ResolvedEntity: "player", ResolvedType: "Avatar", ResolvedProperty: "has_key"},
			Operator:   "==", Value: "true",
			Span: sp("a.urd.md"),
		},
		Span: sp("a.urd.md"),
	}
	exitDecl := &ast.ExitDeclaration{Direction: "north", Children: []ast.ContentNode{cond}, Span: sp("a.urd.md")}

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{
		Content: []ast.ContentNode{&ast.LocationHeading{DisplayName: "Square", Span: sp("a.urd.md")}, exitDecl},
	}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	require.Len(t, facts.Reads(), 1)
	exit, ok := facts.ExitByLocationAndName("square", "north")
	require.True(t, ok)
	require.Len(t, exit.GuardReads, 1)
	require.Equal(t, facts.Reads()[exit.GuardReads[0]].Site, FactSite{Kind: SiteExit, ID: "square/north"})
}

func TestExtractRuleFact(t *testing.T) {
	st := newTypeTable("Avatar", &symtab.PropertySymbol{Name: "hp", PropertyType: ast.TypeInteger})
	where := []ast.ConditionExpr{&ast.PropertyComparison{
		Annotation: &ast.Annotation{ResolvedEntity: "player", ResolvedType: "Avatar", ResolvedProperty: "hp"},
		Operator:   "<", Value: "1", Span: sp("a.urd.md"),
	}}
	eff := &ast.Effect{
		EffectType: ast.SetEffect{Operator: "=", ValueExpr: "10"},
		Annotation: &ast.Annotation{ResolvedEntity: "player", ResolvedType: "Avatar", ResolvedProperty: "hp"},
		Span:       sp("a.urd.md"),
	}
	rb := &ast.RuleBlock{Name: "respawn", WhereClauses: where, Effects: []*ast.Effect{eff}, Span: sp("a.urd.md")}

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{Content: []ast.ContentNode{rb}}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	require.Len(t, facts.Rules(), 1)
	require.Equal(t, "respawn", facts.Rules()[0].RuleID)
	require.Len(t, facts.Rules()[0].ConditionReads, 1)
	require.Len(t, facts.Rules()[0].EffectWrites, 1)
}

func TestPropertyDependencyIndexReadAndWriteGrouping(t *testing.T) {
	st := newTypeTable("Door", &symtab.PropertySymbol{Name: "state", PropertyType: ast.TypeEnum, Values: []string{"locked", "unlocked"}})
	st.Sections.Set("a/start", &symtab.SectionSymbol{
		CompiledID: "a/start",
		Choices:    []*symtab.ChoiceSymbol{{CompiledID: "a/start/open", Label: "open", Sticky: false}},
	})

	cond := &ast.Condition{Expr: &ast.PropertyComparison{
		Annotation: &ast.Annotation{ResolvedEntity: "door1", ResolvedType: "Door", ResolvedProperty: "state"},
		Operator:   "==", Value: "unlocked", Span: sp("a.urd.md"),
	}, Span: sp("a.urd.md")}
	choice := &ast.Choice{Label: "open", Content: []ast.ContentNode{cond}, Span: sp("a.urd.md")}

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{
		Content: []ast.ContentNode{&ast.SectionLabel{Name: "start", Span: sp("a.urd.md")}, choice},
	}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)
	idx := BuildPropertyDependencyIndex(facts)

	key := PropertyKey{EntityType: "Door", Property: "state"}
	require.Len(t, idx.ReadsOf(key), 1)
	require.Len(t, idx.WritesOf(key), 0)
	require.Contains(t, idx.ReadProperties(), key)
}

func TestReportDependencyDiagnosticsFlagsUnwrittenRead(t *testing.T) {
	st := newTypeTable("Door", &symtab.PropertySymbol{Name: "state", PropertyType: ast.TypeEnum, Values: []string{"locked", "unlocked"}})
	st.Sections.Set("a/start", &symtab.SectionSymbol{
		CompiledID: "a/start",
		Choices:    []*symtab.ChoiceSymbol{{CompiledID: "a/start/open", Label: "open", Sticky: false}},
	})
	cond := &ast.Condition{Expr: &ast.PropertyComparison{
		Annotation: &ast.Annotation{ResolvedEntity: "door1", ResolvedType: "Door", ResolvedProperty: "state"},
		Operator:   "==", Value: "unlocked", Span: sp("a.urd.md"),
	}, Span: sp("a.urd.md")}
	choice := &ast.Choice{Label: "open", Content: []ast.ContentNode{cond}, Span: sp("a.urd.md")}

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{
		Content: []ast.ContentNode{&ast.SectionLabel{Name: "start", Span: sp("a.urd.md")}, choice},
	}})

	diags := diag.NewCollector()
	facts, idx := Run(g, []string{"a.urd.md"}, st, diags)
	_ = facts

	foundWarning := false
	for _, d := range diags.All() {
		if d.Code == "URD601" {
			foundWarning = true
			require.Equal(t, diag.Warning, d.Severity)
		}
	}
	require.True(t, foundWarning)
	_ = idx
}

func TestReferentialIntegrityAcrossSiteKinds(t *testing.T) {
	st := newTypeTable("Door", &symtab.PropertySymbol{Name: "state", PropertyType: ast.TypeEnum, Values: []string{"locked", "unlocked"}})
	st.Sections.Set("a/start", &symtab.SectionSymbol{
		CompiledID: "a/start",
		Choices:    []*symtab.ChoiceSymbol{{CompiledID: "a/start/open", Label: "open", Sticky: false}},
	})
	exits := ordmap.New[*symtab.ExitSymbol]()
	exits.Set("north", &symtab.ExitSymbol{Direction: "north", ResolvedDestination: "tavern", DeclaredIn: sp("a.urd.md")})
	st.Locations.Set("square", &symtab.LocationSymbol{ID: "square", Exits: exits})
	st.Locations.Set("tavern", &symtab.LocationSymbol{ID: "tavern", Exits: ordmap.New[*symtab.ExitSymbol]()})

	exitCond := &ast.Condition{Expr: &ast.PropertyComparison{
		Annotation: &ast.Annotation{ResolvedEntity: "door1", ResolvedType: "Door", ResolvedProperty: "state"},
		Operator:   "==", Value: "unlocked", Span: sp("a.urd.md"),
	}, Span: sp("a.urd.md")}
	exitDecl := &ast.ExitDeclaration{Direction: "north", Children: []ast.ContentNode{exitCond}, Span: sp("a.urd.md")}

	choiceCond := &ast.Condition{Expr: &ast.PropertyComparison{
		Annotation: &ast.Annotation{ResolvedEntity: "door1", ResolvedType: "Door", ResolvedProperty: "state"},
		Operator:   "==", Value: "locked", Span: sp("a.urd.md"),
	}, Span: sp("a.urd.md")}
	choice := &ast.Choice{Label: "open", Content: []ast.ContentNode{choiceCond}, Span: sp("a.urd.md")}

	rb := &ast.RuleBlock{Name: "auto-unlock", WhereClauses: []ast.ConditionExpr{choiceCond.Expr}, Span: sp("a.urd.md")}

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{
		Content: []ast.ContentNode{
			&ast.LocationHeading{DisplayName: "Square", Span: sp("a.urd.md")},
			exitDecl,
			&ast.SectionLabel{Name: "start", Span: sp("a.urd.md")},
			choice,
			rb,
		},
	}})

	facts := ExtractFacts(g, []string{"a.urd.md"}, st)

	for _, c := range facts.Choices() {
		for _, idx := range c.ConditionReads {
			require.Equal(t, FactSite{Kind: SiteChoice, ID: c.ChoiceID}, facts.Reads()[idx].Site)
		}
	}
	for _, e := range facts.Exits() {
		for _, idx := range e.GuardReads {
			require.Equal(t, FactSite{Kind: SiteExit, ID: e.ExitID()}, facts.Reads()[idx].Site)
		}
	}
	for _, r := range facts.Rules() {
		for _, idx := range r.ConditionReads {
			require.Equal(t, FactSite{Kind: SiteRule, ID: r.RuleID}, facts.Reads()[idx].Site)
		}
	}
}
