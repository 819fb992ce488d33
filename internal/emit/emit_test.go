package emit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"urd/internal/ast"
	"urd/internal/graph"
	"urd/internal/ordmap"
	"urd/internal/span"
	"urd/internal/symtab"
)

func sp(file string) span.Span { return span.Span{File: file, StartLine: 1, EndLine: 1} }

func TestObjectPreservesInsertionOrder(t *testing.T) {
	o := newObject()
	o.set("zebra", 1)
	o.set("alpha", 2)
	o.set("middle", 3)

	raw, err := json.Marshal(o)
	require.NoError(t, err)
	require.JSONEq(t, `{"zebra":1,"alpha":2,"middle":3}`, string(raw))
	require.Equal(t, `{"zebra":1,"alpha":2,"middle":3}`, string(raw))
}

func TestObjectSetIsFirstWriterWinsOnKey(t *testing.T) {
	o := newObject()
	o.set("a", 1)
	o.set("b", 2)
	o.set("a", 99)

	raw, err := json.Marshal(o)
	require.NoError(t, err)
	require.Equal(t, `{"a":99,"b":2}`, string(raw))
}

func TestBuildWorldFixedKeyOrder(t *testing.T) {
	st := symtab.New()
	st.WorldName = "My World"
	v := ast.Scalar{Kind: ast.ScalarString, Str: "1.0.0"}
	st.WorldVersion = &v
	d := ast.Scalar{Kind: ast.ScalarString, Str: "a test world"}
	st.WorldDescription = &d
	a := ast.Scalar{Kind: ast.ScalarString, Str: "nerd"}
	st.WorldAuthor = &a
	st.WorldStart = "square"
	st.WorldEntry = "intro"
	seed := ast.Scalar{Kind: ast.ScalarInteger, Int: 42}
	st.WorldSeed = &seed

	world := buildWorld(st)
	require.Equal(t, []string{"name", "urd", "version", "description", "author", "start", "entry", "seed"}, world.keys)

	raw, err := json.Marshal(world)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"name": "my-world",
		"urd": "1",
		"version": "1.0.0",
		"description": "a test world",
		"author": "nerd",
		"start": "square",
		"entry": "intro",
		"seed": 42
	}`, string(raw))
}

func TestBuildWorldInjectsURDRegardlessOfAuthorValue(t *testing.T) {
	st := symtab.New()
	rawURD := ast.Scalar{Kind: ast.ScalarString, Str: "999"}
	st.WorldRawURD = &rawURD

	world := buildWorld(st)
	raw, err := json.Marshal(world)
	require.NoError(t, err)
	require.JSONEq(t, `{"urd":"1"}`, string(raw))
}

func TestFormatAdvanceStripsSpacesOnlyForOnCondition(t *testing.T) {
	require.Equal(t, "auto", formatAdvance("auto"))
	require.Equal(t, "manual", formatAdvance("manual"))
	require.Equal(t, "on_action", formatAdvance("on_action"))
	require.Equal(t, "on_condition door.state==unlocked", formatAdvance("on_condition door.state == unlocked"))
	require.Equal(t, "on_condition x<=5", formatAdvance("on_condition x <= 5"))
}

func TestLowerConditionPropertyComparison(t *testing.T) {
	expr := &ast.PropertyComparison{
		EntityRef: "door1", Property: "state", Operator: "==", Value: "locked",
	}
	require.Equal(t, "door1.state == locked", lowerCondition(expr))
}

func TestLowerConditionContainmentCheck(t *testing.T) {
	expr := &ast.ContainmentCheck{
		EntityRef: "key1", Negated: false, ContainerRef: "@player",
		Annotation: &ast.Annotation{ContainerKind: &ast.ContainerKind{Tag: ast.ContainerKeywordPlayer}},
	}
	require.Equal(t, "key1.container == player", lowerCondition(expr))
}

func TestLowerConditionExhaustionCheck(t *testing.T) {
	expr := &ast.ExhaustionCheck{SectionName: "intro"}
	require.Equal(t, "intro.exhausted", lowerCondition(expr))
}

func TestLowerEffectSetWithArithmeticEmitsExpressionString(t *testing.T) {
	eff := ast.SetEffect{TargetProp: "@player.gold", Operator: "+", ValueExpr: "10"}
	ann := &ast.Annotation{ResolvedEntity: "player", ResolvedProperty: "gold"}
	obj := lowerEffect(eff, ann, symtab.New())

	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	require.JSONEq(t, `{"set":"player.gold","to":"player.gold + 10"}`, string(raw))
}

func TestLowerEffectSetWithDirectAssignUsesTypedValue(t *testing.T) {
	st := symtab.New()
	props := ordmap.New[*symtab.PropertySymbol]()
	props.Set("state", &symtab.PropertySymbol{Name: "state", PropertyType: ast.TypeBoolean})
	st.Types.Set("Door", &symtab.TypeSymbol{Name: "Door", Properties: props})

	eff := ast.SetEffect{TargetProp: "@door1.state", Operator: "=", ValueExpr: "true"}
	ann := &ast.Annotation{ResolvedEntity: "door1", ResolvedProperty: "state", ResolvedType: "Door"}
	obj := lowerEffect(eff, ann, st)

	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	require.JSONEq(t, `{"set":"door1.state","to":true}`, string(raw))
}

func TestBuildTypesOmitsEmptyOptionalFields(t *testing.T) {
	st := symtab.New()
	props := ordmap.New[*symtab.PropertySymbol]()
	props.Set("locked", &symtab.PropertySymbol{Name: "locked", PropertyType: ast.TypeBoolean, Visibility: ast.Visible})
	st.Types.Set("Door", &symtab.TypeSymbol{Name: "Door", Properties: props})

	out := buildTypes(st)
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"Door":{"properties":{"locked":{"type":"boolean"}}}}`, string(raw))
}

func TestBuildTypesIncludesHiddenVisibility(t *testing.T) {
	st := symtab.New()
	props := ordmap.New[*symtab.PropertySymbol]()
	props.Set("secret_code", &symtab.PropertySymbol{Name: "secret_code", PropertyType: ast.TypeInteger, Visibility: ast.Hidden})
	st.Types.Set("Safe", &symtab.TypeSymbol{Name: "Safe", Properties: props})

	out := buildTypes(st)
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"Safe":{"properties":{"secret_code":{"type":"integer","visibility":"hidden"}}}}`, string(raw))
}

func TestBuildActionsCorrelatesChoiceConditionsAndEffects(t *testing.T) {
	st := symtab.New()
	st.Actions.Set("a/start/open-door", &symtab.ActionSymbol{ID: "a/start/open-door"})

	cond := &ast.Condition{Expr: &ast.PropertyComparison{EntityRef: "door1", Property: "state", Operator: "==", Value: "unlocked"}}
	effect := &ast.Effect{EffectType: ast.SetEffect{TargetProp: "@player.gold", Operator: "+", ValueExpr: "5"},
		Annotation: &ast.Annotation{ResolvedEntity: "player", ResolvedProperty: "gold"}}
	choice := &ast.Choice{Label: "open door", Content: []ast.ContentNode{cond, effect}, Span: sp("a.urd.md")}

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{
		Content: []ast.ContentNode{&ast.SectionLabel{Name: "start"}, choice},
	}})

	out := buildActions(g, []string{"a.urd.md"}, st)
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"a/start/open-door": {
			"conditions": ["door1.state == unlocked"],
			"effects": [{"set":"player.gold","to":"player.gold + 5"}]
		}
	}`, string(raw))
}

func TestBuildDialogueSkipsSyntheticNestedChoiceSections(t *testing.T) {
	st := symtab.New()
	st.Sections.Set("a/start", &symtab.SectionSymbol{CompiledID: "a/start"})
	// Synthetic section keyed by a choice's own compiled id.
	st.Sections.Set("a/start/open-door", &symtab.SectionSymbol{CompiledID: "a/start/open-door"})
	st.Actions.Set("a/start/open-door", &symtab.ActionSymbol{ID: "a/start/open-door"})

	out := buildDialogue(graph.New(), nil, st)
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"a/start": {"id": "a/start"}}`, string(raw))
}

func TestRunOmitsEmptyNamespacesExceptWorld(t *testing.T) {
	st := symtab.New()
	st.WorldName = "Empty World"

	g := graph.New()
	g.AddNode(&graph.FileNode{Path: "a.urd.md", AST: &ast.File{}})
	g.EntryPath = "a.urd.md"

	out, err := Run(g, st)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Contains(t, decoded, "world")
	require.NotContains(t, decoded, "types")
	require.NotContains(t, decoded, "entities")
	require.NotContains(t, decoded, "locations")
	require.NotContains(t, decoded, "rules")
	require.NotContains(t, decoded, "actions")
	require.NotContains(t, decoded, "sequences")
	require.NotContains(t, decoded, "dialogue")
	require.Equal(t, byte('\n'), out[len(out)-1])
}
