package lsp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"urd/internal/ast"
	"urd/internal/ordmap"
	"urd/internal/span"
	"urd/internal/symtab"
)

func TestResolveSymbolAtEntitySpeechReturnsEntityDefinition(t *testing.T) {
	st := symtab.New()
	declSpan := span.New("a.urd.md", 3, 1, 20)
	st.Entities.Set("torch1", &symtab.EntitySymbol{ID: "torch1", TypeName: "Torch", DeclaredIn: declSpan})

	speechSpan := span.New("a.urd.md", 10, 1, 25)
	file := &ast.File{Path: "a.urd.md", Content: []ast.ContentNode{
		&ast.EntitySpeech{EntityRef: "torch1", Text: "hi", Span: speechSpan, Annotation: &ast.Annotation{ResolvedEntity: "torch1"}},
	}}

	info, ok := ResolveSymbolAt(file, st, Position{Path: "a.urd.md", Line: 10, Column: 5})
	require.True(t, ok)
	require.Equal(t, SymbolEntity, info.Kind)
	require.Equal(t, "torch1", info.ID)
	require.Equal(t, declSpan, info.DefiningSpan)
}

func TestResolveSymbolAtPropertyEffectReturnsPropertyDefinition(t *testing.T) {
	st := symtab.New()
	propSpan := span.New("a.urd.md", 2, 5, 20)
	props := ordmap.New[*symtab.PropertySymbol]()
	props.Set("lit", &symtab.PropertySymbol{Name: "lit", DeclaredIn: propSpan})
	st.Types.Set("Torch", &symtab.TypeSymbol{Name: "Torch", Properties: props})
	st.Entities.Set("torch1", &symtab.EntitySymbol{ID: "torch1", TypeName: "Torch", TypeResolved: true})

	effectSpan := span.New("a.urd.md", 12, 3, 30)
	file := &ast.File{Path: "a.urd.md", Content: []ast.ContentNode{
		&ast.Effect{EffectType: ast.SetEffect{TargetProp: "@torch1.lit", Operator: "=", ValueExpr: "true"},
			Span:       effectSpan,
			Annotation: &ast.Annotation{ResolvedEntity: "torch1", ResolvedType: "Torch", ResolvedProperty: "lit"}},
	}}

	info, ok := ResolveSymbolAt(file, st, Position{Path: "a.urd.md", Line: 12, Column: 10})
	require.True(t, ok)
	require.Equal(t, SymbolProperty, info.Kind)
	require.Equal(t, "Torch.lit", info.ID)
	require.Equal(t, propSpan, info.DefiningSpan)
}

func TestResolveSymbolAtJumpReturnsSectionDefinition(t *testing.T) {
	st := symtab.New()
	secSpan := span.New("a.urd.md", 1, 1, 10)
	st.Sections.Set("a/talk", &symtab.SectionSymbol{CompiledID: "a/talk", LocalName: "talk", DeclaredIn: secSpan})

	jumpSpan := span.New("a.urd.md", 8, 1, 15)
	file := &ast.File{Path: "a.urd.md", Content: []ast.ContentNode{
		&ast.Jump{Target: "talk", Span: jumpSpan, Annotation: &ast.Annotation{ResolvedSection: "a/talk"}},
	}}

	info, ok := ResolveSymbolAt(file, st, Position{Path: "a.urd.md", Line: 8, Column: 5})
	require.True(t, ok)
	require.Equal(t, SymbolJumpTarget, info.Kind)
	require.Equal(t, "a/talk", info.ID)
	require.Equal(t, secSpan, info.DefiningSpan)
}

func TestResolveSymbolAtMissesOutsideAnyNodeSpan(t *testing.T) {
	st := symtab.New()
	file := &ast.File{Path: "a.urd.md", Content: []ast.ContentNode{
		&ast.Prose{Text: "just narrative text", Span: span.New("a.urd.md", 1, 1, 20)},
	}}

	_, ok := ResolveSymbolAt(file, st, Position{Path: "a.urd.md", Line: 99, Column: 1})
	require.False(t, ok)
}

func TestResolveSymbolAtChoiceTargetReturnsEntityDefinition(t *testing.T) {
	st := symtab.New()
	declSpan := span.New("a.urd.md", 4, 1, 10)
	st.Entities.Set("arina", &symtab.EntitySymbol{ID: "arina", TypeName: "Npc", DeclaredIn: declSpan})

	choiceSpan := span.New("a.urd.md", 5, 1, 30)
	file := &ast.File{Path: "a.urd.md", Content: []ast.ContentNode{
		&ast.Choice{Label: "Buy a drink", Target: "arina", Span: choiceSpan, Annotation: &ast.Annotation{ResolvedEntity: "arina"}},
	}}

	info, ok := ResolveSymbolAt(file, st, Position{Path: "a.urd.md", Line: 5, Column: 20})
	require.True(t, ok)
	require.Equal(t, SymbolEntity, info.Kind)
	require.Equal(t, "arina", info.ID)
}
