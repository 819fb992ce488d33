package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"urd/internal/ast"
	"urd/internal/config"
	"urd/internal/diag"
)

func parseSource(t *testing.T, body string) (*ast.File, *diag.Collector) {
	t.Helper()
	diags := diag.NewCollector()
	src := "---\n---\n" + body
	f, ok := File("test.urd.md", src, diags, config.Default())
	require.True(t, ok, "expected PARSE to succeed; diagnostics: %+v", diags.All())
	return f, diags
}

func firstNode(t *testing.T, body string) ast.ContentNode {
	t.Helper()
	f, _ := parseSource(t, body)
	require.NotEmpty(t, f.Content, "expected at least one content node")
	return f.Content[0]
}

func TestLocationHeading(t *testing.T) {
	n := firstNode(t, "# The Rusty Anchor")
	h, ok := n.(*ast.LocationHeading)
	require.True(t, ok, "expected *ast.LocationHeading, got %T", n)
	require.Equal(t, "The Rusty Anchor", h.DisplayName)
}

func TestSequenceHeading(t *testing.T) {
	n := firstNode(t, "## The Game")
	h, ok := n.(*ast.SequenceHeading)
	require.True(t, ok)
	require.Equal(t, "The Game", h.DisplayName)
}

func TestPhaseHeadingAuto(t *testing.T) {
	n := firstNode(t, "### Reveal (auto)")
	h, ok := n.(*ast.PhaseHeading)
	require.True(t, ok)
	require.Equal(t, "Reveal", h.DisplayName)
	require.True(t, h.Auto)
}

func TestSectionLabel(t *testing.T) {
	n := firstNode(t, "== topics")
	s, ok := n.(*ast.SectionLabel)
	require.True(t, ok)
	require.Equal(t, "topics", s.Name)
}

func TestEntitySpeech(t *testing.T) {
	n := firstNode(t, "@arina: What'll it be?")
	s, ok := n.(*ast.EntitySpeech)
	require.True(t, ok)
	require.Equal(t, "arina", s.EntityRef)
	require.Equal(t, "What'll it be?", s.Text)
}

func TestStageDirection(t *testing.T) {
	n := firstNode(t, "@arina crosses her arms.")
	s, ok := n.(*ast.StageDirection)
	require.True(t, ok)
	require.Equal(t, "arina", s.EntityRef)
	require.Equal(t, "crosses her arms.", s.Text)
}

func TestExitDeclarationWithGuard(t *testing.T) {
	n := firstNode(t, "-> north: The Hallway\n  ? @door.locked == false\n  ! The door is locked.")
	e, ok := n.(*ast.ExitDeclaration)
	require.True(t, ok)
	require.Equal(t, "north", e.Direction)
	require.Equal(t, "The Hallway", e.Destination)
	require.Len(t, e.Children, 2)
	cond, ok := e.Children[0].(*ast.Condition)
	require.True(t, ok)
	pc, ok := cond.Expr.(*ast.PropertyComparison)
	require.True(t, ok)
	require.Equal(t, "door", pc.EntityRef)
	require.Equal(t, "locked", pc.Property)
	require.Equal(t, "==", pc.Operator)
	require.Equal(t, "false", pc.Value)
	_, ok = e.Children[1].(*ast.BlockedMessage)
	require.True(t, ok)
}

func TestExitQualifiedJump(t *testing.T) {
	n := firstNode(t, "-> exit:north")
	j, ok := n.(*ast.Jump)
	require.True(t, ok)
	require.True(t, j.IsExitQualified)
	require.Equal(t, "north", j.Target)
}

func TestChoiceWithNestedContent(t *testing.T) {
	n := firstNode(t, "* Ask about the rumor -> talk\n  @arina: Careful with that one.")
	c, ok := n.(*ast.Choice)
	require.True(t, ok)
	require.False(t, c.Sticky)
	require.Equal(t, "Ask about the rumor", c.Label)
	require.Equal(t, "talk", c.Target)
	require.Len(t, c.Content, 1)
}

func TestStickyChoiceWithEntityTarget(t *testing.T) {
	n := firstNode(t, "+ Buy a drink -> @arina")
	c, ok := n.(*ast.Choice)
	require.True(t, ok)
	require.True(t, c.Sticky)
	require.Equal(t, "arina", c.Target)
}

func TestChoiceWithTypeTarget(t *testing.T) {
	n := firstNode(t, "* Fight -> any Monster")
	c, ok := n.(*ast.Choice)
	require.True(t, ok)
	require.Equal(t, "Monster", c.TargetType)
	require.Empty(t, c.Target)
}

func TestEmptyChoiceLabelIsError(t *testing.T) {
	f, diags := parseSource(t, "*  -> talk")
	_, ok := f.Content[0].(*ast.ErrorNode)
	require.True(t, ok)
	requireHasCode(t, diags, "URD112")
}

func TestOrConditionBlockStopsOnBlank(t *testing.T) {
	n := firstNode(t, "? any:\n  @door.locked == false\n  @window.open == true\n\nProse after.")
	block, ok := n.(*ast.OrConditionBlock)
	require.True(t, ok)
	require.Len(t, block.Conditions, 2)
}

func TestContainmentCheck(t *testing.T) {
	n := firstNode(t, "? @key not in here")
	cond, ok := n.(*ast.Condition)
	require.True(t, ok)
	cc, ok := cond.Expr.(*ast.ContainmentCheck)
	require.True(t, ok)
	require.Equal(t, "key", cc.EntityRef)
	require.Equal(t, "here", cc.ContainerRef)
	require.True(t, cc.Negated)
}

func TestExhaustionCheck(t *testing.T) {
	n := firstNode(t, "? rumors.exhausted")
	cond := n.(*ast.Condition)
	ec, ok := cond.Expr.(*ast.ExhaustionCheck)
	require.True(t, ok)
	require.Equal(t, "rumors", ec.SectionName)
}

func TestReservedTargetPropertyComparison(t *testing.T) {
	n := firstNode(t, "? target.hp >= 1")
	cond := n.(*ast.Condition)
	pc, ok := cond.Expr.(*ast.PropertyComparison)
	require.True(t, ok)
	require.Equal(t, "target", pc.EntityRef)
	require.Equal(t, "hp", pc.Property)
	require.Equal(t, ">=", pc.Operator)
}

func TestSetEffectWithOperator(t *testing.T) {
	n := firstNode(t, "> @arina.trust + 1")
	e := n.(*ast.Effect)
	set, ok := e.EffectType.(ast.SetEffect)
	require.True(t, ok)
	require.Equal(t, "@arina.trust", set.TargetProp)
	require.Equal(t, "+", set.Operator)
	require.Equal(t, "1", set.ValueExpr)
}

func TestMoveEffect(t *testing.T) {
	n := firstNode(t, "> move @arina -> kitchen")
	e := n.(*ast.Effect)
	move, ok := e.EffectType.(ast.MoveEffect)
	require.True(t, ok)
	require.Equal(t, "arina", move.EntityRef)
	require.Equal(t, "kitchen", move.DestinationRef)
}

func TestBlockedMessage(t *testing.T) {
	n := firstNode(t, "! The door won't budge.")
	m, ok := n.(*ast.BlockedMessage)
	require.True(t, ok)
	require.Equal(t, "The door won't budge.", m.Text)
}

func TestEntityPresence(t *testing.T) {
	n := firstNode(t, "[@arina, @door]")
	p, ok := n.(*ast.EntityPresence)
	require.True(t, ok)
	require.Len(t, p.Refs, 2)
	require.Equal(t, "arina", p.Refs[0].Ref)
	require.Equal(t, "door", p.Refs[1].Ref)
}

func TestComment(t *testing.T) {
	n := firstNode(t, "// a note for authors")
	c, ok := n.(*ast.Comment)
	require.True(t, ok)
	require.Equal(t, " a note for authors", c.Text)
}

func TestProseFallback(t *testing.T) {
	n := firstNode(t, "The tavern is quiet tonight.")
	p, ok := n.(*ast.Prose)
	require.True(t, ok)
	require.Equal(t, "The tavern is quiet tonight.", p.Text)
}

func TestMissingSpaceAfterHeadingSigilIsError(t *testing.T) {
	f, diags := parseSource(t, "#NoSpace")
	_, ok := f.Content[0].(*ast.ErrorNode)
	require.True(t, ok)
	requireHasCode(t, diags, "URD112")
}

func TestRuleBlock(t *testing.T) {
	n := firstNode(t, "rule bartender_warns:\n  actor: @arina speaks\n  where @arina.trust >= 2\n  > reveal @arina.secret")
	r, ok := n.(*ast.RuleBlock)
	require.True(t, ok)
	require.Equal(t, "bartender_warns", r.Name)
	require.Equal(t, "arina", r.Actor)
	require.Equal(t, "speaks", r.Trigger)
	require.Len(t, r.WhereClauses, 1)
	require.Len(t, r.Effects, 1)
}

func requireHasCode(t *testing.T, diags *diag.Collector, code string) {
	t.Helper()
	for _, d := range diags.All() {
		if d.Code == code {
			return
		}
	}
	t.Fatalf("expected a %s diagnostic, got %+v", code, diags.All())
}
