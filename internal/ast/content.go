package ast

import "urd/internal/span"

// ContentNode is the closed set of narrative-content node variants.
type ContentNode interface {
	contentNode()
	NodeSpan() span.Span
}

type LocationHeading struct {
	DisplayName string
	Span        span.Span
}

func (n *LocationHeading) contentNode()          {}
func (n *LocationHeading) NodeSpan() span.Span   { return n.Span }

type SequenceHeading struct {
	DisplayName string
	Span        span.Span
}

func (n *SequenceHeading) contentNode()        {}
func (n *SequenceHeading) NodeSpan() span.Span { return n.Span }

type PhaseHeading struct {
	DisplayName string
	Auto        bool
	Span        span.Span
}

func (n *PhaseHeading) contentNode()        {}
func (n *PhaseHeading) NodeSpan() span.Span { return n.Span }

type SectionLabel struct {
	Name string
	Span span.Span
}

func (n *SectionLabel) contentNode()        {}
func (n *SectionLabel) NodeSpan() span.Span { return n.Span }

type Prose struct {
	Text string
	Span span.Span
}

func (n *Prose) contentNode()        {}
func (n *Prose) NodeSpan() span.Span { return n.Span }

type Comment struct {
	Text string
	Span span.Span
}

func (n *Comment) contentNode()        {}
func (n *Comment) NodeSpan() span.Span { return n.Span }

type BlockedMessage struct {
	Text        string
	IndentLevel int
	Span        span.Span
}

func (n *BlockedMessage) contentNode()        {}
func (n *BlockedMessage) NodeSpan() span.Span { return n.Span }

type EntitySpeech struct {
	EntityRef  string
	Text       string
	Annotation *Annotation
	Span       span.Span
}

func (n *EntitySpeech) contentNode()        {}
func (n *EntitySpeech) NodeSpan() span.Span { return n.Span }

type StageDirection struct {
	EntityRef  string
	Text       string
	Annotation *Annotation
	Span       span.Span
}

func (n *StageDirection) contentNode()        {}
func (n *StageDirection) NodeSpan() span.Span { return n.Span }

// EntityPresenceRef is one reference within an EntityPresence line,
// annotated independently since each may resolve (or fail to resolve)
// to a different entity.
type EntityPresenceRef struct {
	Ref        string
	Annotation *Annotation
	Span       span.Span
}

type EntityPresence struct {
	Refs []EntityPresenceRef
	Span span.Span
}

func (n *EntityPresence) contentNode()        {}
func (n *EntityPresence) NodeSpan() span.Span { return n.Span }

type Choice struct {
	Sticky      bool
	Label       string
	Target      string // `-> @id` (entity id, '@' stripped) or `-> name` (section/exit)
	TargetType  string // type name, set when `-> any TypeName`
	Content     []ContentNode
	Annotation  *Annotation
	IndentLevel int
	Span        span.Span
}

func (n *Choice) contentNode()        {}
func (n *Choice) NodeSpan() span.Span { return n.Span }

type Condition struct {
	Expr        ConditionExpr
	IndentLevel int
	Span        span.Span
}

func (n *Condition) contentNode()        {}
func (n *Condition) NodeSpan() span.Span { return n.Span }

type OrConditionBlock struct {
	Conditions  []ConditionExpr
	IndentLevel int
	Span        span.Span
}

func (n *OrConditionBlock) contentNode()        {}
func (n *OrConditionBlock) NodeSpan() span.Span { return n.Span }

type Effect struct {
	EffectType  EffectType
	Annotation  *Annotation
	IndentLevel int
	Span        span.Span
}

func (n *Effect) contentNode()        {}
func (n *Effect) NodeSpan() span.Span { return n.Span }

type Jump struct {
	Target          string
	IsExitQualified bool
	Annotation      *Annotation
	IndentLevel     int
	Span            span.Span
}

func (n *Jump) contentNode()        {}
func (n *Jump) NodeSpan() span.Span { return n.Span }

type ExitDeclaration struct {
	Direction   string
	Destination string
	Children    []ContentNode
	Annotation  *Annotation
	Span        span.Span
}

func (n *ExitDeclaration) contentNode()        {}
func (n *ExitDeclaration) NodeSpan() span.Span { return n.Span }

type Select struct {
	From         []string
	Variable     string
	WhereClauses []ConditionExpr
}

type RuleBlock struct {
	Name         string
	Actor        string
	Trigger      string
	SelectClause *Select
	WhereClauses []ConditionExpr
	Effects      []*Effect
	Span         span.Span
}

func (n *RuleBlock) contentNode()        {}
func (n *RuleBlock) NodeSpan() span.Span { return n.Span }

type ErrorNode struct {
	RawText       string
	AttemptedRule string
	Span          span.Span
}

func (n *ErrorNode) contentNode()        {}
func (n *ErrorNode) NodeSpan() span.Span { return n.Span }

// ── ConditionExpr ──

// ConditionExpr is the closed set of condition-expression variants.
type ConditionExpr interface {
	conditionExpr()
	ExprSpan() span.Span
}

type PropertyComparison struct {
	EntityRef  string
	Property   string
	Operator   string // one of ==, !=, >=, <=, >, <
	Value      string
	Annotation *Annotation
	Span       span.Span
}

func (e *PropertyComparison) conditionExpr()      {}
func (e *PropertyComparison) ExprSpan() span.Span { return e.Span }

type ContainmentCheck struct {
	EntityRef    string
	ContainerRef string
	Negated      bool
	Annotation   *Annotation
	Span         span.Span
}

func (e *ContainmentCheck) conditionExpr()      {}
func (e *ContainmentCheck) ExprSpan() span.Span { return e.Span }

type ExhaustionCheck struct {
	SectionName string
	Annotation  *Annotation
	Span        span.Span
}

func (e *ExhaustionCheck) conditionExpr()      {}
func (e *ExhaustionCheck) ExprSpan() span.Span { return e.Span }

// ── EffectType ──

// EffectType is the closed set of effect variants.
type EffectType interface {
	effectType()
}

type SetEffect struct {
	TargetProp string
	Operator   string // "=", "+", "-"
	ValueExpr  string
}

func (SetEffect) effectType() {}

type MoveEffect struct {
	EntityRef       string
	DestinationRef  string
}

func (MoveEffect) effectType() {}

type RevealEffect struct {
	TargetProp string
}

func (RevealEffect) effectType() {}

type DestroyEffect struct {
	EntityRef string
}

func (DestroyEffect) effectType() {}
