// Package ast defines the tagged-variant AST produced by PARSE and
// annotated in place by LINK. Two subtrees compose a File: Frontmatter
// and Content.
package ast

import "urd/internal/span"

// File is the parsed representation of one source file.
type File struct {
	Path        string
	Frontmatter *Frontmatter
	Content     []ContentNode
}

// Frontmatter holds the ordered entries found between the `---` delimiters.
type Frontmatter struct {
	Entries []FrontmatterEntry
	Span    span.Span
}

// FrontmatterEntry is one top-level key/value pair in source order.
type FrontmatterEntry struct {
	Key   string
	Value FrontmatterValue
	Span  span.Span
}

// FrontmatterValue is the closed set of frontmatter value variants.
type FrontmatterValue interface {
	frontmatterValue()
}

// EntityDecl declares an entity under the `entities:` block.
type EntityDecl struct {
	ID                string
	TypeName          string
	PropertyOverrides []KV
	Annotation        *Annotation
	Span              span.Span
}

func (*EntityDecl) frontmatterValue() {}

// TypeDef declares a type under the `types:` block.
type TypeDef struct {
	Name       string
	Traits     []string
	Properties []PropertyDef
	Span       span.Span
}

func (*TypeDef) frontmatterValue() {}

// WorldBlock is the `world:` block.
type WorldBlock struct {
	Fields []KV
	Span   span.Span
}

func (*WorldBlock) frontmatterValue() {}

// ImportDecl is one `import: <path>` entry.
type ImportDecl struct {
	Path string
	Span span.Span
}

func (*ImportDecl) frontmatterValue() {}

// MapValue is a nested ordered mapping (an author-defined entry whose
// value is itself a block of further entries — used for `types:` and
// `entities:`, whose children are TypeDef/EntityDecl values rather than
// bare scalars).
type MapValue struct {
	Entries []FrontmatterEntry
	Span    span.Span
}

func (*MapValue) frontmatterValue() {}

// ListValue is a flow-style or block-style list of scalars.
type ListValue struct {
	Values []Scalar
	Span   span.Span
}

func (*ListValue) frontmatterValue() {}

// InlineObjectValue is a `{ key: value, ... }` inline object.
type InlineObjectValue struct {
	Entries []KV
	Span    span.Span
}

func (*InlineObjectValue) frontmatterValue() {}

// ScalarValue wraps a bare Scalar appearing as a frontmatter value.
type ScalarValue struct {
	Value Scalar
	Span  span.Span
}

func (*ScalarValue) frontmatterValue() {}

// KV is an ordered key/value pair used by maps, property overrides, and
// world fields.
type KV struct {
	Key   string
	Value Scalar
}

// ScalarKind discriminates the Scalar union.
type ScalarKind int

const (
	ScalarString ScalarKind = iota
	ScalarInteger
	ScalarNumber
	ScalarBoolean
	ScalarList
	ScalarEntityRef
)

// Scalar is a frontmatter leaf value.
type Scalar struct {
	Kind   ScalarKind
	Str    string
	Int    int64
	Num    float64
	Bool   bool
	List   []Scalar
	EntRef string // entity id without the leading '@'
}

// PropertyType enumerates the canonical property type names.
type PropertyType int

const (
	TypeBoolean PropertyType = iota
	TypeInteger
	TypeNumber
	TypeString
	TypeEnum
	TypeRef
	TypeList
)

// Visibility controls whether a property is hidden from narrative output.
type Visibility int

const (
	Visible Visibility = iota
	Hidden
)

// PropertyDef declares one property within a TypeDef.
type PropertyDef struct {
	Name            string
	PropertyType    PropertyType
	Default         *Scalar
	Visibility      Visibility
	Values          []string // enum values
	Min             *float64
	Max             *float64
	RefType         string
	ElementType     *PropertyType // for list(ElementSig)
	ElementValues   []string      // list(enum(...))
	ElementRefType  string        // list(ref(Type))
	Description     string
	SpellingWasAlias bool   // true if author used an alias (int, bool, ...)
	UnrecognizedSpelling string // raw text when the type name matched neither a canonical name nor an alias
	Span            span.Span
}
