// Package syntax defines the immutable parse trees consumed by the diff
// engine. Front ends in internal/parser build these trees; nothing downstream
// needs the original parser once a tree exists.
//
// Every element carries its rendered source text and a zero-based line range.
// Rendered text excludes surrounding whitespace and comments but keeps
// everything between the first and last token.
package syntax

import (
	"sort"
	"strings"
)

// LinePosition is a zero-based line and byte offset within that line.
type LinePosition struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// LineRange locates a node within a document.
type LineRange struct {
	FileName  string       `json:"fileName"`
	StartLine LinePosition `json:"startLine"`
	EndLine   LinePosition `json:"endLine"`
}

// Node holds the text and location shared by every tree element.
type Node struct {
	Text  string
	Range LineRange
}

// SourceCode returns the rendered source text of the node.
func (n Node) SourceCode() string { return n.Text }

// LineRange returns the node's location.
func (n Node) LineRange() LineRange { return n.Range }

// Member is a top-level module member or a member of a service body. The set
// of implementations is closed: *Listener, *Service, *Function, *TypeDef and
// *Other.
type Member interface {
	SourceCode() string
	LineRange() LineRange
	isMember()
}

// Listener is a module-level listener declaration.
type Listener struct {
	Node
	Name        string
	TypeDesc    string
	Initializer string
}

// Service is a service declaration with its resource path and the
// expressions of the listeners it attaches to.
type Service struct {
	Node
	TypeDesc     string
	AbsolutePath []string
	Expressions  []string
	Members      []Member
}

// Function is a function definition, either at module level or inside a
// service. For resource methods Name is the accessor and RelativePath holds
// the path segments.
type Function struct {
	Node
	Qualifiers   []string
	Name         string
	RelativePath []string
	Body         Body
}

// HasQualifier reports whether q appears in the function's qualifier list.
func (f *Function) HasQualifier(q string) bool {
	for _, have := range f.Qualifiers {
		if strings.TrimSpace(have) == q {
			return true
		}
	}
	return false
}

// TypeDef is a named type definition.
type TypeDef struct {
	Node
	Name string
}

// Other is any member the engine does not track (imports, constants,
// classes, variable declarations, fields).
type Other struct {
	Node
	Keyword string
}

func (*Listener) isMember() {}
func (*Service) isMember()  {}
func (*Function) isMember() {}
func (*TypeDef) isMember()  {}
func (*Other) isMember()    {}

// Body is a function body. Implementations: *BlockBody, *ExprBody and
// *ExternalBody.
type Body interface {
	SourceCode() string
	LineRange() LineRange
	isBody()
}

// BlockBody is a `{ ... }` body holding a statement list.
type BlockBody struct {
	Node
	Statements []Statement
}

// ExprBody is an expression-bodied function (`=> expr;`).
type ExprBody struct {
	Node
	Expr string
}

// ExternalBody is a body implemented outside the module (`= external;`).
type ExternalBody struct {
	Node
}

func (*BlockBody) isBody()    {}
func (*ExprBody) isBody()     {}
func (*ExternalBody) isBody() {}

// Statement is one statement of a block body.
type Statement struct {
	Node
}

// ModulePart is the root of a document's tree.
type ModulePart struct {
	Node
	Members []Member
}

// Document is one parsed source file. Name is the slash-separated path
// relative to the project root.
type Document struct {
	Name     string
	Language string
	Source   string
	Root     *ModulePart
}

// LineMap converts byte offsets into line positions.
type LineMap struct {
	starts []int
}

// NewLineMap indexes the line starts of src.
func NewLineMap(src string) *LineMap {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineMap{starts: starts}
}

// Position returns the line position of a byte offset.
func (m *LineMap) Position(offset int) LinePosition {
	line := sort.Search(len(m.starts), func(i int) bool { return m.starts[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	return LinePosition{Line: line, Offset: offset - m.starts[line]}
}

// Range builds a LineRange for the byte span [start, end).
func (m *LineMap) Range(fileName string, start, end int) LineRange {
	return LineRange{
		FileName:  fileName,
		StartLine: m.Position(start),
		EndLine:   m.Position(end),
	}
}
