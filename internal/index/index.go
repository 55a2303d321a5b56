// Package index classifies declarations into keyed maps so that the same
// declaration can be found in two versions of a project.
package index

import (
	"log/slog"
	"strings"

	"github.com/jward/semdiff/internal/syntax"
)

// Category is the kind of top-level declaration.
type Category int

const (
	CategoryListener Category = iota + 1
	CategoryFunction
	CategoryService
	CategoryType
)

func (c Category) String() string {
	switch c {
	case CategoryListener:
		return "listener"
	case CategoryFunction:
		return "function"
	case CategoryService:
		return "service"
	case CategoryType:
		return "type"
	}
	return "unknown"
}

// Declaration is a self-contained record of one keyed declaration. Exactly
// one of Listener, Function, Service and Type is set, matching Category.
type Declaration struct {
	Category Category
	Key      string
	Document string
	Range    syntax.LineRange
	Text     string

	Listener *syntax.Listener
	Function *syntax.Function
	Service  *syntax.Service
	Type     *syntax.TypeDef
}

// ListenerKey is the trimmed variable name.
func ListenerKey(l *syntax.Listener) string {
	return strings.TrimSpace(l.Name)
}

// FunctionKey is the trimmed function name.
func FunctionKey(f *syntax.Function) string {
	return strings.TrimSpace(f.Name)
}

// TypeKey is the trimmed type name.
func TypeKey(t *syntax.TypeDef) string {
	return strings.TrimSpace(t.Name)
}

// ServiceKey joins the trimmed absolute path segments without a separator,
// then "#", then the attached listener expressions.
func ServiceKey(s *syntax.Service) string {
	return joinSegments(s.AbsolutePath) + "#" + renderExpressions(s.Expressions)
}

// BasePath returns the part of a service key before the first "#".
func BasePath(serviceKey string) string {
	base, _, _ := strings.Cut(serviceKey, "#")
	return base
}

// ResourceKey is the accessor, "#", and the joined relative path segments.
func ResourceKey(f *syntax.Function) string {
	return strings.TrimSpace(f.Name) + "#" + joinSegments(f.RelativePath)
}

// MethodKey is the trimmed member name, used for remote and plain methods.
func MethodKey(f *syntax.Function) string {
	return strings.TrimSpace(f.Name)
}

func joinSegments(segments []string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(strings.TrimSpace(s))
	}
	return b.String()
}

func renderExpressions(exprs []string) string {
	trimmed := make([]string, len(exprs))
	for i, e := range exprs {
		trimmed[i] = strings.TrimSpace(e)
	}
	return strings.Join(trimmed, ", ")
}

// Classify maps a top-level member to its declaration record. Members the
// engine does not track report false.
func Classify(doc string, m syntax.Member) (Declaration, bool) {
	d := Declaration{Document: doc, Range: m.LineRange(), Text: m.SourceCode()}
	switch n := m.(type) {
	case *syntax.Listener:
		d.Category, d.Key, d.Listener = CategoryListener, ListenerKey(n), n
	case *syntax.Function:
		d.Category, d.Key, d.Function = CategoryFunction, FunctionKey(n), n
	case *syntax.Service:
		d.Category, d.Key, d.Service = CategoryService, ServiceKey(n), n
	case *syntax.TypeDef:
		d.Category, d.Key, d.Type = CategoryType, TypeKey(n), n
	default:
		return Declaration{}, false
	}
	return d, true
}

// Index holds the declarations of one project side, keyed per category.
// Later writes to the same key replace earlier ones.
type Index struct {
	Listeners map[string]Declaration
	Functions map[string]Declaration
	Services  map[string]Declaration
	Types     map[string]Declaration

	logger *slog.Logger
}

// New returns an empty Index. A nil logger discards collision reports.
func New(logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Index{
		Listeners: make(map[string]Declaration),
		Functions: make(map[string]Declaration),
		Services:  make(map[string]Declaration),
		Types:     make(map[string]Declaration),
		logger:    logger,
	}
}

// AddDocument indexes the top-level members of doc. Statement bodies are not
// visited.
func (ix *Index) AddDocument(doc *syntax.Document) {
	if doc == nil || doc.Root == nil {
		return
	}
	for _, m := range doc.Root.Members {
		d, ok := Classify(doc.Name, m)
		if !ok {
			continue
		}
		ix.put(d)
	}
}

// Category returns the map for c.
func (ix *Index) Category(c Category) map[string]Declaration {
	switch c {
	case CategoryListener:
		return ix.Listeners
	case CategoryFunction:
		return ix.Functions
	case CategoryService:
		return ix.Services
	case CategoryType:
		return ix.Types
	}
	return nil
}

func (ix *Index) put(d Declaration) {
	m := ix.Category(d.Category)
	if prev, ok := m[d.Key]; ok {
		ix.logger.Debug("declaration key collision, keeping later declaration",
			"category", d.Category.String(),
			"key", d.Key,
			"replaced", prev.Document,
			"by", d.Document,
		)
	}
	m[d.Key] = d
}
