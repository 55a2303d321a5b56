package semdiff

import "github.com/jward/semdiff/internal/syntax"

// Public aliases for the syntax types that appear in the engine's API.
// These are Go type aliases (=), so no conversion is needed.

type Document = syntax.Document
type LineRange = syntax.LineRange
type LinePosition = syntax.LinePosition

// ChangeType says whether a declaration was added, removed or changed.
type ChangeType string

const (
	Addition     ChangeType = "ADDITION"
	Deletion     ChangeType = "DELETION"
	Modification ChangeType = "MODIFICATION"
)

// DeclarationKind classifies the declaration a diff record refers to.
type DeclarationKind string

const (
	ListenerDeclaration DeclarationKind = "LISTENER_DECLARATION"
	TypeDefinition      DeclarationKind = "TYPE_DEFINITION"
	ModuleFunction      DeclarationKind = "MODULE_FUNCTION"
	ObjectFunction      DeclarationKind = "OBJECT_FUNCTION"
	DataMappingFunction DeclarationKind = "DATA_MAPPING_FUNCTION"
)

// affectsDesign reports whether a change of this kind alters the
// architecture view (listeners, types, service members).
func (k DeclarationKind) affectsDesign() bool {
	switch k {
	case ListenerDeclaration, TypeDefinition, ObjectFunction:
		return true
	}
	return false
}

// SemanticDiff is one reported change. Deletions carry an empty URI and no
// line range.
type SemanticDiff struct {
	ChangeType ChangeType      `json:"changeType"`
	Kind       DeclarationKind `json:"declarationKind"`
	URI        string          `json:"uri"`
	LineRange  *LineRange      `json:"lineRange,omitempty"`
}

// Result is the outcome of comparing two project snapshots.
type Result struct {
	LoadDesignDiagrams bool           `json:"loadDesignDiagrams"`
	SemanticDiffs      []SemanticDiff `json:"semanticDiffs"`

	// RunID identifies the stored run when the engine has a history store.
	RunID string `json:"runId,omitempty"`
	// Cached is true when the records were replayed from a previous run.
	Cached bool `json:"cached,omitempty"`
}

// NewResult wraps diffs and derives LoadDesignDiagrams from them.
func NewResult(diffs []SemanticDiff) *Result {
	if diffs == nil {
		diffs = []SemanticDiff{}
	}
	r := &Result{SemanticDiffs: diffs}
	for _, d := range diffs {
		if d.Kind.affectsDesign() {
			r.LoadDesignDiagrams = true
			break
		}
	}
	return r
}
