package semdiff

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/semdiff/internal/syntax"
)

const (
	origRoot = "/work/orig"
	modRoot  = "/work/mod"
	mainURI  = "ai:///work/orig/main.bal"
)

const baseBal = `import ballerina/http;

listener http:Listener ep = new (9090);

type Order record {|
    int id;
|};

function total(int a, int b) returns int {
    int sum = a + b;
    sum = sum * 2;
    return sum;
}

function toOrder(int id) returns Order => {id: id};

service /orders on ep {
    resource function get .() returns string {
        return "all";
    }

    remote function ping() returns string {
        return "pong";
    }
}
`

func newProject(t *testing.T, root string, files map[string]string) *Project {
	t.Helper()
	p, err := ParseProject(context.Background(), root, files)
	require.NoError(t, err)
	return p
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// diffMain compares baseBal against the result of edit applied to it.
func diffMain(t *testing.T, edit func(string) string) []SemanticDiff {
	t.Helper()
	return diffFiles(t,
		map[string]string{"main.bal": baseBal},
		map[string]string{"main.bal": edit(baseBal)},
	)
}

func diffFiles(t *testing.T, orig, mod map[string]string) []SemanticDiff {
	t.Helper()
	e := newTestEngine(t)
	diffs, err := e.Diffs(newProject(t, origRoot, orig), newProject(t, modRoot, mod))
	require.NoError(t, err)
	require.NotNil(t, diffs)
	return diffs
}

func replace(old, new string) func(string) string {
	return func(s string) string {
		if !strings.Contains(s, old) {
			panic("fixture does not contain " + old)
		}
		return strings.Replace(s, old, new, 1)
	}
}

func lineRange(file string, startLine, startOff, endLine, endOff int) *LineRange {
	return &LineRange{
		FileName:  file,
		StartLine: LinePosition{Line: startLine, Offset: startOff},
		EndLine:   LinePosition{Line: endLine, Offset: endOff},
	}
}

// =============================================================================
// Document pairing
// =============================================================================

func TestDiffs_IdenticalSnapshots(t *testing.T) {
	t.Parallel()
	diffs := diffMain(t, func(s string) string { return s })
	assert.Empty(t, diffs)
}

func TestDiffs_TriviaOnlyChanges(t *testing.T) {
	t.Parallel()
	diffs := diffMain(t, replace("    int sum = a + b;\n", "    int sum = a + b;\n\n    // doubled below\n"))
	assert.Empty(t, diffs)
}

func TestDiffs_DeletedFileIsNotAnalyzed(t *testing.T) {
	t.Parallel()
	diffs := diffFiles(t,
		map[string]string{"main.bal": baseBal, "util.bal": "function util() {\n}\n"},
		map[string]string{"main.bal": baseBal},
	)
	assert.Empty(t, diffs)
}

func TestDiffs_AddedFile(t *testing.T) {
	t.Parallel()
	extra := `function helper() {
}

service /extra on ep {
    resource function get .() {
    }
}
`
	diffs := diffFiles(t,
		map[string]string{"main.bal": baseBal},
		map[string]string{"main.bal": baseBal, "extra.bal": extra},
	)

	require.Len(t, diffs, 2)
	assert.Equal(t, SemanticDiff{
		ChangeType: Addition,
		Kind:       ModuleFunction,
		URI:        "ai:///work/orig/extra.bal",
		LineRange:  lineRange("extra.bal", 0, 0, 1, 1),
	}, diffs[0])
	assert.Equal(t, SemanticDiff{
		ChangeType: Addition,
		Kind:       ObjectFunction,
		URI:        "ai:///work/orig/extra.bal",
		LineRange:  lineRange("extra.bal", 4, 4, 5, 5),
	}, diffs[1])
}

// =============================================================================
// Listeners and types
// =============================================================================

func TestDiffs_ListenerRenameIsDeletionPlusAddition(t *testing.T) {
	t.Parallel()
	diffs := diffMain(t, replace("Listener ep = new", "Listener ep2 = new"))

	require.Len(t, diffs, 2)
	assert.Equal(t, SemanticDiff{ChangeType: Deletion, Kind: ListenerDeclaration}, diffs[0])
	assert.Equal(t, SemanticDiff{
		ChangeType: Addition,
		Kind:       ListenerDeclaration,
		URI:        mainURI,
		LineRange:  lineRange("main.bal", 2, 0, 2, 40),
	}, diffs[1])
}

func TestDiffs_TypeChanges(t *testing.T) {
	t.Parallel()

	t.Run("removed", func(t *testing.T) {
		t.Parallel()
		diffs := diffMain(t, replace("type Order record {|\n    int id;\n|};\n", ""))
		require.Len(t, diffs, 1)
		assert.Equal(t, SemanticDiff{ChangeType: Deletion, Kind: TypeDefinition}, diffs[0])
	})

	t.Run("body edited", func(t *testing.T) {
		t.Parallel()
		diffs := diffMain(t, replace("    int id;\n", "    int id;\n    string note;\n"))
		assert.Empty(t, diffs, "type bodies are not compared")
	})
}

// =============================================================================
// Module functions
// =============================================================================

func TestDiffs_OneDifferingStatement(t *testing.T) {
	t.Parallel()
	diffs := diffMain(t, replace("sum = sum * 2;", "sum = sum * 3;"))

	require.Len(t, diffs, 1)
	assert.Equal(t, SemanticDiff{
		ChangeType: Modification,
		Kind:       ModuleFunction,
		URI:        mainURI,
		LineRange:  lineRange("main.bal", 8, 0, 12, 1),
	}, diffs[0])
}

func TestDiffs_StatementBlockGrows(t *testing.T) {
	t.Parallel()
	diffs := diffMain(t, replace("    return sum;\n", "    sum += 1;\n    sum -= 1;\n    return sum;\n"))

	require.Len(t, diffs, 1)
	assert.Equal(t, Modification, diffs[0].ChangeType)
	assert.Equal(t, ModuleFunction, diffs[0].Kind)
}

func TestDiffs_SignatureOnlyChange(t *testing.T) {
	t.Parallel()
	diffs := diffMain(t, replace("function total(int a, int b)", "function total(int a, int b, int c)"))
	assert.Empty(t, diffs)
}

func TestDiffs_ExpressionBodies(t *testing.T) {
	t.Parallel()

	t.Run("expression changed", func(t *testing.T) {
		t.Parallel()
		diffs := diffMain(t, replace("{id: id};", "{id: id + 1};"))
		require.Len(t, diffs, 1)
		assert.Equal(t, Modification, diffs[0].ChangeType)
		assert.Equal(t, DataMappingFunction, diffs[0].Kind)
		assert.Equal(t, lineRange("main.bal", 14, 0, 14, 55), diffs[0].LineRange)
	})

	t.Run("block became expression", func(t *testing.T) {
		t.Parallel()
		diffs := diffMain(t, replace(
			"returns int {\n    int sum = a + b;\n    sum = sum * 2;\n    return sum;\n}",
			"returns int => (a + b) * 2;",
		))
		require.Len(t, diffs, 1)
		assert.Equal(t, DataMappingFunction, diffs[0].Kind)
	})
}

func TestDiffs_FunctionAddedAndRemoved(t *testing.T) {
	t.Parallel()
	diffs := diffMain(t, replace("function total(", "function grandTotal("))

	require.Len(t, diffs, 2)
	assert.Equal(t, SemanticDiff{ChangeType: Deletion, Kind: ModuleFunction}, diffs[0])
	assert.Equal(t, Addition, diffs[1].ChangeType)
	assert.Equal(t, ModuleFunction, diffs[1].Kind)
	assert.Equal(t, 8, diffs[1].LineRange.StartLine.Line)
}

// =============================================================================
// Services
// =============================================================================

func TestDiffs_ServiceMemberModified(t *testing.T) {
	t.Parallel()
	diffs := diffMain(t, replace(`return "pong";`, `return "PONG";`))

	require.Len(t, diffs, 1, "remote and object buckets report the same member once")
	assert.Equal(t, SemanticDiff{
		ChangeType: Modification,
		Kind:       ObjectFunction,
		URI:        mainURI,
		LineRange:  lineRange("main.bal", 21, 4, 23, 5),
	}, diffs[0])
}

func TestDiffs_ListenerChangeMatchedByBasePath(t *testing.T) {
	t.Parallel()
	edit := func(s string) string {
		s = replace("service /orders on ep {", "service /orders on ep, new http:Listener(9091) {")(s)
		return replace(`return "pong";`, `return "PONG";`)(s)
	}
	diffs := diffMain(t, edit)

	require.Len(t, diffs, 1)
	assert.Equal(t, Modification, diffs[0].ChangeType)
	assert.Equal(t, ObjectFunction, diffs[0].Kind)
	assert.Equal(t, 21, diffs[0].LineRange.StartLine.Line)
}

func TestDiffs_ResourcePathAdded(t *testing.T) {
	t.Parallel()
	diffs := diffMain(t, replace("resource function get .()", "resource function get msg()"))

	require.Len(t, diffs, 1, "the old resource key is not reported")
	assert.Equal(t, SemanticDiff{
		ChangeType: Addition,
		Kind:       ObjectFunction,
		URI:        mainURI,
		LineRange:  lineRange("main.bal", 17, 4, 19, 5),
	}, diffs[0])
}

func TestDiffs_ServiceMemberRemovedIsNotReported(t *testing.T) {
	t.Parallel()
	diffs := diffMain(t, replace("\n    remote function ping() returns string {\n        return \"pong\";\n    }\n", ""))
	assert.Empty(t, diffs)
}

func TestDiffs_ServiceDeleted(t *testing.T) {
	t.Parallel()
	i := strings.Index(baseBal, "service /orders")
	diffs := diffMain(t, func(s string) string { return s[:i] })

	require.Len(t, diffs, 1)
	assert.Equal(t, SemanticDiff{ChangeType: Deletion, Kind: ObjectFunction}, diffs[0])
}

func TestDiffs_PassOrder(t *testing.T) {
	t.Parallel()
	edit := func(s string) string {
		s = replace(`return "pong";`, `return "PONG";`)(s)
		s = replace("type Order record {|\n    int id;\n|};\n", "")(s)
		s = replace("sum = sum * 2;", "sum = sum * 3;")(s)
		return replace("Listener ep = new", "Listener ep2 = new")(s)
	}
	diffs := diffMain(t, edit)

	type rec struct {
		ct   ChangeType
		kind DeclarationKind
	}
	var got []rec
	for _, d := range diffs {
		got = append(got, rec{d.ChangeType, d.Kind})
	}
	assert.Equal(t, []rec{
		{Deletion, ListenerDeclaration},
		{Addition, ListenerDeclaration},
		{Modification, ModuleFunction},
		{Deletion, TypeDefinition},
		{Modification, ObjectFunction},
	}, got)
}

// =============================================================================
// Go sources
// =============================================================================

func TestDiffs_GoMethods(t *testing.T) {
	t.Parallel()
	orig := `package server

type Server struct{}

func (s *Server) Start() error {
	return nil
}

func helper() int {
	return 1
}
`
	mod := strings.Replace(orig, "return nil", `return errors.New("x")`, 1)

	diffs := diffFiles(t, map[string]string{"server.go": orig}, map[string]string{"server.go": mod})
	require.Len(t, diffs, 1)
	assert.Equal(t, SemanticDiff{
		ChangeType: Modification,
		Kind:       ObjectFunction,
		URI:        "ai:///work/orig/server.go",
		LineRange:  lineRange("server.go", 4, 0, 6, 1),
	}, diffs[0])
}

func TestDiffs_GoReceiverSplitAcrossFiles(t *testing.T) {
	t.Parallel()
	origA := "package s\n\ntype S struct{}\n\nfunc (s *S) A() int {\n\treturn 1\n}\n"
	origB := "package s\n\nfunc (s *S) B() int {\n\treturn 2\n}\n"
	orig := map[string]string{"a.go": origA, "b.go": origB}
	mod := map[string]string{
		"a.go": strings.Replace(origA, "return 1", "return 10", 1),
		"b.go": strings.Replace(origB, "return 2", "return 20", 1),
	}

	diffs := diffFiles(t, orig, mod)
	assert.Equal(t, []SemanticDiff{
		{
			ChangeType: Modification,
			Kind:       ObjectFunction,
			URI:        "ai:///work/orig/a.go",
			LineRange:  lineRange("a.go", 4, 0, 6, 1),
		},
		{
			ChangeType: Modification,
			Kind:       ObjectFunction,
			URI:        "ai:///work/orig/b.go",
			LineRange:  lineRange("b.go", 2, 0, 4, 1),
		},
	}, diffs)
}

func TestDiffs_GoMethodMovedToNewFile(t *testing.T) {
	t.Parallel()
	method := "func (s *S) A() int {\n\treturn 1\n}\n"
	orig := map[string]string{"a.go": "package s\n\ntype S struct{}\n\n" + method}
	mod := map[string]string{
		"a.go": "package s\n\ntype S struct{}\n",
		"c.go": "package s\n\n" + method,
	}

	assert.Empty(t, diffFiles(t, orig, mod))
}

func TestDiffs_GoTypeAdded(t *testing.T) {
	t.Parallel()
	orig := "package p\n\nfunc f() {}\n"
	mod := "package p\n\ntype T int\n\nfunc f() {}\n"

	diffs := diffFiles(t, map[string]string{"p.go": orig}, map[string]string{"p.go": mod})
	require.Len(t, diffs, 1)
	assert.Equal(t, Addition, diffs[0].ChangeType)
	assert.Equal(t, TypeDefinition, diffs[0].Kind)
}

// =============================================================================
// Engine behaviour
// =============================================================================

func TestDiffs_Scheme(t *testing.T) {
	t.Parallel()
	orig := newProject(t, origRoot, map[string]string{"main.bal": baseBal})
	mod := newProject(t, modRoot, map[string]string{"main.bal": replace("sum * 2", "sum * 4")(baseBal)})

	e := newTestEngine(t, WithScheme("expr"))
	diffs, err := e.Diffs(orig, mod)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, "expr:///work/orig/main.bal", diffs[0].URI)
}

func TestDiffs_NilProject(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	_, err := e.Diffs(nil, nil)
	assert.Error(t, err)
}

func TestDiffs_PanicBecomesError(t *testing.T) {
	t.Parallel()
	broken := func(src string) *Document {
		return &Document{
			Name:   "x.bal",
			Source: src,
			Root:   &syntax.ModulePart{Members: []syntax.Member{(*syntax.Function)(nil)}},
		}
	}
	orig, err := NewProject(origRoot, broken("a"))
	require.NoError(t, err)
	mod, err := NewProject(modRoot, broken("b"))
	require.NoError(t, err)

	e := newTestEngine(t)
	diffs, err := e.Diffs(orig, mod)
	require.Error(t, err)
	assert.Nil(t, diffs)
	assert.Contains(t, err.Error(), "semdiff: compute")
}

func TestResult_LoadDesignDiagrams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind DeclarationKind
		want bool
	}{
		{ListenerDeclaration, true},
		{TypeDefinition, true},
		{ObjectFunction, true},
		{ModuleFunction, false},
		{DataMappingFunction, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			r := NewResult([]SemanticDiff{{ChangeType: Deletion, Kind: tt.kind}})
			assert.Equal(t, tt.want, r.LoadDesignDiagrams)
		})
	}

	empty := NewResult(nil)
	assert.False(t, empty.LoadDesignDiagrams)
	assert.NotNil(t, empty.SemanticDiffs)
}

func TestSemanticDiff_JSON(t *testing.T) {
	t.Parallel()
	r := NewResult([]SemanticDiff{
		{ChangeType: Deletion, Kind: ListenerDeclaration},
		{ChangeType: Addition, Kind: ModuleFunction, URI: mainURI, LineRange: lineRange("main.bal", 1, 2, 3, 4)},
	})
	data, err := json.Marshal(r)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"loadDesignDiagrams": true,
		"semanticDiffs": [
			{"changeType": "DELETION", "declarationKind": "LISTENER_DECLARATION", "uri": ""},
			{"changeType": "ADDITION", "declarationKind": "MODULE_FUNCTION", "uri": "ai:///work/orig/main.bal",
			 "lineRange": {"fileName": "main.bal", "startLine": {"line": 1, "offset": 2}, "endLine": {"line": 3, "offset": 4}}}
		]
	}`, string(data))
}

func TestDocumentURI(t *testing.T) {
	t.Parallel()

	uri, err := documentURI("/work/orig", "modules/a b/x.bal", "ai")
	require.NoError(t, err)
	assert.Equal(t, "ai:///work/orig/modules/a%20b/x.bal", uri)

	uri, err = documentURI("/work/orig", "x.bal", "")
	require.NoError(t, err)
	assert.Equal(t, "file:///work/orig/x.bal", uri)

	_, err = documentURI("", "x.bal", "ai")
	assert.Error(t, err)
}
