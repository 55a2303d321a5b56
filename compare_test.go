package semdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/semdiff/internal/syntax"
)

func block(stmts ...string) *syntax.BlockBody {
	b := &syntax.BlockBody{}
	text := "{"
	for _, s := range stmts {
		b.Statements = append(b.Statements, syntax.Statement{Node: syntax.Node{Text: s}})
		text += " " + s
	}
	b.Text = text + " }"
	return b
}

func expr(e string) *syntax.ExprBody {
	return &syntax.ExprBody{Node: syntax.Node{Text: "=> " + e + ";"}, Expr: e}
}

func TestCompareBodies(t *testing.T) {
	t.Parallel()

	spaced := block("a;", "b;")
	spaced.Text = "{ a;\n\n  b; }"

	tests := []struct {
		name     string
		old, new syntax.Body
		wantKind DeclarationKind
		changed  bool
	}{
		{"both nil", nil, nil, "", false},
		{"body removed", block("a;"), nil, ModuleFunction, true},
		{"body added", nil, block("a;"), ModuleFunction, true},
		{"identical blocks", block("a;", "b;"), block("a;", "b;"), "", false},
		{"trivia only", block("a;", "b;"), spaced, "", false},
		{"statement changed", block("a;", "b;"), block("a;", "c;"), ModuleFunction, true},
		{"statement added", block("a;"), block("a;", "b;"), ModuleFunction, true},
		{"statement removed", block("a;", "b;"), block("a;"), ModuleFunction, true},
		{"expression changed", expr("x"), expr("y"), DataMappingFunction, true},
		{"identical expressions", expr("x"), expr("x"), "", false},
		{"block to expression", block("return x;"), expr("x"), DataMappingFunction, true},
		{"expression to block", expr("x"), block("return x;"), DataMappingFunction, true},
		{"block to external", block("a;"), &syntax.ExternalBody{Node: syntax.Node{Text: "= external;"}}, ModuleFunction, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, changed := compareBodies(tt.old, tt.new, ModuleFunction)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestCompareBodies_ObjectKind(t *testing.T) {
	t.Parallel()
	kind, changed := compareBodies(block("a;"), block("b;"), ObjectFunction)
	assert.True(t, changed)
	assert.Equal(t, ObjectFunction, kind)

	kind, _ = compareBodies(expr("a"), expr("b"), ObjectFunction)
	assert.Equal(t, DataMappingFunction, kind)
}
