package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/semdiff"
	"github.com/jward/semdiff/internal/store"
)

const origSource = `function total(int a) returns int {
    return a;
}
`

const modSource = `function total(int a) returns int {
    return a * 2;
}

function extra() {
}
`

// projectPair writes an original and a modified project and returns their
// roots.
func projectPair(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig")
	mod := filepath.Join(dir, "mod")
	require.NoError(t, os.MkdirAll(orig, 0o755))
	require.NoError(t, os.MkdirAll(mod, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(orig, "main.bal"), []byte(origSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(mod, "main.bal"), []byte(modSource), 0o644))
	return orig, mod
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args any) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

// =============================================================================
// Server
// =============================================================================

func TestNewServer(t *testing.T) {
	t.Parallel()
	s := NewServer(Config{})
	require.NotNil(t, s.MCP())

	withHistory := NewServer(Config{Store: newTestStore(t)})
	require.NotNil(t, withHistory.MCP())
}

// =============================================================================
// semantic_diff
// =============================================================================

func TestSemanticDiffHandler(t *testing.T) {
	t.Parallel()
	orig, mod := projectPair(t)
	handler := createSemanticDiffHandler(Config{})

	result := callTool(t, handler, map[string]interface{}{
		"original": orig,
		"modified": mod,
	})
	require.False(t, result.IsError, resultText(t, result))

	var res semdiff.Result
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &res))
	require.Len(t, res.SemanticDiffs, 2)
	assert.False(t, res.LoadDesignDiagrams)

	assert.Equal(t, semdiff.Modification, res.SemanticDiffs[0].ChangeType)
	assert.Equal(t, semdiff.ModuleFunction, res.SemanticDiffs[0].Kind)
	assert.Equal(t, semdiff.Addition, res.SemanticDiffs[1].ChangeType)
	assert.Equal(t, "ai://"+filepath.ToSlash(orig)+"/main.bal", res.SemanticDiffs[0].URI)
}

func TestSemanticDiffHandler_Filter(t *testing.T) {
	t.Parallel()
	orig, mod := projectPair(t)
	handler := createSemanticDiffHandler(Config{Scheme: "expr"})

	result := callTool(t, handler, map[string]interface{}{
		"original": orig,
		"modified": mod,
		"filter":   `change_type == "ADDITION"`,
	})
	require.False(t, result.IsError, resultText(t, result))

	var res semdiff.Result
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &res))
	require.Len(t, res.SemanticDiffs, 1)
	assert.Equal(t, semdiff.Addition, res.SemanticDiffs[0].ChangeType)
	assert.Contains(t, res.SemanticDiffs[0].URI, "expr://")
}

func TestSemanticDiffHandler_RecordsHistory(t *testing.T) {
	t.Parallel()
	orig, mod := projectPair(t)
	st := newTestStore(t)
	handler := createSemanticDiffHandler(Config{Store: st})
	args := map[string]interface{}{"original": orig, "modified": mod}

	first := callTool(t, handler, args)
	require.False(t, first.IsError)
	second := callTool(t, handler, args)
	require.False(t, second.IsError)

	var res semdiff.Result
	require.NoError(t, json.Unmarshal([]byte(resultText(t, second)), &res))
	assert.True(t, res.Cached)
	assert.NotEmpty(t, res.RunID)

	runs, err := st.Runs(0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSemanticDiffHandler_Errors(t *testing.T) {
	t.Parallel()
	orig, mod := projectPair(t)
	handler := createSemanticDiffHandler(Config{})

	tests := []struct {
		name    string
		args    any
		wantMsg string
	}{
		{"invalid arguments", "not a map", "invalid arguments format"},
		{"missing original", map[string]interface{}{"modified": mod}, "original parameter is required"},
		{"missing modified", map[string]interface{}{"original": orig}, "modified parameter is required"},
		{"bad filter", map[string]interface{}{"original": orig, "modified": mod, "filter": "kind =="}, "semdiff: filter"},
		{"missing root", map[string]interface{}{"original": filepath.Join(orig, "nope"), "modified": mod}, "project root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := callTool(t, handler, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.wantMsg)
		})
	}
}

// =============================================================================
// semantic_diff_history
// =============================================================================

func TestHistoryHandler(t *testing.T) {
	t.Parallel()
	orig, mod := projectPair(t)
	st := newTestStore(t)

	diffHandler := createSemanticDiffHandler(Config{Store: st})
	callTool(t, diffHandler, map[string]interface{}{"original": orig, "modified": mod})
	callTool(t, diffHandler, map[string]interface{}{"original": mod, "modified": orig})

	historyHandler := createHistoryHandler(st)

	result := callTool(t, historyHandler, map[string]interface{}{})
	require.False(t, result.IsError)
	var entries []HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &entries))
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.CreatedAt)
	}

	limited := callTool(t, historyHandler, map[string]interface{}{"limit": float64(1)})
	entries = nil
	require.NoError(t, json.Unmarshal([]byte(resultText(t, limited)), &entries))
	assert.Len(t, entries, 1)
}

func TestHistoryHandler_Empty(t *testing.T) {
	t.Parallel()
	result := callTool(t, createHistoryHandler(newTestStore(t)), nil)
	assert.Equal(t, "[]", resultText(t, result))
}
