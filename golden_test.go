package semdiff

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden test format. Locations are relative to the original root so the
// files do not depend on where the repository is checked out.
type goldenFile struct {
	LoadDesignDiagrams bool         `json:"loadDesignDiagrams"`
	Diffs              []goldenDiff `json:"diffs"`
}

type goldenDiff struct {
	ChangeType string `json:"changeType"`
	Kind       string `json:"kind"`
	File       string `json:"file,omitempty"`
	StartLine  int    `json:"startLine,omitempty"`
	EndLine    int    `json:"endLine,omitempty"`
}

// TestGolden walks testdata/{language}/{scenario}/ directories. Each scenario
// holds an original/ and a modified/ project and the expected golden.json.
func TestGolden(t *testing.T) {
	langDirs, err := os.ReadDir("testdata")
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, langDir := range langDirs {
		if !langDir.IsDir() {
			continue
		}
		lang := langDir.Name()
		langRoot := filepath.Join("testdata", lang)
		scenarios, err := os.ReadDir(langRoot)
		if err != nil {
			continue
		}

		for _, scenario := range scenarios {
			if !scenario.IsDir() {
				continue
			}
			testDir := filepath.Join(langRoot, scenario.Name())
			goldenPath := filepath.Join(testDir, "golden.json")
			if _, err := os.Stat(goldenPath); err != nil {
				continue
			}

			t.Run(lang+"/"+scenario.Name(), func(t *testing.T) {
				t.Parallel()
				runGoldenTest(t, testDir, goldenPath)
			})
		}
	}
}

func runGoldenTest(t *testing.T, testDir, goldenPath string) {
	t.Helper()
	ctx := context.Background()

	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(goldenData, &golden))

	orig, err := LoadProject(ctx, filepath.Join(testDir, "original"))
	require.NoError(t, err)
	mod, err := LoadProject(ctx, filepath.Join(testDir, "modified"))
	require.NoError(t, err)

	engine, err := New(WithDatabase(filepath.Join(t.TempDir(), "golden.db")))
	require.NoError(t, err)
	defer engine.Close()

	res, err := engine.Compute(ctx, orig, mod)
	require.NoError(t, err)
	assert.Equal(t, golden.LoadDesignDiagrams, res.LoadDesignDiagrams)

	got := make([]goldenDiff, 0, len(res.SemanticDiffs))
	for _, d := range res.SemanticDiffs {
		got = append(got, toGolden(t, orig, d))
	}
	want := golden.Diffs
	if want == nil {
		want = []goldenDiff{}
	}
	assert.Equal(t, want, got)

	replayed, err := engine.Compute(ctx, orig, mod)
	require.NoError(t, err)
	assert.True(t, replayed.Cached)
	assert.Equal(t, res.SemanticDiffs, replayed.SemanticDiffs)
}

// toGolden converts a record and checks that its URI points into the
// original root.
func toGolden(t *testing.T, orig *Project, d SemanticDiff) goldenDiff {
	t.Helper()
	g := goldenDiff{ChangeType: string(d.ChangeType), Kind: string(d.Kind)}
	if d.LineRange == nil {
		assert.Empty(t, d.URI, "deletions carry no uri")
		return g
	}
	g.File = d.LineRange.FileName
	g.StartLine = d.LineRange.StartLine.Line
	g.EndLine = d.LineRange.EndLine.Line

	wantURI, err := documentURI(orig.Root, g.File, DefaultScheme)
	require.NoError(t, err)
	assert.Equal(t, wantURI, d.URI)
	assert.True(t, strings.HasPrefix(d.URI, DefaultScheme+"://"), d.URI)
	return g
}
