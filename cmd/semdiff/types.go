package main

import (
	"time"

	"github.com/jward/semdiff"
	"github.com/jward/semdiff/internal/store"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIRun is a JSON-friendly run history entry.
type CLIRun struct {
	ID                 string `json:"id"`
	OriginalRoot       string `json:"original_root"`
	ModifiedRoot       string `json:"modified_root"`
	Scheme             string `json:"scheme"`
	CreatedAt          string `json:"created_at"`
	DiffCount          int    `json:"diff_count"`
	LoadDesignDiagrams bool   `json:"load_design_diagrams"`
}

// CLIRunDetail is a stored run together with its records.
type CLIRunDetail struct {
	Run    CLIRun          `json:"run"`
	Result *semdiff.Result `json:"result"`
}

func toCLIRun(r *store.Run) CLIRun {
	return CLIRun{
		ID:                 r.ID,
		OriginalRoot:       r.OriginalRoot,
		ModifiedRoot:       r.ModifiedRoot,
		Scheme:             r.Scheme,
		CreatedAt:          r.CreatedAt.UTC().Format(time.RFC3339),
		DiffCount:          r.DiffCount,
		LoadDesignDiagrams: r.LoadDesignDiagrams,
	}
}

func toCLIRuns(runs []*store.Run) []CLIRun {
	out := make([]CLIRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, toCLIRun(r))
	}
	return out
}
