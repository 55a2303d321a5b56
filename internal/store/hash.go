package store

import (
	"crypto/sha256"
	"fmt"
	"io"
	"sort"
)

// SnapshotFile is one document of a project snapshot as seen by the hash.
type SnapshotFile struct {
	Name   string
	Source string
}

// ComputeSnapshotHash computes a deterministic hash over the names and
// sources of a snapshot's documents. Input order does not matter; the
// project root does not affect the hash.
func ComputeSnapshotHash(files []SnapshotFile) string {
	sorted := make([]SnapshotFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	h := sha256.New()
	for _, f := range sorted {
		// Length prefix keeps "a"+"bc" distinct from "ab"+"c".
		fmt.Fprintf(h, "file:%s:%d\n", f.Name, len(f.Source))
		io.WriteString(h, f.Source)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
