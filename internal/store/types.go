package store

import "time"

// Run is one recorded comparison of two project snapshots.
type Run struct {
	ID                 string
	OriginalRoot       string
	ModifiedRoot       string
	OriginalHash       string
	ModifiedHash       string
	Scheme             string
	CreatedAt          time.Time
	DiffCount          int
	LoadDesignDiagrams bool
}

// Diff is one stored diff record. Range is nil for deletions.
type Diff struct {
	RunID      string
	Ordinal    int
	ChangeType string
	Kind       string
	URI        string
	Range      *Range
}

// Range is a stored zero-based line range.
type Range struct {
	FileName    string
	StartLine   int
	StartOffset int
	EndLine     int
	EndOffset   int
}

// CacheKey identifies a comparison for replay. The original root is part of
// the key because reported URIs are resolved against it.
type CacheKey struct {
	OriginalRoot string
	OriginalHash string
	ModifiedHash string
	Scheme       string
}
