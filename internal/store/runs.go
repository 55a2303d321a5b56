package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = "id, original_root, modified_root, original_hash, modified_hash, scheme, created_at, diff_count, load_design_diagrams"

// InsertRun stores run and its diffs in one transaction. An empty run ID is
// replaced with a new UUID and a zero CreatedAt with the current time.
// DiffCount is taken from len(diffs).
func (s *Store) InsertRun(run *Run, diffs []*Diff) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.DiffCount = len(diffs)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("insert run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.OriginalRoot, run.ModifiedRoot, run.OriginalHash, run.ModifiedHash,
		run.Scheme, run.CreatedAt, run.DiffCount, boolToInt(run.LoadDesignDiagrams),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO diffs
		(run_id, ordinal, change_type, kind, uri, file_name, start_line, start_offset, end_line, end_offset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("insert run: prepare diffs: %w", err)
	}
	defer stmt.Close()

	for i, d := range diffs {
		d.RunID = run.ID
		d.Ordinal = i
		args := append([]any{d.RunID, d.Ordinal, d.ChangeType, d.Kind, d.URI}, rangeArgs(d.Range)...)
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert run: diff %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert run: commit: %w", err)
	}
	return nil
}

func scanRun(scanner interface{ Scan(...any) error }) (*Run, error) {
	r := &Run{}
	var ldd int
	if err := scanner.Scan(
		&r.ID, &r.OriginalRoot, &r.ModifiedRoot, &r.OriginalHash, &r.ModifiedHash,
		&r.Scheme, &r.CreatedAt, &r.DiffCount, &ldd,
	); err != nil {
		return nil, err
	}
	r.LoadDesignDiagrams = ldd != 0
	return r, nil
}

// RunByID returns the run with the given ID, or nil if none exists.
func (s *Store) RunByID(id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recent run recorded for key, or nil.
func (s *Store) LatestRun(key CacheKey) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(
		"SELECT "+runColumns+` FROM runs
		WHERE original_root = ? AND original_hash = ? AND modified_hash = ? AND scheme = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		key.OriginalRoot, key.OriginalHash, key.ModifiedHash, key.Scheme,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// Runs returns recorded runs, newest first. A limit of zero or less returns
// every run.
func (s *Store) Runs(limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY created_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DiffsByRun returns the diffs of a run in their original order.
func (s *Store) DiffsByRun(runID string) ([]*Diff, error) {
	rows, err := s.db.Query(`SELECT run_id, ordinal, change_type, kind, uri,
		file_name, start_line, start_offset, end_line, end_offset
		FROM diffs WHERE run_id = ? ORDER BY ordinal`, runID)
	if err != nil {
		return nil, fmt.Errorf("diffs by run: %w", err)
	}
	defer rows.Close()
	var diffs []*Diff
	for rows.Next() {
		d := &Diff{}
		var nr nullableRange
		dest := append([]any{&d.RunID, &d.Ordinal, &d.ChangeType, &d.Kind, &d.URI}, nr.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan diff: %w", err)
		}
		d.Range = nr.toRange()
		diffs = append(diffs, d)
	}
	return diffs, rows.Err()
}

// DeleteRun removes a run and its diffs. Deleting an unknown run is not an
// error.
func (s *Store) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete run: begin: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM diffs WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("delete run: diffs: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM runs WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return tx.Commit()
}

// PruneRuns keeps the newest keep runs and deletes the rest. It returns the
// number of runs deleted.
func (s *Store) PruneRuns(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	rows, err := s.db.Query("SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT -1 OFFSET ?", keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("prune runs: scan: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	for _, id := range ids {
		if err := s.DeleteRun(id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
