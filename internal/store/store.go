package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite history of diff runs.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the runs and diffs tables and their indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id                   TEXT PRIMARY KEY,
  original_root        TEXT NOT NULL,
  modified_root        TEXT NOT NULL,
  original_hash        TEXT NOT NULL,
  modified_hash        TEXT NOT NULL,
  scheme               TEXT NOT NULL,
  created_at           TIMESTAMP NOT NULL,
  diff_count           INTEGER NOT NULL,
  load_design_diagrams INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS diffs (
  run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  ordinal       INTEGER NOT NULL,
  change_type   TEXT NOT NULL,
  kind          TEXT NOT NULL,
  uri           TEXT NOT NULL,
  file_name     TEXT,
  start_line    INTEGER,
  start_offset  INTEGER,
  end_line      INTEGER,
  end_offset    INTEGER,
  PRIMARY KEY (run_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_runs_hashes ON runs(original_root, original_hash, modified_hash, scheme);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`
