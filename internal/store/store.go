// Package store persists execution records and provider credentials in
// a local sqlite database. The engine only appends and updates records;
// reads serve the CLI's inspection commands.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/axonworks/axon/internal/config"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(cfg config.StoreConfig) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// WAL mode lets concurrent runs append records without blocking
	// readers; the busy timeout makes writers retry instead of failing
	// with SQLITE_BUSY.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("exec %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS process_executions (
			id              TEXT PRIMARY KEY,
			process         TEXT NOT NULL,
			process_version INTEGER NOT NULL DEFAULT 1,
			input           TEXT NOT NULL,
			state           TEXT,
			status          TEXT NOT NULL DEFAULT 'running',
			error           TEXT,
			started_at      DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at     DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_process_executions_process
			ON process_executions(process, started_at)`,
		`CREATE TABLE IF NOT EXISTS task_executions (
			id           TEXT PRIMARY KEY,
			execution_id TEXT NOT NULL REFERENCES process_executions(id),
			task         TEXT NOT NULL,
			input        TEXT NOT NULL,
			output       TEXT,
			status       TEXT NOT NULL DEFAULT 'running',
			error        TEXT,
			started_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at  DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_task_executions_execution
			ON task_executions(execution_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			provider   TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}
