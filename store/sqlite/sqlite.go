/*
Package sqlite provides a SQLite-backed implementation of generic.SheetStore.

PURPOSE:
  Holds the user and entry sheets in a local database so the server and the
  admin CLI can share state without a spreadsheet backend. Each sheet is a
  list of rows kept in insertion order; each row is stored as a JSON object
  of column -> value so unknown columns survive a rewrite.

FULL-REPLACE CONTRACT:
  Replace deletes every row of the sheet and inserts the new ones inside a
  single transaction. Readers see either the old sheet or the new one.

KEY TABLES:
  sheets:     one row per sheet, carries the version token
  sheet_rows: (sheet, position) -> row_json

VERSION CHECK:
  Replace reads the current version inside the transaction and aborts with
  generic.VersionConflictError when it differs from the caller's. The
  version is bumped on every successful replace.

CONCURRENCY:
  Uses sync.RWMutex for in-process callers. Separate processes (server and
  bancoctl) are serialised by SQLite's own write lock; the version check
  catches the interleavings the lock cannot.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/banco.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := timebank.NewService(store, rules, tax)

SEE ALSO:
  - generic/store.go:        Interface definition
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/banco-de-horas/generic"
)

// Store implements generic.SheetStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.SheetStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &generic.StoreError{Sheet: "*", Op: "ping", Err: err}
	}
	return nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheets (
		name TEXT PRIMARY KEY,
		version INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sheet_rows (
		sheet TEXT NOT NULL REFERENCES sheets(name) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		row_json TEXT NOT NULL,
		PRIMARY KEY (sheet, position)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SHEET STORE
// =============================================================================

// Read returns every row of sheet in position order.
func (s *Store) Read(ctx context.Context, sheet string) (generic.Sheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generic.Sheet{}, &generic.StoreError{Sheet: sheet, Op: "read", Err: err}
	}
	defer tx.Rollback()

	version, err := currentVersion(ctx, tx, sheet)
	if err != nil {
		return generic.Sheet{}, &generic.StoreError{Sheet: sheet, Op: "read", Err: err}
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT row_json FROM sheet_rows WHERE sheet = ? ORDER BY position`, sheet)
	if err != nil {
		return generic.Sheet{}, &generic.StoreError{Sheet: sheet, Op: "read", Err: err}
	}
	defer rows.Close()

	out := generic.Sheet{Name: sheet, Version: version}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return generic.Sheet{}, &generic.StoreError{Sheet: sheet, Op: "read", Err: err}
		}
		row := generic.Row{}
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return generic.Sheet{}, &generic.StoreError{Sheet: sheet, Op: "decode", Err: err}
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return generic.Sheet{}, &generic.StoreError{Sheet: sheet, Op: "read", Err: err}
	}
	return out, nil
}

// Replace swaps the sheet contents for rows if expectedVersion still holds.
func (s *Store) Replace(ctx context.Context, sheet string, rows []generic.Row, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &generic.StoreError{Sheet: sheet, Op: "replace", Err: err}
	}
	defer tx.Rollback()

	current, err := currentVersion(ctx, tx, sheet)
	if err != nil {
		return 0, &generic.StoreError{Sheet: sheet, Op: "replace", Err: err}
	}
	if expectedVersion != generic.AnyVersion && expectedVersion != current {
		return 0, &generic.VersionConflictError{Sheet: sheet, Expected: expectedVersion, Actual: current}
	}

	next := current + 1
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sheets (name, version, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET version = excluded.version, updated_at = excluded.updated_at`,
		sheet, next, now,
	); err != nil {
		return 0, &generic.StoreError{Sheet: sheet, Op: "replace", Err: err}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE sheet = ?`, sheet); err != nil {
		return 0, &generic.StoreError{Sheet: sheet, Op: "replace", Err: err}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sheet_rows (sheet, position, row_json) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, &generic.StoreError{Sheet: sheet, Op: "replace", Err: err}
	}
	defer stmt.Close()

	for i, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return 0, &generic.StoreError{Sheet: sheet, Op: "encode", Err: err}
		}
		if _, err := stmt.ExecContext(ctx, sheet, i, string(raw)); err != nil {
			return 0, &generic.StoreError{Sheet: sheet, Op: "replace", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &generic.StoreError{Sheet: sheet, Op: "commit", Err: err}
	}
	return next, nil
}

// Sheets lists the sheets that have been written at least once.
func (s *Store) Sheets(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sheets ORDER BY name`)
	if err != nil {
		return nil, &generic.StoreError{Sheet: "*", Op: "list", Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &generic.StoreError{Sheet: "*", Op: "list", Err: err}
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func currentVersion(ctx context.Context, q querier, sheet string) (int64, error) {
	var v int64
	err := q.QueryRowContext(ctx, `SELECT version FROM sheets WHERE name = ?`, sheet).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}
