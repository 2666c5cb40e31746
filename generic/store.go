/*
store.go - Row-oriented sheet store contract

PURPOSE:
  Defines the interface between the time bank and whatever holds its rows.
  The legacy backend was a spreadsheet: every read returns a whole worksheet
  and every write replaces it. The contract keeps that shape so any
  row-oriented backend can serve it.

KEY INTERFACE:
  SheetStore: Read(sheet) -> Sheet, Replace(sheet, rows, expectedVersion)

FULL-REPLACE CONTRACT:
  - There is no append, update or delete of a single row
  - Every mutation is read-modify-replace of the entire sheet
  - This includes other users' rows on the same sheet

LOST-UPDATE PROTECTION:
  A full replace with no concurrency control lets two sessions silently
  clobber each other. Every Sheet carries a Version; Replace takes the
  version that was read and fails with ErrConcurrentModification if the
  sheet moved on. Pass AnyVersion to get the legacy last-write-wins.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory, for tests and dev
  - store/sqlite/sqlite.go:  SQLite-backed

SEE ALSO:
  - timebank/ledger.go: Entry sheet read-modify-replace
  - timebank/users.go:  User sheet access
*/
package generic

import (
	"context"
	"strings"
)

// AnyVersion disables the version check on Replace.
const AnyVersion int64 = -1

// Row is one sheet row keyed by column header.
type Row map[string]string

// Get returns the trimmed value of a column; missing columns read as "".
func (r Row) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// Clone returns a copy safe to mutate.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Sheet is a full snapshot of one table.
type Sheet struct {
	Name    string
	Rows    []Row
	Version int64
}

// SheetStore is the backing table collaborator.
type SheetStore interface {
	// Read returns every row of the sheet in insertion order. A sheet that
	// was never written reads as empty with version 0.
	Read(ctx context.Context, sheet string) (Sheet, error)

	// Replace swaps the sheet contents for rows. expectedVersion must match
	// the current version unless it is AnyVersion. Returns the new version.
	Replace(ctx context.Context, sheet string, rows []Row, expectedVersion int64) (int64, error)
}

// CloneRows deep-copies rows so callers never share maps with a store.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
