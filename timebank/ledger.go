/*
ledger.go - Entry sheet access

PURPOSE:
  Wraps the SheetStore for the entry sheet. The sheet holds every user's
  entries, so every mutation is a read-modify-replace of all of them.

WRITE PATH:
  1. Read the whole sheet (rows + version)
  2. Modify the slice in memory (append / patch one row / drop rows)
  3. Replace the whole sheet passing the version from step 1

  If another session wrote in between, step 3 fails with
  generic.ErrConcurrentModification and nothing is written. There is no
  retry: the caller reports it and the user resubmits.

UNREADABLE ROWS:
  Rows whose date or hours cannot be parsed are never dropped on rewrite.
  Only rows we explicitly target are changed; everything else is written
  back byte-for-byte.

SEE ALSO:
  - codec.go:   Row <-> Entry
  - service.go: Uses Ledger for every write intent
*/
package timebank

import (
	"context"
	"fmt"

	"github.com/warp/banco-de-horas/generic"
)

// DefaultEntrySheet is the legacy worksheet name.
const DefaultEntrySheet = "Lancamentos"

// UserEntries is one user's view of the entry sheet.
type UserEntries struct {
	Entries    []Entry
	Unreadable []UnreadableEntry
	Version    int64
}

// ForCycle keeps the entries stamped with cycle.
func (u UserEntries) ForCycle(cycle int) []Entry {
	var out []Entry
	for _, e := range u.Entries {
		if e.Cycle == cycle {
			out = append(out, e)
		}
	}
	return out
}

// UnreadableForCycle keeps the unreadable rows of cycle, plus those whose
// cycle could not be read either.
func (u UserEntries) UnreadableForCycle(cycle int) []UnreadableEntry {
	var out []UnreadableEntry
	for _, r := range u.Unreadable {
		if r.Cycle == cycle || r.Cycle == 0 {
			out = append(out, r)
		}
	}
	return out
}

type Ledger struct {
	Store generic.SheetStore
	Sheet string
}

func NewLedger(store generic.SheetStore, sheet string) *Ledger {
	if sheet == "" {
		sheet = DefaultEntrySheet
	}
	return &Ledger{Store: store, Sheet: sheet}
}

// Load decodes username's rows.
func (l *Ledger) Load(ctx context.Context, username string) (UserEntries, error) {
	sheet, err := l.Store.Read(ctx, l.Sheet)
	if err != nil {
		return UserEntries{}, err
	}
	entries, unreadable := DecodeEntries(sheet.Rows, username)
	return UserEntries{Entries: entries, Unreadable: unreadable, Version: sheet.Version}, nil
}

// Append adds e at the end of the sheet.
func (l *Ledger) Append(ctx context.Context, e Entry) error {
	sheet, err := l.Store.Read(ctx, l.Sheet)
	if err != nil {
		return err
	}
	rows := append(sheet.Rows, EncodeEntry(e, nil))
	_, err = l.Store.Replace(ctx, l.Sheet, rows, sheet.Version)
	return err
}

// Update rewrites the entry with id, owned by username, through fn.
func (l *Ledger) Update(ctx context.Context, username, id string, fn func(*Entry) error) (Entry, error) {
	sheet, err := l.Store.Read(ctx, l.Sheet)
	if err != nil {
		return Entry{}, err
	}

	idx := findRow(sheet.Rows, username, id)
	if idx < 0 {
		return Entry{}, fmt.Errorf("%w: %s", generic.ErrEntryNotFound, id)
	}

	// An unreadable row can still be edited: start from what parses and let
	// fn supply the rest.
	e, err := DecodeEntry(sheet.Rows[idx], idx)
	if err != nil {
		cycle, ok := rowCycle(sheet.Rows[idx])
		if !ok {
			cycle = 1
		}
		e = Entry{ID: id, UserID: sheet.Rows[idx].Get(ColUser), Cycle: cycle, Row: idx}
	}
	if err := fn(&e); err != nil {
		return Entry{}, err
	}

	sheet.Rows[idx] = EncodeEntry(e, sheet.Rows[idx])
	if _, err := l.Store.Replace(ctx, l.Sheet, sheet.Rows, sheet.Version); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Delete removes the entry with id owned by username.
func (l *Ledger) Delete(ctx context.Context, username, id string) error {
	sheet, err := l.Store.Read(ctx, l.Sheet)
	if err != nil {
		return err
	}

	idx := findRow(sheet.Rows, username, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", generic.ErrEntryNotFound, id)
	}

	rows := append(sheet.Rows[:idx:idx], sheet.Rows[idx+1:]...)
	_, err = l.Store.Replace(ctx, l.Sheet, rows, sheet.Version)
	return err
}

// Purge deletes every row belonging to username, readable or not. Returns
// how many rows were removed; removing none writes nothing.
func (l *Ledger) Purge(ctx context.Context, username string) (int, error) {
	sheet, err := l.Store.Read(ctx, l.Sheet)
	if err != nil {
		return 0, err
	}

	user := NormalizeUsername(username)
	kept := make([]generic.Row, 0, len(sheet.Rows))
	for _, r := range sheet.Rows {
		if NormalizeUsername(r.Get(ColUser)) != user {
			kept = append(kept, r)
		}
	}

	removed := len(sheet.Rows) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if _, err := l.Store.Replace(ctx, l.Sheet, kept, sheet.Version); err != nil {
		return 0, err
	}
	return removed, nil
}

func findRow(rows []generic.Row, username, id string) int {
	user := NormalizeUsername(username)
	for i, r := range rows {
		if r.Get(ColID) == id && NormalizeUsername(r.Get(ColUser)) == user {
			return i
		}
	}
	return -1
}
