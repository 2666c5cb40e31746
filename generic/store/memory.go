// Package store provides SheetStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/banco-de-horas/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	sheets   map[string][]generic.Row
	versions map[string]int64

	// FailReads and FailWrites simulate an unreachable backend.
	FailReads  error
	FailWrites error
}

func NewMemory() *Memory {
	return &Memory{
		sheets:   make(map[string][]generic.Row),
		versions: make(map[string]int64),
	}
}

func (m *Memory) Read(_ context.Context, sheet string) (generic.Sheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailReads != nil {
		return generic.Sheet{}, &generic.StoreError{Sheet: sheet, Op: "read", Err: m.FailReads}
	}
	return generic.Sheet{
		Name:    sheet,
		Rows:    generic.CloneRows(m.sheets[sheet]),
		Version: m.versions[sheet],
	}, nil
}

func (m *Memory) Replace(_ context.Context, sheet string, rows []generic.Row, expectedVersion int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return 0, &generic.StoreError{Sheet: sheet, Op: "replace", Err: m.FailWrites}
	}
	current := m.versions[sheet]
	if expectedVersion != generic.AnyVersion && expectedVersion != current {
		return 0, &generic.VersionConflictError{Sheet: sheet, Expected: expectedVersion, Actual: current}
	}

	m.sheets[sheet] = generic.CloneRows(rows)
	m.versions[sheet] = current + 1
	return current + 1, nil
}

// Seed replaces a sheet without a version check. Test helper.
func (m *Memory) Seed(sheet string, rows []generic.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheet] = generic.CloneRows(rows)
	m.versions[sheet]++
}
