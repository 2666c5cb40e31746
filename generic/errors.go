/*
errors.go - Centralized error types for the time bank

PURPOSE:
  All error types in one place for consistency and discoverability.
  The timebank package wraps these with context; the api package maps
  them to HTTP status codes with errors.Is.

ERROR CATEGORIES:
  1. Authentication - Credentials not found in the user sheet
  2. Store - Backing sheet unreachable or modified underneath us
  3. Input - Dates, clock times, directions the rules cannot handle
  4. Malformed rows - Stored rows that cannot be replayed

Nothing here is fatal. Every error ends in a user-visible message.

SEE ALSO:
  - store.go: Store contract that returns these errors
  - timebank/ledger.go: Wraps store errors with domain context
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidCredentials is returned when the username/password pair is
	// not in the user sheet.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrStoreUnavailable is returned when the backing sheet cannot be read
	// or written.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConcurrentModification is returned when the sheet changed between
	// our read and our replace.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	ErrUserNotFound  = errors.New("user not found")
	ErrEntryNotFound = errors.New("entry not found")
	ErrUserExists    = errors.New("user already exists")

	ErrInvalidUsername = errors.New("invalid username")

	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidClock     = errors.New("invalid clock time")
	ErrInvalidHours     = errors.New("invalid hours")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidDebitMode = errors.New("invalid debit mode")

	// ErrUndefinedDayRule is returned for days the overtime rules do not
	// define (Sunday credits, weekend whole-day debits).
	ErrUndefinedDayRule = errors.New("no rule defined for this day")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StoreError wraps a backend failure with the sheet and operation.
type StoreError struct {
	Sheet string
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Sheet, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// VersionConflictError reports the versions involved in a lost-update check.
type VersionConflictError struct {
	Sheet    string
	Expected int64
	Actual   int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("sheet %s changed: expected version %d, found %d", e.Sheet, e.Expected, e.Actual)
}

func (e *VersionConflictError) Unwrap() error {
	return ErrConcurrentModification
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed after re-reading.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidClock) ||
		errors.Is(err, ErrInvalidHours) ||
		errors.Is(err, ErrInvalidDirection) ||
		errors.Is(err, ErrInvalidDebitMode) ||
		errors.Is(err, ErrUndefinedDayRule) ||
		errors.Is(err, ErrUserExists) ||
		errors.Is(err, ErrInvalidUsername)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}
