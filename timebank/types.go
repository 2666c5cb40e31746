// Package timebank implements the banco de horas rules on top of the generic
// sheet store: shift-hour calculation, the lifetime-quota reconciliation
// replay, progressive tax on paid overflow, and the entry and user sheets.
package timebank

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/banco-de-horas/generic"
)

// =============================================================================
// DIRECTION
// =============================================================================

// Direction tags an entry as overtime worked or leave taken.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Label is the value written to the sheet.
func (d Direction) Label() string {
	switch d {
	case Credit:
		return "Crédito"
	case Debit:
		return "Débito"
	default:
		return string(d)
	}
}

// ParseDirection accepts the sheet labels with or without accents, and the
// English names.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crédito", "credito", "credit", "c", "+":
		return Credit, nil
	case "débito", "debito", "debit", "d", "-":
		return Debit, nil
	}
	return "", generic.ErrInvalidDirection
}

// =============================================================================
// DEBIT MODE
// =============================================================================

type DebitMode string

const (
	DebitNone     DebitMode = ""
	DebitPartial  DebitMode = "parcial"
	DebitWholeDay DebitMode = "dia_inteiro"
)

func ParseDebitMode(s string) (DebitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "parcial", "partial":
		return DebitPartial, nil
	case "dia_inteiro", "dia inteiro", "whole_day", "whole-day", "full_day":
		return DebitWholeDay, nil
	case "":
		return DebitNone, nil
	}
	return "", generic.ErrInvalidDebitMode
}

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one submitted time event. Hours is the post-rule value (lunch and
// day multiplier already applied), never the raw clock delta.
type Entry struct {
	ID            string
	UserID        string
	Date          generic.Date
	ClockIn       *generic.Clock // nil for whole-day leave
	ClockOut      *generic.Clock
	Direction     Direction
	Mode          DebitMode
	LunchDeducted bool
	Hours         generic.Amount
	Cycle         int
	CreatedAt     time.Time

	// Position in the sheet; breaks date ties during replay.
	Row int
}

func (e Entry) IsWholeDay() bool { return e.ClockIn == nil || e.ClockOut == nil }

// =============================================================================
// RULES - Jurisdiction parameters
// =============================================================================

// Rules carries every number the calculators use. DefaultRules is the
// canonical rule set; factory.ParseRules overrides it from JSON.
type Rules struct {
	// Lifetime banked-credit ceiling per cycle.
	QuotaHours decimal.Decimal

	LunchDeduction     decimal.Decimal
	WeekdayMultiplier  decimal.Decimal
	WeekdayCap         decimal.Decimal
	SaturdayMultiplier decimal.Decimal

	// SundayMultiplier is nil when Sunday credits are undefined.
	SundayMultiplier *decimal.Decimal

	// Whole-day debit hours by weekday. Missing days are undefined.
	WholeDayDebit map[time.Weekday]decimal.Decimal

	// PartialDebitLunch honours the lunch flag on partial debits.
	PartialDebitLunch bool

	// Paid overflow pay = hours * hourly rate * OverflowPayFactor.
	OverflowPayFactor decimal.Decimal

	// Monthly base salary = hourly rate * MonthlyHoursDivisor.
	MonthlyHoursDivisor decimal.Decimal

	DefaultHourlyRate decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		QuotaHours:         decimal.NewFromInt(36),
		LunchDeduction:     decimal.NewFromInt(1),
		WeekdayMultiplier:  decimal.RequireFromString("1.25"),
		WeekdayCap:         decimal.NewFromInt(2),
		SaturdayMultiplier: decimal.RequireFromString("1.5"),
		WholeDayDebit: map[time.Weekday]decimal.Decimal{
			time.Monday:    decimal.NewFromInt(9),
			time.Tuesday:   decimal.NewFromInt(9),
			time.Wednesday: decimal.NewFromInt(9),
			time.Thursday:  decimal.NewFromInt(9),
			time.Friday:    decimal.NewFromInt(8),
		},
		PartialDebitLunch:   true,
		OverflowPayFactor:   decimal.RequireFromString("2.1"),
		MonthlyHoursDivisor: decimal.NewFromInt(220),
		DefaultHourlyRate:   decimal.NewFromInt(25),
	}
}

// Quota returns the ceiling as an hours amount.
func (r Rules) Quota() generic.Amount {
	return generic.NewAmountFromDecimal(r.QuotaHours, generic.UnitHours)
}
