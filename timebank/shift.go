package timebank

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/banco-de-horas/generic"
)

// =============================================================================
// SHIFT CALCULATOR - Clock pair -> stored hours
// =============================================================================

var sixty = decimal.NewFromInt(60)

// CreditInput is a submitted overtime shift.
type CreditInput struct {
	Date          generic.Date
	ClockIn       generic.Clock
	ClockOut      generic.Clock
	LunchDeducted bool
}

// DebitInput is a submitted leave. ClockIn/ClockOut are ignored for
// whole-day debits.
type DebitInput struct {
	Date          generic.Date
	Mode          DebitMode
	ClockIn       generic.Clock
	ClockOut      generic.Clock
	LunchDeducted bool
}

// ShiftCalculator converts clock pairs into the hours stored on an Entry.
type ShiftCalculator struct {
	Rules Rules
}

func NewShiftCalculator(rules Rules) ShiftCalculator {
	return ShiftCalculator{Rules: rules}
}

// RawHours is clock_out - clock_in, minus lunch, floored at zero. There is
// no overnight support: an out before in is zero.
func (c ShiftCalculator) RawHours(in, out generic.Clock, lunch bool) generic.Amount {
	raw := decimal.NewFromInt(int64(in.MinutesUntil(out))).Div(sixty)
	if lunch {
		raw = raw.Sub(c.Rules.LunchDeduction)
	}
	if raw.IsNegative() {
		raw = decimal.Zero
	}
	return generic.NewAmountFromDecimal(raw, generic.UnitHours)
}

// CreditHours applies the day-of-week multiplier.
//
//	Mon-Fri:  min(raw * 1.25, 2.0)
//	Saturday: raw * 1.5, uncapped
//	Sunday:   undefined unless Rules.SundayMultiplier is set
func (c ShiftCalculator) CreditHours(in CreditInput) (generic.Amount, error) {
	raw := c.RawHours(in.ClockIn, in.ClockOut, in.LunchDeducted)

	var credited generic.Amount
	switch wd := in.Date.Weekday(); wd {
	case time.Saturday:
		credited = raw.Mul(c.Rules.SaturdayMultiplier)
	case time.Sunday:
		if c.Rules.SundayMultiplier == nil {
			return generic.Amount{}, fmt.Errorf("%w: credit on %s", generic.ErrUndefinedDayRule, wd)
		}
		credited = raw.Mul(*c.Rules.SundayMultiplier)
	default:
		capped := generic.NewAmountFromDecimal(c.Rules.WeekdayCap, generic.UnitHours)
		credited = raw.Mul(c.Rules.WeekdayMultiplier).Min(capped)
	}
	return credited.Round(2), nil
}

// DebitHours returns fixed hours for whole-day leave and the raw clock delta
// (no multiplier) for partial leave.
func (c ShiftCalculator) DebitHours(in DebitInput) (generic.Amount, error) {
	switch in.Mode {
	case DebitWholeDay:
		wd := in.Date.Weekday()
		h, ok := c.Rules.WholeDayDebit[wd]
		if !ok {
			return generic.Amount{}, fmt.Errorf("%w: whole-day debit on %s", generic.ErrUndefinedDayRule, wd)
		}
		return generic.NewAmountFromDecimal(h, generic.UnitHours), nil
	case DebitPartial:
		lunch := in.LunchDeducted && c.Rules.PartialDebitLunch
		return c.RawHours(in.ClockIn, in.ClockOut, lunch).Round(2), nil
	default:
		return generic.Amount{}, fmt.Errorf("%w: %q", generic.ErrInvalidDebitMode, in.Mode)
	}
}
