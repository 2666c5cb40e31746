/*
Package generic provides the domain-agnostic building blocks of the time bank.

PURPOSE:
  This package holds the pieces that know nothing about overtime rules:
  decimal quantities, day-first calendar dates, clock times, the row-oriented
  sheet store contract and the shared error taxonomy. The timebank package
  builds the business rules on top of it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal quantity with a unit (hours or currency)
  - Unit:   What the quantity measures

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so that a credit split into banked and
     paid portions always sums back to the original hours
  2. Type Safety: Hours and money never mix silently (Unit travels with Value)

USAGE:
  h := generic.Hours(2.5)
  pay := generic.Money(123.45)
  total := h.Add(generic.Hours(1))

SEE ALSO:
  - time.go:   Day-first dates and clock times
  - store.go:  Row store contract
  - errors.go: Error taxonomy
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitHours Unit = "hours"
	UnitBRL   Unit = "BRL"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

// Hours is shorthand for NewAmount(v, UnitHours).
func Hours(v float64) Amount { return NewAmount(v, UnitHours) }

// Money is shorthand for NewAmount(v, UnitBRL).
func Money(v float64) Amount { return NewAmount(v, UnitBRL) }

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Round(places int32) Amount    { return Amount{Value: a.Value.Round(places), Unit: a.Unit} }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Float64 is for presentation only; arithmetic stays in decimal.
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// String renders the value with two decimals, the way the sheet stores it.
func (a Amount) String() string {
	return a.Value.StringFixed(2)
}
