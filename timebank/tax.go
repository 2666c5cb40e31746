package timebank

import (
	"github.com/shopspring/decimal"
	"github.com/warp/banco-de-horas/generic"
)

// =============================================================================
// TAX SCHEDULE - Two stages with different shapes
// =============================================================================

// Bracket is one marginal band of the contribution (INSS) schedule.
type Bracket struct {
	Ceiling decimal.Decimal
	Rate    decimal.Decimal
}

// FlatBracket is one row of the income tax (IRPF) table: the whole base is
// taxed at Rate and Deduction is subtracted. It is not marginal.
type FlatBracket struct {
	Threshold decimal.Decimal
	Rate      decimal.Decimal
	Deduction decimal.Decimal
}

// TaxSchedule holds both tables, each sorted ascending.
type TaxSchedule struct {
	Contribution []Bracket
	Income       []FlatBracket
}

func DefaultTaxSchedule() TaxSchedule {
	d := decimal.RequireFromString
	return TaxSchedule{
		Contribution: []Bracket{
			{Ceiling: d("1518.00"), Rate: d("0.075")},
			{Ceiling: d("2800.00"), Rate: d("0.09")},
			{Ceiling: d("4200.00"), Rate: d("0.12")},
			{Ceiling: d("8157.00"), Rate: d("0.14")},
		},
		Income: []FlatBracket{
			{Threshold: d("2259.20"), Rate: d("0.075"), Deduction: d("169.44")},
			{Threshold: d("2826.65"), Rate: d("0.15"), Deduction: d("381.44")},
			{Threshold: d("3751.05"), Rate: d("0.225"), Deduction: d("662.77")},
			{Threshold: d("4664.68"), Rate: d("0.275"), Deduction: d("893.66")},
		},
	}
}

// TaxBreakdown is the withholding on one gross amount.
type TaxBreakdown struct {
	Gross        generic.Amount
	Contribution generic.Amount
	IncomeBase   generic.Amount
	IncomeTax    generic.Amount
	Total        generic.Amount
}

// Compute returns the withholding on gross. Negative gross is treated as 0.
func (s TaxSchedule) Compute(gross generic.Amount) TaxBreakdown {
	g := decimal.Max(gross.Value, decimal.Zero)
	contribution := s.contribution(g)
	base := g.Sub(contribution)
	income := s.incomeTax(base)

	money := func(v decimal.Decimal) generic.Amount {
		return generic.NewAmountFromDecimal(v, generic.UnitBRL)
	}
	return TaxBreakdown{
		Gross:        money(g),
		Contribution: money(contribution),
		IncomeBase:   money(base),
		IncomeTax:    money(income),
		Total:        money(contribution.Add(income)),
	}
}

// Tax is Compute(gross).Total.
func (s TaxSchedule) Tax(gross generic.Amount) generic.Amount {
	return s.Compute(gross).Total
}

// contribution walks the bands marginally and stops at the band containing
// gross. Income above the last ceiling adds nothing.
func (s TaxSchedule) contribution(gross decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	prev := decimal.Zero
	for _, b := range s.Contribution {
		if gross.GreaterThan(prev) {
			total = total.Add(b.Rate.Mul(decimal.Min(gross, b.Ceiling).Sub(prev)))
		}
		if !gross.GreaterThan(b.Ceiling) {
			break
		}
		prev = b.Ceiling
	}
	return total
}

// incomeTax picks the single highest threshold base exceeds.
func (s TaxSchedule) incomeTax(base decimal.Decimal) decimal.Decimal {
	var match *FlatBracket
	for i := range s.Income {
		if base.GreaterThan(s.Income[i].Threshold) {
			match = &s.Income[i]
		}
	}
	if match == nil {
		return decimal.Zero
	}
	return decimal.Max(base.Mul(match.Rate).Sub(match.Deduction), decimal.Zero)
}

// =============================================================================
// OVERFLOW PAY - Net of the marginal tax it causes
// =============================================================================

type OverflowPay struct {
	Hours       generic.Amount
	HourlyRate  generic.Amount
	BaseSalary  generic.Amount
	Gross       generic.Amount
	MarginalTax generic.Amount
	Net         generic.Amount
}

// OverflowPay prices paid overflow hours. The tax charged is the increase in
// total withholding caused by adding the overflow to the base salary, not
// the tax the overflow would pay on its own.
func (s TaxSchedule) OverflowPay(hours, hourlyRate generic.Amount, rules Rules) OverflowPay {
	base := hourlyRate.Mul(rules.MonthlyHoursDivisor)
	gross := generic.NewAmountFromDecimal(hours.Value.Mul(hourlyRate.Value).Mul(rules.OverflowPayFactor), generic.UnitBRL)
	marginal := s.Tax(base.Add(gross)).Sub(s.Tax(base))

	return OverflowPay{
		Hours:       hours,
		HourlyRate:  hourlyRate,
		BaseSalary:  base,
		Gross:       gross,
		MarginalTax: marginal,
		Net:         gross.Sub(marginal),
	}
}
