/*
Package factory provides JSON to Go rule-set conversion.

PURPOSE:
  Converts JSON rule-set definitions into timebank.Rules and
  timebank.TaxSchedule. The overtime multipliers, the quota ceiling and the
  tax tables change with collective agreements and with every year's tax
  table, so they live in a file next to the deployment instead of in code.

JSON SCHEMA:
  {
    "id": "clt-2025",
    "name": "CLT 2025",
    "quota_hours": 36,
    "lunch_deduction_hours": 1,
    "weekday": {"multiplier": 1.25, "cap": 2.0},
    "saturday_multiplier": 1.5,
    "sunday_multiplier": null,
    "whole_day_debit": {"monday": 9, "tuesday": 9, "wednesday": 9,
                        "thursday": 9, "friday": 8},
    "partial_debit_lunch": true,
    "overflow_pay_factor": 2.1,
    "monthly_hours_divisor": 220,
    "default_hourly_rate": 25,
    "tax": {
      "contribution": [{"ceiling": 1518.00, "rate": 0.075}, ...],
      "income": [{"threshold": 2259.20, "rate": 0.075, "deduction": 169.44}, ...]
    }
  }

  Every field is optional; anything omitted keeps the value from
  timebank.DefaultRules / timebank.DefaultTaxSchedule. Numbers are read as
  decimals, never as float64.

USAGE:
  f := factory.NewRulesFactory()
  rules, tax, err := f.ParseRules(jsonString)

  // or from the path in config
  rules, tax, err := f.LoadFile(cfg.Rules.File)

SEE ALSO:
  - timebank/types.go: Rules
  - timebank/tax.go:   TaxSchedule
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/banco-de-horas/timebank"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RulesJSON is the JSON representation of a rule set.
type RulesJSON struct {
	ID                  string                     `json:"id,omitempty"`
	Name                string                     `json:"name,omitempty"`
	QuotaHours          *decimal.Decimal           `json:"quota_hours,omitempty"`
	LunchDeduction      *decimal.Decimal           `json:"lunch_deduction_hours,omitempty"`
	Weekday             *WeekdayJSON               `json:"weekday,omitempty"`
	SaturdayMultiplier  *decimal.Decimal           `json:"saturday_multiplier,omitempty"`
	SundayMultiplier    *decimal.Decimal           `json:"sunday_multiplier,omitempty"`
	WholeDayDebit       map[string]decimal.Decimal `json:"whole_day_debit,omitempty"`
	PartialDebitLunch   *bool                      `json:"partial_debit_lunch,omitempty"`
	OverflowPayFactor   *decimal.Decimal           `json:"overflow_pay_factor,omitempty"`
	MonthlyHoursDivisor *decimal.Decimal           `json:"monthly_hours_divisor,omitempty"`
	DefaultHourlyRate   *decimal.Decimal           `json:"default_hourly_rate,omitempty"`
	Tax                 *TaxJSON                   `json:"tax,omitempty"`
}

// WeekdayJSON is the Monday-Friday credit rule.
type WeekdayJSON struct {
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
	Cap        *decimal.Decimal `json:"cap,omitempty"`
}

// TaxJSON holds both tax tables. A table that is present replaces the
// default table entirely.
type TaxJSON struct {
	Contribution []BracketJSON     `json:"contribution,omitempty"`
	Income       []FlatBracketJSON `json:"income,omitempty"`
}

type BracketJSON struct {
	Ceiling decimal.Decimal `json:"ceiling"`
	Rate    decimal.Decimal `json:"rate"`
}

type FlatBracketJSON struct {
	Threshold decimal.Decimal `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
	Deduction decimal.Decimal `json:"deduction"`
}

// =============================================================================
// RULES FACTORY
// =============================================================================

// RulesFactory converts JSON rule sets to Go structs.
type RulesFactory struct{}

// NewRulesFactory creates a new rules factory.
func NewRulesFactory() *RulesFactory {
	return &RulesFactory{}
}

// ParseRules parses a JSON string into Rules and a TaxSchedule.
func (f *RulesFactory) ParseRules(jsonStr string) (timebank.Rules, timebank.TaxSchedule, error) {
	var rj RulesJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return timebank.Rules{}, timebank.TaxSchedule{}, fmt.Errorf("failed to parse rules JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// LoadFile reads a rule set from path. An empty path yields the defaults.
func (f *RulesFactory) LoadFile(path string) (timebank.Rules, timebank.TaxSchedule, error) {
	if path == "" {
		return timebank.DefaultRules(), timebank.DefaultTaxSchedule(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return timebank.Rules{}, timebank.TaxSchedule{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return f.ParseRules(string(data))
}

// FromJSON overlays rj on the defaults and validates the result.
func (f *RulesFactory) FromJSON(rj RulesJSON) (timebank.Rules, timebank.TaxSchedule, error) {
	rules := timebank.DefaultRules()
	tax := timebank.DefaultTaxSchedule()

	setDecimal(&rules.QuotaHours, rj.QuotaHours)
	setDecimal(&rules.LunchDeduction, rj.LunchDeduction)
	if rj.Weekday != nil {
		setDecimal(&rules.WeekdayMultiplier, rj.Weekday.Multiplier)
		setDecimal(&rules.WeekdayCap, rj.Weekday.Cap)
	}
	setDecimal(&rules.SaturdayMultiplier, rj.SaturdayMultiplier)
	if rj.SundayMultiplier != nil {
		v := *rj.SundayMultiplier
		rules.SundayMultiplier = &v
	}
	if rj.WholeDayDebit != nil {
		rules.WholeDayDebit = make(map[time.Weekday]decimal.Decimal, len(rj.WholeDayDebit))
		for name, hours := range rj.WholeDayDebit {
			wd, err := parseWeekday(name)
			if err != nil {
				return timebank.Rules{}, timebank.TaxSchedule{}, err
			}
			rules.WholeDayDebit[wd] = hours
		}
	}
	if rj.PartialDebitLunch != nil {
		rules.PartialDebitLunch = *rj.PartialDebitLunch
	}
	setDecimal(&rules.OverflowPayFactor, rj.OverflowPayFactor)
	setDecimal(&rules.MonthlyHoursDivisor, rj.MonthlyHoursDivisor)
	setDecimal(&rules.DefaultHourlyRate, rj.DefaultHourlyRate)

	if rj.Tax != nil {
		if len(rj.Tax.Contribution) > 0 {
			tax.Contribution = make([]timebank.Bracket, len(rj.Tax.Contribution))
			for i, b := range rj.Tax.Contribution {
				tax.Contribution[i] = timebank.Bracket{Ceiling: b.Ceiling, Rate: b.Rate}
			}
		}
		if len(rj.Tax.Income) > 0 {
			tax.Income = make([]timebank.FlatBracket, len(rj.Tax.Income))
			for i, b := range rj.Tax.Income {
				tax.Income[i] = timebank.FlatBracket{Threshold: b.Threshold, Rate: b.Rate, Deduction: b.Deduction}
			}
		}
	}

	if err := validate(rules, tax); err != nil {
		return timebank.Rules{}, timebank.TaxSchedule{}, err
	}
	return rules, tax, nil
}

// ToJSON converts Rules and a TaxSchedule back to RulesJSON.
func (f *RulesFactory) ToJSON(rules timebank.Rules, tax timebank.TaxSchedule) RulesJSON {
	ptr := func(d decimal.Decimal) *decimal.Decimal { return &d }
	partial := rules.PartialDebitLunch

	rj := RulesJSON{
		QuotaHours:          ptr(rules.QuotaHours),
		LunchDeduction:      ptr(rules.LunchDeduction),
		Weekday:             &WeekdayJSON{Multiplier: ptr(rules.WeekdayMultiplier), Cap: ptr(rules.WeekdayCap)},
		SaturdayMultiplier:  ptr(rules.SaturdayMultiplier),
		SundayMultiplier:    rules.SundayMultiplier,
		WholeDayDebit:       make(map[string]decimal.Decimal, len(rules.WholeDayDebit)),
		PartialDebitLunch:   &partial,
		OverflowPayFactor:   ptr(rules.OverflowPayFactor),
		MonthlyHoursDivisor: ptr(rules.MonthlyHoursDivisor),
		DefaultHourlyRate:   ptr(rules.DefaultHourlyRate),
		Tax:                 &TaxJSON{},
	}
	for wd, h := range rules.WholeDayDebit {
		rj.WholeDayDebit[strings.ToLower(wd.String())] = h
	}
	for _, b := range tax.Contribution {
		rj.Tax.Contribution = append(rj.Tax.Contribution, BracketJSON{Ceiling: b.Ceiling, Rate: b.Rate})
	}
	for _, b := range tax.Income {
		rj.Tax.Income = append(rj.Tax.Income, FlatBracketJSON{Threshold: b.Threshold, Rate: b.Rate, Deduction: b.Deduction})
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "domingo": time.Sunday,
	"monday": time.Monday, "segunda": time.Monday,
	"tuesday": time.Tuesday, "terca": time.Tuesday, "terça": time.Tuesday,
	"wednesday": time.Wednesday, "quarta": time.Wednesday,
	"thursday": time.Thursday, "quinta": time.Thursday,
	"friday": time.Friday, "sexta": time.Friday,
	"saturday": time.Saturday, "sabado": time.Saturday, "sábado": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday in whole_day_debit: %q", s)
	}
	return wd, nil
}

func validate(rules timebank.Rules, tax timebank.TaxSchedule) error {
	if !rules.QuotaHours.IsPositive() {
		return fmt.Errorf("quota_hours must be positive")
	}
	for name, v := range map[string]decimal.Decimal{
		"lunch_deduction_hours": rules.LunchDeduction,
		"weekday.multiplier":    rules.WeekdayMultiplier,
		"weekday.cap":           rules.WeekdayCap,
		"saturday_multiplier":   rules.SaturdayMultiplier,
		"overflow_pay_factor":   rules.OverflowPayFactor,
		"default_hourly_rate":   rules.DefaultHourlyRate,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if rules.SundayMultiplier != nil && rules.SundayMultiplier.IsNegative() {
		return fmt.Errorf("sunday_multiplier must not be negative")
	}
	if !rules.MonthlyHoursDivisor.IsPositive() {
		return fmt.Errorf("monthly_hours_divisor must be positive")
	}
	for wd, h := range rules.WholeDayDebit {
		if h.IsNegative() {
			return fmt.Errorf("whole_day_debit for %s must not be negative", wd)
		}
	}

	for i := 1; i < len(tax.Contribution); i++ {
		if !tax.Contribution[i].Ceiling.GreaterThan(tax.Contribution[i-1].Ceiling) {
			return fmt.Errorf("tax.contribution ceilings must be ascending")
		}
	}
	for i := 1; i < len(tax.Income); i++ {
		if !tax.Income[i].Threshold.GreaterThan(tax.Income[i-1].Threshold) {
			return fmt.Errorf("tax.income thresholds must be ascending")
		}
	}
	return nil
}
