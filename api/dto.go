/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the timebank model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE FORMATS:
  - Dates are "DD/MM/YYYY" (day-first), the format the sheet stores
  - Clock times are "HH:MM"
  - Hours and money are JSON numbers rounded to 2 places

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/banco-de-horas/generic"
	"github.com/warp/banco-de-horas/timebank"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type HourlyRateRequest struct {
	HourlyRate float64 `json:"hourly_rate"`
}

// CreditRequest is an overtime shift.
type CreditRequest struct {
	Date          string `json:"date"`
	ClockIn       string `json:"clock_in"`
	ClockOut      string `json:"clock_out"`
	LunchDeducted bool   `json:"lunch_deducted"`
}

// DebitRequest is leave taken. Clock fields are ignored for "dia_inteiro".
type DebitRequest struct {
	Date          string `json:"date"`
	Mode          string `json:"mode"`
	ClockIn       string `json:"clock_in,omitempty"`
	ClockOut      string `json:"clock_out,omitempty"`
	LunchDeducted bool   `json:"lunch_deducted"`
}

// EditEntryRequest replaces an entry's inputs.
type EditEntryRequest struct {
	Direction     string `json:"direction"`
	Date          string `json:"date"`
	Mode          string `json:"mode,omitempty"`
	ClockIn       string `json:"clock_in,omitempty"`
	ClockOut      string `json:"clock_out,omitempty"`
	LunchDeducted bool   `json:"lunch_deducted"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type UserDTO struct {
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	HourlyRate  float64 `json:"hourly_rate"`
	Cycle       int     `json:"cycle"`
}

type LoginResponse struct {
	User      UserDTO `json:"user"`
	ExpiresAt string  `json:"expires_at"`
}

// EntryDTO is one entry with its allocation from the replay.
type EntryDTO struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`
	Weekday       string  `json:"weekday"`
	ClockIn       string  `json:"clock_in"`
	ClockOut      string  `json:"clock_out"`
	Direction     string  `json:"direction"`
	Label         string  `json:"label"`
	Mode          string  `json:"mode,omitempty"`
	LunchDeducted bool    `json:"lunch_deducted"`
	Hours         float64 `json:"hours"`
	Cycle         int     `json:"cycle"`
	CreatedAt     string  `json:"created_at,omitempty"`

	// Only set in history listings.
	ToBank       *float64 `json:"to_bank,omitempty"`
	ToPay        *float64 `json:"to_pay,omitempty"`
	QuotaAfter   *float64 `json:"quota_after,omitempty"`
	BalanceAfter *float64 `json:"balance_after,omitempty"`
}

type UnreadableDTO struct {
	Row    int    `json:"row"`
	ID     string `json:"id,omitempty"`
	Date   string `json:"date"`
	Hours  string `json:"hours"`
	Reason string `json:"reason"`
	Cycle  int    `json:"cycle,omitempty"`
}

type QuotaDTO struct {
	Used      float64 `json:"used"`
	Filled    float64 `json:"filled"`
	Ceiling   float64 `json:"ceiling"`
	Progress  float64 `json:"progress"`
	Exhausted bool    `json:"exhausted"`
}

type FinancialDTO struct {
	PaidOverflowHours float64 `json:"paid_overflow_hours"`
	HourlyRate        float64 `json:"hourly_rate"`
	BaseSalary        float64 `json:"base_salary"`
	GrossOverflowPay  float64 `json:"gross_overflow_pay"`
	MarginalTax       float64 `json:"marginal_tax"`
	NetOverflowPay    float64 `json:"net_overflow_pay"`
}

type DashboardDTO struct {
	User          UserDTO         `json:"user"`
	Cycle         int             `json:"cycle"`
	EntryCount    int             `json:"entry_count"`
	Quota         QuotaDTO        `json:"quota"`
	BankedBalance float64         `json:"banked_balance"`
	Financial     FinancialDTO    `json:"financial"`
	Unreadable    []UnreadableDTO `json:"unreadable"`
}

type HistoryDTO struct {
	Cycle         int             `json:"cycle"`
	CurrentCycle  int             `json:"current_cycle"`
	Entries       []EntryDTO      `json:"entries"`
	QuotaUsed     float64         `json:"quota_used"`
	BankedBalance float64         `json:"banked_balance"`
	PaidOverflow  float64         `json:"paid_overflow"`
	Unreadable    []UnreadableDTO `json:"unreadable"`
}

type ResetDTO struct {
	Mode     string `json:"mode"`
	Changed  bool   `json:"changed"`
	Cycle    int    `json:"cycle"`
	Archived int    `json:"archived"`
}

type TaxBreakdownDTO struct {
	Gross        float64 `json:"gross"`
	Contribution float64 `json:"contribution"`
	IncomeBase   float64 `json:"income_base"`
	IncomeTax    float64 `json:"income_tax"`
	Total        float64 `json:"total"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func num(a generic.Amount) float64 {
	return a.Round(2).Float64()
}

func numPtr(a generic.Amount) *float64 {
	v := num(a)
	return &v
}

func toUserDTO(u timebank.User, rules timebank.Rules) UserDTO {
	return UserDTO{
		Username:    u.Username,
		DisplayName: u.Name(),
		HourlyRate:  num(u.Rate(rules.DefaultHourlyRate)),
		Cycle:       u.Cycle,
	}
}

func toEntryDTO(e timebank.Entry) EntryDTO {
	dto := EntryDTO{
		ID:            e.ID,
		Date:          e.Date.String(),
		Weekday:       e.Date.Weekday().String(),
		ClockIn:       generic.ClockSentinel,
		ClockOut:      generic.ClockSentinel,
		Direction:     string(e.Direction),
		Label:         e.Direction.Label(),
		Mode:          string(e.Mode),
		LunchDeducted: e.LunchDeducted,
		Hours:         num(e.Hours),
		Cycle:         e.Cycle,
	}
	if !e.IsWholeDay() {
		dto.ClockIn = e.ClockIn.String()
		dto.ClockOut = e.ClockOut.String()
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toStepDTO(s timebank.Step) EntryDTO {
	dto := toEntryDTO(s.Entry)
	dto.ToBank = numPtr(s.ToBank)
	dto.ToPay = numPtr(s.ToPay)
	dto.QuotaAfter = numPtr(s.QuotaAfter)
	dto.BalanceAfter = numPtr(s.BalanceAfter)
	return dto
}

func toUnreadableDTOs(in []timebank.UnreadableEntry) []UnreadableDTO {
	out := make([]UnreadableDTO, len(in))
	for i, u := range in {
		out[i] = UnreadableDTO{Row: u.Row, ID: u.ID, Date: u.Date, Hours: u.Hours, Reason: u.Reason, Cycle: u.Cycle}
	}
	return out
}

func toDashboardDTO(d timebank.Dashboard, rules timebank.Rules) DashboardDTO {
	rec := d.Reconciliation
	return DashboardDTO{
		User:       toUserDTO(d.User, rules),
		Cycle:      d.Cycle,
		EntryCount: d.EntryCount,
		Quota: QuotaDTO{
			Used:      num(rec.QuotaUsed),
			Filled:    num(rec.QuotaFilled()),
			Ceiling:   num(rec.Ceiling),
			Progress:  rec.QuotaProgress(),
			Exhausted: rec.QuotaExhausted(),
		},
		BankedBalance: num(rec.BankedBalance),
		Financial: FinancialDTO{
			PaidOverflowHours: num(rec.PaidOverflow),
			HourlyRate:        num(d.Pay.HourlyRate),
			BaseSalary:        num(d.Pay.BaseSalary),
			GrossOverflowPay:  num(d.Pay.Gross),
			MarginalTax:       num(d.Pay.MarginalTax),
			NetOverflowPay:    num(d.Pay.Net),
		},
		Unreadable: toUnreadableDTOs(d.Unreadable),
	}
}

func toHistoryDTO(h timebank.History) HistoryDTO {
	entries := make([]EntryDTO, len(h.Reconciliation.Steps))
	for i, s := range h.Reconciliation.Steps {
		entries[i] = toStepDTO(s)
	}
	return HistoryDTO{
		Cycle:         h.Cycle,
		CurrentCycle:  h.CurrentCycle,
		Entries:       entries,
		QuotaUsed:     num(h.Reconciliation.QuotaUsed),
		BankedBalance: num(h.Reconciliation.BankedBalance),
		PaidOverflow:  num(h.Reconciliation.PaidOverflow),
		Unreadable:    toUnreadableDTOs(h.Unreadable),
	}
}

func toTaxDTO(t timebank.TaxBreakdown) TaxBreakdownDTO {
	return TaxBreakdownDTO{
		Gross:        num(t.Gross),
		Contribution: num(t.Contribution),
		IncomeBase:   num(t.IncomeBase),
		IncomeTax:    num(t.IncomeTax),
		Total:        num(t.Total),
	}
}
