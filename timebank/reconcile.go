/*
reconcile.go - Lifetime-quota reconciliation replay

PURPOSE:
  Computes a user's time-bank state from their complete entry history.
  Nothing derived is ever stored: every view replays every entry of the
  current cycle from scratch, so resetting a cycle is just moving the
  watermark and the replay is side-effect free.

THE ONE-WAY VALVE:
  The 36 hour ceiling is a lifetime accumulator, not a balance cap. Once
  36 hours of credit have been logged in the cycle, every later credit is
  paid overflow in full, even if debits have since pulled the banked
  balance to zero or below. A debit never gives quota back.

ALGORITHM:
  for entry in entries sorted by date (stable):
    Credit:
      if quota_used < ceiling:
        room    = ceiling - quota_used
        to_bank = min(hours, room)
        to_pay  = max(0, hours - room)
        quota_used += hours          (full entry hours, not to_bank)
      else:
        to_pay = hours
    Debit:
      banked -= hours                (quota_used untouched)

  quota_used counts credit hours attempted, so it can end above the
  ceiling (35 + 3 = 38). QuotaFilled is the bounded view for progress bars.

SEE ALSO:
  - shift.go: Produces the hours replayed here
  - tax.go:   Prices the paid overflow
*/
package timebank

import (
	"sort"

	"github.com/warp/banco-de-horas/generic"
)

// Step is the allocation of one entry during the replay.
type Step struct {
	Entry         Entry
	ToBank        generic.Amount
	ToPay         generic.Amount
	QuotaAfter    generic.Amount
	BalanceAfter  generic.Amount
	OverflowAfter generic.Amount
}

// Reconciliation is the derived state of a cycle.
type Reconciliation struct {
	Ceiling       generic.Amount
	QuotaUsed     generic.Amount
	BankedBalance generic.Amount
	PaidOverflow  generic.Amount
	Steps         []Step
}

// QuotaFilled is QuotaUsed bounded to [0, ceiling].
func (r Reconciliation) QuotaFilled() generic.Amount {
	return r.QuotaUsed.Min(r.Ceiling)
}

// QuotaProgress is QuotaFilled as a fraction of the ceiling.
func (r Reconciliation) QuotaProgress() float64 {
	if !r.Ceiling.IsPositive() {
		return 0
	}
	f, _ := r.QuotaFilled().Value.Div(r.Ceiling.Value).Float64()
	return f
}

// QuotaExhausted reports whether further credits are entirely paid.
func (r Reconciliation) QuotaExhausted() bool {
	return !r.QuotaUsed.LessThan(r.Ceiling)
}

// SortEntries orders entries by date, keeping sheet order on ties.
func SortEntries(entries []Entry) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// Reconcile replays entries under rules. The input slice is not modified.
func Reconcile(entries []Entry, rules Rules) Reconciliation {
	ceiling := rules.Quota()
	var (
		quotaUsed = generic.Hours(0)
		banked    = generic.Hours(0)
		paid      = generic.Hours(0)
		zero      = generic.Hours(0)
	)

	sorted := SortEntries(entries)
	steps := make([]Step, 0, len(sorted))

	for _, e := range sorted {
		toBank, toPay := zero, zero

		switch e.Direction {
		case Credit:
			if quotaUsed.LessThan(ceiling) {
				room := ceiling.Sub(quotaUsed)
				toBank = e.Hours.Min(room)
				toPay = e.Hours.Sub(room).Max(zero)
				banked = banked.Add(toBank)
				paid = paid.Add(toPay)
				quotaUsed = quotaUsed.Add(e.Hours)
			} else {
				toPay = e.Hours
				paid = paid.Add(toPay)
			}
		case Debit:
			banked = banked.Sub(e.Hours)
		}

		steps = append(steps, Step{
			Entry:         e,
			ToBank:        toBank,
			ToPay:         toPay,
			QuotaAfter:    quotaUsed,
			BalanceAfter:  banked,
			OverflowAfter: paid,
		})
	}

	return Reconciliation{
		Ceiling:       ceiling,
		QuotaUsed:     quotaUsed,
		BankedBalance: banked,
		PaidOverflow:  paid,
		Steps:         steps,
	}
}
