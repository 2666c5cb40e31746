package timebank_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/banco-de-horas/generic"
	"github.com/warp/banco-de-horas/timebank"
)

func clock(hour, minute int) generic.Clock {
	return generic.NewClock(hour, minute)
}

func calc() timebank.ShiftCalculator {
	return timebank.NewShiftCalculator(timebank.DefaultRules())
}

func TestCreditHours_WeekdayCap(t *testing.T) {
	// Monday, 4 raw hours, no lunch: min(4*1.25, 2.0) = 2.0
	got, err := calc().CreditHours(timebank.CreditInput{
		Date: day(0), ClockIn: clock(18, 0), ClockOut: clock(22, 0),
	})
	require.NoError(t, err)
	assertHours(t, 2, got)
}

func TestCreditHours_WeekdayBelowCap(t *testing.T) {
	// Wednesday, 1h12m raw: 1.2 * 1.25 = 1.5
	got, err := calc().CreditHours(timebank.CreditInput{
		Date: day(2), ClockIn: clock(18, 0), ClockOut: clock(19, 12),
	})
	require.NoError(t, err)
	assertHours(t, 1.5, got)
}

func TestCreditHours_SaturdayUncapped(t *testing.T) {
	// Saturday, 4 raw hours: 4 * 1.5 = 6.0
	got, err := calc().CreditHours(timebank.CreditInput{
		Date: day(5), ClockIn: clock(8, 0), ClockOut: clock(12, 0),
	})
	require.NoError(t, err)
	assertHours(t, 6, got)
}

func TestCreditHours_SaturdayWithLunch(t *testing.T) {
	got, err := calc().CreditHours(timebank.CreditInput{
		Date: day(5), ClockIn: clock(8, 0), ClockOut: clock(17, 0), LunchDeducted: true,
	})
	require.NoError(t, err)
	assertHours(t, 12, got)
}

func TestCreditHours_SundayUndefined(t *testing.T) {
	_, err := calc().CreditHours(timebank.CreditInput{
		Date: day(6), ClockIn: clock(8, 0), ClockOut: clock(12, 0),
	})
	assert.ErrorIs(t, err, generic.ErrUndefinedDayRule)
}

func TestCreditHours_SundayWhenConfigured(t *testing.T) {
	rules := timebank.DefaultRules()
	two := decimal.NewFromInt(2)
	rules.SundayMultiplier = &two

	got, err := timebank.NewShiftCalculator(rules).CreditHours(timebank.CreditInput{
		Date: day(6), ClockIn: clock(8, 0), ClockOut: clock(11, 0),
	})
	require.NoError(t, err)
	assertHours(t, 6, got)
}

func TestCreditHours_ClockOutBeforeClockInIsZero(t *testing.T) {
	got, err := calc().CreditHours(timebank.CreditInput{
		Date: day(5), ClockIn: clock(22, 0), ClockOut: clock(2, 0),
	})
	require.NoError(t, err)
	assertHours(t, 0, got)
}

func TestCreditHours_LunchNeverGoesNegative(t *testing.T) {
	got, err := calc().CreditHours(timebank.CreditInput{
		Date: day(1), ClockIn: clock(18, 0), ClockOut: clock(18, 30), LunchDeducted: true,
	})
	require.NoError(t, err)
	assertHours(t, 0, got)
}

func TestDebitHours_WholeDay(t *testing.T) {
	cases := []struct {
		name string
		date generic.Date
		want float64
	}{
		{"monday", day(0), 9},
		{"tuesday", day(1), 9},
		{"wednesday", day(2), 9},
		{"thursday", day(3), 9},
		{"friday", day(4), 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := calc().DebitHours(timebank.DebitInput{Date: tc.date, Mode: timebank.DebitWholeDay})
			require.NoError(t, err)
			assertHours(t, tc.want, got)
		})
	}
}

func TestDebitHours_WholeDayWeekendUndefined(t *testing.T) {
	for _, d := range []generic.Date{day(5), day(6)} {
		_, err := calc().DebitHours(timebank.DebitInput{Date: d, Mode: timebank.DebitWholeDay})
		assert.ErrorIs(t, err, generic.ErrUndefinedDayRule, d.String())
	}
}

func TestDebitHours_PartialHasNoMultiplier(t *testing.T) {
	got, err := calc().DebitHours(timebank.DebitInput{
		Date: day(0), Mode: timebank.DebitPartial, ClockIn: clock(8, 0), ClockOut: clock(11, 30),
	})
	require.NoError(t, err)
	assertHours(t, 3.5, got)
}

func TestDebitHours_PartialWithLunch(t *testing.T) {
	got, err := calc().DebitHours(timebank.DebitInput{
		Date: day(5), Mode: timebank.DebitPartial, ClockIn: clock(8, 0), ClockOut: clock(14, 0), LunchDeducted: true,
	})
	require.NoError(t, err)
	assertHours(t, 5, got)
}

func TestDebitHours_UnknownMode(t *testing.T) {
	_, err := calc().DebitHours(timebank.DebitInput{Date: day(0)})
	assert.ErrorIs(t, err, generic.ErrInvalidDebitMode)
}
