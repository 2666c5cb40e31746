package timebank_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/banco-de-horas/generic"
	"github.com/warp/banco-de-horas/generic/store"
	"github.com/warp/banco-de-horas/timebank"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	store *store.Memory
	svc   *timebank.Service
}

func newFixture(t *testing.T, opts ...timebank.Option) fixture {
	t.Helper()
	mem := store.NewMemory()
	mem.Seed(timebank.DefaultUserSheet, []generic.Row{
		{timebank.ColUsername: "ana", timebank.ColPassword: "s3cret", timebank.ColDisplayName: "Ana Souza"},
		{timebank.ColUsername: "bia", timebank.ColPassword: "hunter2", timebank.ColHourlyRate: "40,00"},
	})

	svc := timebank.NewService(mem, timebank.DefaultRules(), timebank.DefaultTaxSchedule(), opts...)
	n := 0
	svc.NewID = func() string { n++; return fmt.Sprintf("e%d", n) }
	svc.Now = func() time.Time { return time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC) }
	return fixture{store: mem, svc: svc}
}

func (f fixture) creditSaturday(t *testing.T, user string, week int, in, out generic.Clock) timebank.Entry {
	t.Helper()
	e, err := f.svc.SubmitCredit(context.Background(), user, timebank.CreditInput{
		Date: day(5 + 7*week), ClockIn: in, ClockOut: out,
	})
	require.NoError(t, err)
	return e
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Users.Authenticate(ctx, "  ANA ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.Equal(t, "Ana Souza", u.Name())

	_, err = f.svc.Users.Authenticate(ctx, "ana", "s3cret ")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials, "password is never trimmed")

	_, err = f.svc.Users.Authenticate(ctx, "ana", "S3CRET")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials, "password is case sensitive")

	_, err = f.svc.Users.Authenticate(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)
}

func TestAuthenticate_StoreDown(t *testing.T) {
	f := newFixture(t)
	f.store.FailReads = errors.New("quota exceeded")

	_, err := f.svc.Users.Authenticate(context.Background(), "ana", "s3cret")

	assert.ErrorIs(t, err, generic.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, generic.ErrInvalidCredentials)
}

func TestHashPasswords(t *testing.T) {
	// GIVEN: plaintext passwords in the user sheet
	f := newFixture(t)
	ctx := context.Background()

	// WHEN: they are migrated to bcrypt
	n, err := f.svc.Users.HashPasswords(ctx, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// THEN: the same credentials still authenticate and a second run is a no-op
	sheet, err := f.store.Read(ctx, timebank.DefaultUserSheet)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", sheet.Rows[0][timebank.ColPassword])

	_, err = f.svc.Users.Authenticate(ctx, "ana", "s3cret")
	assert.NoError(t, err)
	_, err = f.svc.Users.Authenticate(ctx, "ana", "wrong")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)

	n, err = f.svc.Users.HashPasswords(ctx, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDirectory_Add(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Users.Add(ctx, timebank.User{Username: " Caio ", Password: "pw"}))

	u, err := f.svc.Users.Get(ctx, "caio")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Cycle)

	assert.ErrorIs(t, f.svc.Users.Add(ctx, timebank.User{Username: "CAIO"}), generic.ErrUserExists)
	assert.ErrorIs(t, f.svc.Users.Add(ctx, timebank.User{Username: "  "}), generic.ErrInvalidUsername)
}

func TestSetHourlyRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Users.Get(ctx, "bia")
	require.NoError(t, err)
	assertMoney(t, "40", u.Rate(timebank.DefaultRules().DefaultHourlyRate))

	_, err = f.svc.Users.SetHourlyRate(ctx, "ana", brl("32.5"))
	require.NoError(t, err)
	u, err = f.svc.Users.Get(ctx, "ana")
	require.NoError(t, err)
	assertMoney(t, "32.5", u.Rate(timebank.DefaultRules().DefaultHourlyRate))

	_, err = f.svc.Users.SetHourlyRate(ctx, "ana", brl("-1"))
	assert.ErrorIs(t, err, generic.ErrInvalidHours)
}

// =============================================================================
// WRITE INTENTS
// =============================================================================

func TestSubmitCredit_StoresPostRuleHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.SubmitCredit(ctx, "Ana", timebank.CreditInput{
		Date: day(0), ClockIn: clock(18, 0), ClockOut: clock(22, 0),
	})
	require.NoError(t, err)
	assertHours(t, 2, e.Hours)
	assert.Equal(t, "ana", e.UserID)
	assert.Equal(t, 1, e.Cycle)

	sheet, err := f.store.Read(ctx, timebank.DefaultEntrySheet)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "2.00", sheet.Rows[0][timebank.ColHours])
	assert.Equal(t, "Crédito", sheet.Rows[0][timebank.ColDirection])
	assert.Equal(t, "e1", sheet.Rows[0][timebank.ColID])
}

func TestSubmitCredit_SundayRejectedNothingWritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitCredit(ctx, "ana", timebank.CreditInput{Date: day(6), ClockIn: clock(8, 0), ClockOut: clock(12, 0)})
	assert.ErrorIs(t, err, generic.ErrUndefinedDayRule)

	sheet, _ := f.store.Read(ctx, timebank.DefaultEntrySheet)
	assert.Empty(t, sheet.Rows)
}

func TestSubmitDebit_WholeDay(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.SubmitDebit(context.Background(), "ana", timebank.DebitInput{Date: day(4), Mode: timebank.DebitWholeDay})

	require.NoError(t, err)
	assertHours(t, 8, e.Hours)
	assert.True(t, e.IsWholeDay())
}

func TestSubmit_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitDebit(context.Background(), "ghost", timebank.DebitInput{Date: day(0), Mode: timebank.DebitWholeDay})
	assert.ErrorIs(t, err, generic.ErrUserNotFound)
}

func TestSubmit_ConcurrentModification(t *testing.T) {
	// GIVEN: another session writes between our read and our replace
	mem := store.NewMemory()
	mem.Seed(timebank.DefaultUserSheet, []generic.Row{{timebank.ColUsername: "ana", timebank.ColPassword: "x"}})
	racing := &racingStore{Memory: mem}
	svc := timebank.NewService(racing, timebank.DefaultRules(), timebank.DefaultTaxSchedule())

	// WHEN
	_, err := svc.SubmitDebit(context.Background(), "ana", timebank.DebitInput{Date: day(0), Mode: timebank.DebitWholeDay})

	// THEN: the write is refused and the other session's row survives
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)
	var vc *generic.VersionConflictError
	assert.ErrorAs(t, err, &vc)

	sheet, _ := mem.Read(context.Background(), timebank.DefaultEntrySheet)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "other", sheet.Rows[0][timebank.ColID])
}

// racingStore writes a row of its own right before the first entry sheet
// Replace goes through.
type racingStore struct {
	*store.Memory
	raced bool
}

func (r *racingStore) Replace(ctx context.Context, sheet string, rows []generic.Row, v int64) (int64, error) {
	if sheet == timebank.DefaultEntrySheet && !r.raced {
		r.raced = true
		if _, err := r.Memory.Replace(ctx, sheet, []generic.Row{{timebank.ColID: "other", timebank.ColUser: "bia"}}, generic.AnyVersion); err != nil {
			return 0, err
		}
	}
	return r.Memory.Replace(ctx, sheet, rows, v)
}

func TestEditEntry_RecomputesHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.creditSaturday(t, "ana", 0, clock(8, 0), clock(10, 0))

	updated, err := f.svc.EditEntry(ctx, "ana", e.ID, timebank.EditInput{
		Direction: timebank.Debit, Date: day(3), Mode: timebank.DebitWholeDay,
	})
	require.NoError(t, err)
	assertHours(t, 9, updated.Hours)
	assert.True(t, updated.IsWholeDay())

	_, err = f.svc.EditEntry(ctx, "bia", e.ID, timebank.EditInput{Direction: timebank.Debit, Date: day(3), Mode: timebank.DebitWholeDay})
	assert.ErrorIs(t, err, generic.ErrEntryNotFound, "users cannot edit each other's entries")
}

func TestEditEntry_UnreadableRowKeepsItsCycle(t *testing.T) {
	// GIVEN: ana is in cycle 3 and has a row with an impossible date
	f := newFixture(t)
	ctx := context.Background()
	f.store.Seed(timebank.DefaultUserSheet, []generic.Row{
		{timebank.ColUsername: "ana", timebank.ColPassword: "s3cret", timebank.ColUserCycle: "3"},
	})
	f.store.Seed(timebank.DefaultEntrySheet, []generic.Row{
		{timebank.ColID: "bad", timebank.ColUser: "ana", timebank.ColDate: "31/13/2025",
			timebank.ColDirection: "Crédito", timebank.ColHours: "2", timebank.ColCycle: "3"},
	})

	// WHEN: the row is fixed with a valid Saturday shift
	updated, err := f.svc.EditEntry(ctx, "ana", "bad", timebank.EditInput{
		Direction: timebank.Credit, Date: day(5), ClockIn: clock(8, 0), ClockOut: clock(10, 0),
	})
	require.NoError(t, err)

	// THEN: it stays in cycle 3 and counts on the current dashboard
	assert.Equal(t, 3, updated.Cycle)
	sheet, err := f.store.Read(ctx, timebank.DefaultEntrySheet)
	require.NoError(t, err)
	assert.Equal(t, "3", sheet.Rows[0][timebank.ColCycle])

	dash, err := f.svc.Dashboard(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 1, dash.EntryCount)
	assertHours(t, 3, dash.Reconciliation.QuotaUsed)
	assert.Empty(t, dash.Unreadable)
}

func TestDeleteEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.creditSaturday(t, "ana", 0, clock(8, 0), clock(10, 0))

	require.NoError(t, f.svc.DeleteEntry(ctx, "ana", e.ID))
	assert.ErrorIs(t, f.svc.DeleteEntry(ctx, "ana", e.ID), generic.ErrEntryNotFound)
}

func TestWrites_KeepUnreadableAndForeignRows(t *testing.T) {
	// GIVEN: a malformed row and another user's row already in the sheet
	f := newFixture(t)
	ctx := context.Background()
	f.store.Seed(timebank.DefaultEntrySheet, []generic.Row{
		{timebank.ColID: "bad", timebank.ColUser: "ana", timebank.ColDate: "??", timebank.ColHours: "2", "obs": "typo"},
		{timebank.ColID: "b1", timebank.ColUser: "bia", timebank.ColDate: "06/01/2025", timebank.ColDirection: "Crédito", timebank.ColHours: "1"},
	})

	// WHEN: ana submits and deletes entries
	e := f.creditSaturday(t, "ana", 0, clock(8, 0), clock(10, 0))
	require.NoError(t, f.svc.DeleteEntry(ctx, "ana", e.ID))

	// THEN: both pre-existing rows are written back untouched
	sheet, err := f.store.Read(ctx, timebank.DefaultEntrySheet)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "typo", sheet.Rows[0]["obs"])
	assert.Equal(t, "??", sheet.Rows[0][timebank.ColDate])
	assert.Equal(t, "b1", sheet.Rows[1][timebank.ColID])
}

// =============================================================================
// RESET
// =============================================================================

func TestResetCycle_WatermarkIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.creditSaturday(t, "ana", 0, clock(8, 0), clock(12, 0))
	f.creditSaturday(t, "bia", 0, clock(8, 0), clock(12, 0))

	// WHEN: ana resets twice
	first, err := f.svc.ResetCycle(ctx, "ana")
	require.NoError(t, err)
	second, err := f.svc.ResetCycle(ctx, "ana")
	require.NoError(t, err)

	// THEN: only the first changes anything
	assert.True(t, first.Changed)
	assert.Equal(t, 2, first.Cycle)
	assert.Equal(t, 1, first.Archived)
	assert.False(t, second.Changed)
	assert.Equal(t, 2, second.Cycle)

	dash, err := f.svc.Dashboard(ctx, "ana")
	require.NoError(t, err)
	assert.Zero(t, dash.EntryCount)
	assertHours(t, 0, dash.Reconciliation.QuotaUsed)

	// history is kept and still replayable
	hist, err := f.svc.History(ctx, "ana", 1)
	require.NoError(t, err)
	require.Len(t, hist.Reconciliation.Steps, 1)
	assertHours(t, 6, hist.Reconciliation.BankedBalance)

	// bia is untouched
	dash, err = f.svc.Dashboard(ctx, "bia")
	require.NoError(t, err)
	assert.Equal(t, 1, dash.EntryCount)
}

func TestResetCycle_Purge(t *testing.T) {
	f := newFixture(t, timebank.WithResetMode(timebank.ResetPurge))
	ctx := context.Background()
	f.creditSaturday(t, "ana", 0, clock(8, 0), clock(12, 0))
	f.creditSaturday(t, "bia", 0, clock(8, 0), clock(12, 0))

	res, err := f.svc.ResetCycle(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.Archived)

	again, err := f.svc.ResetCycle(ctx, "ana")
	require.NoError(t, err)
	assert.False(t, again.Changed)

	sheet, _ := f.store.Read(ctx, timebank.DefaultEntrySheet)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "bia", sheet.Rows[0][timebank.ColUser])
}

func TestResetCycle_NewEntriesGoToNewCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.creditSaturday(t, "ana", 0, clock(8, 0), clock(12, 0))
	_, err := f.svc.ResetCycle(ctx, "ana")
	require.NoError(t, err)

	e := f.creditSaturday(t, "ana", 1, clock(8, 0), clock(10, 0))

	assert.Equal(t, 2, e.Cycle)
	dash, err := f.svc.Dashboard(ctx, "ana")
	require.NoError(t, err)
	assertHours(t, 3, dash.Reconciliation.BankedBalance)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboard_OverflowPay(t *testing.T) {
	// GIVEN: bia (40/h) logs 6 Saturdays of 6 credited hours, then one more
	f := newFixture(t)
	ctx := context.Background()
	for w := 0; w < 7; w++ {
		f.creditSaturday(t, "bia", w, clock(8, 0), clock(12, 0))
	}

	dash, err := f.svc.Dashboard(ctx, "bia")
	require.NoError(t, err)

	// THEN: 36 banked, 6 paid at 40 * 2.1. The full-hours quota increment
	// only applies while quota_used < 36, so the 7th credit leaves it at 36.
	rec := dash.Reconciliation
	assertHours(t, 36, rec.QuotaUsed)
	assertHours(t, 36, rec.BankedBalance)
	assertHours(t, 6, rec.PaidOverflow)
	assertMoney(t, "40", dash.HourlyRate)
	assertMoney(t, "504", dash.Pay.Gross)
	assert.True(t, dash.Pay.Net.LessThan(dash.Pay.Gross))
	assert.Equal(t, 7, dash.EntryCount)
}

func TestDashboard_SurfacesUnreadable(t *testing.T) {
	f := newFixture(t)
	f.store.Seed(timebank.DefaultEntrySheet, []generic.Row{
		{timebank.ColID: "1", timebank.ColUser: "ana", timebank.ColDate: "06/01/2025", timebank.ColDirection: "Crédito", timebank.ColHours: "2"},
		{timebank.ColID: "2", timebank.ColUser: "ana", timebank.ColDate: "06/01/2025", timebank.ColDirection: "Crédito", timebank.ColHours: "lots"},
	})

	dash, err := f.svc.Dashboard(context.Background(), "ana")

	require.NoError(t, err)
	assertHours(t, 2, dash.Reconciliation.BankedBalance)
	require.Len(t, dash.Unreadable, 1)
	assert.Equal(t, "2", dash.Unreadable[0].ID)
}

func TestDashboard_UnreadableScopedToCycle(t *testing.T) {
	// GIVEN: ana is in cycle 2 with bad rows in cycles 1 and 2, and one
	// whose cycle column is garbage too
	f := newFixture(t)
	ctx := context.Background()
	f.store.Seed(timebank.DefaultUserSheet, []generic.Row{
		{timebank.ColUsername: "ana", timebank.ColPassword: "s3cret", timebank.ColUserCycle: "2"},
	})
	f.store.Seed(timebank.DefaultEntrySheet, []generic.Row{
		{timebank.ColID: "old", timebank.ColUser: "ana", timebank.ColDate: "??", timebank.ColHours: "1", timebank.ColCycle: "1"},
		{timebank.ColID: "cur", timebank.ColUser: "ana", timebank.ColDate: "??", timebank.ColHours: "1", timebank.ColCycle: "2"},
		{timebank.ColID: "unk", timebank.ColUser: "ana", timebank.ColDate: "??", timebank.ColHours: "1", timebank.ColCycle: "x"},
	})

	ids := func(list []timebank.UnreadableEntry) []string {
		var out []string
		for _, u := range list {
			out = append(out, u.ID)
		}
		return out
	}

	// THEN: the dashboard only shows the current cycle's rows
	dash, err := f.svc.Dashboard(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, []string{"cur", "unk"}, ids(dash.Unreadable))
	assert.Equal(t, 2, dash.Unreadable[0].Cycle)
	assert.Zero(t, dash.Unreadable[1].Cycle)

	// and the archived cycle's history shows its own
	hist, err := f.svc.History(ctx, "ana", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "unk"}, ids(hist.Unreadable))
}

func TestDashboard_StoreDown(t *testing.T) {
	f := newFixture(t)
	f.store.FailReads = errors.New("503")

	_, err := f.svc.Dashboard(context.Background(), "ana")
	assert.ErrorIs(t, err, generic.ErrStoreUnavailable)
}

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestScenarioA_MondayCreditIsCapped(t *testing.T) {
	// GIVEN: a fresh user
	f := newFixture(t)
	ctx := context.Background()

	// WHEN: a Monday 08:00-17:00 with lunch is submitted once (8 raw hours)
	e, err := f.svc.SubmitCredit(ctx, "ana", timebank.CreditInput{
		Date: day(0), ClockIn: clock(8, 0), ClockOut: clock(17, 0), LunchDeducted: true,
	})
	require.NoError(t, err)

	// THEN: 8*1.25 is capped to 2.0 and all of it is banked
	assertHours(t, 2, e.Hours)
	dash, err := f.svc.Dashboard(ctx, "ana")
	require.NoError(t, err)
	assertHours(t, 2, dash.Reconciliation.QuotaUsed)
	assertHours(t, 2, dash.Reconciliation.BankedBalance)
	assertHours(t, 0, dash.Reconciliation.PaidOverflow)
}

func TestScenarioB_QuotaUsedExceedsCeiling(t *testing.T) {
	// GIVEN: a user with 35 hours already logged
	f := newFixture(t)
	ctx := context.Background()
	f.store.Seed(timebank.DefaultEntrySheet, []generic.Row{{
		timebank.ColID: "prior", timebank.ColUser: "ana", timebank.ColDate: "02/01/2025",
		timebank.ColDirection: "Crédito", timebank.ColHours: "35.00", timebank.ColCycle: "1",
	}})

	// WHEN: a Saturday 08:00-10:00 credit (2*1.5 = 3.0) arrives
	_, err := f.svc.SubmitCredit(ctx, "ana", timebank.CreditInput{Date: day(5), ClockIn: clock(8, 0), ClockOut: clock(10, 0)})
	require.NoError(t, err)

	// THEN
	dash, err := f.svc.Dashboard(ctx, "ana")
	require.NoError(t, err)
	rec := dash.Reconciliation
	require.Len(t, rec.Steps, 2)
	assertHours(t, 1, rec.Steps[1].ToBank)
	assertHours(t, 2, rec.Steps[1].ToPay)
	assertHours(t, 38, rec.QuotaUsed)
	assertHours(t, 36, rec.BankedBalance)
	assertHours(t, 2, rec.PaidOverflow)
}
