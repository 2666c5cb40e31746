/*
service.go - Write intents and read projections

PURPOSE:
  The single entry point the transports (HTTP, CLI) call. It resolves the
  user, runs the shift calculator, writes through the Ledger and builds the
  dashboard from a fresh replay.

WRITE INTENTS:
  SubmitCredit(date, clock_in, clock_out, lunch)
  SubmitDebit(date, mode, [clock_in, clock_out, lunch])
  EditEntry / DeleteEntry
  ResetCycle

READ PROJECTIONS:
  Dashboard: quota progress, banked balance, paid overflow + net pay,
             unreadable rows
  History:   per-entry allocation steps for a cycle

RESET MODES:
  ResetWatermark (default): bump the user's cycle; history is kept and the
                            replay only sees entries of the new cycle.
  ResetPurge:               legacy behaviour, delete the user's rows.
  Both are no-ops when there is nothing in the current cycle.

SEE ALSO:
  - reconcile.go: The replay
  - ledger.go:    Entry sheet writes
  - users.go:     User sheet
*/
package timebank

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/banco-de-horas/generic"
)

type ResetMode string

const (
	ResetWatermark ResetMode = "watermark"
	ResetPurge     ResetMode = "purge"
)

type Service struct {
	Users     *Directory
	Ledger    *Ledger
	Calc      ShiftCalculator
	Rules     Rules
	Tax       TaxSchedule
	ResetMode ResetMode
	Logger    *zap.Logger

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

func NewService(store generic.SheetStore, rules Rules, tax TaxSchedule, opts ...Option) *Service {
	s := &Service{
		Users:     NewDirectory(store, DefaultUserSheet),
		Ledger:    NewLedger(store, DefaultEntrySheet),
		Calc:      NewShiftCalculator(rules),
		Rules:     rules,
		Tax:       tax,
		ResetMode: ResetWatermark,
		Logger:    zap.NewNop(),
		Now:       time.Now,
		NewID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Option func(*Service)

func WithSheets(users, entries string) Option {
	return func(s *Service) {
		s.Users = NewDirectory(s.Users.Store, users)
		s.Ledger = NewLedger(s.Ledger.Store, entries)
	}
}

func WithResetMode(m ResetMode) Option {
	return func(s *Service) {
		if m != "" {
			s.ResetMode = m
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.Logger = l
		}
	}
}

// =============================================================================
// WRITE INTENTS
// =============================================================================

func (s *Service) SubmitCredit(ctx context.Context, username string, in CreditInput) (Entry, error) {
	user, err := s.Users.Get(ctx, username)
	if err != nil {
		return Entry{}, err
	}
	hours, err := s.Calc.CreditHours(in)
	if err != nil {
		return Entry{}, err
	}

	in2, out := in.ClockIn, in.ClockOut
	e := Entry{
		ID:            s.NewID(),
		UserID:        user.Username,
		Date:          in.Date,
		ClockIn:       &in2,
		ClockOut:      &out,
		Direction:     Credit,
		LunchDeducted: in.LunchDeducted,
		Hours:         hours,
		Cycle:         user.Cycle,
		CreatedAt:     s.Now().UTC(),
	}
	if err := s.Ledger.Append(ctx, e); err != nil {
		return Entry{}, err
	}

	s.Logger.Info("credit recorded",
		zap.String("user", user.Username),
		zap.String("entry_id", e.ID),
		zap.String("date", e.Date.String()),
		zap.String("hours", e.Hours.String()),
	)
	return e, nil
}

func (s *Service) SubmitDebit(ctx context.Context, username string, in DebitInput) (Entry, error) {
	user, err := s.Users.Get(ctx, username)
	if err != nil {
		return Entry{}, err
	}
	hours, err := s.Calc.DebitHours(in)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		ID:            s.NewID(),
		UserID:        user.Username,
		Date:          in.Date,
		Direction:     Debit,
		Mode:          in.Mode,
		LunchDeducted: in.LunchDeducted && in.Mode == DebitPartial,
		Hours:         hours,
		Cycle:         user.Cycle,
		CreatedAt:     s.Now().UTC(),
	}
	if in.Mode == DebitPartial {
		in2, out := in.ClockIn, in.ClockOut
		e.ClockIn, e.ClockOut = &in2, &out
	}
	if err := s.Ledger.Append(ctx, e); err != nil {
		return Entry{}, err
	}

	s.Logger.Info("debit recorded",
		zap.String("user", user.Username),
		zap.String("entry_id", e.ID),
		zap.String("mode", string(e.Mode)),
		zap.String("hours", e.Hours.String()),
	)
	return e, nil
}

// EditInput replaces an entry's inputs; hours are recomputed.
type EditInput struct {
	Direction     Direction
	Date          generic.Date
	Mode          DebitMode
	ClockIn       generic.Clock
	ClockOut      generic.Clock
	LunchDeducted bool
}

func (s *Service) EditEntry(ctx context.Context, username, id string, in EditInput) (Entry, error) {
	var hours generic.Amount
	var err error
	switch in.Direction {
	case Credit:
		hours, err = s.Calc.CreditHours(CreditInput{
			Date: in.Date, ClockIn: in.ClockIn, ClockOut: in.ClockOut, LunchDeducted: in.LunchDeducted,
		})
	case Debit:
		hours, err = s.Calc.DebitHours(DebitInput{
			Date: in.Date, Mode: in.Mode, ClockIn: in.ClockIn, ClockOut: in.ClockOut, LunchDeducted: in.LunchDeducted,
		})
	default:
		err = fmt.Errorf("%w: %q", generic.ErrInvalidDirection, in.Direction)
	}
	if err != nil {
		return Entry{}, err
	}

	updated, err := s.Ledger.Update(ctx, username, id, func(e *Entry) error {
		e.Direction = in.Direction
		e.Date = in.Date
		e.Hours = hours
		e.Mode = DebitNone
		e.LunchDeducted = in.LunchDeducted
		e.ClockIn, e.ClockOut = nil, nil
		if in.Direction == Debit {
			e.Mode = in.Mode
		}
		if in.Direction == Credit || in.Mode == DebitPartial {
			cin, cout := in.ClockIn, in.ClockOut
			e.ClockIn, e.ClockOut = &cin, &cout
		} else {
			e.LunchDeducted = false
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}

	s.Logger.Info("entry edited", zap.String("user", NormalizeUsername(username)), zap.String("entry_id", id))
	return updated, nil
}

func (s *Service) DeleteEntry(ctx context.Context, username, id string) error {
	if err := s.Ledger.Delete(ctx, username, id); err != nil {
		return err
	}
	s.Logger.Info("entry deleted", zap.String("user", NormalizeUsername(username)), zap.String("entry_id", id))
	return nil
}

// ResetResult says what a reset did.
type ResetResult struct {
	Mode     ResetMode
	Changed  bool
	Cycle    int
	Archived int // entries left behind in the previous cycle or purged
}

// ResetCycle starts a fresh cycle. Calling it again with nothing logged
// since is a no-op.
func (s *Service) ResetCycle(ctx context.Context, username string) (ResetResult, error) {
	user, err := s.Users.Get(ctx, username)
	if err != nil {
		return ResetResult{}, err
	}

	if s.ResetMode == ResetPurge {
		n, err := s.Ledger.Purge(ctx, user.Username)
		if err != nil {
			return ResetResult{}, err
		}
		s.Logger.Info("cycle purged", zap.String("user", user.Username), zap.Int("removed", n))
		return ResetResult{Mode: ResetPurge, Changed: n > 0, Cycle: user.Cycle, Archived: n}, nil
	}

	loaded, err := s.Ledger.Load(ctx, user.Username)
	if err != nil {
		return ResetResult{}, err
	}
	current := len(loaded.ForCycle(user.Cycle))
	if current == 0 {
		return ResetResult{Mode: ResetWatermark, Cycle: user.Cycle}, nil
	}

	user, err = s.Users.AdvanceCycle(ctx, user.Username)
	if err != nil {
		return ResetResult{}, err
	}
	s.Logger.Info("cycle advanced",
		zap.String("user", user.Username),
		zap.Int("cycle", user.Cycle),
		zap.Int("archived", current),
	)
	return ResetResult{Mode: ResetWatermark, Changed: true, Cycle: user.Cycle, Archived: current}, nil
}

// =============================================================================
// READ PROJECTIONS
// =============================================================================

// Dashboard is everything the presentation layer renders.
type Dashboard struct {
	User           User
	Cycle          int
	HourlyRate     generic.Amount
	Reconciliation Reconciliation
	Pay            OverflowPay
	Unreadable     []UnreadableEntry
	EntryCount     int
}

func (s *Service) Dashboard(ctx context.Context, username string) (Dashboard, error) {
	user, err := s.Users.Get(ctx, username)
	if err != nil {
		return Dashboard{}, err
	}
	loaded, err := s.Ledger.Load(ctx, user.Username)
	if err != nil {
		return Dashboard{}, err
	}

	entries := loaded.ForCycle(user.Cycle)
	unreadable := loaded.UnreadableForCycle(user.Cycle)
	rec := Reconcile(entries, s.Rules)
	rate := user.Rate(s.Rules.DefaultHourlyRate)

	if len(unreadable) > 0 {
		s.Logger.Warn("unreadable entries skipped",
			zap.String("user", user.Username),
			zap.Int("count", len(unreadable)),
		)
	}

	return Dashboard{
		User:           user,
		Cycle:          user.Cycle,
		HourlyRate:     rate,
		Reconciliation: rec,
		Pay:            s.Tax.OverflowPay(rec.PaidOverflow, rate, s.Rules),
		Unreadable:     unreadable,
		EntryCount:     len(entries),
	}, nil
}

// History replays one cycle for the entry list. cycle <= 0 means current.
type History struct {
	Cycle          int
	CurrentCycle   int
	Reconciliation Reconciliation
	Unreadable     []UnreadableEntry
}

func (s *Service) History(ctx context.Context, username string, cycle int) (History, error) {
	user, err := s.Users.Get(ctx, username)
	if err != nil {
		return History{}, err
	}
	loaded, err := s.Ledger.Load(ctx, user.Username)
	if err != nil {
		return History{}, err
	}
	if cycle <= 0 {
		cycle = user.Cycle
	}
	return History{
		Cycle:          cycle,
		CurrentCycle:   user.Cycle,
		Reconciliation: Reconcile(loaded.ForCycle(cycle), s.Rules),
		Unreadable:     loaded.UnreadableForCycle(cycle),
	}, nil
}
