package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/banco-de-horas/generic"
	"github.com/warp/banco-de-horas/timebank"
)

// Context is passed to every command's Run.
type Context struct {
	Service    *timebank.Service
	Out        io.Writer
	BcryptCost int
}

func (c *Context) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0)
}

func parseMoney(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// =============================================================================
// USERS
// =============================================================================

type UserAddCmd struct {
	Username string `arg:"" help:"Login name."`
	Password string `short:"p" help:"Password." required:""`
	Name     string `short:"n" help:"Display name."`
	Rate     string `short:"r" help:"Hourly rate in BRL."`
	Hash     bool   `help:"Store the password as a bcrypt hash."`
}

func (c *UserAddCmd) Run(ctx *Context) error {
	u := timebank.User{Username: c.Username, Password: c.Password, DisplayName: c.Name, Cycle: 1}
	if c.Rate != "" {
		v, err := parseMoney(c.Rate)
		if err != nil {
			return err
		}
		rate := generic.NewAmountFromDecimal(v, generic.UnitBRL)
		u.HourlyRate = &rate
	}

	if c.Hash {
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), ctx.BcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		u.Password = string(hash)
	}

	if err := ctx.Service.Users.Add(context.Background(), u); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Added user %s\n", timebank.NormalizeUsername(c.Username))
	return nil
}

type UserListCmd struct{}

func (c *UserListCmd) Run(ctx *Context) error {
	users, err := ctx.Service.Users.List(context.Background())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(ctx.Out, "No users found.")
		return nil
	}

	w := ctx.table()
	fmt.Fprintln(w, "USERNAME\tNAME\tRATE\tCYCLE")
	for _, u := range users {
		rate := u.Rate(ctx.Service.Rules.DefaultHourlyRate)
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", u.Username, u.Name(), rate.Value.StringFixed(2), u.Cycle)
	}
	return w.Flush()
}

type UserSetRateCmd struct {
	Username string `arg:"" help:"Login name."`
	Rate     string `arg:"" help:"Hourly rate in BRL."`
}

func (c *UserSetRateCmd) Run(ctx *Context) error {
	v, err := parseMoney(c.Rate)
	if err != nil {
		return err
	}
	u, err := ctx.Service.Users.SetHourlyRate(context.Background(), c.Username, generic.NewAmountFromDecimal(v, generic.UnitBRL))
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s: hourly rate %s\n", u.Username, u.HourlyRate.Value.StringFixed(2))
	return nil
}

type UserHashPasswordsCmd struct{}

func (c *UserHashPasswordsCmd) Run(ctx *Context) error {
	n, err := ctx.Service.Users.HashPasswords(context.Background(), ctx.BcryptCost)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Hashed %d password(s)\n", n)
	return nil
}

// =============================================================================
// ENTRIES
// =============================================================================

type EntryListCmd struct {
	Username string `arg:"" help:"Login name."`
	Cycle    int    `short:"c" help:"Cycle to list; current when omitted."`
}

func (c *EntryListCmd) Run(ctx *Context) error {
	h, err := ctx.Service.History(context.Background(), c.Username, c.Cycle)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "Cycle %d (current %d)\n", h.Cycle, h.CurrentCycle)
	if len(h.Reconciliation.Steps) == 0 {
		fmt.Fprintln(ctx.Out, "No entries.")
	} else {
		w := ctx.table()
		fmt.Fprintln(w, "ID\tDATE\tIN\tOUT\tTYPE\tHOURS\tBANK\tPAID\tBALANCE")
		for _, s := range h.Reconciliation.Steps {
			e := s.Entry
			in, out := generic.ClockSentinel, generic.ClockSentinel
			if !e.IsWholeDay() {
				in, out = e.ClockIn.String(), e.ClockOut.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				e.ID, e.Date, in, out, e.Direction.Label(),
				e.Hours.Value.StringFixed(2),
				s.ToBank.Value.StringFixed(2),
				s.ToPay.Value.StringFixed(2),
				s.BalanceAfter.Value.StringFixed(2),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	for _, u := range h.Unreadable {
		fmt.Fprintf(ctx.Out, "unreadable row %d (%s): %s\n", u.Row, u.Date, u.Reason)
	}
	return nil
}

type EntryCreditCmd struct {
	Username string `arg:"" help:"Login name."`
	Date     string `arg:"" help:"Date (DD/MM/YYYY)."`
	In       string `arg:"" help:"Clock in (HH:MM)."`
	Out      string `arg:"" help:"Clock out (HH:MM)."`
	Lunch    bool   `short:"l" help:"Deduct the lunch hour."`
}

func (c *EntryCreditCmd) Run(ctx *Context) error {
	date, err := generic.ParseDate(c.Date)
	if err != nil {
		return err
	}
	in, err := generic.ParseClock(c.In)
	if err != nil {
		return err
	}
	out, err := generic.ParseClock(c.Out)
	if err != nil {
		return err
	}

	e, err := ctx.Service.SubmitCredit(context.Background(), c.Username, timebank.CreditInput{
		Date: date, ClockIn: in, ClockOut: out, LunchDeducted: c.Lunch,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Recorded credit %s: %s h on %s\n", e.ID, e.Hours.Value.StringFixed(2), e.Date)
	return nil
}

type EntryDebitCmd struct {
	Username string `arg:"" help:"Login name."`
	Date     string `arg:"" help:"Date (DD/MM/YYYY)."`
	Mode     string `short:"m" help:"parcial or dia_inteiro." enum:"parcial,dia_inteiro" default:"dia_inteiro"`
	In       string `help:"Clock in (HH:MM), partial leave only."`
	Out      string `help:"Clock out (HH:MM), partial leave only."`
	Lunch    bool   `short:"l" help:"Deduct the lunch hour."`
}

func (c *EntryDebitCmd) Run(ctx *Context) error {
	date, err := generic.ParseDate(c.Date)
	if err != nil {
		return err
	}
	mode, err := timebank.ParseDebitMode(c.Mode)
	if err != nil {
		return err
	}

	input := timebank.DebitInput{Date: date, Mode: mode, LunchDeducted: c.Lunch}
	if mode == timebank.DebitPartial {
		if input.ClockIn, err = generic.ParseClock(c.In); err != nil {
			return err
		}
		if input.ClockOut, err = generic.ParseClock(c.Out); err != nil {
			return err
		}
	}

	e, err := ctx.Service.SubmitDebit(context.Background(), c.Username, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Recorded debit %s: %s h on %s\n", e.ID, e.Hours.Value.StringFixed(2), e.Date)
	return nil
}

type EntryDeleteCmd struct {
	Username string `arg:"" help:"Login name."`
	ID       string `arg:"" help:"Entry ID."`
}

func (c *EntryDeleteCmd) Run(ctx *Context) error {
	if err := ctx.Service.DeleteEntry(context.Background(), c.Username, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Deleted entry %s\n", c.ID)
	return nil
}

// =============================================================================
// PROJECTIONS
// =============================================================================

type BalanceCmd struct {
	Username string `arg:"" help:"Login name."`
}

func (c *BalanceCmd) Run(ctx *Context) error {
	d, err := ctx.Service.Dashboard(context.Background(), c.Username)
	if err != nil {
		return err
	}
	rec := d.Reconciliation

	w := ctx.table()
	fmt.Fprintf(w, "User\t%s (cycle %d, %d entries)\n", d.User.Name(), d.Cycle, d.EntryCount)
	fmt.Fprintf(w, "Quota\t%s / %s h (used %s)\n",
		rec.QuotaFilled().Value.StringFixed(2), rec.Ceiling.Value.StringFixed(2), rec.QuotaUsed.Value.StringFixed(2))
	fmt.Fprintf(w, "Banked balance\t%s h\n", rec.BankedBalance.Value.StringFixed(2))
	fmt.Fprintf(w, "Paid overflow\t%s h\n", rec.PaidOverflow.Value.StringFixed(2))
	fmt.Fprintf(w, "Gross pay\tR$ %s\n", d.Pay.Gross.Value.StringFixed(2))
	fmt.Fprintf(w, "Marginal tax\tR$ %s\n", d.Pay.MarginalTax.Value.StringFixed(2))
	fmt.Fprintf(w, "Net pay\tR$ %s\n", d.Pay.Net.Value.StringFixed(2))
	if err := w.Flush(); err != nil {
		return err
	}

	if len(d.Unreadable) > 0 {
		fmt.Fprintf(ctx.Out, "%d unreadable row(s) were skipped\n", len(d.Unreadable))
	}
	return nil
}

type ResetCmd struct {
	Username string `arg:"" help:"Login name."`
}

func (c *ResetCmd) Run(ctx *Context) error {
	res, err := ctx.Service.ResetCycle(context.Background(), c.Username)
	if err != nil {
		return err
	}
	if !res.Changed {
		fmt.Fprintln(ctx.Out, "Nothing to reset.")
		return nil
	}
	fmt.Fprintf(ctx.Out, "Reset (%s): %d entries archived, now in cycle %d\n", res.Mode, res.Archived, res.Cycle)
	return nil
}

type TaxCmd struct {
	Gross string `arg:"" help:"Gross monthly amount in BRL."`
}

func (c *TaxCmd) Run(ctx *Context) error {
	v, err := parseMoney(c.Gross)
	if err != nil {
		return err
	}
	t := ctx.Service.Tax.Compute(generic.NewAmountFromDecimal(v, generic.UnitBRL))

	w := ctx.table()
	fmt.Fprintf(w, "Gross\t%s\n", t.Gross.Value.StringFixed(2))
	fmt.Fprintf(w, "INSS\t%s\n", t.Contribution.Value.StringFixed(2))
	fmt.Fprintf(w, "IRPF base\t%s\n", t.IncomeBase.Value.StringFixed(2))
	fmt.Fprintf(w, "IRPF\t%s\n", t.IncomeTax.Value.StringFixed(2))
	fmt.Fprintf(w, "Total\t%s\n", t.Total.Value.StringFixed(2))
	return w.Flush()
}
