package timebank

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/banco-de-horas/generic"
)

// Entry sheet columns.
const (
	ColID        = "id"
	ColUser      = "usuario"
	ColDate      = "data"
	ColClockIn   = "entrada"
	ColClockOut  = "saida"
	ColDirection = "tipo"
	ColHours     = "horas"
	ColLunch     = "almoco"
	ColMode      = "modo"
	ColCycle     = "ciclo"
	ColCreatedAt = "criado_em"
)

// UnreadableEntry is a stored row the replay had to skip. It stays in the
// sheet untouched; this is only the diagnostic.
type UnreadableEntry struct {
	Row    int
	ID     string
	Date   string
	Hours  string
	Reason string

	// Cycle from the row's own column; 0 when that column is unreadable too.
	Cycle int
}

// NormalizeUsername is the single place usernames are folded.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EncodeEntry writes e over base, keeping any extra columns base carries.
func EncodeEntry(e Entry, base generic.Row) generic.Row {
	row := generic.Row{}
	if base != nil {
		row = base.Clone()
	}
	row[ColID] = e.ID
	row[ColUser] = e.UserID
	row[ColDate] = e.Date.String()
	if e.IsWholeDay() {
		row[ColClockIn] = generic.ClockSentinel
		row[ColClockOut] = generic.ClockSentinel
	} else {
		row[ColClockIn] = e.ClockIn.String()
		row[ColClockOut] = e.ClockOut.String()
	}
	row[ColDirection] = e.Direction.Label()
	row[ColHours] = e.Hours.Value.StringFixed(2)
	row[ColLunch] = strconv.FormatBool(e.LunchDeducted)
	row[ColMode] = string(e.Mode)
	row[ColCycle] = strconv.Itoa(e.Cycle)
	if !e.CreatedAt.IsZero() {
		row[ColCreatedAt] = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return row
}

// DecodeEntry reads one row. index is the row's position in the sheet.
func DecodeEntry(row generic.Row, index int) (Entry, error) {
	date, err := generic.ParseDate(row.Get(ColDate))
	if err != nil {
		return Entry{}, err
	}

	hours, err := parseHours(row.Get(ColHours))
	if err != nil {
		return Entry{}, err
	}

	dir, err := ParseDirection(row.Get(ColDirection))
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q", err, row.Get(ColDirection))
	}

	mode, err := ParseDebitMode(row.Get(ColMode))
	if err != nil {
		return Entry{}, err
	}

	cycle, ok := rowCycle(row)
	if !ok {
		return Entry{}, fmt.Errorf("invalid cycle %q", row.Get(ColCycle))
	}

	e := Entry{
		ID:            row.Get(ColID),
		UserID:        row.Get(ColUser),
		Date:          date,
		Direction:     dir,
		Mode:          mode,
		LunchDeducted: parseBool(row.Get(ColLunch)),
		Hours:         generic.NewAmountFromDecimal(hours, generic.UnitHours),
		Cycle:         cycle,
		Row:           index,
	}

	// Clock fields are informational once hours are computed; a bad one
	// does not make the row unreadable.
	in, errIn := generic.ParseClock(row.Get(ColClockIn))
	out, errOut := generic.ParseClock(row.Get(ColClockOut))
	if errIn == nil && errOut == nil {
		e.ClockIn, e.ClockOut = &in, &out
	}

	if ts := row.Get(ColCreatedAt); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.CreatedAt = t
		}
	}
	return e, nil
}

// DecodeEntries decodes every row belonging to username. Rows that cannot be
// read are reported, never summed as zero.
func DecodeEntries(rows []generic.Row, username string) ([]Entry, []UnreadableEntry) {
	user := NormalizeUsername(username)
	var (
		entries    []Entry
		unreadable []UnreadableEntry
	)
	for i, row := range rows {
		if NormalizeUsername(row.Get(ColUser)) != user {
			continue
		}
		e, err := DecodeEntry(row, i)
		if err != nil {
			unreadable = append(unreadable, UnreadableEntry{
				Row:    i,
				ID:     row.Get(ColID),
				Date:   row.Get(ColDate),
				Hours:  row.Get(ColHours),
				Reason: err.Error(),
				Cycle:  cycleOrZero(row),
			})
			continue
		}
		entries = append(entries, e)
	}
	return entries, unreadable
}

// rowCycle reads the cycle column. Rows written before cycles existed have
// none and belong to cycle 1.
func rowCycle(row generic.Row) (int, bool) {
	c := row.Get(ColCycle)
	if c == "" {
		return 1, true
	}
	n, err := strconv.Atoi(c)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func cycleOrZero(row generic.Row) int {
	n, _ := rowCycle(row)
	return n
}

// parseHours accepts both "2.5" and the pt-BR "2,5".
func parseHours(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", generic.ErrInvalidHours)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", generic.ErrInvalidHours, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative %q", generic.ErrInvalidHours, s)
	}
	return d, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "sim", "s", "yes", "x":
		return true
	}
	return false
}
