package timebank

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/banco-de-horas/generic"
	"golang.org/x/crypto/bcrypt"
)

// DefaultUserSheet is the legacy worksheet name.
const DefaultUserSheet = "Usuarios"

// User sheet columns.
const (
	ColUsername    = "usuario"
	ColPassword    = "senha"
	ColDisplayName = "nome_exibicao"
	ColHourlyRate  = "valor_hora"
	ColUserCycle   = "ciclo"
)

// User is one login principal.
//
// Passwords are stored as the sheet holds them. Legacy rows are plaintext
// and compared as exact strings; rows rewritten by HashPasswords hold a
// bcrypt hash and are compared with bcrypt.
type User struct {
	Username    string
	Password    string
	DisplayName string
	HourlyRate  *generic.Amount // nil means the configured default
	Cycle       int
}

// Name is what the UI greets the user with.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Rate resolves the hourly rate against the default.
func (u User) Rate(def decimal.Decimal) generic.Amount {
	if u.HourlyRate != nil {
		return *u.HourlyRate
	}
	return generic.NewAmountFromDecimal(def, generic.UnitBRL)
}

// Directory reads and writes the user sheet.
type Directory struct {
	Store generic.SheetStore
	Sheet string
}

func NewDirectory(store generic.SheetStore, sheet string) *Directory {
	if sheet == "" {
		sheet = DefaultUserSheet
	}
	return &Directory{Store: store, Sheet: sheet}
}

// Authenticate finds the user by trimmed, lower-cased username and compares
// the password exactly. The password itself is never trimmed or folded.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (User, error) {
	sheet, err := d.Store.Read(ctx, d.Sheet)
	if err != nil {
		return User{}, err
	}

	idx := findUser(sheet.Rows, username)
	if idx < 0 {
		return User{}, generic.ErrInvalidCredentials
	}
	u := decodeUser(sheet.Rows[idx])
	if !passwordMatches(u.Password, password) {
		return User{}, generic.ErrInvalidCredentials
	}
	return u, nil
}

func (d *Directory) Get(ctx context.Context, username string) (User, error) {
	sheet, err := d.Store.Read(ctx, d.Sheet)
	if err != nil {
		return User{}, err
	}
	idx := findUser(sheet.Rows, username)
	if idx < 0 {
		return User{}, fmt.Errorf("%w: %s", generic.ErrUserNotFound, username)
	}
	return decodeUser(sheet.Rows[idx]), nil
}

func (d *Directory) List(ctx context.Context) ([]User, error) {
	sheet, err := d.Store.Read(ctx, d.Sheet)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(sheet.Rows))
	for _, r := range sheet.Rows {
		if r.Get(ColUsername) == "" {
			continue
		}
		users = append(users, decodeUser(r))
	}
	return users, nil
}

// Add appends a user. Usernames are stored normalized.
func (d *Directory) Add(ctx context.Context, u User) error {
	sheet, err := d.Store.Read(ctx, d.Sheet)
	if err != nil {
		return err
	}
	u.Username = NormalizeUsername(u.Username)
	if u.Username == "" {
		return generic.ErrInvalidUsername
	}
	if findUser(sheet.Rows, u.Username) >= 0 {
		return fmt.Errorf("%w: %s", generic.ErrUserExists, u.Username)
	}
	if u.Cycle < 1 {
		u.Cycle = 1
	}
	rows := append(sheet.Rows, encodeUser(u, nil))
	_, err = d.Store.Replace(ctx, d.Sheet, rows, sheet.Version)
	return err
}

// Put adds u or overwrites the existing row with the same username,
// keeping any extra columns on it.
func (d *Directory) Put(ctx context.Context, u User) error {
	sheet, err := d.Store.Read(ctx, d.Sheet)
	if err != nil {
		return err
	}
	u.Username = NormalizeUsername(u.Username)
	if u.Username == "" {
		return generic.ErrInvalidUsername
	}
	if u.Cycle < 1 {
		u.Cycle = 1
	}
	if idx := findUser(sheet.Rows, u.Username); idx >= 0 {
		sheet.Rows[idx] = encodeUser(u, sheet.Rows[idx])
	} else {
		sheet.Rows = append(sheet.Rows, encodeUser(u, nil))
	}
	_, err = d.Store.Replace(ctx, d.Sheet, sheet.Rows, sheet.Version)
	return err
}

// SetHourlyRate stores a user-chosen rate.
func (d *Directory) SetHourlyRate(ctx context.Context, username string, rate generic.Amount) (User, error) {
	if rate.IsNegative() {
		return User{}, fmt.Errorf("%w: negative hourly rate", generic.ErrInvalidHours)
	}
	return d.update(ctx, username, func(u *User) {
		r := generic.NewAmountFromDecimal(rate.Value, generic.UnitBRL)
		u.HourlyRate = &r
	})
}

// AdvanceCycle moves the user's watermark to a new, empty cycle.
func (d *Directory) AdvanceCycle(ctx context.Context, username string) (User, error) {
	return d.update(ctx, username, func(u *User) { u.Cycle++ })
}

// HashPasswords rewrites every plaintext password as a bcrypt hash and
// returns how many rows changed. Already-hashed rows are left alone.
func (d *Directory) HashPasswords(ctx context.Context, cost int) (int, error) {
	sheet, err := d.Store.Read(ctx, d.Sheet)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i, r := range sheet.Rows {
		pw := r[ColPassword]
		if pw == "" || isBcryptHash(pw) {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
		if err != nil {
			return 0, fmt.Errorf("hash password for %s: %w", r.Get(ColUsername), err)
		}
		row := r.Clone()
		row[ColPassword] = string(hash)
		sheet.Rows[i] = row
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	if _, err := d.Store.Replace(ctx, d.Sheet, sheet.Rows, sheet.Version); err != nil {
		return 0, err
	}
	return changed, nil
}

func (d *Directory) update(ctx context.Context, username string, fn func(*User)) (User, error) {
	sheet, err := d.Store.Read(ctx, d.Sheet)
	if err != nil {
		return User{}, err
	}
	idx := findUser(sheet.Rows, username)
	if idx < 0 {
		return User{}, fmt.Errorf("%w: %s", generic.ErrUserNotFound, username)
	}
	u := decodeUser(sheet.Rows[idx])
	fn(&u)
	sheet.Rows[idx] = encodeUser(u, sheet.Rows[idx])
	if _, err := d.Store.Replace(ctx, d.Sheet, sheet.Rows, sheet.Version); err != nil {
		return User{}, err
	}
	return u, nil
}

// =============================================================================
// ROW CODEC
// =============================================================================

func findUser(rows []generic.Row, username string) int {
	want := NormalizeUsername(username)
	if want == "" {
		return -1
	}
	for i, r := range rows {
		if NormalizeUsername(r.Get(ColUsername)) == want {
			return i
		}
	}
	return -1
}

func decodeUser(r generic.Row) User {
	u := User{
		Username:    NormalizeUsername(r.Get(ColUsername)),
		Password:    r[ColPassword],
		DisplayName: r.Get(ColDisplayName),
		Cycle:       1,
	}
	if v := strings.ReplaceAll(r.Get(ColHourlyRate), ",", "."); v != "" {
		if rate, err := decimal.NewFromString(v); err == nil && !rate.IsNegative() {
			a := generic.NewAmountFromDecimal(rate, generic.UnitBRL)
			u.HourlyRate = &a
		}
	}
	if c, err := strconv.Atoi(r.Get(ColUserCycle)); err == nil && c > 0 {
		u.Cycle = c
	}
	return u
}

func encodeUser(u User, base generic.Row) generic.Row {
	row := generic.Row{}
	if base != nil {
		row = base.Clone()
	}
	row[ColUsername] = u.Username
	row[ColPassword] = u.Password
	row[ColDisplayName] = u.DisplayName
	if u.HourlyRate != nil {
		row[ColHourlyRate] = u.HourlyRate.Value.StringFixed(2)
	} else {
		row[ColHourlyRate] = ""
	}
	row[ColUserCycle] = strconv.Itoa(u.Cycle)
	return row
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func passwordMatches(stored, given string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
