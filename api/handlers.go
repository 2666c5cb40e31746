/*
handlers.go - HTTP API handlers for the time bank

PURPOSE:
  Exposes the timebank.Service via a JSON API. Handles HTTP
  request/response, JSON serialization, and delegates to the service.

ENDPOINTS:
  Session:
    POST   /api/login                 Check credentials, set session cookie
    POST   /api/logout                Clear session cookie
    GET    /api/me                    Current user
    PUT    /api/me/hourly-rate        Store the user's hourly rate

  Time bank:
    GET    /api/dashboard             Quota, banked balance, net overflow pay
    GET    /api/entries[?cycle=N]     Entry history with allocation steps
    POST   /api/entries/credit        Submit overtime worked
    POST   /api/entries/debit         Submit leave taken
    PUT    /api/entries/{id}          Edit an entry (hours recomputed)
    DELETE /api/entries/{id}          Delete an entry
    POST   /api/cycle/reset           Start a new cycle
    GET    /api/tax?gross=            Tax breakdown for a gross amount

  Scenarios (dev only):
    GET    /api/scenarios             List demo scenarios
    POST   /api/scenarios/load        Seed a demo user

ARCHITECTURE:
  Handler holds all dependencies:
  - Service: timebank write intents and projections
  - Sessions: token issue/validate
  - Logger: structured request-scoped logging

REQUEST FLOW:
  1. Resolve the Session from the request context
  2. Parse and validate input (day-first dates, HH:MM clocks)
  3. Call the service
  4. Serialize response
  5. Map errors to status codes (respondError)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, undefined day rule
  - 401: Invalid credentials, missing/expired session
  - 404: Entry or user not found
  - 409: Sheet changed by another session
  - 503: Store unreachable
  - 500: Anything else

SEE ALSO:
  - dto.go: Request/response data structures
  - session.go: Session cookie and middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/banco-de-horas/generic"
	"github.com/warp/banco-de-horas/timebank"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *timebank.Service
	Sessions *Sessions
	Logger   *zap.Logger

	// ScenariosEnabled exposes the demo seed endpoints.
	ScenariosEnabled bool

	// Ping checks the backing store for /healthz; nil means always healthy.
	Ping func(r *http.Request) error
}

// NewHandler creates a new handler.
func NewHandler(svc *timebank.Service, sessions *Sessions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, Sessions: sessions, Logger: logger}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// Login checks credentials against the user sheet and sets the cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required", nil)
		return
	}

	user, err := h.Service.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.log(r).Info("login failed", zap.String("user", timebank.NormalizeUsername(req.Username)), zap.Error(err))
		h.respondError(w, r, err)
		return
	}

	token, exp, err := h.Sessions.Issue(user.Username, user.Name())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session", err)
		return
	}
	h.Sessions.SetCookie(w, token, exp)

	h.log(r).Info("login", zap.String("user", user.Username))
	writeJSON(w, http.StatusOK, LoginResponse{
		User:      toUserDTO(user, h.Service.Rules),
		ExpiresAt: exp.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

// Logout clears the cookie. It succeeds without a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the logged-in user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	user, err := h.Service.Users.Get(r.Context(), sess.Username)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user, h.Service.Rules))
}

// SetHourlyRate stores the user's hourly rate on their user row.
func (h *Handler) SetHourlyRate(w http.ResponseWriter, r *http.Request) {
	var req HourlyRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.HourlyRate < 0 {
		writeError(w, http.StatusBadRequest, "Hourly rate must not be negative", nil)
		return
	}

	sess := SessionFrom(r.Context())
	rate := generic.NewAmountFromDecimal(decimal.NewFromFloat(req.HourlyRate).Round(2), generic.UnitBRL)
	user, err := h.Service.Users.SetHourlyRate(r.Context(), sess.Username, rate)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user, h.Service.Rules))
}

// =============================================================================
// TIME BANK HANDLERS
// =============================================================================

// Dashboard returns the three projections plus unreadable rows.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	dash, err := h.Service.Dashboard(r.Context(), sess.Username)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(dash, h.Service.Rules))
}

// ListEntries returns the replay steps of a cycle, current by default.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	cycle := 0
	if v := r.URL.Query().Get("cycle"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "cycle must be a positive integer", nil)
			return
		}
		cycle = n
	}

	sess := SessionFrom(r.Context())
	hist, err := h.Service.History(r.Context(), sess.Username, cycle)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryDTO(hist))
}

// SubmitCredit records overtime worked.
func (h *Handler) SubmitCredit(w http.ResponseWriter, r *http.Request) {
	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := parseCredit(req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	sess := SessionFrom(r.Context())
	e, err := h.Service.SubmitCredit(r.Context(), sess.Username, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(e))
}

// SubmitDebit records leave taken.
func (h *Handler) SubmitDebit(w http.ResponseWriter, r *http.Request) {
	var req DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := parseDebit(req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	sess := SessionFrom(r.Context())
	e, err := h.Service.SubmitDebit(r.Context(), sess.Username, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(e))
}

// EditEntry replaces an entry's inputs and recomputes its hours.
func (h *Handler) EditEntry(w http.ResponseWriter, r *http.Request) {
	var req EditEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dir, err := timebank.ParseDirection(req.Direction)
	if err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %q", err, req.Direction))
		return
	}

	var in timebank.EditInput
	switch dir {
	case timebank.Credit:
		c, err := parseCredit(CreditRequest{Date: req.Date, ClockIn: req.ClockIn, ClockOut: req.ClockOut, LunchDeducted: req.LunchDeducted})
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		in = timebank.EditInput{Direction: dir, Date: c.Date, ClockIn: c.ClockIn, ClockOut: c.ClockOut, LunchDeducted: c.LunchDeducted}
	case timebank.Debit:
		d, err := parseDebit(DebitRequest{Date: req.Date, Mode: req.Mode, ClockIn: req.ClockIn, ClockOut: req.ClockOut, LunchDeducted: req.LunchDeducted})
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		in = timebank.EditInput{Direction: dir, Date: d.Date, Mode: d.Mode, ClockIn: d.ClockIn, ClockOut: d.ClockOut, LunchDeducted: d.LunchDeducted}
	}

	sess := SessionFrom(r.Context())
	e, err := h.Service.EditEntry(r.Context(), sess.Username, chi.URLParam(r, "id"), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

// DeleteEntry removes one of the user's entries.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if err := h.Service.DeleteEntry(r.Context(), sess.Username, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetCycle starts a new cycle for the user. Repeating it is a no-op.
func (h *Handler) ResetCycle(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	res, err := h.Service.ResetCycle(r.Context(), sess.Username)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResetDTO{
		Mode:     string(res.Mode),
		Changed:  res.Changed,
		Cycle:    res.Cycle,
		Archived: res.Archived,
	})
}

// Tax returns the withholding breakdown for ?gross=.
func (h *Handler) Tax(w http.ResponseWriter, r *http.Request) {
	raw := strings.ReplaceAll(strings.TrimSpace(r.URL.Query().Get("gross")), ",", ".")
	gross, err := decimal.NewFromString(raw)
	if err != nil || gross.IsNegative() {
		writeError(w, http.StatusBadRequest, "gross must be a non-negative number", err)
		return
	}
	breakdown := h.Service.Tax.Compute(generic.NewAmountFromDecimal(gross, generic.UnitBRL))
	writeJSON(w, http.StatusOK, toTaxDTO(breakdown))
}

// Health reports whether the store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// INPUT PARSING
// =============================================================================

func parseCredit(req CreditRequest) (timebank.CreditInput, error) {
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		return timebank.CreditInput{}, err
	}
	in, out, err := parseClocks(req.ClockIn, req.ClockOut)
	if err != nil {
		return timebank.CreditInput{}, err
	}
	return timebank.CreditInput{Date: date, ClockIn: in, ClockOut: out, LunchDeducted: req.LunchDeducted}, nil
}

func parseDebit(req DebitRequest) (timebank.DebitInput, error) {
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		return timebank.DebitInput{}, err
	}
	mode, err := timebank.ParseDebitMode(req.Mode)
	if err != nil || mode == timebank.DebitNone {
		return timebank.DebitInput{}, fmt.Errorf("%w: %q", generic.ErrInvalidDebitMode, req.Mode)
	}

	in := timebank.DebitInput{Date: date, Mode: mode}
	if mode == timebank.DebitPartial {
		in.ClockIn, in.ClockOut, err = parseClocks(req.ClockIn, req.ClockOut)
		if err != nil {
			return timebank.DebitInput{}, err
		}
		in.LunchDeducted = req.LunchDeducted
	}
	return in, nil
}

func parseClocks(in, out string) (generic.Clock, generic.Clock, error) {
	cin, err := generic.ParseClock(in)
	if err != nil {
		return 0, 0, err
	}
	cout, err := generic.ParseClock(out)
	if err != nil {
		return 0, 0, err
	}
	return cin, cout, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// respondError maps service errors to a status code. Store failures get a
// generic message; the cause only goes to the log.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, generic.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Invalid username or password", Code: "invalid_credentials"})
	case errors.Is(err, generic.ErrConcurrentModification):
		h.log(r).Warn("concurrent modification", zap.Error(err))
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: "The data was changed by another session. Reload and try again.",
			Code:  "concurrent_modification",
		})
	case errors.Is(err, generic.ErrStoreUnavailable):
		h.log(r).Error("store unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "Could not reach the storage backend. Try again later.",
			Code:  "store_unavailable",
		})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, generic.ErrUndefinedDayRule):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "No overtime rule is defined for that day", Code: "undefined_day_rule", Details: err.Error()})
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	default:
		h.log(r).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func (h *Handler) log(r *http.Request) *zap.Logger {
	l := h.Logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
	if sess := SessionFrom(r.Context()); sess != nil {
		l = l.With(zap.String("session_user", sess.Username))
	}
	return l
}
