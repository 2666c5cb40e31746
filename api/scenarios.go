/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Seeds a demo user with the entries behind the two worked examples of
	the time bank rules, so the dashboard can be checked by hand.

AVAILABLE SCENARIOS:

	monday-cap:     One weekday shift; the 1.25 multiplier is capped at 2h
	quota-overflow: An imported 35h credit plus a Saturday shift; the
	                quota saturates at 36h and 2h go to paid overflow

HOW SCENARIOS WORK:
 1. Upsert the scenario user (cycle 1, known password)
 2. Purge that user's entry rows
 3. Write the scenario's entries through the service

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "quota-overflow"}

NOTE:

	Only the scenario user's rows are touched. The endpoints are mounted
	only when scenarios are enabled in config.

SEE ALSO:
  - handlers.go: Handler struct
  - timebank/service.go: SubmitCredit
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/warp/banco-de-horas/generic"
	"github.com/warp/banco-de-horas/timebank"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const (
	scenarioUser     = "demo"
	scenarioPassword = "demo"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "monday-cap",
		Name:        "Weekday Cap",
		Description: "Monday 08:00-17:00 with lunch: 8h raw x 1.25 = 10h, capped at 2h",
		Username:    scenarioUser,
		Password:    scenarioPassword,
	},
	{
		ID:          "quota-overflow",
		Name:        "Quota Overflow",
		Description: "35h already banked, then Saturday 08:00-10:00 (3h): 1h banked, 2h paid",
		Username:    scenarioUser,
		Password:    scenarioPassword,
	},
}

// LoadScenario resets the demo user and loads the scenario's entries.
func LoadScenario(ctx context.Context, svc *timebank.Service, id string) error {
	var load func(context.Context, *timebank.Service) error
	switch id {
	case "monday-cap":
		load = loadMondayCapScenario
	case "quota-overflow":
		load = loadQuotaOverflowScenario
	default:
		return fmt.Errorf("unknown scenario: %s", id)
	}

	if err := svc.Users.Put(ctx, timebank.User{
		Username:    scenarioUser,
		Password:    scenarioPassword,
		DisplayName: "Demo",
		Cycle:       1,
	}); err != nil {
		return err
	}
	if _, err := svc.Ledger.Purge(ctx, scenarioUser); err != nil {
		return err
	}
	return load(ctx, svc)
}

func loadMondayCapScenario(ctx context.Context, svc *timebank.Service) error {
	_, err := svc.SubmitCredit(ctx, scenarioUser, timebank.CreditInput{
		Date:          generic.NewDate(2025, time.January, 6),
		ClockIn:       generic.NewClock(8, 0),
		ClockOut:      generic.NewClock(17, 0),
		LunchDeducted: true,
	})
	return err
}

func loadQuotaOverflowScenario(ctx context.Context, svc *timebank.Service) error {
	// legacy import: a whole-day credit row with no clock times
	imported := timebank.Entry{
		ID:        svc.NewID(),
		UserID:    scenarioUser,
		Date:      generic.NewDate(2025, time.January, 2),
		Direction: timebank.Credit,
		Hours:     generic.Hours(35),
		Cycle:     1,
		CreatedAt: svc.Now(),
	}
	if err := svc.Ledger.Append(ctx, imported); err != nil {
		return err
	}

	_, err := svc.SubmitCredit(ctx, scenarioUser, timebank.CreditInput{
		Date:     generic.NewDate(2025, time.January, 11),
		ClockIn:  generic.NewClock(8, 0),
		ClockOut: generic.NewClock(10, 0),
	})
	return err
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the demo user with a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var found *ScenarioDTO
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			found = &scenarios[i]
			break
		}
	}
	if found == nil {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	if err := LoadScenario(r.Context(), h.Service, req.ScenarioID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.log(r).Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, found)
}
