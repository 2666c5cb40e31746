package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_DisabledByDefault(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/api/scenarios", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListScenarios(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodGet, "/api/scenarios", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ScenarioDTO](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "monday-cap", list[0].ID)
}

func TestLoadScenario_MondayCap(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "monday-cap"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookie := ts.login(t, scenarioUser, scenarioPassword)
	d := decode[DashboardDTO](t, ts.do(t, http.MethodGet, "/api/dashboard", nil, cookie))
	assert.Equal(t, 2.0, d.Quota.Used)
	assert.Equal(t, 2.0, d.BankedBalance)
	assert.Equal(t, 0.0, d.Financial.PaidOverflowHours)
}

func TestLoadScenario_QuotaOverflow(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "quota-overflow"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookie := ts.login(t, scenarioUser, scenarioPassword)
	d := decode[DashboardDTO](t, ts.do(t, http.MethodGet, "/api/dashboard", nil, cookie))

	// THEN: 35 + 3 = 38 used, 36 banked, 2h paid
	assert.Equal(t, 38.0, d.Quota.Used)
	assert.Equal(t, 36.0, d.Quota.Filled)
	assert.True(t, d.Quota.Exhausted)
	assert.Equal(t, 36.0, d.BankedBalance)
	assert.Equal(t, 2.0, d.Financial.PaidOverflowHours)
	assert.True(t, d.Financial.GrossOverflowPay > d.Financial.NetOverflowPay)
}

func TestLoadScenario_Reload(t *testing.T) {
	ts := newTestServer(t, true)

	// Loading twice leaves only the scenario's own entries
	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "monday-cap"}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	cookie := ts.login(t, scenarioUser, scenarioPassword)
	d := decode[DashboardDTO](t, ts.do(t, http.MethodGet, "/api/dashboard", nil, cookie))
	assert.Equal(t, 1, d.EntryCount)
}

func TestLoadScenario_Unknown(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
