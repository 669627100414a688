package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plancal/internal/civil"
	"plancal/internal/config"
	"plancal/internal/holiday"
	"plancal/internal/model"
	"plancal/internal/store"
)

type staticSource map[holiday.Key][]model.Holiday

func (s staticSource) Name() string { return "static" }

func (s staticSource) Holidays(_ context.Context, country string, year int) ([]model.Holiday, error) {
	return s[holiday.Key{Country: country, Year: year}], nil
}

type failingSource struct{}

func (failingSource) Name() string { return "api" }

func (failingSource) Holidays(context.Context, string, int) ([]model.Holiday, error) {
	return nil, errors.New("connection refused")
}

func hol(country, date, name string) model.Holiday {
	return model.Holiday{Country: country, Date: civil.MustParse(date), Name: name, Source: "static"}
}

func testHolidays() staticSource {
	return staticSource{
		{Country: "US", Year: 2026}: {
			hol("US", "2026-01-01", "New Year's Day"),
			hol("US", "2026-05-25", "Memorial Day"),
		},
		{Country: "GB", Year: 2026}: {
			hol("GB", "2026-05-25", "Spring Bank Holiday"),
		},
	}
}

type testEnv struct {
	handler http.Handler
	state   *store.Store
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	st, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := holiday.NewService(time.Hour, testHolidays())
	srv := NewServer(cfg, svc, st)
	srv.now = func() time.Time { return time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC) }
	return testEnv{handler: srv.Handler(), state: st}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.handler, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get(RequestIDHeader))

	rec = do(t, env.handler, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "planner", Password: "s3cret"}
	})

	assert.Equal(t, http.StatusOK, do(t, env.handler, http.MethodGet, "/health", "").Code)

	rec := do(t, env.handler, http.MethodGet, "/api/holidays?country=US&year=2026", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/holidays?country=US&year=2026", nil)
	req.SetBasicAuth("planner", "s3cret")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHolidays(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.handler, http.MethodGet, "/api/holidays?country=us&year=2026", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "US", body["country"])
	hs := body["holidays"].([]any)
	require.Len(t, hs, 2)
	assert.Equal(t, "2026-05-25", hs[1].(map[string]any)["date"])
	assert.Equal(t, "Memorial Day", hs[1].(map[string]any)["name"])

	// Year defaults to the current year.
	rec = do(t, env.handler, http.MethodGet, "/api/holidays?country=GB", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2026, decode(t, rec)["year"])

	// Unknown data is an empty list, not an error.
	rec = do(t, env.handler, http.MethodGet, "/api/holidays?country=FR&year=2026", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["holidays"])

	for _, path := range []string{
		"/api/holidays",
		"/api/holidays?country=USA",
		"/api/holidays?country=US&year=abc",
		"/api/holidays?country=US&year=0",
	} {
		assert.Equal(t, http.StatusBadRequest, do(t, env.handler, http.MethodGet, path, "").Code, path)
	}
}

func TestHolidaysUpstreamFailure(t *testing.T) {
	srv := NewServer(config.DefaultConfig(), holiday.NewService(time.Hour, failingSource{}), nil)
	rec := do(t, srv.Handler(), http.MethodGet, "/api/holidays?country=US&year=2026", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "connection refused")
}

func TestConvert(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.handler, http.MethodGet, "/api/tz/convert?from=America/Los_Angeles&to=Asia/Manila&datetime=2026-03-03T17:00", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "2026-03-04T01:00:00Z", body["instant"])
	assert.EqualValues(t, 1, body["day_shift"])
	to := body["to"].(map[string]any)
	assert.Equal(t, "2026-03-04T09:00", to["local"])
	assert.Equal(t, "UTC+08:00", to["offset"])

	for _, path := range []string{
		"/api/tz/convert?from=America/Los_Angeles&to=Asia/Manila",
		"/api/tz/convert?from=Mars/Olympus&to=Asia/Manila&datetime=2026-03-03T17:00",
		"/api/tz/convert?from=UTC&to=Asia/Manila&datetime=2026-03-03",
	} {
		rec := do(t, env.handler, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.NotEmpty(t, decode(t, rec)["error"])
	}
}

func TestOffset(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.handler, http.MethodGet, "/api/tz/offset?zone=Asia/Kolkata&at=2026-07-01T12:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "UTC+05:30", body["offset"])
	assert.EqualValues(t, 330, body["offset_minutes"])
	assert.Equal(t, "2026-07-01T12:00:00Z", body["instant"])

	rec = do(t, env.handler, http.MethodGet, "/api/tz/offset?zone=America/New_York", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UTC-05:00", decode(t, rec)["offset"])

	assert.Equal(t, http.StatusBadRequest, do(t, env.handler, http.MethodGet, "/api/tz/offset?zone=Local", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, env.handler, http.MethodGet, "/api/tz/offset?zone=UTC&at=yesterday", "").Code)
}

func TestBizRange(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.handler, http.MethodPost, "/api/bizdays/range",
		`{"start":"2026-01-01","end":"2026-01-10","country":"us","use_holidays":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 10, body["calendar_days"])
	assert.EqualValues(t, 6, body["business_days"])
	assert.EqualValues(t, 3, body["weekend_days_excluded"])
	assert.EqualValues(t, 1, body["holiday_days_excluded"])
	assert.Equal(t, []any{"2026-01-01"}, body["holidays_hit"])
	assert.Equal(t, map[string]any{"2026-01-01": "New Year's Day"}, body["holiday_names"])

	// Holidays ignored unless asked for; weekends can be kept.
	rec = do(t, env.handler, http.MethodPost, "/api/bizdays/range",
		`{"start":"2026-01-01","end":"2026-01-10","exclude_weekends":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 10, decode(t, rec)["business_days"])

	for _, body := range []string{
		`{"start":"2026-01-10","end":"2026-01-01"}`,
		`{"start":"2026-1-1","end":"2026-01-10"}`,
		`{"start":"2026-01-01"}`,
		`{"start":"2026-01-01","end":"2026-01-10","use_holidays":true}`,
		`{"start":"2026-01-01","end":"2026-01-10","colour":"blue"}`,
		`not json`,
	} {
		rec := do(t, env.handler, http.MethodPost, "/api/bizdays/range", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestBizAdd(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := do(t, env.handler, http.MethodPost, "/api/bizdays/add",
		`{"start":"2026-01-01","days":3,"country":"US","use_holidays":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "2026-01-06", body["result"])
	assert.EqualValues(t, 2, body["days_skipped"])
	assert.Equal(t, []any{"2026-01-03", "2026-01-04"}, body["skipped_dates"])

	rec = do(t, env.handler, http.MethodPost, "/api/bizdays/add", `{"start":"2026-05-22","days":1,"country":"US","use_holidays":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "2026-05-26", body["result"])
	assert.Equal(t, map[string]any{"2026-05-25": "Memorial Day"}, body["holiday_names"])

	rec = do(t, env.handler, http.MethodPost, "/api/bizdays/add", `{"start":"2026-01-01","days":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-01-01", decode(t, rec)["result"])

	for _, body := range []string{
		`{"start":"2026-01-01","days":-1}`,
		`{"start":"2026-01-01"}`,
		`{"start":"2026-01-01","days":1000000}`,
	} {
		assert.Equal(t, http.StatusBadRequest, do(t, env.handler, http.MethodPost, "/api/bizdays/add", body).Code, body)
	}
}

func TestOverlap(t *testing.T) {
	env := newTestEnv(t, nil)
	participants := `[{"zone":"America/New_York","holiday_country":"US"},{"zone":"Europe/London","holiday_country":"gb"}]`

	rec := do(t, env.handler, http.MethodPost, "/api/overlap",
		`{"date":"2026-03-03","participants":`+participants+`,"start":"09:00","end":"17:00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 48, summary["candidates"])
	assert.EqualValues(t, 5, summary["overlapping"])
	assert.Equal(t, "2026-03-03T14:00:00Z", summary["first_overlap"])
	assert.Equal(t, "chronological", body["order"])
	assert.Equal(t, "America/New_York", body["primary_zone"])
	assert.Len(t, body["rows"], 48)

	rec = do(t, env.handler, http.MethodPost, "/api/overlap",
		`{"date":"2026-03-03","participants":`+participants+`,"business_hours":true,"sort":"overlap_first","overlap_only":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	rows := body["rows"].([]any)
	require.Len(t, rows, 5)
	assert.Equal(t, "2026-03-03T14:00:00Z", rows[0].(map[string]any)["start"])
	assert.Equal(t, "09:00", body["window_start"])

	// Memorial Day and the Spring Bank Holiday fall on the same Monday.
	rec = do(t, env.handler, http.MethodPost, "/api/overlap",
		`{"date":"2026-05-25","participants":`+participants+`,"business_hours":true,"avoid_holidays":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 0, decode(t, rec)["summary"].(map[string]any)["overlapping"])

	rec = do(t, env.handler, http.MethodPost, "/api/overlap",
		`{"date":"2026-05-25","participants":`+participants+`,"business_hours":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, decode(t, rec)["summary"].(map[string]any)["overlapping"])

	for _, body := range []string{
		`{"date":"2026-03-03","participants":` + participants + `}`,
		`{"date":"2026-03-03","participants":[{"zone":"Mars/Olympus"}],"business_hours":true}`,
		`{"date":"2026-03-03","participants":[{"zone":"UTC","holiday_country":"XYZ"}],"business_hours":true}`,
		`{"date":"2026-03-03","participants":` + participants + `,"business_hours":true,"sort":"random"}`,
		`{"date":"2026-03-03","participants":` + participants + `,"business_hours":true,"step_minutes":0}`,
		`{"date":"2026-03-03","participants":` + participants + `,"start":"17:00","end":"09:00"}`,
		`{"date":"2026-03-03","participants":` + participants + `,"start":"9am","end":"17:00"}`,
	} {
		rec := do(t, env.handler, http.MethodPost, "/api/overlap", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestState(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.handler

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPut, "/api/state/prefs", `{"zone":"Asia/Manila"}`).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPut, "/api/state/team", `["US","GB"]`).Code)

	rec := do(t, h, http.MethodGet, "/api/state/prefs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"zone":"Asia/Manila"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/state?view=keys", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"prefs", "team"}, decode(t, rec)["keys"])

	rec = do(t, h, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/state", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/state/prefs", "").Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/state?replace=true", exported).Code)
	rec = do(t, h, http.MethodGet, "/api/state/team", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["US","GB"]`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/state/team", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/state/team", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/state/prefs", `{oops`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/state?replace=maybe", exported).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/state", `{"version":7,"entries":{}}`).Code)
}

func TestStateDisabled(t *testing.T) {
	srv := NewServer(config.DefaultConfig(), holiday.NewService(time.Hour), nil)
	rec := do(t, srv.Handler(), http.MethodGet, "/api/state", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
