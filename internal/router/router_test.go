package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/station-api/internal/config"
	"github.com/deppfellow/station-api/internal/database"
	"github.com/deppfellow/station-api/internal/errs"
	"github.com/deppfellow/station-api/internal/handler"
	"github.com/deppfellow/station-api/internal/model"
	"github.com/deppfellow/station-api/internal/repository"
	"github.com/deppfellow/station-api/internal/router"
	"github.com/deppfellow/station-api/internal/server"
	"github.com/deppfellow/station-api/internal/service"
	"github.com/deppfellow/station-api/internal/testing/dbtest"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	e  *echo.Echo
	db *database.Database
}

func newTestApp(t *testing.T, mutate ...func(*config.Config)) *testApp {
	t.Helper()
	return newTestAppWithLogger(t, zerolog.Nop(), mutate...)
}

func newTestAppWithLogger(t *testing.T, logger zerolog.Logger, mutate ...func(*config.Config)) *testApp {
	t.Helper()

	cfg := config.Default()
	cfg.Server.RateLimit = 0
	for _, m := range mutate {
		m(cfg)
	}

	db := dbtest.New(t)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	s := server.NewWithDatabase(cfg, &logger, nil, db, registry)

	services, err := service.NewService(s, repository.NewRepositories(s))
	require.NoError(t, err)

	return &testApp{
		e:  router.NewRouter(s, handler.NewHandlers(s, services)),
		db: db,
	}
}

func (a *testApp) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRoot(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[handler.RootResponse](t, rec)
	assert.Equal(t, "Space Station Management System API", body.Message)
	assert.Equal(t, "operational", body.Status)
	assert.Equal(t, server.Version, body.Version)
	assert.Equal(t, "/docs", body.Docs)
}

func TestDocsListsRoutes(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	routes := decode[[]handler.RouteInfo](t, rec)
	assert.Contains(t, routes, handler.RouteInfo{Method: http.MethodPost, Path: "/missions"})
	assert.Contains(t, routes, handler.RouteInfo{Method: http.MethodDelete, Path: "/experiments/:id"})
	assert.Contains(t, routes, handler.RouteInfo{Method: http.MethodGet, Path: "/health"})
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, handler.HealthResponse{API: "healthy", Database: "connected", Pool: "pooled"},
		decode[handler.HealthResponse](t, rec))

	require.NoError(t, app.db.Close())

	rec = app.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "disconnected", decode[handler.HealthResponse](t, rec).Database)
}

func TestHealthLogsPoolStats(t *testing.T) {
	var logs bytes.Buffer
	app := newTestAppWithLogger(t, zerolog.New(&logs).Level(zerolog.DebugLevel))

	rec := app.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var line map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(raw, &entry))
		if entry["message"] == "database health check passed" {
			line = entry
		}
	}

	require.NotNil(t, line, logs.String())
	assert.Equal(t, "pooled", line["pool_mode"])
	assert.Contains(t, line, "open_connections")
	assert.Equal(t, float64(0), line["in_use"])
	assert.Contains(t, line, "idle")
}

func TestMetrics(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMissionLifecycle(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/missions", `{"name":"Orbit","purpose":"Survey","crew_id":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[model.MissionCreateResponse](t, rec)
	assert.Equal(t, "Mission created successfully", created.Message)
	assert.Equal(t, model.Mission{MissionID: 1, Name: "Orbit", Purpose: "Survey", CrewID: 1, CrewName: "Alice"}, created.Mission)

	rec = app.do(http.MethodGet, "/missions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.Mission{created.Mission}, decode[[]model.Mission](t, rec))

	rec = app.do(http.MethodPut, "/missions/1", `{"purpose":"Dock","crew_id":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Mission 1 updated successfully", decode[model.MessageResponse](t, rec).Message)

	rec = app.do(http.MethodGet, "/missions", "")
	list := decode[[]model.Mission](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, model.Mission{MissionID: 1, Name: "Orbit", Purpose: "Dock", CrewID: 2, CrewName: "Bob"}, list[0])

	rec = app.do(http.MethodDelete, "/missions/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mission 1 deleted successfully", decode[model.MessageResponse](t, rec).Message)

	rec = app.do(http.MethodDelete, "/missions/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MISSION_NOT_FOUND", decode[errs.HTTPError](t, rec).Code)
}

func TestListMissionsEmpty(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/missions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCreateMissionErrors(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
		field  string
	}{
		{
			name:   "unknown crew",
			body:   `{"name":"Orbit","purpose":"Survey","crew_id":999}`,
			status: http.StatusNotFound,
			code:   "CREW_NOT_FOUND",
		},
		{
			name:   "missing name",
			body:   `{"purpose":"Survey","crew_id":1}`,
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
			field:  "name",
		},
		{
			name:   "missing crew",
			body:   `{"name":"Orbit","purpose":"Survey"}`,
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
			field:  "crew_id",
		},
		{
			name:   "name too long",
			body:   `{"name":"` + strings.Repeat("x", 256) + `","purpose":"Survey","crew_id":1}`,
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
			field:  "name",
		},
		{
			name:   "malformed json",
			body:   `{"name":`,
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/missions", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			body := decode[errs.HTTPError](t, rec)
			assert.Equal(t, tt.code, body.Code)
			if tt.field != "" {
				require.NotEmpty(t, body.Errors)
				assert.Equal(t, tt.field, body.Errors[0].Field)
			}
		})
	}

	assert.Zero(t, dbtest.Count(t, app.db, "mission"))
}

func TestUpdateMissionErrors(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/missions", `{"name":"Orbit","purpose":"Survey","crew_id":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"no fields", "/missions/1", `{}`, http.StatusBadRequest, "NO_FIELDS_TO_UPDATE"},
		{"unknown mission", "/missions/42", `{"name":"X"}`, http.StatusNotFound, "MISSION_NOT_FOUND"},
		{"unknown crew", "/missions/1", `{"crew_id":999}`, http.StatusNotFound, "CREW_NOT_FOUND"},
		{"empty name", "/missions/1", `{"name":""}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad id", "/missions/abc", `{"name":"X"}`, http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPut, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[errs.HTTPError](t, rec).Code)
		})
	}

	rec = app.do(http.MethodGet, "/missions", "")
	list := decode[[]model.Mission](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Orbit", list[0].Name)
	assert.Equal(t, int64(1), list[0].CrewID)
}

func TestAbsentIDsAreNotFound(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   string
	}{
		{"update mission id zero", http.MethodPut, "/missions/0", `{"name":"X"}`, "MISSION_NOT_FOUND"},
		{"update mission unknown id", http.MethodPut, "/missions/999", `{"name":"X"}`, "MISSION_NOT_FOUND"},
		{"delete mission negative id", http.MethodDelete, "/missions/-1", "", "MISSION_NOT_FOUND"},
		{"delete experiment id zero", http.MethodDelete, "/experiments/0", "", "EXPERIMENT_NOT_FOUND"},
		{"update experiment negative id", http.MethodPut, "/experiments/-5", `{"status":"Done"}`, "EXPERIMENT_NOT_FOUND"},
		{"create mission crew zero", http.MethodPost, "/missions", `{"name":"X","purpose":"Y","crew_id":0}`, "CREW_NOT_FOUND"},
		{"create mission negative crew", http.MethodPost, "/missions", `{"name":"X","purpose":"Y","crew_id":-3}`, "CREW_NOT_FOUND"},
		{"create experiment crew zero", http.MethodPost, "/experiments", `{"title":"X","status":"Y","crew_id":0}`, "CREW_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[errs.HTTPError](t, rec).Code)
		})
	}

	assert.Zero(t, dbtest.Count(t, app.db, "mission"))
	assert.Zero(t, dbtest.Count(t, app.db, "experiment"))
}

func TestCreateWithNullCrewIsBadRequest(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/missions", `{"name":"X","purpose":"Y","crew_id":null}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	body := decode[errs.HTTPError](t, rec)
	require.NotEmpty(t, body.Errors)
	assert.Equal(t, "crew_id", body.Errors[0].Field)
	assert.Equal(t, "is required", body.Errors[0].Error)
}

func TestExperimentLifecycle(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/experiments", `{"title":"Plants","status":"Planned","crew_id":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[model.ExperimentCreateResponse](t, rec)
	assert.Equal(t, "Experiment created successfully", created.Message)
	assert.Equal(t, "Bob", created.CrewName)

	rec = app.do(http.MethodPut, "/experiments/1", `{"status":"Running"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Experiment 1 updated successfully", decode[model.MessageResponse](t, rec).Message)

	rec = app.do(http.MethodGet, "/experiments", "")
	list := decode[[]model.Experiment](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Running", list[0].Status)

	rec = app.do(http.MethodDelete, "/experiments/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodPut, "/experiments/1", `{"status":"Done"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EXPERIMENT_NOT_FOUND", decode[errs.HTTPError](t, rec).Code)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errs.HTTPError](t, rec).Code)
}

func TestRequestIDHeader(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = app.do(http.MethodGet, "/", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = 1
		cfg.Server.RateBurst = 2
	})

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, app.do(http.MethodGet, "/", "").Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMetricsDisabled(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Observability.Metrics.Enabled = false
	})

	rec := app.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
