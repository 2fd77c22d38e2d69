package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee/marquee/internal/api/ratelimit"
	"github.com/marquee/marquee/internal/availability"
	"github.com/marquee/marquee/internal/browse"
	"github.com/marquee/marquee/internal/config"
	"github.com/marquee/marquee/internal/health"
	"github.com/marquee/marquee/internal/metadata"
	"github.com/marquee/marquee/internal/metadata/mock"
	"github.com/marquee/marquee/internal/scheduler"
	"github.com/marquee/marquee/internal/scheduler/tasks"
	"github.com/marquee/marquee/internal/testutil"
	"github.com/marquee/marquee/internal/websocket"
)

type testServer struct {
	*Server
	monitor *availability.Monitor
}

func setupTestServer(t *testing.T, reactionsPerMinute int) *testServer {
	t.Helper()

	logger := testutil.NopLogger()
	cfg := config.Default()

	svc := metadata.NewServiceWithProvider(mock.NewOMDBClient(), metadata.DefaultServiceConfig(), logger)
	loader := browse.NewLoader(svc, browse.DefaultRows(cfg.Browse.Genres), logger)
	monitor := availability.NewMonitor(svc, nil, logger)
	hub := websocket.NewHub(10, logger)

	sched, err := scheduler.New(nil, logger)
	require.NoError(t, err)
	t.Cleanup(func() { sched.Stop() })
	require.NoError(t, tasks.RegisterAvailabilityTask(sched, monitor, time.Hour))

	healthSvc := health.NewService(nil, logger)
	healthSvc.RegisterCheck(health.CategoryMetadata, "omdb", "OMDb", func(context.Context) error {
		if !monitor.Status().Checked {
			return health.Warning("not probed yet")
		}
		return nil
	})

	server := NewServer(cfg, Deps{
		Metadata:  svc,
		Loader:    loader,
		Monitor:   monitor,
		Hub:       hub,
		Scheduler: sched,
		Limiter:   ratelimit.New(reactionsPerMinute, time.Minute, clockwork.NewFakeClock()),
		Health:    healthSvc,
	}, logger)

	return &testServer{Server: server, monitor: monitor}
}

func (ts *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.RemoteAddr = "192.0.2.10:5555"
	rec := httptest.NewRecorder()
	ts.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, 0)

	rec := ts.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestStatus_BannerFollowsProbe(t *testing.T) {
	ts := setupTestServer(t, 0)

	rec := ts.do(http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var before StatusResponse
	decode(t, rec, &before)
	assert.Equal(t, config.Version, before.Version)
	assert.Equal(t, "websocket", before.Transport)
	assert.False(t, before.Provider.Checked)
	assert.False(t, before.Provider.ShowBanner, "no banner before the first probe")
	require.Len(t, before.Tasks, 1)

	rec = ts.do(http.MethodPost, "/api/v1/scheduler/tasks/"+tasks.AvailabilityProbeTaskID+"/run", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var after StatusResponse
	decode(t, ts.do(http.MethodGet, "/api/v1/status", ""), &after)
	assert.True(t, after.Provider.Checked)
	assert.True(t, after.Provider.Available)
	assert.False(t, after.Provider.ShowBanner)
	assert.Equal(t, ts.monitor.Status().Available, after.Provider.Available)
	require.NotNil(t, after.Relay)
	assert.Zero(t, after.Relay.Clients)
}

func TestHealthRoutes(t *testing.T) {
	ts := setupTestServer(t, 0)

	var summary health.HealthSummary
	decode(t, ts.do(http.MethodGet, "/api/v1/health/summary", ""), &summary)
	assert.False(t, summary.HasIssues)

	rec := ts.do(http.MethodPost, "/api/v1/health/check", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	decode(t, ts.do(http.MethodGet, "/api/v1/status", ""), &status)
	require.NotNil(t, status.Health)
	assert.True(t, status.Health.HasIssues, "provider not probed yet")

	ts.do(http.MethodPost, "/api/v1/scheduler/tasks/"+tasks.AvailabilityProbeTaskID+"/run", "")
	ts.do(http.MethodPost, "/api/v1/health/metadata/check", "")

	decode(t, ts.do(http.MethodGet, "/api/v1/health/summary", ""), &summary)
	assert.False(t, summary.HasIssues)
}

func TestSearchAndDetail(t *testing.T) {
	ts := setupTestServer(t, 0)

	rec := ts.do(http.MethodGet, "/api/v1/movies/search?query=matrix", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var search struct {
		Results []metadata.MovieResponse `json:"results"`
	}
	decode(t, rec, &search)
	require.Len(t, search.Results, 1)
	assert.Equal(t, "tt0133093", search.Results[0].ID)
	assert.Equal(t, "/placeholder.svg", search.Results[0].PosterURL)

	rec = ts.do(http.MethodGet, "/api/v1/movies/tt0133093", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/movies/tt0000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHome(t *testing.T) {
	ts := setupTestServer(t, 0)

	rec := ts.do(http.MethodGet, "/api/v1/home", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var home browse.HomeResponse
	decode(t, rec, &home)
	require.NotNil(t, home.Featured)
	assert.Equal(t, "tt6791350", home.Featured.ID, "first trending movie is featured")
	assert.True(t, home.Available)
	require.Len(t, home.Rows, 6)
	assert.Equal(t, "popular", home.Rows[1].ID)
	assert.Len(t, home.Rows[1].Movies, len(metadata.FallbackCatalog()), "no marvel titles offline")
}

func TestReactions(t *testing.T) {
	ts := setupTestServer(t, 0)

	rec := ts.do(http.MethodPost, "/api/v1/reactions", `{"kind":"Happy"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/reactions", `{"kind":"bored"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/reactions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Reactions []websocket.Reaction `json:"reactions"`
		Counts    map[string]int       `json:"counts"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Reactions, 1)
	assert.Equal(t, "happy", string(body.Reactions[0].Kind))
	assert.Equal(t, 1, body.Counts["happy"])
	assert.Equal(t, 0, body.Counts["sad"])
}

func TestReactions_RateLimited(t *testing.T) {
	ts := setupTestServer(t, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, ts.do(http.MethodPost, "/api/v1/reactions", `{"kind":"sad"}`).Code)
	}
	assert.Equal(t, []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}, codes)
}

func TestSchedulerRoutes(t *testing.T) {
	ts := setupTestServer(t, 0)

	rec := ts.do(http.MethodGet, "/api/v1/scheduler/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []scheduler.TaskInfo
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, tasks.AvailabilityProbeTaskID, list[0].ID)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/v1/scheduler/tasks/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/api/v1/scheduler/tasks/nope/run", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t, 0)

	rec := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marquee_relay_clients")
}

func TestPlaceholderImage(t *testing.T) {
	ts := setupTestServer(t, 0)

	rec := ts.do(http.MethodGet, "/placeholder.svg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "<svg")
}
