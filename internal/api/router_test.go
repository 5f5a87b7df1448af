package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/config"
	"github.com/jengzang/railsim-backend-go/internal/database"
	"github.com/jengzang/railsim-backend-go/internal/logging"
	"github.com/jengzang/railsim-backend-go/internal/middleware"
	"github.com/jengzang/railsim-backend-go/internal/observability"
	"github.com/jengzang/railsim-backend-go/internal/simulation"
	"github.com/prometheus/client_golang/prometheus"
)

const testAPIKey = "test-key"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newClient(t *testing.T, limit int) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "api.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(ctx, db, logging.Noop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	metrics, err := observability.NewSimulationCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	cfg := &config.Config{APIKey: testAPIKey, JWTSecret: "test-secret", AuthEnabled: true}
	router := SetupRouter(Dependencies{
		Config:      cfg,
		DB:          db,
		Engine:      simulation.NewEngine(db, simulation.WithMetrics(metrics)),
		Metrics:     metrics,
		Logger:      logging.Noop(),
		RateLimiter: middleware.NewRateLimiter(ctx, limit, time.Minute),
	})
	return &client{t: t, router: router}
}

func (c *client) do(method, path string, body any) (int, envelope) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		req.Header.Set(middleware.APIKeyHeader, testAPIKey)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			c.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, env
}

func (c *client) mustCreate(path string, body any) int64 {
	c.t.Helper()
	code, env := c.do(http.MethodPost, path, body)
	if code != http.StatusCreated {
		c.t.Fatalf("POST %s = %d %+v", path, code, env)
	}
	var created map[string]any
	if err := json.Unmarshal(env.Data, &created); err != nil {
		c.t.Fatalf("decode created: %v", err)
	}
	for _, key := range []string{"station_id", "track_id", "route_id", "train_id", "passenger_id"} {
		if v, ok := created[key]; ok {
			return int64(v.(float64))
		}
	}
	c.t.Fatalf("no id in %s", env.Data)
	return 0
}

const base = "/api/v1/simulation/train"

func TestHealthAndMetricsArePublic(t *testing.T) {
	c := newClient(t, 0)
	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		c.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", path, w.Code)
		}
	}
}

func TestAPIRequiresCredentials(t *testing.T) {
	c := newClient(t, 0)
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, base+"/station", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestTokenExchange(t *testing.T) {
	c := newClient(t, 0)
	code, env := c.do(http.MethodPost, "/api/v1/auth/token", map[string]string{"subject": "ops"})
	if code != http.StatusOK {
		t.Fatalf("token = %d %+v", code, env)
	}
	var tok struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &tok); err != nil || tok.Token == "" {
		t.Fatalf("token body %s: %v", env.Data, err)
	}

	c.token = tok.Token
	if code, env := c.do(http.MethodGet, base+"/station", nil); code != http.StatusOK {
		t.Fatalf("list with bearer = %d %+v", code, env)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{"api_key":"nope"}`))
	c.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad key exchange = %d, want 401", w.Code)
	}
}

func TestRateLimitOnAPIGroup(t *testing.T) {
	c := newClient(t, 2)
	var codes []int
	for i := 0; i < 3; i++ {
		code, _ := c.do(http.MethodGet, base+"/station", nil)
		codes = append(codes, code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want third request limited", codes)
	}
}

func TestSimulationNotInitialized(t *testing.T) {
	c := newClient(t, 0)
	if code, _ := c.do(http.MethodGet, base+"/game/status", nil); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if code, _ := c.do(http.MethodPost, base+"/game/step?minutes=5", nil); code != http.StatusConflict {
		t.Fatalf("step = %d, want 409", code)
	}
	if code, _ := c.do(http.MethodPost, base+"/game/start", nil); code != http.StatusConflict {
		t.Fatalf("start = %d, want 409", code)
	}
}

func TestValidationErrorsAreBadRequests(t *testing.T) {
	c := newClient(t, 0)
	code, env := c.do(http.MethodPost, base+"/station", map[string]any{
		"name": "Nowhere", "latitude": 123.0, "station_type": "passenger",
	})
	if code != http.StatusBadRequest || env.Error == "" {
		t.Fatalf("bad latitude = %d %+v", code, env)
	}
	if code, _ := c.do(http.MethodGet, base+"/station/abc", nil); code != http.StatusBadRequest {
		t.Fatalf("bad id = %d, want 400", code)
	}
	if code, _ := c.do(http.MethodGet, base+"/station/99", nil); code != http.StatusNotFound {
		t.Fatalf("missing station = %d, want 404", code)
	}
	c.do(http.MethodPost, base+"/game/init", nil)
	if code, _ := c.do(http.MethodPost, base+"/game/step?minutes=-5", nil); code != http.StatusBadRequest {
		t.Fatalf("negative step = %d, want 400", code)
	}
	if code, _ := c.do(http.MethodPost, base+"/game/step?minutes=999999999999", nil); code != http.StatusBadRequest {
		t.Fatalf("oversized step = %d, want 400", code)
	}
}

func TestEndToEndJourney(t *testing.T) {
	c := newClient(t, 0)

	s1 := c.mustCreate(base+"/station", map[string]any{
		"name": "Alpha", "latitude": 48.14, "longitude": 11.56, "capacity": 10, "num_platforms": 4, "station_type": "passenger",
	})
	s2 := c.mustCreate(base+"/station", map[string]any{
		"name": "Beta", "latitude": 48.37, "longitude": 10.90, "capacity": 5, "num_platforms": 2, "station_type": "passenger",
	})
	c.mustCreate(base+"/infra", map[string]any{
		"name": "Alpha-Beta", "start_station_id": s1, "end_station_id": s2, "gauge": "1435mm",
		"max_speed_kmh": 200, "track_condition": "good", "track_type": "main", "single_or_double_track": "double",
		"bidirectional": true,
	})
	route := c.mustCreate(base+"/route", map[string]any{
		"name": "Alpha-Beta Express", "frequency": "daily",
		"waypoints": []map[string]any{
			{"station_id": s1, "order": 0, "planned_arrival_time": "2024-01-01T08:00:00Z"},
			{"station_id": s2, "order": 1, "planned_arrival_time": "2024-01-01T09:00:00Z"},
		},
	})
	train := c.mustCreate(base+"/train", map[string]any{
		"name": "ICE 1", "route_id": route, "train_type": "passenger", "gauge": "1435mm",
		"total_weight_kg": 400000, "max_speed_kmh": 250, "passenger_capacity": 2,
		"scheduled_departure": "2024-01-01T08:00:00Z",
	})
	for i := 0; i < 3; i++ {
		c.mustCreate(base+"/passenger", map[string]any{"origin_station_id": s1, "destination_station_id": s2})
	}

	// Simulation-owned fields are not writable.
	if code, env := c.do(http.MethodPatch, fmt.Sprintf("%s/train/%d", base, train), map[string]any{"status": "running"}); code != http.StatusBadRequest {
		t.Fatalf("patch status = %d %+v, want 400", code, env)
	}

	if code, env := c.do(http.MethodPost, base+"/game/init", map[string]any{"start_time": "2024-01-01T08:00:00Z", "time_scale": 30}); code != http.StatusOK {
		t.Fatalf("init = %d %+v", code, env)
	}
	code, env := c.do(http.MethodPost, base+"/game/step?minutes=60", nil)
	if code != http.StatusOK {
		t.Fatalf("step = %d %+v", code, env)
	}
	var step struct {
		State struct {
			Current time.Time `json:"current_simulated_datetime"`
		} `json:"state"`
		Report simulation.StepReport `json:"report"`
	}
	if err := json.Unmarshal(env.Data, &step); err != nil {
		t.Fatalf("decode step: %v", err)
	}
	if !step.State.Current.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("clock = %v", step.State.Current)
	}
	if step.Report.Count("completed") != 1 {
		t.Fatalf("report = %+v, want one completion", step.Report)
	}

	code, env = c.do(http.MethodGet, fmt.Sprintf("%s/game/trains-status/%d", base, train), nil)
	if code != http.StatusOK {
		t.Fatalf("train status = %d %+v", code, env)
	}
	var view struct {
		Status      string  `json:"status"`
		StationName *string `json:"current_station_name"`
		RouteName   string  `json:"route_name"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Status != "completed" || view.StationName == nil || *view.StationName != "Beta" || view.RouteName != "Alpha-Beta Express" {
		t.Fatalf("view = %+v", view)
	}

	code, env = c.do(http.MethodGet, fmt.Sprintf("%s/game/stations-status/%d?include_passengers=true", base, s1), nil)
	if code != http.StatusOK {
		t.Fatalf("station status = %d %+v", code, env)
	}
	var station struct {
		Waiting    int               `json:"waiting_passenger_count"`
		Passengers []json.RawMessage `json:"waiting_passengers"`
	}
	if err := json.Unmarshal(env.Data, &station); err != nil {
		t.Fatalf("decode station: %v", err)
	}
	if station.Waiting != 1 || len(station.Passengers) != 1 {
		t.Fatalf("station = %+v, want the one passenger that did not fit", station)
	}

	if code, env := c.do(http.MethodGet, fmt.Sprintf("%s/station/%d/passengers", base, s1), nil); code != http.StatusOK {
		t.Fatalf("waiting list = %d %+v", code, env)
	}
	if code, env := c.do(http.MethodGet, base+"/game/events?limit=2", nil); code != http.StatusOK {
		t.Fatalf("events = %d %+v", code, env)
	}
	if code, env := c.do(http.MethodGet, base+"/game/delays", nil); code != http.StatusOK {
		t.Fatalf("delays = %d %+v", code, env)
	}

	// Completed trains cannot be cancelled; stations in use cannot be deleted.
	if code, _ := c.do(http.MethodPost, fmt.Sprintf("%s/train/%d/cancel", base, train), nil); code != http.StatusBadRequest {
		t.Fatalf("cancel completed = %d, want 400", code)
	}
	if code, _ := c.do(http.MethodDelete, fmt.Sprintf("%s/station/%d", base, s1), nil); code != http.StatusBadRequest {
		t.Fatalf("delete referenced station = %d, want 400", code)
	}

	if code, env := c.do(http.MethodPost, base+"/game/reset", nil); code != http.StatusOK {
		t.Fatalf("reset = %d %+v", code, env)
	}
	code, env = c.do(http.MethodGet, fmt.Sprintf("%s/train/%d", base, train), nil)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"status":"scheduled"`) {
		t.Fatalf("train after reset = %d %s", code, env.Data)
	}
}

func TestGeneratePassengers(t *testing.T) {
	c := newClient(t, 0)
	for _, name := range []string{"A", "B", "C"} {
		c.mustCreate(base+"/station", map[string]any{
			"name": name, "latitude": 1.0, "longitude": 1.0, "capacity": 1, "num_platforms": 1, "station_type": "passenger",
		})
	}
	code, env := c.do(http.MethodPost, base+"/game/passengers/generate", map[string]any{"passengers_per_station": 4, "seed": 7})
	if code != http.StatusCreated {
		t.Fatalf("generate = %d %+v", code, env)
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil || out.Count != 12 {
		t.Fatalf("generated %s: %v", env.Data, err)
	}
	if code, _ := c.do(http.MethodPost, base+"/game/passengers/generate", map[string]any{"passengers_per_station": 0}); code != http.StatusBadRequest {
		t.Fatalf("zero per station = %d, want 400", code)
	}
}
