package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStepRecordsCommittedWork(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}

	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	collector.ObserveStep(StepObservation{
		Duration:      5 * time.Millisecond,
		Minutes:       60,
		SimulatedTime: clock,
		ActiveTrains:  3,
		Departed:      1,
		Arrived:       2,
		Completed:     1,
		Boarded:       4,
		Deboarded:     2,
		DataQuality:   1,
	})

	if got := testutil.ToFloat64(collector.Steps.WithLabelValues("ok")); got != 1 {
		t.Fatalf("simulation_steps_total{result=ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.SimulatedMinutes); got != 60 {
		t.Fatalf("simulated minutes = %v, want 60", got)
	}
	if got := testutil.ToFloat64(collector.TrainTransitions.WithLabelValues("arrived")); got != 2 {
		t.Fatalf("arrived transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.PassengerMoves.WithLabelValues("boarded")); got != 4 {
		t.Fatalf("boarded = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.DataQualityIssues); got != 1 {
		t.Fatalf("data quality issues = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.ActiveTrains); got != 3 {
		t.Fatalf("active trains = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.SimulatedClock); got != float64(clock.Unix()) {
		t.Fatalf("clock = %v, want %v", got, clock.Unix())
	}
}

func TestObserveStepErrorOnlyCountsFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}

	collector.ObserveStep(StepObservation{Minutes: 30, Departed: 5, Err: errors.New("boom")})

	if got := testutil.ToFloat64(collector.Steps.WithLabelValues("error")); got != 1 {
		t.Fatalf("simulation_steps_total{result=error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.SimulatedMinutes); got != 0 {
		t.Fatalf("simulated minutes = %v, want 0", got)
	}
	if got := testutil.ToFloat64(collector.TrainTransitions.WithLabelValues("departed")); got != 0 {
		t.Fatalf("departed = %v, want 0", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *SimulationCollector
	c.ObserveStep(StepObservation{Minutes: 1})
	c.SetClock(time.Now())
}

func TestRegisteringTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("first NewSimulationCollector: %v", err)
	}
	second, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("second NewSimulationCollector: %v", err)
	}
	second.SimulatedMinutes.Add(7)
	if got := testutil.ToFloat64(first.SimulatedMinutes); got != 7 {
		t.Fatalf("shared counter = %v, want 7", got)
	}
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}

	r := gin.New()
	r.Use(collector.GinMiddleware())
	r.GET("/trains/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	r.GET("/metrics", gin.WrapH(collector.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trains/7", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTeapot)
	}

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET", "/trains/:id", "418")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "http_requests_total") {
		t.Fatalf("metrics output missing http_requests_total:\n%s", body)
	}
}
