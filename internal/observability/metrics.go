package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StepObservation is what one simulation step reports to the collector.
type StepObservation struct {
	Duration      time.Duration
	Minutes       int
	SimulatedTime time.Time
	ActiveTrains  int
	Departed      int
	Arrived       int
	Completed     int
	Boarded       int
	Deboarded     int
	DataQuality   int
	Err           error
}

// SimulationCollector bundles Prometheus metrics for the simulation engine
// and its HTTP surface.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	Steps             *prometheus.CounterVec
	StepDurations     prometheus.Histogram
	SimulatedMinutes  prometheus.Counter
	TrainTransitions  *prometheus.CounterVec
	PassengerMoves    *prometheus.CounterVec
	DataQualityIssues prometheus.Counter
	ActiveTrains      prometheus.Gauge
	SimulatedClock    prometheus.Gauge

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewSimulationCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_steps_total",
		Help: "Total number of simulation steps, labeled by result.",
	}, []string{"result"}), "simulation_steps_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulation_step_duration_seconds",
		Help:    "Wall-clock duration of simulation steps in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}), "simulation_step_duration_seconds")
	if err != nil {
		return nil, err
	}
	minutes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulation_simulated_minutes_total",
		Help: "Simulated minutes advanced by committed steps.",
	}), "simulation_simulated_minutes_total")
	if err != nil {
		return nil, err
	}
	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_train_transitions_total",
		Help: "Train state transitions applied by committed steps, labeled by kind.",
	}, []string{"kind"}), "simulation_train_transitions_total")
	if err != nil {
		return nil, err
	}
	moves, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_passenger_moves_total",
		Help: "Passengers boarded or deboarded by committed steps.",
	}, []string{"direction"}), "simulation_passenger_moves_total")
	if err != nil {
		return nil, err
	}
	dataQuality, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulation_data_quality_issues_total",
		Help: "Train updates skipped because of malformed route data.",
	}), "simulation_data_quality_issues_total")
	if err != nil {
		return nil, err
	}
	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_active_trains",
		Help: "Trains evaluated by the last committed step.",
	}), "simulation_active_trains")
	if err != nil {
		return nil, err
	}
	clock, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_clock_unix_seconds",
		Help: "Current simulated time as a Unix timestamp.",
	}), "simulation_clock_unix_seconds")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by method, route, and status code.",
	}, []string{"method", "route", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}
	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:          gatherer,
		Steps:             steps,
		StepDurations:     durations,
		SimulatedMinutes:  minutes,
		TrainTransitions:  transitions,
		PassengerMoves:    moves,
		DataQualityIssues: dataQuality,
		ActiveTrains:      active,
		SimulatedClock:    clock,
		HTTPRequests:      requests,
		HTTPDurations:     httpDurations,
	}, nil
}

// ObserveStep records one step. Failed steps only count toward the error
// result and the duration histogram since nothing they did was committed.
func (c *SimulationCollector) ObserveStep(o StepObservation) {
	if c == nil {
		return
	}
	c.StepDurations.Observe(o.Duration.Seconds())
	if o.Err != nil {
		c.Steps.WithLabelValues("error").Inc()
		return
	}
	c.Steps.WithLabelValues("ok").Inc()
	c.SimulatedMinutes.Add(float64(o.Minutes))
	c.TrainTransitions.WithLabelValues("departed").Add(float64(o.Departed))
	c.TrainTransitions.WithLabelValues("arrived").Add(float64(o.Arrived))
	c.TrainTransitions.WithLabelValues("completed").Add(float64(o.Completed))
	c.PassengerMoves.WithLabelValues("boarded").Add(float64(o.Boarded))
	c.PassengerMoves.WithLabelValues("deboarded").Add(float64(o.Deboarded))
	c.DataQualityIssues.Add(float64(o.DataQuality))
	c.ActiveTrains.Set(float64(o.ActiveTrains))
	c.SetClock(o.SimulatedTime)
}

// SetClock publishes the simulated time, e.g. after init or reset.
func (c *SimulationCollector) SetClock(t time.Time) {
	if c == nil {
		return
	}
	c.SimulatedClock.Set(float64(t.Unix()))
}

// GinMiddleware records request counts and durations per matched route.
func (c *SimulationCollector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		if c == nil {
			return
		}
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.HTTPDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, histogram prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(histogram); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return histogram, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
