// Package simulation advances the train network through simulated time.
//
// An Engine owns one database. Writes (init, start, pause, reset, step) are
// serialized by the engine and each runs in a single transaction, so readers
// see either the state before a step or the state after it.
package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/database"
	"github.com/jengzang/railsim-backend-go/internal/logging"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/observability"
	"github.com/jengzang/railsim-backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxStepMinutes bounds a single step to ten years of simulated time.
const MaxStepMinutes = 10 * 365 * 24 * 60

// Engine is the simulation context for one database.
type Engine struct {
	mu      sync.Mutex
	db      *sqlx.DB
	log     logging.Logger
	metrics *observability.SimulationCollector
	tracer  trace.Tracer
	clock   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics sets the Prometheus collector fed after every step.
func WithMetrics(c *observability.SimulationCollector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithClock sets the wall clock used for last_updated and row timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine creates an engine over db. The schema must already be migrated.
func NewEngine(db *sqlx.DB, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		log:    logging.Noop(),
		tracer: observability.Tracer(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

// Init creates a fresh simulation singleton starting at start, discarding
// any previous one and its event log. A zero start means now; a non-positive
// timeScale means models.DefaultTimeScale.
func (e *Engine) Init(ctx context.Context, start time.Time, timeScale int) (*models.SimulationState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wall := e.now()
	if start.IsZero() {
		start = wall
	}
	if timeScale <= 0 {
		timeScale = models.DefaultTimeScale
	}
	state := &models.SimulationState{
		CurrentSimulatedDatetime: start.UTC(),
		InitialSimulatedDatetime: start.UTC(),
		TimeScale:                timeScale,
		StartedAt:                wall,
		LastUpdated:              wall,
	}

	err := database.Transaction(ctx, e.db, func(tx *sqlx.Tx) error {
		sims := repository.NewSimulationRepository(tx)
		if err := sims.Replace(ctx, state); err != nil {
			return &models.StorageFailure{Op: "init simulation", Err: err}
		}
		if err := sims.ClearEvents(ctx); err != nil {
			return &models.StorageFailure{Op: "init simulation", Err: err}
		}
		return nil
	})
	if err != nil {
		e.log.Error(ctx, "simulation init failed", logging.Err(err))
		return nil, err
	}

	e.metrics.SetClock(state.CurrentSimulatedDatetime)
	e.log.Info(ctx, "simulation initialized",
		logging.Int64("simulation_id", state.ID),
		logging.Time("start", state.CurrentSimulatedDatetime),
		logging.Int("time_scale", state.TimeScale),
	)
	return state, nil
}

// Start marks the simulation as running.
func (e *Engine) Start(ctx context.Context) (*models.SimulationState, error) {
	return e.setRunning(ctx, true)
}

// Pause marks the simulation as paused. Stepping stays possible.
func (e *Engine) Pause(ctx context.Context) (*models.SimulationState, error) {
	return e.setRunning(ctx, false)
}

func (e *Engine) setRunning(ctx context.Context, running bool) (*models.SimulationState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var state *models.SimulationState
	err := database.Transaction(ctx, e.db, func(tx *sqlx.Tx) error {
		var err error
		state, err = e.lockState(ctx, tx)
		if err != nil {
			return err
		}
		state.IsRunning = running
		if err := repository.NewSimulationRepository(tx).Save(ctx, state); err != nil {
			return &models.StorageFailure{Op: "toggle simulation", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info(ctx, "simulation running flag changed", logging.Bool("is_running", running))
	return state, nil
}

// Reset returns every train to scheduled, every passenger to waiting at its
// origin and the clock to the initial simulated time. The simulation is left
// paused and the event log is cleared.
func (e *Engine) Reset(ctx context.Context) (*models.SimulationState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var state *models.SimulationState
	var trains, passengers int64
	err := database.Transaction(ctx, e.db, func(tx *sqlx.Tx) error {
		var err error
		state, err = e.lockState(ctx, tx)
		if err != nil {
			return err
		}
		wall := state.LastUpdated

		if trains, err = repository.NewTrainRepository(tx).ResetAll(ctx, wall); err != nil {
			return &models.StorageFailure{Op: "reset trains", Err: err}
		}
		if passengers, err = repository.NewPassengerRepository(tx).ResetAll(ctx, wall); err != nil {
			return &models.StorageFailure{Op: "reset passengers", Err: err}
		}

		sims := repository.NewSimulationRepository(tx)
		state.CurrentSimulatedDatetime = state.InitialSimulatedDatetime
		state.IsRunning = false
		if err := sims.Save(ctx, state); err != nil {
			return &models.StorageFailure{Op: "reset simulation", Err: err}
		}
		if err := sims.ClearEvents(ctx); err != nil {
			return &models.StorageFailure{Op: "reset simulation", Err: err}
		}
		return nil
	})
	if err != nil {
		e.log.Error(ctx, "simulation reset failed", logging.Err(err))
		return nil, err
	}

	e.metrics.SetClock(state.CurrentSimulatedDatetime)
	e.log.Info(ctx, "simulation reset",
		logging.Int64("trains", trains),
		logging.Int64("passengers", passengers),
		logging.Time("clock", state.CurrentSimulatedDatetime),
	)
	return state, nil
}

// Step advances the clock by minutes and updates every active train in id
// order. The step commits as a whole or not at all; malformed route data only
// skips the affected train and is listed in the report.
func (e *Engine) Step(ctx context.Context, minutes int) (*models.SimulationState, *StepReport, error) {
	if minutes < 0 {
		return nil, nil, models.NewValidationError("minutes", "must not be negative, got %d", minutes)
	}
	if minutes > MaxStepMinutes {
		return nil, nil, models.NewValidationError("minutes", "must not exceed %d, got %d", MaxStepMinutes, minutes)
	}

	ctx, span := e.tracer.Start(ctx, "simulation.Step", trace.WithAttributes(attribute.Int("simulation.minutes", minutes)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	began := time.Now()
	report := newStepReport(minutes)
	var state *models.SimulationState

	// Cancelling ctx does not interrupt a step once the lock is held.
	stepCtx := context.WithoutCancel(ctx)
	err := database.Transaction(stepCtx, e.db, func(tx *sqlx.Tx) error {
		var err error
		state, err = e.lockState(stepCtx, tx)
		if err != nil {
			return err
		}

		report.SimulatedFrom = state.CurrentSimulatedDatetime
		state.CurrentSimulatedDatetime = state.CurrentSimulatedDatetime.Add(time.Duration(minutes) * time.Minute)
		report.SimulatedTo = state.CurrentSimulatedDatetime
		if err := repository.NewSimulationRepository(tx).Save(stepCtx, state); err != nil {
			return &models.StorageFailure{Op: "advance clock", Err: err}
		}

		trains, err := repository.NewTrainRepository(tx).ListByStatus(stepCtx, models.ActiveTrainStatuses...)
		if err != nil {
			return &models.StorageFailure{Op: "load trains", Err: err}
		}
		report.TrainsEvaluated = len(trains)

		run := newStepRun(stepCtx, tx, state.CurrentSimulatedDatetime, state.LastUpdated, report, e.log)
		for i := range trains {
			if err := run.advance(&trains[i]); err != nil {
				return err
			}
		}
		return nil
	})

	boarded, deboarded := report.PassengerMoves()
	obs := observability.StepObservation{
		Duration:     time.Since(began),
		Minutes:      minutes,
		ActiveTrains: report.TrainsEvaluated,
		Departed:     report.Count(models.EventDeparted),
		Arrived:      report.Count(models.EventArrived),
		Completed:    report.Count(models.EventCompleted),
		Boarded:      boarded,
		Deboarded:    deboarded,
		DataQuality:  len(report.Issues),
		Err:          err,
	}
	if state != nil {
		obs.SimulatedTime = state.CurrentSimulatedDatetime
	}
	e.metrics.ObserveStep(obs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, models.ErrNotInitialized) {
			e.log.Warn(ctx, "step rejected", logging.Err(err))
		} else {
			e.log.Error(ctx, "step failed, rolled back", logging.Int("minutes", minutes), logging.Err(err))
		}
		return nil, nil, err
	}

	span.SetAttributes(
		attribute.Int("simulation.trains", report.TrainsEvaluated),
		attribute.Int("simulation.transitions", len(report.Transitions)),
		attribute.Int("simulation.issues", len(report.Issues)),
	)
	e.log.Info(ctx, "simulation advanced",
		logging.Int("minutes", minutes),
		logging.Time("clock", state.CurrentSimulatedDatetime),
		logging.Int("trains", report.TrainsEvaluated),
		logging.Int("transitions", len(report.Transitions)),
		logging.Int("boarded", boarded),
		logging.Int("deboarded", deboarded),
		logging.Int("issues", len(report.Issues)),
	)
	return state, report, nil
}

// lockState refreshes last_updated, which also takes the write lock, and
// loads the singleton. Fails with ErrNotInitialized when there is none.
func (e *Engine) lockState(ctx context.Context, tx *sqlx.Tx) (*models.SimulationState, error) {
	sims := repository.NewSimulationRepository(tx)
	wall := e.now()
	ok, err := sims.Touch(ctx, wall)
	if err != nil {
		return nil, &models.StorageFailure{Op: "lock simulation state", Err: err}
	}
	if !ok {
		return nil, models.ErrNotInitialized
	}
	state, err := sims.Get(ctx)
	if err != nil {
		return nil, &models.StorageFailure{Op: "load simulation state", Err: err}
	}
	if state == nil {
		return nil, models.ErrNotInitialized
	}
	normalizeState(state)
	state.LastUpdated = wall
	return state, nil
}

func normalizeState(s *models.SimulationState) {
	s.CurrentSimulatedDatetime = s.CurrentSimulatedDatetime.UTC()
	s.InitialSimulatedDatetime = s.InitialSimulatedDatetime.UTC()
	s.StartedAt = s.StartedAt.UTC()
	s.LastUpdated = s.LastUpdated.UTC()
}
