package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jmoiron/sqlx"
)

const simulationColumns = `simulation_id, current_simulated_datetime, initial_simulated_datetime,
	time_scale, is_running, started_at, last_updated`

// SimulationRepository persists the simulation singleton and its event log
type SimulationRepository struct {
	db sqlx.ExtContext
}

// NewSimulationRepository creates a new simulation repository
func NewSimulationRepository(db sqlx.ExtContext) *SimulationRepository {
	return &SimulationRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *SimulationRepository) WithTx(tx *sqlx.Tx) *SimulationRepository {
	return &SimulationRepository{db: tx}
}

// Get retrieves the singleton. Returns (nil, nil) when the simulation was
// never initialized.
func (r *SimulationRepository) Get(ctx context.Context) (*models.SimulationState, error) {
	s, err := getOne[models.SimulationState](ctx, r.db,
		`SELECT `+simulationColumns+` FROM simulation_state ORDER BY simulation_id LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to get simulation state: %w", err)
	}
	return s, nil
}

// Replace deletes any existing singleton and inserts s
func (r *SimulationRepository) Replace(ctx context.Context, s *models.SimulationState) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM simulation_state`); err != nil {
		return fmt.Errorf("failed to clear simulation state: %w", err)
	}
	res, err := sqlx.NamedExecContext(ctx, r.db, `INSERT INTO simulation_state (
		current_simulated_datetime, initial_simulated_datetime, time_scale, is_running,
		started_at, last_updated
	) VALUES (
		:current_simulated_datetime, :initial_simulated_datetime, :time_scale, :is_running,
		:started_at, :last_updated
	)`, s)
	if err != nil {
		return fmt.Errorf("failed to insert simulation state: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read simulation id: %w", err)
	}
	s.ID = id
	return nil
}

// Save writes the clock and running flag of s
func (r *SimulationRepository) Save(ctx context.Context, s *models.SimulationState) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `UPDATE simulation_state SET
		current_simulated_datetime = :current_simulated_datetime, time_scale = :time_scale,
		is_running = :is_running, last_updated = :last_updated
	WHERE simulation_id = :simulation_id`, s)
	if err != nil {
		return fmt.Errorf("failed to save simulation state: %w", err)
	}
	return nil
}

// AppendEvent adds an entry to the event log
func (r *SimulationRepository) AppendEvent(ctx context.Context, e *models.SimulationEvent) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, `INSERT INTO simulation_events (
		simulated_at, recorded_at, kind, train_id, station_id, detail
	) VALUES (
		:simulated_at, :recorded_at, :kind, :train_id, :station_id, :detail
	)`, e)
	if err != nil {
		return fmt.Errorf("failed to append simulation event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// LatestEvents retrieves up to limit events, newest first
func (r *SimulationRepository) LatestEvents(ctx context.Context, limit int) ([]models.SimulationEvent, error) {
	var events []models.SimulationEvent
	err := sqlx.SelectContext(ctx, r.db, &events, `SELECT event_id, simulated_at, recorded_at, kind,
		train_id, station_id, detail FROM simulation_events ORDER BY event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query simulation events: %w", err)
	}
	return events, nil
}

// ClearEvents truncates the event log
func (r *SimulationRepository) ClearEvents(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM simulation_events`); err != nil {
		return fmt.Errorf("failed to clear simulation events: %w", err)
	}
	return nil
}

// Touch refreshes last_updated and reports whether a singleton exists. As a
// write it also takes the database write lock for the surrounding transaction.
func (r *SimulationRepository) Touch(ctx context.Context, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE simulation_state SET last_updated = ?`, now)
	if err != nil {
		return false, fmt.Errorf("failed to touch simulation state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to touch simulation state: %w", err)
	}
	return n > 0, nil
}
