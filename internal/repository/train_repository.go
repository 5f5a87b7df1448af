package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jmoiron/sqlx"
)

const trainColumns = `train_id, name, route_id, current_station_id, current_track_id, train_type,
	total_weight_kg, max_speed_kmh, gauge, passenger_capacity, cargo_capacity_kg,
	current_passenger_count, current_cargo_kg, scheduled_departure, scheduled_arrival,
	actual_departure, actual_arrival, delay_minutes, status, current_location_status,
	current_waypoint_index, created_at, updated_at`

// TrainRepository handles database operations for trains
type TrainRepository struct {
	db sqlx.ExtContext
}

// NewTrainRepository creates a new train repository
func NewTrainRepository(db sqlx.ExtContext) *TrainRepository {
	return &TrainRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *TrainRepository) WithTx(tx *sqlx.Tx) *TrainRepository {
	return &TrainRepository{db: tx}
}

// Create inserts a train and sets its ID
func (r *TrainRepository) Create(ctx context.Context, t *models.Train) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, `INSERT INTO trains (
		name, route_id, current_station_id, current_track_id, train_type, total_weight_kg,
		max_speed_kmh, gauge, passenger_capacity, cargo_capacity_kg, current_passenger_count,
		current_cargo_kg, scheduled_departure, scheduled_arrival, actual_departure, actual_arrival,
		delay_minutes, status, current_location_status, current_waypoint_index, created_at, updated_at
	) VALUES (
		:name, :route_id, :current_station_id, :current_track_id, :train_type, :total_weight_kg,
		:max_speed_kmh, :gauge, :passenger_capacity, :cargo_capacity_kg, :current_passenger_count,
		:current_cargo_kg, :scheduled_departure, :scheduled_arrival, :actual_departure, :actual_arrival,
		:delay_minutes, :status, :current_location_status, :current_waypoint_index, :created_at, :updated_at
	)`, t)
	if err != nil {
		return fmt.Errorf("failed to insert train: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read train id: %w", err)
	}
	t.ID = id
	return nil
}

// GetByID retrieves a train. Returns (nil, nil) when it does not exist.
func (r *TrainRepository) GetByID(ctx context.Context, id int64) (*models.Train, error) {
	t, err := getOne[models.Train](ctx, r.db,
		`SELECT `+trainColumns+` FROM trains WHERE train_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get train: %w", err)
	}
	return t, nil
}

// GetByName retrieves a train by its unique name
func (r *TrainRepository) GetByName(ctx context.Context, name string) (*models.Train, error) {
	t, err := getOne[models.Train](ctx, r.db,
		`SELECT `+trainColumns+` FROM trains WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get train by name: %w", err)
	}
	return t, nil
}

// List retrieves trains with filtering and pagination
func (r *TrainRepository) List(ctx context.Context, filter models.TrainFilter) ([]models.Train, int64, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.RouteID > 0 {
		conditions = append(conditions, "route_id = ?")
		args = append(args, filter.RouteID)
	}
	if filter.StationID > 0 {
		conditions = append(conditions, "current_station_id = ?")
		args = append(args, filter.StationID)
	}
	where := whereClause(conditions)

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM trains"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count trains: %w", err)
	}

	filter.Normalize()
	query := "SELECT " + trainColumns + " FROM trains" + where + " ORDER BY train_id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, filter.Offset())

	var trains []models.Train
	if err := sqlx.SelectContext(ctx, r.db, &trains, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query trains: %w", err)
	}
	return trains, total, nil
}

// ListAll retrieves every train ordered by id
func (r *TrainRepository) ListAll(ctx context.Context) ([]models.Train, error) {
	var trains []models.Train
	if err := sqlx.SelectContext(ctx, r.db, &trains,
		`SELECT `+trainColumns+` FROM trains ORDER BY train_id`); err != nil {
		return nil, fmt.Errorf("failed to query trains: %w", err)
	}
	return trains, nil
}

// ListByStatus retrieves trains whose status is one of statuses, ordered by id
func (r *TrainRepository) ListByStatus(ctx context.Context, statuses ...string) ([]models.Train, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+trainColumns+` FROM trains WHERE status IN (?) ORDER BY train_id`, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to build train query: %w", err)
	}
	var trains []models.Train
	if err := sqlx.SelectContext(ctx, r.db, &trains, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query trains by status: %w", err)
	}
	return trains, nil
}

// CountByRoute counts the trains assigned to a route
func (r *TrainRepository) CountByRoute(ctx context.Context, routeID int64) (int64, error) {
	var count int64
	if err := sqlx.GetContext(ctx, r.db, &count, `SELECT COUNT(*) FROM trains WHERE route_id = ?`, routeID); err != nil {
		return 0, fmt.Errorf("failed to count trains on route: %w", err)
	}
	return count, nil
}

// Update writes every column of t except its identity and creation time
func (r *TrainRepository) Update(ctx context.Context, t *models.Train) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `UPDATE trains SET
		name = :name, route_id = :route_id, current_station_id = :current_station_id,
		current_track_id = :current_track_id, train_type = :train_type,
		total_weight_kg = :total_weight_kg, max_speed_kmh = :max_speed_kmh, gauge = :gauge,
		passenger_capacity = :passenger_capacity, cargo_capacity_kg = :cargo_capacity_kg,
		current_passenger_count = :current_passenger_count, current_cargo_kg = :current_cargo_kg,
		scheduled_departure = :scheduled_departure, scheduled_arrival = :scheduled_arrival,
		actual_departure = :actual_departure, actual_arrival = :actual_arrival,
		delay_minutes = :delay_minutes, status = :status,
		current_location_status = :current_location_status,
		current_waypoint_index = :current_waypoint_index, updated_at = :updated_at
	WHERE train_id = :train_id`, t)
	if err != nil {
		return fmt.Errorf("failed to update train %d: %w", t.ID, err)
	}
	return nil
}

// Delete removes a train
func (r *TrainRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM trains WHERE train_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete train: %w", err)
	}
	return nil
}

// ResetAll returns every train to scheduled with no position, load or actuals
func (r *TrainRepository) ResetAll(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE trains SET
		status = ?, current_location_status = ?, current_station_id = NULL, current_track_id = NULL,
		current_waypoint_index = 0, current_passenger_count = 0, current_cargo_kg = 0, actual_departure = NULL,
		actual_arrival = NULL, delay_minutes = 0, updated_at = ?`,
		models.TrainStatusScheduled, models.LocationAtStation, now)
	if err != nil {
		return 0, fmt.Errorf("failed to reset trains: %w", err)
	}
	return res.RowsAffected()
}

// MarkCancelled cancels a train that has not finished, emptying it. Reports
// false when the train does not exist or is already completed or cancelled.
func (r *TrainRepository) MarkCancelled(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE trains SET
		status = ?, current_passenger_count = 0, updated_at = ?
	WHERE train_id = ? AND status NOT IN (?, ?)`,
		models.TrainStatusCancelled, now, id, models.TrainStatusCompleted, models.TrainStatusCancelled)
	if err != nil {
		return false, fmt.Errorf("failed to cancel train %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to cancel train %d: %w", id, err)
	}
	return n > 0, nil
}
