package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jmoiron/sqlx"
)

const passengerColumns = `passenger_id, origin_station_id, destination_station_id, current_station_id,
	boarded_train_id, status, boarding_time, arrival_time, created_at, updated_at`

// PassengerRepository is the passenger ledger
type PassengerRepository struct {
	db sqlx.ExtContext
}

// NewPassengerRepository creates a new passenger repository
func NewPassengerRepository(db sqlx.ExtContext) *PassengerRepository {
	return &PassengerRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *PassengerRepository) WithTx(tx *sqlx.Tx) *PassengerRepository {
	return &PassengerRepository{db: tx}
}

// Create inserts a passenger and sets its ID
func (r *PassengerRepository) Create(ctx context.Context, p *models.Passenger) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, `INSERT INTO passengers (
		origin_station_id, destination_station_id, current_station_id, boarded_train_id, status,
		boarding_time, arrival_time, created_at, updated_at
	) VALUES (
		:origin_station_id, :destination_station_id, :current_station_id, :boarded_train_id, :status,
		:boarding_time, :arrival_time, :created_at, :updated_at
	)`, p)
	if err != nil {
		return fmt.Errorf("failed to insert passenger: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read passenger id: %w", err)
	}
	p.ID = id
	return nil
}

// GetByID retrieves a passenger. Returns (nil, nil) when it does not exist.
func (r *PassengerRepository) GetByID(ctx context.Context, id int64) (*models.Passenger, error) {
	p, err := getOne[models.Passenger](ctx, r.db,
		`SELECT `+passengerColumns+` FROM passengers WHERE passenger_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get passenger: %w", err)
	}
	return p, nil
}

// List retrieves passengers with filtering and pagination
func (r *PassengerRepository) List(ctx context.Context, filter models.PassengerFilter) ([]models.Passenger, int64, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.StationID > 0 {
		conditions = append(conditions, "current_station_id = ?")
		args = append(args, filter.StationID)
	}
	if filter.TrainID > 0 {
		conditions = append(conditions, "boarded_train_id = ?")
		args = append(args, filter.TrainID)
	}
	where := whereClause(conditions)

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM passengers"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count passengers: %w", err)
	}

	filter.Normalize()
	query := "SELECT " + passengerColumns + " FROM passengers" + where + " ORDER BY passenger_id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, filter.Offset())

	var passengers []models.Passenger
	if err := sqlx.SelectContext(ctx, r.db, &passengers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query passengers: %w", err)
	}
	return passengers, total, nil
}

// ListWaitingAt retrieves waiting passengers at a station in id order
func (r *PassengerRepository) ListWaitingAt(ctx context.Context, stationID int64) ([]models.Passenger, error) {
	var passengers []models.Passenger
	err := sqlx.SelectContext(ctx, r.db, &passengers, `SELECT `+passengerColumns+` FROM passengers
		WHERE current_station_id = ? AND status = ? ORDER BY passenger_id`,
		stationID, models.PassengerStatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("failed to query waiting passengers: %w", err)
	}
	return passengers, nil
}

// CountWaitingAt counts waiting passengers at a station
func (r *PassengerRepository) CountWaitingAt(ctx context.Context, stationID int64) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.db, &count, `SELECT COUNT(*) FROM passengers
		WHERE current_station_id = ? AND status = ?`, stationID, models.PassengerStatusWaiting)
	if err != nil {
		return 0, fmt.Errorf("failed to count waiting passengers: %w", err)
	}
	return count, nil
}

// CountBoarded counts passengers aboard a train
func (r *PassengerRepository) CountBoarded(ctx context.Context, trainID int64) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.db, &count, `SELECT COUNT(*) FROM passengers
		WHERE boarded_train_id = ? AND status = ?`, trainID, models.PassengerStatusBoarded)
	if err != nil {
		return 0, fmt.Errorf("failed to count boarded passengers: %w", err)
	}
	return count, nil
}

// Deboard marks every passenger aboard trainID whose destination is stationID
// as arrived there. Returns the number of passengers that left the train.
func (r *PassengerRepository) Deboard(ctx context.Context, trainID, stationID int64, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE passengers SET
		status = ?, boarded_train_id = NULL, current_station_id = ?, arrival_time = ?, updated_at = ?
	WHERE boarded_train_id = ? AND destination_station_id = ? AND status = ?`,
		models.PassengerStatusArrived, stationID, now, now,
		trainID, stationID, models.PassengerStatusBoarded)
	if err != nil {
		return 0, fmt.Errorf("failed to deboard passengers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deboarded passengers: %w", err)
	}
	return int(n), nil
}

// Board moves up to limit waiting passengers at stationID onto trainID, lowest
// id first. Returns the number that boarded.
func (r *PassengerRepository) Board(ctx context.Context, trainID, stationID int64, limit int, now time.Time) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `UPDATE passengers SET
		status = ?, boarded_train_id = ?, boarding_time = ?, updated_at = ?
	WHERE passenger_id IN (
		SELECT passenger_id FROM passengers
		WHERE current_station_id = ? AND status = ?
		ORDER BY passenger_id LIMIT ?
	)`,
		models.PassengerStatusBoarded, trainID, now, now,
		stationID, models.PassengerStatusWaiting, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to board passengers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count boarded passengers: %w", err)
	}
	return int(n), nil
}

// ExitTrain removes every passenger from a train, leaving them exited at
// stationID or at their origin when stationID is nil.
func (r *PassengerRepository) ExitTrain(ctx context.Context, trainID int64, stationID *int64, now time.Time) (int, error) {
	var at any
	if stationID != nil {
		at = *stationID
	}
	res, err := r.db.ExecContext(ctx, `UPDATE passengers SET
		status = ?, boarded_train_id = NULL,
		current_station_id = COALESCE(?, origin_station_id), arrival_time = ?, updated_at = ?
	WHERE boarded_train_id = ? AND status = ?`,
		models.PassengerStatusExited, at, now, now, trainID, models.PassengerStatusBoarded)
	if err != nil {
		return 0, fmt.Errorf("failed to exit passengers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count exited passengers: %w", err)
	}
	return int(n), nil
}

// ResetAll returns every passenger to waiting at its origin
func (r *PassengerRepository) ResetAll(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE passengers SET
		status = ?, boarded_train_id = NULL, current_station_id = origin_station_id,
		boarding_time = NULL, arrival_time = NULL, updated_at = ?`,
		models.PassengerStatusWaiting, now)
	if err != nil {
		return 0, fmt.Errorf("failed to reset passengers: %w", err)
	}
	return res.RowsAffected()
}

// Update writes the trip fields of p
func (r *PassengerRepository) Update(ctx context.Context, p *models.Passenger) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `UPDATE passengers SET
		destination_station_id = :destination_station_id, current_station_id = :current_station_id,
		updated_at = :updated_at
	WHERE passenger_id = :passenger_id`, p)
	if err != nil {
		return fmt.Errorf("failed to update passenger: %w", err)
	}
	return nil
}

// Delete removes a passenger
func (r *PassengerRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM passengers WHERE passenger_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete passenger: %w", err)
	}
	return nil
}
