package repository

import (
	"context"
	"fmt"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jmoiron/sqlx"
)

const stationColumns = `station_id, name, latitude, longitude, elevation_m, capacity, num_platforms,
	station_type, has_signals, has_water_supply, has_fuel_supply, created_at, updated_at`

// StationRepository handles database operations for stations
type StationRepository struct {
	db sqlx.ExtContext
}

// NewStationRepository creates a new station repository
func NewStationRepository(db sqlx.ExtContext) *StationRepository {
	return &StationRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *StationRepository) WithTx(tx *sqlx.Tx) *StationRepository {
	return &StationRepository{db: tx}
}

// Create inserts a station and sets its ID
func (r *StationRepository) Create(ctx context.Context, s *models.Station) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, `INSERT INTO stations (
		name, latitude, longitude, elevation_m, capacity, num_platforms, station_type,
		has_signals, has_water_supply, has_fuel_supply, created_at, updated_at
	) VALUES (
		:name, :latitude, :longitude, :elevation_m, :capacity, :num_platforms, :station_type,
		:has_signals, :has_water_supply, :has_fuel_supply, :created_at, :updated_at
	)`, s)
	if err != nil {
		return fmt.Errorf("failed to insert station: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read station id: %w", err)
	}
	s.ID = id
	return nil
}

// GetByID retrieves a station. Returns (nil, nil) when it does not exist.
func (r *StationRepository) GetByID(ctx context.Context, id int64) (*models.Station, error) {
	s, err := getOne[models.Station](ctx, r.db,
		`SELECT `+stationColumns+` FROM stations WHERE station_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}
	return s, nil
}

// GetByName retrieves a station by its unique name
func (r *StationRepository) GetByName(ctx context.Context, name string) (*models.Station, error) {
	s, err := getOne[models.Station](ctx, r.db,
		`SELECT `+stationColumns+` FROM stations WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get station by name: %w", err)
	}
	return s, nil
}

// List retrieves stations with filtering and pagination
func (r *StationRepository) List(ctx context.Context, filter models.StationFilter) ([]models.Station, int64, error) {
	var conditions []string
	var args []any

	if filter.StationType != "" {
		conditions = append(conditions, "station_type = ?")
		args = append(args, filter.StationType)
	}
	if filter.Name != "" {
		conditions = append(conditions, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}
	where := whereClause(conditions)

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM stations"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count stations: %w", err)
	}

	filter.Normalize()
	query := "SELECT " + stationColumns + " FROM stations" + where + " ORDER BY station_id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, filter.Offset())

	var stations []models.Station
	if err := sqlx.SelectContext(ctx, r.db, &stations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query stations: %w", err)
	}
	return stations, total, nil
}

// ListAll retrieves every station ordered by id
func (r *StationRepository) ListAll(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	if err := sqlx.SelectContext(ctx, r.db, &stations,
		`SELECT `+stationColumns+` FROM stations ORDER BY station_id`); err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	return stations, nil
}

// Update writes every mutable column of s
func (r *StationRepository) Update(ctx context.Context, s *models.Station) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `UPDATE stations SET
		name = :name, latitude = :latitude, longitude = :longitude, elevation_m = :elevation_m,
		capacity = :capacity, num_platforms = :num_platforms, station_type = :station_type,
		has_signals = :has_signals, has_water_supply = :has_water_supply,
		has_fuel_supply = :has_fuel_supply, updated_at = :updated_at
	WHERE station_id = :station_id`, s)
	if err != nil {
		return fmt.Errorf("failed to update station: %w", err)
	}
	return nil
}

// Delete removes a station
func (r *StationRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM stations WHERE station_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}
	return nil
}

// CountReferences counts the tracks, route waypoints, trains and passengers
// that point at a station.
func (r *StationRepository) CountReferences(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, r.db, &count, `SELECT
		(SELECT COUNT(*) FROM tracks WHERE start_station_id = ?1 OR end_station_id = ?1) +
		(SELECT COUNT(*) FROM routes, json_each(routes.waypoints) AS wp
			WHERE json_extract(wp.value, '$.station_id') = ?1) +
		(SELECT COUNT(*) FROM trains WHERE current_station_id = ?1) +
		(SELECT COUNT(*) FROM passengers
			WHERE origin_station_id = ?1 OR destination_station_id = ?1 OR current_station_id = ?1)`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to count station references: %w", err)
	}
	return count, nil
}

// ExistingIDs returns which of ids exist
func (r *StationRepository) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	query, args, err := sqlx.In(`SELECT station_id FROM stations WHERE station_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build station lookup: %w", err)
	}
	var rows []int64
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to look up stations: %w", err)
	}
	for _, id := range rows {
		found[id] = true
	}
	return found, nil
}
