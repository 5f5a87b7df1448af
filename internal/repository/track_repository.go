package repository

import (
	"context"
	"fmt"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jmoiron/sqlx"
)

const trackColumns = `track_id, name, start_station_id, end_station_id, length_km, gauge, max_speed_kmh,
	track_condition, track_type, single_or_double_track, bidirectional, electrified, created_at, updated_at`

// TrackRepository handles database operations for railway tracks
type TrackRepository struct {
	db sqlx.ExtContext
}

// NewTrackRepository creates a new track repository
func NewTrackRepository(db sqlx.ExtContext) *TrackRepository {
	return &TrackRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *TrackRepository) WithTx(tx *sqlx.Tx) *TrackRepository {
	return &TrackRepository{db: tx}
}

// Create inserts a track and sets its ID
func (r *TrackRepository) Create(ctx context.Context, t *models.Track) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, `INSERT INTO tracks (
		name, start_station_id, end_station_id, length_km, gauge, max_speed_kmh, track_condition,
		track_type, single_or_double_track, bidirectional, electrified, created_at, updated_at
	) VALUES (
		:name, :start_station_id, :end_station_id, :length_km, :gauge, :max_speed_kmh, :track_condition,
		:track_type, :single_or_double_track, :bidirectional, :electrified, :created_at, :updated_at
	)`, t)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read track id: %w", err)
	}
	t.ID = id
	return nil
}

// GetByID retrieves a track. Returns (nil, nil) when it does not exist.
func (r *TrackRepository) GetByID(ctx context.Context, id int64) (*models.Track, error) {
	t, err := getOne[models.Track](ctx, r.db,
		`SELECT `+trackColumns+` FROM tracks WHERE track_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	return t, nil
}

// GetByName retrieves a track by its unique name
func (r *TrackRepository) GetByName(ctx context.Context, name string) (*models.Track, error) {
	t, err := getOne[models.Track](ctx, r.db,
		`SELECT `+trackColumns+` FROM tracks WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get track by name: %w", err)
	}
	return t, nil
}

// List retrieves tracks with filtering and pagination
func (r *TrackRepository) List(ctx context.Context, filter models.TrackFilter) ([]models.Track, int64, error) {
	var conditions []string
	var args []any

	if filter.StationID > 0 {
		conditions = append(conditions, "(start_station_id = ? OR end_station_id = ?)")
		args = append(args, filter.StationID, filter.StationID)
	}
	if filter.TrackType != "" {
		conditions = append(conditions, "track_type = ?")
		args = append(args, filter.TrackType)
	}
	if filter.Electrified != nil {
		conditions = append(conditions, "electrified = ?")
		args = append(args, *filter.Electrified)
	}
	where := whereClause(conditions)

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM tracks"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count tracks: %w", err)
	}

	filter.Normalize()
	query := "SELECT " + trackColumns + " FROM tracks" + where + " ORDER BY track_id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, filter.Offset())

	var tracks []models.Track
	if err := sqlx.SelectContext(ctx, r.db, &tracks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query tracks: %w", err)
	}
	return tracks, total, nil
}

// FindConnecting returns the lowest-id track joining from and to, honouring
// one-way tracks. Returns (nil, nil) when the stations are not connected.
func (r *TrackRepository) FindConnecting(ctx context.Context, from, to int64) (*models.Track, error) {
	t, err := getOne[models.Track](ctx, r.db, `SELECT `+trackColumns+` FROM tracks
		WHERE (start_station_id = ?1 AND end_station_id = ?2)
		   OR (bidirectional = 1 AND start_station_id = ?2 AND end_station_id = ?1)
		ORDER BY track_id LIMIT 1`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to find connecting track: %w", err)
	}
	return t, nil
}

// Update writes every mutable column of t
func (r *TrackRepository) Update(ctx context.Context, t *models.Track) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `UPDATE tracks SET
		name = :name, start_station_id = :start_station_id, end_station_id = :end_station_id,
		length_km = :length_km, gauge = :gauge, max_speed_kmh = :max_speed_kmh,
		track_condition = :track_condition, track_type = :track_type,
		single_or_double_track = :single_or_double_track, bidirectional = :bidirectional,
		electrified = :electrified, updated_at = :updated_at
	WHERE track_id = :track_id`, t)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}
	return nil
}

// Delete removes a track. Trains on it keep running with no track association.
func (r *TrackRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tracks WHERE track_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return nil
}
