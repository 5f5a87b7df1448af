package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jmoiron/sqlx"
)

const routeColumns = `route_id, name, description, waypoints, total_distance_km,
	estimated_duration_hours, frequency, created_at, updated_at`

// RouteRepository handles database operations for routes
type RouteRepository struct {
	db sqlx.ExtContext
}

// NewRouteRepository creates a new route repository
func NewRouteRepository(db sqlx.ExtContext) *RouteRepository {
	return &RouteRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *RouteRepository) WithTx(tx *sqlx.Tx) *RouteRepository {
	return &RouteRepository{db: tx}
}

// Create inserts a route and sets its ID
func (r *RouteRepository) Create(ctx context.Context, rt *models.Route) error {
	res, err := sqlx.NamedExecContext(ctx, r.db, `INSERT INTO routes (
		name, description, waypoints, total_distance_km, estimated_duration_hours, frequency,
		created_at, updated_at
	) VALUES (
		:name, :description, :waypoints, :total_distance_km, :estimated_duration_hours, :frequency,
		:created_at, :updated_at
	)`, rt)
	if err != nil {
		return fmt.Errorf("failed to insert route: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read route id: %w", err)
	}
	rt.ID = id
	return nil
}

// GetByID retrieves a route. Returns (nil, nil) when it does not exist.
func (r *RouteRepository) GetByID(ctx context.Context, id int64) (*models.Route, error) {
	rt, err := getOne[models.Route](ctx, r.db,
		`SELECT `+routeColumns+` FROM routes WHERE route_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return rt, nil
}

// GetName returns a route's name without decoding its waypoints, or "" when
// the route does not exist.
func (r *RouteRepository) GetName(ctx context.Context, id int64) (string, error) {
	var name string
	err := sqlx.GetContext(ctx, r.db, &name, `SELECT name FROM routes WHERE route_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get route name: %w", err)
	}
	return name, nil
}

// GetByName retrieves a route by its unique name
func (r *RouteRepository) GetByName(ctx context.Context, name string) (*models.Route, error) {
	rt, err := getOne[models.Route](ctx, r.db,
		`SELECT `+routeColumns+` FROM routes WHERE name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get route by name: %w", err)
	}
	return rt, nil
}

// List retrieves routes with filtering and pagination
func (r *RouteRepository) List(ctx context.Context, filter models.RouteFilter) ([]models.Route, int64, error) {
	var conditions []string
	var args []any

	if filter.Frequency != "" {
		conditions = append(conditions, "frequency = ?")
		args = append(args, filter.Frequency)
	}
	where := whereClause(conditions)

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM routes"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count routes: %w", err)
	}

	filter.Normalize()
	query := "SELECT " + routeColumns + " FROM routes" + where + " ORDER BY route_id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, filter.Offset())

	var routes []models.Route
	if err := sqlx.SelectContext(ctx, r.db, &routes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to query routes: %w", err)
	}
	return routes, total, nil
}

// Update writes every mutable column of rt
func (r *RouteRepository) Update(ctx context.Context, rt *models.Route) error {
	_, err := sqlx.NamedExecContext(ctx, r.db, `UPDATE routes SET
		name = :name, description = :description, waypoints = :waypoints,
		total_distance_km = :total_distance_km, estimated_duration_hours = :estimated_duration_hours,
		frequency = :frequency, updated_at = :updated_at
	WHERE route_id = :route_id`, rt)
	if err != nil {
		return fmt.Errorf("failed to update route: %w", err)
	}
	return nil
}

// Delete removes a route
func (r *RouteRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM routes WHERE route_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	return nil
}
