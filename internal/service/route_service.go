package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/repository"
	"github.com/jengzang/railsim-backend-go/internal/spatial"
)

// RouteService handles business logic for routes
type RouteService struct {
	routes   *repository.RouteRepository
	stations *repository.StationRepository
	trains   *repository.TrainRepository
}

// NewRouteService creates a new route service
func NewRouteService(routes *repository.RouteRepository, stations *repository.StationRepository, trains *repository.TrainRepository) *RouteService {
	return &RouteService{
		routes:   routes,
		stations: stations,
		trains:   trains,
	}
}

// Create validates and stores a new route
func (s *RouteService) Create(ctx context.Context, req models.CreateRouteRequest) (*models.Route, error) {
	route := &models.Route{}
	req.ToUpdate().Apply(route)
	if err := s.validate(ctx, route); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	route.CreatedAt = now
	route.UpdatedAt = now
	if err := s.routes.Create(ctx, route); err != nil {
		return nil, writeError("create route", err)
	}
	return route, nil
}

// Get retrieves a route by ID
func (s *RouteService) Get(ctx context.Context, id int64) (*models.Route, error) {
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, readError("get route", err)
	}
	if route == nil {
		return nil, models.NotFoundError("route", id)
	}
	return route, nil
}

// List retrieves routes with filtering and pagination
func (s *RouteService) List(ctx context.Context, filter models.RouteFilter) (*models.ListResponse[models.Route], error) {
	filter.Normalize()
	routes, total, err := s.routes.List(ctx, filter)
	if err != nil {
		return nil, readError("list routes", err)
	}
	return models.NewListResponse(routes, total, filter.Pagination), nil
}

// Update applies a partial update. Trains already on the route keep their
// waypoint index, so shortening a route in use is rejected.
func (s *RouteService) Update(ctx context.Context, id int64, req models.UpdateRouteRequest) (*models.Route, error) {
	route, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldLen := len(route.Waypoints)
	req.Apply(route)
	if req.Waypoints != nil && req.TotalDistanceKm == nil {
		route.TotalDistanceKm = 0
	}
	if err := s.validate(ctx, route); err != nil {
		return nil, err
	}
	if len(route.Waypoints) < oldLen {
		inUse, err := s.trains.CountByRoute(ctx, id)
		if err != nil {
			return nil, readError("update route", err)
		}
		if inUse > 0 {
			return nil, models.NewValidationError("waypoints", "route %d is used by %d trains and cannot lose waypoints", id, inUse)
		}
	}

	route.UpdatedAt = time.Now().UTC()
	if err := s.routes.Update(ctx, route); err != nil {
		return nil, writeError("update route", err)
	}
	return route, nil
}

// Delete removes a route no train uses
func (s *RouteService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	inUse, err := s.trains.CountByRoute(ctx, id)
	if err != nil {
		return readError("delete route", err)
	}
	if inUse > 0 {
		return models.NewValidationError("route_id", "route %d is used by %d trains", id, inUse)
	}
	if err := s.routes.Delete(ctx, id); err != nil {
		return writeError("delete route", err)
	}
	return nil
}

func (s *RouteService) validate(ctx context.Context, rt *models.Route) error {
	rt.Name = strings.TrimSpace(rt.Name)
	if rt.Name == "" {
		return models.NewValidationError("name", "must not be empty")
	}
	if !oneOf(rt.Frequency, models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly) {
		return models.NewValidationError("frequency", "unknown frequency %q", rt.Frequency)
	}
	if rt.EstimatedDurationHours < 0 {
		return models.NewValidationError("estimated_duration_hours", "must not be negative")
	}
	if err := validateWaypoints(rt.Waypoints); err != nil {
		return err
	}

	ids := make([]int64, 0, len(rt.Waypoints))
	for _, wp := range rt.Waypoints {
		ids = append(ids, wp.StationID)
	}
	found, err := s.stations.ExistingIDs(ctx, ids)
	if err != nil {
		return readError("check route stations", err)
	}
	for i, wp := range rt.Waypoints {
		if !found[wp.StationID] {
			return models.NewValidationError(fmt.Sprintf("waypoints[%d].station_id", i), "station %d does not exist", wp.StationID)
		}
	}

	if rt.TotalDistanceKm <= 0 {
		km, err := s.pathLength(ctx, rt.Waypoints)
		if err != nil {
			return err
		}
		rt.TotalDistanceKm = km
	}

	existing, err := s.routes.GetByName(ctx, rt.Name)
	if err != nil {
		return readError("check route name", err)
	}
	if existing != nil && existing.ID != rt.ID {
		return models.NewValidationError("name", "route %q already exists", rt.Name)
	}
	return nil
}

func (s *RouteService) pathLength(ctx context.Context, wps models.Waypoints) (float64, error) {
	path := make([]spatial.Point, 0, len(wps))
	for _, wp := range wps {
		st, err := s.stations.GetByID(ctx, wp.StationID)
		if err != nil {
			return 0, readError("measure route", err)
		}
		if st == nil {
			return 0, models.NewValidationError("waypoints", "station %d does not exist", wp.StationID)
		}
		path = append(path, spatial.Point{Lat: st.Latitude, Lon: st.Longitude})
	}
	return spatial.PathLengthKm(path), nil
}

// validateWaypoints checks the shape of an already sorted waypoint list.
func validateWaypoints(wps models.Waypoints) error {
	if len(wps) == 0 {
		return models.NewValidationError("waypoints", "route needs at least one waypoint")
	}
	seen := make(map[int]bool, len(wps))
	for i, wp := range wps {
		field := fmt.Sprintf("waypoints[%d]", i)
		if wp.StationID <= 0 {
			return models.NewValidationError(field+".station_id", "must be a positive station id")
		}
		if seen[wp.Order] {
			return models.NewValidationError(field+".order", "duplicate order %d", wp.Order)
		}
		seen[wp.Order] = true
		if _, _, err := wp.PlannedArrival(); err != nil {
			return models.NewValidationError(field+".planned_arrival_time", "%v", err)
		}
		if _, _, err := wp.PlannedDeparture(); err != nil {
			return models.NewValidationError(field+".planned_departure_time", "%v", err)
		}
	}
	return nil
}
