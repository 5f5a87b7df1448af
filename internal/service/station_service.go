package service

import (
	"context"
	"strings"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/repository"
)

// StationService handles business logic for stations
type StationService struct {
	stations *repository.StationRepository
}

// NewStationService creates a new station service
func NewStationService(stations *repository.StationRepository) *StationService {
	return &StationService{stations: stations}
}

// Create validates and stores a new station
func (s *StationService) Create(ctx context.Context, req models.CreateStationRequest) (*models.Station, error) {
	station := &models.Station{}
	req.ToUpdate().Apply(station)
	if err := s.validate(ctx, station); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	station.CreatedAt = now
	station.UpdatedAt = now
	if err := s.stations.Create(ctx, station); err != nil {
		return nil, writeError("create station", err)
	}
	return station, nil
}

// Get retrieves a station by ID
func (s *StationService) Get(ctx context.Context, id int64) (*models.Station, error) {
	station, err := s.stations.GetByID(ctx, id)
	if err != nil {
		return nil, readError("get station", err)
	}
	if station == nil {
		return nil, models.NotFoundError("station", id)
	}
	return station, nil
}

// List retrieves stations with filtering and pagination
func (s *StationService) List(ctx context.Context, filter models.StationFilter) (*models.ListResponse[models.Station], error) {
	filter.Normalize()
	stations, total, err := s.stations.List(ctx, filter)
	if err != nil {
		return nil, readError("list stations", err)
	}
	return models.NewListResponse(stations, total, filter.Pagination), nil
}

// Update applies a partial update
func (s *StationService) Update(ctx context.Context, id int64, req models.UpdateStationRequest) (*models.Station, error) {
	station, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(station)
	if err := s.validate(ctx, station); err != nil {
		return nil, err
	}

	station.UpdatedAt = time.Now().UTC()
	if err := s.stations.Update(ctx, station); err != nil {
		return nil, writeError("update station", err)
	}
	return station, nil
}

// Delete removes a station nothing refers to
func (s *StationService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	refs, err := s.stations.CountReferences(ctx, id)
	if err != nil {
		return readError("delete station", err)
	}
	if refs > 0 {
		return models.NewValidationError("station_id",
			"station %d is referenced by %d tracks, routes, trains or passengers", id, refs)
	}
	if err := s.stations.Delete(ctx, id); err != nil {
		return writeError("delete station", err)
	}
	return nil
}

func (s *StationService) validate(ctx context.Context, st *models.Station) error {
	st.Name = strings.TrimSpace(st.Name)
	if st.Name == "" {
		return models.NewValidationError("name", "must not be empty")
	}
	if st.Latitude < -90 || st.Latitude > 90 {
		return models.NewValidationError("latitude", "must be within [-90, 90]")
	}
	if st.Longitude < -180 || st.Longitude > 180 {
		return models.NewValidationError("longitude", "must be within [-180, 180]")
	}
	if st.Capacity < 0 {
		return models.NewValidationError("capacity", "must not be negative")
	}
	if st.NumPlatforms < 0 {
		return models.NewValidationError("num_platforms", "must not be negative")
	}
	if !oneOf(st.StationType, models.StationTypePassenger, models.StationTypeFreight, models.StationTypeMarshaling) {
		return models.NewValidationError("station_type", "unknown station type %q", st.StationType)
	}

	existing, err := s.stations.GetByName(ctx, st.Name)
	if err != nil {
		return readError("check station name", err)
	}
	if existing != nil && existing.ID != st.ID {
		return models.NewValidationError("name", "station %q already exists", st.Name)
	}
	return nil
}
