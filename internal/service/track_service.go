package service

import (
	"context"
	"strings"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/repository"
	"github.com/jengzang/railsim-backend-go/internal/spatial"
)

// TrackService handles business logic for railway tracks
type TrackService struct {
	tracks   *repository.TrackRepository
	stations *repository.StationRepository
}

// NewTrackService creates a new track service
func NewTrackService(tracks *repository.TrackRepository, stations *repository.StationRepository) *TrackService {
	return &TrackService{
		tracks:   tracks,
		stations: stations,
	}
}

// Create validates and stores a new track. A non-positive length is replaced
// by the great-circle distance between the endpoint stations.
func (s *TrackService) Create(ctx context.Context, req models.CreateTrackRequest) (*models.Track, error) {
	track := &models.Track{}
	req.ToUpdate().Apply(track)
	if err := s.validate(ctx, track); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	track.CreatedAt = now
	track.UpdatedAt = now
	if err := s.tracks.Create(ctx, track); err != nil {
		return nil, writeError("create track", err)
	}
	return track, nil
}

// Get retrieves a track by ID
func (s *TrackService) Get(ctx context.Context, id int64) (*models.Track, error) {
	track, err := s.tracks.GetByID(ctx, id)
	if err != nil {
		return nil, readError("get track", err)
	}
	if track == nil {
		return nil, models.NotFoundError("track", id)
	}
	return track, nil
}

// List retrieves tracks with filtering and pagination
func (s *TrackService) List(ctx context.Context, filter models.TrackFilter) (*models.ListResponse[models.Track], error) {
	filter.Normalize()
	tracks, total, err := s.tracks.List(ctx, filter)
	if err != nil {
		return nil, readError("list tracks", err)
	}
	return models.NewListResponse(tracks, total, filter.Pagination), nil
}

// Update applies a partial update. Moving an endpoint without a new length
// recomputes the length.
func (s *TrackService) Update(ctx context.Context, id int64, req models.UpdateTrackRequest) (*models.Track, error) {
	track, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	endpointsMoved := (req.StartStationID != nil && *req.StartStationID != track.StartStationID) ||
		(req.EndStationID != nil && *req.EndStationID != track.EndStationID)
	req.Apply(track)
	if endpointsMoved && req.LengthKm == nil {
		track.LengthKm = 0
	}
	if err := s.validate(ctx, track); err != nil {
		return nil, err
	}

	track.UpdatedAt = time.Now().UTC()
	if err := s.tracks.Update(ctx, track); err != nil {
		return nil, writeError("update track", err)
	}
	return track, nil
}

// Delete removes a track
func (s *TrackService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.tracks.Delete(ctx, id); err != nil {
		return writeError("delete track", err)
	}
	return nil
}

func (s *TrackService) validate(ctx context.Context, t *models.Track) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return models.NewValidationError("name", "must not be empty")
	}
	if t.StartStationID == t.EndStationID {
		return models.NewValidationError("end_station_id", "must differ from start_station_id")
	}
	if t.MaxSpeedKmh < 0 {
		return models.NewValidationError("max_speed_kmh", "must not be negative")
	}
	if !oneOf(t.TrackCondition, "excellent", "good", "fair", "poor") {
		return models.NewValidationError("track_condition", "unknown track condition %q", t.TrackCondition)
	}
	if !oneOf(t.TrackType, "main", "branch", "yard") {
		return models.NewValidationError("track_type", "unknown track type %q", t.TrackType)
	}
	if !oneOf(t.SingleOrDoubleTrack, "single", "double") {
		return models.NewValidationError("single_or_double_track", "must be single or double")
	}

	start, err := s.stations.GetByID(ctx, t.StartStationID)
	if err != nil {
		return readError("check track start", err)
	}
	if start == nil {
		return models.NewValidationError("start_station_id", "station %d does not exist", t.StartStationID)
	}
	end, err := s.stations.GetByID(ctx, t.EndStationID)
	if err != nil {
		return readError("check track end", err)
	}
	if end == nil {
		return models.NewValidationError("end_station_id", "station %d does not exist", t.EndStationID)
	}
	if t.LengthKm <= 0 {
		t.LengthKm = spatial.DistanceKm(
			spatial.Point{Lat: start.Latitude, Lon: start.Longitude},
			spatial.Point{Lat: end.Latitude, Lon: end.Longitude},
		)
	}

	existing, err := s.tracks.GetByName(ctx, t.Name)
	if err != nil {
		return readError("check track name", err)
	}
	if existing != nil && existing.ID != t.ID {
		return models.NewValidationError("name", "track %q already exists", t.Name)
	}
	return nil
}
