package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/database"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

// TrainService handles business logic for trains. Simulation-owned fields
// (load, position, lifecycle) are never written here except by Cancel.
type TrainService struct {
	db         *sqlx.DB
	trains     *repository.TrainRepository
	routes     *repository.RouteRepository
	passengers *repository.PassengerRepository
	simulation *repository.SimulationRepository
}

// NewTrainService creates a new train service
func NewTrainService(db *sqlx.DB) *TrainService {
	return &TrainService{
		db:         db,
		trains:     repository.NewTrainRepository(db),
		routes:     repository.NewRouteRepository(db),
		passengers: repository.NewPassengerRepository(db),
		simulation: repository.NewSimulationRepository(db),
	}
}

// Create validates and stores a new scheduled train
func (s *TrainService) Create(ctx context.Context, req models.CreateTrainRequest) (*models.Train, error) {
	train := &models.Train{
		Status:                models.TrainStatusScheduled,
		CurrentLocationStatus: models.LocationAtStation,
	}
	req.ToUpdate().Apply(train)
	if err := s.validate(ctx, train); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	train.CreatedAt = now
	train.UpdatedAt = now
	if err := s.trains.Create(ctx, train); err != nil {
		return nil, writeError("create train", err)
	}
	return train, nil
}

// Get retrieves a train by ID
func (s *TrainService) Get(ctx context.Context, id int64) (*models.Train, error) {
	train, err := s.trains.GetByID(ctx, id)
	if err != nil {
		return nil, readError("get train", err)
	}
	if train == nil {
		return nil, models.NotFoundError("train", id)
	}
	return train, nil
}

// List retrieves trains with filtering and pagination
func (s *TrainService) List(ctx context.Context, filter models.TrainFilter) (*models.ListResponse[models.Train], error) {
	filter.Normalize()
	trains, total, err := s.trains.List(ctx, filter)
	if err != nil {
		return nil, readError("list trains", err)
	}
	return models.NewListResponse(trains, total, filter.Pagination), nil
}

// Update applies a partial update. The only status a caller may set is
// cancelled, which is routed through Cancel.
func (s *TrainService) Update(ctx context.Context, id int64, req models.UpdateTrainRequest) (*models.Train, error) {
	train, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	cancel := false
	if req.Status != nil && *req.Status != train.Status {
		if *req.Status != models.TrainStatusCancelled {
			return nil, models.NewValidationError("status", "only %q may be set externally", models.TrainStatusCancelled)
		}
		cancel = true
	}
	if req.RouteID != nil && *req.RouteID != train.RouteID && train.Status != models.TrainStatusScheduled {
		return nil, models.NewValidationError("route_id", "cannot change the route of a %s train", train.Status)
	}

	req.Apply(train)
	if err := s.validate(ctx, train); err != nil {
		return nil, err
	}

	train.UpdatedAt = time.Now().UTC()
	if err := s.trains.Update(ctx, train); err != nil {
		return nil, writeError("update train", err)
	}
	if cancel {
		return s.Cancel(ctx, id)
	}
	return train, nil
}

// Cancel moves a train to the terminal cancelled state. Passengers aboard
// exit at the train's current station, or at their origin when the train is
// between stations with no station recorded.
func (s *TrainService) Cancel(ctx context.Context, id int64) (*models.Train, error) {
	var out *models.Train
	err := database.Transaction(ctx, s.db, func(tx *sqlx.Tx) error {
		trains := s.trains.WithTx(tx)
		now := time.Now().UTC()

		// Write first so the transaction holds the write lock before reading.
		changed, err := trains.MarkCancelled(ctx, id, now)
		if err != nil {
			return &models.StorageFailure{Op: "cancel train", Err: err}
		}
		train, err := trains.GetByID(ctx, id)
		if err != nil {
			return &models.StorageFailure{Op: "cancel train", Err: err}
		}
		if train == nil {
			return models.NotFoundError("train", id)
		}
		out = train
		if !changed {
			if train.Status == models.TrainStatusCompleted {
				return models.NewValidationError("status", "train %d already completed", id)
			}
			return nil
		}

		exited, err := s.passengers.WithTx(tx).ExitTrain(ctx, id, train.CurrentStationID, now)
		if err != nil {
			return &models.StorageFailure{Op: "cancel train", Err: err}
		}

		sims := s.simulation.WithTx(tx)
		state, err := sims.Get(ctx)
		if err != nil {
			return &models.StorageFailure{Op: "cancel train", Err: err}
		}
		simulatedAt := now
		if state != nil {
			simulatedAt = state.CurrentSimulatedDatetime
		}
		trainID := id
		event := &models.SimulationEvent{
			SimulatedAt: simulatedAt,
			RecordedAt:  now,
			Kind:        models.EventCancelled,
			TrainID:     &trainID,
			StationID:   train.CurrentStationID,
			Detail:      fmt.Sprintf("%d passengers exited", exited),
		}
		if err := sims.AppendEvent(ctx, event); err != nil {
			return &models.StorageFailure{Op: "cancel train", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a train that carries no passengers
func (s *TrainService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	aboard, err := s.passengers.CountBoarded(ctx, id)
	if err != nil {
		return readError("delete train", err)
	}
	if aboard > 0 {
		return models.NewValidationError("train_id", "train %d carries %d passengers; cancel it first", id, aboard)
	}
	if err := s.trains.Delete(ctx, id); err != nil {
		return writeError("delete train", err)
	}
	return nil
}

func (s *TrainService) validate(ctx context.Context, t *models.Train) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return models.NewValidationError("name", "must not be empty")
	}
	if !oneOf(t.TrainType, models.TrainTypePassenger, models.TrainTypeFreight, models.TrainTypeMixed) {
		return models.NewValidationError("train_type", "unknown train type %q", t.TrainType)
	}
	if t.TotalWeightKg < 0 {
		return models.NewValidationError("total_weight_kg", "must not be negative")
	}
	if t.MaxSpeedKmh < 0 {
		return models.NewValidationError("max_speed_kmh", "must not be negative")
	}
	if t.PassengerCapacity < 0 {
		return models.NewValidationError("passenger_capacity", "must not be negative")
	}
	if t.PassengerCapacity < t.CurrentPassengerCount {
		return models.NewValidationError("passenger_capacity",
			"cannot drop below the %d passengers aboard", t.CurrentPassengerCount)
	}
	if t.CargoCapacityKg < 0 {
		return models.NewValidationError("cargo_capacity_kg", "must not be negative")
	}
	if t.CurrentCargoKg < 0 || t.CurrentCargoKg > t.CargoCapacityKg {
		return models.NewValidationError("current_cargo_kg", "must be within [0, %d]", t.CargoCapacityKg)
	}
	if t.ScheduledDeparture != nil && t.ScheduledArrival != nil && t.ScheduledArrival.Before(*t.ScheduledDeparture) {
		return models.NewValidationError("scheduled_arrival", "must not precede scheduled_departure")
	}

	route, err := s.routes.GetByID(ctx, t.RouteID)
	if err != nil {
		return readError("check train route", err)
	}
	if route == nil {
		return models.NewValidationError("route_id", "route %d does not exist", t.RouteID)
	}

	existing, err := s.trains.GetByName(ctx, t.Name)
	if err != nil {
		return readError("check train name", err)
	}
	if existing != nil && existing.ID != t.ID {
		return models.NewValidationError("name", "train %q already exists", t.Name)
	}
	return nil
}
