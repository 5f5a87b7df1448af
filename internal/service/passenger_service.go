package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/database"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

// MaxGeneratedPerStation caps a single generation request
const MaxGeneratedPerStation = 1000

// PassengerService manages the passenger ledger outside of simulation steps
type PassengerService struct {
	db         *sqlx.DB
	passengers *repository.PassengerRepository
	stations   *repository.StationRepository
}

// NewPassengerService creates a new passenger service
func NewPassengerService(db *sqlx.DB) *PassengerService {
	return &PassengerService{
		db:         db,
		passengers: repository.NewPassengerRepository(db),
		stations:   repository.NewStationRepository(db),
	}
}

// Create stores a waiting passenger. The current station defaults to the origin.
func (s *PassengerService) Create(ctx context.Context, req models.CreatePassengerRequest) (*models.Passenger, error) {
	p := &models.Passenger{
		OriginStationID:      req.OriginStationID,
		DestinationStationID: req.DestinationStationID,
		CurrentStationID:     req.OriginStationID,
		Status:               models.PassengerStatusWaiting,
	}
	if req.CurrentStationID != nil {
		p.CurrentStationID = *req.CurrentStationID
	}
	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.passengers.Create(ctx, p); err != nil {
		return nil, writeError("create passenger", err)
	}
	return p, nil
}

// Get retrieves a passenger by ID
func (s *PassengerService) Get(ctx context.Context, id int64) (*models.Passenger, error) {
	p, err := s.passengers.GetByID(ctx, id)
	if err != nil {
		return nil, readError("get passenger", err)
	}
	if p == nil {
		return nil, models.NotFoundError("passenger", id)
	}
	return p, nil
}

// List retrieves passengers with filtering and pagination
func (s *PassengerService) List(ctx context.Context, filter models.PassengerFilter) (*models.ListResponse[models.Passenger], error) {
	filter.Normalize()
	passengers, total, err := s.passengers.List(ctx, filter)
	if err != nil {
		return nil, readError("list passengers", err)
	}
	return models.NewListResponse(passengers, total, filter.Pagination), nil
}

// Update changes the trip of a waiting passenger
func (s *PassengerService) Update(ctx context.Context, id int64, req models.UpdatePassengerRequest) (*models.Passenger, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PassengerStatusWaiting {
		return nil, models.NewValidationError("status", "only waiting passengers can be changed, passenger %d is %s", id, p.Status)
	}
	if req.DestinationStationID != nil {
		p.DestinationStationID = *req.DestinationStationID
	}
	if req.CurrentStationID != nil {
		p.CurrentStationID = *req.CurrentStationID
	}
	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}

	p.UpdatedAt = time.Now().UTC()
	if err := s.passengers.Update(ctx, p); err != nil {
		return nil, writeError("update passenger", err)
	}
	return p, nil
}

// Delete removes a passenger that is not aboard a train
func (s *PassengerService) Delete(ctx context.Context, id int64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Status == models.PassengerStatusBoarded {
		return models.NewValidationError("status", "passenger %d is aboard train %d", id, *p.BoardedTrainID)
	}
	if err := s.passengers.Delete(ctx, id); err != nil {
		return writeError("delete passenger", err)
	}
	return nil
}

// WaitingAt lists the passengers waiting at a station in id order
func (s *PassengerService) WaitingAt(ctx context.Context, stationID int64) ([]models.Passenger, error) {
	st, err := s.stations.GetByID(ctx, stationID)
	if err != nil {
		return nil, readError("list waiting passengers", err)
	}
	if st == nil {
		return nil, models.NotFoundError("station", stationID)
	}
	passengers, err := s.passengers.ListWaitingAt(ctx, stationID)
	if err != nil {
		return nil, readError("list waiting passengers", err)
	}
	if passengers == nil {
		passengers = []models.Passenger{}
	}
	return passengers, nil
}

// Generate creates perStation waiting passengers at every station, each with
// a random destination other than its origin. The same seed over the same
// stations produces the same passengers.
func (s *PassengerService) Generate(ctx context.Context, perStation int, seed int64) ([]models.Passenger, error) {
	if perStation <= 0 || perStation > MaxGeneratedPerStation {
		return nil, models.NewValidationError("passengers_per_station", "must be within [1, %d]", MaxGeneratedPerStation)
	}
	stations, err := s.stations.ListAll(ctx)
	if err != nil {
		return nil, readError("generate passengers", err)
	}
	if len(stations) < 2 {
		return nil, models.NewValidationError("stations", "at least two stations are needed, found %d", len(stations))
	}

	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()
	created := make([]models.Passenger, 0, perStation*len(stations))
	err = database.Transaction(ctx, s.db, func(tx *sqlx.Tx) error {
		passengers := s.passengers.WithTx(tx)
		for i, origin := range stations {
			for n := 0; n < perStation; n++ {
				// Draw from the other stations only.
				j := rng.Intn(len(stations) - 1)
				if j >= i {
					j++
				}
				p := models.Passenger{
					OriginStationID:      origin.ID,
					DestinationStationID: stations[j].ID,
					CurrentStationID:     origin.ID,
					Status:               models.PassengerStatusWaiting,
					CreatedAt:            now,
					UpdatedAt:            now,
				}
				if err := passengers.Create(ctx, &p); err != nil {
					return &models.StorageFailure{Op: "generate passengers", Err: err}
				}
				created = append(created, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PassengerService) validate(ctx context.Context, p *models.Passenger) error {
	if p.OriginStationID == p.DestinationStationID {
		return models.NewValidationError("destination_station_id", "must differ from origin_station_id")
	}
	for _, ref := range []struct {
		field string
		id    int64
	}{
		{"origin_station_id", p.OriginStationID},
		{"destination_station_id", p.DestinationStationID},
		{"current_station_id", p.CurrentStationID},
	} {
		st, err := s.stations.GetByID(ctx, ref.id)
		if err != nil {
			return readError("check passenger stations", err)
		}
		if st == nil {
			return models.NewValidationError(ref.field, "station %d does not exist", ref.id)
		}
	}
	return nil
}
