package simulation

import (
	"context"
	"fmt"

	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/repository"
	"github.com/jengzang/railsim-backend-go/internal/stats"
	"github.com/jmoiron/sqlx"
)

// DefaultEventLimit is used by Events when limit is not positive.
const DefaultEventLimit = 100

// readTx runs fn in a transaction that is always rolled back, so every
// projection reads one snapshot.
func (e *Engine) readTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return &models.StorageFailure{Op: "begin read", Err: err}
	}
	defer tx.Rollback()
	return fn(tx)
}

// SimulationStatus returns the singleton.
func (e *Engine) SimulationStatus(ctx context.Context) (*models.SimulationState, error) {
	var state *models.SimulationState
	err := e.readTx(ctx, func(tx *sqlx.Tx) error {
		s, err := repository.NewSimulationRepository(tx).Get(ctx)
		if err != nil {
			return &models.StorageFailure{Op: "load simulation state", Err: err}
		}
		if s == nil {
			return models.ErrNotInitialized
		}
		normalizeState(s)
		state = s
		return nil
	})
	return state, err
}

// TrainsStatus returns every train with its station and route names, by id.
func (e *Engine) TrainsStatus(ctx context.Context) ([]models.TrainStatusView, error) {
	var views []models.TrainStatusView
	err := e.readTx(ctx, func(tx *sqlx.Tx) error {
		trains, err := repository.NewTrainRepository(tx).ListAll(ctx)
		if err != nil {
			return &models.StorageFailure{Op: "load trains", Err: err}
		}
		names, err := newNameResolver(ctx, tx)
		if err != nil {
			return err
		}
		views = make([]models.TrainStatusView, 0, len(trains))
		for _, t := range trains {
			v, err := names.trainView(t)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return nil
	})
	return views, err
}

// TrainStatus returns one train view.
func (e *Engine) TrainStatus(ctx context.Context, id int64) (*models.TrainStatusView, error) {
	var view *models.TrainStatusView
	err := e.readTx(ctx, func(tx *sqlx.Tx) error {
		t, err := repository.NewTrainRepository(tx).GetByID(ctx, id)
		if err != nil {
			return &models.StorageFailure{Op: "load train", Err: err}
		}
		if t == nil {
			return models.NotFoundError("train", id)
		}
		names, err := newNameResolver(ctx, tx)
		if err != nil {
			return err
		}
		v, err := names.trainView(*t)
		if err != nil {
			return err
		}
		view = &v
		return nil
	})
	return view, err
}

// StationsStatus describes every station, optionally listing waiting passengers.
func (e *Engine) StationsStatus(ctx context.Context, includePassengers bool) ([]models.StationStatusView, error) {
	var views []models.StationStatusView
	err := e.readTx(ctx, func(tx *sqlx.Tx) error {
		stations, err := repository.NewStationRepository(tx).ListAll(ctx)
		if err != nil {
			return &models.StorageFailure{Op: "load stations", Err: err}
		}
		present, err := trainsByStation(ctx, tx)
		if err != nil {
			return err
		}
		views = make([]models.StationStatusView, 0, len(stations))
		for _, s := range stations {
			v, err := stationView(ctx, tx, s, present[s.ID], includePassengers)
			if err != nil {
				return err
			}
			views = append(views, *v)
		}
		return nil
	})
	return views, err
}

// StationStatus describes one station.
func (e *Engine) StationStatus(ctx context.Context, id int64, includePassengers bool) (*models.StationStatusView, error) {
	var view *models.StationStatusView
	err := e.readTx(ctx, func(tx *sqlx.Tx) error {
		s, err := repository.NewStationRepository(tx).GetByID(ctx, id)
		if err != nil {
			return &models.StorageFailure{Op: "load station", Err: err}
		}
		if s == nil {
			return models.NotFoundError("station", id)
		}
		present, err := trainsByStation(ctx, tx)
		if err != nil {
			return err
		}
		view, err = stationView(ctx, tx, *s, present[s.ID], includePassengers)
		return err
	})
	return view, err
}

// DelayReport summarizes delay minutes over every train that has departed.
func (e *Engine) DelayReport(ctx context.Context) (*models.DelayReport, error) {
	var report *models.DelayReport
	err := e.readTx(ctx, func(tx *sqlx.Tx) error {
		trains, err := repository.NewTrainRepository(tx).ListAll(ctx)
		if err != nil {
			return &models.StorageFailure{Op: "load trains", Err: err}
		}
		var delays []float64
		for _, t := range trains {
			if t.ActualDeparture != nil {
				delays = append(delays, float64(t.DelayMinutes))
			}
		}
		summary := stats.Summarize(delays)
		report = &models.DelayReport{
			DepartedTrains: summary.Count,
			DelayedTrains:  stats.CountAbove(delays, 0),
			MeanDelay:      summary.Mean,
			MedianDelay:    summary.Median,
			P95Delay:       summary.P95,
			MaxDelay:       summary.Max,
		}
		if summary.Count > 0 {
			report.OnTimeRatio = float64(summary.Count-report.DelayedTrains) / float64(summary.Count)
		}
		return nil
	})
	return report, err
}

// Events returns up to limit events, newest first.
func (e *Engine) Events(ctx context.Context, limit int) ([]models.SimulationEvent, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	var events []models.SimulationEvent
	err := e.readTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		events, err = repository.NewSimulationRepository(tx).LatestEvents(ctx, limit)
		if err != nil {
			return &models.StorageFailure{Op: "load events", Err: err}
		}
		return nil
	})
	if events == nil && err == nil {
		events = []models.SimulationEvent{}
	}
	return events, err
}

type nameResolver struct {
	ctx      context.Context
	stations map[int64]string
	routes   *repository.RouteRepository
	cache    map[int64]string
}

func newNameResolver(ctx context.Context, tx *sqlx.Tx) (*nameResolver, error) {
	stations, err := repository.NewStationRepository(tx).ListAll(ctx)
	if err != nil {
		return nil, &models.StorageFailure{Op: "load stations", Err: err}
	}
	n := &nameResolver{
		ctx:      ctx,
		stations: make(map[int64]string, len(stations)),
		routes:   repository.NewRouteRepository(tx),
		cache:    make(map[int64]string),
	}
	for _, s := range stations {
		n.stations[s.ID] = s.Name
	}
	return n, nil
}

func (n *nameResolver) trainView(t models.Train) (models.TrainStatusView, error) {
	v := models.TrainStatusView{Train: t}
	if t.CurrentStationID != nil {
		if name, ok := n.stations[*t.CurrentStationID]; ok {
			v.CurrentStationName = &name
		}
	}
	name, ok := n.cache[t.RouteID]
	if !ok {
		var err error
		name, err = n.routes.GetName(n.ctx, t.RouteID)
		if err != nil {
			return v, &models.StorageFailure{Op: "load route", Err: err}
		}
		n.cache[t.RouteID] = name
	}
	v.RouteName = name
	return v, nil
}

// trainsByStation maps station id to the names of trains whose current
// station it is.
func trainsByStation(ctx context.Context, tx *sqlx.Tx) (map[int64][]string, error) {
	trains, err := repository.NewTrainRepository(tx).ListAll(ctx)
	if err != nil {
		return nil, &models.StorageFailure{Op: "load trains", Err: err}
	}
	present := make(map[int64][]string)
	for _, t := range trains {
		if t.CurrentStationID == nil {
			continue
		}
		present[*t.CurrentStationID] = append(present[*t.CurrentStationID], t.Name)
	}
	return present, nil
}

func stationView(ctx context.Context, tx *sqlx.Tx, s models.Station, trains []string, includePassengers bool) (*models.StationStatusView, error) {
	passengers := repository.NewPassengerRepository(tx)
	if trains == nil {
		trains = []string{}
	}
	v := &models.StationStatusView{
		StationID:     s.ID,
		Name:          s.Name,
		Capacity:      s.Capacity,
		TrainsPresent: trains,
		TrainCount:    len(trains),
	}
	if !includePassengers {
		n, err := passengers.CountWaitingAt(ctx, s.ID)
		if err != nil {
			return nil, &models.StorageFailure{Op: fmt.Sprintf("count passengers at station %d", s.ID), Err: err}
		}
		v.WaitingPassengerCount = n
		return v, nil
	}
	waiting, err := passengers.ListWaitingAt(ctx, s.ID)
	if err != nil {
		return nil, &models.StorageFailure{Op: fmt.Sprintf("list passengers at station %d", s.ID), Err: err}
	}
	v.WaitingPassengerCount = len(waiting)
	v.WaitingPassengers = make([]models.PassengerSummary, 0, len(waiting))
	for _, p := range waiting {
		v.WaitingPassengers = append(v.WaitingPassengers, models.PassengerSummary{
			ID:                   p.ID,
			OriginStationID:      p.OriginStationID,
			DestinationStationID: p.DestinationStationID,
			CurrentStationID:     p.CurrentStationID,
			BoardedTrainID:       p.BoardedTrainID,
			Status:               p.Status,
			BoardingTime:         p.BoardingTime,
			ArrivalTime:          p.ArrivalTime,
		})
	}
	return v, nil
}
