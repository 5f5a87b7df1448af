package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/railsim-backend-go/internal/database"
	"github.com/jengzang/railsim-backend-go/internal/logging"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

// stepRun holds what one step needs while it walks the active trains.
type stepRun struct {
	ctx    context.Context
	tx     *sqlx.Tx
	now    time.Time // simulated
	wall   time.Time
	report *StepReport
	log    logging.Logger

	trains     *repository.TrainRepository
	passengers *repository.PassengerRepository
	stations   *repository.StationRepository
	tracks     *repository.TrackRepository
	routes     *repository.RouteRepository
	sims       *repository.SimulationRepository

	routeCache   map[int64]*models.Route
	badRoutes    map[int64]string
	stationCache map[int64]bool
}

func newStepRun(ctx context.Context, tx *sqlx.Tx, now, wall time.Time, report *StepReport, log logging.Logger) *stepRun {
	return &stepRun{
		ctx:          ctx,
		tx:           tx,
		now:          now,
		wall:         wall,
		report:       report,
		log:          log,
		trains:       repository.NewTrainRepository(tx),
		passengers:   repository.NewPassengerRepository(tx),
		stations:     repository.NewStationRepository(tx),
		tracks:       repository.NewTrackRepository(tx),
		routes:       repository.NewRouteRepository(tx),
		sims:         repository.NewSimulationRepository(tx),
		routeCache:   make(map[int64]*models.Route),
		badRoutes:    make(map[int64]string),
		stationCache: make(map[int64]bool),
	}
}

// advance applies one train update inside its own savepoint. Data problems
// roll back that train only; anything else is returned and aborts the step.
func (r *stepRun) advance(t *models.Train) error {
	m := r.report.mark()
	err := database.Savepoint(r.ctx, r.tx, fmt.Sprintf("train_%d", t.ID), func() error {
		return r.updateTrain(t)
	})
	if err == nil {
		return nil
	}

	var dq *models.DataQualityError
	if !errors.As(err, &dq) {
		var sf *models.StorageFailure
		if errors.As(err, &sf) {
			return err
		}
		return &models.StorageFailure{Op: fmt.Sprintf("update train %d", t.ID), Err: err}
	}

	r.report.truncate(m)
	r.report.Issues = append(r.report.Issues, Issue{TrainID: dq.TrainID, Reason: dq.Reason})
	r.log.Warn(r.ctx, "train skipped: malformed data",
		logging.Int64("train_id", dq.TrainID),
		logging.String("reason", dq.Reason),
	)
	trainID := dq.TrainID
	return r.event(models.EventDataQuality, &trainID, nil, dq.Reason)
}

func (r *stepRun) updateTrain(t *models.Train) error {
	route, err := r.route(t)
	if err != nil {
		return err
	}
	wps := route.Waypoints

	if t.Status == models.TrainStatusScheduled {
		if t.ScheduledDeparture == nil || r.now.Before(t.ScheduledDeparture.UTC()) {
			return nil
		}
		if err := r.checkStation(t, wps[0]); err != nil {
			return err
		}
		origin := wps[0].StationID
		departed := r.now
		t.Status = models.TrainStatusRunning
		t.ActualDeparture = &departed
		t.CurrentStationID = &origin
		t.CurrentTrackID = nil
		t.CurrentWaypointIndex = 0
		t.CurrentLocationStatus = models.LocationAtStation
		r.transition(t, models.EventDeparted, models.TrainStatusScheduled, origin)
		if err := r.event(models.EventDeparted, &t.ID, &origin, ""); err != nil {
			return err
		}
	}

	if t.CurrentWaypointIndex < 0 || t.CurrentWaypointIndex >= len(wps) {
		return &models.DataQualityError{
			TrainID: t.ID,
			Reason:  fmt.Sprintf("waypoint index %d outside route %d with %d waypoints", t.CurrentWaypointIndex, route.ID, len(wps)),
		}
	}

	for t.Status == models.TrainStatusRunning || t.Status == models.TrainStatusDelayed {
		idx := t.CurrentWaypointIndex
		wp := wps[idx]
		if err := r.checkStation(t, wp); err != nil {
			return err
		}
		planned, ok, err := wp.PlannedArrival()
		if err != nil {
			return &models.DataQualityError{
				TrainID: t.ID,
				Reason:  fmt.Sprintf("waypoint %d of route %d: %v", wp.Order, route.ID, err),
			}
		}
		if !ok || r.now.Before(planned) {
			if err := r.enRoute(t, wps, idx); err != nil {
				return err
			}
			break
		}
		if err := r.arrive(t, wp, planned, idx == len(wps)-1); err != nil {
			return err
		}
		if t.Status == models.TrainStatusCompleted {
			break
		}
		t.CurrentWaypointIndex++
	}

	t.UpdatedAt = r.wall
	if err := r.trains.Update(r.ctx, t); err != nil {
		return &models.StorageFailure{Op: fmt.Sprintf("save train %d", t.ID), Err: err}
	}
	return nil
}

// enRoute puts the train between the previous waypoint and wps[idx].
func (r *stepRun) enRoute(t *models.Train, wps models.Waypoints, idx int) error {
	t.CurrentLocationStatus = models.LocationBetweenStations
	t.CurrentTrackID = nil
	if idx == 0 {
		return nil
	}
	track, err := r.tracks.FindConnecting(r.ctx, wps[idx-1].StationID, wps[idx].StationID)
	if err != nil {
		return &models.StorageFailure{Op: "find connecting track", Err: err}
	}
	if track != nil {
		id := track.ID
		t.CurrentTrackID = &id
	}
	return nil
}

func (r *stepRun) arrive(t *models.Train, wp models.Waypoint, planned time.Time, last bool) error {
	from := t.Status
	station := wp.StationID
	t.CurrentStationID = &station
	t.CurrentTrackID = nil
	t.CurrentLocationStatus = models.LocationAtStation
	t.DelayMinutes = delayMinutes(r.now, planned)
	if t.DelayMinutes > 0 {
		t.Status = models.TrainStatusDelayed
	} else {
		t.Status = models.TrainStatusRunning
	}
	r.transition(t, models.EventArrived, from, station)

	if err := r.exchangePassengers(t, station); err != nil {
		return err
	}
	detail := ""
	if t.DelayMinutes > 0 {
		detail = fmt.Sprintf("delay %d min", t.DelayMinutes)
	}
	if err := r.event(models.EventArrived, &t.ID, &station, detail); err != nil {
		return err
	}

	if !last {
		return nil
	}
	from = t.Status
	arrived := r.now
	t.Status = models.TrainStatusCompleted
	t.ActualArrival = &arrived
	r.transition(t, models.EventCompleted, from, station)
	return r.event(models.EventCompleted, &t.ID, &station, "")
}

// delayMinutes is the whole minutes by which now is past planned, never negative.
func delayMinutes(now, planned time.Time) int {
	d := int(now.Sub(planned) / time.Minute)
	if d < 0 {
		return 0
	}
	return d
}

func (r *stepRun) route(t *models.Train) (*models.Route, error) {
	if reason, ok := r.badRoutes[t.RouteID]; ok {
		return nil, &models.DataQualityError{TrainID: t.ID, Reason: reason}
	}
	if rt, ok := r.routeCache[t.RouteID]; ok {
		if rt == nil {
			return nil, &models.DataQualityError{TrainID: t.ID, Reason: fmt.Sprintf("route %d does not exist", t.RouteID)}
		}
		if len(rt.Waypoints) == 0 {
			return nil, &models.DataQualityError{TrainID: t.ID, Reason: fmt.Sprintf("route %d has no waypoints", t.RouteID)}
		}
		return rt, nil
	}
	rt, err := r.routes.GetByID(r.ctx, t.RouteID)
	if errors.Is(err, models.ErrMalformedWaypoints) {
		r.badRoutes[t.RouteID] = fmt.Sprintf("route %d waypoints: %v", t.RouteID, err)
		return r.route(t)
	}
	if err != nil {
		return nil, &models.StorageFailure{Op: "load route", Err: err}
	}
	if rt != nil {
		rt.Waypoints = rt.Waypoints.Sorted()
	}
	r.routeCache[t.RouteID] = rt
	return r.route(t)
}

func (r *stepRun) checkStation(t *models.Train, wp models.Waypoint) error {
	if wp.StationID <= 0 {
		return &models.DataQualityError{
			TrainID: t.ID,
			Reason:  fmt.Sprintf("waypoint %d of route %d has invalid station id %d", wp.Order, t.RouteID, wp.StationID),
		}
	}
	exists, cached := r.stationCache[wp.StationID]
	if !cached {
		s, err := r.stations.GetByID(r.ctx, wp.StationID)
		if err != nil {
			return &models.StorageFailure{Op: "load station", Err: err}
		}
		exists = s != nil
		r.stationCache[wp.StationID] = exists
	}
	if !exists {
		return &models.DataQualityError{
			TrainID: t.ID,
			Reason:  fmt.Sprintf("waypoint %d of route %d references missing station %d", wp.Order, t.RouteID, wp.StationID),
		}
	}
	return nil
}

func (r *stepRun) transition(t *models.Train, kind, from string, station int64) {
	r.report.Transitions = append(r.report.Transitions, Transition{
		TrainID:   t.ID,
		Kind:      kind,
		From:      from,
		To:        t.Status,
		StationID: station,
		Delay:     t.DelayMinutes,
	})
}

func (r *stepRun) event(kind string, trainID, stationID *int64, detail string) error {
	e := &models.SimulationEvent{
		SimulatedAt: r.now,
		RecordedAt:  r.wall,
		Kind:        kind,
		TrainID:     trainID,
		StationID:   stationID,
		Detail:      detail,
	}
	if err := r.sims.AppendEvent(r.ctx, e); err != nil {
		return &models.StorageFailure{Op: "append event", Err: err}
	}
	return nil
}
