package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jengzang/railsim-backend-go/internal/database"
	"github.com/jengzang/railsim-backend-go/internal/logging"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

type services struct {
	ctx        context.Context
	db         *sqlx.DB
	stations   *StationService
	tracks     *TrackService
	routes     *RouteService
	trains     *TrainService
	passengers *PassengerService
}

func newServices(t *testing.T) *services {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "svc.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(ctx, db, logging.Noop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	stationRepo := repository.NewStationRepository(db)
	return &services{
		ctx:        ctx,
		db:         db,
		stations:   NewStationService(stationRepo),
		tracks:     NewTrackService(repository.NewTrackRepository(db), stationRepo),
		routes:     NewRouteService(repository.NewRouteRepository(db), stationRepo, repository.NewTrainRepository(db)),
		trains:     NewTrainService(db),
		passengers: NewPassengerService(db),
	}
}

func (s *services) station(t *testing.T, name string, lat, lon float64) int64 {
	t.Helper()
	st, err := s.stations.Create(s.ctx, models.CreateStationRequest{
		Name: name, Latitude: lat, Longitude: lon, Capacity: 5, NumPlatforms: 2,
		StationType: models.StationTypePassenger,
	})
	if err != nil {
		t.Fatalf("create station %s: %v", name, err)
	}
	return st.ID
}

func (s *services) route(t *testing.T, name string, stationIDs ...int64) int64 {
	t.Helper()
	wps := make([]models.Waypoint, 0, len(stationIDs))
	for i, id := range stationIDs {
		wps = append(wps, models.Waypoint{StationID: id, Order: i})
	}
	rt, err := s.routes.Create(s.ctx, models.CreateRouteRequest{
		Name: name, Waypoints: wps, Frequency: models.FrequencyDaily,
	})
	if err != nil {
		t.Fatalf("create route %s: %v", name, err)
	}
	return rt.ID
}

func (s *services) train(t *testing.T, name string, routeID int64, capacity int) *models.Train {
	t.Helper()
	tr, err := s.trains.Create(s.ctx, models.CreateTrainRequest{
		Name: name, RouteID: routeID, TrainType: models.TrainTypePassenger,
		TotalWeightKg: 1000, MaxSpeedKmh: 120, Gauge: "1435mm", PassengerCapacity: capacity,
	})
	if err != nil {
		t.Fatalf("create train %s: %v", name, err)
	}
	return tr
}

func wantValidation(t *testing.T, err error, what string) {
	t.Helper()
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("%s: err = %v, want validation error", what, err)
	}
}

func TestStationValidation(t *testing.T) {
	s := newServices(t)
	s.station(t, "Alpha", 48, 11)

	cases := map[string]models.CreateStationRequest{
		"blank name": {Name: "  ", StationType: models.StationTypePassenger},
		"latitude":   {Name: "X", Latitude: 91, StationType: models.StationTypePassenger},
		"longitude":  {Name: "Y", Longitude: -181, StationType: models.StationTypePassenger},
		"capacity":   {Name: "Z", Capacity: -1, StationType: models.StationTypePassenger},
		"type":       {Name: "W", StationType: "airport"},
		"duplicate":  {Name: "Alpha", StationType: models.StationTypePassenger},
	}
	for name, req := range cases {
		_, err := s.stations.Create(s.ctx, req)
		wantValidation(t, err, name)
	}

	if _, err := s.stations.Get(s.ctx, 999); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("missing station err = %v", err)
	}
}

func TestStationDeleteRefusesReferencedStation(t *testing.T) {
	s := newServices(t)
	a := s.station(t, "Alpha", 48, 11)
	b := s.station(t, "Beta", 48.5, 11)
	lonely := s.station(t, "Gamma", 49, 11)
	s.route(t, "A-B", a, b)

	wantValidation(t, s.stations.Delete(s.ctx, a), "delete referenced station")
	if err := s.stations.Delete(s.ctx, lonely); err != nil {
		t.Fatalf("delete unreferenced station: %v", err)
	}
	if _, err := s.stations.Get(s.ctx, lonely); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("station still present: %v", err)
	}
}

func TestTrackDerivesLength(t *testing.T) {
	s := newServices(t)
	a := s.station(t, "Alpha", 48, 11)
	b := s.station(t, "Beta", 49, 11)

	tr, err := s.tracks.Create(s.ctx, models.CreateTrackRequest{
		Name: "A-B", StartStationID: a, EndStationID: b, Gauge: "1435mm",
		TrackCondition: "good", TrackType: "main", SingleOrDoubleTrack: "double",
	})
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	// One degree of latitude is roughly 111 km.
	if tr.LengthKm < 110 || tr.LengthKm > 112.5 {
		t.Fatalf("derived length = %.2f km", tr.LengthKm)
	}
	if !tr.Bidirectional {
		t.Fatalf("bidirectional should default to true")
	}

	_, err = s.tracks.Create(s.ctx, models.CreateTrackRequest{
		Name: "loop", StartStationID: a, EndStationID: a, Gauge: "1435mm",
		TrackCondition: "good", TrackType: "main", SingleOrDoubleTrack: "double",
	})
	wantValidation(t, err, "self loop")

	_, err = s.tracks.Create(s.ctx, models.CreateTrackRequest{
		Name: "dangling", StartStationID: a, EndStationID: 404, Gauge: "1435mm",
		TrackCondition: "good", TrackType: "main", SingleOrDoubleTrack: "double",
	})
	wantValidation(t, err, "missing endpoint")
}

func TestRouteValidation(t *testing.T) {
	s := newServices(t)
	a := s.station(t, "Alpha", 48, 11)
	b := s.station(t, "Beta", 48.5, 11)
	bad := "tomorrow at noon"

	cases := map[string][]models.Waypoint{
		"empty":           {},
		"unknown station": {{StationID: a, Order: 0}, {StationID: 77, Order: 1}},
		"duplicate order": {{StationID: a, Order: 1}, {StationID: b, Order: 1}},
		"bad time":        {{StationID: a, Order: 0, PlannedArrivalTime: &bad}},
	}
	for name, wps := range cases {
		_, err := s.routes.Create(s.ctx, models.CreateRouteRequest{
			Name: name, Waypoints: wps, Frequency: models.FrequencyDaily,
		})
		wantValidation(t, err, name)
	}

	id := s.route(t, "A-B", a, b)
	rt, err := s.routes.Get(s.ctx, id)
	if err != nil {
		t.Fatalf("get route: %v", err)
	}
	if rt.TotalDistanceKm <= 0 {
		t.Fatalf("total distance not derived: %v", rt.TotalDistanceKm)
	}
}

func TestRouteInUseCannotShrinkOrBeDeleted(t *testing.T) {
	s := newServices(t)
	a := s.station(t, "Alpha", 48, 11)
	b := s.station(t, "Beta", 48.5, 11)
	routeID := s.route(t, "A-B", a, b)
	s.train(t, "IC 1", routeID, 10)

	_, err := s.routes.Update(s.ctx, routeID, models.UpdateRouteRequest{
		Waypoints: []models.Waypoint{{StationID: a, Order: 0}},
	})
	wantValidation(t, err, "shrink used route")
	wantValidation(t, s.routes.Delete(s.ctx, routeID), "delete used route")
}

func TestTrainUpdateGuardsSimulationState(t *testing.T) {
	s := newServices(t)
	a := s.station(t, "Alpha", 48, 11)
	b := s.station(t, "Beta", 48.5, 11)
	routeID := s.route(t, "A-B", a, b)
	tr := s.train(t, "IC 1", routeID, 10)

	running := models.TrainStatusRunning
	_, err := s.trains.Update(s.ctx, tr.ID, models.UpdateTrainRequest{Status: &running})
	wantValidation(t, err, "set running")

	if _, err := s.db.Exec(`UPDATE trains SET current_passenger_count = 4 WHERE train_id = ?`, tr.ID); err != nil {
		t.Fatalf("seed load: %v", err)
	}
	small := 3
	_, err = s.trains.Update(s.ctx, tr.ID, models.UpdateTrainRequest{PassengerCapacity: &small})
	wantValidation(t, err, "capacity below load")

	_, err = s.trains.Create(s.ctx, models.CreateTrainRequest{
		Name: "ghost", RouteID: 404, TrainType: models.TrainTypePassenger, Gauge: "1435mm",
	})
	wantValidation(t, err, "unknown route")
}

func TestCancelExitsPassengersAtCurrentStation(t *testing.T) {
	s := newServices(t)
	a := s.station(t, "Alpha", 48, 11)
	b := s.station(t, "Beta", 48.5, 11)
	c := s.station(t, "Gamma", 49, 11)
	routeID := s.route(t, "A-B-C", a, b, c)
	tr := s.train(t, "IC 1", routeID, 10)

	p, err := s.passengers.Create(s.ctx, models.CreatePassengerRequest{OriginStationID: a, DestinationStationID: c})
	if err != nil {
		t.Fatalf("create passenger: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE trains SET status = ?, current_station_id = ?, current_passenger_count = 1
		WHERE train_id = ?`, models.TrainStatusRunning, b, tr.ID); err != nil {
		t.Fatalf("seed train: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE passengers SET status = ?, boarded_train_id = ?, current_station_id = ?
		WHERE passenger_id = ?`, models.PassengerStatusBoarded, tr.ID, b, p.ID); err != nil {
		t.Fatalf("seed passenger: %v", err)
	}

	wantValidation(t, s.trains.Delete(s.ctx, tr.ID), "delete loaded train")

	cancelled, err := s.trains.Cancel(s.ctx, tr.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.TrainStatusCancelled || cancelled.CurrentPassengerCount != 0 {
		t.Fatalf("train after cancel = %s with %d aboard", cancelled.Status, cancelled.CurrentPassengerCount)
	}

	got, err := s.passengers.Get(s.ctx, p.ID)
	if err != nil {
		t.Fatalf("get passenger: %v", err)
	}
	if got.Status != models.PassengerStatusExited || got.CurrentStationID != b || got.BoardedTrainID != nil {
		t.Fatalf("passenger = %+v, want exited at %d", got, b)
	}

	var events int
	if err := s.db.Get(&events, `SELECT COUNT(*) FROM simulation_events WHERE kind = ?`, models.EventCancelled); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("cancel events = %d, want 1", events)
	}

	// Cancelling again is a no-op.
	if _, err := s.trains.Cancel(s.ctx, tr.ID); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if err := s.db.Get(&events, `SELECT COUNT(*) FROM simulation_events`); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("events after repeated cancel = %d, want 1", events)
	}

	if _, err := s.trains.Cancel(s.ctx, 999); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("cancel missing train err = %v", err)
	}
}

func TestPassengerRules(t *testing.T) {
	s := newServices(t)
	a := s.station(t, "Alpha", 48, 11)
	b := s.station(t, "Beta", 48.5, 11)

	_, err := s.passengers.Create(s.ctx, models.CreatePassengerRequest{OriginStationID: a, DestinationStationID: a})
	wantValidation(t, err, "same origin and destination")
	_, err = s.passengers.Create(s.ctx, models.CreatePassengerRequest{OriginStationID: a, DestinationStationID: 99})
	wantValidation(t, err, "unknown destination")

	p, err := s.passengers.Create(s.ctx, models.CreatePassengerRequest{OriginStationID: a, DestinationStationID: b})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.CurrentStationID != a || p.Status != models.PassengerStatusWaiting {
		t.Fatalf("new passenger = %+v", p)
	}

	waiting, err := s.passengers.WaitingAt(s.ctx, a)
	if err != nil || len(waiting) != 1 {
		t.Fatalf("waiting at origin = %d, %v", len(waiting), err)
	}

	if _, err := s.db.Exec(`UPDATE passengers SET status = ? WHERE passenger_id = ?`,
		models.PassengerStatusArrived, p.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err = s.passengers.Update(s.ctx, p.ID, models.UpdatePassengerRequest{CurrentStationID: &b})
	wantValidation(t, err, "update arrived passenger")
}

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	draw := func(seed int64) []models.Passenger {
		s := newServices(t)
		s.station(t, "Alpha", 48, 11)
		s.station(t, "Beta", 48.5, 11)
		s.station(t, "Gamma", 49, 11)
		out, err := s.passengers.Generate(s.ctx, 4, seed)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		return out
	}

	first, second := draw(7), draw(7)
	if len(first) != 12 || len(second) != 12 {
		t.Fatalf("generated %d and %d passengers, want 12", len(first), len(second))
	}
	for i := range first {
		if first[i].OriginStationID != second[i].OriginStationID ||
			first[i].DestinationStationID != second[i].DestinationStationID {
			t.Fatalf("passenger %d differs between runs with the same seed", i)
		}
		if first[i].OriginStationID == first[i].DestinationStationID {
			t.Fatalf("passenger %d travels nowhere", i)
		}
	}
}

func TestGenerateValidation(t *testing.T) {
	s := newServices(t)
	s.station(t, "Alpha", 48, 11)

	_, err := s.passengers.Generate(s.ctx, 0, 1)
	wantValidation(t, err, "zero per station")
	_, err = s.passengers.Generate(s.ctx, MaxGeneratedPerStation+1, 1)
	wantValidation(t, err, "too many per station")
	_, err = s.passengers.Generate(s.ctx, 1, 1)
	wantValidation(t, err, "single station")
}
