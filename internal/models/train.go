package models

import "time"

// Train represents a complete train with capacity and simulation state
type Train struct {
	ID               int64  `json:"train_id" db:"train_id"`
	Name             string `json:"name" db:"name"`
	RouteID          int64  `json:"route_id" db:"route_id"`
	CurrentStationID *int64 `json:"current_station_id" db:"current_station_id"`
	CurrentTrackID   *int64 `json:"current_track_id" db:"current_track_id"`

	// Train properties
	TrainType     string `json:"train_type" db:"train_type"` // passenger/freight/mixed
	TotalWeightKg int    `json:"total_weight_kg" db:"total_weight_kg"`
	MaxSpeedKmh   int    `json:"max_speed_kmh" db:"max_speed_kmh"`
	Gauge         string `json:"gauge" db:"gauge"`

	// Capacity and load
	PassengerCapacity     int `json:"passenger_capacity" db:"passenger_capacity"`
	CargoCapacityKg       int `json:"cargo_capacity_kg" db:"cargo_capacity_kg"`
	CurrentPassengerCount int `json:"current_passenger_count" db:"current_passenger_count"`
	CurrentCargoKg        int `json:"current_cargo_kg" db:"current_cargo_kg"`

	// Schedule and timing
	ScheduledDeparture *time.Time `json:"scheduled_departure" db:"scheduled_departure"`
	ScheduledArrival   *time.Time `json:"scheduled_arrival" db:"scheduled_arrival"`
	ActualDeparture    *time.Time `json:"actual_departure" db:"actual_departure"`
	ActualArrival      *time.Time `json:"actual_arrival" db:"actual_arrival"`
	DelayMinutes       int        `json:"delay_minutes" db:"delay_minutes"`

	// Status
	Status                string `json:"status" db:"status"`
	CurrentLocationStatus string `json:"current_location_status" db:"current_location_status"`
	CurrentWaypointIndex  int    `json:"current_waypoint_index" db:"current_waypoint_index"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TrainStatus constants
const (
	TrainStatusScheduled = "scheduled"
	TrainStatusRunning   = "running"
	TrainStatusDelayed   = "delayed"
	TrainStatusCompleted = "completed"
	TrainStatusCancelled = "cancelled"
)

// Location status constants
const (
	LocationAtStation       = "at_station"
	LocationBetweenStations = "between_stations"
)

// TrainType constants
const (
	TrainTypePassenger = "passenger"
	TrainTypeFreight   = "freight"
	TrainTypeMixed     = "mixed"
)

// ActiveTrainStatuses are the statuses the stepper advances.
var ActiveTrainStatuses = []string{TrainStatusScheduled, TrainStatusRunning, TrainStatusDelayed}

// IsTerminal reports whether the train will never be advanced again.
func (t *Train) IsTerminal() bool {
	return t.Status == TrainStatusCompleted || t.Status == TrainStatusCancelled
}

// AvailableSeats is the number of passengers that can still board.
func (t *Train) AvailableSeats() int {
	if seats := t.PassengerCapacity - t.CurrentPassengerCount; seats > 0 {
		return seats
	}
	return 0
}

// CreateTrainRequest is the body of POST and PUT /train
type CreateTrainRequest struct {
	Name               string     `json:"name" binding:"required"`
	RouteID            int64      `json:"route_id" binding:"required"`
	TrainType          string     `json:"train_type" binding:"required"`
	TotalWeightKg      int        `json:"total_weight_kg"`
	MaxSpeedKmh        int        `json:"max_speed_kmh"`
	Gauge              string     `json:"gauge" binding:"required"`
	PassengerCapacity  int        `json:"passenger_capacity"`
	CargoCapacityKg    int        `json:"cargo_capacity_kg"`
	ScheduledDeparture *time.Time `json:"scheduled_departure"`
	ScheduledArrival   *time.Time `json:"scheduled_arrival"`
}

// UpdateTrainRequest lists the externally mutable train fields. Load,
// position and lifecycle fields belong to the simulation; the only status an
// external caller may set is cancelled.
type UpdateTrainRequest struct {
	Name               *string    `json:"name"`
	RouteID            *int64     `json:"route_id"`
	TrainType          *string    `json:"train_type"`
	TotalWeightKg      *int       `json:"total_weight_kg"`
	MaxSpeedKmh        *int       `json:"max_speed_kmh"`
	Gauge              *string    `json:"gauge"`
	PassengerCapacity  *int       `json:"passenger_capacity"`
	CargoCapacityKg    *int       `json:"cargo_capacity_kg"`
	CurrentCargoKg     *int       `json:"current_cargo_kg"`
	ScheduledDeparture *time.Time `json:"scheduled_departure"`
	ScheduledArrival   *time.Time `json:"scheduled_arrival"`
	Status             *string    `json:"status"`
}

// ToUpdate converts a full replacement into an update touching every
// descriptive field.
func (r CreateTrainRequest) ToUpdate() UpdateTrainRequest {
	return UpdateTrainRequest{
		Name:               &r.Name,
		RouteID:            &r.RouteID,
		TrainType:          &r.TrainType,
		TotalWeightKg:      &r.TotalWeightKg,
		MaxSpeedKmh:        &r.MaxSpeedKmh,
		Gauge:              &r.Gauge,
		PassengerCapacity:  &r.PassengerCapacity,
		CargoCapacityKg:    &r.CargoCapacityKg,
		ScheduledDeparture: r.ScheduledDeparture,
		ScheduledArrival:   r.ScheduledArrival,
	}
}

// Apply copies the set fields onto t. Status is handled by the service.
func (r UpdateTrainRequest) Apply(t *Train) {
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.RouteID != nil {
		t.RouteID = *r.RouteID
	}
	if r.TrainType != nil {
		t.TrainType = *r.TrainType
	}
	if r.TotalWeightKg != nil {
		t.TotalWeightKg = *r.TotalWeightKg
	}
	if r.MaxSpeedKmh != nil {
		t.MaxSpeedKmh = *r.MaxSpeedKmh
	}
	if r.Gauge != nil {
		t.Gauge = *r.Gauge
	}
	if r.PassengerCapacity != nil {
		t.PassengerCapacity = *r.PassengerCapacity
	}
	if r.CargoCapacityKg != nil {
		t.CargoCapacityKg = *r.CargoCapacityKg
	}
	if r.CurrentCargoKg != nil {
		t.CurrentCargoKg = *r.CurrentCargoKg
	}
	if r.ScheduledDeparture != nil {
		d := r.ScheduledDeparture.UTC()
		t.ScheduledDeparture = &d
	}
	if r.ScheduledArrival != nil {
		a := r.ScheduledArrival.UTC()
		t.ScheduledArrival = &a
	}
}
