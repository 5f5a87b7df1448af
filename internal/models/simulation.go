package models

import "time"

// SimulationState is the singleton row holding the simulated clock
type SimulationState struct {
	ID                       int64     `json:"simulation_id" db:"simulation_id"`
	CurrentSimulatedDatetime time.Time `json:"current_simulated_datetime" db:"current_simulated_datetime"`
	InitialSimulatedDatetime time.Time `json:"initial_simulated_datetime" db:"initial_simulated_datetime"`
	TimeScale                int       `json:"time_scale" db:"time_scale"` // simulated minutes per real minute, informational
	IsRunning                bool      `json:"is_running" db:"is_running"`
	StartedAt                time.Time `json:"started_at" db:"started_at"`
	LastUpdated              time.Time `json:"last_updated" db:"last_updated"`
}

// DefaultTimeScale is used when Init receives a non-positive scale.
const DefaultTimeScale = 60

// InitSimulationRequest is the body of POST /game/init. StartTime defaults
// to the current wall clock.
type InitSimulationRequest struct {
	StartTime *string `json:"start_time"`
	TimeScale int     `json:"time_scale"`
}

// SimulationEvent is one entry of the append-only step log
type SimulationEvent struct {
	ID          int64     `json:"event_id" db:"event_id"`
	SimulatedAt time.Time `json:"simulated_at" db:"simulated_at"`
	RecordedAt  time.Time `json:"recorded_at" db:"recorded_at"`
	Kind        string    `json:"kind" db:"kind"`
	TrainID     *int64    `json:"train_id" db:"train_id"`
	StationID   *int64    `json:"station_id" db:"station_id"`
	Detail      string    `json:"detail" db:"detail"`
}

// Event kinds
const (
	EventDeparted    = "departed"
	EventArrived     = "arrived"
	EventCompleted   = "completed"
	EventDataQuality = "data_quality"
	EventCancelled   = "cancelled"
)

// TrainStatusView is a train plus the names a client needs to display it.
type TrainStatusView struct {
	Train
	CurrentStationName *string `json:"current_station_name"`
	RouteName          string  `json:"route_name"`
}

// PassengerSummary is the passenger form used inside station views.
type PassengerSummary struct {
	ID                   int64      `json:"passenger_id"`
	OriginStationID      int64      `json:"origin_station_id"`
	DestinationStationID int64      `json:"destination_station_id"`
	CurrentStationID     int64      `json:"current_station_id"`
	BoardedTrainID       *int64     `json:"boarded_train_id"`
	Status               string     `json:"status"`
	BoardingTime         *time.Time `json:"boarding_time"`
	ArrivalTime          *time.Time `json:"arrival_time"`
}

// StationStatusView describes a station. TrainsPresent lists every train whose
// current station is this one, including trains that left it and are between
// stations.
type StationStatusView struct {
	StationID             int64              `json:"station_id"`
	Name                  string             `json:"name"`
	Capacity              int                `json:"capacity"`
	TrainsPresent         []string           `json:"trains_present"`
	TrainCount            int                `json:"train_count"`
	WaitingPassengerCount int                `json:"waiting_passenger_count"`
	WaitingPassengers     []PassengerSummary `json:"waiting_passengers,omitempty"`
}

// DelayReport summarizes delays over trains that have departed.
type DelayReport struct {
	DepartedTrains int     `json:"departed_trains"`
	DelayedTrains  int     `json:"delayed_trains"`
	OnTimeRatio    float64 `json:"on_time_ratio"`
	MeanDelay      float64 `json:"mean_delay_minutes"`
	MedianDelay    float64 `json:"median_delay_minutes"`
	P95Delay       float64 `json:"p95_delay_minutes"`
	MaxDelay       float64 `json:"max_delay_minutes"`
}
