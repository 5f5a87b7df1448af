package models

import "time"

// Passenger represents a passenger waiting at a station or travelling on a train
type Passenger struct {
	ID                   int64      `json:"passenger_id" db:"passenger_id"`
	OriginStationID      int64      `json:"origin_station_id" db:"origin_station_id"`
	DestinationStationID int64      `json:"destination_station_id" db:"destination_station_id"`
	CurrentStationID     int64      `json:"current_station_id" db:"current_station_id"` // meaningful only while not boarded
	BoardedTrainID       *int64     `json:"boarded_train_id" db:"boarded_train_id"`
	Status               string     `json:"status" db:"status"`
	BoardingTime         *time.Time `json:"boarding_time" db:"boarding_time"`
	ArrivalTime          *time.Time `json:"arrival_time" db:"arrival_time"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PassengerStatus constants
const (
	PassengerStatusWaiting = "waiting"
	PassengerStatusBoarded = "boarded"
	PassengerStatusArrived = "arrived"
	PassengerStatusExited  = "exited"
)

// CreatePassengerRequest is the body of POST /passenger. CurrentStationID
// defaults to the origin.
type CreatePassengerRequest struct {
	OriginStationID      int64  `json:"origin_station_id" binding:"required"`
	DestinationStationID int64  `json:"destination_station_id" binding:"required"`
	CurrentStationID     *int64 `json:"current_station_id"`
}

// UpdatePassengerRequest only allows changing the trip of a waiting passenger.
type UpdatePassengerRequest struct {
	DestinationStationID *int64 `json:"destination_station_id"`
	CurrentStationID     *int64 `json:"current_station_id"`
}

// GeneratePassengersRequest is the body of POST /game/passengers/generate
type GeneratePassengersRequest struct {
	PassengersPerStation int   `json:"passengers_per_station"`
	Seed                 int64 `json:"seed"`
}
