package models

import "time"

// Station represents a railway station
type Station struct {
	ID           int64   `json:"station_id" db:"station_id"`
	Name         string  `json:"name" db:"name"`
	Latitude     float64 `json:"latitude" db:"latitude"`
	Longitude    float64 `json:"longitude" db:"longitude"`
	ElevationM   int     `json:"elevation_m" db:"elevation_m"`
	Capacity     int     `json:"capacity" db:"capacity"` // Max trains that can be at the station
	NumPlatforms int     `json:"num_platforms" db:"num_platforms"`
	StationType  string  `json:"station_type" db:"station_type"` // passenger/freight/marshaling

	HasSignals     bool `json:"has_signals" db:"has_signals"`
	HasWaterSupply bool `json:"has_water_supply" db:"has_water_supply"`
	HasFuelSupply  bool `json:"has_fuel_supply" db:"has_fuel_supply"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StationType constants
const (
	StationTypePassenger  = "passenger"
	StationTypeFreight    = "freight"
	StationTypeMarshaling = "marshaling"
)

// CreateStationRequest is the body of POST and PUT /station
type CreateStationRequest struct {
	Name           string  `json:"name" binding:"required"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	ElevationM     int     `json:"elevation_m"`
	Capacity       int     `json:"capacity"`
	NumPlatforms   int     `json:"num_platforms"`
	StationType    string  `json:"station_type" binding:"required"`
	HasSignals     bool    `json:"has_signals"`
	HasWaterSupply bool    `json:"has_water_supply"`
	HasFuelSupply  bool    `json:"has_fuel_supply"`
}

// UpdateStationRequest lists the mutable station fields; nil means unchanged.
type UpdateStationRequest struct {
	Name           *string  `json:"name"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	ElevationM     *int     `json:"elevation_m"`
	Capacity       *int     `json:"capacity"`
	NumPlatforms   *int     `json:"num_platforms"`
	StationType    *string  `json:"station_type"`
	HasSignals     *bool    `json:"has_signals"`
	HasWaterSupply *bool    `json:"has_water_supply"`
	HasFuelSupply  *bool    `json:"has_fuel_supply"`
}

// ToUpdate converts a full replacement into an update touching every field.
func (r CreateStationRequest) ToUpdate() UpdateStationRequest {
	return UpdateStationRequest{
		Name:           &r.Name,
		Latitude:       &r.Latitude,
		Longitude:      &r.Longitude,
		ElevationM:     &r.ElevationM,
		Capacity:       &r.Capacity,
		NumPlatforms:   &r.NumPlatforms,
		StationType:    &r.StationType,
		HasSignals:     &r.HasSignals,
		HasWaterSupply: &r.HasWaterSupply,
		HasFuelSupply:  &r.HasFuelSupply,
	}
}

// Apply copies the set fields onto s.
func (r UpdateStationRequest) Apply(s *Station) {
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.Latitude != nil {
		s.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		s.Longitude = *r.Longitude
	}
	if r.ElevationM != nil {
		s.ElevationM = *r.ElevationM
	}
	if r.Capacity != nil {
		s.Capacity = *r.Capacity
	}
	if r.NumPlatforms != nil {
		s.NumPlatforms = *r.NumPlatforms
	}
	if r.StationType != nil {
		s.StationType = *r.StationType
	}
	if r.HasSignals != nil {
		s.HasSignals = *r.HasSignals
	}
	if r.HasWaterSupply != nil {
		s.HasWaterSupply = *r.HasWaterSupply
	}
	if r.HasFuelSupply != nil {
		s.HasFuelSupply = *r.HasFuelSupply
	}
}
