package models

import "time"

// Track represents a railway track between two stations
type Track struct {
	ID                  int64   `json:"track_id" db:"track_id"`
	Name                string  `json:"name" db:"name"`
	StartStationID      int64   `json:"start_station_id" db:"start_station_id"`
	EndStationID        int64   `json:"end_station_id" db:"end_station_id"`
	LengthKm            float64 `json:"length_km" db:"length_km"`
	Gauge               string  `json:"gauge" db:"gauge"` // e.g. "1435mm"
	MaxSpeedKmh         int     `json:"max_speed_kmh" db:"max_speed_kmh"`
	TrackCondition      string  `json:"track_condition" db:"track_condition"` // excellent/good/fair/poor
	TrackType           string  `json:"track_type" db:"track_type"`           // main/branch/yard
	SingleOrDoubleTrack string  `json:"single_or_double_track" db:"single_or_double_track"`
	Bidirectional       bool    `json:"bidirectional" db:"bidirectional"`
	Electrified         bool    `json:"electrified" db:"electrified"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Connects reports whether the track joins a and b, honouring direction for
// one-way tracks.
func (t *Track) Connects(a, b int64) bool {
	if t.StartStationID == a && t.EndStationID == b {
		return true
	}
	return t.Bidirectional && t.StartStationID == b && t.EndStationID == a
}

// CreateTrackRequest is the body of POST and PUT /infra
type CreateTrackRequest struct {
	Name                string  `json:"name" binding:"required"`
	StartStationID      int64   `json:"start_station_id" binding:"required"`
	EndStationID        int64   `json:"end_station_id" binding:"required"`
	LengthKm            float64 `json:"length_km"` // <= 0 derives the great-circle distance
	Gauge               string  `json:"gauge" binding:"required"`
	MaxSpeedKmh         int     `json:"max_speed_kmh"`
	TrackCondition      string  `json:"track_condition" binding:"required"`
	TrackType           string  `json:"track_type" binding:"required"`
	SingleOrDoubleTrack string  `json:"single_or_double_track" binding:"required"`
	Bidirectional       *bool   `json:"bidirectional"` // defaults to true
	Electrified         bool    `json:"electrified"`
}

// UpdateTrackRequest lists the mutable track fields; nil means unchanged.
type UpdateTrackRequest struct {
	Name                *string  `json:"name"`
	StartStationID      *int64   `json:"start_station_id"`
	EndStationID        *int64   `json:"end_station_id"`
	LengthKm            *float64 `json:"length_km"`
	Gauge               *string  `json:"gauge"`
	MaxSpeedKmh         *int     `json:"max_speed_kmh"`
	TrackCondition      *string  `json:"track_condition"`
	TrackType           *string  `json:"track_type"`
	SingleOrDoubleTrack *string  `json:"single_or_double_track"`
	Bidirectional       *bool    `json:"bidirectional"`
	Electrified         *bool    `json:"electrified"`
}

// ToUpdate converts a full replacement into an update touching every field.
func (r CreateTrackRequest) ToUpdate() UpdateTrackRequest {
	bidirectional := true
	if r.Bidirectional != nil {
		bidirectional = *r.Bidirectional
	}
	u := UpdateTrackRequest{
		Name:                &r.Name,
		StartStationID:      &r.StartStationID,
		EndStationID:        &r.EndStationID,
		Gauge:               &r.Gauge,
		MaxSpeedKmh:         &r.MaxSpeedKmh,
		TrackCondition:      &r.TrackCondition,
		TrackType:           &r.TrackType,
		SingleOrDoubleTrack: &r.SingleOrDoubleTrack,
		Bidirectional:       &bidirectional,
		Electrified:         &r.Electrified,
	}
	if r.LengthKm > 0 {
		u.LengthKm = &r.LengthKm
	}
	return u
}

// Apply copies the set fields onto t.
func (r UpdateTrackRequest) Apply(t *Track) {
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.StartStationID != nil {
		t.StartStationID = *r.StartStationID
	}
	if r.EndStationID != nil {
		t.EndStationID = *r.EndStationID
	}
	if r.LengthKm != nil {
		t.LengthKm = *r.LengthKm
	}
	if r.Gauge != nil {
		t.Gauge = *r.Gauge
	}
	if r.MaxSpeedKmh != nil {
		t.MaxSpeedKmh = *r.MaxSpeedKmh
	}
	if r.TrackCondition != nil {
		t.TrackCondition = *r.TrackCondition
	}
	if r.TrackType != nil {
		t.TrackType = *r.TrackType
	}
	if r.SingleOrDoubleTrack != nil {
		t.SingleOrDoubleTrack = *r.SingleOrDoubleTrack
	}
	if r.Bidirectional != nil {
		t.Bidirectional = *r.Bidirectional
	}
	if r.Electrified != nil {
		t.Electrified = *r.Electrified
	}
}
