package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Waypoint is one stop in a route. Planned times are kept as the text the
// client supplied and parsed when the simulation reaches them.
type Waypoint struct {
	StationID            int64   `json:"station_id"`
	Order                int     `json:"order"`
	PlannedArrivalTime   *string `json:"planned_arrival_time,omitempty"`
	PlannedDepartureTime *string `json:"planned_departure_time,omitempty"`
}

// PlannedArrival parses the planned arrival time. ok is false when the
// waypoint carries no arrival time.
func (w Waypoint) PlannedArrival() (t time.Time, ok bool, err error) {
	return parseOptionalTime(w.PlannedArrivalTime)
}

// PlannedDeparture parses the planned departure time.
func (w Waypoint) PlannedDeparture() (t time.Time, ok bool, err error) {
	return parseOptionalTime(w.PlannedDepartureTime)
}

func parseOptionalTime(raw *string) (time.Time, bool, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return time.Time{}, false, nil
	}
	t, err := ParseTimestamp(*raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 style timestamp and normalizes it to UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", raw)
}

// Waypoints is stored as a JSON array in routes.waypoints.
type Waypoints []Waypoint

// Value implements driver.Valuer
func (w Waypoints) Value() (driver.Value, error) {
	if w == nil {
		w = Waypoints{}
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode waypoints: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (w *Waypoints) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*w = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("%w: unsupported column type %T", ErrMalformedWaypoints, src)
	}
	var out Waypoints
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedWaypoints, err)
	}
	*w = out
	return nil
}

// Sorted returns a copy ordered by Order.
func (w Waypoints) Sorted() Waypoints {
	out := make(Waypoints, len(w))
	copy(out, w)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Route represents a train route (ordered series of stations)
type Route struct {
	ID                     int64     `json:"route_id" db:"route_id"`
	Name                   string    `json:"name" db:"name"`
	Description            *string   `json:"description" db:"description"`
	Waypoints              Waypoints `json:"waypoints" db:"waypoints"`
	TotalDistanceKm        float64   `json:"total_distance_km" db:"total_distance_km"`
	EstimatedDurationHours float64   `json:"estimated_duration_hours" db:"estimated_duration_hours"`
	Frequency              string    `json:"frequency" db:"frequency"` // daily/weekly/monthly

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Frequency constants
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// CreateRouteRequest is the body of POST and PUT /route
type CreateRouteRequest struct {
	Name                   string     `json:"name" binding:"required"`
	Description            *string    `json:"description"`
	Waypoints              []Waypoint `json:"waypoints" binding:"required"`
	TotalDistanceKm        float64    `json:"total_distance_km"`
	EstimatedDurationHours float64    `json:"estimated_duration_hours"`
	Frequency              string     `json:"frequency" binding:"required"`
}

// UpdateRouteRequest lists the mutable route fields; nil means unchanged.
type UpdateRouteRequest struct {
	Name                   *string    `json:"name"`
	Description            *string    `json:"description"`
	Waypoints              []Waypoint `json:"waypoints"`
	TotalDistanceKm        *float64   `json:"total_distance_km"`
	EstimatedDurationHours *float64   `json:"estimated_duration_hours"`
	Frequency              *string    `json:"frequency"`
}

// ToUpdate converts a full replacement into an update touching every field.
func (r CreateRouteRequest) ToUpdate() UpdateRouteRequest {
	return UpdateRouteRequest{
		Name:                   &r.Name,
		Description:            r.Description,
		Waypoints:              r.Waypoints,
		TotalDistanceKm:        &r.TotalDistanceKm,
		EstimatedDurationHours: &r.EstimatedDurationHours,
		Frequency:              &r.Frequency,
	}
}

// Apply copies the set fields onto rt.
func (r UpdateRouteRequest) Apply(rt *Route) {
	if r.Name != nil {
		rt.Name = *r.Name
	}
	if r.Description != nil {
		rt.Description = r.Description
	}
	if r.Waypoints != nil {
		rt.Waypoints = Waypoints(r.Waypoints).Sorted()
	}
	if r.TotalDistanceKm != nil {
		rt.TotalDistanceKm = *r.TotalDistanceKm
	}
	if r.EstimatedDurationHours != nil {
		rt.EstimatedDurationHours = *r.EstimatedDurationHours
	}
	if r.Frequency != nil {
		rt.Frequency = *r.Frequency
	}
}
