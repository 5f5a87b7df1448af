package models

// Pagination is embedded in every list filter
type Pagination struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

// Normalize clamps page to >= 1 and page size to [1, 1000], defaulting to 100.
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 100
	}
	if p.PageSize > 1000 {
		p.PageSize = 1000
	}
}

// Offset is the row offset of the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// StationFilter represents filter parameters for listing stations
type StationFilter struct {
	StationType string `form:"stationType"` // passenger/freight/marshaling
	Name        string `form:"name"`        // substring match
	Pagination
}

// TrackFilter represents filter parameters for listing tracks
type TrackFilter struct {
	StationID   int64  `form:"stationId"` // either endpoint
	TrackType   string `form:"trackType"`
	Electrified *bool  `form:"electrified"`
	Pagination
}

// RouteFilter represents filter parameters for listing routes
type RouteFilter struct {
	Frequency string `form:"frequency"`
	Pagination
}

// TrainFilter represents filter parameters for listing trains
type TrainFilter struct {
	Status    string `form:"status"`
	RouteID   int64  `form:"routeId"`
	StationID int64  `form:"stationId"`
	Pagination
}

// PassengerFilter represents filter parameters for listing passengers
type PassengerFilter struct {
	Status    string `form:"status"`
	StationID int64  `form:"stationId"` // current station
	TrainID   int64  `form:"trainId"`
	Pagination
}

// ListResponse is a paginated list result
type ListResponse[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewListResponse builds a ListResponse, computing the page count.
func NewListResponse[T any](data []T, total int64, p Pagination) *ListResponse[T] {
	if data == nil {
		data = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return &ListResponse[T]{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}
