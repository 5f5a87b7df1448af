package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/service"
	"github.com/jengzang/railsim-backend-go/pkg/response"
)

// StationHandler handles HTTP requests for stations
type StationHandler struct {
	stations   *service.StationService
	passengers *service.PassengerService
}

// NewStationHandler creates a new station handler
func NewStationHandler(stations *service.StationService, passengers *service.PassengerService) *StationHandler {
	return &StationHandler{stations: stations, passengers: passengers}
}

// Create handles POST /station
func (h *StationHandler) Create(c *gin.Context) {
	var req models.CreateStationRequest
	if !bindJSON(c, &req) {
		return
	}
	station, err := h.stations.Create(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, "Failed to create station", err)
		return
	}
	response.Created(c, station)
}

// List handles GET /station
func (h *StationHandler) List(c *gin.Context) {
	var filter models.StationFilter
	if !bindQuery(c, &filter) {
		return
	}
	result, err := h.stations.List(c.Request.Context(), filter)
	if err != nil {
		response.FromError(c, "Failed to get stations", err)
		return
	}
	response.Success(c, result)
}

// Get handles GET /station/:id
func (h *StationHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "station")
	if !ok {
		return
	}
	station, err := h.stations.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "Failed to get station", err)
		return
	}
	response.Success(c, station)
}

// Replace handles PUT /station/:id
func (h *StationHandler) Replace(c *gin.Context) {
	id, ok := parseID(c, "station")
	if !ok {
		return
	}
	var req models.CreateStationRequest
	if !bindJSON(c, &req) {
		return
	}
	h.update(c, id, req.ToUpdate())
}

// Patch handles PATCH /station/:id
func (h *StationHandler) Patch(c *gin.Context) {
	id, ok := parseID(c, "station")
	if !ok {
		return
	}
	var req models.UpdateStationRequest
	if !bindJSON(c, &req) {
		return
	}
	h.update(c, id, req)
}

func (h *StationHandler) update(c *gin.Context, id int64, req models.UpdateStationRequest) {
	station, err := h.stations.Update(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, "Failed to update station", err)
		return
	}
	response.Success(c, station)
}

// Delete handles DELETE /station/:id
func (h *StationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "station")
	if !ok {
		return
	}
	if err := h.stations.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, "Failed to delete station", err)
		return
	}
	deleted(c, id)
}

// WaitingPassengers handles GET /station/:id/passengers
func (h *StationHandler) WaitingPassengers(c *gin.Context) {
	id, ok := parseID(c, "station")
	if !ok {
		return
	}
	passengers, err := h.passengers.WaitingAt(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "Failed to get waiting passengers", err)
		return
	}
	response.Success(c, passengers)
}
