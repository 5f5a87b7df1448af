package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/service"
	"github.com/jengzang/railsim-backend-go/pkg/response"
)

// PassengerHandler handles HTTP requests for passengers
type PassengerHandler struct {
	service *service.PassengerService
}

// NewPassengerHandler creates a new passenger handler
func NewPassengerHandler(service *service.PassengerService) *PassengerHandler {
	return &PassengerHandler{service: service}
}

// Create handles POST /passenger
func (h *PassengerHandler) Create(c *gin.Context) {
	var req models.CreatePassengerRequest
	if !bindJSON(c, &req) {
		return
	}
	passenger, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, "Failed to create passenger", err)
		return
	}
	response.Created(c, passenger)
}

// List handles GET /passenger
func (h *PassengerHandler) List(c *gin.Context) {
	var filter models.PassengerFilter
	if !bindQuery(c, &filter) {
		return
	}
	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.FromError(c, "Failed to get passengers", err)
		return
	}
	response.Success(c, result)
}

// Get handles GET /passenger/:id
func (h *PassengerHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "passenger")
	if !ok {
		return
	}
	passenger, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "Failed to get passenger", err)
		return
	}
	response.Success(c, passenger)
}

// Replace handles PUT /passenger/:id. Both trip fields are required.
func (h *PassengerHandler) Replace(c *gin.Context) {
	id, ok := parseID(c, "passenger")
	if !ok {
		return
	}
	var req models.UpdatePassengerRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.DestinationStationID == nil || req.CurrentStationID == nil {
		response.Error(c, http.StatusBadRequest, "destination_station_id and current_station_id are required", nil)
		return
	}
	h.update(c, id, req)
}

// Patch handles PATCH /passenger/:id
func (h *PassengerHandler) Patch(c *gin.Context) {
	id, ok := parseID(c, "passenger")
	if !ok {
		return
	}
	var req models.UpdatePassengerRequest
	if !bindJSON(c, &req) {
		return
	}
	h.update(c, id, req)
}

func (h *PassengerHandler) update(c *gin.Context, id int64, req models.UpdatePassengerRequest) {
	passenger, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, "Failed to update passenger", err)
		return
	}
	response.Success(c, passenger)
}

// Delete handles DELETE /passenger/:id
func (h *PassengerHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "passenger")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, "Failed to delete passenger", err)
		return
	}
	deleted(c, id)
}
