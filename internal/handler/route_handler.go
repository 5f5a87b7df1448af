package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/service"
	"github.com/jengzang/railsim-backend-go/pkg/response"
)

// RouteHandler handles HTTP requests for routes
type RouteHandler struct {
	service *service.RouteService
}

// NewRouteHandler creates a new route handler
func NewRouteHandler(service *service.RouteService) *RouteHandler {
	return &RouteHandler{service: service}
}

// Create handles POST /route
func (h *RouteHandler) Create(c *gin.Context) {
	var req models.CreateRouteRequest
	if !bindJSON(c, &req) {
		return
	}
	route, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, "Failed to create route", err)
		return
	}
	response.Created(c, route)
}

// List handles GET /route
func (h *RouteHandler) List(c *gin.Context) {
	var filter models.RouteFilter
	if !bindQuery(c, &filter) {
		return
	}
	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.FromError(c, "Failed to get routes", err)
		return
	}
	response.Success(c, result)
}

// Get handles GET /route/:id
func (h *RouteHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "route")
	if !ok {
		return
	}
	route, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "Failed to get route", err)
		return
	}
	response.Success(c, route)
}

// Replace handles PUT /route/:id
func (h *RouteHandler) Replace(c *gin.Context) {
	id, ok := parseID(c, "route")
	if !ok {
		return
	}
	var req models.CreateRouteRequest
	if !bindJSON(c, &req) {
		return
	}
	h.update(c, id, req.ToUpdate())
}

// Patch handles PATCH /route/:id
func (h *RouteHandler) Patch(c *gin.Context) {
	id, ok := parseID(c, "route")
	if !ok {
		return
	}
	var req models.UpdateRouteRequest
	if !bindJSON(c, &req) {
		return
	}
	h.update(c, id, req)
}

func (h *RouteHandler) update(c *gin.Context, id int64, req models.UpdateRouteRequest) {
	route, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, "Failed to update route", err)
		return
	}
	response.Success(c, route)
}

// Delete handles DELETE /route/:id
func (h *RouteHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "route")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, "Failed to delete route", err)
		return
	}
	deleted(c, id)
}
