package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/service"
	"github.com/jengzang/railsim-backend-go/pkg/response"
)

// TrackHandler handles HTTP requests for the track infrastructure
type TrackHandler struct {
	trackService *service.TrackService
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(trackService *service.TrackService) *TrackHandler {
	return &TrackHandler{
		trackService: trackService,
	}
}

// Create handles POST /infra
func (h *TrackHandler) Create(c *gin.Context) {
	var req models.CreateTrackRequest
	if !bindJSON(c, &req) {
		return
	}
	track, err := h.trackService.Create(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, "Failed to create track", err)
		return
	}
	response.Created(c, track)
}

// List handles GET /infra
func (h *TrackHandler) List(c *gin.Context) {
	var filter models.TrackFilter

	// Parse query parameters
	if !bindQuery(c, &filter) {
		return
	}

	result, err := h.trackService.List(c.Request.Context(), filter)
	if err != nil {
		response.FromError(c, "Failed to get tracks", err)
		return
	}

	response.Success(c, result)
}

// Get handles GET /infra/:id
func (h *TrackHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "track")
	if !ok {
		return
	}

	track, err := h.trackService.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "Track not found", err)
		return
	}

	response.Success(c, track)
}

// Replace handles PUT /infra/:id
func (h *TrackHandler) Replace(c *gin.Context) {
	id, ok := parseID(c, "track")
	if !ok {
		return
	}
	var req models.CreateTrackRequest
	if !bindJSON(c, &req) {
		return
	}
	h.update(c, id, req.ToUpdate())
}

// Patch handles PATCH /infra/:id
func (h *TrackHandler) Patch(c *gin.Context) {
	id, ok := parseID(c, "track")
	if !ok {
		return
	}
	var req models.UpdateTrackRequest
	if !bindJSON(c, &req) {
		return
	}
	h.update(c, id, req)
}

func (h *TrackHandler) update(c *gin.Context, id int64, req models.UpdateTrackRequest) {
	track, err := h.trackService.Update(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, "Failed to update track", err)
		return
	}
	response.Success(c, track)
}

// Delete handles DELETE /infra/:id
func (h *TrackHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "track")
	if !ok {
		return
	}
	if err := h.trackService.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, "Failed to delete track", err)
		return
	}
	deleted(c, id)
}
