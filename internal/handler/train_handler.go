package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/service"
	"github.com/jengzang/railsim-backend-go/pkg/response"
)

// TrainHandler handles HTTP requests for trains
type TrainHandler struct {
	service *service.TrainService
}

// NewTrainHandler creates a new train handler
func NewTrainHandler(service *service.TrainService) *TrainHandler {
	return &TrainHandler{service: service}
}

// Create handles POST /train
func (h *TrainHandler) Create(c *gin.Context) {
	var req models.CreateTrainRequest
	if !bindJSON(c, &req) {
		return
	}
	train, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, "Failed to create train", err)
		return
	}
	response.Created(c, train)
}

// List handles GET /train
func (h *TrainHandler) List(c *gin.Context) {
	var filter models.TrainFilter
	if !bindQuery(c, &filter) {
		return
	}
	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.FromError(c, "Failed to get trains", err)
		return
	}
	response.Success(c, result)
}

// Get handles GET /train/:id
func (h *TrainHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "train")
	if !ok {
		return
	}
	train, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "Failed to get train", err)
		return
	}
	response.Success(c, train)
}

// Replace handles PUT /train/:id
func (h *TrainHandler) Replace(c *gin.Context) {
	id, ok := parseID(c, "train")
	if !ok {
		return
	}
	var req models.CreateTrainRequest
	if !bindJSON(c, &req) {
		return
	}
	h.update(c, id, req.ToUpdate())
}

// Patch handles PATCH /train/:id
func (h *TrainHandler) Patch(c *gin.Context) {
	id, ok := parseID(c, "train")
	if !ok {
		return
	}
	var req models.UpdateTrainRequest
	if !bindJSON(c, &req) {
		return
	}
	h.update(c, id, req)
}

func (h *TrainHandler) update(c *gin.Context, id int64, req models.UpdateTrainRequest) {
	train, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.FromError(c, "Failed to update train", err)
		return
	}
	response.Success(c, train)
}

// Cancel handles POST /train/:id/cancel
func (h *TrainHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "train")
	if !ok {
		return
	}
	train, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "Failed to cancel train", err)
		return
	}
	response.Success(c, train)
}

// Delete handles DELETE /train/:id
func (h *TrainHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "train")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, "Failed to delete train", err)
		return
	}
	deleted(c, id)
}
