package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/models"
	"github.com/jengzang/railsim-backend-go/internal/service"
	"github.com/jengzang/railsim-backend-go/internal/simulation"
	"github.com/jengzang/railsim-backend-go/pkg/response"
)

// DefaultStepMinutes is used by POST /game/step without ?minutes.
const DefaultStepMinutes = 60

// SimulationHandler serves the /game endpoints
type SimulationHandler struct {
	engine     *simulation.Engine
	passengers *service.PassengerService
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(engine *simulation.Engine, passengers *service.PassengerService) *SimulationHandler {
	return &SimulationHandler{engine: engine, passengers: passengers}
}

// StepResult is the body returned by POST /game/step
type StepResult struct {
	State  *models.SimulationState `json:"state"`
	Report *simulation.StepReport  `json:"report"`
}

// Init handles POST /game/init. The body is optional.
func (h *SimulationHandler) Init(c *gin.Context) {
	var req models.InitSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var start time.Time
	if req.StartTime != nil && *req.StartTime != "" {
		parsed, err := models.ParseTimestamp(*req.StartTime)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid start_time", err)
			return
		}
		start = parsed
	}

	state, err := h.engine.Init(c.Request.Context(), start, req.TimeScale)
	if err != nil {
		response.FromError(c, "Failed to initialize simulation", err)
		return
	}
	response.Success(c, state)
}

// Start handles POST /game/start
func (h *SimulationHandler) Start(c *gin.Context) {
	state, err := h.engine.Start(c.Request.Context())
	if err != nil {
		response.FromError(c, "Failed to start simulation", err)
		return
	}
	response.Success(c, state)
}

// Pause handles POST /game/pause
func (h *SimulationHandler) Pause(c *gin.Context) {
	state, err := h.engine.Pause(c.Request.Context())
	if err != nil {
		response.FromError(c, "Failed to pause simulation", err)
		return
	}
	response.Success(c, state)
}

// Reset handles POST /game/reset
func (h *SimulationHandler) Reset(c *gin.Context) {
	state, err := h.engine.Reset(c.Request.Context())
	if err != nil {
		response.FromError(c, "Failed to reset simulation", err)
		return
	}
	response.Success(c, state)
}

// Step handles POST /game/step?minutes=60
func (h *SimulationHandler) Step(c *gin.Context) {
	minutes := DefaultStepMinutes
	if raw := c.Query("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid minutes", err)
			return
		}
		minutes = parsed
	}

	state, report, err := h.engine.Step(c.Request.Context(), minutes)
	if err != nil {
		response.FromError(c, "Failed to advance simulation", err)
		return
	}
	response.Success(c, StepResult{State: state, Report: report})
}

// Status handles GET /game/status
func (h *SimulationHandler) Status(c *gin.Context) {
	state, err := h.engine.SimulationStatus(c.Request.Context())
	if errors.Is(err, models.ErrNotInitialized) {
		response.Error(c, http.StatusNotFound, "Simulation not initialized", err)
		return
	}
	if err != nil {
		response.FromError(c, "Failed to get simulation status", err)
		return
	}
	response.Success(c, state)
}

// TrainsStatus handles GET /game/trains-status
func (h *SimulationHandler) TrainsStatus(c *gin.Context) {
	views, err := h.engine.TrainsStatus(c.Request.Context())
	if err != nil {
		response.FromError(c, "Failed to get trains status", err)
		return
	}
	response.Success(c, views)
}

// TrainStatus handles GET /game/trains-status/:id
func (h *SimulationHandler) TrainStatus(c *gin.Context) {
	id, ok := parseID(c, "train")
	if !ok {
		return
	}
	view, err := h.engine.TrainStatus(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, "Failed to get train status", err)
		return
	}
	response.Success(c, view)
}

// StationsStatus handles GET /game/stations-status
func (h *SimulationHandler) StationsStatus(c *gin.Context) {
	views, err := h.engine.StationsStatus(c.Request.Context(), includePassengers(c))
	if err != nil {
		response.FromError(c, "Failed to get stations status", err)
		return
	}
	response.Success(c, views)
}

// StationStatus handles GET /game/stations-status/:id
func (h *SimulationHandler) StationStatus(c *gin.Context) {
	id, ok := parseID(c, "station")
	if !ok {
		return
	}
	view, err := h.engine.StationStatus(c.Request.Context(), id, includePassengers(c))
	if err != nil {
		response.FromError(c, "Failed to get station status", err)
		return
	}
	response.Success(c, view)
}

func includePassengers(c *gin.Context) bool {
	include, _ := strconv.ParseBool(c.Query("include_passengers"))
	return include
}

// GeneratePassengers handles POST /game/passengers/generate
func (h *SimulationHandler) GeneratePassengers(c *gin.Context) {
	var req models.GeneratePassengersRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.passengers.Generate(c.Request.Context(), req.PassengersPerStation, req.Seed)
	if err != nil {
		response.FromError(c, "Failed to generate passengers", err)
		return
	}
	response.Created(c, gin.H{"count": len(created), "passengers": created})
}

// Events handles GET /game/events?limit=
func (h *SimulationHandler) Events(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = parsed
	}
	events, err := h.engine.Events(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, "Failed to get events", err)
		return
	}
	response.Success(c, events)
}

// Delays handles GET /game/delays
func (h *SimulationHandler) Delays(c *gin.Context) {
	report, err := h.engine.DelayReport(c.Request.Context())
	if err != nil {
		response.FromError(c, "Failed to get delay report", err)
		return
	}
	response.Success(c, report)
}
