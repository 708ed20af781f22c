package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lahah11/finale-anesp-sub000/internal/application/apperr"
	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
	"github.com/lahah11/finale-anesp-sub000/internal/application/service"
	"github.com/lahah11/finale-anesp-sub000/internal/application/workflow"
	"github.com/lahah11/finale-anesp-sub000/internal/export"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	missions  service.MissionService
	engine    workflow.Engine
	documents service.DocumentService
	logistics *service.LogisticsService
	exporter  *export.RegisterExporter
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	missions service.MissionService,
	engine workflow.Engine,
	documents service.DocumentService,
	logistics *service.LogisticsService,
	exporter *export.RegisterExporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		missions:  missions,
		engine:    engine,
		documents: documents,
		logistics: logistics,
		exporter:  exporter,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateMissionRequest is the mission creation payload
type CreateMissionRequest struct {
	service.CreateMissionInput
	ActorID       int64 `json:"actor_id" binding:"required"`
	InstitutionID int64 `json:"institution_id" binding:"required"`
}

// ValidateRequest is the payload for a validation decision
type ValidateRequest struct {
	ActorID int64  `json:"actor_id" binding:"required"`
	Action  string `json:"action" binding:"required"`
	Reason  string `json:"reason,omitempty"`
}

// LogisticsRequest is the payload for logistics assignment
type LogisticsRequest struct {
	ActorID   int64  `json:"actor_id" binding:"required"`
	VehicleID *int64 `json:"vehicle_id,omitempty"`
	DriverID  *int64 `json:"driver_id,omitempty"`
	TicketRef string `json:"ticket_ref,omitempty"`
}

// DocumentsRequest is the payload for the closure document upload
type DocumentsRequest struct {
	ActorID          int64  `json:"actor_id" binding:"required"`
	ReportURL        string `json:"report_url"`
	StampedOrdersURL string `json:"stamped_orders_url"`
}

// VerifyRequest is the payload for document verification
type VerifyRequest struct {
	ActorID int64  `json:"actor_id" binding:"required"`
	Action  string `json:"action" binding:"required"`
	Notes   string `json:"notes,omitempty"`
}

// ActorRequest is the payload for operations needing only the actor
type ActorRequest struct {
	ActorID int64 `json:"actor_id" binding:"required"`
}

// TransitionResponse reports a workflow transition outcome
type TransitionResponse struct {
	MissionID       int64  `json:"mission_id"`
	Status          string `json:"status"`
	CurrentStep     int    `json:"current_step"`
	Rejected        bool   `json:"rejected"`
	NextValidatorID *int64 `json:"next_validator_id,omitempty"`
}

func transitionResponse(result *workflow.TransitionResult) TransitionResponse {
	resp := TransitionResponse{
		MissionID:   result.Mission.ID,
		Status:      result.Mission.Status,
		CurrentStep: result.Mission.CurrentStep,
		Rejected:    result.Rejected,
	}
	if result.NextValidator != nil {
		resp.NextValidatorID = &result.NextValidator.ID
	}
	return resp
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateMission handles POST /api/missions
func (h *Handlers) CreateMission(c *gin.Context) {
	var req CreateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	mission, err := h.missions.Create(c.Request.Context(), req.CreateMissionInput, req.ActorID, req.InstitutionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: mission})
}

// ListMissions handles GET /api/missions
func (h *Handlers) ListMissions(c *gin.Context) {
	institutionID, ok := h.queryInt64(c, "institution_id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	missions, err := h.missions.List(c.Request.Context(), institutionID, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: missions})
}

// GetMission handles GET /api/missions/:id
func (h *Handlers) GetMission(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}

	mission, err := h.missions.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: mission})
}

// GetParticipants handles GET /api/missions/:id/participants
func (h *Handlers) GetParticipants(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}

	participants, err := h.missions.Participants(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: participants})
}

// GetMissionStatus handles GET /api/missions/:id/status
func (h *Handlers) GetMissionStatus(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}

	status, err := h.missions.Status(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: status})
}

// ValidateTechnical handles POST /api/missions/:id/validate/technical
func (h *Handlers) ValidateTechnical(c *gin.Context) {
	h.validate(c, h.engine.ValidateTechnical)
}

// ValidateFinance handles POST /api/missions/:id/validate/finance
func (h *Handlers) ValidateFinance(c *gin.Context) {
	h.validate(c, h.engine.ValidateFinance)
}

// ValidateFinal handles POST /api/missions/:id/validate/final
func (h *Handlers) ValidateFinal(c *gin.Context) {
	h.validate(c, h.engine.ValidateFinal)
}

type validateFunc func(ctx context.Context, missionID, actorID int64, action, reason string) (*workflow.TransitionResult, error)

func (h *Handlers) validate(c *gin.Context, fn validateFunc) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	result, err := fn(c.Request.Context(), id, req.ActorID, req.Action, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: transitionResponse(result)})
}

// AssignLogistics handles POST /api/missions/:id/logistics
func (h *Handlers) AssignLogistics(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}

	var req LogisticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	result, err := h.engine.AssignLogistics(c.Request.Context(), id, req.ActorID, port.LogisticsRequest{
		VehicleID: req.VehicleID,
		DriverID:  req.DriverID,
		TicketRef: req.TicketRef,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: transitionResponse(result)})
}

// Resubmit handles POST /api/missions/:id/resubmit
func (h *Handlers) Resubmit(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}

	var req ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	result, err := h.engine.Resubmit(c.Request.Context(), id, req.ActorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: transitionResponse(result)})
}

// UploadDocuments handles POST /api/missions/:id/documents
func (h *Handlers) UploadDocuments(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}

	var req DocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	result, err := h.documents.UploadDocuments(c.Request.Context(), id, req.ActorID, req.ReportURL, req.StampedOrdersURL)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: transitionResponse(result)})
}

// VerifyAndClose handles POST /api/missions/:id/verify
func (h *Handlers) VerifyAndClose(c *gin.Context) {
	id, ok := h.paramID(c)
	if !ok {
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	result, err := h.documents.VerifyAndClose(c.Request.Context(), id, req.ActorID, req.Action, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: transitionResponse(result)})
}

// AvailableVehicles handles GET /api/vehicles/available
func (h *Handlers) AvailableVehicles(c *gin.Context) {
	institutionID, ok := h.queryInt64(c, "institution_id")
	if !ok {
		return
	}

	vehicles, err := h.logistics.AvailableVehicles(c.Request.Context(), institutionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: vehicles})
}

// AvailableDrivers handles GET /api/drivers/available
func (h *Handlers) AvailableDrivers(c *gin.Context) {
	institutionID, ok := h.queryInt64(c, "institution_id")
	if !ok {
		return
	}

	drivers, err := h.logistics.AvailableDrivers(c.Request.Context(), institutionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: drivers})
}

// ExportRegister handles GET /api/missions/export
func (h *Handlers) ExportRegister(c *gin.Context) {
	institutionID, ok := h.queryInt64(c, "institution_id")
	if !ok {
		return
	}

	data, err := h.exporter.Export(c.Request.Context(), institutionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := export.Filename(institutionID, time.Now())
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *Handlers) paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid mission id")
		return 0, false
	}
	return id, true
}

func (h *Handlers) queryInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || v <= 0 {
		h.badRequest(c, "invalid or missing "+name)
		return 0, false
	}
	return v, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// respondError maps application errors to HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, apperr.ErrStateConflict), errors.Is(err, apperr.ErrResourceUnavailable):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Internal error", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}
