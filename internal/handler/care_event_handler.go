package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
	"github.com/noah-isme/care-reminder-api/pkg/response"
)

type careEventService interface {
	Get(ctx context.Context, ownerID, id string) (*models.CareEvent, error)
	ListPending(ctx context.Context, filter models.CareEventFilter) ([]models.CareEvent, error)
	Activate(ctx context.Context, ownerID, id string) (*models.CareEvent, error)
	Cancel(ctx context.Context, ownerID, id string) (*models.CareEvent, error)
	CreateCustom(ctx context.Context, ownerID string, req models.CreateCustomEventRequest) (*models.CareEvent, error)
}

type completionService interface {
	Complete(ctx context.Context, req models.CompleteRequest) (*models.CompletionResult, error)
}

// CareEventHandler exposes the care event lifecycle.
type CareEventHandler struct {
	events     careEventService
	completion completionService
}

// NewCareEventHandler constructs the handler.
func NewCareEventHandler(events careEventService, completion completionService) *CareEventHandler {
	return &CareEventHandler{events: events, completion: completion}
}

// List godoc
// @Summary List open care events
// @Description Pending (default) or active events for the authenticated owner, soonest first.
// @Tags CareEvents
// @Produce json
// @Param subject_id query string false "Dependent ID"
// @Param event_type query string false "Event type"
// @Param status query string false "Comma separated: pending,active"
// @Param limit query int false "Max rows (1-500)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /care-events [get]
func (h *CareEventHandler) List(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	filter := models.CareEventFilter{
		OwnerUserID: ownerID,
		SubjectID:   optionalQuery(c, "subject_id", "subjectId"),
		EventType:   models.EventType(strings.TrimSpace(c.Query("event_type"))),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Statuses = append(filter.Statuses, models.EventStatus(part))
			}
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	events, err := h.events.ListPending(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{"count": len(events)})
}

// Get godoc
// @Summary Get a care event
// @Tags CareEvents
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /care-events/{id} [get]
func (h *CareEventHandler) Get(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	event, err := h.events.Get(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Create godoc
// @Summary Create a custom reminder
// @Tags CareEvents
// @Accept json
// @Produce json
// @Param payload body models.CreateCustomEventRequest true "Custom event"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /care-events [post]
func (h *CareEventHandler) Create(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	var req models.CreateCustomEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid custom event payload"))
		return
	}
	event, err := h.events.CreateCustom(c.Request.Context(), ownerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Activate godoc
// @Summary Acknowledge a pending event
// @Tags CareEvents
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /care-events/{id}/activate [post]
func (h *CareEventHandler) Activate(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	event, err := h.events.Activate(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Cancel godoc
// @Summary Dismiss an open event
// @Tags CareEvents
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /care-events/{id}/cancel [post]
func (h *CareEventHandler) Cancel(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	event, err := h.events.Cancel(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Complete godoc
// @Summary Complete an event
// @Description Marks the event completed, applies its side effects and credits points and experience.
// @Tags CareEvents
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body models.CompleteRequest false "Reward overrides"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /care-events/{id}/complete [post]
func (h *CareEventHandler) Complete(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	var req models.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid completion payload"))
		return
	}
	req.EventID = c.Param("id")
	req.OwnerUserID = ownerID

	result, err := h.completion.Complete(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
