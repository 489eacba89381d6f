package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
	"github.com/noah-isme/care-reminder-api/pkg/response"
)

type feedingService interface {
	ListSchedules(ctx context.Context, ownerID string, subjectID *string) ([]models.FeedingSchedule, error)
	RecordFeeding(ctx context.Context, ownerID, scheduleID string, fedAt *time.Time) (*models.FeedingSchedule, error)
}

// FeedingHandler exposes feeding schedules.
type FeedingHandler struct {
	service feedingService
}

// NewFeedingHandler constructs the handler.
func NewFeedingHandler(service feedingService) *FeedingHandler {
	return &FeedingHandler{service: service}
}

// List godoc
// @Summary List active feeding schedules
// @Tags Feeding
// @Produce json
// @Param subject_id query string false "Dependent ID"
// @Success 200 {object} response.Envelope
// @Router /feeding-schedules [get]
func (h *FeedingHandler) List(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	schedules, err := h.service.ListSchedules(c.Request.Context(), ownerID, optionalQuery(c, "subject_id", "subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules)
}

// RecordFeeding godoc
// @Summary Confirm a feeding
// @Description Records a feeding outside the reminder flow; fed_at defaults to now.
// @Tags Feeding
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body models.RecordFeedingRequest false "Feeding time"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /feeding-schedules/{id}/feedings [post]
func (h *FeedingHandler) RecordFeeding(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	var req models.RecordFeedingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feeding payload"))
		return
	}
	schedule, err := h.service.RecordFeeding(c.Request.Context(), ownerID, c.Param("id"), req.FedAt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}
