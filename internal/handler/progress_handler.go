package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/care-reminder-api/internal/models"
	"github.com/noah-isme/care-reminder-api/pkg/response"
)

type progressService interface {
	Progress(ctx context.Context, ownerID string) (*models.UserProgress, error)
}

// ProgressHandler exposes the caller's points and level.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(service progressService) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// Get godoc
// @Summary Get gamification progress
// @Tags Progress
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /progress [get]
func (h *ProgressHandler) Get(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	progress, err := h.service.Progress(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress)
}
