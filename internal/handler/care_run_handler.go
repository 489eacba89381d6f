package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/care-reminder-api/internal/models"
	"github.com/noah-isme/care-reminder-api/pkg/response"
)

type generationRunner interface {
	RunForOwner(ctx context.Context, ownerID string) (*models.GenerationReport, error)
}

type adjustmentRunner interface {
	Run(ctx context.Context, ownerID string) (*models.AdjustmentReport, error)
}

// CareRunHandler triggers on-demand generation and priority adjustment for the caller's household.
type CareRunHandler struct {
	generation generationRunner
	adjuster   adjustmentRunner
}

// NewCareRunHandler constructs the handler.
func NewCareRunHandler(generation generationRunner, adjuster adjustmentRunner) *CareRunHandler {
	return &CareRunHandler{generation: generation, adjuster: adjuster}
}

// Generate godoc
// @Summary Generate care events now
// @Description Runs every generator for the owner and each dependent. Re-running is idempotent.
// @Tags CareRuns
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /care-runs/generate [post]
func (h *CareRunHandler) Generate(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	report, err := h.generation.RunForOwner(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Adjust godoc
// @Summary Re-prioritise pending events from recent behaviour
// @Tags CareRuns
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /care-runs/adjust [post]
func (h *CareRunHandler) Adjust(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	report, err := h.adjuster.Run(c.Request.Context(), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}
