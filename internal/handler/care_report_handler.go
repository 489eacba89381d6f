package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/care-reminder-api/internal/service"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
	"github.com/noah-isme/care-reminder-api/pkg/response"
)

type careReportService interface {
	Export(ctx context.Context, q service.HistoryQuery) (*service.RenderedReport, error)
}

// CareReportHandler streams care history exports.
type CareReportHandler struct {
	service careReportService
}

// NewCareReportHandler constructs the handler.
func NewCareReportHandler(service careReportService) *CareReportHandler {
	return &CareReportHandler{service: service}
}

// Export godoc
// @Summary Export care history
// @Description Events scheduled in [from, to) rendered as CSV or PDF. Dates are YYYY-MM-DD or RFC3339.
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param from query string true "Start (inclusive)"
// @Param to query string true "End (exclusive)"
// @Param format query string false "csv or pdf"
// @Param subject_id query string false "Dependent ID"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/care-history [get]
func (h *CareReportHandler) Export(c *gin.Context) {
	ownerID := requireOwner(c)
	if ownerID == "" {
		return
	}
	from, err := parseReportTime(c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Validation(err, "from must be YYYY-MM-DD or RFC3339"))
		return
	}
	to, err := parseReportTime(c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Validation(err, "to must be YYYY-MM-DD or RFC3339"))
		return
	}

	report, err := h.service.Export(c.Request.Context(), service.HistoryQuery{
		OwnerUserID: ownerID,
		SubjectID:   optionalQuery(c, "subject_id", "subjectId"),
		From:        from,
		To:          to,
		Format:      service.ReportFormat(strings.ToLower(strings.TrimSpace(c.Query("format")))),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, report.Filename, report.ContentType, report.Body)
}

func parseReportTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
