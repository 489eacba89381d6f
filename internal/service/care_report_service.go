package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
	"github.com/noah-isme/care-reminder-api/pkg/export"
)

// ReportFormat selects the rendered history format.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type historySource interface {
	ListHistory(ctx context.Context, ownerID string, subjectID *string, from, to time.Time) ([]models.CareEvent, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// HistoryQuery bounds an exported care history.
type HistoryQuery struct {
	OwnerUserID string
	SubjectID   *string
	From        time.Time
	To          time.Time
	Format      ReportFormat
}

// RenderedReport is a downloadable document.
type RenderedReport struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

var careHistoryColumns = []export.Column{
	{Key: "scheduled", Title: "Scheduled (UTC)", Width: 1.4},
	{Key: "type", Title: "Type", Width: 1.1},
	{Key: "title", Title: "Title", Width: 2.4},
	{Key: "subject", Title: "Subject", Width: 1.2},
	{Key: "priority", Title: "Priority", Width: 0.8},
	{Key: "status", Title: "Status", Width: 0.9},
	{Key: "completed", Title: "Completed (UTC)", Width: 1.4},
	{Key: "points", Title: "Points", Width: 0.6},
	{Key: "experience", Title: "XP", Width: 0.6},
}

// CareReportService renders an owner's care history as CSV or PDF.
type CareReportService struct {
	history  historySource
	csv      datasetRenderer
	pdf      datasetRenderer
	maxRange time.Duration
	logger   *zap.Logger
}

// NewCareReportService constructs the service; nil renderers use the pkg/export defaults.
func NewCareReportService(history historySource, maxRange time.Duration, logger *zap.Logger, csv, pdf datasetRenderer) *CareReportService {
	if maxRange <= 0 {
		maxRange = 366 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &CareReportService{history: history, csv: csv, pdf: pdf, maxRange: maxRange, logger: logger}
}

// Export renders events scheduled in [From, To).
func (s *CareReportService) Export(ctx context.Context, q HistoryQuery) (*RenderedReport, error) {
	if q.OwnerUserID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner id is required")
	}
	if q.From.IsZero() || q.To.IsZero() || !q.To.After(q.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}
	if q.To.Sub(q.From) > s.maxRange {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("range exceeds %s", s.maxRange))
	}

	var (
		renderer    datasetRenderer
		contentType string
	)
	switch q.Format {
	case ReportFormatCSV, "":
		q.Format = ReportFormatCSV
		renderer, contentType = s.csv, "text/csv"
	case ReportFormatPDF:
		renderer, contentType = s.pdf, "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	events, err := s.history.ListHistory(ctx, q.OwnerUserID, q.SubjectID, q.From.UTC(), q.To.UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load care history")
	}

	dataset := BuildHistoryDataset(events, q.From, q.To)
	body, err := renderer.Render(dataset)
	if err != nil {
		s.logger.Error("care history render failed", zap.String("format", string(q.Format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render care history")
	}

	return &RenderedReport{
		Filename:    fmt.Sprintf("care-history_%s_%s.%s", q.From.UTC().Format("20060102"), q.To.UTC().Format("20060102"), q.Format),
		ContentType: contentType,
		Body:        body,
		Rows:        len(events),
	}, nil
}

// BuildHistoryDataset maps events onto the export table.
func BuildHistoryDataset(events []models.CareEvent, from, to time.Time) export.Dataset {
	rows := make([]map[string]string, 0, len(events))
	for _, ev := range events {
		completed := ""
		if ev.CompletedAt != nil {
			completed = ev.CompletedAt.UTC().Format(time.RFC3339)
		}
		subject := "self"
		if ev.SubjectID != nil {
			subject = *ev.SubjectID
		}
		rows = append(rows, map[string]string{
			"scheduled":  ev.ScheduledTime.UTC().Format(time.RFC3339),
			"type":       string(ev.EventType),
			"title":      ev.Title,
			"subject":    subject,
			"priority":   string(ev.Priority),
			"status":     string(ev.Status),
			"completed":  completed,
			"points":     strconv.Itoa(ev.PointsEarned),
			"experience": strconv.Itoa(ev.ExperienceEarned),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Care history %s to %s", from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02")),
		Columns: careHistoryColumns,
		Rows:    rows,
	}
}
