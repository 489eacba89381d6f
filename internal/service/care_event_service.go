package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/care-reminder-api/internal/models"
	"github.com/noah-isme/care-reminder-api/internal/repository"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
)

type careEventStore interface {
	UpsertIfAbsent(ctx context.Context, candidate models.CareEventCandidate) (*models.UpsertResult, error)
	GetForOwner(ctx context.Context, id, ownerID string) (*models.CareEvent, error)
	ListPending(ctx context.Context, filter models.CareEventFilter) ([]models.CareEvent, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, types []models.EventType, limit int) ([]models.CareEvent, error)
	MarkMissed(ctx context.Context, ids []string) (int64, error)
	ExpireAlerts(ctx context.Context, now time.Time) (int64, error)
	Activate(ctx context.Context, id, ownerID string) (*models.CareEvent, error)
	Cancel(ctx context.Context, id, ownerID string) (*models.CareEvent, error)
}

type alertInvalidator interface {
	Invalidate(ctx context.Context) error
}

type progressReader interface {
	Get(ctx context.Context, userID string) (*models.UserProgress, error)
}

// SweepConfig sets how long past its scheduled time an open event may stay open.
type SweepConfig struct {
	Grace     time.Duration
	GraceLong time.Duration
	BatchSize int
}

var (
	shortGraceTypes = []models.EventType{models.EventTypeMedication, models.EventTypeFeeding, models.EventTypeCustom}
	longGraceTypes  = []models.EventType{models.EventTypeVaccination, models.EventTypeCheckup, models.EventTypeLifecycleMilestone}
)

// CareEventService exposes the user-facing lifecycle of care events.
type CareEventService struct {
	store     careEventStore
	progress  progressReader
	validator *validator.Validate
	sweep     SweepConfig
	metrics   *MetricsService
	logger    *zap.Logger
	alerts    alertInvalidator
}

// NewCareEventService constructs the service.
func NewCareEventService(store careEventStore, progress progressReader, validate *validator.Validate, sweep SweepConfig, metrics *MetricsService, logger *zap.Logger) *CareEventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sweep.Grace <= 0 {
		sweep.Grace = 2 * time.Hour
	}
	if sweep.GraceLong <= 0 {
		sweep.GraceLong = 7 * 24 * time.Hour
	}
	if sweep.BatchSize <= 0 {
		sweep.BatchSize = 200
	}
	return &CareEventService{
		store:     store,
		progress:  progress,
		validator: validate,
		sweep:     sweep,
		metrics:   metrics,
		logger:    logger,
	}
}

// UseAlertFeed makes the sweep drop the cached alert feed whenever it expires alert events.
func (s *CareEventService) UseAlertFeed(alerts alertInvalidator) {
	s.alerts = alerts
}

// Get returns one event owned by ownerID.
func (s *CareEventService) Get(ctx context.Context, ownerID, id string) (*models.CareEvent, error) {
	event, err := s.store.GetForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, mapEventError(err, "failed to load care event")
	}
	return event, nil
}

// ListPending returns the owner's open events, soonest first.
func (s *CareEventService) ListPending(ctx context.Context, filter models.CareEventFilter) ([]models.CareEvent, error) {
	if filter.OwnerUserID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner id is required")
	}
	if filter.EventType != "" && !filter.EventType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown event type")
	}
	for _, status := range filter.Statuses {
		if !status.Open() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "only pending or active events can be listed")
		}
	}
	events, err := s.store.ListPending(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list care events")
	}
	if events == nil {
		events = []models.CareEvent{}
	}
	return events, nil
}

// Activate acknowledges a pending event.
func (s *CareEventService) Activate(ctx context.Context, ownerID, id string) (*models.CareEvent, error) {
	event, err := s.store.Activate(ctx, id, ownerID)
	if err != nil {
		return nil, mapEventError(err, "failed to activate care event")
	}
	return event, nil
}

// Cancel dismisses an open event. A cancelled occurrence is not regenerated.
func (s *CareEventService) Cancel(ctx context.Context, ownerID, id string) (*models.CareEvent, error) {
	event, err := s.store.Cancel(ctx, id, ownerID)
	if err != nil {
		return nil, mapEventError(err, "failed to cancel care event")
	}
	s.logger.Info("care event cancelled", zap.String("owner_id", ownerID), zap.String("event_id", id))
	return event, nil
}

// CreateCustom stores a user-authored reminder.
func (s *CareEventService) CreateCustom(ctx context.Context, ownerID string, req models.CreateCustomEventRequest) (*models.CareEvent, error) {
	if ownerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner id is required")
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid custom event payload")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	result, err := s.store.UpsertIfAbsent(ctx, models.CareEventCandidate{
		OwnerUserID:   ownerID,
		SubjectID:     req.SubjectID,
		NaturalKey:    models.CustomKey(uuid.NewString()),
		Title:         req.Title,
		ScheduledTime: req.ScheduledTime.UTC(),
		Priority:      priority,
		Payload:       models.CustomPayload{Title: req.Title, Notes: req.Notes},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create custom event")
	}
	return result.Event, nil
}

// Progress returns the owner's cumulative points, experience and level.
func (s *CareEventService) Progress(ctx context.Context, ownerID string) (*models.UserProgress, error) {
	if ownerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner id is required")
	}
	progress, err := s.progress.Get(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}
	return progress, nil
}

// SweepMissed marks open events past their grace period as missed and cancels expired alert events.
// Alerts are never marked missed.
func (s *CareEventService) SweepMissed(ctx context.Context, now time.Time) (*models.SweepReport, error) {
	start := time.Now()
	report := &models.SweepReport{}

	for _, pass := range []struct {
		types []models.EventType
		grace time.Duration
	}{
		{types: shortGraceTypes, grace: s.sweep.Grace},
		{types: longGraceTypes, grace: s.sweep.GraceLong},
	} {
		marked, err := s.sweepBatch(ctx, now.Add(-pass.grace), pass.types)
		report.Marked += marked
		if err != nil {
			s.metrics.RecordMissed(report.Marked)
			return report, appErrors.Dependency(err, "missed sweep failed")
		}
	}

	expired, err := s.store.ExpireAlerts(ctx, now)
	if err != nil {
		s.metrics.RecordMissed(report.Marked)
		return report, appErrors.Dependency(err, "alert expiry failed")
	}

	report.AlertsExpired = int(expired)
	if expired > 0 && s.alerts != nil {
		if err := s.alerts.Invalidate(ctx); err != nil {
			s.logger.Warn("alert feed invalidation failed", zap.Error(err))
		}
	}
	report.Duration = time.Since(start)
	s.metrics.RecordMissed(report.Marked)
	s.logger.Info("missed sweep finished",
		zap.Int("marked", report.Marked),
		zap.Int("alerts_expired", report.AlertsExpired),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *CareEventService) sweepBatch(ctx context.Context, cutoff time.Time, types []models.EventType) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		overdue, err := s.store.ListPendingOlderThan(ctx, cutoff, types, s.sweep.BatchSize)
		if err != nil {
			return total, err
		}
		if len(overdue) == 0 {
			return total, nil
		}
		ids := make([]string, len(overdue))
		for i, ev := range overdue {
			ids[i] = ev.ID
		}
		marked, err := s.store.MarkMissed(ctx, ids)
		if err != nil {
			return total, err
		}
		total += int(marked)
		// A short page, or a page that changed nothing, means the backlog is drained.
		if len(overdue) < s.sweep.BatchSize || marked == 0 {
			return total, nil
		}
	}
}

func mapEventError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "care event not found")
	case errors.Is(err, repository.ErrEventNotOpen):
		return appErrors.Clone(appErrors.ErrConflict, "care event is not open")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
