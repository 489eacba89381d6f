package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/care-reminder-api/internal/models"
	"github.com/noah-isme/care-reminder-api/internal/repository"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
)

const feedingClockSkew = 5 * time.Minute

type feedingRecorder interface {
	ListActive(ctx context.Context, ownerID string, subjectID *string) ([]models.FeedingSchedule, error)
	RecordFeeding(ctx context.Context, id, ownerID string, fedAt time.Time) (*models.FeedingSchedule, error)
}

// FeedingService manages feeding schedules outside of the reminder flow.
type FeedingService struct {
	schedules feedingRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewFeedingService constructs the service.
func NewFeedingService(schedules feedingRecorder, logger *zap.Logger) *FeedingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedingService{schedules: schedules, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ListSchedules returns the owner's active schedules, optionally for one subject.
func (s *FeedingService) ListSchedules(ctx context.Context, ownerID string, subjectID *string) ([]models.FeedingSchedule, error) {
	schedules, err := s.schedules.ListActive(ctx, ownerID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feeding schedules")
	}
	if schedules == nil {
		schedules = []models.FeedingSchedule{}
	}
	return schedules, nil
}

// RecordFeeding confirms a feeding at fedAt, or now when nil. The next reminder is computed from it.
func (s *FeedingService) RecordFeeding(ctx context.Context, ownerID, scheduleID string, fedAt *time.Time) (*models.FeedingSchedule, error) {
	now := s.now()
	at := now
	if fedAt != nil {
		at = fedAt.UTC()
	}
	if at.After(now.Add(feedingClockSkew)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fed_at cannot be in the future")
	}

	schedule, err := s.schedules.RecordFeeding(ctx, scheduleID, ownerID, at)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feeding schedule not found")
		case errors.Is(err, repository.ErrFeedingNotAdvanced):
			return nil, appErrors.Validation(err, "fed_at is earlier than the last recorded feeding")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record feeding")
		}
	}
	s.logger.Debug("feeding recorded", zap.String("schedule_id", scheduleID), zap.Time("fed_at", at))
	return schedule, nil
}
