package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/care-reminder-api/internal/models"
	"github.com/noah-isme/care-reminder-api/internal/repository"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
	"github.com/noah-isme/care-reminder-api/pkg/telemetry"
)

type completionStore interface {
	Complete(ctx context.Context, params repository.CompleteParams) (*repository.CompletionOutcome, error)
}

// CompletionService finalises care events and credits the owner's progress.
type CompletionService struct {
	store     completionStore
	rewards   map[models.EventType]models.Reward
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewCompletionService constructs the service. A nil rewards map uses models.DefaultRewards.
func NewCompletionService(store completionStore, rewards map[models.EventType]models.Reward, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CompletionService {
	if rewards == nil {
		rewards = models.DefaultRewards
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{
		store:     store,
		rewards:   rewards,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		tracer:    telemetry.Tracer(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Complete marks a pending or active event completed. Explicit points and experience
// override the per-type defaults.
func (s *CompletionService) Complete(ctx context.Context, req models.CompleteRequest) (*models.CompletionResult, error) {
	if req.EventID == "" || req.OwnerUserID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event id and owner are required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid completion payload")
	}

	ctx, span := s.tracer.Start(ctx, "care.event.complete", trace.WithAttributes(
		attribute.String("owner_id", req.OwnerUserID),
		attribute.String("event_id", req.EventID),
	))
	defer span.End()

	outcome, err := s.store.Complete(ctx, repository.CompleteParams{
		EventID:     req.EventID,
		OwnerUserID: req.OwnerUserID,
		CompletedAt: s.now(),
		Reward:      func(ev *models.CareEvent) models.Reward { return s.rewardFor(ev.EventType, req) },
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "care event not found")
		case errors.Is(err, repository.ErrEventNotOpen):
			return nil, appErrors.Clone(appErrors.ErrConflict, "care event is already resolved")
		default:
			s.logger.Error("care event completion failed", zap.String("event_id", req.EventID), zap.Error(err))
			return nil, appErrors.Dependency(err, "failed to complete care event")
		}
	}

	s.metrics.RecordCompletion(outcome.Event.EventType)
	leveledUp := outcome.Progress.Level > outcome.PreviousLevel
	if leveledUp {
		s.logger.Info("owner leveled up",
			zap.String("owner_id", req.OwnerUserID),
			zap.Int("level", outcome.Progress.Level),
		)
	}

	return &models.CompletionResult{
		Success:          true,
		EventID:          outcome.Event.ID,
		PointsEarned:     outcome.Reward.Points,
		ExperienceEarned: outcome.Reward.Experience,
		NewTotals: models.ProgressTotals{
			Points:     outcome.Progress.TotalPoints,
			Experience: outcome.Progress.TotalExperience,
			Level:      outcome.Progress.Level,
		},
		LeveledUp: leveledUp,
	}, nil
}

func (s *CompletionService) rewardFor(eventType models.EventType, req models.CompleteRequest) models.Reward {
	reward := s.rewards[eventType]
	if req.Points != nil {
		reward.Points = *req.Points
	}
	if req.Experience != nil {
		reward.Experience = *req.Experience
	}
	return reward
}
