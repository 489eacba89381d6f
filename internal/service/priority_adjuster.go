package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
	"github.com/noah-isme/care-reminder-api/pkg/telemetry"
)

const (
	escalateMissThreshold       = 3
	deescalateCompleteThreshold = 5
	defaultBehaviorWindow       = 30 * 24 * time.Hour
	adjusterPendingLimit        = 500
)

type adjusterStore interface {
	ListPending(ctx context.Context, filter models.CareEventFilter) ([]models.CareEvent, error)
	ListResolvedSince(ctx context.Context, ownerID string, since time.Time) ([]models.ResolvedEvent, error)
	ApplyPriorityAdjustment(ctx context.Context, adj *models.PriorityAdjustment) (bool, error)
}

// PriorityAdjusterConfig tunes the behaviour window and re-adjustment cool-down.
type PriorityAdjusterConfig struct {
	Window   time.Duration
	Cooldown time.Duration
}

// PriorityAdjuster re-prioritises pending events from the owner's recent completion behaviour.
type PriorityAdjuster struct {
	store   adjusterStore
	config  PriorityAdjusterConfig
	metrics *MetricsService
	logger  *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewPriorityAdjuster constructs the adjuster.
func NewPriorityAdjuster(store adjusterStore, config PriorityAdjusterConfig, metrics *MetricsService, logger *zap.Logger) *PriorityAdjuster {
	if config.Window <= 0 {
		config.Window = defaultBehaviorWindow
	}
	if config.Cooldown < 0 {
		config.Cooldown = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriorityAdjuster{
		store:   store,
		config:  config,
		metrics: metrics,
		logger:  logger,
		tracer:  telemetry.Tracer(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run recomputes behaviour stats for an owner and applies at most one tier change per pending event.
// Adjustments that lose a race with a concurrent transition are skipped.
func (a *PriorityAdjuster) Run(ctx context.Context, ownerID string) (*models.AdjustmentReport, error) {
	if ownerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner id is required")
	}
	ctx, span := a.tracer.Start(ctx, "care.priority.adjust", trace.WithAttributes(attribute.String("owner_id", ownerID)))
	defer span.End()

	start := time.Now()
	now := a.now()
	report := &models.AdjustmentReport{OwnerUserID: ownerID, Applied: []models.PriorityAdjustment{}}

	resolved, err := a.store.ListResolvedSince(ctx, ownerID, now.Add(-a.config.Window))
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to load resolved events")
	}
	pending, err := a.store.ListPending(ctx, models.CareEventFilter{
		OwnerUserID: ownerID,
		Statuses:    []models.EventStatus{models.EventStatusPending},
		Limit:       adjusterPendingLimit,
	})
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to load pending events")
	}
	report.Evaluated = len(pending)

	plan := PlanAdjustments(pending, BuildBehaviorStats(resolved), now, a.config.Cooldown)
	for i := range plan {
		adj := plan[i]
		applied, err := a.store.ApplyPriorityAdjustment(ctx, &adj)
		if err != nil {
			report.Duration = time.Since(start)
			a.logger.Error("priority adjustment failed", zap.String("owner_id", ownerID), zap.String("event_id", adj.EventID), zap.Error(err))
			return report, appErrors.Dependency(err, "failed to persist priority adjustment")
		}
		if !applied {
			report.Skipped++
			continue
		}
		report.Applied = append(report.Applied, adj)
		a.metrics.RecordAdjustment(adj.Reason)
	}

	report.Duration = time.Since(start)
	span.SetAttributes(attribute.Int("care.adjusted", len(report.Applied)))
	a.logger.Info("priority adjustment finished",
		zap.String("owner_id", ownerID),
		zap.Int("evaluated", report.Evaluated),
		zap.Int("applied", len(report.Applied)),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// BuildBehaviorStats groups resolved events per owner, subject and category.
func BuildBehaviorStats(resolved []models.ResolvedEvent) map[models.BehaviorKey]*models.BehaviorStat {
	stats := make(map[models.BehaviorKey]*models.BehaviorStat)
	for _, ev := range resolved {
		key := models.BehaviorKey{
			OwnerUserID: ev.OwnerUserID,
			SubjectID:   subjectValue(ev.SubjectID),
			Category:    ev.EventType.Category(),
		}
		stat, ok := stats[key]
		if !ok {
			stat = &models.BehaviorStat{Key: key}
			stats[key] = stat
		}
		stat.Record(ev)
	}
	return stats
}

// PlanAdjustments decides the tier change for each pending event. Escalation wins over
// de-escalation. Once an event has been adjusted, a further change in the same direction
// needs fresh evidence resolved after the previous adjustment and an elapsed cool-down.
func PlanAdjustments(pending []models.CareEvent, stats map[models.BehaviorKey]*models.BehaviorStat, now time.Time, cooldown time.Duration) []models.PriorityAdjustment {
	var plan []models.PriorityAdjustment
	for _, ev := range pending {
		if ev.Status != models.EventStatusPending {
			continue
		}
		category := ev.EventType.Category()
		if category.Pinned() {
			continue
		}
		stat := stats[models.BehaviorKey{OwnerUserID: ev.OwnerUserID, SubjectID: ev.SubjectKey(), Category: category}]
		if stat == nil {
			continue
		}
		if ev.PriorityAdjustedAt != nil && cooldown > 0 && now.Sub(*ev.PriorityAdjustedAt) < cooldown {
			continue
		}

		var (
			next   models.Priority
			reason models.AdjustmentReason
		)
		switch {
		case stat.Missed >= escalateMissThreshold && ev.Priority != models.PriorityUrgent &&
			freshSince(ev.PriorityAdjustedAt, stat.MissedSince):
			next, reason = ev.Priority.Escalate(), models.ReasonRepeatedMisses
		case stat.Missed < escalateMissThreshold && stat.Completed >= deescalateCompleteThreshold &&
			ev.Priority.Below(models.PriorityHigh) && ev.Priority != models.PriorityLow &&
			freshSince(ev.PriorityAdjustedAt, stat.CompletedSince):
			next, reason = ev.Priority.Deescalate(), models.ReasonConsistentCompletions
		default:
			continue
		}
		if next == ev.Priority {
			continue
		}
		plan = append(plan, models.PriorityAdjustment{
			EventID:     ev.ID,
			OldPriority: ev.Priority,
			NewPriority: next,
			Reason:      reason,
			AdjustedAt:  now,
		})
	}
	return plan
}

func freshSince(watermark *time.Time, countSince func(time.Time) int) bool {
	if watermark == nil {
		return true
	}
	return countSince(*watermark) > 0
}

func subjectValue(subjectID *string) string {
	if subjectID == nil {
		return ""
	}
	return *subjectID
}
