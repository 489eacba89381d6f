package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
)

type feedingScheduleSource interface {
	ListActive(ctx context.Context, ownerID string, subjectID *string) ([]models.FeedingSchedule, error)
}

type feedingEventState interface {
	HasOpenFeeding(ctx context.Context, ownerID, scheduleID string) (bool, error)
	LatestFeedingAnchor(ctx context.Context, ownerID, scheduleID string) (*models.FeedingAnchor, error)
}

// FeedingGenerator emits at most one reminder per schedule for its next due instant.
type FeedingGenerator struct {
	schedules feedingScheduleSource
	events    feedingEventState
	validator *validator.Validate
}

// NewFeedingGenerator constructs the generator.
func NewFeedingGenerator(schedules feedingScheduleSource, events feedingEventState, validate *validator.Validate) *FeedingGenerator {
	if validate == nil {
		validate = validator.New()
	}
	return &FeedingGenerator{schedules: schedules, events: events, validator: validate}
}

// Domain implements CareEventGenerator.
func (g *FeedingGenerator) Domain() models.Domain { return models.DomainFeeding }

// Generate implements CareEventGenerator.
func (g *FeedingGenerator) Generate(ctx context.Context, scope models.Scope, now time.Time) ([]models.CareEventCandidate, error) {
	schedules, err := g.schedules.ListActive(ctx, scope.OwnerUserID(), scope.SubjectID())
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to load feeding schedules")
	}

	var (
		candidates []models.CareEventCandidate
		problems   []error
	)
	for _, schedule := range schedules {
		if !schedule.IsActive {
			continue
		}
		if err := g.validator.Struct(schedule); err != nil {
			problems = append(problems, fmt.Errorf("feeding schedule %s: %w", schedule.ID, err))
			continue
		}

		open, err := g.events.HasOpenFeeding(ctx, scope.OwnerUserID(), schedule.ID)
		if err != nil {
			return candidates, appErrors.Dependency(err, "failed to inspect feeding events")
		}
		if open {
			continue
		}
		anchor, err := g.events.LatestFeedingAnchor(ctx, scope.OwnerUserID(), schedule.ID)
		if err != nil {
			return candidates, appErrors.Dependency(err, "failed to inspect feeding events")
		}

		due := nextFeedingDue(schedule, anchor, now)
		if now.Before(due.Add(-schedule.Lead())) {
			continue
		}
		overdue := 0
		if now.After(due) {
			overdue = int(now.Sub(due) / time.Minute)
		}
		intensity := feedingIntensity(overdue)
		priority := models.PriorityNormal
		if intensity >= 3 {
			priority = models.PriorityHigh
		}

		candidates = append(candidates, models.CareEventCandidate{
			OwnerUserID:   scope.OwnerUserID(),
			SubjectID:     scope.SubjectID(),
			NaturalKey:    models.FeedingKey(schedule.ID, due),
			Title:         feedingTitle(schedule),
			ScheduledTime: due.UTC(),
			Priority:      priority,
			Payload: models.FeedingPayload{
				ScheduleID:     schedule.ID,
				FoodType:       schedule.FoodType,
				Amount:         schedule.Amount,
				IntervalHours:  schedule.IntervalHours,
				DueAt:          due.UTC(),
				OverdueMinutes: overdue,
				Intensity:      intensity,
			},
		})
	}
	sortCandidates(candidates)

	if len(problems) > 0 {
		return candidates, appErrors.Validation(errors.Join(problems...), "invalid feeding schedules skipped")
	}
	return candidates, nil
}

// nextFeedingDue advances from the last confirmed feeding, or from a later missed/cancelled
// reminder so an ignored reminder is not re-issued for the same instant.
func nextFeedingDue(schedule models.FeedingSchedule, anchor *models.FeedingAnchor, now time.Time) time.Time {
	var base time.Time
	switch {
	case schedule.LastFeedingTime != nil:
		base = *schedule.LastFeedingTime
	case !schedule.CreatedAt.IsZero():
		base = schedule.CreatedAt
	default:
		base = now
	}
	if anchor != nil && anchor.ScheduledTime.After(base) {
		base = anchor.ScheduledTime
	}
	return base.Add(schedule.Interval())
}

// feedingIntensity grades how late a feeding is: 0 on time, 1 late, 2 over 30 minutes, 3 over an hour.
func feedingIntensity(overdueMinutes int) int {
	switch {
	case overdueMinutes <= 0:
		return 0
	case overdueMinutes < 30:
		return 1
	case overdueMinutes < 60:
		return 2
	default:
		return 3
	}
}

func feedingTitle(schedule models.FeedingSchedule) string {
	if schedule.FoodType == "" {
		return "Feeding"
	}
	return "Feeding: " + schedule.FoodType
}
