package service

import (
	"context"
	"time"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

type alertFeed interface {
	ActiveAlerts(ctx context.Context, region string, now time.Time) ([]models.HealthAlert, error)
}

// HealthAlertGenerator mirrors public-health alerts for the household's region.
// Age-banded alerts go to matching dependents; the rest go to the owner scope.
type HealthAlertGenerator struct {
	feed alertFeed
}

// NewHealthAlertGenerator constructs the generator.
func NewHealthAlertGenerator(feed alertFeed) *HealthAlertGenerator {
	return &HealthAlertGenerator{feed: feed}
}

// Domain implements CareEventGenerator.
func (g *HealthAlertGenerator) Domain() models.Domain { return models.DomainHealthAlert }

// Generate implements CareEventGenerator.
func (g *HealthAlertGenerator) Generate(ctx context.Context, scope models.Scope, now time.Time) ([]models.CareEventCandidate, error) {
	region := scope.Household.Region
	if region == "" {
		region = models.RegionNationwide
	}
	alerts, err := g.feed.ActiveAlerts(ctx, region, now)
	if err != nil {
		return nil, err
	}

	var candidates []models.CareEventCandidate
	for _, alert := range alerts {
		if alert.Region != region && alert.Region != models.RegionNationwide {
			continue
		}
		if !alert.ActiveAt(now) || !alertTargets(alert, scope, now) {
			continue
		}
		var expires *time.Time
		if alert.ExpiresAt != nil {
			e := alert.ExpiresAt.UTC()
			expires = &e
		}
		candidates = append(candidates, models.CareEventCandidate{
			OwnerUserID:   scope.OwnerUserID(),
			SubjectID:     scope.SubjectID(),
			NaturalKey:    models.AlertKey(alert.ID),
			Title:         alert.Title,
			ScheduledTime: alert.PublishedAt.UTC(),
			Priority:      alertPriority(alert.Severity),
			Payload: models.AlertPayload{
				SourceAlertID: alert.ID,
				Title:         alert.Title,
				Message:       alert.Message,
				Severity:      alert.Severity,
				Region:        alert.Region,
				ExpiresAt:     expires,
			},
		})
	}
	sortCandidates(candidates)
	return candidates, nil
}

func alertTargets(alert models.HealthAlert, scope models.Scope, now time.Time) bool {
	if !alert.AgeTargeted() {
		return scope.Dependent == nil
	}
	if scope.Dependent == nil {
		return false
	}
	return alert.MatchesAge(models.AgeInMonths(scope.Dependent.BirthDate, now))
}

func alertPriority(severity models.AlertSeverity) models.Priority {
	switch severity {
	case models.SeverityCritical:
		return models.PriorityUrgent
	case models.SeverityWarning:
		return models.PriorityHigh
	default:
		return models.PriorityNormal
	}
}
