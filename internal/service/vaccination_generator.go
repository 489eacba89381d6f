package service

import (
	"context"
	"time"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
)

type ageScheduleSource interface {
	ListItems(ctx context.Context) ([]models.AgeScheduleItem, error)
	ListAdministered(ctx context.Context, subjectID string) (map[models.AdministeredKey]struct{}, error)
}

// VaccinationGenerator applies the master vaccination, checkup and milestone schedule to a dependent.
type VaccinationGenerator struct {
	source ageScheduleSource
}

// NewVaccinationGenerator constructs the generator.
func NewVaccinationGenerator(source ageScheduleSource) *VaccinationGenerator {
	return &VaccinationGenerator{source: source}
}

// Domain implements CareEventGenerator.
func (g *VaccinationGenerator) Domain() models.Domain { return models.DomainVaccination }

// Generate implements CareEventGenerator. The owner scope has no age and yields nothing.
func (g *VaccinationGenerator) Generate(ctx context.Context, scope models.Scope, now time.Time) ([]models.CareEventCandidate, error) {
	dep := scope.Dependent
	if dep == nil {
		return nil, nil
	}
	if dep.BirthDate.IsZero() {
		return nil, appErrors.Validation(nil, "dependent "+dep.ID+" has no birth date")
	}

	items, err := g.source.ListItems(ctx)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to load age schedule")
	}
	administered, err := g.source.ListAdministered(ctx, dep.ID)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to load administered records")
	}

	age := models.AgeInMonths(dep.BirthDate, now)
	today := now.UTC().Truncate(24 * time.Hour)

	var candidates []models.CareEventCandidate
	for _, item := range items {
		if !item.Applies(age, dep.Gender) {
			continue
		}
		if _, done := administered[models.AdministeredKey{ScheduleItemID: item.ID, DoseNumber: item.DoseNumber}]; done {
			continue
		}

		scheduled := dep.BirthDate.AddDate(0, item.MinAgeMonths, 0).UTC()
		if scheduled.Before(today) {
			scheduled = today
		}
		maxAge := 0
		if item.MaxAgeMonths != nil {
			maxAge = *item.MaxAgeMonths
		}

		candidates = append(candidates, models.CareEventCandidate{
			OwnerUserID:   scope.OwnerUserID(),
			SubjectID:     scope.SubjectID(),
			NaturalKey:    models.AgeScheduleKey(item.ID, item.DoseNumber),
			Title:         item.Name,
			ScheduledTime: scheduled,
			Priority:      agePriority(item, age),
			Payload: models.AgeSchedulePayload{
				ScheduleItemID: item.ID,
				Name:           item.Name,
				Kind:           item.Kind,
				DoseNumber:     item.DoseNumber,
				Requirement:    item.Requirement,
				AgeMonths:      age,
				MinAgeMonths:   item.MinAgeMonths,
				MaxAgeMonths:   maxAge,
			},
		})
	}
	sortCandidates(candidates)
	return candidates, nil
}

// agePriority: required rows are high, urgent in the final month of their window.
func agePriority(item models.AgeScheduleItem, age int) models.Priority {
	switch item.Requirement {
	case models.RequirementRequired:
		if item.MaxAgeMonths != nil && age == *item.MaxAgeMonths {
			return models.PriorityUrgent
		}
		return models.PriorityHigh
	case models.RequirementOptional:
		return models.PriorityLow
	default:
		return models.PriorityNormal
	}
}
