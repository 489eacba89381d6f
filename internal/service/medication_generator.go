package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
)

const (
	minMedicationLookahead     = 24 * time.Hour
	maxMedicationLookahead     = 48 * time.Hour
	defaultMedicationLookahead = 24 * time.Hour
)

type prescriptionSource interface {
	ListActive(ctx context.Context, ownerID string, subjectID *string, asOf time.Time) ([]models.Prescription, error)
}

// MedicationGenerator emits one candidate per dose occurrence inside the lookahead window.
type MedicationGenerator struct {
	source    prescriptionSource
	lookahead time.Duration
}

// NewMedicationGenerator constructs the generator; lookahead outside 24h-48h falls back to 24h.
func NewMedicationGenerator(source prescriptionSource, lookahead time.Duration) *MedicationGenerator {
	if lookahead < minMedicationLookahead || lookahead > maxMedicationLookahead {
		lookahead = defaultMedicationLookahead
	}
	return &MedicationGenerator{source: source, lookahead: lookahead}
}

// Domain implements CareEventGenerator.
func (g *MedicationGenerator) Domain() models.Domain { return models.DomainMedication }

// Generate implements CareEventGenerator.
func (g *MedicationGenerator) Generate(ctx context.Context, scope models.Scope, now time.Time) ([]models.CareEventCandidate, error) {
	prescriptions, err := g.source.ListActive(ctx, scope.OwnerUserID(), scope.SubjectID(), now)
	if err != nil {
		return nil, appErrors.Dependency(err, "failed to load prescriptions")
	}

	end := now.Add(g.lookahead)
	var (
		candidates []models.CareEventCandidate
		problems   []error
	)
	for _, rx := range prescriptions {
		if !rx.IsActive || len(rx.ReminderTimes) == 0 {
			continue
		}
		occurrences, err := doseOccurrences(rx, now, end)
		if err != nil {
			problems = append(problems, fmt.Errorf("prescription %s: %w", rx.ID, err))
			continue
		}
		priority := models.PriorityNormal
		if rx.IsCritical || rx.Frequency.TimeSensitive() {
			priority = models.PriorityHigh
		}
		for _, occ := range occurrences {
			candidates = append(candidates, models.CareEventCandidate{
				OwnerUserID:   scope.OwnerUserID(),
				SubjectID:     scope.SubjectID(),
				NaturalKey:    models.MedicationKey(rx.ID, occ),
				Title:         medicationTitle(rx),
				ScheduledTime: occ.UTC(),
				Priority:      priority,
				Payload: models.MedicationPayload{
					PrescriptionID: rx.ID,
					MedicationName: rx.MedicationName,
					Dosage:         rx.Dosage,
					Frequency:      string(rx.Frequency),
					DoseTime:       occ.UTC(),
					Critical:       rx.IsCritical,
				},
			})
		}
	}
	sortCandidates(candidates)

	if len(problems) > 0 {
		return candidates, appErrors.Validation(errors.Join(problems...), "malformed prescriptions skipped")
	}
	return candidates, nil
}

// doseOccurrences lists the instants in [from, to) at which rx's local reminder times fall,
// bounded by its start and end dates in the prescription's own zone.
func doseOccurrences(rx models.Prescription, from, to time.Time) ([]time.Time, error) {
	zone := rx.TimeZone
	if zone == "" {
		zone = "UTC"
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q", rx.TimeZone)
	}

	clocks := make([][2]int, 0, len(rx.ReminderTimes))
	for _, raw := range rx.ReminderTimes {
		parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid reminder time %q", raw)
		}
		clocks = append(clocks, [2]int{parsed.Hour(), parsed.Minute()})
	}

	startDay := civilDate(rx.StartDate)
	var endDay *time.Time
	if rx.EndDate != nil {
		d := civilDate(*rx.EndDate)
		endDay = &d
	}

	seen := make(map[int64]struct{})
	var out []time.Time
	localFrom := from.In(loc)
	day := time.Date(localFrom.Year(), localFrom.Month(), localFrom.Day(), 0, 0, 0, 0, time.UTC)
	lastDay := civilDate(to.In(loc))
	for ; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		if day.Before(startDay) || (endDay != nil && day.After(*endDay)) {
			continue
		}
		for _, hm := range clocks {
			occ := time.Date(day.Year(), day.Month(), day.Day(), hm[0], hm[1], 0, 0, loc)
			if occ.Before(from) || !occ.Before(to) {
				continue
			}
			if _, dup := seen[occ.Unix()]; dup {
				continue
			}
			seen[occ.Unix()] = struct{}{}
			out = append(out, occ)
		}
	}
	return out, nil
}

// civilDate strips t to its calendar date, expressed as UTC midnight.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func medicationTitle(rx models.Prescription) string {
	if rx.Dosage == "" {
		return rx.MedicationName
	}
	return rx.MedicationName + " " + rx.Dosage
}
