package service

import (
	"context"
	"sort"
	"time"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

// CareEventGenerator turns one domain's source state into candidate events for a scope.
// Generators are read-only: they never write events or mutate their sources. They may
// return partial candidates together with an error describing the items they skipped.
type CareEventGenerator interface {
	Domain() models.Domain
	Generate(ctx context.Context, scope models.Scope, now time.Time) ([]models.CareEventCandidate, error)
}

func sortCandidates(candidates []models.CareEventCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].ScheduledTime.Equal(candidates[j].ScheduledTime) {
			return candidates[i].ScheduledTime.Before(candidates[j].ScheduledTime)
		}
		return candidates[i].NaturalKey < candidates[j].NaturalKey
	})
}
