package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

type stubHouseholds struct {
	household  *models.Household
	dependents []models.Dependent
	err        error
}

func (s *stubHouseholds) Get(ctx context.Context, ownerID string) (*models.Household, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.household, nil
}

func (s *stubHouseholds) ListDependents(ctx context.Context, ownerID string) ([]models.Dependent, error) {
	return s.dependents, nil
}

// memoryEventStore applies the pending-uniqueness rule in memory.
type memoryEventStore struct {
	mu     sync.Mutex
	events map[string]*models.CareEvent
	fail   map[string]error
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{events: make(map[string]*models.CareEvent), fail: make(map[string]error)}
}

func (m *memoryEventStore) UpsertIfAbsent(ctx context.Context, candidate models.CareEventCandidate) (*models.UpsertResult, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	if err := m.fail[candidate.NaturalKey]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := candidate.Event()
	key := ev.OwnerUserID + "|" + ev.SubjectKey() + "|" + string(ev.EventType) + "|" + ev.NaturalKey
	if existing, ok := m.events[key]; ok {
		return &models.UpsertResult{Created: false, Event: existing}, nil
	}
	ev.ID = key
	m.events[key] = ev
	return &models.UpsertResult{Created: true, Event: ev}, nil
}

type fakeGenerator struct {
	domain     models.Domain
	candidates []models.CareEventCandidate
	err        error
	panicFor   string
	calls      int
}

func (g *fakeGenerator) Domain() models.Domain { return g.domain }

func (g *fakeGenerator) Generate(ctx context.Context, scope models.Scope, now time.Time) ([]models.CareEventCandidate, error) {
	g.calls++
	if g.panicFor != "" && scope.Label() == g.panicFor {
		panic("boom")
	}
	out := make([]models.CareEventCandidate, 0, len(g.candidates))
	for _, c := range g.candidates {
		c.OwnerUserID = scope.OwnerUserID()
		c.SubjectID = scope.SubjectID()
		out = append(out, c)
	}
	return out, g.err
}

func customCandidate(key string) models.CareEventCandidate {
	return models.CareEventCandidate{
		NaturalKey:    key,
		Title:         key,
		ScheduledTime: genNow,
		Priority:      models.PriorityNormal,
		Payload:       models.MedicationPayload{PrescriptionID: "rx", MedicationName: key, DoseTime: genNow},
	}
}

func newHouseholdStub() *stubHouseholds {
	return &stubHouseholds{
		household:  &models.Household{OwnerUserID: "owner-1", Region: "west"},
		dependents: []models.Dependent{{ID: "child-1", OwnerUserID: "owner-1", BirthDate: genNow.AddDate(-1, 0, 0)}},
	}
}

func TestGenerationServiceIsIdempotent(t *testing.T) {
	store := newMemoryEventStore()
	gen := &fakeGenerator{domain: models.DomainMedication, candidates: []models.CareEventCandidate{customCandidate("a"), customCandidate("b")}}
	metrics := NewMetricsService()
	svc := NewGenerationService(newHouseholdStub(), store, []CareEventGenerator{gen}, nil,
		WithGenerationClock(func() time.Time { return genNow }), WithGenerationMetrics(metrics))

	first, err := svc.RunForOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 4, first.Created[models.DomainMedication], "owner and dependent scopes each get both")
	assert.Zero(t, first.TotalErrors)

	second, err := svc.RunForOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Zero(t, second.TotalCreated())
	assert.Equal(t, 4, second.Existing[models.DomainMedication])
	assert.Len(t, store.events, 4)

	snap := metrics.Snapshot()
	assert.EqualValues(t, 4, snap.EventsCreated)
	assert.EqualValues(t, 4, snap.EventsExisting)
}

func TestGenerationServiceIsolatesFailures(t *testing.T) {
	store := newMemoryEventStore()
	store.fail["bad-upsert"] = errors.New("constraint violation")

	panicky := &fakeGenerator{domain: models.DomainFeeding, candidates: []models.CareEventCandidate{customCandidate("feed")}, panicFor: "child-1"}
	partial := &fakeGenerator{domain: models.DomainMedication, candidates: []models.CareEventCandidate{customCandidate("ok"), customCandidate("bad-upsert")}, err: errors.New("one prescription skipped")}
	healthy := &fakeGenerator{domain: models.DomainHealthAlert, candidates: []models.CareEventCandidate{customCandidate("alert")}}

	svc := NewGenerationService(newHouseholdStub(), store, []CareEventGenerator{panicky, partial, healthy}, nil,
		WithGenerationClock(func() time.Time { return genNow }))

	report, err := svc.RunForOwner(context.Background(), "owner-1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created[models.DomainFeeding], "owner scope still runs")
	assert.Equal(t, 2, report.Created[models.DomainMedication], "partial candidates are kept")
	assert.Equal(t, 2, report.Created[models.DomainHealthAlert])
	// 1 panic + 2 generator errors + 2 upsert failures
	assert.Equal(t, 5, report.TotalErrors)
	assert.Len(t, report.Errors, 5)

	var panicked bool
	for _, e := range report.Errors {
		if e.Domain == models.DomainFeeding {
			panicked = true
			assert.Equal(t, "child-1", e.Scope)
			assert.Contains(t, e.Message, "panicked")
		}
	}
	assert.True(t, panicked)
	assert.Equal(t, 2, healthy.calls)
}

func TestGenerationServiceHouseholdFailureAborts(t *testing.T) {
	households := &stubHouseholds{err: errors.New("db down")}
	gen := &fakeGenerator{domain: models.DomainMedication}
	svc := NewGenerationService(households, newMemoryEventStore(), []CareEventGenerator{gen}, nil)

	report, err := svc.RunForOwner(context.Background(), "owner-1")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Zero(t, gen.calls)
}

func TestGenerationServiceRequiresOwner(t *testing.T) {
	svc := NewGenerationService(newHouseholdStub(), newMemoryEventStore(), nil, nil)
	_, err := svc.RunForOwner(context.Background(), "")
	assert.Error(t, err)
}
