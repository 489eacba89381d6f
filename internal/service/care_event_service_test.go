package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/care-reminder-api/internal/models"
	"github.com/noah-isme/care-reminder-api/internal/repository"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
)

// stubCareEvents keeps events in memory and implements the status transitions.
type stubCareEvents struct {
	events        map[string]*models.CareEvent
	upserts       []models.CareEventCandidate
	expired       int64
	overdueCalls  []time.Time
	markedBatches [][]string
}

func newStubCareEvents(events ...models.CareEvent) *stubCareEvents {
	s := &stubCareEvents{events: make(map[string]*models.CareEvent)}
	for i := range events {
		ev := events[i]
		s.events[ev.ID] = &ev
	}
	return s
}

func (s *stubCareEvents) UpsertIfAbsent(ctx context.Context, candidate models.CareEventCandidate) (*models.UpsertResult, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	s.upserts = append(s.upserts, candidate)
	ev := candidate.Event()
	ev.ID = candidate.NaturalKey
	s.events[ev.ID] = ev
	return &models.UpsertResult{Created: true, Event: ev}, nil
}

func (s *stubCareEvents) GetForOwner(ctx context.Context, id, ownerID string) (*models.CareEvent, error) {
	ev, ok := s.events[id]
	if !ok || ev.OwnerUserID != ownerID {
		return nil, sql.ErrNoRows
	}
	cp := *ev
	return &cp, nil
}

func (s *stubCareEvents) ListPending(ctx context.Context, filter models.CareEventFilter) ([]models.CareEvent, error) {
	var out []models.CareEvent
	for _, ev := range s.events {
		if ev.OwnerUserID == filter.OwnerUserID && ev.Status == models.EventStatusPending {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (s *stubCareEvents) ListPendingOlderThan(ctx context.Context, cutoff time.Time, types []models.EventType, limit int) ([]models.CareEvent, error) {
	s.overdueCalls = append(s.overdueCalls, cutoff)
	var out []models.CareEvent
	for _, ev := range s.events {
		if !ev.Status.Open() || !ev.ScheduledTime.Before(cutoff) {
			continue
		}
		for _, t := range types {
			if ev.EventType == t {
				out = append(out, *ev)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubCareEvents) MarkMissed(ctx context.Context, ids []string) (int64, error) {
	s.markedBatches = append(s.markedBatches, ids)
	var n int64
	for _, id := range ids {
		if ev, ok := s.events[id]; ok && ev.Status.Open() {
			ev.Status = models.EventStatusMissed
			n++
		}
	}
	return n, nil
}

func (s *stubCareEvents) ExpireAlerts(ctx context.Context, now time.Time) (int64, error) {
	return s.expired, nil
}

func (s *stubCareEvents) Activate(ctx context.Context, id, ownerID string) (*models.CareEvent, error) {
	return s.transition(id, ownerID, models.EventStatusActive, models.EventStatusPending)
}

func (s *stubCareEvents) Cancel(ctx context.Context, id, ownerID string) (*models.CareEvent, error) {
	return s.transition(id, ownerID, models.EventStatusCancelled, models.EventStatusPending, models.EventStatusActive)
}

func (s *stubCareEvents) transition(id, ownerID string, to models.EventStatus, from ...models.EventStatus) (*models.CareEvent, error) {
	ev, ok := s.events[id]
	if !ok || ev.OwnerUserID != ownerID {
		return nil, sql.ErrNoRows
	}
	for _, f := range from {
		if ev.Status == f {
			ev.Status = to
			cp := *ev
			return &cp, nil
		}
	}
	return nil, repository.ErrEventNotOpen
}

type stubProgress struct{}

func (stubProgress) Get(ctx context.Context, userID string) (*models.UserProgress, error) {
	return &models.UserProgress{UserID: userID, Level: 1}, nil
}

func scheduledEvent(id string, eventType models.EventType, status models.EventStatus, at time.Time) models.CareEvent {
	return models.CareEvent{ID: id, OwnerUserID: "owner-1", EventType: eventType, Status: status, Priority: models.PriorityNormal, ScheduledTime: at}
}

func TestCareEventServiceLifecycle(t *testing.T) {
	store := newStubCareEvents(scheduledEvent("ev-1", models.EventTypeMedication, models.EventStatusPending, genNow))
	svc := NewCareEventService(store, stubProgress{}, nil, SweepConfig{}, nil, nil)
	ctx := context.Background()

	activated, err := svc.Activate(ctx, "owner-1", "ev-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusActive, activated.Status)

	_, err = svc.Activate(ctx, "owner-1", "ev-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))

	cancelled, err := svc.Cancel(ctx, "owner-1", "ev-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, "owner-1", "ev-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))

	_, err = svc.Get(ctx, "someone-else", "ev-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestCareEventServiceCreateCustom(t *testing.T) {
	store := newStubCareEvents()
	svc := NewCareEventService(store, stubProgress{}, nil, SweepConfig{}, nil, nil)

	ev, err := svc.CreateCustom(context.Background(), "owner-1", models.CreateCustomEventRequest{
		SubjectID:     strPtr("pet-1"),
		Title:         "  Vet follow-up ",
		Notes:         "bring records",
		ScheduledTime: genNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.EventTypeCustom, ev.EventType)
	assert.Equal(t, models.PriorityNormal, ev.Priority)
	assert.Equal(t, "Vet follow-up", ev.Title)
	assert.True(t, strings.HasPrefix(ev.NaturalKey, "custom:"))

	_, err = svc.CreateCustom(context.Background(), "owner-1", models.CreateCustomEventRequest{Title: "x", ScheduledTime: genNow, Priority: "critical"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.CreateCustom(context.Background(), "owner-1", models.CreateCustomEventRequest{Title: " ", ScheduledTime: genNow})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestCareEventServiceListPendingRejectsTerminalFilter(t *testing.T) {
	svc := NewCareEventService(newStubCareEvents(), stubProgress{}, nil, SweepConfig{}, nil, nil)
	_, err := svc.ListPending(context.Background(), models.CareEventFilter{OwnerUserID: "owner-1", Statuses: []models.EventStatus{models.EventStatusCompleted}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	events, err := svc.ListPending(context.Background(), models.CareEventFilter{OwnerUserID: "owner-1"})
	require.NoError(t, err)
	assert.NotNil(t, events)
}

func TestCareEventServiceSweepMissed(t *testing.T) {
	store := newStubCareEvents(
		scheduledEvent("rx-old", models.EventTypeMedication, models.EventStatusPending, genNow.Add(-3*time.Hour)),
		scheduledEvent("rx-recent", models.EventTypeMedication, models.EventStatusActive, genNow.Add(-time.Hour)),
		scheduledEvent("feed-old", models.EventTypeFeeding, models.EventStatusActive, genNow.Add(-5*time.Hour)),
		scheduledEvent("vax-week", models.EventTypeVaccination, models.EventStatusPending, genNow.Add(-3*24*time.Hour)),
		scheduledEvent("vax-month", models.EventTypeVaccination, models.EventStatusPending, genNow.Add(-30*24*time.Hour)),
		scheduledEvent("alert", models.EventTypePublicHealthAlert, models.EventStatusPending, genNow.Add(-30*24*time.Hour)),
		scheduledEvent("done", models.EventTypeMedication, models.EventStatusCompleted, genNow.Add(-30*time.Hour)),
	)
	store.expired = 2
	metrics := NewMetricsService()
	svc := NewCareEventService(store, stubProgress{}, nil, SweepConfig{Grace: 2 * time.Hour, GraceLong: 7 * 24 * time.Hour, BatchSize: 1}, metrics, nil)

	report, err := svc.SweepMissed(context.Background(), genNow)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Marked)
	assert.Equal(t, 2, report.AlertsExpired)

	assert.Equal(t, models.EventStatusMissed, store.events["rx-old"].Status)
	assert.Equal(t, models.EventStatusMissed, store.events["feed-old"].Status)
	assert.Equal(t, models.EventStatusMissed, store.events["vax-month"].Status)
	assert.Equal(t, models.EventStatusActive, store.events["rx-recent"].Status)
	assert.Equal(t, models.EventStatusPending, store.events["vax-week"].Status)
	assert.Equal(t, models.EventStatusPending, store.events["alert"].Status, "alerts expire instead of being missed")
	assert.Equal(t, models.EventStatusCompleted, store.events["done"].Status)
	assert.EqualValues(t, 3, metrics.Snapshot().EventsMissed)
	assert.GreaterOrEqual(t, len(store.markedBatches), 3, "batches of one")
}

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return c.err
}

func TestCareEventServiceSweepInvalidatesAlertFeed(t *testing.T) {
	tests := []struct {
		name    string
		expired int64
		err     error
		calls   int
	}{
		{name: "alerts expired", expired: 1, calls: 1},
		{name: "nothing expired", expired: 0, calls: 0},
		{name: "cache failure is not fatal", expired: 3, err: errors.New("redis down"), calls: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newStubCareEvents()
			store.expired = tc.expired
			feed := &countingInvalidator{err: tc.err}
			svc := NewCareEventService(store, stubProgress{}, nil, SweepConfig{}, nil, nil)
			svc.UseAlertFeed(feed)

			report, err := svc.SweepMissed(context.Background(), genNow)
			require.NoError(t, err)
			assert.Equal(t, int(tc.expired), report.AlertsExpired)
			assert.Equal(t, tc.calls, feed.calls)
		})
	}
}
