package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/care-reminder-api/internal/models"
	"github.com/noah-isme/care-reminder-api/internal/repository"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
)

type stubFeedingRecorder struct {
	schedule *models.FeedingSchedule
	err      error
	fedAt    time.Time
}

func (s *stubFeedingRecorder) ListActive(ctx context.Context, ownerID string, subjectID *string) ([]models.FeedingSchedule, error) {
	return nil, nil
}

func (s *stubFeedingRecorder) RecordFeeding(ctx context.Context, id, ownerID string, fedAt time.Time) (*models.FeedingSchedule, error) {
	s.fedAt = fedAt
	if s.err != nil {
		return nil, s.err
	}
	cp := *s.schedule
	cp.LastFeedingTime = &fedAt
	return &cp, nil
}

func TestFeedingServiceRecordFeeding(t *testing.T) {
	store := &stubFeedingRecorder{schedule: &models.FeedingSchedule{ID: "s1", OwnerUserID: "owner-1", IntervalHours: 4}}
	svc := NewFeedingService(store, nil)
	svc.now = func() time.Time { return genNow }

	updated, err := svc.RecordFeeding(context.Background(), "owner-1", "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, genNow, *updated.LastFeedingTime)

	earlier := genNow.Add(-30 * time.Minute)
	_, err = svc.RecordFeeding(context.Background(), "owner-1", "s1", &earlier)
	require.NoError(t, err)
	assert.Equal(t, earlier, store.fedAt)

	future := genNow.Add(time.Hour)
	_, err = svc.RecordFeeding(context.Background(), "owner-1", "s1", &future)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestFeedingServiceRecordFeedingErrors(t *testing.T) {
	svc := NewFeedingService(&stubFeedingRecorder{err: sql.ErrNoRows}, nil)
	_, err := svc.RecordFeeding(context.Background(), "owner-1", "missing", nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	svc = NewFeedingService(&stubFeedingRecorder{err: repository.ErrFeedingNotAdvanced}, nil)
	_, err = svc.RecordFeeding(context.Background(), "owner-1", "s1", nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestFeedingServiceListSchedulesNeverNil(t *testing.T) {
	svc := NewFeedingService(&stubFeedingRecorder{}, nil)
	schedules, err := svc.ListSchedules(context.Background(), "owner-1", nil)
	require.NoError(t, err)
	assert.NotNil(t, schedules)
}
