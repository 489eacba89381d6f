package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

var feedingScheduleColumnNames = []string{
	"id", "owner_user_id", "subject_id", "food_type", "amount", "interval_hours", "last_feeding_time",
	"reminder_lead_minutes", "is_active", "created_at", "updated_at",
}

func TestFeedingScheduleRepositoryRecordFeedingRejectsEarlierTime(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	last := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	fedAt := last.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE feeding_schedules SET last_feeding_time = $1")).
		WithArgs(fedAt, "sched-1", "owner-1").
		WillReturnRows(sqlmock.NewRows(feedingScheduleColumnNames))
	mock.ExpectQuery(regexp.QuoteMeta("FROM feeding_schedules WHERE id = $1 AND owner_user_id = $2")).
		WillReturnRows(sqlmock.NewRows(feedingScheduleColumnNames).
			AddRow("sched-1", "owner-1", "dep-1", "formula", "120ml", 3.0, last, 15, true, last, last))

	_, err := NewFeedingScheduleRepository(db).RecordFeeding(context.Background(), "sched-1", "owner-1", fedAt)
	require.ErrorIs(t, err, ErrFeedingNotAdvanced)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedingScheduleRepositoryListActiveScopesBySubject(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(subject_id, '') = $2")).
		WithArgs("owner-1", "dep-1").
		WillReturnRows(sqlmock.NewRows(feedingScheduleColumnNames).
			AddRow("sched-1", "owner-1", "dep-1", "formula", "120ml", 2.5, nil, 0, true, now, now))

	subject := "dep-1"
	schedules, err := NewFeedingScheduleRepository(db).ListActive(context.Background(), "owner-1", &subject)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, 150*time.Minute, schedules[0].Interval())
	assert.Nil(t, schedules[0].LastFeedingTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHouseholdRepositoryDefaultsRegion(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM households WHERE owner_user_id = $1")).
		WithArgs("owner-9").
		WillReturnRows(sqlmock.NewRows([]string{"owner_user_id", "region"}))

	household, err := NewHouseholdRepository(db).Get(context.Background(), "owner-9")
	require.NoError(t, err)
	assert.Equal(t, models.RegionNationwide, household.Region)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHouseholdRepositoryListActiveOwnerIDsPages(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("owner_user_id > $1")).
		WithArgs("owner-2", 2).
		WillReturnRows(sqlmock.NewRows([]string{"owner_user_id"}).AddRow("owner-3").AddRow("owner-4"))

	ids, err := NewHouseholdRepository(db).ListActiveOwnerIDs(context.Background(), "owner-2", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner-3", "owner-4"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAgeScheduleRepositoryListAdministeredBuildsSet(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM administered_records WHERE subject_id = $1")).
		WithArgs("dep-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_id", "schedule_item_id", "dose_number", "administered_at", "event_id"}).
			AddRow("rec-1", "dep-1", "row-1", 1, at, nil).
			AddRow("rec-2", "dep-1", "row-1", 2, at, "evt-2"))

	set, err := NewAgeScheduleRepository(db).ListAdministered(context.Background(), "dep-1")
	require.NoError(t, err)
	assert.Len(t, set, 2)
	_, ok := set[models.AdministeredKey{ScheduleItemID: "row-1", DoseNumber: 2}]
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgressRepositoryGetDefaultsToLevelOne(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM user_progress WHERE user_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total_points", "total_experience", "level", "events_completed", "updated_at"}))

	progress, err := NewProgressRepository(db).Get(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Level)
	assert.Zero(t, progress.TotalPoints)
	require.NoError(t, mock.ExpectationsWereMet())
}
