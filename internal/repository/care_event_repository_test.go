package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

var careEventColumnNames = []string{
	"id", "owner_user_id", "subject_id", "event_type", "event_data", "natural_key", "title", "scheduled_time",
	"status", "priority", "priority_adjusted_at", "completed_at", "points_earned", "experience_earned", "created_at", "updated_at",
}

func newCareRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func careEventRow(id string, eventType models.EventType, data string, status models.EventStatus, scheduled time.Time) []driver.Value {
	return []driver.Value{
		id, "owner-1", nil, string(eventType), []byte(data), "feed:sched-1:" + scheduled.Format(time.RFC3339), "Feed",
		scheduled, string(status), "normal", nil, nil, 0, 0, scheduled, scheduled,
	}
}

const feedingData = `{"type":"feeding","data":{"schedule_id":"sched-1","interval_hours":3,"due_at":"2024-05-01T09:00:00Z","overdue_minutes":0,"intensity":0}}`

func feedingCandidate(due time.Time) models.CareEventCandidate {
	return models.CareEventCandidate{
		OwnerUserID:   "owner-1",
		NaturalKey:    models.FeedingKey("sched-1", due),
		Title:         "Feed",
		ScheduledTime: due,
		Priority:      models.PriorityNormal,
		Payload:       models.FeedingPayload{ScheduleID: "sched-1", IntervalHours: 3, DueAt: due},
	}
}

func TestCareEventRepositoryUpsertCreatesWhenAbsent(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	due := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := NewCareEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT EXISTS")).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames).AddRow(careEventRow("evt-1", models.EventTypeFeeding, feedingData, models.EventStatusPending, due)...))

	result, err := repo.UpsertIfAbsent(context.Background(), feedingCandidate(due))
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "evt-1", result.Event.ID)
	payload, ok := result.Event.EventData.Payload.(models.FeedingPayload)
	require.True(t, ok)
	assert.Equal(t, "sched-1", payload.ScheduleID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryUpsertReturnsExistingPendingOnConflict(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	due := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := NewCareEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO care_events")).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames))
	mock.ExpectQuery(regexp.QuoteMeta("natural_key = $4 AND status = ANY($5)")).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames).AddRow(careEventRow("evt-existing", models.EventTypeFeeding, feedingData, models.EventStatusPending, due)...))

	result, err := repo.UpsertIfAbsent(context.Background(), feedingCandidate(due))
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, "evt-existing", result.Event.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryUpsertSuppressedByResolvedOccurrence(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	due := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := NewCareEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND status = ANY($13)")).
		WithArgs(sqlmock.AnyArg(), "owner-1", nil, "feeding", sqlmock.AnyArg(), models.FeedingKey("sched-1", due),
			"Feed", due, "pending", "normal", sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames))
	mock.ExpectQuery(regexp.QuoteMeta("natural_key = $4 AND status = ANY($5)")).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames).AddRow(careEventRow("evt-done", models.EventTypeFeeding, feedingData, models.EventStatusCompleted, due)...))

	result, err := repo.UpsertIfAbsent(context.Background(), feedingCandidate(due))
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, models.EventStatusCompleted, result.Event.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryUpsertRejectsInvalidCandidate(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	_, err := NewCareEventRepository(db).UpsertIfAbsent(context.Background(), models.CareEventCandidate{OwnerUserID: "owner-1"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryCompleteFeedingCreditsProgress(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	due := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	completedAt := due.Add(10 * time.Minute)
	repo := NewCareEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND owner_user_id = $2 FOR UPDATE")).
		WithArgs("evt-1", "owner-1").
		WillReturnRows(sqlmock.NewRows(careEventColumnNames).AddRow(careEventRow("evt-1", models.EventTypeFeeding, feedingData, models.EventStatusPending, due)...))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed'")).
		WithArgs(completedAt, 5, 10, "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE feeding_schedules SET last_feeding_time = $1")).
		WithArgs(completedAt, "sched-1", "owner-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT level FROM user_progress")).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"level"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_progress")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total_points", "total_experience", "level", "events_completed", "updated_at"}).
			AddRow("owner-1", 60, 105, 1, 9, completedAt))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_progress SET level = $1")).
		WithArgs(2, "owner-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.Complete(context.Background(), CompleteParams{EventID: "evt-1", OwnerUserID: "owner-1", CompletedAt: completedAt})
	require.NoError(t, err)
	assert.Equal(t, models.Reward{Points: 5, Experience: 10}, outcome.Reward)
	assert.Equal(t, 1, outcome.PreviousLevel)
	assert.Equal(t, 2, outcome.Progress.Level)
	assert.Equal(t, models.EventStatusCompleted, outcome.Event.Status)
	require.NotNil(t, outcome.Event.CompletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryCompleteTerminalEventRollsBack(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	due := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := NewCareEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames).AddRow(careEventRow("evt-1", models.EventTypeFeeding, feedingData, models.EventStatusMissed, due)...))
	mock.ExpectRollback()

	_, err := repo.Complete(context.Background(), CompleteParams{EventID: "evt-1", OwnerUserID: "owner-1"})
	require.ErrorIs(t, err, ErrEventNotOpen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryCompleteTwiceCreditsOnce(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	due := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	completedAt := due.Add(5 * time.Minute)
	repo := NewCareEventRepository(db)
	params := CompleteParams{EventID: "evt-1", OwnerUserID: "owner-1", CompletedAt: completedAt}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames).AddRow(careEventRow("evt-1", models.EventTypeFeeding, feedingData, models.EventStatusPending, due)...))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE feeding_schedules SET last_feeding_time = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT level FROM user_progress")).
		WillReturnRows(sqlmock.NewRows([]string{"level"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO user_progress")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total_points", "total_experience", "level", "events_completed", "updated_at"}).
			AddRow("owner-1", 5, 10, 1, 1, completedAt))
	mock.ExpectCommit()

	outcome, err := repo.Complete(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Progress.EventsCompleted)

	completedRow := careEventRow("evt-1", models.EventTypeFeeding, feedingData, models.EventStatusCompleted, due)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames).AddRow(completedRow...))
	mock.ExpectRollback()

	_, err = repo.Complete(context.Background(), params)
	require.ErrorIs(t, err, ErrEventNotOpen)
	require.NoError(t, mock.ExpectationsWereMet(), "progress is incremented only by the first completion")
}

func TestCareEventRepositoryCompleteMissingEvent(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames))
	mock.ExpectRollback()

	_, err := NewCareEventRepository(db).Complete(context.Background(), CompleteParams{EventID: "nope", OwnerUserID: "owner-1"})
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryCompleteEffectFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	due := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames).AddRow(careEventRow("evt-1", models.EventTypeFeeding, feedingData, models.EventStatusActive, due)...))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE feeding_schedules")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := NewCareEventRepository(db).Complete(context.Background(), CompleteParams{EventID: "evt-1", OwnerUserID: "owner-1"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryApplyPriorityAdjustment(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	repo := NewCareEventRepository(db)
	at := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE care_events SET priority = $1")).
		WithArgs("high", at, "evt-1", "normal").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO priority_adjustments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	adj := &models.PriorityAdjustment{
		EventID:     "evt-1",
		OldPriority: models.PriorityNormal,
		NewPriority: models.PriorityHigh,
		Reason:      models.ReasonRepeatedMisses,
		AdjustedAt:  at,
	}
	applied, err := repo.ApplyPriorityAdjustment(context.Background(), adj)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NotEmpty(t, adj.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryApplyPriorityAdjustmentLostRace(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE care_events SET priority = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	applied, err := NewCareEventRepository(db).ApplyPriorityAdjustment(context.Background(), &models.PriorityAdjustment{
		EventID:     "evt-1",
		OldPriority: models.PriorityNormal,
		NewPriority: models.PriorityHigh,
	})
	require.NoError(t, err)
	assert.False(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryCancelTerminalEvent(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	due := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE care_events SET status = $1")).
		WillReturnRows(sqlmock.NewRows(careEventColumnNames))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND owner_user_id = $2")).
		WithArgs("evt-1", "owner-1").
		WillReturnRows(sqlmock.NewRows(careEventColumnNames).AddRow(careEventRow("evt-1", models.EventTypeFeeding, feedingData, models.EventStatusCompleted, due)...))

	_, err := NewCareEventRepository(db).Cancel(context.Background(), "evt-1", "owner-1")
	require.ErrorIs(t, err, ErrEventNotOpen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryMarkMissed(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE care_events SET status = 'missed'")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewCareEventRepository(db).MarkMissed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCareEventRepositoryLatestFeedingAnchor(t *testing.T) {
	db, mock, cleanup := newCareRepoMock(t)
	defer cleanup()

	scheduled := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("status IN ('missed', 'cancelled')")).
		WithArgs("owner-1", "sched-1", "feed:sched-1:%").
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "status", "scheduled_time"}).AddRow("sched-1", "missed", scheduled))

	anchor, err := NewCareEventRepository(db).LatestFeedingAnchor(context.Background(), "owner-1", "sched-1")
	require.NoError(t, err)
	require.NotNil(t, anchor)
	assert.Equal(t, scheduled, anchor.ScheduledTime)
	require.NoError(t, mock.ExpectationsWereMet())
}
