package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

const feedingScheduleColumns = `id, owner_user_id, subject_id, food_type, amount, interval_hours, last_feeding_time,
       reminder_lead_minutes, is_active, created_at, updated_at`

// FeedingScheduleRepository reads and confirms feeding schedules.
type FeedingScheduleRepository struct {
	db *sqlx.DB
}

// NewFeedingScheduleRepository constructs the repository.
func NewFeedingScheduleRepository(db *sqlx.DB) *FeedingScheduleRepository {
	return &FeedingScheduleRepository{db: db}
}

// ListActive returns active schedules for the owner scope (subjectID nil) or a dependent.
func (r *FeedingScheduleRepository) ListActive(ctx context.Context, ownerID string, subjectID *string) ([]models.FeedingSchedule, error) {
	query := `SELECT ` + feedingScheduleColumns + ` FROM feeding_schedules
	WHERE owner_user_id = $1 AND is_active AND COALESCE(subject_id, '') = $2
	ORDER BY id ASC`
	var schedules []models.FeedingSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, ownerID, subjectKey(subjectID)); err != nil {
		return nil, fmt.Errorf("list feeding schedules: %w", err)
	}
	return schedules, nil
}

// GetForOwner fetches one schedule; foreign schedules are reported as sql.ErrNoRows.
func (r *FeedingScheduleRepository) GetForOwner(ctx context.Context, id, ownerID string) (*models.FeedingSchedule, error) {
	query := `SELECT ` + feedingScheduleColumns + ` FROM feeding_schedules WHERE id = $1 AND owner_user_id = $2`
	var schedule models.FeedingSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id, ownerID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ErrFeedingNotAdvanced reports a confirmation earlier than the stored last feeding.
var ErrFeedingNotAdvanced = errors.New("feeding time precedes last recorded feeding")

// RecordFeeding sets last_feeding_time to fedAt if it does not move it backwards.
func (r *FeedingScheduleRepository) RecordFeeding(ctx context.Context, id, ownerID string, fedAt time.Time) (*models.FeedingSchedule, error) {
	query := `UPDATE feeding_schedules SET last_feeding_time = $1, updated_at = NOW()
	WHERE id = $2 AND owner_user_id = $3 AND (last_feeding_time IS NULL OR last_feeding_time <= $1)
	RETURNING ` + feedingScheduleColumns
	var schedule models.FeedingSchedule
	if err := r.db.GetContext(ctx, &schedule, query, fedAt, id, ownerID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record feeding: %w", err)
		}
		if _, getErr := r.GetForOwner(ctx, id, ownerID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrFeedingNotAdvanced
	}
	return &schedule, nil
}

func subjectKey(subjectID *string) string {
	if subjectID == nil {
		return ""
	}
	return *subjectID
}
