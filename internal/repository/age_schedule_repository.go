package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

// AgeScheduleRepository reads the master vaccination/checkup/milestone schedule and administered records.
type AgeScheduleRepository struct {
	db *sqlx.DB
}

// NewAgeScheduleRepository constructs the repository.
func NewAgeScheduleRepository(db *sqlx.DB) *AgeScheduleRepository {
	return &AgeScheduleRepository{db: db}
}

// ListItems returns every schedule row ordered by age window.
func (r *AgeScheduleRepository) ListItems(ctx context.Context) ([]models.AgeScheduleItem, error) {
	const query = `SELECT id, name, kind, dose_number, min_age_months, max_age_months, requirement, gender_required
	FROM age_schedule_items ORDER BY min_age_months ASC, id ASC`
	var items []models.AgeScheduleItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list age schedule items: %w", err)
	}
	return items, nil
}

// ListAdministered returns the set of (row, dose) pairs already recorded for a subject.
func (r *AgeScheduleRepository) ListAdministered(ctx context.Context, subjectID string) (map[models.AdministeredKey]struct{}, error) {
	const query = `SELECT id, subject_id, schedule_item_id, dose_number, administered_at, event_id
	FROM administered_records WHERE subject_id = $1`
	var records []models.AdministeredRecord
	if err := r.db.SelectContext(ctx, &records, query, subjectID); err != nil {
		return nil, fmt.Errorf("list administered records: %w", err)
	}
	set := make(map[models.AdministeredKey]struct{}, len(records))
	for _, rec := range records {
		set[models.AdministeredKey{ScheduleItemID: rec.ScheduleItemID, DoseNumber: rec.DoseNumber}] = struct{}{}
	}
	return set, nil
}
