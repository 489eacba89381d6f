package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

// completionEffect applies the source-state change a completed event implies, inside the completion transaction.
type completionEffect func(ctx context.Context, tx *sqlx.Tx, event *models.CareEvent, completedAt time.Time) error

func defaultCompletionEffects() map[models.EventType]completionEffect {
	return map[models.EventType]completionEffect{
		models.EventTypeFeeding:            confirmFeeding,
		models.EventTypeVaccination:        recordAdministered,
		models.EventTypeCheckup:            recordAdministered,
		models.EventTypeLifecycleMilestone: recordAdministered,
	}
}

// confirmFeeding advances last_feeding_time; it never moves backwards.
func confirmFeeding(ctx context.Context, tx *sqlx.Tx, event *models.CareEvent, completedAt time.Time) error {
	payload, ok := event.EventData.Payload.(models.FeedingPayload)
	if !ok || payload.ScheduleID == "" {
		return nil
	}
	const query = `UPDATE feeding_schedules SET last_feeding_time = $1, updated_at = $1
	WHERE id = $2 AND owner_user_id = $3 AND (last_feeding_time IS NULL OR last_feeding_time < $1)`
	if _, err := tx.ExecContext(ctx, query, completedAt, payload.ScheduleID, event.OwnerUserID); err != nil {
		return fmt.Errorf("confirm feeding: %w", err)
	}
	return nil
}

// recordAdministered marks the schedule row dose as done for the subject.
// Events without a schedule item or a dependent subject leave no record.
func recordAdministered(ctx context.Context, tx *sqlx.Tx, event *models.CareEvent, completedAt time.Time) error {
	payload, ok := event.EventData.Payload.(models.AgeSchedulePayload)
	if !ok || payload.ScheduleItemID == "" || event.SubjectID == nil {
		return nil
	}
	eventID := event.ID
	record := models.AdministeredRecord{
		ID:             uuid.NewString(),
		SubjectID:      *event.SubjectID,
		ScheduleItemID: payload.ScheduleItemID,
		DoseNumber:     payload.DoseNumber,
		AdministeredAt: completedAt,
		EventID:        &eventID,
	}
	const query = `INSERT INTO administered_records (id, subject_id, schedule_item_id, dose_number, administered_at, event_id)
	VALUES (:id, :subject_id, :schedule_item_id, :dose_number, :administered_at, :event_id)
	ON CONFLICT (subject_id, schedule_item_id, dose_number) DO NOTHING`
	if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("record administered dose: %w", err)
	}
	return nil
}
