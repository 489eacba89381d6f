package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

// PrescriptionRepository reads medication regimens.
type PrescriptionRepository struct {
	db *sqlx.DB
}

// NewPrescriptionRepository constructs the repository.
func NewPrescriptionRepository(db *sqlx.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

// ListActive returns active prescriptions for a scope that have not ended before asOf.
func (r *PrescriptionRepository) ListActive(ctx context.Context, ownerID string, subjectID *string, asOf time.Time) ([]models.Prescription, error) {
	const query = `SELECT id, owner_user_id, subject_id, medication_name, dosage, frequency, reminder_times, time_zone,
       start_date, end_date, is_critical, is_active
	FROM prescriptions
	WHERE owner_user_id = $1 AND COALESCE(subject_id, '') = $2 AND is_active
	  AND (end_date IS NULL OR end_date >= $3::date)
	ORDER BY id ASC`
	// One day of slack covers zones behind UTC; the generator applies the exact local end date.
	var prescriptions []models.Prescription
	if err := r.db.SelectContext(ctx, &prescriptions, query, ownerID, subjectKey(subjectID), asOf.UTC().AddDate(0, 0, -1)); err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return prescriptions, nil
}
