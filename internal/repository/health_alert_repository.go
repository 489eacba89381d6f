package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

// HealthAlertRepository reads the public-health alert feed.
type HealthAlertRepository struct {
	db *sqlx.DB
}

// NewHealthAlertRepository constructs the repository.
func NewHealthAlertRepository(db *sqlx.DB) *HealthAlertRepository {
	return &HealthAlertRepository{db: db}
}

// ListActive returns live alerts for a region, nationwide alerts included.
func (r *HealthAlertRepository) ListActive(ctx context.Context, region string, now time.Time) ([]models.HealthAlert, error) {
	const query = `SELECT id, title, message, severity, region, min_age_months, max_age_months, is_active, published_at, expires_at
	FROM health_alerts
	WHERE is_active AND (region = $1 OR region = $2) AND published_at <= $3 AND (expires_at IS NULL OR expires_at > $3)
	ORDER BY published_at DESC, id ASC`
	var alerts []models.HealthAlert
	if err := r.db.SelectContext(ctx, &alerts, query, region, models.RegionNationwide, now); err != nil {
		return nil, fmt.Errorf("list health alerts: %w", err)
	}
	return alerts, nil
}
