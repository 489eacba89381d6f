package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

// ProgressRepository reads cumulative user progress.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Get returns the progress row of a user, or a level-1 zero value when none exists yet.
func (r *ProgressRepository) Get(ctx context.Context, userID string) (*models.UserProgress, error) {
	const query = `SELECT user_id, total_points, total_experience, level, events_completed, updated_at
	FROM user_progress WHERE user_id = $1`
	var progress models.UserProgress
	if err := r.db.GetContext(ctx, &progress, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.UserProgress{UserID: userID, Level: 1}, nil
		}
		return nil, fmt.Errorf("get user progress: %w", err)
	}
	return &progress, nil
}
