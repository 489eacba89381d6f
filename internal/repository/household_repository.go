package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/care-reminder-api/internal/models"
)

// HouseholdRepository resolves owners and their dependents.
type HouseholdRepository struct {
	db *sqlx.DB
}

// NewHouseholdRepository constructs the repository.
func NewHouseholdRepository(db *sqlx.DB) *HouseholdRepository {
	return &HouseholdRepository{db: db}
}

// Get returns the household of an owner; unknown owners get the nationwide region.
func (r *HouseholdRepository) Get(ctx context.Context, ownerID string) (*models.Household, error) {
	const query = `SELECT owner_user_id, region FROM households WHERE owner_user_id = $1`
	var household models.Household
	if err := r.db.GetContext(ctx, &household, query, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.Household{OwnerUserID: ownerID, Region: models.RegionNationwide}, nil
		}
		return nil, fmt.Errorf("get household: %w", err)
	}
	if household.Region == "" {
		household.Region = models.RegionNationwide
	}
	return &household, nil
}

// ListDependents returns the active dependents of an owner.
func (r *HouseholdRepository) ListDependents(ctx context.Context, ownerID string) ([]models.Dependent, error) {
	const query = `SELECT id, owner_user_id, name, kind, gender, birth_date
	FROM dependents WHERE owner_user_id = $1 AND is_active ORDER BY birth_date ASC, id ASC`
	var dependents []models.Dependent
	if err := r.db.SelectContext(ctx, &dependents, query, ownerID); err != nil {
		return nil, fmt.Errorf("list dependents: %w", err)
	}
	return dependents, nil
}

// ListActiveOwnerIDs pages active owners by id, starting after afterID.
func (r *HouseholdRepository) ListActiveOwnerIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 200
	}
	const query = `SELECT owner_user_id FROM households WHERE is_active AND owner_user_id > $1
	ORDER BY owner_user_id ASC LIMIT $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, afterID, limit); err != nil {
		return nil, fmt.Errorf("list active owners: %w", err)
	}
	return ids, nil
}
