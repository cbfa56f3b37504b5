package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pabuk-rewards/internal/model"
)

const contributionColumns = `id, user_id, type, category, province_id, status, quality_rating,
	first_in_province, underrepresented, points_awarded, calculated_at, created_at, updated_at`

func scanContribution(row pgx.Row) (*model.Contribution, error) {
	var c model.Contribution
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Type,
		&c.Category,
		&c.ProvinceID,
		&c.Status,
		&c.QualityRating,
		&c.FirstInProvince,
		&c.Underrepresented,
		&c.PointsAwarded,
		&c.CalculatedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ContributionRepository handles the reward view of contributions.
type ContributionRepository struct {
	db DBTX
}

// NewContributionRepository creates a new ContributionRepository instance.
func NewContributionRepository(db DBTX) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Create inserts a contribution. ID, CreatedAt and UpdatedAt must already be set.
func (r *ContributionRepository) Create(ctx context.Context, c *model.Contribution) error {
	const query = `
		INSERT INTO contributions (id, user_id, type, category, province_id, status, quality_rating,
			first_in_province, underrepresented, points_awarded, calculated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		c.ID, c.UserID, c.Type, c.Category, c.ProvinceID, c.Status, c.QualityRating,
		c.FirstInProvince, c.Underrepresented, c.PointsAwarded, c.CalculatedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contribution: %w", err)
	}
	return nil
}

// GetByID retrieves a contribution.
// Returns ErrContributionNotFound if it does not exist.
func (r *ContributionRepository) GetByID(ctx context.Context, id string) (*model.Contribution, error) {
	const query = `SELECT ` + contributionColumns + ` FROM contributions WHERE id = $1`

	c, err := scanContribution(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContributionNotFound
		}
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	return c, nil
}

// GetForUpdate reads a contribution and row-locks it for the surrounding transaction.
func (r *ContributionRepository) GetForUpdate(ctx context.Context, id string) (*model.Contribution, error) {
	const query = `SELECT ` + contributionColumns + ` FROM contributions WHERE id = $1 FOR UPDATE`

	c, err := scanContribution(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContributionNotFound
		}
		return nil, fmt.Errorf("failed to lock contribution: %w", err)
	}
	return c, nil
}

// ApplyChange stores a new status and rating and moves the cached point value
// by delta. calculated_at is stamped with now.
func (r *ContributionRepository) ApplyChange(ctx context.Context, id string, status model.Status, rating *int, delta int64, now time.Time) (*model.Contribution, error) {
	const query = `
		UPDATE contributions
		SET status = $2,
			quality_rating = $3,
			points_awarded = points_awarded + $4,
			calculated_at = $5,
			updated_at = $5
		WHERE id = $1
		RETURNING ` + contributionColumns

	c, err := scanContribution(r.db.QueryRow(ctx, query, id, status, rating, delta, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContributionNotFound
		}
		return nil, fmt.Errorf("failed to update contribution: %w", err)
	}
	return c, nil
}

// CountApprovedByType groups a user's approved and featured contributions by data type.
func (r *ContributionRepository) CountApprovedByType(ctx context.Context, userID string) (map[model.DataType]int, error) {
	const query = `
		SELECT type, COUNT(*)
		FROM contributions
		WHERE user_id = $1 AND status IN ('APPROVED', 'FEATURED')
		GROUP BY type
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count contributions: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.DataType]int)
	for rows.Next() {
		var t model.DataType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[t] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}

	return counts, nil
}

// CountDistinctProvinces counts the provinces a user has approved work in.
func (r *ContributionRepository) CountDistinctProvinces(ctx context.Context, userID string) (int, error) {
	const query = `
		SELECT COUNT(DISTINCT province_id)
		FROM contributions
		WHERE user_id = $1 AND status IN ('APPROVED', 'FEATURED')
	`

	var n int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count provinces: %w", err)
	}
	return n, nil
}

// CountApprovedInProvince counts approved and featured contributions from any user in a province.
func (r *ContributionRepository) CountApprovedInProvince(ctx context.Context, provinceID string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM contributions
		WHERE province_id = $1 AND status IN ('APPROVED', 'FEATURED')
	`

	var n int
	if err := r.db.QueryRow(ctx, query, provinceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count province contributions: %w", err)
	}
	return n, nil
}
