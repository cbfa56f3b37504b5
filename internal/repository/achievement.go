package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pabuk-rewards/internal/model"
)

// AchievementRepository handles earned badges.
type AchievementRepository struct {
	db DBTX
}

// NewAchievementRepository creates a new AchievementRepository instance.
func NewAchievementRepository(db DBTX) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// InsertIfAbsent stores a badge unless the user already holds one with the
// same name. The unique (user_id, badge_name) constraint decides races.
// Returns false when the badge was already held.
func (r *AchievementRepository) InsertIfAbsent(ctx context.Context, a *model.Achievement) (bool, error) {
	const query = `
		INSERT INTO achievements (id, user_id, badge_name, category, description, earned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, badge_name) DO NOTHING
		RETURNING id
	`

	var id string
	err := r.db.QueryRow(ctx, query, a.ID, a.UserID, a.BadgeName, a.Category, a.Description, a.EarnedAt).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert achievement: %w", err)
	}
	return true, nil
}

// SetTransaction links an achievement to the ledger entry that paid its bonus.
func (r *AchievementRepository) SetTransaction(ctx context.Context, id, transactionID string) error {
	const query = `UPDATE achievements SET transaction_id = $2 WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id, transactionID); err != nil {
		return fmt.Errorf("failed to link achievement transaction: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's badges, newest first.
func (r *AchievementRepository) ListByUser(ctx context.Context, userID string) ([]*model.Achievement, error) {
	const query = `
		SELECT id, user_id, badge_name, category, description, transaction_id, earned_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY earned_at DESC, badge_name
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*model.Achievement
	for rows.Next() {
		var a model.Achievement
		err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.BadgeName,
			&a.Category,
			&a.Description,
			&a.TransactionID,
			&a.EarnedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	return achievements, nil
}

// CountByName returns how many rows exist for (userID, badgeName). The
// unique constraint keeps this at 0 or 1.
func (r *AchievementRepository) CountByName(ctx context.Context, userID, badgeName string) (int, error) {
	const query = `SELECT COUNT(*) FROM achievements WHERE user_id = $1 AND badge_name = $2`

	var n int
	if err := r.db.QueryRow(ctx, query, userID, badgeName).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count achievements: %w", err)
	}
	return n, nil
}
