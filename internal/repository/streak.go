package repository

import (
	"context"
	"fmt"

	"pabuk-rewards/internal/model"
)

// StreakRepository handles streak history rows.
type StreakRepository struct {
	db DBTX
}

// NewStreakRepository creates a new StreakRepository instance.
func NewStreakRepository(db DBTX) *StreakRepository {
	return &StreakRepository{db: db}
}

// Create inserts a streak history row. ID and CreatedAt must already be set.
func (r *StreakRepository) Create(ctx context.Context, h *model.StreakHistory) error {
	const query = `
		INSERT INTO streak_history (id, user_id, streak_type, start_date, end_date, length, bonus_awarded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		h.ID, h.UserID, h.Type, h.StartDate, h.EndDate, h.Length, h.BonusAwarded, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create streak history: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's streak history, newest first.
func (r *StreakRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.StreakHistory, error) {
	const query = `
		SELECT id, user_id, streak_type, start_date, end_date, length, bonus_awarded, created_at
		FROM streak_history
		WHERE user_id = $1
		ORDER BY created_at DESC, length DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get streak history: %w", err)
	}
	defer rows.Close()

	var history []*model.StreakHistory
	for rows.Next() {
		var h model.StreakHistory
		err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.Type,
			&h.StartDate,
			&h.EndDate,
			&h.Length,
			&h.BonusAwarded,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streak history: %w", err)
		}
		history = append(history, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating streak history: %w", err)
	}

	return history, nil
}
