package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pabuk-rewards/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound         = fmt.Errorf("user %w", model.ErrNotFound)
	ErrContributionNotFound = fmt.Errorf("contribution %w", model.ErrNotFound)
)

const userColumns = `id, name, points, level, streak, streak_started_at, last_contribution_at,
	approved_contributions, provinces_covered, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Points,
		&user.Level,
		&user.Streak,
		&user.StreakStartedAt,
		&user.LastContributionAt,
		&user.ApprovedContributions,
		&user.ProvincesCovered,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserRepository handles the reward fields of users.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure creates the reward row for a user if it does not exist yet.
// It reports whether the row was created by this call.
func (r *UserRepository) Ensure(ctx context.Context, id, name, level string, now time.Time) (*model.User, bool, error) {
	const query = `
		INSERT INTO users (id, name, points, level, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $4)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id, name, level, now))
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	user, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return user, false, nil
}

// GetByID retrieves a user by ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetForUpdate reads a user and row-locks it until the surrounding
// transaction ends. Only meaningful on a pgx.Tx.
func (r *UserRepository) GetForUpdate(ctx context.Context, id string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return user, nil
}

// SetBalance writes the balance and level computed by the ledger.
func (r *UserRepository) SetBalance(ctx context.Context, id string, points int64, level string, now time.Time) error {
	const query = `
		UPDATE users
		SET points = $2, level = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, points, level, now)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateStreak writes the streak fields and bumps the approved count.
func (r *UserRepository) UpdateStreak(ctx context.Context, id string, streak int, startedAt *time.Time, lastActivity time.Time, approvedDelta int) error {
	const query = `
		UPDATE users
		SET streak = $2,
			streak_started_at = $3,
			last_contribution_at = $4,
			approved_contributions = approved_contributions + $5,
			updated_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, streak, startedAt, lastActivity, approvedDelta)
	if err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetProvincesCovered stores the number of distinct provinces with approved work.
func (r *UserRepository) SetProvincesCovered(ctx context.Context, id string, provinces int, now time.Time) error {
	const query = `
		UPDATE users
		SET provinces_covered = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, provinces, now)
	if err != nil {
		return fmt.Errorf("failed to set provinces covered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountWithMorePoints returns how many users have a strictly higher balance.
func (r *UserRepository) CountWithMorePoints(ctx context.Context, points int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM users WHERE points > $1`

	var n int64
	if err := r.db.QueryRow(ctx, query, points).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// Count returns the total number of users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

var leaderboardOrder = map[model.LeaderboardCategory]string{
	model.LeaderboardPoints:        "points DESC, id",
	model.LeaderboardContributions: "approved_contributions DESC, points DESC, id",
	model.LeaderboardProvinces:     "provinces_covered DESC, points DESC, id",
}

// Top returns a page of users ordered by the leaderboard category.
func (r *UserRepository) Top(ctx context.Context, category model.LeaderboardCategory, limit, offset int) ([]*model.User, error) {
	order, ok := leaderboardOrder[category]
	if !ok {
		return nil, fmt.Errorf("%w: unknown leaderboard category %q", model.ErrValidation, category)
	}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY ` + order + ` LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// ListByIDs returns the users with the given IDs, keyed by ID.
func (r *UserRepository) ListByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	users := make(map[string]*model.User, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// AllPoints returns every user's balance, for rebuilding the rank cache.
func (r *UserRepository) AllPoints(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id, points FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]int64)
	for rows.Next() {
		var id string
		var points int64
		if err := rows.Scan(&id, &points); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances[id] = points
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}

	return balances, nil
}
