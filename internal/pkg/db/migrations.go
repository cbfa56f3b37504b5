package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is the subset of pgx used to run DDL.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{"users table", `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			points BIGINT NOT NULL DEFAULT 0,
			level VARCHAR(20) NOT NULL DEFAULT 'Bronze',
			streak INT NOT NULL DEFAULT 0,
			streak_started_at TIMESTAMPTZ,
			last_contribution_at TIMESTAMPTZ,
			approved_contributions INT NOT NULL DEFAULT 0,
			provinces_covered INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC);
		CREATE INDEX IF NOT EXISTS idx_users_approved ON users(approved_contributions DESC);
		CREATE INDEX IF NOT EXISTS idx_users_provinces ON users(provinces_covered DESC);
	`},
	{"contributions table", `
		CREATE TABLE IF NOT EXISTS contributions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type VARCHAR(20) NOT NULL,
			category VARCHAR(40) NOT NULL,
			province_id VARCHAR(64) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			quality_rating SMALLINT CHECK (quality_rating BETWEEN 1 AND 5),
			first_in_province BOOLEAN NOT NULL DEFAULT FALSE,
			underrepresented BOOLEAN NOT NULL DEFAULT FALSE,
			points_awarded BIGINT NOT NULL DEFAULT 0,
			calculated_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_contributions_user_status ON contributions(user_id, status);
		CREATE INDEX IF NOT EXISTS idx_contributions_province_status ON contributions(province_id, status);
	`},
	{"point_transactions table", `
		CREATE TABLE IF NOT EXISTS point_transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			kind VARCHAR(40) NOT NULL,
			amount BIGINT NOT NULL,
			reason TEXT NOT NULL,
			contribution_id TEXT REFERENCES contributions(id) ON DELETE SET NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_point_transactions_user_time ON point_transactions(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_point_transactions_user_kind ON point_transactions(user_id, kind);
	`},
	{"achievements table", `
		CREATE TABLE IF NOT EXISTS achievements (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			badge_name VARCHAR(100) NOT NULL,
			category VARCHAR(20) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			transaction_id TEXT REFERENCES point_transactions(id) ON DELETE SET NULL,
			earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, badge_name)
		);
	`},
	{"streak_history table", `
		CREATE TABLE IF NOT EXISTS streak_history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			streak_type VARCHAR(20) NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ,
			length INT NOT NULL,
			bonus_awarded BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_streak_history_user_time ON streak_history(user_id, created_at DESC);
	`},
}

// Migrate creates the reward schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Msg("Running database migrations...")
	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}
	return nil
}
