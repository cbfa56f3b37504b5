// Package repository provides data access layer implementations.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so every repository can run
// either standalone or inside a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the repositories bound to one DBTX.
type Store struct {
	Users         *UserRepository
	Contributions *ContributionRepository
	Transactions  *TransactionRepository
	Achievements  *AchievementRepository
	Streaks       *StreakRepository
}

// NewStore binds every repository to db.
func NewStore(db DBTX) *Store {
	return &Store{
		Users:         NewUserRepository(db),
		Contributions: NewContributionRepository(db),
		Transactions:  NewTransactionRepository(db),
		Achievements:  NewAchievementRepository(db),
		Streaks:       NewStreakRepository(db),
	}
}
