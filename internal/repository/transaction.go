package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pabuk-rewards/internal/model"
)

const transactionColumns = `id, user_id, kind, amount, reason, contribution_id, metadata, created_at`

func scanTransaction(row pgx.Row) (*model.PointTransaction, error) {
	var tx model.PointTransaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Kind,
		&tx.Amount,
		&tx.Reason,
		&tx.ContributionID,
		&tx.Metadata,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// TransactionRepository handles the append-only point ledger.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a ledger entry. ID and CreatedAt must already be set.
func (r *TransactionRepository) Create(ctx context.Context, tx *model.PointTransaction) error {
	const query = `
		INSERT INTO point_transactions (id, user_id, kind, amount, reason, contribution_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	metadata := tx.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	_, err := r.db.Exec(ctx, query,
		tx.ID, tx.UserID, tx.Kind, tx.Amount, tx.Reason, tx.ContributionID, metadata, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// HistoryFilter pages and filters a user's ledger. An empty Kind matches all kinds.
type HistoryFilter struct {
	Kind   model.TransactionKind
	Limit  int
	Offset int
}

// ListByUser retrieves a user's transactions, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, f HistoryFilter) ([]*model.PointTransaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM point_transactions
		WHERE user_id = $1 AND ($2::text = '' OR kind = $2::text)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, userID, string(f.Kind), f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.PointTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// CountByUser counts a user's transactions, optionally of one kind.
func (r *TransactionRepository) CountByUser(ctx context.Context, userID string, kind model.TransactionKind) (int64, error) {
	const query = `
		SELECT COUNT(*) FROM point_transactions
		WHERE user_id = $1 AND ($2::text = '' OR kind = $2::text)
	`

	var n int64
	if err := r.db.QueryRow(ctx, query, userID, string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// SumByKind totals a user's transactions per kind.
func (r *TransactionRepository) SumByKind(ctx context.Context, userID string) (map[model.TransactionKind]int64, error) {
	const query = `
		SELECT kind, COALESCE(SUM(amount), 0)::BIGINT
		FROM point_transactions
		WHERE user_id = $1
		GROUP BY kind
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum transactions: %w", err)
	}
	defer rows.Close()

	sums := make(map[model.TransactionKind]int64)
	for rows.Next() {
		var kind model.TransactionKind
		var total int64
		if err := rows.Scan(&kind, &total); err != nil {
			return nil, fmt.Errorf("failed to scan sum: %w", err)
		}
		sums[kind] = total
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sums: %w", err)
	}

	return sums, nil
}

// SumForUser totals every transaction of a user.
func (r *TransactionRepository) SumForUser(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM point_transactions WHERE user_id = $1`

	var total int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}
