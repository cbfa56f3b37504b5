package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pabuk-rewards/internal/model"
)

type fakeTx struct {
	pgx.Tx
	commits   *int
	rollbacks *int
}

func (f *fakeTx) Commit(context.Context) error {
	*f.commits++
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	*f.rollbacks++
	return nil
}

type fakeBeginner struct {
	begins    int
	commits   int
	rollbacks int
}

func (b *fakeBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	b.begins++
	return &fakeTx{commits: &b.commits, rollbacks: &b.rollbacks}, nil
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}

func TestRunInTxRetriesConflicts(t *testing.T) {
	b := &fakeBeginner{}
	calls := 0

	err := RunInTx(context.Background(), b, 3, func(pgx.Tx) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, b.begins)
	assert.Equal(t, 1, b.commits)
}

func TestRunInTxExhausted(t *testing.T) {
	b := &fakeBeginner{}

	err := RunInTx(context.Background(), b, 2, func(pgx.Tx) error {
		return &pgconn.PgError{Code: "40P01"}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTransient)
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	assert.Equal(t, 2, b.begins)
	assert.Zero(t, b.commits)
}

func TestRunInTxPassesThroughOtherErrors(t *testing.T) {
	b := &fakeBeginner{}
	sentinel := fmt.Errorf("%w: bad input", model.ErrValidation)

	err := RunInTx(context.Background(), b, 5, func(pgx.Tx) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, err, model.ErrTransient)
	assert.Equal(t, 1, b.begins)
	assert.Equal(t, 1, b.rollbacks)
}
