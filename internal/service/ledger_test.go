package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pabuk-rewards/internal/model"
	"pabuk-rewards/internal/pkg/lock"
	"pabuk-rewards/internal/points"
)

func TestTransactionInput_Validate(t *testing.T) {
	valid := TransactionInput{UserID: "u1", Kind: model.TxAdminAdjustment, Amount: 10, Reason: "fix"}
	require.NoError(t, valid.validate())

	tests := []struct {
		name   string
		mutate func(*TransactionInput)
		want   error
	}{
		{"missing user", func(in *TransactionInput) { in.UserID = "" }, ErrInvalidInput},
		{"unknown kind", func(in *TransactionInput) { in.Kind = "BOGUS" }, ErrUnknownKind},
		{"zero amount", func(in *TransactionInput) { in.Amount = 0 }, ErrInvalidAmount},
		{"too large", func(in *TransactionInput) { in.Amount = MaxTransactionAmount + 1 }, ErrInvalidAmount},
		{"too small", func(in *TransactionInput) { in.Amount = -MaxTransactionAmount - 1 }, ErrInvalidAmount},
		{"missing reason", func(in *TransactionInput) { in.Reason = "" }, ErrMissingReason},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := in.validate()
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestGroupTotals(t *testing.T) {
	got := GroupTotals(map[model.TransactionKind]int64{
		model.TxContributionText:  130,
		model.TxContributionAudio: 80,
		model.TxStreakDaily:       30,
		model.TxAchievementBonus:  200,
		model.TxMilestoneBronze:   100,
		model.TxPenaltySpam:       -50,
		model.TxPenaltyLowQuality: -95,
	})
	assert.Equal(t, map[model.KindGroup]int64{
		model.GroupContributions: 210,
		model.GroupBonuses:       230,
		model.GroupMilestones:    100,
		model.GroupPenalties:     -145,
	}, got)

	empty := GroupTotals(nil)
	assert.Len(t, empty, 4, "every group is present even with no history")
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	already := ErrStaleStatus
	assert.Same(t, already, classify(already))

	unique := &pgconn.PgError{Code: "23505"}
	assert.ErrorIs(t, classify(unique), model.ErrDefect)

	syntax := &pgconn.PgError{Code: "42601"}
	assert.ErrorIs(t, classify(syntax), model.ErrDefect)

	serialization := &pgconn.PgError{Code: "40001"}
	assert.ErrorIs(t, classify(serialization), model.ErrTransient)

	plain := errors.New("connection reset")
	err := classify(plain)
	assert.ErrorIs(t, err, model.ErrTransient)
	assert.ErrorIs(t, err, plain)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(model.StatusPending, model.StatusApproved))
	assert.True(t, CanTransition(model.StatusPending, model.StatusRejected))
	assert.True(t, CanTransition(model.StatusApproved, model.StatusFeatured))

	assert.False(t, CanTransition(model.StatusPending, model.StatusFeatured))
	assert.False(t, CanTransition(model.StatusRejected, model.StatusApproved))
	assert.False(t, CanTransition(model.StatusFeatured, model.StatusApproved))
	assert.False(t, CanTransition(model.StatusApproved, model.StatusApproved))
}

// The checks below fail before any database access, so no database is wired.

func TestUnitOfWork_LockTimeoutIsTransient(t *testing.T) {
	locks := lock.New()
	require.NoError(t, locks.Lock(context.Background(), "u1", 0))
	defer locks.Unlock("u1")

	uow := NewUnitOfWork(nil, locks, UnitOfWorkOptions{LockTimeout: 20 * time.Millisecond})
	ledger := NewLedger(uow, 10)

	_, err := ledger.CreateTransaction(context.Background(), TransactionInput{
		UserID: "u1", Kind: model.TxAdminAdjustment, Amount: 5, Reason: "busy",
	})
	assert.ErrorIs(t, err, model.ErrTransient)
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
}

func TestUnitOfWork_RequiresUser(t *testing.T) {
	uow := NewUnitOfWork(nil, nil, UnitOfWorkOptions{})
	err := uow.Do(context.Background(), "", func(*Scope) error { return nil })
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestLedger_ApplyPenaltyRejectsNonPenalty(t *testing.T) {
	ledger := NewLedger(NewUnitOfWork(nil, nil, UnitOfWorkOptions{}), 10)
	_, err := ledger.ApplyPenalty(context.Background(), "u1", model.TxStreakDaily, 10, "nope", nil)
	assert.ErrorIs(t, err, ErrNotPenalty)
}

func TestLedger_AdminAdjustRequiresAdmin(t *testing.T) {
	ledger := NewLedger(NewUnitOfWork(nil, nil, UnitOfWorkOptions{}), 10)
	_, err := ledger.AdminAdjust(context.Background(), "u1", 10, "bonus", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLedger_GetHistoryRejectsUnknownKind(t *testing.T) {
	ledger := NewLedger(NewUnitOfWork(nil, nil, UnitOfWorkOptions{}), 10)
	_, err := ledger.GetHistory(context.Background(), "u1", HistoryOptions{Kind: "BOGUS"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestWorkflow_ModerateValidatesBeforeLoading(t *testing.T) {
	w := NewWorkflow(nil, nil, nil, nil, 0)
	ctx := context.Background()

	_, err := w.Moderate(ctx, ModerateInput{ContributionID: "c1", OldStatus: model.StatusRejected, NewStatus: model.StatusApproved})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = w.Moderate(ctx, ModerateInput{ContributionID: "c1", OldStatus: "DRAFT", NewStatus: model.StatusApproved})
	assert.ErrorIs(t, err, points.ErrUnknownStatus)

	_, err = w.Moderate(ctx, ModerateInput{
		ContributionID: "c1", OldStatus: model.StatusPending, NewStatus: model.StatusApproved, QualityRating: ptr(6),
	})
	assert.ErrorIs(t, err, points.ErrInvalidRating)
}

func TestWorkflow_SubmitValidates(t *testing.T) {
	w := NewWorkflow(nil, nil, nil, nil, 0)
	ctx := context.Background()

	_, err := w.Submit(ctx, SubmitInput{UserID: "u1", Type: "VIDEO", Category: model.CategoryFood, ProvinceID: "p"})
	assert.ErrorIs(t, err, points.ErrUnknownDataType)

	_, err = w.Submit(ctx, SubmitInput{UserID: "u1", Type: model.DataTypeText, Category: "POETRY", ProvinceID: "p"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = w.Submit(ctx, SubmitInput{UserID: "u1", Type: model.DataTypeText, Category: model.CategoryFood})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
