// Package service provides the reward engine: ledger, streak tracker,
// achievement evaluator, contribution workflow and leaderboard.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"pabuk-rewards/internal/model"
	"pabuk-rewards/internal/pkg/db"
	"pabuk-rewards/internal/pkg/lock"
	"pabuk-rewards/internal/repository"
)

// Database is what the engine needs from PostgreSQL. *pgxpool.Pool and
// *db.Pool satisfy it.
type Database interface {
	repository.DBTX
	db.TxBeginner
}

// BalanceSink receives committed balances, e.g. a leaderboard cache.
type BalanceSink interface {
	SetBalance(ctx context.Context, userID string, points int64) error
}

// UnitOfWorkOptions tunes a UnitOfWork. Zero values fall back to defaults.
type UnitOfWorkOptions struct {
	MaxAttempts int
	LockTimeout time.Duration
	Now         func() time.Time
	Sink        BalanceSink
}

// UnitOfWork runs one top-level operation for one user: it takes the user's
// in-process lock, opens a database transaction, retries conflicts, and after
// commit logs the ledger entries and pushes new balances to the sink.
type UnitOfWork struct {
	db          Database
	locks       *lock.UserLock
	maxAttempts int
	lockTimeout time.Duration
	now         func() time.Time
	sink        BalanceSink
}

// NewUnitOfWork creates a UnitOfWork.
func NewUnitOfWork(database Database, locks *lock.UserLock, opts UnitOfWorkOptions) *UnitOfWork {
	u := &UnitOfWork{
		db:          database,
		locks:       locks,
		maxAttempts: opts.MaxAttempts,
		lockTimeout: opts.LockTimeout,
		now:         opts.Now,
		sink:        opts.Sink,
	}
	if u.maxAttempts < 1 {
		u.maxAttempts = 3
	}
	if u.lockTimeout <= 0 {
		u.lockTimeout = 5 * time.Second
	}
	if u.now == nil {
		u.now = time.Now
	}
	if u.locks == nil {
		u.locks = lock.New()
	}
	return u
}

// Now returns the current time from the configured clock.
func (u *UnitOfWork) Now() time.Time {
	return u.now()
}

// Reader returns repositories bound to the pool, for read-only queries.
func (u *UnitOfWork) Reader() *repository.Store {
	return repository.NewStore(u.db)
}

// Scope is the state of one attempt of a unit of work.
type Scope struct {
	*repository.Store
	// Now is fixed for the whole attempt so every row written shares one clock.
	Now time.Time

	seq      int
	entries  []*model.PointTransaction
	balances map[string]int64
}

func newScope(store *repository.Store, now time.Time) *Scope {
	return &Scope{Store: store, Now: now, balances: make(map[string]int64)}
}

// stamp returns Now plus a microsecond per call, so rows written by one
// operation keep their insertion order when sorted by time.
func (sc *Scope) stamp() time.Time {
	t := sc.Now.Add(time.Duration(sc.seq) * time.Microsecond)
	sc.seq++
	return t
}

func (sc *Scope) recorded(tx *model.PointTransaction, balance int64) {
	sc.entries = append(sc.entries, tx)
	sc.track(tx.UserID, balance)
}

// track queues a balance for the sink once the unit commits.
func (sc *Scope) track(userID string, balance int64) {
	sc.balances[userID] = balance
}

// Do runs fn for userID as one atomic unit. fn may run more than once when
// the database reports a conflict; it must not have side effects outside sc.
func (u *UnitOfWork) Do(ctx context.Context, userID string, fn func(sc *Scope) error) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", model.ErrValidation)
	}

	var committed *Scope
	err := u.locks.WithLock(ctx, userID, u.lockTimeout, func() error {
		return db.RunInTx(ctx, u.db, u.maxAttempts, func(tx pgx.Tx) error {
			sc := newScope(repository.NewStore(tx), u.now())
			if err := fn(sc); err != nil {
				return err
			}
			committed = sc
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return fmt.Errorf("%w: user %s is busy: %w", model.ErrTransient, userID, err)
		}
		return classify(err)
	}

	u.afterCommit(ctx, committed)
	return nil
}

func (u *UnitOfWork) afterCommit(ctx context.Context, sc *Scope) {
	for _, tx := range sc.entries {
		log.Info().
			Str("user_id", tx.UserID).
			Str("kind", string(tx.Kind)).
			Int64("amount", tx.Amount).
			Str("tx_id", tx.ID).
			Msg("Ledger entry committed")
	}

	if u.sink == nil {
		return
	}
	for userID, points := range sc.balances {
		if err := u.sink.SetBalance(ctx, userID, points); err != nil {
			log.Warn().
				Err(err).
				Str("user_id", userID).
				Int64("balance", points).
				Msg("Failed to sync balance to rank cache")
		}
	}
}
