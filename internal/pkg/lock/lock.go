// Package lock provides per-user locking so that every balance, streak and
// achievement write for one user runs single-writer inside this process.
package lock

import (
	"context"
	"sync"
	"time"
)

// entry is a one-slot semaphore shared by everyone holding or waiting for
// the same user. refs counts them so idle entries can be dropped.
type entry struct {
	slot chan struct{}
	refs int
}

// UserLock hands out per-user mutual exclusion keyed by user ID.
// The zero value is not usable; call New.
type UserLock struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a UserLock.
func New() *UserLock {
	return &UserLock{entries: make(map[string]*entry)}
}

func (ul *UserLock) acquireRef(userID string) *entry {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e, ok := ul.entries[userID]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		ul.entries[userID] = e
	}
	e.refs++
	return e
}

func (ul *UserLock) releaseRef(userID string, e *entry) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(ul.entries, userID)
	}
}

// Lock blocks until the user's lock is held, ctx is done, or timeout elapses.
// A non-positive timeout waits on ctx alone.
func (ul *UserLock) Lock(ctx context.Context, userID string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	e := ul.acquireRef(userID)
	select {
	case e.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.releaseRef(userID, e)
		if ctx.Err() == context.DeadlineExceeded {
			return ErrLockTimeout
		}
		return ctx.Err()
	}
}

// TryLock acquires the user's lock only if it is free.
func (ul *UserLock) TryLock(userID string) bool {
	e := ul.acquireRef(userID)
	select {
	case e.slot <- struct{}{}:
		return true
	default:
		ul.releaseRef(userID, e)
		return false
	}
}

// Unlock releases a lock taken with Lock or TryLock.
func (ul *UserLock) Unlock(userID string) {
	ul.mu.Lock()
	e, ok := ul.entries[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-e.slot:
		ul.releaseRef(userID, e)
	default:
		// not held
	}
}

// WithLock runs fn while holding the user's lock. The lock is not
// reentrant: fn must not try to take the same user's lock again.
func (ul *UserLock) WithLock(ctx context.Context, userID string, timeout time.Duration, fn func() error) error {
	if err := ul.Lock(ctx, userID, timeout); err != nil {
		return err
	}
	defer ul.Unlock(userID)
	return fn()
}

// IsLocked reports whether someone currently holds the user's lock.
// The answer may be stale as soon as it is returned.
func (ul *UserLock) IsLocked(userID string) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	e, ok := ul.entries[userID]
	return ok && len(e.slot) == 1
}

// Len returns the number of users with a holder or waiter.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.entries)
}
