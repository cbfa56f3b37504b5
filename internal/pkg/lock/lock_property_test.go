package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentBalanceSafetyProperty checks that read-modify-write under the
// user's lock matches sequential execution.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(-1000, 100000).Draw(t, "initial")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")
		userID := fmt.Sprintf("user-%d", rapid.IntRange(1, 1000000).Draw(t, "userID"))

		expected := initial
		for _, a := range amounts {
			expected += a
		}

		ul := New()
		balance := initial

		var wg sync.WaitGroup
		wg.Add(len(amounts))
		for _, a := range amounts {
			go func(amount int64) {
				defer wg.Done()
				_ = ul.WithLock(context.Background(), userID, 0, func() error {
					current := balance
					balance = current + amount
					return nil
				})
			}(a)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d", expected, balance)
		}
		if ul.Len() != 0 {
			t.Fatalf("idle entries left behind: %d", ul.Len())
		}
	})
}

// TestMultipleUsersIndependentLocksProperty checks that each user's counter
// ends up correct when many users are updated at once.
func TestMultipleUsersIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")
		opsPerUser := rapid.IntRange(5, 20).Draw(t, "opsPerUser")

		ul := New()
		balances := make([]int64, numUsers)

		var wg sync.WaitGroup
		wg.Add(numUsers * opsPerUser)
		for u := 0; u < numUsers; u++ {
			for j := 0; j < opsPerUser; j++ {
				go func(idx int) {
					defer wg.Done()
					id := fmt.Sprintf("u%d", idx)
					if err := ul.Lock(context.Background(), id, 0); err != nil {
						return
					}
					defer ul.Unlock(id)
					balances[idx] += 10
				}(u)
			}
		}
		wg.Wait()

		for u, b := range balances {
			if b != int64(opsPerUser)*10 {
				t.Fatalf("user %d: expected %d, got %d", u, opsPerUser*10, b)
			}
		}
	})
}

// TestTryLockExclusiveProperty checks that at most one concurrent TryLock
// holds the lock at a time.
func TestTryLockExclusiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")
		ul := New()

		var holders, maxHolders atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		start := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if ul.TryLock("same") {
					n := holders.Add(1)
					for {
						m := maxHolders.Load()
						if n <= m || maxHolders.CompareAndSwap(m, n) {
							break
						}
					}
					holders.Add(-1)
					ul.Unlock("same")
				}
			}()
		}
		close(start)
		wg.Wait()

		if maxHolders.Load() > 1 {
			t.Fatalf("%d concurrent holders", maxHolders.Load())
		}
		if !ul.TryLock("same") {
			t.Fatal("lock should be free after all holders released")
		}
		ul.Unlock("same")
	})
}

func TestLockTimeout(t *testing.T) {
	ul := New()
	require.NoError(t, ul.Lock(context.Background(), "alice", time.Second))
	assert.True(t, ul.IsLocked("alice"))

	err := ul.Lock(context.Background(), "alice", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)

	ul.Unlock("alice")
	assert.False(t, ul.IsLocked("alice"))
	assert.Zero(t, ul.Len())
}

func TestLockContextCancelled(t *testing.T) {
	ul := New()
	require.True(t, ul.TryLock("bob"))
	defer ul.Unlock("bob")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ul.Lock(ctx, "bob", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithLockReturnsFnError(t *testing.T) {
	ul := New()
	boom := fmt.Errorf("boom")

	err := ul.WithLock(context.Background(), "carol", time.Second, func() error {
		assert.True(t, ul.IsLocked("carol"))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, ul.IsLocked("carol"))
}

func TestUnlockWithoutLockIsNoop(t *testing.T) {
	ul := New()
	ul.Unlock("nobody")
	assert.Zero(t, ul.Len())
}
