package cache

import (
	"context"
	"os/exec"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redis"

	"pabuk-rewards/internal/config"
)

func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if exec.Command("docker", "info").Run() != nil {
		t.Skip("Docker is not available, skipping integration test")
	}
	ctx := context.Background()

	container, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := goredis.ParseURL(uri)
	require.NoError(t, err)

	client, err := NewClient(ctx, config.RedisConfig{Addr: opts.Addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRankStore(t *testing.T) {
	store := NewRankStore(setupRedis(t), "test")
	ctx := context.Background()

	require.NoError(t, store.SetBalance(ctx, "a", 300))
	require.NoError(t, store.SetBalance(ctx, "b", 500))
	require.NoError(t, store.SetBalance(ctx, "c", 300))
	require.NoError(t, store.SetBalance(ctx, "d", -20))

	ids, err := store.TopIDs(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "b", ids[0])

	ids, err = store.TopIDs(ctx, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids)

	rank, err := store.Rank(ctx, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank, "only strictly higher balances count")

	rank, err = store.Rank(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rank)

	require.NoError(t, store.SetBalance(ctx, "d", 900))
	ids, err = store.TopIDs(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids, "updates replace the score")
}

func TestRankStore_Replace(t *testing.T) {
	store := NewRankStore(setupRedis(t), "")
	ctx := context.Background()

	require.NoError(t, store.SetBalance(ctx, "stale", 1_000))
	require.NoError(t, store.Replace(ctx, map[string]int64{"x": 10, "y": 20}))

	n, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ids, err := store.TopIDs(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, ids)

	require.NoError(t, store.Replace(ctx, nil))
	n, err = store.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
