// Package cache mirrors user balances into a Redis sorted set for ranks and
// the points leaderboard. PostgreSQL stays the source of truth.
package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"pabuk-rewards/internal/config"
)

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	log.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")
	return client, nil
}

// RankStore keeps balances in the sorted set <prefix>:leaderboard:points.
type RankStore struct {
	rdb *redis.Client
	key string
}

// NewRankStore creates a RankStore under prefix.
func NewRankStore(rdb *redis.Client, prefix string) *RankStore {
	if prefix == "" {
		prefix = "pabuk"
	}
	return &RankStore{rdb: rdb, key: prefix + ":leaderboard:points"}
}

// SetBalance stores the committed balance of a user.
func (s *RankStore) SetBalance(ctx context.Context, userID string, points int64) error {
	err := s.rdb.ZAdd(ctx, s.key, redis.Z{Score: float64(points), Member: userID}).Err()
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

// TopIDs returns a page of user IDs by balance, highest first. Ties are
// ordered by member descending, as Redis does.
func (s *RankStore) TopIDs(ctx context.Context, limit, offset int) ([]string, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return ids, nil
}

// Rank returns 1 plus the number of users with strictly more than points.
func (s *RankStore) Rank(ctx context.Context, points int64) (int64, error) {
	above, err := s.rdb.ZCount(ctx, s.key, "("+strconv.FormatInt(points, 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count ranks: %w", err)
	}
	return above + 1, nil
}

// Size returns the number of users in the set.
func (s *RankStore) Size(ctx context.Context) (int64, error) {
	n, err := s.rdb.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count leaderboard: %w", err)
	}
	return n, nil
}

// Replace swaps the whole set for balances.
func (s *RankStore) Replace(ctx context.Context, balances map[string]int64) error {
	tmp := s.key + ":rebuild"
	members := make([]redis.Z, 0, len(balances))
	for id, points := range balances {
		members = append(members, redis.Z{Score: float64(points), Member: id})
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, tmp)
	if len(members) > 0 {
		pipe.ZAdd(ctx, tmp, members...)
		pipe.Rename(ctx, tmp, s.key)
	} else {
		pipe.Del(ctx, s.key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to rebuild leaderboard: %w", err)
	}
	return nil
}
