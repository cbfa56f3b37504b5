package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pabuk-rewards/internal/model"
	"pabuk-rewards/internal/repository"
)

// RankCache is a mirror of balances that answers rank queries.
type RankCache interface {
	BalanceSink
	TopIDs(ctx context.Context, limit, offset int) ([]string, error)
	Rank(ctx context.Context, points int64) (int64, error)
	Replace(ctx context.Context, balances map[string]int64) error
}

// Leaderboard page limits.
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// Leaderboard ranks users. The points board is served from the cache when
// one is configured and falls back to PostgreSQL when the cache fails.
type Leaderboard struct {
	store *repository.Store
	cache RankCache
}

// NewLeaderboard creates a Leaderboard. cache may be nil.
func NewLeaderboard(uow *UnitOfWork, cache RankCache) *Leaderboard {
	return &Leaderboard{store: uow.Reader(), cache: cache}
}

// Top returns a page of the leaderboard for category.
func (l *Leaderboard) Top(ctx context.Context, category model.LeaderboardCategory, limit, offset int) ([]model.LeaderboardEntry, error) {
	if category == "" {
		category = model.LeaderboardPoints
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown leaderboard category %q", ErrInvalidInput, category)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	if category == model.LeaderboardPoints && l.cache != nil {
		entries, err := l.topFromCache(ctx, limit, offset)
		if err == nil {
			return entries, nil
		}
		log.Warn().Err(err).Msg("Rank cache unavailable, reading leaderboard from database")
	}

	users, err := l.store.Users.Top(ctx, category, limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	return entriesFrom(users, offset), nil
}

func (l *Leaderboard) topFromCache(ctx context.Context, limit, offset int) ([]model.LeaderboardEntry, error) {
	ids, err := l.cache.TopIDs(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.LeaderboardEntry{}, nil
	}
	byID, err := l.store.Users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, classify(err)
	}

	users := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return entriesFrom(users, offset), nil
}

func entriesFrom(users []*model.User, offset int) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, model.LeaderboardEntry{
			Rank:                  offset + i + 1,
			UserID:                u.ID,
			Name:                  u.Name,
			Points:                u.Points,
			Level:                 u.Level,
			ApprovedContributions: u.ApprovedContributions,
			ProvincesCovered:      u.ProvincesCovered,
		})
	}
	return entries
}

// Rank returns 1 plus the number of users with a strictly higher balance.
func (l *Leaderboard) Rank(ctx context.Context, userID string) (int64, error) {
	user, err := l.store.Users.GetByID(ctx, userID)
	if err != nil {
		return 0, classify(err)
	}
	if l.cache != nil {
		rank, err := l.cache.Rank(ctx, user.Points)
		if err == nil {
			return rank, nil
		}
		log.Warn().Err(err).Str("user_id", userID).Msg("Rank cache unavailable, ranking from database")
	}
	above, err := l.store.Users.CountWithMorePoints(ctx, user.Points)
	if err != nil {
		return 0, classify(err)
	}
	return above + 1, nil
}

// Rebuild reloads every balance into the cache. It is a no-op without one.
func (l *Leaderboard) Rebuild(ctx context.Context) (int, error) {
	if l.cache == nil {
		return 0, nil
	}
	balances, err := l.store.Users.AllPoints(ctx)
	if err != nil {
		return 0, classify(err)
	}
	if err := l.cache.Replace(ctx, balances); err != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrTransient, err)
	}
	log.Info().Int("users", len(balances)).Msg("Rank cache rebuilt")
	return len(balances), nil
}
