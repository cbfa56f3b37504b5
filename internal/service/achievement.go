package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pabuk-rewards/internal/model"
	"pabuk-rewards/internal/points"
)

// BadgeAward is a badge the evaluator may grant.
type BadgeAward struct {
	Name        string
	Category    model.BadgeCategory
	Description string
	Bonus       int64
	Kind        model.TransactionKind
}

// BadgeStats are the aggregates badges are evaluated against.
type BadgeStats struct {
	Approved  int
	ByType    map[model.DataType]int
	Provinces int
}

// EligibleBadges lists every badge the stats qualify for, held or not.
// Each geographic tier is checked on its own so a large jump earns all of
// the tiers it passes.
func EligibleBadges(stats BadgeStats) []BadgeAward {
	var out []BadgeAward
	for _, m := range points.Milestones {
		if stats.Approved >= m.Threshold {
			out = append(out, BadgeAward{
				Name:        m.BadgeName(),
				Category:    model.BadgeMilestone,
				Description: m.Description(),
				Bonus:       m.Bonus,
				Kind:        m.Kind,
			})
		}
	}
	for _, d := range points.DiversityBadges {
		if d.Earned(stats.ByType) {
			out = append(out, BadgeAward{
				Name:        d.Name,
				Category:    model.BadgeQuality,
				Description: d.Description,
				Bonus:       d.Bonus,
				Kind:        model.TxAchievementBonus,
			})
		}
	}
	for _, g := range points.GeoTiers {
		if stats.Provinces >= g.Provinces {
			out = append(out, BadgeAward{
				Name:        g.Name,
				Category:    model.BadgeGeographic,
				Description: g.Description(),
				Bonus:       g.Bonus,
				Kind:        model.TxAchievementBonus,
			})
		}
	}
	return out
}

func streakBadge(t points.StreakTier) BadgeAward {
	return BadgeAward{
		Name:        t.Name,
		Category:    model.BadgeStreak,
		Description: fmt.Sprintf("%d day contribution streak", t.Days),
	}
}

// grantBadge inserts the badge unless userID already holds it, pays its
// bonus and links the achievement to the bonus entry. All writes happen in
// sc, so a failed bonus rolls the badge back too. Returns false when the
// badge was already held.
func grantBadge(ctx context.Context, sc *Scope, ledger *Ledger, userID string, b BadgeAward) (*model.Achievement, bool, error) {
	a := &model.Achievement{
		ID:          uuid.NewString(),
		UserID:      userID,
		BadgeName:   b.Name,
		Category:    b.Category,
		Description: b.Description,
		EarnedAt:    sc.stamp(),
	}
	inserted, err := sc.Achievements.InsertIfAbsent(ctx, a)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		return nil, false, nil
	}

	if b.Bonus > 0 {
		tx, err := ledger.record(ctx, sc, TransactionInput{
			UserID:   userID,
			Kind:     b.Kind,
			Amount:   b.Bonus,
			Reason:   "Achievement unlocked: " + b.Name,
			Metadata: map[string]any{"achievement": b.Name, "category": string(b.Category)},
		})
		if err != nil {
			return nil, false, err
		}
		if err := sc.Achievements.SetTransaction(ctx, a.ID, tx.ID); err != nil {
			return nil, false, err
		}
		a.TransactionID = &tx.ID
	}

	log.Info().
		Str("user_id", userID).
		Str("badge", b.Name).
		Int64("bonus", b.Bonus).
		Msg("Achievement granted")
	return a, true, nil
}

// AchievementEvaluator grants milestone, diversity and geographic badges.
type AchievementEvaluator struct {
	uow    *UnitOfWork
	ledger *Ledger
}

// NewAchievementEvaluator creates an AchievementEvaluator.
func NewAchievementEvaluator(uow *UnitOfWork, ledger *Ledger) *AchievementEvaluator {
	return &AchievementEvaluator{uow: uow, ledger: ledger}
}

func (e *AchievementEvaluator) checkAndAward(ctx context.Context, sc *Scope, userID string) ([]*model.Achievement, error) {
	user, err := sc.Users.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	byType, err := sc.Contributions.CountApprovedByType(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := BadgeStats{Approved: user.ApprovedContributions, ByType: byType, Provinces: user.ProvincesCovered}
	var granted []*model.Achievement
	for _, b := range EligibleBadges(stats) {
		a, ok, err := grantBadge(ctx, sc, e.ledger, userID, b)
		if err != nil {
			return nil, err
		}
		if ok {
			granted = append(granted, a)
		}
	}
	return granted, nil
}

// CheckAndAward evaluates every badge against fresh statistics and grants
// the ones userID does not hold yet. It returns only the newly granted
// achievements; a second call with unchanged statistics returns none.
func (e *AchievementEvaluator) CheckAndAward(ctx context.Context, userID string) ([]*model.Achievement, error) {
	var granted []*model.Achievement
	err := e.uow.Do(ctx, userID, func(sc *Scope) error {
		var err error
		granted, err = e.checkAndAward(ctx, sc, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return granted, nil
}

// Progress is an unearned badge with the user's distance to it.
type Progress struct {
	Name     string              `json:"name"`
	Category model.BadgeCategory `json:"category"`
	Current  int                 `json:"current"`
	Target   int                 `json:"target"`
	Bonus    int64               `json:"bonus"`
}

// UserAchievements is the earned badges of a user plus the next ones in reach.
type UserAchievements struct {
	Earned []*model.Achievement `json:"earned"`
	Next   []Progress           `json:"next"`
}

// NextProgress returns the next milestone and the next geographic tier
// above the user's counts, when any remain.
func NextProgress(approved, provinces int) []Progress {
	next := []Progress{}
	if m, ok := points.NextMilestone(approved); ok {
		next = append(next, Progress{
			Name:     m.BadgeName(),
			Category: model.BadgeMilestone,
			Current:  approved,
			Target:   m.Threshold,
			Bonus:    m.Bonus,
		})
	}
	for _, g := range points.GeoTiers {
		if provinces < g.Provinces {
			next = append(next, Progress{
				Name:     g.Name,
				Category: model.BadgeGeographic,
				Current:  provinces,
				Target:   g.Provinces,
				Bonus:    g.Bonus,
			})
			break
		}
	}
	return next
}

// GetUserAchievements returns a user's earned badges and their progress
// towards the next milestone and geographic tier.
func (e *AchievementEvaluator) GetUserAchievements(ctx context.Context, userID string) (*UserAchievements, error) {
	store := e.uow.Reader()
	user, err := store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	earned, err := store.Achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	if earned == nil {
		earned = []*model.Achievement{}
	}
	return &UserAchievements{
		Earned: earned,
		Next:   NextProgress(user.ApprovedContributions, user.ProvincesCovered),
	}, nil
}

// GetAllBadges returns the static badge catalog.
func (e *AchievementEvaluator) GetAllBadges() points.Catalog {
	return points.AllBadges()
}
