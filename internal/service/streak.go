package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pabuk-rewards/internal/model"
	"pabuk-rewards/internal/points"
)

// StreakState is the stored streak of a user.
type StreakState struct {
	Length       int
	StartedAt    *time.Time
	LastActivity *time.Time
}

func streakStateOf(u *model.User) StreakState {
	return StreakState{Length: u.Streak, StartedAt: u.StreakStartedAt, LastActivity: u.LastContributionAt}
}

// EndedStreak describes a streak replaced by a reset.
type EndedStreak struct {
	Length    int
	StartedAt time.Time
	EndedAt   time.Time
}

// StreakTransition is the result of one qualifying activity.
type StreakTransition struct {
	Length    int
	StartedAt time.Time
	Continued bool
	// Ended is set when a reset replaced a non-empty streak.
	Ended *EndedStreak
	// Milestone is set when Length hits a tier exactly.
	Milestone *points.StreakTier
}

// NextStreak applies one qualifying activity at now to prev. Within the
// grace window the streak grows by one; otherwise it restarts at one.
func NextStreak(prev StreakState, now time.Time, grace time.Duration) StreakTransition {
	var t StreakTransition

	if prev.LastActivity != nil && prev.Length > 0 && now.Sub(*prev.LastActivity) <= grace {
		t.Continued = true
		t.Length = prev.Length + 1
		t.StartedAt = *prev.LastActivity
		if prev.StartedAt != nil {
			t.StartedAt = *prev.StartedAt
		}
	} else {
		t.Length = 1
		t.StartedAt = now
		if prev.LastActivity != nil && prev.Length > 0 {
			start := *prev.LastActivity
			if prev.StartedAt != nil {
				start = *prev.StartedAt
			}
			t.Ended = &EndedStreak{Length: prev.Length, StartedAt: start, EndedAt: *prev.LastActivity}
		}
	}

	if tier, ok := points.StreakTierAt(t.Length); ok {
		t.Milestone = &tier
	}
	return t
}

// StreakUpdate is the outcome of StreakTracker.UpdateStreak.
type StreakUpdate struct {
	Length       int                       `json:"length"`
	Continued    bool                      `json:"continued"`
	Milestone    *points.StreakTier        `json:"milestone,omitempty"`
	BonusAwarded int64                     `json:"bonusAwarded"`
	Transactions []*model.PointTransaction `json:"transactions"`
	Badge        *model.Achievement        `json:"badge,omitempty"`
}

// StreakTracker owns the streak fields of users.
type StreakTracker struct {
	uow    *UnitOfWork
	ledger *Ledger
	grace  time.Duration
	loc    *time.Location
}

// NewStreakTracker creates a StreakTracker. loc defines calendar days for
// GetStreakStatus.
func NewStreakTracker(uow *UnitOfWork, ledger *Ledger, grace time.Duration, loc *time.Location) *StreakTracker {
	if grace <= 0 {
		grace = points.StreakGraceHours * time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	return &StreakTracker{uow: uow, ledger: ledger, grace: grace, loc: loc}
}

// update records one qualifying activity for userID inside sc.
func (s *StreakTracker) update(ctx context.Context, sc *Scope, userID string) (*StreakUpdate, error) {
	user, err := sc.Users.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	t := NextStreak(streakStateOf(user), sc.Now, s.grace)
	out := &StreakUpdate{Length: t.Length, Continued: t.Continued, Milestone: t.Milestone}

	if t.Ended != nil && t.Ended.Length >= points.SignificantStreak {
		end := t.Ended.EndedAt
		err := sc.Streaks.Create(ctx, &model.StreakHistory{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      points.StreakTypeFor(t.Ended.Length),
			StartDate: t.Ended.StartedAt,
			EndDate:   &end,
			Length:    t.Ended.Length,
			CreatedAt: sc.stamp(),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("user_id", userID).Int("streak", t.Ended.Length).Msg("Streak ended")
	}

	daily, err := s.ledger.record(ctx, sc, TransactionInput{
		UserID:   userID,
		Kind:     model.TxStreakDaily,
		Amount:   points.StreakDailyBonus,
		Reason:   fmt.Sprintf("Daily streak bonus (Day %d)", t.Length),
		Metadata: map[string]any{"streak": t.Length},
	})
	if err != nil {
		return nil, err
	}
	out.Transactions = append(out.Transactions, daily)
	out.BonusAwarded += daily.Amount

	if m := t.Milestone; m != nil {
		bonus, err := s.ledger.record(ctx, sc, TransactionInput{
			UserID:   userID,
			Kind:     m.Kind,
			Amount:   m.Bonus,
			Reason:   fmt.Sprintf("%s: %d day streak", m.Name, m.Days),
			Metadata: map[string]any{"streak": t.Length, "milestone": m.Name},
		})
		if err != nil {
			return nil, err
		}
		out.Transactions = append(out.Transactions, bonus)
		out.BonusAwarded += bonus.Amount

		err = sc.Streaks.Create(ctx, &model.StreakHistory{
			ID:           uuid.NewString(),
			UserID:       userID,
			Type:         points.StreakTypeFor(m.Days),
			StartDate:    t.StartedAt,
			Length:       t.Length,
			BonusAwarded: m.Bonus,
			CreatedAt:    sc.stamp(),
		})
		if err != nil {
			return nil, err
		}

		badge, _, err := grantBadge(ctx, sc, s.ledger, userID, streakBadge(*m))
		if err != nil {
			return nil, err
		}
		out.Badge = badge
	}

	startedAt := t.StartedAt
	if err := sc.Users.UpdateStreak(ctx, userID, t.Length, &startedAt, sc.Now, 1); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStreak records one qualifying activity (an approved contribution)
// for userID now: it moves the streak, pays the daily bonus and any exact
// milestone bonus, and bumps the approved-contribution count.
func (s *StreakTracker) UpdateStreak(ctx context.Context, userID string) (*StreakUpdate, error) {
	var out *StreakUpdate
	err := s.uow.Do(ctx, userID, func(sc *Scope) error {
		var err error
		out, err = s.update(ctx, sc, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NextStreakMilestone is the next tier a streak can reach.
type NextStreakMilestone struct {
	Name          string `json:"name"`
	Days          int    `json:"days"`
	DaysRemaining int    `json:"daysRemaining"`
	Bonus         int64  `json:"bonus"`
}

// StreakStatus is the display view of a streak.
type StreakStatus struct {
	Current          int                  `json:"current"`
	Stored           int                  `json:"stored"`
	Active           bool                 `json:"active"`
	LastActivity     *time.Time           `json:"lastActivity,omitempty"`
	BonusEarnedToday bool                 `json:"bonusEarnedToday"`
	NextMilestone    *NextStreakMilestone `json:"nextMilestone,omitempty"`
}

// StreakStatusAt derives the display status of prev at now. A streak whose
// grace window has lapsed reads as zero even though the stored length is
// only reset by the next qualifying activity.
func StreakStatusAt(prev StreakState, now time.Time, grace time.Duration, loc *time.Location) StreakStatus {
	st := StreakStatus{Stored: prev.Length, LastActivity: prev.LastActivity}

	if prev.LastActivity != nil && prev.Length > 0 && now.Sub(*prev.LastActivity) <= grace {
		st.Active = true
		st.Current = prev.Length
	}

	if prev.LastActivity != nil {
		local := now.In(loc)
		startOfDay := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		st.BonusEarnedToday = !prev.LastActivity.Before(startOfDay)
	}

	if tier, ok := points.NextStreakTier(st.Current); ok {
		st.NextMilestone = &NextStreakMilestone{
			Name:          tier.Name,
			Days:          tier.Days,
			DaysRemaining: tier.Days - st.Current,
			Bonus:         tier.Bonus,
		}
	}
	return st
}

// GetStreakStatus reports the current streak of a user. It does not write.
func (s *StreakTracker) GetStreakStatus(ctx context.Context, userID string) (*StreakStatus, error) {
	user, err := s.uow.Reader().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	st := StreakStatusAt(streakStateOf(user), s.uow.Now(), s.grace, s.loc)
	return &st, nil
}

// StreakHistory lists a user's recorded milestones and ended streaks, newest first.
func (s *StreakTracker) StreakHistory(ctx context.Context, userID string, limit int) ([]*model.StreakHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	store := s.uow.Reader()
	if _, err := store.Users.GetByID(ctx, userID); err != nil {
		return nil, classify(err)
	}
	history, err := store.Streaks.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, classify(err)
	}
	return history, nil
}
