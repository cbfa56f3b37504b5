package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pabuk-rewards/internal/model"
	"pabuk-rewards/internal/points"
)

// Workflow adapts contribution lifecycle events to the reward engine.
type Workflow struct {
	uow          *UnitOfWork
	ledger       *Ledger
	streaks      *StreakTracker
	achievements *AchievementEvaluator
	// underrepresented is the approved count below which a province earns
	// the underrepresented bonus.
	underrepresented int
}

// NewWorkflow creates a Workflow.
func NewWorkflow(uow *UnitOfWork, ledger *Ledger, streaks *StreakTracker, achievements *AchievementEvaluator, underrepresented int) *Workflow {
	if underrepresented <= 0 {
		underrepresented = 5
	}
	return &Workflow{
		uow:              uow,
		ledger:           ledger,
		streaks:          streaks,
		achievements:     achievements,
		underrepresented: underrepresented,
	}
}

// EnsureUser creates the reward row for id with a zero balance unless it exists.
func (w *Workflow) EnsureUser(ctx context.Context, id, name string) (*model.User, error) {
	var user *model.User
	err := w.uow.Do(ctx, id, func(sc *Scope) error {
		u, created, err := sc.Users.Ensure(ctx, id, name, points.LevelFor(0), sc.Now)
		if err != nil {
			return err
		}
		if created {
			sc.track(id, u.Points)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SubmitInput is a newly submitted contribution.
type SubmitInput struct {
	UserID     string
	Type       model.DataType
	Category   model.Category
	ProvinceID string
}

func (in SubmitInput) validate() error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: %q", points.ErrUnknownDataType, in.Type)
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	if in.ProvinceID == "" {
		return fmt.Errorf("%w: province id is required", ErrInvalidInput)
	}
	return nil
}

// SubmitResult is a stored contribution with its provisional award.
type SubmitResult struct {
	Contribution *model.Contribution     `json:"contribution"`
	Result       points.Result           `json:"result"`
	Transaction  *model.PointTransaction `json:"transaction,omitempty"`
	Estimate     points.Estimate         `json:"estimate"`
}

// Submit stores a PENDING contribution, decides its geographic flags from
// the approved work already in the province, and pays its provisional points.
func (w *Workflow) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	estimate, err := points.ExamplePoints(in.Type, in.Category)
	if err != nil {
		return nil, err
	}

	var out *SubmitResult
	err = w.uow.Do(ctx, in.UserID, func(sc *Scope) error {
		if _, err := sc.Users.GetForUpdate(ctx, in.UserID); err != nil {
			return err
		}
		inProvince, err := sc.Contributions.CountApprovedInProvince(ctx, in.ProvinceID)
		if err != nil {
			return err
		}

		c := &model.Contribution{
			ID:               uuid.NewString(),
			UserID:           in.UserID,
			Type:             in.Type,
			Category:         in.Category,
			ProvinceID:       in.ProvinceID,
			Status:           model.StatusPending,
			FirstInProvince:  inProvince == 0,
			Underrepresented: inProvince < w.underrepresented,
			CreatedAt:        sc.Now,
			UpdatedAt:        sc.Now,
		}
		if err := sc.Contributions.Create(ctx, c); err != nil {
			return err
		}

		award, err := w.ledger.award(ctx, sc, c)
		if err != nil {
			return err
		}
		out = &SubmitResult{
			Contribution: award.Contribution,
			Result:       award.Result,
			Transaction:  award.Transaction,
			Estimate:     estimate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", in.UserID).
		Str("contribution_id", out.Contribution.ID).
		Int64("points", out.Result.Total).
		Msg("Contribution submitted")
	return out, nil
}

var transitions = map[model.Status][]model.Status{
	model.StatusPending:  {model.StatusApproved, model.StatusRejected},
	model.StatusApproved: {model.StatusFeatured},
}

// CanTransition reports whether moderation may move a contribution from
// one status to another.
func CanTransition(from, to model.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ModerateInput is a moderation decision.
type ModerateInput struct {
	ContributionID string
	OldStatus      model.Status
	NewStatus      model.Status
	QualityRating  *int
}

// ModerationResult collects everything a moderation decision changed.
type ModerationResult struct {
	Contribution *model.Contribution  `json:"contribution"`
	Status       *Adjustment          `json:"status"`
	Quality      *Adjustment          `json:"quality,omitempty"`
	Streak       *StreakUpdate        `json:"streak,omitempty"`
	Achievements []*model.Achievement `json:"achievements,omitempty"`
}

// Moderate applies a moderation decision as one unit: the status delta at
// the stored rating, then the quality delta at the new status. An approval
// of a pending contribution also moves the streak, refreshes provinces
// covered and evaluates badges.
func (w *Workflow) Moderate(ctx context.Context, in ModerateInput) (*ModerationResult, error) {
	if !in.OldStatus.Valid() || !in.NewStatus.Valid() {
		return nil, fmt.Errorf("%w: %q → %q", points.ErrUnknownStatus, in.OldStatus, in.NewStatus)
	}
	if !CanTransition(in.OldStatus, in.NewStatus) {
		return nil, fmt.Errorf("%w: %s → %s", ErrIllegalTransition, in.OldStatus, in.NewStatus)
	}
	if r := in.QualityRating; r != nil && (*r < points.MinRating || *r > points.MaxRating) {
		return nil, fmt.Errorf("%w: got %d", points.ErrInvalidRating, *r)
	}

	c, err := w.uow.Reader().Contributions.GetByID(ctx, in.ContributionID)
	if err != nil {
		return nil, classify(err)
	}
	userID := c.UserID

	var out *ModerationResult
	err = w.uow.Do(ctx, userID, func(sc *Scope) error {
		locked, err := sc.Contributions.GetForUpdate(ctx, in.ContributionID)
		if err != nil {
			return err
		}
		if locked.Status != in.OldStatus {
			return fmt.Errorf("%w: stored %s, caller saw %s", ErrStaleStatus, locked.Status, in.OldStatus)
		}

		res := &ModerationResult{}
		res.Status, err = w.ledger.applyStatusChange(ctx, sc, locked, in.NewStatus)
		if err != nil {
			return err
		}
		res.Contribution = res.Status.Contribution

		if in.QualityRating != nil {
			res.Quality, err = w.ledger.applyQualityChange(ctx, sc, res.Contribution, *in.QualityRating)
			if err != nil {
				return err
			}
			res.Contribution = res.Quality.Contribution
		}

		if in.OldStatus == model.StatusPending && in.NewStatus == model.StatusApproved {
			res.Streak, err = w.streaks.update(ctx, sc, userID)
			if err != nil {
				return err
			}
			provinces, err := sc.Contributions.CountDistinctProvinces(ctx, userID)
			if err != nil {
				return err
			}
			if err := sc.Users.SetProvincesCovered(ctx, userID, provinces, sc.Now); err != nil {
				return err
			}
			res.Achievements, err = w.achievements.checkAndAward(ctx, sc, userID)
			if err != nil {
				return err
			}
			if res.Streak.Badge != nil {
				res.Achievements = append([]*model.Achievement{res.Streak.Badge}, res.Achievements...)
			}
		}

		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("contribution_id", in.ContributionID).
		Str("old_status", string(in.OldStatus)).
		Str("new_status", string(in.NewStatus)).
		Msg("Contribution moderated")
	return out, nil
}

// RerateInput is a quality re-rating of a contribution.
type RerateInput struct {
	ContributionID string
	OldRating      *int
	NewRating      int
}

// Rerate applies the quality delta of a re-rating.
func (w *Workflow) Rerate(ctx context.Context, in RerateInput) (*Adjustment, error) {
	return w.ledger.UpdateQualityChange(ctx, in.ContributionID, in.OldRating, in.NewRating)
}
