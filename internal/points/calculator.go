package points

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pabuk-rewards/internal/model"
)

var (
	ErrUnknownDataType = fmt.Errorf("%w: unknown data type", model.ErrValidation)
	ErrUnknownStatus   = fmt.Errorf("%w: unknown status", model.ErrValidation)
	ErrInvalidRating   = fmt.Errorf("%w: quality rating must be between 1 and 5", model.ErrValidation)
)

// Input is the part of a contribution the calculator looks at.
type Input struct {
	Type          model.DataType
	Category      model.Category
	Status        model.Status
	QualityRating *int
}

// Options carries the contextual bonuses and an optional rating override.
type Options struct {
	FirstInProvince       bool
	Underrepresented      bool
	QualityRatingOverride *int
}

// Breakdown splits a total into display components.
type Breakdown struct {
	Base       int64 `json:"base"`
	Status     int64 `json:"status"`
	Quality    int64 `json:"quality"`
	Geographic int64 `json:"geographic"`
	Milestone  int64 `json:"milestone"`
	Streak     int64 `json:"streak"`
}

// Result is the outcome of Calculate.
type Result struct {
	Total     int64     `json:"totalPoints"`
	Core      int64     `json:"core"`
	Rating    int       `json:"rating"`
	Breakdown Breakdown `json:"breakdown"`
}

// Lines renders the non-zero breakdown components for display.
func (r Result) Lines() []string {
	var lines []string
	add := func(label string, v int64) {
		if v != 0 {
			lines = append(lines, fmt.Sprintf("%s: %+d", label, v))
		}
	}
	add("Base points", r.Breakdown.Base)
	add("Status adjustment", r.Breakdown.Status)
	add("Quality bonus", r.Breakdown.Quality)
	add("Geographic bonus", r.Breakdown.Geographic)
	add("Milestone bonus", r.Breakdown.Milestone)
	add("Streak bonus", r.Breakdown.Streak)
	lines = append(lines, fmt.Sprintf("Total: %d", r.Total))
	return lines
}

func roundInt(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// EffectiveRating resolves the rating used for a calculation: the override,
// then the contribution's own rating, then DefaultRating.
func EffectiveRating(in Input, opts Options) (int, error) {
	rating := DefaultRating
	switch {
	case opts.QualityRatingOverride != nil:
		rating = *opts.QualityRatingOverride
	case in.QualityRating != nil:
		rating = *in.QualityRating
	}
	if rating < MinRating || rating > MaxRating {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	return rating, nil
}

// Calculate computes the point value of a contribution. The product of the
// multipliers is rounded half-up before the integer bonuses are added, and
// the total never drops below zero.
func Calculate(in Input, opts Options) (Result, error) {
	base, ok := BasePoints[in.Type]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownDataType, in.Type)
	}
	status, ok := StatusMultipliers[in.Status]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownStatus, in.Status)
	}
	category, ok := CategoryModifiers[in.Category]
	if !ok {
		category = DefaultCategoryModifier
	}
	rating, err := EffectiveRating(in, opts)
	if err != nil {
		return Result{}, err
	}
	qm := QualityMultipliers[rating]
	qb := QualityBonuses[rating]
	// A zero status multiplier voids the quality component as well, so only
	// geographic bonuses can lift a rejected contribution above zero.
	if status.IsZero() {
		qb = 0
	}

	var geo int64
	if opts.FirstInProvince {
		geo += FirstInProvinceBonus
	}
	if opts.Underrepresented {
		geo += UnderrepresentedBonus
	}

	weighted := decimal.NewFromInt(base).Mul(category)
	core := roundInt(weighted.Mul(status).Mul(qm))
	total := core + qb + geo
	if total < 0 {
		total = 0
	}

	baseRounded := roundInt(weighted)
	statusAdj := roundInt(weighted.Mul(status.Sub(decimal.NewFromInt(1))))
	qualityAdj := qb + roundInt(weighted.Mul(status).Mul(qm.Sub(decimal.NewFromInt(1))))

	return Result{
		Total:  total,
		Core:   core,
		Rating: rating,
		Breakdown: Breakdown{
			Base:       baseRounded,
			Status:     statusAdj,
			Quality:    qualityAdj,
			Geographic: geo,
		},
	}, nil
}

// CalculatePending is the provisional value shown at submission time.
func CalculatePending(t model.DataType, c model.Category) (Result, error) {
	return Calculate(Input{Type: t, Category: c, Status: model.StatusPending}, Options{})
}

// CalculateStatusChange returns the signed delta between the value at
// newStatus and the value at oldStatus, all else equal.
func CalculateStatusChange(in Input, oldStatus, newStatus model.Status, opts Options) (int64, error) {
	in.Status = oldStatus
	before, err := Calculate(in, opts)
	if err != nil {
		return 0, err
	}
	in.Status = newStatus
	after, err := Calculate(in, opts)
	if err != nil {
		return 0, err
	}
	return after.Total - before.Total, nil
}

// CalculateQualityChange returns the signed delta of re-rating a contribution
// at its current status. A nil oldRating counts as DefaultRating.
func CalculateQualityChange(in Input, oldRating *int, newRating int, opts Options) (int64, error) {
	old := DefaultRating
	if oldRating != nil {
		old = *oldRating
	}
	opts.QualityRatingOverride = &old
	before, err := Calculate(in, opts)
	if err != nil {
		return 0, err
	}
	opts.QualityRatingOverride = &newRating
	after, err := Calculate(in, opts)
	if err != nil {
		return 0, err
	}
	return after.Total - before.Total, nil
}

// Estimate lists what a contribution of one type and category is worth at
// each stage.
type Estimate struct {
	Type     model.DataType `json:"type"`
	Category model.Category `json:"category"`
	Pending  int64          `json:"pending"`
	Approved int64          `json:"approved"`
	Featured int64          `json:"featured"`
	// Max is a featured, top-rated contribution with both geographic bonuses.
	Max int64 `json:"max"`
}

// ExamplePoints builds an Estimate for the "how to earn" page.
func ExamplePoints(t model.DataType, c model.Category) (Estimate, error) {
	est := Estimate{Type: t, Category: c}
	stages := []struct {
		status model.Status
		dst    *int64
	}{
		{model.StatusPending, &est.Pending},
		{model.StatusApproved, &est.Approved},
		{model.StatusFeatured, &est.Featured},
	}
	for _, s := range stages {
		r, err := Calculate(Input{Type: t, Category: c, Status: s.status}, Options{})
		if err != nil {
			return Estimate{}, err
		}
		*s.dst = r.Total
	}
	top := MaxRating
	r, err := Calculate(
		Input{Type: t, Category: c, Status: model.StatusFeatured, QualityRating: &top},
		Options{FirstInProvince: true, Underrepresented: true},
	)
	if err != nil {
		return Estimate{}, err
	}
	est.Max = r.Total
	return est, nil
}

// InputFrom extracts the calculator input from a stored contribution.
func InputFrom(c *model.Contribution) Input {
	return Input{
		Type:          c.Type,
		Category:      c.Category,
		Status:        c.Status,
		QualityRating: c.QualityRating,
	}
}

// OptionsFrom extracts the geographic flags stored on a contribution.
func OptionsFrom(c *model.Contribution) Options {
	return Options{
		FirstInProvince:  c.FirstInProvince,
		Underrepresented: c.Underrepresented,
	}
}

