// Package points holds the reward policy tables and the pure point calculator.
package points

import (
	"github.com/shopspring/decimal"

	"pabuk-rewards/internal/model"
)

// BasePoints is the fixed point value per data type before any modifier.
var BasePoints = map[model.DataType]int64{
	model.DataTypeText:      50,
	model.DataTypeAudio:     80,
	model.DataTypeImage:     40,
	model.DataTypeSynthetic: 20,
}

// CategoryModifiers weight the base points by category.
var CategoryModifiers = map[model.Category]decimal.Decimal{
	model.CategoryFolktale:       decimal.RequireFromString("1.0"),
	model.CategoryProverb:        decimal.RequireFromString("0.6"),
	model.CategoryHistory:        decimal.RequireFromString("1.2"),
	model.CategoryDialect:        decimal.RequireFromString("1.0"),
	model.CategoryFolkSong:       decimal.RequireFromString("0.875"),
	model.CategoryFestivalSound:  decimal.RequireFromString("0.75"),
	model.CategoryLandmark:       decimal.RequireFromString("1.0"),
	model.CategoryLandscape:      decimal.RequireFromString("0.875"),
	model.CategoryCulturalObject: decimal.RequireFromString("1.25"),
	model.CategoryFood:           decimal.RequireFromString("1.125"),
	model.CategoryOther:          decimal.RequireFromString("0.5"),
}

// DefaultCategoryModifier applies to categories missing from CategoryModifiers.
var DefaultCategoryModifier = decimal.RequireFromString("0.5")

// StatusMultipliers scale points by moderation stage.
var StatusMultipliers = map[model.Status]decimal.Decimal{
	model.StatusPending:  decimal.RequireFromString("0.5"),
	model.StatusApproved: decimal.RequireFromString("1.0"),
	model.StatusRejected: decimal.Zero,
	model.StatusFeatured: decimal.RequireFromString("2.0"),
}

// Quality ratings run from MinRating to MaxRating; unrated work counts as DefaultRating.
const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 3
)

// QualityMultipliers scale points by reviewer rating.
var QualityMultipliers = map[int]decimal.Decimal{
	1: decimal.RequireFromString("0.8"),
	2: decimal.RequireFromString("0.9"),
	3: decimal.RequireFromString("1.0"),
	4: decimal.RequireFromString("1.2"),
	5: decimal.RequireFromString("1.5"),
}

// QualityBonuses are added after rounding. Rating 1 is a built-in penalty.
var QualityBonuses = map[int]int64{
	1: -10,
	2: 0,
	3: 10,
	4: 25,
	5: 50,
}

// Geographic bonuses added per contribution.
const (
	FirstInProvinceBonus  int64 = 20
	UnderrepresentedBonus int64 = 50
)

// Streak policy.
const (
	StreakGraceHours       = 48
	StreakDailyBonus int64 = 10
	// SignificantStreak is the shortest streak recorded in history when it breaks.
	SignificantStreak = 7
)

// PenaltyDefaults are the magnitudes used when a penalty is applied without an amount.
var PenaltyDefaults = map[model.TransactionKind]int64{
	model.TxPenaltySpam:       50,
	model.TxPenaltyDuplicate:  25,
	model.TxPenaltyLowQuality: 100,
}

// LevelThreshold is the minimum balance for a level.
type LevelThreshold struct {
	Name      string
	MinPoints int64
}

// Levels in ascending order. The first entry is the floor for any balance,
// including negative ones.
var Levels = []LevelThreshold{
	{Name: "Bronze", MinPoints: 0},
	{Name: "Silver", MinPoints: 1000},
	{Name: "Gold", MinPoints: 5000},
	{Name: "Platinum", MinPoints: 20000},
	{Name: "Diamond", MinPoints: 100000},
}

// LevelFor derives the level name from a balance.
func LevelFor(balance int64) string {
	level := Levels[0].Name
	for _, l := range Levels {
		if balance >= l.MinPoints {
			level = l.Name
		}
	}
	return level
}
