package points

import (
	"fmt"

	"pabuk-rewards/internal/model"
)

// Milestone is a one-time badge for reaching an approved-contribution count.
type Milestone struct {
	Level     string
	Threshold int
	Bonus     int64
	Kind      model.TransactionKind
}

// BadgeName is the achievement name granted for the milestone.
func (m Milestone) BadgeName() string {
	return m.Level + " Contributor"
}

// Description explains how the milestone is earned.
func (m Milestone) Description() string {
	return fmt.Sprintf("Reached %d approved contributions", m.Threshold)
}

// Milestones in ascending threshold order.
var Milestones = []Milestone{
	{Level: "Bronze", Threshold: 10, Bonus: 100, Kind: model.TxMilestoneBronze},
	{Level: "Silver", Threshold: 50, Bonus: 500, Kind: model.TxMilestoneSilver},
	{Level: "Gold", Threshold: 100, Bonus: 1000, Kind: model.TxMilestoneGold},
	{Level: "Platinum", Threshold: 500, Bonus: 5000, Kind: model.TxMilestonePlatinum},
	{Level: "Diamond", Threshold: 1000, Bonus: 10000, Kind: model.TxMilestoneDiamond},
	{Level: "Legend", Threshold: 5000, Bonus: 50000, Kind: model.TxMilestoneLegend},
	{Level: "Master", Threshold: 10000, Bonus: 100000, Kind: model.TxMilestoneMaster},
}

// NextMilestone returns the first milestone above approvedCount.
func NextMilestone(approvedCount int) (Milestone, bool) {
	for _, m := range Milestones {
		if approvedCount < m.Threshold {
			return m, true
		}
	}
	return Milestone{}, false
}

// StreakTier is a streak length that pays a one-off bonus when hit exactly.
type StreakTier struct {
	Days  int
	Name  string
	Bonus int64
	Kind  model.TransactionKind
}

// StreakTiers in ascending order.
var StreakTiers = []StreakTier{
	{Days: 7, Name: "Week Warrior", Bonus: 100, Kind: model.TxStreakWeekly},
	{Days: 30, Name: "Monthly Master", Bonus: 500, Kind: model.TxStreakMonthly},
	{Days: 90, Name: "Quarterly Champion", Bonus: 2000, Kind: model.TxStreakQuarterly},
	{Days: 365, Name: "Yearly Legend", Bonus: 10000, Kind: model.TxStreakYearly},
}

// StreakTierAt returns the tier whose length equals days exactly.
func StreakTierAt(days int) (StreakTier, bool) {
	for _, t := range StreakTiers {
		if t.Days == days {
			return t, true
		}
	}
	return StreakTier{}, false
}

// NextStreakTier returns the first tier longer than days.
func NextStreakTier(days int) (StreakTier, bool) {
	for _, t := range StreakTiers {
		if days < t.Days {
			return t, true
		}
	}
	return StreakTier{}, false
}

// StreakTypeFor classifies a streak length.
func StreakTypeFor(days int) model.StreakType {
	switch {
	case days >= 365:
		return model.StreakYearly
	case days >= 30:
		return model.StreakMonthly
	case days >= 7:
		return model.StreakWeekly
	default:
		return model.StreakDaily
	}
}

// DiversityPerTypeMinimum is the approved count a data type needs to count
// towards the cross-type badges.
const DiversityPerTypeMinimum = 10

// DiversityBadge is awarded for breadth or depth across data types.
type DiversityBadge struct {
	Name        string
	Description string
	Bonus       int64
	// TypesAtMinimum, when > 0, requires that many data types with at least
	// DiversityPerTypeMinimum approved contributions.
	TypesAtMinimum int
	// Type and Count, when Count > 0, require Count approved contributions of Type.
	Type  model.DataType
	Count int
}

// Earned reports whether the per-type approved counts satisfy the badge.
func (b DiversityBadge) Earned(counts map[model.DataType]int) bool {
	if b.TypesAtMinimum > 0 {
		n := 0
		for _, c := range counts {
			if c >= DiversityPerTypeMinimum {
				n++
			}
		}
		return n >= b.TypesAtMinimum
	}
	return b.Count > 0 && counts[b.Type] >= b.Count
}

// DiversityBadges in display order.
var DiversityBadges = []DiversityBadge{
	{Name: "Multi-Talented", Description: "10+ contributions in 2 different data types", Bonus: 200, TypesAtMinimum: 2},
	{Name: "Polymath", Description: "10+ contributions in all 4 data types", Bonus: 500, TypesAtMinimum: 4},
	{Name: "Storyteller", Description: "100 approved text contributions", Bonus: 300, Type: model.DataTypeText, Count: 100},
	{Name: "Sound Archivist", Description: "50 approved audio contributions", Bonus: 400, Type: model.DataTypeAudio, Count: 50},
	{Name: "Visual Artist", Description: "50 approved image contributions", Bonus: 350, Type: model.DataTypeImage, Count: 50},
	{Name: "AI Pioneer", Description: "100 approved synthetic contributions", Bonus: 200, Type: model.DataTypeSynthetic, Count: 100},
}

// GeoTier is a badge for covering a number of provinces.
type GeoTier struct {
	Provinces int
	Name      string
	Bonus     int64
}

// Description explains how the tier is earned.
func (g GeoTier) Description() string {
	return fmt.Sprintf("Contributed to %d provinces", g.Provinces)
}

// GeoTiers in ascending order.
var GeoTiers = []GeoTier{
	{Provinces: 10, Name: "Explorer (10 Provinces)", Bonus: 500},
	{Provinces: 25, Name: "Adventurer (25 Provinces)", Bonus: 1500},
	{Provinces: 50, Name: "Voyager (50 Provinces)", Bonus: 3000},
	{Provinces: 77, Name: "Ultimate Explorer (All 77 Provinces)", Bonus: 10000},
}

// BadgeDefinition is a catalog entry for the "how to earn" page.
type BadgeDefinition struct {
	Name        string              `json:"name"`
	Category    model.BadgeCategory `json:"category"`
	Description string              `json:"description"`
	Threshold   int                 `json:"threshold,omitempty"`
	Bonus       int64               `json:"bonus"`
}

// Catalog groups every badge definition by family.
type Catalog struct {
	Milestones []BadgeDefinition `json:"milestones"`
	Diversity  []BadgeDefinition `json:"diversity"`
	Geographic []BadgeDefinition `json:"geographic"`
	Streaks    []BadgeDefinition `json:"streaks"`
}

// AllBadges returns the static badge catalog in display order.
func AllBadges() Catalog {
	var c Catalog
	for _, m := range Milestones {
		c.Milestones = append(c.Milestones, BadgeDefinition{
			Name:        m.BadgeName(),
			Category:    model.BadgeMilestone,
			Description: m.Description(),
			Threshold:   m.Threshold,
			Bonus:       m.Bonus,
		})
	}
	for _, d := range DiversityBadges {
		c.Diversity = append(c.Diversity, BadgeDefinition{
			Name:        d.Name,
			Category:    model.BadgeQuality,
			Description: d.Description,
			Threshold:   d.Count,
			Bonus:       d.Bonus,
		})
	}
	for _, g := range GeoTiers {
		c.Geographic = append(c.Geographic, BadgeDefinition{
			Name:        g.Name,
			Category:    model.BadgeGeographic,
			Description: g.Description(),
			Threshold:   g.Provinces,
			Bonus:       g.Bonus,
		})
	}
	for _, s := range StreakTiers {
		c.Streaks = append(c.Streaks, BadgeDefinition{
			Name:        s.Name,
			Category:    model.BadgeStreak,
			Description: fmt.Sprintf("%d day contribution streak", s.Days),
			Threshold:   s.Days,
			Bonus:       s.Bonus,
		})
	}
	return c
}
