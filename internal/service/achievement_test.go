package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"pabuk-rewards/internal/model"
	"pabuk-rewards/internal/points"
)

func badgeNames(awards []BadgeAward) []string {
	names := make([]string, 0, len(awards))
	for _, a := range awards {
		names = append(names, a.Name)
	}
	return names
}

func TestEligibleBadges_Milestones(t *testing.T) {
	assert.Empty(t, EligibleBadges(BadgeStats{Approved: 9}))

	got := EligibleBadges(BadgeStats{Approved: 10})
	require.Len(t, got, 1)
	assert.Equal(t, "Bronze Contributor", got[0].Name)
	assert.Equal(t, model.BadgeMilestone, got[0].Category)
	assert.Equal(t, int64(100), got[0].Bonus)
	assert.Equal(t, model.TxMilestoneBronze, got[0].Kind)

	assert.Equal(t, []string{"Bronze Contributor", "Silver Contributor"}, badgeNames(EligibleBadges(BadgeStats{Approved: 75})))
}

func TestEligibleBadges_Diversity(t *testing.T) {
	got := badgeNames(EligibleBadges(BadgeStats{ByType: map[model.DataType]int{
		model.DataTypeText:  100,
		model.DataTypeAudio: 9,
	}}))
	assert.Equal(t, []string{"Storyteller"}, got, "one type at minimum is not cross-type")

	got = badgeNames(EligibleBadges(BadgeStats{ByType: map[model.DataType]int{
		model.DataTypeText:  10,
		model.DataTypeAudio: 10,
	}}))
	assert.Equal(t, []string{"Multi-Talented"}, got)

	got = badgeNames(EligibleBadges(BadgeStats{ByType: map[model.DataType]int{
		model.DataTypeText:      10,
		model.DataTypeAudio:     50,
		model.DataTypeImage:     10,
		model.DataTypeSynthetic: 10,
	}}))
	assert.Equal(t, []string{"Multi-Talented", "Polymath", "Sound Archivist"}, got)
}

func TestEligibleBadges_GeographicJump(t *testing.T) {
	got := EligibleBadges(BadgeStats{Provinces: 80})
	require.Len(t, got, 4, "every tier passed is earned in one pass")
	for i, g := range points.GeoTiers {
		assert.Equal(t, g.Name, got[i].Name)
		assert.Equal(t, model.BadgeGeographic, got[i].Category)
		assert.Equal(t, model.TxAchievementBonus, got[i].Kind)
	}
}

func TestEligibleBadgesMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		approved := rapid.IntRange(0, 12000).Draw(t, "approved")
		provinces := rapid.IntRange(0, 77).Draw(t, "provinces")
		more := rapid.IntRange(0, 500).Draw(t, "more")

		before := badgeNames(EligibleBadges(BadgeStats{Approved: approved, Provinces: provinces}))
		after := badgeNames(EligibleBadges(BadgeStats{Approved: approved + more, Provinces: min(provinces+more, 77)}))

		held := make(map[string]bool, len(after))
		for _, n := range after {
			held[n] = true
		}
		for _, n := range before {
			if !held[n] {
				t.Fatalf("badge %q lost when stats grew", n)
			}
		}
	})
}

func TestNextProgress(t *testing.T) {
	got := NextProgress(12, 9)
	require.Len(t, got, 2)
	assert.Equal(t, Progress{Name: "Silver Contributor", Category: model.BadgeMilestone, Current: 12, Target: 50, Bonus: 500}, got[0])
	assert.Equal(t, "Explorer (10 Provinces)", got[1].Name)
	assert.Equal(t, 10, got[1].Target)

	assert.Empty(t, NextProgress(20000, 77))
}

func TestStreakBadgeHasNoBonus(t *testing.T) {
	tier, ok := points.StreakTierAt(30)
	require.True(t, ok)

	b := streakBadge(tier)
	assert.Equal(t, "Monthly Master", b.Name)
	assert.Equal(t, model.BadgeStreak, b.Category)
	assert.Zero(t, b.Bonus)
}
