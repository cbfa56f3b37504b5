package points

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pabuk-rewards/internal/model"
)

func TestNextMilestone(t *testing.T) {
	m, ok := NextMilestone(0)
	assert.True(t, ok)
	assert.Equal(t, "Bronze Contributor", m.BadgeName())

	m, ok = NextMilestone(10)
	assert.True(t, ok)
	assert.Equal(t, "Silver", m.Level)

	_, ok = NextMilestone(10000)
	assert.False(t, ok)
}

func TestStreakTiers(t *testing.T) {
	tier, ok := StreakTierAt(7)
	assert.True(t, ok)
	assert.Equal(t, "Week Warrior", tier.Name)
	assert.Equal(t, int64(100), tier.Bonus)

	_, ok = StreakTierAt(8)
	assert.False(t, ok)

	next, ok := NextStreakTier(8)
	assert.True(t, ok)
	assert.Equal(t, 30, next.Days)

	_, ok = NextStreakTier(365)
	assert.False(t, ok)

	assert.Equal(t, model.StreakDaily, StreakTypeFor(6))
	assert.Equal(t, model.StreakWeekly, StreakTypeFor(7))
	assert.Equal(t, model.StreakMonthly, StreakTypeFor(90))
	assert.Equal(t, model.StreakYearly, StreakTypeFor(400))
}

func TestDiversityBadgeEarned(t *testing.T) {
	counts := map[model.DataType]int{
		model.DataTypeText:  120,
		model.DataTypeAudio: 10,
		model.DataTypeImage: 9,
	}

	earned := map[string]bool{}
	for _, b := range DiversityBadges {
		earned[b.Name] = b.Earned(counts)
	}

	assert.Equal(t, map[string]bool{
		"Multi-Talented":  true,
		"Polymath":        false,
		"Storyteller":     true,
		"Sound Archivist": false,
		"Visual Artist":   false,
		"AI Pioneer":      false,
	}, earned)
}

func TestAllBadges(t *testing.T) {
	c := AllBadges()
	assert.Len(t, c.Milestones, len(Milestones))
	assert.Len(t, c.Diversity, len(DiversityBadges))
	assert.Len(t, c.Geographic, len(GeoTiers))
	assert.Len(t, c.Streaks, len(StreakTiers))

	assert.Equal(t, "Bronze Contributor", c.Milestones[0].Name)
	assert.Equal(t, model.BadgeGeographic, c.Geographic[3].Category)
	assert.Equal(t, 77, c.Geographic[3].Threshold)
}
