package model

// TransactionKind categorizes a ledger entry.
type TransactionKind string

const (
	TxContributionText      TransactionKind = "CONTRIBUTION_TEXT"
	TxContributionAudio     TransactionKind = "CONTRIBUTION_AUDIO"
	TxContributionImage     TransactionKind = "CONTRIBUTION_IMAGE"
	TxContributionSynthetic TransactionKind = "CONTRIBUTION_SYNTHETIC"

	TxStreakDaily     TransactionKind = "STREAK_DAILY"
	TxStreakWeekly    TransactionKind = "STREAK_WEEKLY"
	TxStreakMonthly   TransactionKind = "STREAK_MONTHLY"
	TxStreakQuarterly TransactionKind = "STREAK_QUARTERLY"
	TxStreakYearly    TransactionKind = "STREAK_YEARLY"

	TxMilestoneBronze   TransactionKind = "MILESTONE_BRONZE"
	TxMilestoneSilver   TransactionKind = "MILESTONE_SILVER"
	TxMilestoneGold     TransactionKind = "MILESTONE_GOLD"
	TxMilestonePlatinum TransactionKind = "MILESTONE_PLATINUM"
	TxMilestoneDiamond  TransactionKind = "MILESTONE_DIAMOND"
	TxMilestoneLegend   TransactionKind = "MILESTONE_LEGEND"
	TxMilestoneMaster   TransactionKind = "MILESTONE_MASTER"

	TxPenaltySpam       TransactionKind = "PENALTY_SPAM"
	TxPenaltyDuplicate  TransactionKind = "PENALTY_DUPLICATE"
	TxPenaltyLowQuality TransactionKind = "PENALTY_LOW_QUALITY"

	TxAdminAdjustment   TransactionKind = "ADMIN_ADJUSTMENT"
	TxQualityMultiplier TransactionKind = "QUALITY_MULTIPLIER"
	TxAchievementBonus  TransactionKind = "ACHIEVEMENT_BONUS"
)

// KindGroup is the summary bucket a transaction kind rolls up into.
type KindGroup string

const (
	GroupContributions KindGroup = "contributions"
	GroupBonuses       KindGroup = "bonuses"
	GroupMilestones    KindGroup = "milestones"
	GroupPenalties     KindGroup = "penalties"
)

var kindGroups = map[TransactionKind]KindGroup{
	TxContributionText:      GroupContributions,
	TxContributionAudio:     GroupContributions,
	TxContributionImage:     GroupContributions,
	TxContributionSynthetic: GroupContributions,

	TxStreakDaily:     GroupBonuses,
	TxStreakWeekly:    GroupBonuses,
	TxStreakMonthly:   GroupBonuses,
	TxStreakQuarterly: GroupBonuses,
	TxStreakYearly:    GroupBonuses,

	TxMilestoneBronze:   GroupMilestones,
	TxMilestoneSilver:   GroupMilestones,
	TxMilestoneGold:     GroupMilestones,
	TxMilestonePlatinum: GroupMilestones,
	TxMilestoneDiamond:  GroupMilestones,
	TxMilestoneLegend:   GroupMilestones,
	TxMilestoneMaster:   GroupMilestones,

	TxPenaltySpam:       GroupPenalties,
	TxPenaltyDuplicate:  GroupPenalties,
	TxPenaltyLowQuality: GroupPenalties,

	TxAdminAdjustment:   GroupBonuses,
	TxQualityMultiplier: GroupBonuses,
	TxAchievementBonus:  GroupBonuses,
}

// Valid reports whether k is a known transaction kind.
func (k TransactionKind) Valid() bool {
	_, ok := kindGroups[k]
	return ok
}

// Group returns the summary bucket for k. Unknown kinds count as bonuses.
func (k TransactionKind) Group() KindGroup {
	if g, ok := kindGroups[k]; ok {
		return g
	}
	return GroupBonuses
}

// IsPenalty reports whether k is one of the penalty kinds.
func (k TransactionKind) IsPenalty() bool {
	return kindGroups[k] == GroupPenalties
}

// ContributionKind returns the ledger kind used for a contribution of type t.
func ContributionKind(t DataType) (TransactionKind, bool) {
	switch t {
	case DataTypeText:
		return TxContributionText, true
	case DataTypeAudio:
		return TxContributionAudio, true
	case DataTypeImage:
		return TxContributionImage, true
	case DataTypeSynthetic:
		return TxContributionSynthetic, true
	default:
		return "", false
	}
}
