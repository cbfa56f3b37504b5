// Package model defines the data models for the contribution reward engine.
package model

import "time"

// DataType is the kind of content a contribution carries.
type DataType string

const (
	DataTypeText      DataType = "TEXT"
	DataTypeAudio     DataType = "AUDIO"
	DataTypeImage     DataType = "IMAGE"
	DataTypeSynthetic DataType = "SYNTHETIC"
)

// DataTypes returns every known data type in display order.
func DataTypes() []DataType {
	return []DataType{DataTypeText, DataTypeAudio, DataTypeImage, DataTypeSynthetic}
}

// Valid reports whether t is a known data type.
func (t DataType) Valid() bool {
	for _, known := range DataTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Category is the subtype of a contribution that weights its base points.
type Category string

const (
	CategoryFolktale       Category = "FOLKTALE"
	CategoryProverb        Category = "PROVERB"
	CategoryHistory        Category = "HISTORY"
	CategoryDialect        Category = "DIALECT"
	CategoryFolkSong       Category = "FOLK_SONG"
	CategoryFestivalSound  Category = "FESTIVAL_SOUND"
	CategoryLandmark       Category = "LANDMARK"
	CategoryLandscape      Category = "LANDSCAPE"
	CategoryCulturalObject Category = "CULTURAL_OBJECT"
	CategoryFood           Category = "FOOD"
	CategoryOther          Category = "OTHER"
)

// Categories returns every known category in display order.
func Categories() []Category {
	return []Category{
		CategoryFolktale, CategoryProverb, CategoryHistory, CategoryDialect,
		CategoryFolkSong, CategoryFestivalSound, CategoryLandmark, CategoryLandscape,
		CategoryCulturalObject, CategoryFood, CategoryOther,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Status is the moderation lifecycle stage of a contribution.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusFeatured Status = "FEATURED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFeatured:
		return true
	}
	return false
}

// IsApprovedLike reports whether contributions in this status count as approved work.
func (s Status) IsApprovedLike() bool {
	return s == StatusApproved || s == StatusFeatured
}

// BadgeCategory groups achievements for display.
type BadgeCategory string

const (
	BadgeMilestone  BadgeCategory = "MILESTONE"
	BadgeStreak     BadgeCategory = "STREAK"
	BadgeGeographic BadgeCategory = "GEOGRAPHIC"
	BadgeQuality    BadgeCategory = "QUALITY"
	BadgeSpecial    BadgeCategory = "SPECIAL"
)

// StreakType classifies a streak by its length.
type StreakType string

const (
	StreakDaily   StreakType = "DAILY"
	StreakWeekly  StreakType = "WEEKLY"
	StreakMonthly StreakType = "MONTHLY"
	StreakYearly  StreakType = "YEARLY"
)

// User holds the reward state of a contributor.
// Points and Level are written only by the ledger; the streak fields and
// ApprovedContributions only by the streak tracker.
type User struct {
	ID                    string     `db:"id" json:"id"`
	Name                  string     `db:"name" json:"name"`
	Points                int64      `db:"points" json:"points"`
	Level                 string     `db:"level" json:"level"`
	Streak                int        `db:"streak" json:"streak"`
	StreakStartedAt       *time.Time `db:"streak_started_at" json:"streakStartedAt,omitempty"`
	LastContributionAt    *time.Time `db:"last_contribution_at" json:"lastContributionAt,omitempty"`
	ApprovedContributions int        `db:"approved_contributions" json:"approvedContributions"`
	ProvincesCovered      int        `db:"provinces_covered" json:"provincesCovered"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updatedAt"`
}

// Contribution is a submitted piece of content as seen by the reward engine.
type Contribution struct {
	ID               string     `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"userId"`
	Type             DataType   `db:"type" json:"type"`
	Category         Category   `db:"category" json:"category"`
	ProvinceID       string     `db:"province_id" json:"provinceId"`
	Status           Status     `db:"status" json:"status"`
	QualityRating    *int       `db:"quality_rating" json:"qualityRating,omitempty"`
	FirstInProvince  bool       `db:"first_in_province" json:"firstInProvince"`
	Underrepresented bool       `db:"underrepresented" json:"underrepresented"`
	PointsAwarded    int64      `db:"points_awarded" json:"pointsAwarded"`
	CalculatedAt     *time.Time `db:"calculated_at" json:"calculatedAt,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// PointTransaction is an immutable ledger entry. The sum of a user's
// transactions always equals User.Points.
type PointTransaction struct {
	ID             string          `db:"id" json:"id"`
	UserID         string          `db:"user_id" json:"userId"`
	Kind           TransactionKind `db:"kind" json:"kind"`
	Amount         int64           `db:"amount" json:"amount"`
	Reason         string          `db:"reason" json:"reason"`
	ContributionID *string         `db:"contribution_id" json:"contributionId,omitempty"`
	Metadata       map[string]any  `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

// Achievement is a badge earned once per (UserID, BadgeName).
type Achievement struct {
	ID            string        `db:"id" json:"id"`
	UserID        string        `db:"user_id" json:"userId"`
	BadgeName     string        `db:"badge_name" json:"badgeName"`
	Category      BadgeCategory `db:"category" json:"category"`
	Description   string        `db:"description" json:"description"`
	TransactionID *string       `db:"transaction_id" json:"transactionId,omitempty"`
	EarnedAt      time.Time     `db:"earned_at" json:"earnedAt"`
}

// StreakHistory records a streak crossing a milestone or ending.
type StreakHistory struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"userId"`
	Type         StreakType `db:"streak_type" json:"streakType"`
	StartDate    time.Time  `db:"start_date" json:"startDate"`
	EndDate      *time.Time `db:"end_date" json:"endDate,omitempty"`
	Length       int        `db:"length" json:"length"`
	BonusAwarded int64      `db:"bonus_awarded" json:"bonusAwarded"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// LeaderboardEntry is one ranked row of a leaderboard.
type LeaderboardEntry struct {
	Rank                  int    `json:"rank"`
	UserID                string `json:"userId"`
	Name                  string `json:"name"`
	Points                int64  `json:"points"`
	Level                 string `json:"level"`
	ApprovedContributions int    `json:"approvedContributions"`
	ProvincesCovered      int    `json:"provincesCovered"`
}

// LeaderboardCategory selects the ranking order of a leaderboard.
type LeaderboardCategory string

const (
	LeaderboardPoints        LeaderboardCategory = "points"
	LeaderboardContributions LeaderboardCategory = "contributions"
	LeaderboardProvinces     LeaderboardCategory = "provinces"
)

// Valid reports whether c is a known leaderboard category.
func (c LeaderboardCategory) Valid() bool {
	switch c {
	case LeaderboardPoints, LeaderboardContributions, LeaderboardProvinces:
		return true
	}
	return false
}
