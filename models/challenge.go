package models

import "time"

// Metric is the catalog statistic a challenge measures.
type Metric string

const (
	MetricMangaCompleted  Metric = "manga_completed"
	MetricAnimeCompleted  Metric = "anime_completed"
	MetricChaptersRead    Metric = "chapters_read"
	MetricEpisodesWatched Metric = "episodes_watched"
	MetricMeanScore       Metric = "mean_score" // stored as score × 10
)

// IsValid reports whether the metric is one of the supported kinds.
func (m Metric) IsValid() bool {
	switch m {
	case MetricMangaCompleted, MetricAnimeCompleted, MetricChaptersRead,
		MetricEpisodesWatched, MetricMeanScore:
		return true
	default:
		return false
	}
}

// Difficulty tiers, ordered easiest to hardest.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyMedium   Difficulty = "medium"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very_hard"
	DifficultyExtreme  Difficulty = "extreme"
)

// IsValid reports whether the difficulty is a known tier.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyVeryHard, DifficultyExtreme:
		return true
	default:
		return false
	}
}

// BasePoints returns the points a challenge of this difficulty is worth at
// full completion, before partial-progress scaling.
func (d Difficulty) BasePoints() int64 {
	switch d {
	case DifficultyEasy:
		return 20
	case DifficultyMedium:
		return 35
	case DifficultyHard:
		return 50
	case DifficultyVeryHard:
		return 75
	case DifficultyExtreme:
		return 100
	default:
		return 35
	}
}

// Challenge is a global, reusable challenge definition. Guilds never own
// definitions; they opt in through GuildChallenge rows. Immutable once
// created except for administrative correction.
type Challenge struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	Slug        string     `gorm:"uniqueIndex;not null;size:128" json:"slug"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Metric      Metric     `gorm:"not null;size:32" json:"metric"`
	MediaType   string     `gorm:"size:16;default:'manga'" json:"media_type"` // manga | anime
	Target      int64      `gorm:"not null" json:"target"`
	Difficulty  Difficulty `gorm:"not null;size:16;default:'medium'" json:"difficulty"`

	Timestamps
}

// GuildChallenge is one guild's opt-in instance of a global challenge,
// with local overrides. A definition can be selected at most once per guild.
type GuildChallenge struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	GuildID     string `gorm:"type:uuid;uniqueIndex:idx_guild_challenge;not null" json:"guild_id"`
	ChallengeID string `gorm:"type:uuid;uniqueIndex:idx_guild_challenge;not null" json:"challenge_id"`

	// Overrides; zero values fall back to the definition
	CustomTarget  *int64 `json:"custom_target,omitempty"`
	RewardTierKey string `gorm:"size:64" json:"reward_tier_key"`

	// Insertion order, stable for display
	Position int `gorm:"not null;default:0" json:"position"`

	Challenge *Challenge `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`

	// Hard-deleted on removal so a re-select never collides with a
	// soft-deleted row on the unique index
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// EffectiveTarget returns the guild's custom target when set, otherwise the
// definition's target.
func (gc *GuildChallenge) EffectiveTarget() int64 {
	if gc.CustomTarget != nil && *gc.CustomTarget > 0 {
		return *gc.CustomTarget
	}
	if gc.Challenge != nil {
		return gc.Challenge.Target
	}
	return 0
}
