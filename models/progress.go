package models

import "time"

// ChallengeProgress is the per-user-per-guild-per-challenge ledger row.
// Exactly one row exists per triple and never without a matching
// GuildChallenge selection. Value is monotonic non-decreasing: a stale or
// partial snapshot can never lower it. CompletedAt is set exactly once when
// the effective target is first met.
type ChallengeProgress struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string `gorm:"type:uuid;uniqueIndex:idx_progress_triple;not null" json:"user_id"`
	GuildID     string `gorm:"type:uuid;uniqueIndex:idx_progress_triple;not null" json:"guild_id"`
	ChallengeID string `gorm:"type:uuid;uniqueIndex:idx_progress_triple;not null" json:"challenge_id"`

	Value       int64      `gorm:"not null;default:0" json:"value"`
	Points      int64      `gorm:"not null;default:0" json:"points"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsCompleted reports whether the target has been met for this guild.
func (p *ChallengeProgress) IsCompleted() bool {
	return p.CompletedAt != nil
}
