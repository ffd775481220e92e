package models

import "time"

// RoleGrantEvent is an outbox row emitted when a challenge completes.
// It is written in the same transaction as the completion timestamp and
// drained by the role-grant worker, which resolves the guild's tier-to-role
// config at dispatch time. The ledger itself never talks to Discord.
type RoleGrantEvent struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string `gorm:"type:uuid;index;not null" json:"user_id"`
	GuildID     string `gorm:"type:uuid;index;not null" json:"guild_id"`
	ChallengeID string `gorm:"type:uuid;not null" json:"challenge_id"`
	TierKey     string `gorm:"size:64" json:"tier_key"`

	DispatchedAt *time.Time `gorm:"index" json:"dispatched_at,omitempty"`
	Attempts     int        `gorm:"default:0" json:"attempts"`
	LastError    string     `gorm:"type:text" json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
