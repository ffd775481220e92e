package models

import "time"

// Guild is one Discord server the bot is configured in. Every guild is an
// isolation boundary: challenge selections, role config and progress rows
// belong to exactly one guild and are never visible from another.
// Guilds are auto-registered on first contact.
type Guild struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	DiscordGuildID int64  `gorm:"uniqueIndex;not null" json:"discord_guild_id"`
	Name           string `gorm:"not null" json:"name"`

	Timestamps
}

// GuildMember records that a user belongs to a guild. Membership gates
// cross-guild leaderboards: a viewer only ever sees rows from guilds they
// share with the ranked user.
type GuildMember struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	GuildID string `gorm:"type:uuid;uniqueIndex:idx_guild_member;not null" json:"guild_id"`
	UserID  string `gorm:"type:uuid;uniqueIndex:idx_guild_member;not null" json:"user_id"`

	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// GuildRole maps a challenge tier key to the Discord role granted when a
// user completes a challenge of that tier. Pure per-guild key-value config;
// the actual grant is performed by the role-grant worker via the gateway.
type GuildRole struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	GuildID       string `gorm:"type:uuid;uniqueIndex:idx_guild_role_tier;not null" json:"guild_id"`
	TierKey       string `gorm:"uniqueIndex:idx_guild_role_tier;not null;size:64" json:"tier_key"`
	DiscordRoleID int64  `gorm:"not null" json:"discord_role_id"`

	// Hard-deleted on removal; a removed tier must be reconfigurable
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
