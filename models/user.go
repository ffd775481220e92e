package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the system-wide identity for one real person. A user exists once
// no matter how many guilds they are tracked in; the internal ID never
// changes after registration. The AniList link is optional and may be
// overwritten on re-link without touching historical progress rows.
type User struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	DiscordID int64  `gorm:"uniqueIndex;not null" json:"discord_id"`
	Username  string `gorm:"index;not null" json:"username"`

	// Linked AniList profile (nullable until /link is used)
	AniListID       *int64     `gorm:"column:anilist_id;index" json:"anilist_id,omitempty"`
	AniListUsername *string    `gorm:"column:anilist_username" json:"anilist_username,omitempty"`
	LinkedAt        *time.Time `json:"linked_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// IsLinked reports whether the user has an AniList profile attached.
func (u *User) IsLinked() bool {
	return u.AniListUsername != nil && *u.AniListUsername != ""
}

// UserStats is the per-user cache of global AniList statistics, refreshed by
// the sync worker. The same row feeds progress evaluation in every guild the
// user belongs to; only the derived completion state is guild-scoped.
type UserStats struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	TotalManga      int64   `json:"total_manga" gorm:"default:0"`
	TotalAnime      int64   `json:"total_anime" gorm:"default:0"`
	ChaptersRead    int64   `json:"chapters_read" gorm:"default:0"`
	EpisodesWatched int64   `json:"episodes_watched" gorm:"default:0"`
	AvgMangaScore   float64 `json:"avg_manga_score" gorm:"default:0"`
	AvgAnimeScore   float64 `json:"avg_anime_score" gorm:"default:0"`

	LastSyncedAt time.Time `json:"last_synced_at"`

	Timestamps
}
