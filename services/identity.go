package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Kyerstorm/Lemegeton/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotLinked means the user has no AniList profile attached yet.
	ErrNotLinked = errors.New("no anilist profile linked")
	// ErrAlreadyLinked means the handle is already claimed by another user.
	ErrAlreadyLinked = errors.New("anilist handle already linked to another user")
)

// IdentityService owns the global user table and the AniList link.
// Users are global: one row per person regardless of guild count.
type IdentityService struct {
	DB      *gorm.DB
	AniList *AniListClient
}

func NewIdentityService(db *gorm.DB, anilist *AniListClient) *IdentityService {
	return &IdentityService{DB: db, AniList: anilist}
}

// Register creates the user on first contact, or refreshes the Discord
// username on conflict (idempotent).
func (s *IdentityService) Register(discordID int64, username string) (*models.User, error) {
	user := models.User{
		ID:        uuid.NewString(),
		DiscordID: discordID,
		Username:  username,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "discord_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
	}).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to register user %d: %w", discordID, err)
	}

	var out models.User
	if err := s.DB.Where("discord_id = ?", discordID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ByDiscordID looks a user up by their Discord id.
func (s *IdentityService) ByDiscordID(discordID int64) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("discord_id = ?", discordID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// LinkAniList verifies the handle against AniList (one outbound lookup) and
// attaches it to the user. Re-linking overwrites the previous handle; it
// never rewrites progress already recorded, which stays historical fact.
// A handle claimed by a different user is rejected with ErrAlreadyLinked.
func (s *IdentityService) LinkAniList(ctx context.Context, userID, handle string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	profile, err := s.AniList.FetchProfile(ctx, handle)
	if err != nil {
		return nil, err
	}

	var claimed int64
	if err := s.DB.Model(&models.User{}).
		Where("anilist_id = ? AND id <> ?", profile.ID, userID).
		Count(&claimed).Error; err != nil {
		return nil, err
	}
	if claimed > 0 {
		return nil, ErrAlreadyLinked
	}

	now := time.Now().UTC()
	user.AniListID = &profile.ID
	user.AniListUsername = &profile.Name
	user.LinkedAt = &now
	if err := s.DB.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to link anilist profile: %w", err)
	}

	log.Printf("[IDENTITY] Linked AniList %q (id=%d) to user %s", profile.Name, profile.ID, user.ID)
	return &user, nil
}

// UnlinkAniList detaches the handle. Progress already recorded stays; the
// sync worker simply stops refreshing this user.
func (s *IdentityService) UnlinkAniList(userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsLinked() {
		return nil, ErrNotLinked
	}

	user.AniListID = nil
	user.AniListUsername = nil
	user.LinkedAt = nil
	if err := s.DB.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to unlink anilist profile: %w", err)
	}

	log.Printf("[IDENTITY] Unlinked AniList from user %s", user.ID)
	return &user, nil
}

// Profile returns the linked AniList handle, or ErrNotLinked.
func (s *IdentityService) Profile(userID string) (*AniListProfile, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsLinked() {
		return nil, ErrNotLinked
	}
	profile := &AniListProfile{Name: *user.AniListUsername}
	if user.AniListID != nil {
		profile.ID = *user.AniListID
	}
	return profile, nil
}

// LinkedUsers returns every user with an AniList handle; the sync worker
// iterates this set.
func (s *IdentityService) LinkedUsers() ([]models.User, error) {
	var users []models.User
	err := s.DB.Where("anilist_username IS NOT NULL AND anilist_username <> ''").
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

// Unregister removes the user and everything keyed by them: memberships,
// progress rows and cached stats. Guild config is untouched.
func (s *IdentityService) Unregister(discordID int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("discord_id = ?", discordID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.ChallengeProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.GuildMember{}).Error; err != nil {
			return err
		}
		// Outbox rows included, or the grant worker chases a user that no
		// longer resolves
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RoleGrantEvent{}).Error; err != nil {
			return err
		}
		// Unscoped: a later re-register must not collide with soft-deleted
		// rows on the unique indexes
		if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&models.UserStats{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&user).Error; err != nil {
			return err
		}

		log.Printf("[IDENTITY] Unregistered user %d", discordID)
		return nil
	})
}

// UpsertStats refreshes the cached global statistics from a snapshot.
func (s *IdentityService) UpsertStats(userID string, snapshot *CatalogSnapshot) error {
	stats := models.UserStats{
		ID:              uuid.NewString(),
		UserID:          userID,
		TotalManga:      snapshot.MangaCompleted,
		TotalAnime:      snapshot.AnimeCompleted,
		ChaptersRead:    snapshot.ChaptersRead,
		EpisodesWatched: snapshot.EpisodesWatched,
		AvgMangaScore:   snapshot.MeanMangaScore,
		AvgAnimeScore:   snapshot.MeanAnimeScore,
		LastSyncedAt:    snapshot.FetchedAt,
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_manga", "total_anime", "chapters_read", "episodes_watched",
			"avg_manga_score", "avg_anime_score", "last_synced_at", "updated_at",
		}),
	}).Create(&stats).Error
}
