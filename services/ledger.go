package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/Kyerstorm/Lemegeton/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// completionBonusCap limits the flat bonus granted when a challenge is
// finished, matching the long-standing cap from the original points rules.
const completionBonusCap = 150

// calculatePoints converts raw progress into leaderboard points: the
// difficulty's base worth scaled by how far along the user is, plus a 10%
// completion bonus once the target is met.
func calculatePoints(value, target int64, difficulty models.Difficulty) int64 {
	if target <= 0 {
		return 0
	}
	ratio := float64(value) / float64(target)
	if ratio > 1 {
		ratio = 1
	}
	points := int64(math.Round(float64(difficulty.BasePoints()) * ratio))
	if value >= target {
		bonus := int64(math.Round(float64(points) * 0.1))
		if bonus > completionBonusCap {
			bonus = completionBonusCap
		}
		points += bonus
	}
	return points
}

// LedgerService records challenge progress. One row per
// (user, guild, challenge) triple; the value only ever moves up. The
// conditional UPDATE is the single place the monotonic invariant is
// enforced, so concurrent observations cannot race it backwards.
type LedgerService struct {
	DB      *gorm.DB
	Catalog *CatalogService
}

func NewLedgerService(db *gorm.DB, catalog *CatalogService) *LedgerService {
	return &LedgerService{DB: db, Catalog: catalog}
}

// RecordObservation evaluates a snapshot against the guild's selection of
// the challenge and persists the derived value if — and only if — it
// increased. A lower derived value is a benign stale write and leaves the
// row untouched. The completion timestamp is set exactly once, in the same
// transaction that emits the role-grant outbox event.
func (s *LedgerService) RecordObservation(ctx context.Context, scope ScopeToken, challengeID string, snapshot *CatalogSnapshot) (*models.ChallengeProgress, error) {
	selection, err := s.Catalog.Selection(scope.GuildID(), challengeID)
	if err != nil {
		return nil, err
	}
	if selection.Challenge == nil {
		return nil, ErrChallengeNotFound
	}

	value := snapshot.MetricValue(selection.Challenge.Metric, selection.Challenge.MediaType)
	target := selection.EffectiveTarget()
	points := calculatePoints(value, target, selection.Challenge.Difficulty)

	var record models.ChallengeProgress
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Ensure the row exists; DoNothing keeps a concurrent creator's row
		seed := models.ChallengeProgress{
			ID:          uuid.NewString(),
			UserID:      scope.UserID(),
			GuildID:     scope.GuildID(),
			ChallengeID: selection.ChallengeID,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "guild_id"}, {Name: "challenge_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		// Monotonic check-and-set: a single conditional UPDATE, never a
		// read-then-write. Zero rows affected means the observation was
		// stale and is dropped silently.
		if err := tx.Model(&models.ChallengeProgress{}).
			Where("user_id = ? AND guild_id = ? AND challenge_id = ? AND value < ?",
				scope.UserID(), scope.GuildID(), selection.ChallengeID, value).
			Updates(map[string]any{"value": value, "points": points}).Error; err != nil {
			return err
		}

		// Completion fires once per triple; later observations cannot
		// clear or duplicate the timestamp
		now := time.Now().UTC()
		completion := tx.Model(&models.ChallengeProgress{}).
			Where("user_id = ? AND guild_id = ? AND challenge_id = ? AND completed_at IS NULL AND value >= ?",
				scope.UserID(), scope.GuildID(), selection.ChallengeID, target).
			Update("completed_at", now)
		if completion.Error != nil {
			return completion.Error
		}

		if completion.RowsAffected > 0 {
			event := models.RoleGrantEvent{
				ID:          uuid.NewString(),
				UserID:      scope.UserID(),
				GuildID:     scope.GuildID(),
				ChallengeID: selection.ChallengeID,
				TierKey:     selection.RewardTierKey,
			}
			if err := tx.Create(&event).Error; err != nil {
				return err
			}
			log.Printf("[LEDGER] 🏆 User %s completed challenge %s in guild %s",
				scope.UserID(), selection.Challenge.Slug, scope.GuildID())
		}

		return tx.Where("user_id = ? AND guild_id = ? AND challenge_id = ?",
			scope.UserID(), scope.GuildID(), selection.ChallengeID).
			First(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record observation: %w", err)
	}
	return &record, nil
}

// RecordAllObservations applies one snapshot to every selection in every
// guild the user belongs to. Used by the sync worker; errors on individual
// selections are logged and skipped so one bad selection cannot stall the
// sweep.
func (s *LedgerService) RecordAllObservations(ctx context.Context, userID string, snapshot *CatalogSnapshot) error {
	var memberships []models.GuildMember
	if err := s.DB.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return err
	}

	for _, member := range memberships {
		selections, err := s.Catalog.ListSelections(member.GuildID)
		if err != nil {
			return err
		}
		scope := ScopeToken{userID: userID, guildID: member.GuildID}
		for _, selection := range selections {
			if _, err := s.RecordObservation(ctx, scope, selection.ChallengeID, snapshot); err != nil {
				log.Printf("[LEDGER] ⚠️ Observation failed for user=%s guild=%s challenge=%s: %v",
					userID, member.GuildID, selection.ChallengeID, err)
			}
		}
	}
	return nil
}

// ResetProgress zeroes values and clears completion for every user in the
// token's guild for one challenge. Selections stay in place — this is the
// season-restart path, not removal. Other guilds tracking the same global
// definition keep their progress.
func (s *LedgerService) ResetProgress(scope ScopeToken, challengeID string) error {
	if !scope.IsAdmin() {
		return ErrAdminRequired
	}
	selection, err := s.Catalog.Selection(scope.GuildID(), challengeID)
	if err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ChallengeProgress{}).
			Where("guild_id = ? AND challenge_id = ?", scope.GuildID(), selection.ChallengeID).
			Updates(map[string]any{"value": 0, "points": 0, "completed_at": nil}).Error; err != nil {
			return err
		}
		// Pending grants for the old season must not fire after the reset
		if err := tx.Where("guild_id = ? AND challenge_id = ? AND dispatched_at IS NULL",
			scope.GuildID(), selection.ChallengeID).
			Delete(&models.RoleGrantEvent{}).Error; err != nil {
			return err
		}
		log.Printf("[LEDGER] Reset progress for challenge %s in guild %s", selection.ChallengeID, scope.GuildID())
		return nil
	})
}

// Progress returns the token holder's row for one challenge; a missing row
// reads as zero progress rather than an error. Accepts a definition id or
// slug; an unknown definition also reads as zero.
func (s *LedgerService) Progress(scope ScopeToken, idOrSlug string) (*models.ChallengeProgress, error) {
	challenge, err := s.Catalog.Challenge(idOrSlug)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return &models.ChallengeProgress{
				UserID:      scope.UserID(),
				GuildID:     scope.GuildID(),
				ChallengeID: idOrSlug,
			}, nil
		}
		return nil, err
	}

	var record models.ChallengeProgress
	err = s.DB.Where("user_id = ? AND guild_id = ? AND challenge_id = ?",
		scope.UserID(), scope.GuildID(), challenge.ID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.ChallengeProgress{
				UserID:      scope.UserID(),
				GuildID:     scope.GuildID(),
				ChallengeID: challenge.ID,
			}, nil
		}
		return nil, err
	}
	return &record, nil
}

// AllProgress returns the token holder's rows for the token's guild only,
// ordered by the guild's display order.
func (s *LedgerService) AllProgress(scope ScopeToken) ([]models.ChallengeProgress, error) {
	var records []models.ChallengeProgress
	err := s.DB.
		Joins("JOIN guild_challenges ON guild_challenges.guild_id = challenge_progresses.guild_id AND guild_challenges.challenge_id = challenge_progresses.challenge_id").
		Where("challenge_progresses.user_id = ? AND challenge_progresses.guild_id = ?", scope.UserID(), scope.GuildID()).
		Order("guild_challenges.position ASC").
		Find(&records).Error
	return records, err
}
