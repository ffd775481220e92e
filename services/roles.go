package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/Kyerstorm/Lemegeton/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRoleNotFound means no role is configured for the tier key.
var ErrRoleNotFound = fmt.Errorf("role config not found")

// RoleConfigService is the per-guild tier → Discord role mapping. No
// business logic beyond tier uniqueness within a guild; the role-grant
// worker reads it when draining completion events.
type RoleConfigService struct {
	DB *gorm.DB
}

func NewRoleConfigService(db *gorm.DB) *RoleConfigService {
	return &RoleConfigService{DB: db}
}

// SetRole configures (or reconfigures) the role for a tier key.
func (s *RoleConfigService) SetRole(scope ScopeToken, tierKey string, discordRoleID int64) (*models.GuildRole, error) {
	if !scope.IsAdmin() {
		return nil, ErrAdminRequired
	}
	tierKey = strings.TrimSpace(strings.ToLower(tierKey))
	if tierKey == "" {
		return nil, fmt.Errorf("tier key is required")
	}
	if discordRoleID <= 0 {
		return nil, fmt.Errorf("discord role id must be positive")
	}

	role := models.GuildRole{
		ID:            uuid.NewString(),
		GuildID:       scope.GuildID(),
		TierKey:       tierKey,
		DiscordRoleID: discordRoleID,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}, {Name: "tier_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"discord_role_id", "updated_at"}),
	}).Create(&role).Error; err != nil {
		return nil, fmt.Errorf("failed to set role config: %w", err)
	}

	var out models.GuildRole
	if err := s.DB.Where("guild_id = ? AND tier_key = ?", scope.GuildID(), tierKey).First(&out).Error; err != nil {
		return nil, err
	}

	log.Printf("[ROLES] Guild %s mapped tier %q → role %d", scope.GuildID(), tierKey, discordRoleID)
	return &out, nil
}

// ListRoles returns the guild's full tier → role mapping.
func (s *RoleConfigService) ListRoles(guildID string) (map[string]int64, error) {
	var roles []models.GuildRole
	if err := s.DB.Where("guild_id = ?", guildID).Find(&roles).Error; err != nil {
		return nil, err
	}
	mapping := make(map[string]int64, len(roles))
	for _, r := range roles {
		mapping[r.TierKey] = r.DiscordRoleID
	}
	return mapping, nil
}

// Role resolves one tier key for a guild.
func (s *RoleConfigService) Role(guildID, tierKey string) (*models.GuildRole, error) {
	var role models.GuildRole
	err := s.DB.Where("guild_id = ? AND tier_key = ?", guildID, strings.ToLower(tierKey)).First(&role).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

// RemoveRole drops the mapping for a tier key.
func (s *RoleConfigService) RemoveRole(scope ScopeToken, tierKey string) error {
	if !scope.IsAdmin() {
		return ErrAdminRequired
	}
	result := s.DB.Where("guild_id = ? AND tier_key = ?", scope.GuildID(), strings.ToLower(tierKey)).
		Delete(&models.GuildRole{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRoleNotFound
	}
	return nil
}
