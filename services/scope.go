package services

import (
	"errors"
	"fmt"

	"github.com/Kyerstorm/Lemegeton/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUnknownGuild means the guild has never been registered with the bot.
	// Recoverable: callers register the guild and retry.
	ErrUnknownGuild = errors.New("guild is not registered")
	// ErrUserNotFound means the Discord user has never registered.
	ErrUserNotFound = errors.New("user is not registered")
	// ErrAdminRequired means the operation needs an admin-minted scope token.
	ErrAdminRequired = errors.New("admin scope required")
)

// ScopeToken is the capability every guild-scoped mutation must present.
// It pins an operation to one (user, guild) pair; query code takes tokens,
// never raw Discord ids, so forgetting a guild filter is a compile error
// rather than a data leak. Only ScopeService can mint tokens for callers
// outside this package.
type ScopeToken struct {
	userID  string
	guildID string
	admin   bool
}

// UserID returns the internal user id the token was minted for.
func (t ScopeToken) UserID() string { return t.userID }

// GuildID returns the internal guild id the token was minted for.
func (t ScopeToken) GuildID() string { return t.guildID }

// IsAdmin reports whether the token carries guild-admin capability.
func (t ScopeToken) IsAdmin() bool { return t.admin }

// ScopeService resolves (Discord user, Discord guild) pairs into ScopeTokens
// and owns guild registration. PrimaryGuildID is the legacy single-guild
// fallback used when a caller passes no guild at all.
type ScopeService struct {
	DB             *gorm.DB
	PrimaryGuildID int64
}

func NewScopeService(db *gorm.DB, primaryGuildID int64) *ScopeService {
	return &ScopeService{DB: db, PrimaryGuildID: primaryGuildID}
}

// Scope mints a member-level token for the pair. The guild must already be
// registered (ErrUnknownGuild otherwise) and the user must exist
// (ErrUserNotFound). Minting also records guild membership, which is what
// later gates cross-guild leaderboard visibility.
func (s *ScopeService) Scope(discordUserID, discordGuildID int64) (ScopeToken, error) {
	return s.mint(discordUserID, discordGuildID, false)
}

// AdminScope mints an admin token. The caller is responsible for having
// verified the Discord-side permission (Manage Roles) before asking for it.
func (s *ScopeService) AdminScope(discordUserID, discordGuildID int64) (ScopeToken, error) {
	return s.mint(discordUserID, discordGuildID, true)
}

func (s *ScopeService) mint(discordUserID, discordGuildID int64, admin bool) (ScopeToken, error) {
	// Legacy single-guild deployments never pass a guild id
	if discordGuildID == 0 {
		discordGuildID = s.PrimaryGuildID
	}
	if discordGuildID == 0 {
		return ScopeToken{}, ErrUnknownGuild
	}

	var guild models.Guild
	if err := s.DB.Where("discord_guild_id = ?", discordGuildID).First(&guild).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ScopeToken{}, ErrUnknownGuild
		}
		return ScopeToken{}, fmt.Errorf("failed to resolve guild %d: %w", discordGuildID, err)
	}

	var user models.User
	if err := s.DB.Where("discord_id = ?", discordUserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ScopeToken{}, ErrUserNotFound
		}
		return ScopeToken{}, fmt.Errorf("failed to resolve user %d: %w", discordUserID, err)
	}

	member := models.GuildMember{
		ID:      uuid.NewString(),
		GuildID: guild.ID,
		UserID:  user.ID,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&member).Error; err != nil {
		return ScopeToken{}, fmt.Errorf("failed to record membership: %w", err)
	}

	return ScopeToken{userID: user.ID, guildID: guild.ID, admin: admin}, nil
}

// RegisterGuild registers a guild on first contact (idempotent). The display
// name is refreshed on conflict so renames propagate.
func (s *ScopeService) RegisterGuild(discordGuildID int64, name string) (*models.Guild, error) {
	if discordGuildID == 0 {
		return nil, ErrUnknownGuild
	}
	guild := models.Guild{
		ID:             uuid.NewString(),
		DiscordGuildID: discordGuildID,
		Name:           name,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "discord_guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&guild).Error; err != nil {
		return nil, fmt.Errorf("failed to register guild %d: %w", discordGuildID, err)
	}

	// Reload so callers always get the canonical row, not the candidate
	var out models.Guild
	if err := s.DB.Where("discord_guild_id = ?", discordGuildID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// Guild resolves a Discord guild id to the stored guild.
func (s *ScopeService) Guild(discordGuildID int64) (*models.Guild, error) {
	if discordGuildID == 0 {
		discordGuildID = s.PrimaryGuildID
	}
	var guild models.Guild
	if err := s.DB.Where("discord_guild_id = ?", discordGuildID).First(&guild).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownGuild
		}
		return nil, err
	}
	return &guild, nil
}
