package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Kyerstorm/Lemegeton/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

var (
	// ErrAlreadySelected means the guild already opted into this challenge.
	ErrAlreadySelected = errors.New("challenge already selected for this guild")
	// ErrSelectionNotFound means the guild never selected this challenge.
	ErrSelectionNotFound = errors.New("challenge selection not found")
	// ErrChallengeNotFound means no global definition with that id/slug exists.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeExists means a definition with the same slug already exists.
	ErrChallengeExists = errors.New("challenge with this slug already exists")
)

var titleCaser = cases.Title(language.English)

// CatalogService owns the global challenge definitions and each guild's
// selected subset. Definitions are shared templates; per-guild state lives
// only in GuildChallenge rows.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// NewChallengeParams are the fields of a global definition.
type NewChallengeParams struct {
	Title       string
	Description string
	Metric      models.Metric
	MediaType   string // manga | anime
	Target      int64
	Difficulty  models.Difficulty
}

// CreateChallenge adds a global definition. The slug is derived from the
// title and must be unique across all definitions.
func (s *CatalogService) CreateChallenge(params NewChallengeParams) (*models.Challenge, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, errors.New("challenge title is required")
	}
	if !params.Metric.IsValid() {
		return nil, fmt.Errorf("invalid metric %q", params.Metric)
	}
	if params.Target <= 0 {
		return nil, errors.New("challenge target must be positive")
	}
	difficulty := params.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	if !difficulty.IsValid() {
		return nil, fmt.Errorf("invalid difficulty %q", difficulty)
	}
	mediaType := strings.ToLower(strings.TrimSpace(params.MediaType))
	if mediaType == "" {
		mediaType = "manga"
	}
	if mediaType != "manga" && mediaType != "anime" {
		return nil, fmt.Errorf("invalid media type %q", mediaType)
	}

	challenge := models.Challenge{
		ID:          uuid.NewString(),
		Slug:        slug.Make(title),
		Title:       titleCaser.String(title),
		Description: strings.TrimSpace(params.Description),
		Metric:      params.Metric,
		MediaType:   mediaType,
		Target:      params.Target,
		Difficulty:  difficulty,
	}

	var count int64
	if err := s.DB.Model(&models.Challenge{}).Where("slug = ?", challenge.Slug).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrChallengeExists
	}

	if err := s.DB.Create(&challenge).Error; err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	log.Printf("[CATALOG] Created challenge %q (%s, target=%d)", challenge.Title, challenge.Slug, challenge.Target)
	return &challenge, nil
}

// Challenge resolves a definition by id or slug. The slug column is tried
// first; the uuid column is only queried for input that parses as a uuid,
// since Postgres rejects comparing a uuid column against arbitrary text.
func (s *CatalogService) Challenge(idOrSlug string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := s.DB.Where("slug = ?", idOrSlug).First(&challenge).Error
	if err == nil {
		return &challenge, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, parseErr := uuid.Parse(idOrSlug); parseErr != nil {
		return nil, ErrChallengeNotFound
	}
	if err := s.DB.Where("id = ?", idOrSlug).First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

// ListChallenges returns every global definition, stable by slug.
func (s *CatalogService) ListChallenges() ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := s.DB.Order("slug ASC").Find(&challenges).Error
	return challenges, err
}

// SelectionOverrides are a guild's local adjustments to a definition.
type SelectionOverrides struct {
	CustomTarget  *int64
	RewardTierKey string
}

// SelectChallenge opts the token's guild into a global definition. A
// definition can be selected at most once per guild; position follows
// insertion order so listings stay stable for display.
func (s *CatalogService) SelectChallenge(scope ScopeToken, challengeID string, overrides SelectionOverrides) (*models.GuildChallenge, error) {
	if !scope.IsAdmin() {
		return nil, ErrAdminRequired
	}

	challenge, err := s.Challenge(challengeID)
	if err != nil {
		return nil, err
	}

	var selection models.GuildChallenge
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.GuildChallenge{}).
			Where("guild_id = ? AND challenge_id = ?", scope.GuildID(), challenge.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadySelected
		}

		var position int64
		if err := tx.Model(&models.GuildChallenge{}).
			Where("guild_id = ?", scope.GuildID()).
			Count(&position).Error; err != nil {
			return err
		}

		selection = models.GuildChallenge{
			ID:            uuid.NewString(),
			GuildID:       scope.GuildID(),
			ChallengeID:   challenge.ID,
			CustomTarget:  overrides.CustomTarget,
			RewardTierKey: overrides.RewardTierKey,
			Position:      int(position) + 1,
		}
		return tx.Create(&selection).Error
	})
	if err != nil {
		return nil, err
	}

	selection.Challenge = challenge
	log.Printf("[CATALOG] Guild %s selected challenge %s (position %d)", scope.GuildID(), challenge.Slug, selection.Position)
	return &selection, nil
}

// ListSelections returns a guild's selections in insertion order.
func (s *CatalogService) ListSelections(guildID string) ([]models.GuildChallenge, error) {
	var selections []models.GuildChallenge
	err := s.DB.Where("guild_id = ?", guildID).
		Preload("Challenge").
		Order("position ASC").
		Find(&selections).Error
	return selections, err
}

// Selection returns one guild's selection of a challenge, or
// ErrSelectionNotFound. Accepts a definition id or slug, same as every
// other challenge-addressed operation.
func (s *CatalogService) Selection(guildID, idOrSlug string) (*models.GuildChallenge, error) {
	challenge, err := s.Challenge(idOrSlug)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return nil, ErrSelectionNotFound
		}
		return nil, err
	}

	var selection models.GuildChallenge
	err = s.DB.Where("guild_id = ? AND challenge_id = ?", guildID, challenge.ID).
		Preload("Challenge").
		First(&selection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSelectionNotFound
		}
		return nil, err
	}
	return &selection, nil
}

// RemoveSelection drops the guild's selection AND every progress row for
// that (guild, challenge) pair. Destructive and irreversible — distinct from
// a reset, which keeps the selection and zeroes values. Other guilds'
// selections of the same definition are untouched.
func (s *CatalogService) RemoveSelection(scope ScopeToken, idOrSlug string) error {
	if !scope.IsAdmin() {
		return ErrAdminRequired
	}

	challenge, err := s.Challenge(idOrSlug)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return ErrSelectionNotFound
		}
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("guild_id = ? AND challenge_id = ?", scope.GuildID(), challenge.ID).
			Delete(&models.GuildChallenge{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSelectionNotFound
		}

		if err := tx.Where("guild_id = ? AND challenge_id = ?", scope.GuildID(), challenge.ID).
			Delete(&models.ChallengeProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("guild_id = ? AND challenge_id = ?", scope.GuildID(), challenge.ID).
			Delete(&models.RoleGrantEvent{}).Error; err != nil {
			return err
		}

		log.Printf("[CATALOG] Guild %s removed challenge %s (progress cascaded)", scope.GuildID(), challenge.Slug)
		return nil
	})
}
