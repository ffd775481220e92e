package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Kyerstorm/Lemegeton/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory database named after the test so parallel
// tests never share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.UserStats{},
		&models.Guild{},
		&models.GuildMember{},
		&models.GuildRole{},
		&models.Challenge{},
		&models.GuildChallenge{},
		&models.ChallengeProgress{},
		&models.RoleGrantEvent{},
		&models.MediaRecommendation{},
		&models.RecommendationVote{},
	))
	return db
}

// fixture bundles the services most tests need plus a registered guild and
// user ready to be scoped.
type fixture struct {
	db       *gorm.DB
	scopes   *ScopeService
	identity *IdentityService
	catalog  *CatalogService
	ledger   *LedgerService
	boards   *LeaderboardService
	roles    *RoleConfigService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	catalog := NewCatalogService(db)
	return &fixture{
		db:       db,
		scopes:   NewScopeService(db, 0),
		identity: NewIdentityService(db, nil),
		catalog:  catalog,
		ledger:   NewLedgerService(db, catalog),
		boards:   NewLeaderboardService(db),
		roles:    NewRoleConfigService(db),
	}
}

func (f *fixture) mustGuild(t *testing.T, discordGuildID int64, name string) *models.Guild {
	t.Helper()
	guild, err := f.scopes.RegisterGuild(discordGuildID, name)
	require.NoError(t, err)
	return guild
}

func (f *fixture) mustUser(t *testing.T, discordID int64, username string) *models.User {
	t.Helper()
	user, err := f.identity.Register(discordID, username)
	require.NoError(t, err)
	return user
}

func (f *fixture) mustScope(t *testing.T, discordUserID, discordGuildID int64) ScopeToken {
	t.Helper()
	scope, err := f.scopes.Scope(discordUserID, discordGuildID)
	require.NoError(t, err)
	return scope
}

func (f *fixture) mustAdminScope(t *testing.T, discordUserID, discordGuildID int64) ScopeToken {
	t.Helper()
	scope, err := f.scopes.AdminScope(discordUserID, discordGuildID)
	require.NoError(t, err)
	return scope
}

func (f *fixture) mustChallenge(t *testing.T, title string, metric models.Metric, target int64) *models.Challenge {
	t.Helper()
	challenge, err := f.catalog.CreateChallenge(NewChallengeParams{
		Title:  title,
		Metric: metric,
		Target: target,
	})
	require.NoError(t, err)
	return challenge
}
