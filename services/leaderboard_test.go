package services

import (
	"testing"
	"time"

	"github.com/Kyerstorm/Lemegeton/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedProgress writes a ledger row directly; leaderboard tests only care
// about the stored shape, not how it got there.
func seedProgress(t *testing.T, f *fixture, userID, guildID, challengeID string, value, points int64, completedAt *time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.ChallengeProgress{
		ID:          uuid.NewString(),
		UserID:      userID,
		GuildID:     guildID,
		ChallengeID: challengeID,
		Value:       value,
		Points:      points,
		CompletedAt: completedAt,
	}).Error)
}

func TestRankChallengeDeterministicOrder(t *testing.T) {
	f := newFixture(t)
	guild := f.mustGuild(t, 555, "Readers Club")
	challenge := f.mustChallenge(t, "Read 50 Manga", models.MetricMangaCompleted, 50)

	alice := f.mustUser(t, 100, "alice")
	bob := f.mustUser(t, 101, "bob")
	carol := f.mustUser(t, 102, "carol")

	early := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	// bob and carol are tied on value; bob completed earlier and wins the tie
	seedProgress(t, f, alice.ID, guild.ID, challenge.ID, 30, 11, nil)
	seedProgress(t, f, bob.ID, guild.ID, challenge.ID, 50, 39, &early)
	seedProgress(t, f, carol.ID, guild.ID, challenge.ID, 50, 39, &late)

	entries, err := f.boards.RankChallenge(guild.ID, challenge.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "bob", entries[0].Username)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "carol", entries[1].Username)
	assert.Equal(t, "alice", entries[2].Username)
	assert.Equal(t, 3, entries[2].Rank)

	// The same query yields the same order on every run
	again, err := f.boards.RankChallenge(guild.ID, challenge.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, entries, again)
}

func TestRankChallengeEmptyLedger(t *testing.T) {
	f := newFixture(t)
	guild := f.mustGuild(t, 555, "Readers Club")
	challenge := f.mustChallenge(t, "Read 50 Manga", models.MetricMangaCompleted, 50)

	entries, err := f.boards.RankChallenge(guild.ID, challenge.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRankChallengeIsolatesGuilds(t *testing.T) {
	f := newFixture(t)
	guildA := f.mustGuild(t, 555, "Readers Club")
	guildB := f.mustGuild(t, 666, "Other Club")
	challenge := f.mustChallenge(t, "Read 50 Manga", models.MetricMangaCompleted, 50)

	alice := f.mustUser(t, 100, "alice")
	bob := f.mustUser(t, 101, "bob")

	seedProgress(t, f, alice.ID, guildA.ID, challenge.ID, 30, 11, nil)
	seedProgress(t, f, bob.ID, guildB.ID, challenge.ID, 45, 17, nil)

	entries, err := f.boards.RankChallenge(guildA.ID, challenge.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Username)
}

func TestRankPointsAggregatesSelections(t *testing.T) {
	f := newFixture(t)
	guild := f.mustGuild(t, 555, "Readers Club")
	manga := f.mustChallenge(t, "Read 50 Manga", models.MetricMangaCompleted, 50)
	anime := f.mustChallenge(t, "Watch 12 Anime", models.MetricAnimeCompleted, 12)

	alice := f.mustUser(t, 100, "alice")
	bob := f.mustUser(t, 101, "bob")

	seedProgress(t, f, alice.ID, guild.ID, manga.ID, 30, 11, nil)
	seedProgress(t, f, alice.ID, guild.ID, anime.ID, 12, 39, nil)
	seedProgress(t, f, bob.ID, guild.ID, manga.ID, 50, 39, nil)

	entries, err := f.boards.RankPoints(guild.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, int64(50), entries[0].Points)
	assert.Equal(t, "bob", entries[1].Username)
	assert.Equal(t, int64(39), entries[1].Points)
}

func TestCrossGuildRankingStaysInSharedGuilds(t *testing.T) {
	f := newFixture(t)
	f.mustGuild(t, 555, "Readers Club")
	f.mustGuild(t, 666, "Other Club")
	f.mustGuild(t, 777, "Hidden Club")
	challenge := f.mustChallenge(t, "Read 50 Manga", models.MetricMangaCompleted, 50)

	alice := f.mustUser(t, 100, "alice")
	bob := f.mustUser(t, 101, "bob")
	eve := f.mustUser(t, 102, "eve")

	// alice is in guilds A and B; bob shares B; eve only exists in C
	scopeA := f.mustScope(t, 100, 555)
	scopeB := f.mustScope(t, 100, 666)
	bobScope := f.mustScope(t, 101, 666)
	eveScope := f.mustScope(t, 102, 777)

	seedProgress(t, f, alice.ID, scopeA.GuildID(), challenge.ID, 20, 7, nil)
	seedProgress(t, f, alice.ID, scopeB.GuildID(), challenge.ID, 35, 12, nil)
	seedProgress(t, f, bob.ID, bobScope.GuildID(), challenge.ID, 40, 14, nil)
	seedProgress(t, f, eve.ID, eveScope.GuildID(), challenge.ID, 99, 99, nil)

	entries, err := f.boards.RankChallengeAcrossGuilds(alice.ID, challenge.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// eve's guild is not shared with alice and must stay invisible
	assert.Equal(t, "bob", entries[0].Username)
	assert.Equal(t, "alice", entries[1].Username)
	// alice contributes her best row across her guilds
	assert.Equal(t, int64(35), entries[1].Value)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 25, clampLimit(0))
	assert.Equal(t, 25, clampLimit(-3))
	assert.Equal(t, 25, clampLimit(500))
	assert.Equal(t, 10, clampLimit(10))
}
