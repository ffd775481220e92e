package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Kyerstorm/Lemegeton/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAniList answers the GraphQL queries for a fixed set of handles.
func fakeAniList(t *testing.T, handles map[string]int64) *AniListClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		name, _ := req.Variables["name"].(string)

		w.Header().Set("Content-Type", "application/json")
		id, ok := handles[name]
		if !ok {
			_, _ = w.Write([]byte(`{"data":{"User":null}}`))
			return
		}

		if strings.Contains(req.Query, "statistics") {
			_, _ = w.Write([]byte(`{"data":{"User":{"id":` + jsonInt(id) + `,"name":"` + name + `",
				"statistics":{
					"manga":{"count":42,"chaptersRead":1200,"meanScore":8.4},
					"anime":{"count":7,"episodesWatched":300,"meanScore":7.1}
				}}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"User":{"id":` + jsonInt(id) + `,"name":"` + name + `","avatar":{"large":"https://img.example/a.png"}}}}`))
	}))
	t.Cleanup(server.Close)

	return &AniListClient{BaseURL: server.URL, Client: server.Client()}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestRegisterIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first := f.mustUser(t, 100, "alice")
	renamed := f.mustUser(t, 100, "alice_v2")

	assert.Equal(t, first.ID, renamed.ID)
	assert.Equal(t, "alice_v2", renamed.Username)

	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLinkAniListVerifiesHandle(t *testing.T) {
	f := newFixture(t)
	f.identity.AniList = fakeAniList(t, map[string]int64{"kstorm": 7001})
	user := f.mustUser(t, 100, "alice")

	linked, err := f.identity.LinkAniList(context.Background(), user.ID, "kstorm")
	require.NoError(t, err)
	require.NotNil(t, linked.AniListUsername)
	assert.Equal(t, "kstorm", *linked.AniListUsername)
	require.NotNil(t, linked.AniListID)
	assert.Equal(t, int64(7001), *linked.AniListID)
	assert.NotNil(t, linked.LinkedAt)

	_, err = f.identity.LinkAniList(context.Background(), user.ID, "nobody")
	assert.ErrorIs(t, err, ErrHandleNotFound)
}

func TestLinkAniListRejectsClaimedHandle(t *testing.T) {
	f := newFixture(t)
	f.identity.AniList = fakeAniList(t, map[string]int64{"kstorm": 7001})
	alice := f.mustUser(t, 100, "alice")
	bob := f.mustUser(t, 101, "bob")

	_, err := f.identity.LinkAniList(context.Background(), alice.ID, "kstorm")
	require.NoError(t, err)

	_, err = f.identity.LinkAniList(context.Background(), bob.ID, "kstorm")
	assert.ErrorIs(t, err, ErrAlreadyLinked)

	// Re-linking the same handle to the same user stays allowed
	_, err = f.identity.LinkAniList(context.Background(), alice.ID, "kstorm")
	assert.NoError(t, err)
}

func TestUnlinkKeepsRecordedProgress(t *testing.T) {
	f := newFixture(t)
	f.identity.AniList = fakeAniList(t, map[string]int64{"kstorm": 7001})
	f.mustGuild(t, 555, "Readers Club")
	user := f.mustUser(t, 100, "alice")
	challenge := f.mustChallenge(t, "Read 50 Manga", models.MetricMangaCompleted, 50)

	admin := f.mustAdminScope(t, 100, 555)
	_, err := f.catalog.SelectChallenge(admin, challenge.ID, SelectionOverrides{})
	require.NoError(t, err)
	_, err = f.identity.LinkAniList(context.Background(), user.ID, "kstorm")
	require.NoError(t, err)
	_, err = f.ledger.RecordObservation(context.Background(), admin, challenge.ID, &CatalogSnapshot{MangaCompleted: 20})
	require.NoError(t, err)

	unlinked, err := f.identity.UnlinkAniList(user.ID)
	require.NoError(t, err)
	assert.Nil(t, unlinked.AniListUsername)
	assert.False(t, unlinked.IsLinked())

	_, err = f.identity.UnlinkAniList(user.ID)
	assert.ErrorIs(t, err, ErrNotLinked)

	record, err := f.ledger.Progress(admin, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), record.Value)
}

func TestProfileRequiresLink(t *testing.T) {
	f := newFixture(t)
	user := f.mustUser(t, 100, "alice")

	_, err := f.identity.Profile(user.ID)
	assert.ErrorIs(t, err, ErrNotLinked)
}

func TestLinkedUsers(t *testing.T) {
	f := newFixture(t)
	f.identity.AniList = fakeAniList(t, map[string]int64{"kstorm": 7001})
	alice := f.mustUser(t, 100, "alice")
	f.mustUser(t, 101, "bob")

	_, err := f.identity.LinkAniList(context.Background(), alice.ID, "kstorm")
	require.NoError(t, err)

	linked, err := f.identity.LinkedUsers()
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, alice.ID, linked[0].ID)
}

func TestFetchCatalogSnapshotMetrics(t *testing.T) {
	client := fakeAniList(t, map[string]int64{"kstorm": 7001})

	snapshot, err := client.FetchCatalogSnapshot(context.Background(), "kstorm")
	require.NoError(t, err)

	assert.Equal(t, int64(42), snapshot.MetricValue(models.MetricMangaCompleted, "manga"))
	assert.Equal(t, int64(7), snapshot.MetricValue(models.MetricAnimeCompleted, "anime"))
	assert.Equal(t, int64(1200), snapshot.MetricValue(models.MetricChaptersRead, "manga"))
	assert.Equal(t, int64(300), snapshot.MetricValue(models.MetricEpisodesWatched, "anime"))
	// Mean scores are carried as tenths
	assert.Equal(t, int64(84), snapshot.MetricValue(models.MetricMeanScore, "manga"))
	assert.Equal(t, int64(71), snapshot.MetricValue(models.MetricMeanScore, "anime"))
}

func TestUnregisterWipesUserOwnedRows(t *testing.T) {
	f := newFixture(t)
	f.mustGuild(t, 555, "Readers Club")
	f.mustUser(t, 100, "alice")
	challenge := f.mustChallenge(t, "Read 50 Manga", models.MetricMangaCompleted, 50)

	admin := f.mustAdminScope(t, 100, 555)
	_, err := f.catalog.SelectChallenge(admin, challenge.ID, SelectionOverrides{})
	require.NoError(t, err)
	// Completing the challenge leaves a pending grant in the outbox
	_, err = f.ledger.RecordObservation(context.Background(), admin, challenge.ID, &CatalogSnapshot{MangaCompleted: 55})
	require.NoError(t, err)

	var pending int64
	require.NoError(t, f.db.Model(&models.RoleGrantEvent{}).Count(&pending).Error)
	require.Equal(t, int64(1), pending)

	require.NoError(t, f.identity.Unregister(100))
	assert.ErrorIs(t, f.identity.Unregister(100), ErrUserNotFound)

	var progress, members, events int64
	require.NoError(t, f.db.Model(&models.ChallengeProgress{}).Count(&progress).Error)
	require.NoError(t, f.db.Model(&models.GuildMember{}).Count(&members).Error)
	require.NoError(t, f.db.Model(&models.RoleGrantEvent{}).Count(&events).Error)
	assert.Equal(t, int64(0), progress)
	assert.Equal(t, int64(0), members)
	assert.Equal(t, int64(0), events)

	// Guild config survives the user
	selections, err := f.catalog.ListSelections(admin.GuildID())
	require.NoError(t, err)
	assert.Len(t, selections, 1)

	// And the same Discord account can register again
	fresh := f.mustUser(t, 100, "alice_again")
	assert.Equal(t, "alice_again", fresh.Username)
}

func TestUpsertStats(t *testing.T) {
	f := newFixture(t)
	user := f.mustUser(t, 100, "alice")

	require.NoError(t, f.identity.UpsertStats(user.ID, &CatalogSnapshot{MangaCompleted: 10, ChaptersRead: 100}))
	require.NoError(t, f.identity.UpsertStats(user.ID, &CatalogSnapshot{MangaCompleted: 12, ChaptersRead: 140}))

	var stats models.UserStats
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&stats).Error)
	assert.Equal(t, int64(12), stats.TotalManga)
	assert.Equal(t, int64(140), stats.ChaptersRead)

	var count int64
	require.NoError(t, f.db.Model(&models.UserStats{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
