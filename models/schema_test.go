package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// Postgres has no implicit uuid/text comparison, so every column that joins
// against a uuid primary key must itself be declared uuid or the leaderboard
// joins fail at runtime.
func TestReferenceColumnsAreUUIDTyped(t *testing.T) {
	cases := []struct {
		model  any
		fields []string
	}{
		{&User{}, []string{"ID"}},
		{&UserStats{}, []string{"ID", "UserID"}},
		{&Guild{}, []string{"ID"}},
		{&GuildMember{}, []string{"ID", "GuildID", "UserID"}},
		{&GuildRole{}, []string{"ID", "GuildID"}},
		{&Challenge{}, []string{"ID"}},
		{&GuildChallenge{}, []string{"ID", "GuildID", "ChallengeID"}},
		{&ChallengeProgress{}, []string{"ID", "UserID", "GuildID", "ChallengeID"}},
		{&RoleGrantEvent{}, []string{"ID", "UserID", "GuildID", "ChallengeID"}},
		{&MediaRecommendation{}, []string{"ID"}},
		{&RecommendationVote{}, []string{"ID", "VoterID"}},
	}

	for _, tc := range cases {
		parsed, err := schema.Parse(tc.model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)

		for _, name := range tc.fields {
			field, ok := parsed.FieldsByName[name]
			require.True(t, ok, "%s.%s missing", parsed.Name, name)
			assert.Equal(t, schema.DataType("uuid"), field.DataType,
				"%s.%s must migrate as uuid", parsed.Name, name)
		}
	}
}
