package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRoleRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.mustGuild(t, 555, "Readers Club")
	f.mustUser(t, 100, "alice")

	member := f.mustScope(t, 100, 555)
	_, err := f.roles.SetRole(member, "gold", 9001)
	assert.ErrorIs(t, err, ErrAdminRequired)
}

func TestSetRoleNormalizesAndOverwrites(t *testing.T) {
	f := newFixture(t)
	f.mustGuild(t, 555, "Readers Club")
	f.mustUser(t, 100, "alice")

	admin := f.mustAdminScope(t, 100, 555)
	role, err := f.roles.SetRole(admin, "  GOLD ", 9001)
	require.NoError(t, err)
	assert.Equal(t, "gold", role.TierKey)
	assert.Equal(t, int64(9001), role.DiscordRoleID)

	// Re-binding the tier swaps the Discord role in place
	role, err = f.roles.SetRole(admin, "gold", 9002)
	require.NoError(t, err)
	assert.Equal(t, int64(9002), role.DiscordRoleID)

	mapping, err := f.roles.ListRoles(admin.GuildID())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"gold": 9002}, mapping)
}

func TestSetRoleValidation(t *testing.T) {
	f := newFixture(t)
	f.mustGuild(t, 555, "Readers Club")
	f.mustUser(t, 100, "alice")
	admin := f.mustAdminScope(t, 100, 555)

	_, err := f.roles.SetRole(admin, "  ", 9001)
	assert.Error(t, err)
	_, err = f.roles.SetRole(admin, "gold", 0)
	assert.Error(t, err)
}

func TestRolesAreGuildScoped(t *testing.T) {
	f := newFixture(t)
	f.mustGuild(t, 555, "Readers Club")
	f.mustGuild(t, 666, "Other Club")
	f.mustUser(t, 100, "alice")

	adminA := f.mustAdminScope(t, 100, 555)
	adminB := f.mustAdminScope(t, 100, 666)

	_, err := f.roles.SetRole(adminA, "gold", 9001)
	require.NoError(t, err)
	_, err = f.roles.SetRole(adminB, "gold", 4242)
	require.NoError(t, err)

	roleA, err := f.roles.Role(adminA.GuildID(), "gold")
	require.NoError(t, err)
	assert.Equal(t, int64(9001), roleA.DiscordRoleID)

	roleB, err := f.roles.Role(adminB.GuildID(), "GOLD")
	require.NoError(t, err)
	assert.Equal(t, int64(4242), roleB.DiscordRoleID)
}

func TestRemoveRole(t *testing.T) {
	f := newFixture(t)
	f.mustGuild(t, 555, "Readers Club")
	f.mustUser(t, 100, "alice")
	admin := f.mustAdminScope(t, 100, 555)

	_, err := f.roles.SetRole(admin, "gold", 9001)
	require.NoError(t, err)

	require.NoError(t, f.roles.RemoveRole(admin, "gold"))
	assert.ErrorIs(t, f.roles.RemoveRole(admin, "gold"), ErrRoleNotFound)

	_, err = f.roles.Role(admin.GuildID(), "gold")
	assert.ErrorIs(t, err, ErrRoleNotFound)

	// A removed tier can be configured again
	_, err = f.roles.SetRole(admin, "gold", 9003)
	require.NoError(t, err)
}
