// handlers/guild_routes.go
package handlers

import (
	"log"

	"github.com/Kyerstorm/Lemegeton/middleware"
	"github.com/Kyerstorm/Lemegeton/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGuildRoutes(app *fiber.App, scopeService *services.ScopeService, catalogService *services.CatalogService, ledgerService *services.LedgerService, roleService *services.RoleConfigService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	// POST /guild/register — onboard the guild so members can be scoped to it
	securedGroup.Post("/guild/register", func(c *fiber.Ctx) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&body); err != nil || body.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "name is required",
			})
		}
		if !middleware.IsGuildAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "guild admin role required",
			})
		}

		guild, err := scopeService.RegisterGuild(discordGuildID(c), body.Name)
		if err != nil {
			return fail(c, "failed to register guild", err)
		}

		log.Printf("[GUILD] ✅ Registered guild %s (discord %d)", guild.Name, guild.DiscordGuildID)
		return c.Status(fiber.StatusCreated).JSON(guild)
	})

	// GET /guild/challenges — the guild's active selections, board order
	securedGroup.Get("/guild/challenges", func(c *fiber.Ctx) error {
		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		selections, err := catalogService.ListSelections(scope.GuildID())
		if err != nil {
			return fail(c, "failed to list selections", err)
		}
		return c.JSON(fiber.Map{"challenges": selections})
	})

	// POST /guild/challenges/:challengeID — admin adds a challenge to the board
	securedGroup.Post("/guild/challenges/:challengeID", func(c *fiber.Ctx) error {
		var body struct {
			CustomTarget  *int64 `json:"custom_target"`
			RewardTierKey string `json:"reward_tier_key"`
		}
		if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid selection payload",
				"cause": err.Error(),
			})
		}

		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		selection, err := catalogService.SelectChallenge(scope, c.Params("challengeID"), services.SelectionOverrides{
			CustomTarget:  body.CustomTarget,
			RewardTierKey: body.RewardTierKey,
		})
		if err != nil {
			return fail(c, "failed to select challenge", err)
		}

		log.Printf("[GUILD] ✅ Guild %s selected challenge %s", scope.GuildID(), selection.ChallengeID)
		return c.Status(fiber.StatusCreated).JSON(selection)
	})

	// DELETE /guild/challenges/:challengeID — removes the selection and its
	// ledger rows for this guild only
	securedGroup.Delete("/guild/challenges/:challengeID", func(c *fiber.Ctx) error {
		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		if err := catalogService.RemoveSelection(scope, c.Params("challengeID")); err != nil {
			return fail(c, "failed to remove selection", err)
		}

		log.Printf("[GUILD] 🗑️ Guild %s removed challenge %s", scope.GuildID(), c.Params("challengeID"))
		return c.SendStatus(fiber.StatusNoContent)
	})

	// POST /guild/challenges/:challengeID/reset — zeroes every member's row
	securedGroup.Post("/guild/challenges/:challengeID/reset", func(c *fiber.Ctx) error {
		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		if err := ledgerService.ResetProgress(scope, c.Params("challengeID")); err != nil {
			return fail(c, "failed to reset progress", err)
		}

		log.Printf("[GUILD] ♻️ Guild %s reset challenge %s", scope.GuildID(), c.Params("challengeID"))
		return c.SendStatus(fiber.StatusNoContent)
	})

	// GET /guild/roles — tier key -> discord role id map
	securedGroup.Get("/guild/roles", func(c *fiber.Ctx) error {
		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		roles, err := roleService.ListRoles(scope.GuildID())
		if err != nil {
			return fail(c, "failed to list roles", err)
		}
		return c.JSON(fiber.Map{"roles": roles})
	})

	// PUT /guild/roles/:tierKey — admin binds a discord role to a tier
	securedGroup.Put("/guild/roles/:tierKey", func(c *fiber.Ctx) error {
		var body struct {
			DiscordRoleID int64 `json:"discord_role_id"`
		}
		if err := c.BodyParser(&body); err != nil || body.DiscordRoleID == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "discord_role_id is required",
			})
		}

		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		role, err := roleService.SetRole(scope, c.Params("tierKey"), body.DiscordRoleID)
		if err != nil {
			return fail(c, "failed to set role", err)
		}

		log.Printf("[GUILD] ✅ Guild %s mapped tier %s -> role %d", scope.GuildID(), role.TierKey, role.DiscordRoleID)
		return c.JSON(role)
	})

	// DELETE /guild/roles/:tierKey — admin unbinds a tier
	securedGroup.Delete("/guild/roles/:tierKey", func(c *fiber.Ctx) error {
		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		if err := roleService.RemoveRole(scope, c.Params("tierKey")); err != nil {
			return fail(c, "failed to remove role", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
