// handlers/leaderboard_routes.go
package handlers

import (
	"strconv"

	"github.com/Kyerstorm/Lemegeton/middleware"
	"github.com/Kyerstorm/Lemegeton/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(app *fiber.App, scopeService *services.ScopeService, catalogService *services.CatalogService, leaderboardService *services.LeaderboardService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	limitOf := func(c *fiber.Ctx) int {
		limit, _ := strconv.Atoi(c.Query("limit", "25"))
		return limit
	}

	// GET /leaderboard/challenges/:idOrSlug — ranking inside the caller's guild
	securedGroup.Get("/leaderboard/challenges/:idOrSlug", func(c *fiber.Ctx) error {
		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		challenge, err := catalogService.Challenge(c.Params("idOrSlug"))
		if err != nil {
			return fail(c, "challenge not found", err)
		}

		entries, err := leaderboardService.RankChallenge(scope.GuildID(), challenge.ID, limitOf(c))
		if err != nil {
			return fail(c, "failed to rank challenge", err)
		}
		return c.JSON(fiber.Map{"entries": entries})
	})

	// GET /leaderboard/points — total points across the guild's board
	securedGroup.Get("/leaderboard/points", func(c *fiber.Ctx) error {
		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		entries, err := leaderboardService.RankPoints(scope.GuildID(), limitOf(c))
		if err != nil {
			return fail(c, "failed to rank points", err)
		}
		return c.JSON(fiber.Map{"entries": entries})
	})

	// GET /leaderboard/global/:idOrSlug — best row per user across the
	// guilds the caller shares; other tenants stay invisible
	securedGroup.Get("/leaderboard/global/:idOrSlug", func(c *fiber.Ctx) error {
		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		challenge, err := catalogService.Challenge(c.Params("idOrSlug"))
		if err != nil {
			return fail(c, "challenge not found", err)
		}

		entries, err := leaderboardService.RankChallengeAcrossGuilds(scope.UserID(), challenge.ID, limitOf(c))
		if err != nil {
			return fail(c, "failed to rank across guilds", err)
		}
		return c.JSON(fiber.Map{"entries": entries})
	})
}
