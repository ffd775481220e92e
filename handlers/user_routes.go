// handlers/user_routes.go
package handlers

import (
	"log"

	"github.com/Kyerstorm/Lemegeton/middleware"
	"github.com/Kyerstorm/Lemegeton/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, identityService *services.IdentityService, scopeService *services.ScopeService, ledgerService *services.LedgerService) {
	// 🔐 Secured routes — require user context forwarded by the gateway
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	// POST /user/register — creates (or refreshes) the account for the caller
	securedGroup.Post("/user/register", func(c *fiber.Ctx) error {
		var body struct {
			Username string `json:"username"`
		}
		if err := c.BodyParser(&body); err != nil || body.Username == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "username is required",
			})
		}

		user, err := identityService.Register(discordUserID(c), body.Username)
		if err != nil {
			return fail(c, "failed to register user", err)
		}

		log.Printf("[USER] ✅ Registered %s (discord %d)", user.Username, user.DiscordID)
		return c.Status(fiber.StatusCreated).JSON(user)
	})

	// POST /user/link — verifies an AniList handle and attaches it
	securedGroup.Post("/user/link", func(c *fiber.Ctx) error {
		var body struct {
			Handle string `json:"handle"`
		}
		if err := c.BodyParser(&body); err != nil || body.Handle == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "handle is required",
			})
		}

		user, err := identityService.ByDiscordID(discordUserID(c))
		if err != nil {
			return fail(c, "user is not registered", err)
		}

		linked, err := identityService.LinkAniList(c.Context(), user.ID, body.Handle)
		if err != nil {
			return fail(c, "failed to link AniList handle", err)
		}

		log.Printf("[USER] 🔗 Linked %s -> AniList %s", linked.Username, body.Handle)
		return c.JSON(linked)
	})

	// DELETE /user/link — detaches the AniList handle, keeps recorded progress
	securedGroup.Delete("/user/link", func(c *fiber.Ctx) error {
		user, err := identityService.ByDiscordID(discordUserID(c))
		if err != nil {
			return fail(c, "user is not registered", err)
		}

		unlinked, err := identityService.UnlinkAniList(user.ID)
		if err != nil {
			return fail(c, "failed to unlink AniList handle", err)
		}
		return c.JSON(unlinked)
	})

	// GET /user/profile — live AniList profile for the linked handle
	securedGroup.Get("/user/profile", func(c *fiber.Ctx) error {
		user, err := identityService.ByDiscordID(discordUserID(c))
		if err != nil {
			return fail(c, "user is not registered", err)
		}

		profile, err := identityService.Profile(user.ID)
		if err != nil {
			return fail(c, "failed to fetch profile", err)
		}
		return c.JSON(profile)
	})

	// GET /user/progress — the caller's ledger rows for the current guild
	securedGroup.Get("/user/progress", func(c *fiber.Ctx) error {
		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		progress, err := ledgerService.AllProgress(scope)
		if err != nil {
			return fail(c, "failed to load progress", err)
		}
		return c.JSON(fiber.Map{"progress": progress})
	})

	// GET /user/progress/:challengeID — one ledger row (zero row if untouched)
	securedGroup.Get("/user/progress/:challengeID", func(c *fiber.Ctx) error {
		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		record, err := ledgerService.Progress(scope, c.Params("challengeID"))
		if err != nil {
			return fail(c, "failed to load progress", err)
		}
		return c.JSON(record)
	})

	// DELETE /user — full unregister, wipes ledger rows and memberships
	securedGroup.Delete("/user", func(c *fiber.Ctx) error {
		if err := identityService.Unregister(discordUserID(c)); err != nil {
			return fail(c, "failed to unregister user", err)
		}
		log.Printf("[USER] 🗑️ Unregistered discord %d", discordUserID(c))
		return c.SendStatus(fiber.StatusNoContent)
	})
}
