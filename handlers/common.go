package handlers

import (
	"errors"

	"github.com/Kyerstorm/Lemegeton/middleware"
	"github.com/Kyerstorm/Lemegeton/services"

	"github.com/gofiber/fiber/v2"
)

// locals set by middleware.UserContextMiddleware
func discordUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals("discord_user_id").(int64)
	return id
}

func discordGuildID(c *fiber.Ctx) int64 {
	id, _ := c.Locals("discord_guild_id").(int64)
	return id
}

// mintScope resolves the caller into a scope token. Gateway-asserted guild
// admins get an admin token; everyone else gets a plain member token and the
// services reject privileged calls.
func mintScope(c *fiber.Ctx, scopes *services.ScopeService) (services.ScopeToken, error) {
	if middleware.IsGuildAdmin(c) {
		return scopes.AdminScope(discordUserID(c), discordGuildID(c))
	}
	return scopes.Scope(discordUserID(c), discordGuildID(c))
}

// statusFor maps service errors onto HTTP statuses so every route answers
// consistently. Unknown errors stay 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnknownGuild):
		return fiber.StatusPreconditionFailed // "not configured" — register the guild first
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrChallengeNotFound),
		errors.Is(err, services.ErrSelectionNotFound),
		errors.Is(err, services.ErrRoleNotFound),
		errors.Is(err, services.ErrHandleNotFound),
		errors.Is(err, services.ErrNotLinked):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadySelected),
		errors.Is(err, services.ErrAlreadyLinked),
		errors.Is(err, services.ErrChallengeExists):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrAdminRequired):
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, msg string, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}
