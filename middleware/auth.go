// middleware/auth.go
package middleware

import (
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the Discord identity the gateway resolved:
// X-Discord-User-ID, X-Discord-Guild-ID (0 outside a guild) and
// X-User-Roles. Secured routes reject requests without a user id.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userIDStr := c.Get("X-Discord-User-ID")
		guildIDStr := c.Get("X-Discord-Guild-ID")
		rolesStr := c.Get("X-User-Roles")

		if userIDStr == "" {
			log.Printf("❌ [USER_CTX] X-Discord-User-ID required but missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Discord-User-ID — request must come through the gateway with auth context",
			})
		}

		userID, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil || userID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid X-Discord-User-ID",
			})
		}

		var guildID int64
		if guildIDStr != "" {
			guildID, err = strconv.ParseInt(guildIDStr, 10, 64)
			if err != nil || guildID < 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid X-Discord-Guild-ID",
				})
			}
		}

		var roles []string
		for _, r := range strings.Split(rolesStr, ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals("discord_user_id", userID)
		c.Locals("discord_guild_id", guildID)
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// IsGuildAdmin reports whether the gateway flagged the caller as carrying
// Manage Roles (or higher) in the current guild.
func IsGuildAdmin(c *fiber.Ctx) bool {
	roles, _ := c.Locals("user_roles").([]string)
	for _, r := range roles {
		if r == "admin" || r == "manage_roles" {
			return true
		}
	}
	return false
}
