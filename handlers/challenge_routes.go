// handlers/challenge_routes.go
package handlers

import (
	"log"

	"github.com/Kyerstorm/Lemegeton/middleware"
	"github.com/Kyerstorm/Lemegeton/models"
	"github.com/Kyerstorm/Lemegeton/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, catalogService *services.CatalogService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	// GET /challenges — the global catalog, slug order
	securedGroup.Get("/challenges", func(c *fiber.Ctx) error {
		challenges, err := catalogService.ListChallenges()
		if err != nil {
			return fail(c, "failed to list challenges", err)
		}
		return c.JSON(fiber.Map{"challenges": challenges})
	})

	// GET /challenges/:idOrSlug — one global definition
	securedGroup.Get("/challenges/:idOrSlug", func(c *fiber.Ctx) error {
		challenge, err := catalogService.Challenge(c.Params("idOrSlug"))
		if err != nil {
			return fail(c, "challenge not found", err)
		}
		return c.JSON(challenge)
	})

	// POST /challenges — admin creates a global definition
	securedGroup.Post("/challenges", func(c *fiber.Ctx) error {
		if !middleware.IsGuildAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin role required",
			})
		}

		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Metric      string `json:"metric"`
			MediaType   string `json:"media_type"`
			Target      int64  `json:"target"`
			Difficulty  string `json:"difficulty"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid challenge payload",
				"cause": err.Error(),
			})
		}

		challenge, err := catalogService.CreateChallenge(services.NewChallengeParams{
			Title:       body.Title,
			Description: body.Description,
			Metric:      models.Metric(body.Metric),
			MediaType:   body.MediaType,
			Target:      body.Target,
			Difficulty:  models.Difficulty(body.Difficulty),
		})
		if err != nil {
			return fail(c, "failed to create challenge", err)
		}

		log.Printf("[CATALOG] ✅ Created challenge %s (%s)", challenge.Title, challenge.Slug)
		return c.Status(fiber.StatusCreated).JSON(challenge)
	})
}
