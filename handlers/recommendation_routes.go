// handlers/recommendation_routes.go
package handlers

import (
	"strconv"

	"github.com/Kyerstorm/Lemegeton/middleware"
	"github.com/Kyerstorm/Lemegeton/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRecommendationRoutes(app *fiber.App, scopeService *services.ScopeService, recommendationService *services.RecommendationService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	// POST /recommendations — stash a media result so others can vote on it
	securedGroup.Post("/recommendations", func(c *fiber.Ctx) error {
		var body struct {
			MediaID   int64   `json:"media_id"`
			MediaType string  `json:"media_type"`
			Title     string  `json:"title"`
			Score     float64 `json:"score"`
		}
		if err := c.BodyParser(&body); err != nil || body.MediaID == 0 || body.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "media_id and title are required",
			})
		}

		reco, err := recommendationService.StoreResult(body.MediaID, body.MediaType, body.Title, body.Score)
		if err != nil {
			return fail(c, "failed to store recommendation", err)
		}
		return c.Status(fiber.StatusCreated).JSON(reco)
	})

	// POST /recommendations/:mediaID/vote — one vote per user, last one wins
	securedGroup.Post("/recommendations/:mediaID/vote", func(c *fiber.Ctx) error {
		mediaID, err := strconv.ParseInt(c.Params("mediaID"), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid media id",
			})
		}

		var body struct {
			Up bool `json:"up"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid vote payload",
				"cause": err.Error(),
			})
		}

		scope, err := mintScope(c, scopeService)
		if err != nil {
			return fail(c, "failed to resolve scope", err)
		}

		if err := recommendationService.Vote(scope.UserID(), mediaID, body.Up); err != nil {
			return fail(c, "failed to record vote", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// GET /recommendations — top voted, optionally filtered by media type
	securedGroup.Get("/recommendations", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		top, err := recommendationService.Top(c.Query("media_type"), limit)
		if err != nil {
			return fail(c, "failed to list recommendations", err)
		}
		return c.JSON(fiber.Map{"recommendations": top})
	})
}
