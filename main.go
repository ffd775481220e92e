package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Kyerstorm/Lemegeton/handlers"
	"github.com/Kyerstorm/Lemegeton/middleware"
	"github.com/Kyerstorm/Lemegeton/models"
	"github.com/Kyerstorm/Lemegeton/services"
	"github.com/Kyerstorm/Lemegeton/utils"
	"github.com/Kyerstorm/Lemegeton/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: only bot-gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Discord-User-ID, X-Discord-Guild-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.UserStats{},
		&models.Guild{},
		&models.GuildMember{},
		&models.GuildRole{},
		&models.Challenge{},
		&models.GuildChallenge{},
		&models.ChallengeProgress{},
		&models.RoleGrantEvent{},
		&models.MediaRecommendation{},
		&models.RecommendationVote{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	var primaryGuildID int64
	if raw := os.Getenv("PRIMARY_GUILD_ID"); raw != "" {
		primaryGuildID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Fatal("invalid PRIMARY_GUILD_ID:", err)
		}
	}

	anilistClient := services.NewAniListClient()
	scopeService := services.NewScopeService(db, primaryGuildID)
	identityService := services.NewIdentityService(db, anilistClient)
	catalogService := services.NewCatalogService(db)
	ledgerService := services.NewLedgerService(db, catalogService)
	leaderboardService := services.NewLeaderboardService(db)
	roleService := services.NewRoleConfigService(db)
	recommendationService := services.NewRecommendationService(db)

	gatewayURL := os.Getenv("BOT_GATEWAY_URL")
	if gatewayURL == "" {
		log.Fatal("BOT_GATEWAY_URL environment variable not set")
	}
	granter := services.NewGatewayRoleGranter(gatewayURL, os.Getenv("BOT_SERVICE_TOKEN"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncInterval := 15 * time.Minute
	if raw := os.Getenv("ANILIST_SYNC_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			syncInterval = parsed
		} else {
			log.Printf("⚠️  Invalid ANILIST_SYNC_INTERVAL %q, keeping %s", raw, syncInterval)
		}
	}

	workers.NewAniListSyncWorker(identityService, ledgerService, anilistClient, syncInterval).Start(ctx)
	workers.NewRoleGrantWorker(db, roleService, granter).Start(ctx)
	workers.NewBackupWorker(db).Start(ctx)

	// ✅ Setup routes — gateway auth enforced globally
	handlers.SetupUserRoutes(app, identityService, scopeService, ledgerService)
	handlers.SetupGuildRoutes(app, scopeService, catalogService, ledgerService, roleService)
	handlers.SetupChallengeRoutes(app, catalogService)
	handlers.SetupLeaderboardRoutes(app, scopeService, catalogService, leaderboardService)
	handlers.SetupRecommendationRoutes(app, scopeService, recommendationService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ AniList sync running (every %s)", syncInterval)
	log.Println("✅ Role grant outbox draining (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from the bot gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
