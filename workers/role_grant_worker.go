// workers/role_grant_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"github.com/Kyerstorm/Lemegeton/models"
	"github.com/Kyerstorm/Lemegeton/services"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

const (
	grantBatchSize   = 50
	grantMaxAttempts = 5
)

// RoleGrantWorker drains the role-grant outbox. Completions only write an
// event row; this worker resolves the guild's tier config at dispatch time
// and asks the bot gateway to assign the Discord role. Events that keep
// failing are parked after grantMaxAttempts so one broken guild cannot
// clog the queue.
type RoleGrantWorker struct {
	db      *gorm.DB
	roles   *services.RoleConfigService
	granter services.RoleGranter
}

func NewRoleGrantWorker(db *gorm.DB, roles *services.RoleConfigService, granter services.RoleGranter) *RoleGrantWorker {
	return &RoleGrantWorker{db: db, roles: roles, granter: granter}
}

func (w *RoleGrantWorker) Start(ctx context.Context) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() {
			w.drain(ctx)
		}),
	)

	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
		log.Println("⏹️ Role Grant Worker stopped")
	}()
	log.Println("🔁 Starting Role Grant Worker (outbox → bot gateway)…")
}

func (w *RoleGrantWorker) drain(ctx context.Context) {
	var events []models.RoleGrantEvent
	err := w.db.
		Where("dispatched_at IS NULL AND attempts < ?", grantMaxAttempts).
		Order("created_at ASC").
		Limit(grantBatchSize).
		Find(&events).Error
	if err != nil {
		log.Printf("[GRANT] ❌ Failed to load outbox: %v", err)
		return
	}

	for _, event := range events {
		if ctx.Err() != nil {
			return
		}
		w.dispatch(ctx, event)
	}
}

func (w *RoleGrantWorker) dispatch(ctx context.Context, event models.RoleGrantEvent) {
	now := time.Now()

	role, err := w.roles.Role(event.GuildID, event.TierKey)
	if err != nil {
		// No tier mapping configured for this guild. Nothing to grant, so
		// the event is closed rather than retried forever.
		w.db.Model(&models.RoleGrantEvent{}).Where("id = ?", event.ID).Updates(map[string]any{
			"dispatched_at": &now,
			"last_error":    "no role configured for tier " + event.TierKey,
		})
		return
	}

	var user models.User
	var guild models.Guild
	if err := w.db.First(&user, "id = ?", event.UserID).Error; err != nil {
		w.recordFailure(event, "user lookup: "+err.Error())
		return
	}
	if err := w.db.First(&guild, "id = ?", event.GuildID).Error; err != nil {
		w.recordFailure(event, "guild lookup: "+err.Error())
		return
	}

	if err := w.granter.GrantRole(ctx, user.DiscordID, guild.DiscordGuildID, role.DiscordRoleID); err != nil {
		w.recordFailure(event, err.Error())
		return
	}

	if err := w.db.Model(&models.RoleGrantEvent{}).Where("id = ?", event.ID).Updates(map[string]any{
		"dispatched_at": &now,
		"last_error":    "",
	}).Error; err != nil {
		log.Printf("[GRANT] ❌ Failed to mark event %s dispatched: %v", event.ID, err)
		return
	}
	log.Printf("[GRANT] ✅ Granted role %d to %s in guild %d (tier %s)", role.DiscordRoleID, user.Username, guild.DiscordGuildID, event.TierKey)
}

func (w *RoleGrantWorker) recordFailure(event models.RoleGrantEvent, cause string) {
	log.Printf("[GRANT] ⚠️ Dispatch failed for event %s (attempt %d): %s", event.ID, event.Attempts+1, cause)
	w.db.Model(&models.RoleGrantEvent{}).Where("id = ?", event.ID).Updates(map[string]any{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": cause,
	})
}
