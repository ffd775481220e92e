// workers/backup_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Kyerstorm/Lemegeton/models"
	"github.com/Kyerstorm/Lemegeton/utils"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// BackupWorker snapshots the core tables to R2 as JSON once a day. It stays
// dormant when no bucket is configured, so local development needs no
// Cloudflare credentials.
type BackupWorker struct {
	db *gorm.DB
}

func NewBackupWorker(db *gorm.DB) *BackupWorker {
	return &BackupWorker{db: db}
}

func (w *BackupWorker) Start(ctx context.Context) {
	if !utils.R2Enabled() {
		log.Println("ℹ️ Backup Worker disabled (R2_BUCKET_NAME not set)")
		return
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			if err := w.backup(); err != nil {
				log.Printf("[BACKUP] ❌ Backup failed: %v", err)
			}
		}),
	)

	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
		log.Println("⏹️ Backup Worker stopped")
	}()
	log.Println("🔁 Starting Backup Worker (daily JSON snapshots → R2)…")
}

func (w *BackupWorker) backup() error {
	snapshot := map[string]any{}

	var users []models.User
	if err := w.db.Find(&users).Error; err != nil {
		return fmt.Errorf("dump users: %w", err)
	}
	snapshot["users"] = users

	var guilds []models.Guild
	if err := w.db.Find(&guilds).Error; err != nil {
		return fmt.Errorf("dump guilds: %w", err)
	}
	snapshot["guilds"] = guilds

	var challenges []models.Challenge
	if err := w.db.Find(&challenges).Error; err != nil {
		return fmt.Errorf("dump challenges: %w", err)
	}
	snapshot["challenges"] = challenges

	var selections []models.GuildChallenge
	if err := w.db.Find(&selections).Error; err != nil {
		return fmt.Errorf("dump guild challenges: %w", err)
	}
	snapshot["guild_challenges"] = selections

	var progress []models.ChallengeProgress
	if err := w.db.Find(&progress).Error; err != nil {
		return fmt.Errorf("dump progress: %w", err)
	}
	snapshot["challenge_progress"] = progress

	var roles []models.GuildRole
	if err := w.db.Find(&roles).Error; err != nil {
		return fmt.Errorf("dump guild roles: %w", err)
	}
	snapshot["guild_roles"] = roles

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("backups/lemegeton-%s.json", time.Now().UTC().Format("2006-01-02"))
	if err := utils.UploadBackup(key, payload, "application/json"); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	log.Printf("[BACKUP] ✅ Uploaded %s (%d users, %d progress rows)", key, len(users), len(progress))
	return nil
}
