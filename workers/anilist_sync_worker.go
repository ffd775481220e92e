// workers/anilist_sync_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"github.com/Kyerstorm/Lemegeton/services"
)

// AniListSyncWorker periodically pulls fresh AniList statistics for every
// linked user and feeds them through the ledger. The ledger's monotonic
// rules make the whole pass idempotent, so overlapping or repeated runs
// are harmless.
type AniListSyncWorker struct {
	identity *services.IdentityService
	ledger   *services.LedgerService
	anilist  *services.AniListClient
	interval time.Duration
}

func NewAniListSyncWorker(identity *services.IdentityService, ledger *services.LedgerService, anilist *services.AniListClient, interval time.Duration) *AniListSyncWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &AniListSyncWorker{
		identity: identity,
		ledger:   ledger,
		anilist:  anilist,
		interval: interval,
	}
}

func (w *AniListSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting AniList Sync Worker (graphql.anilist.co → challenge ledger)…")
	go w.run(ctx)
}

func (w *AniListSyncWorker) run(ctx context.Context) {
	// Initial pass so a fresh deployment catches up immediately
	w.syncAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.syncAll(ctx)
		case <-ctx.Done():
			log.Println("⏹️ AniList Sync Worker stopped")
			return
		}
	}
}

// syncAll runs one full pass over the linked users. A failure for one user
// never blocks the rest.
func (w *AniListSyncWorker) syncAll(ctx context.Context) {
	users, err := w.identity.LinkedUsers()
	if err != nil {
		log.Printf("[SYNC] ❌ Failed to list linked users: %v", err)
		return
	}
	if len(users) == 0 {
		return
	}

	log.Printf("[SYNC] 📡 Refreshing AniList stats for %d linked users", len(users))
	synced := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		if user.AniListUsername == nil {
			continue
		}

		snapshot, err := w.anilist.FetchCatalogSnapshot(ctx, *user.AniListUsername)
		if err != nil {
			log.Printf("[SYNC] ⚠️ Fetch failed for %s (%s): %v", user.Username, *user.AniListUsername, err)
			continue
		}

		if err := w.identity.UpsertStats(user.ID, snapshot); err != nil {
			log.Printf("[SYNC] ⚠️ Stats upsert failed for %s: %v", user.Username, err)
		}
		if err := w.ledger.RecordAllObservations(ctx, user.ID, snapshot); err != nil {
			log.Printf("[SYNC] ⚠️ Ledger update failed for %s: %v", user.Username, err)
			continue
		}
		synced++
	}
	log.Printf("[SYNC] ✅ AniList pass complete: %d/%d users updated", synced, len(users))
}
