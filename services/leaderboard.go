package services

import (
	"time"

	"github.com/Kyerstorm/Lemegeton/models"

	"gorm.io/gorm"
)

// Every ranking query orders the same way: strictly descending by value,
// ties broken by earliest completion (incomplete rows last), then by the
// stable internal user id. Same input, same order, run to run.

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank        int        `json:"rank"`
	UserID      string     `json:"user_id"`
	DiscordID   int64      `json:"discord_id"`
	Username    string     `json:"username"`
	Value       int64      `json:"value"`
	Points      int64      `json:"points"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// LeaderboardService computes ranked views over the progress ledger.
// Strictly read-only; it never writes a row. An empty ledger ranks to an
// empty slice, not an error.
type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 25
	}
	return limit
}

type rankedRow struct {
	UserID      string
	DiscordID   int64
	Username    string
	Value       int64
	Points      int64
	CompletedAt *time.Time
}

func toEntries(rows []rankedRow) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:        i + 1,
			UserID:      r.UserID,
			DiscordID:   r.DiscordID,
			Username:    r.Username,
			Value:       r.Value,
			Points:      r.Points,
			CompletedAt: r.CompletedAt,
		})
	}
	return entries
}

// RankChallenge ranks one guild's progress on one challenge. Rows from any
// other guild never contribute, even for the same global definition.
func (s *LeaderboardService) RankChallenge(guildID, challengeID string, limit int) ([]LeaderboardEntry, error) {
	var rows []rankedRow
	err := s.DB.Model(&models.ChallengeProgress{}).
		Select("challenge_progresses.user_id, users.discord_id, users.username, challenge_progresses.value, challenge_progresses.points, challenge_progresses.completed_at").
		Joins("JOIN users ON users.id = challenge_progresses.user_id AND users.deleted_at IS NULL").
		Where("challenge_progresses.guild_id = ? AND challenge_progresses.challenge_id = ?", guildID, challengeID).
		Order("challenge_progresses.value DESC, (challenge_progresses.completed_at IS NULL) ASC, challenge_progresses.completed_at ASC, challenge_progresses.user_id ASC").
		Limit(clampLimit(limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

// RankPoints ranks one guild by total points across all of its selected
// challenges. Ties go to whoever completed anything earliest, then the
// stable user id.
func (s *LeaderboardService) RankPoints(guildID string, limit int) ([]LeaderboardEntry, error) {
	var rows []rankedRow
	err := s.DB.Model(&models.ChallengeProgress{}).
		Select("challenge_progresses.user_id, users.discord_id, users.username, SUM(challenge_progresses.value) AS value, SUM(challenge_progresses.points) AS points, MIN(challenge_progresses.completed_at) AS completed_at").
		Joins("JOIN users ON users.id = challenge_progresses.user_id AND users.deleted_at IS NULL").
		Where("challenge_progresses.guild_id = ?", guildID).
		Group("challenge_progresses.user_id, users.discord_id, users.username").
		Order("points DESC, (MIN(challenge_progresses.completed_at) IS NULL) ASC, MIN(challenge_progresses.completed_at) ASC, challenge_progresses.user_id ASC").
		Limit(clampLimit(limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

// RankChallengeAcrossGuilds ranks a challenge over the union of guilds the
// viewer belongs to. Each user contributes their best row among those
// guilds; rows in guilds the viewer is not a member of stay invisible, so a
// cross-guild board can never leak another tenant's data.
func (s *LeaderboardService) RankChallengeAcrossGuilds(viewerUserID, challengeID string, limit int) ([]LeaderboardEntry, error) {
	shared := s.DB.Model(&models.GuildMember{}).
		Select("guild_id").
		Where("user_id = ?", viewerUserID)

	var rows []rankedRow
	err := s.DB.Model(&models.ChallengeProgress{}).
		Select("challenge_progresses.user_id, users.discord_id, users.username, MAX(challenge_progresses.value) AS value, MAX(challenge_progresses.points) AS points, MIN(challenge_progresses.completed_at) AS completed_at").
		Joins("JOIN users ON users.id = challenge_progresses.user_id AND users.deleted_at IS NULL").
		Where("challenge_progresses.challenge_id = ? AND challenge_progresses.guild_id IN (?)", challengeID, shared).
		Group("challenge_progresses.user_id, users.discord_id, users.username").
		Order("value DESC, (MIN(challenge_progresses.completed_at) IS NULL) ASC, MIN(challenge_progresses.completed_at) ASC, challenge_progresses.user_id ASC").
		Limit(clampLimit(limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}
