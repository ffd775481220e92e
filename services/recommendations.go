package services

import (
	"errors"
	"strings"

	"github.com/Kyerstorm/Lemegeton/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecommendationService stores externally computed recommendation results
// and user votes on them. Scoring is a black box upstream; we only persist
// and rank.
type RecommendationService struct {
	DB *gorm.DB
}

func NewRecommendationService(db *gorm.DB) *RecommendationService {
	return &RecommendationService{DB: db}
}

// StoreResult upserts one recommendation result by AniList media id.
func (s *RecommendationService) StoreResult(mediaID int64, mediaType, title string, score float64) (*models.MediaRecommendation, error) {
	if mediaID <= 0 {
		return nil, errors.New("media id must be positive")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType != "manga" && mediaType != "anime" {
		mediaType = "manga"
	}

	rec := models.MediaRecommendation{
		ID:        uuid.NewString(),
		MediaID:   mediaID,
		MediaType: mediaType,
		Title:     title,
		Score:     score,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "media_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"media_type", "title", "score", "updated_at"}),
	}).Create(&rec).Error; err != nil {
		return nil, err
	}

	var out models.MediaRecommendation
	if err := s.DB.Where("media_id = ?", mediaID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// Vote records a user's up/down vote; re-voting flips the stored value.
func (s *RecommendationService) Vote(voterID string, mediaID int64, up bool) error {
	vote := 1
	if !up {
		vote = -1
	}
	row := models.RecommendationVote{
		ID:      uuid.NewString(),
		MediaID: mediaID,
		VoterID: voterID,
		Vote:    vote,
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "media_id"}, {Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vote", "updated_at"}),
	}).Create(&row).Error
}

// RankedRecommendation is a recommendation plus its aggregate vote total.
type RankedRecommendation struct {
	models.MediaRecommendation
	Votes int64 `json:"votes"`
}

// Top lists recommendations for a media type by vote total, then black-box
// score, then media id for a stable order.
func (s *RecommendationService) Top(mediaType string, limit int) ([]RankedRecommendation, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := s.DB.Model(&models.MediaRecommendation{}).
		Select("media_recommendations.*, COALESCE(SUM(recommendation_votes.vote), 0) AS votes").
		Joins("LEFT JOIN recommendation_votes ON recommendation_votes.media_id = media_recommendations.media_id")
	if mediaType = strings.ToLower(strings.TrimSpace(mediaType)); mediaType != "" {
		query = query.Where("media_recommendations.media_type = ?", mediaType)
	}

	var rows []RankedRecommendation
	err := query.Group("media_recommendations.id").
		Order("votes DESC, media_recommendations.score DESC, media_recommendations.media_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
