package models

// MediaRecommendation stores an externally computed recommendation result.
// Scoring happens outside this service; we only persist and rank by votes.
type MediaRecommendation struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	MediaID   int64   `gorm:"uniqueIndex;not null" json:"media_id"` // AniList media id
	MediaType string  `gorm:"size:16;not null;default:'manga'" json:"media_type"`
	Title     string  `gorm:"not null" json:"title"`
	Score     float64 `json:"score"` // black-box score from the recommender

	Timestamps
}

// RecommendationVote is one user's up/down vote on a recommendation.
// One vote per (media, voter); re-voting flips the value.
type RecommendationVote struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	MediaID int64  `gorm:"uniqueIndex:idx_reco_vote;not null" json:"media_id"`
	VoterID string `gorm:"type:uuid;uniqueIndex:idx_reco_vote;not null" json:"voter_id"`
	Vote    int    `gorm:"not null" json:"vote"` // +1 or -1

	Timestamps
}
