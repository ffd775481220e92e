package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/Kyerstorm/Lemegeton/models"
	"github.com/Kyerstorm/Lemegeton/utils"
)

const defaultAniListURL = "https://graphql.anilist.co"

// ErrHandleNotFound means AniList has no user with the given handle.
var ErrHandleNotFound = errors.New("anilist user not found")

// AniListProfile is the subset of an AniList user we care about.
type AniListProfile struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// CatalogSnapshot is one point-in-time read of a user's AniList statistics.
// It is the sole input to progress evaluation; the ledger never fetches
// anything itself.
type CatalogSnapshot struct {
	Handle          string    `json:"handle"`
	MangaCompleted  int64     `json:"manga_completed"`
	AnimeCompleted  int64     `json:"anime_completed"`
	ChaptersRead    int64     `json:"chapters_read"`
	EpisodesWatched int64     `json:"episodes_watched"`
	MeanMangaScore  float64   `json:"mean_manga_score"`
	MeanAnimeScore  float64   `json:"mean_anime_score"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// MetricValue derives the integer value a snapshot yields for a metric.
// Mean scores are stored as score × 10 so the ledger stays integral.
func (s *CatalogSnapshot) MetricValue(metric models.Metric, mediaType string) int64 {
	switch metric {
	case models.MetricMangaCompleted:
		return s.MangaCompleted
	case models.MetricAnimeCompleted:
		return s.AnimeCompleted
	case models.MetricChaptersRead:
		return s.ChaptersRead
	case models.MetricEpisodesWatched:
		return s.EpisodesWatched
	case models.MetricMeanScore:
		if mediaType == "anime" {
			return int64(math.Round(s.MeanAnimeScore * 10))
		}
		return int64(math.Round(s.MeanMangaScore * 10))
	default:
		return 0
	}
}

// AniListClient talks to the AniList GraphQL API. Failures are surfaced to
// the caller; retry policy lives with whoever scheduled the fetch.
type AniListClient struct {
	BaseURL string
	Client  *http.Client
}

func NewAniListClient() *AniListClient {
	baseURL := os.Getenv("ANILIST_API_URL")
	if baseURL == "" {
		baseURL = defaultAniListURL
	}
	return &AniListClient{
		BaseURL: baseURL,
		Client:  utils.HTTPClient,
	}
}

const profileQuery = `
query ($name: String) {
    User(name: $name) {
        id
        name
        avatar { large }
    }
}`

const statisticsQuery = `
query ($name: String) {
    User(name: $name) {
        id
        name
        statistics {
            manga { count chaptersRead meanScore }
            anime { count episodesWatched meanScore }
        }
    }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func (c *AniListClient) post(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("anilist request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	// AniList answers 404 for unknown users on this query shape
	if resp.StatusCode == http.StatusNotFound {
		return ErrHandleNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("anilist returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode anilist response: %w", err)
	}
	return nil
}

// FetchProfile verifies a handle exists and returns the AniList profile.
func (c *AniListClient) FetchProfile(ctx context.Context, handle string) (*AniListProfile, error) {
	var response struct {
		Data struct {
			User *struct {
				ID     int64  `json:"id"`
				Name   string `json:"name"`
				Avatar struct {
					Large string `json:"large"`
				} `json:"avatar"`
			} `json:"user"`
		} `json:"data"`
	}

	if err := c.post(ctx, profileQuery, map[string]any{"name": handle}, &response); err != nil {
		return nil, err
	}
	if response.Data.User == nil {
		return nil, ErrHandleNotFound
	}

	return &AniListProfile{
		ID:     response.Data.User.ID,
		Name:   response.Data.User.Name,
		Avatar: response.Data.User.Avatar.Large,
	}, nil
}

// FetchCatalogSnapshot reads the user's current consumption statistics.
func (c *AniListClient) FetchCatalogSnapshot(ctx context.Context, handle string) (*CatalogSnapshot, error) {
	var response struct {
		Data struct {
			User *struct {
				ID         int64  `json:"id"`
				Name       string `json:"name"`
				Statistics struct {
					Manga struct {
						Count        int64   `json:"count"`
						ChaptersRead int64   `json:"chaptersRead"`
						MeanScore    float64 `json:"meanScore"`
					} `json:"manga"`
					Anime struct {
						Count           int64   `json:"count"`
						EpisodesWatched int64   `json:"episodesWatched"`
						MeanScore       float64 `json:"meanScore"`
					} `json:"anime"`
				} `json:"statistics"`
			} `json:"user"`
		} `json:"data"`
	}

	if err := c.post(ctx, statisticsQuery, map[string]any{"name": handle}, &response); err != nil {
		return nil, err
	}
	if response.Data.User == nil {
		return nil, ErrHandleNotFound
	}

	stats := response.Data.User.Statistics
	return &CatalogSnapshot{
		Handle:          response.Data.User.Name,
		MangaCompleted:  stats.Manga.Count,
		AnimeCompleted:  stats.Anime.Count,
		ChaptersRead:    stats.Manga.ChaptersRead,
		EpisodesWatched: stats.Anime.EpisodesWatched,
		MeanMangaScore:  stats.Manga.MeanScore,
		MeanAnimeScore:  stats.Anime.MeanScore,
		FetchedAt:       time.Now().UTC(),
	}, nil
}
