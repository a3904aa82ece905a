package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sghtao/companion-camp-backend/internal/data"
	"github.com/sghtao/companion-camp-backend/internal/models"
	"github.com/sghtao/companion-camp-backend/internal/utils/request"
)

const (
	defaultBaseURL = "https://api.twitter.com"

	// the timeline endpoint rejects max_results below 5
	minTimelinePage = 5
)

// Adapter reads account statistics and posts from the X API v2.
type Adapter struct {
	baseURL     string
	bearerToken string
	httpClient  *resty.Client
	logger      *slog.Logger
}

func NewAdapter(bearerToken string, logger *slog.Logger) *Adapter {
	return &Adapter{
		baseURL:     defaultBaseURL,
		bearerToken: bearerToken,
		httpClient:  request.Request,
		logger:      logger,
	}
}

func (a *Adapter) Name() string {
	return "x"
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type userResponse struct {
	Data *struct {
		ID            string `json:"id"`
		Username      string `json:"username"`
		PublicMetrics struct {
			FollowersCount int `json:"followers_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

type timelineResponse struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

type user struct {
	id        string
	followers int
}

// GetAccountStats implements data.SocialDataSource
func (a *Adapter) GetAccountStats(ctx context.Context, handle string) (*models.AccountStats, error) {
	stats, _, err := a.GetAccountSnapshot(ctx, handle, data.DefaultPostLimit)
	return stats, err
}

// GetRecentPosts implements data.SocialDataSource
func (a *Adapter) GetRecentPosts(ctx context.Context, handle string, limit int) ([]models.Post, error) {
	handle = data.NormalizeHandle(handle)

	u, err := a.lookupUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	return a.timeline(ctx, u.id, data.ClampPostLimit(limit))
}

// GetAccountSnapshot implements data.SnapshotSource with one user lookup
// and one timeline page. Stats are computed over the newest
// DefaultPostLimit posts regardless of limit.
func (a *Adapter) GetAccountSnapshot(ctx context.Context, handle string, limit int) (*models.AccountStats, []models.Post, error) {
	handle = data.NormalizeHandle(handle)
	limit = data.ClampPostLimit(limit)

	u, err := a.lookupUser(ctx, handle)
	if err != nil {
		return nil, nil, err
	}

	page := limit
	if page < data.DefaultPostLimit {
		page = data.DefaultPostLimit
	}
	posts, err := a.timeline(ctx, u.id, page)
	if err != nil {
		return nil, nil, err
	}

	sample := posts
	if len(sample) > data.DefaultPostLimit {
		sample = sample[:data.DefaultPostLimit]
	}
	stats := computeStats(handle, u.followers, sample)

	if len(posts) > limit {
		posts = posts[:limit]
	}
	return stats, posts, nil
}

func (a *Adapter) lookupUser(ctx context.Context, handle string) (*user, error) {
	if handle == "" {
		return nil, fmt.Errorf("empty handle: %w", data.ErrAccountNotFound)
	}

	url := fmt.Sprintf("%s/2/users/by/username/%s", a.baseURL, handle)
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetAuthToken(a.bearerToken).
		SetQueryParam("user.fields", "public_metrics").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %v: %w", err, data.ErrProviderUnavailable)
	}

	if err := classifyStatus(resp.StatusCode()); err != nil {
		return nil, err
	}

	var result userResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %v: %w", err, data.ErrProviderUnavailable)
	}

	if result.Data == nil {
		// the API answers 200 with an errors array for unknown users
		if len(result.Errors) > 0 {
			a.logger.Debug("user lookup returned errors", "handle", handle, "title", result.Errors[0].Title)
		}
		return nil, fmt.Errorf("@%s: %w", handle, data.ErrAccountNotFound)
	}

	return &user{
		id:        result.Data.ID,
		followers: result.Data.PublicMetrics.FollowersCount,
	}, nil
}

func (a *Adapter) timeline(ctx context.Context, userID string, limit int) ([]models.Post, error) {
	page := limit
	if page < minTimelinePage {
		page = minTimelinePage
	}

	url := fmt.Sprintf("%s/2/users/%s/tweets", a.baseURL, userID)
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetAuthToken(a.bearerToken).
		SetQueryParams(map[string]string{
			"max_results":  strconv.Itoa(page),
			"tweet.fields": "public_metrics,created_at",
		}).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %v: %w", err, data.ErrProviderUnavailable)
	}

	if err := classifyStatus(resp.StatusCode()); err != nil {
		return nil, err
	}

	var result timelineResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode timeline response: %v: %w", err, data.ErrProviderUnavailable)
	}

	posts := make([]models.Post, 0, len(result.Data))
	for _, t := range result.Data {
		posts = append(posts, models.Post{
			ID:        t.ID,
			Text:      t.Text,
			Likes:     t.PublicMetrics.LikeCount,
			Reposts:   t.PublicMetrics.RetweetCount,
			Replies:   t.PublicMetrics.ReplyCount,
			CreatedAt: t.CreatedAt,
		})
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}

	return posts, nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return data.ErrAccountNotFound
	default:
		return fmt.Errorf("unexpected status code: %d: %w", code, data.ErrProviderUnavailable)
	}
}

// computeStats derives averages, engagement rate and reach score from a
// timeline sample.
func computeStats(handle string, followers int, posts []models.Post) *models.AccountStats {
	stats := &models.AccountStats{
		Handle:        handle,
		FollowerCount: followers,
	}
	if len(posts) == 0 {
		return stats
	}

	var likes, reposts, replies int
	for _, p := range posts {
		likes += p.Likes
		reposts += p.Reposts
		replies += p.Replies
	}

	n := len(posts)
	stats.AvgLikes = likes / n
	stats.AvgRetweets = reposts / n
	stats.AvgReplies = replies / n

	var engagementRate float64
	if followers > 0 {
		perPost := float64(likes+reposts+replies) / float64(n)
		engagementRate = perPost / float64(followers) * 100
	}

	base := math.Min(10, engagementRate/1.5)
	bonus := math.Min(2, float64(followers)/50000)

	stats.EngagementRate = round2(engagementRate)
	stats.ReachScore = round2(math.Min(10, base+bonus))
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
