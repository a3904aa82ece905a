package synthetic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sghtao/companion-camp-backend/internal/data"
	"github.com/sghtao/companion-camp-backend/internal/models"
)

// 演示模式下最多生成的帖子数
const maxSyntheticPosts = 5

var firstPostAt = time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)

// Adapter stands in for the live social API. With a nil random source it
// returns the fixed demo account; otherwise statistics are drawn from the
// source within the same ranges the live adapter produces.
type Adapter struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	logger *slog.Logger
}

// NewDemoAdapter returns an adapter that always yields the demo account.
func NewDemoAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// NewRandomAdapter returns an adapter drawing statistics from a seeded source.
func NewRandomAdapter(seed int64, logger *slog.Logger) *Adapter {
	return &Adapter{
		rnd:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

func (a *Adapter) Name() string {
	return "synthetic"
}

// GetAccountStats implements data.SocialDataSource
func (a *Adapter) GetAccountStats(ctx context.Context, handle string) (*models.AccountStats, error) {
	handle = data.NormalizeHandle(handle)
	if handle == "" {
		return nil, fmt.Errorf("empty handle: %w", data.ErrAccountNotFound)
	}

	a.logger.Debug("serving synthetic account stats", "handle", handle)

	if a.rnd == nil {
		return &models.AccountStats{
			Handle:         handle,
			FollowerCount:  15200,
			AvgLikes:       350,
			AvgRetweets:    45,
			AvgReplies:     12,
			EngagementRate: 4.5,
			ReachScore:     8.5,
		}, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	followers := 1000 + a.rnd.Intn(99000)
	rate := math.Round(a.rnd.Float64()*1000) / 100 // 0.00 - 10.00
	reach := math.Round(a.rnd.Float64()*1000) / 100

	perPost := int(float64(followers) * rate / 100)
	likes := perPost * 8 / 10
	reposts := perPost / 10

	return &models.AccountStats{
		Handle:         handle,
		FollowerCount:  followers,
		AvgLikes:       likes,
		AvgRetweets:    reposts,
		AvgReplies:     perPost - likes - reposts,
		EngagementRate: rate,
		ReachScore:     reach,
	}, nil
}

// GetRecentPosts implements data.SocialDataSource
func (a *Adapter) GetRecentPosts(ctx context.Context, handle string, limit int) ([]models.Post, error) {
	handle = data.NormalizeHandle(handle)
	if handle == "" {
		return nil, fmt.Errorf("empty handle: %w", data.ErrAccountNotFound)
	}

	n := data.ClampPostLimit(limit)
	if n > maxSyntheticPosts {
		n = maxSyntheticPosts
	}

	posts := make([]models.Post, 0, n)
	for i := n - 1; i >= 0; i-- {
		posts = append(posts, models.Post{
			ID:        fmt.Sprintf("synthetic_post_%d", i),
			Text:      fmt.Sprintf("Another cozy day with %s! 🐾 #petstagram #반려동물 #광고", handle),
			Likes:     350 + i*10,
			Reposts:   45 + i*2,
			Replies:   12 + i,
			CreatedAt: firstPostAt.AddDate(0, 0, i),
		})
	}

	return posts, nil
}
