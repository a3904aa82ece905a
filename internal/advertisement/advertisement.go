package advertisement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sghtao/companion-camp-backend/internal/data"
	"github.com/sghtao/companion-camp-backend/internal/models"
)

var (
	ErrInvalidSelection = errors.New("invalid advertisement selection")
	ErrUnknownAd        = errors.New("unknown advertisement")
)

// Pricing 广告单价
type Pricing struct {
	BasePrice       float64 `json:"base_price"`
	EngagementBonus float64 `json:"engagement_bonus"`
	TotalPrice      float64 `json:"total_price"`
}

// CalculatePricing charges one token per thousand followers plus a bonus
// of engagement/10 of the base price, capped at twice the base.
func CalculatePricing(followers int, engagementRate float64) Pricing {
	base := float64(followers) / 1000
	bonus := base * math.Min(2, engagementRate/10)

	return Pricing{
		BasePrice:       round2(base),
		EngagementBonus: round2(bonus),
		TotalPrice:      round2(base + bonus),
	}
}

type ChannelVolume struct {
	Username       string  `json:"username"`
	Followers      int     `json:"followers"`
	EngagementRate float64 `json:"engagement_rate"`
	AvgLikes       int     `json:"avg_likes"`
	AvgRetweets    int     `json:"avg_retweets"`
	ReachScore     float64 `json:"reach_score"`
}

type Recommendation struct {
	Username       string          `json:"username"`
	ChannelVolume  ChannelVolume   `json:"channel_volume"`
	Pricing        Pricing         `json:"pricing"`
	Advertisements []Advertisement `json:"advertisements"`
}

type Selection struct {
	AdID          string    `json:"ad_id"`
	Username      string    `json:"username"`
	WalletAddress string    `json:"wallet_address"`
	SelectedAt    time.Time `json:"selected_at"`
}

// Service recommends ads sized to a channel and records selections.
type Service struct {
	social  data.SocialDataSource
	catalog []Advertisement
	store   SelectionStore
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(social data.SocialDataSource, store SelectionStore, logger *slog.Logger) *Service {
	return &Service{
		social:  social,
		catalog: DefaultCatalog(),
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// Recommendations looks up the channel volume and returns priced ads.
func (s *Service) Recommendations(ctx context.Context, username string) (*Recommendation, error) {
	handle := data.NormalizeHandle(username)
	if handle == "" {
		return nil, fmt.Errorf("failed to get channel volume: %w", data.ErrAccountNotFound)
	}

	stats, err := s.social.GetAccountStats(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel volume: %w", err)
	}

	volume := channelVolume(stats)
	pricing := CalculatePricing(volume.Followers, volume.EngagementRate)

	return &Recommendation{
		Username:       handle,
		ChannelVolume:  volume,
		Pricing:        pricing,
		Advertisements: Recommend(s.catalog, volume.Followers, pricing.TotalPrice),
	}, nil
}

// Select records the ad a user chose. The ad must exist in the catalog.
func (s *Service) Select(ctx context.Context, username, adID, walletAddress string) (*Selection, error) {
	username = data.NormalizeHandle(username)
	adID = strings.TrimSpace(adID)
	walletAddress = strings.TrimSpace(walletAddress)

	if username == "" || adID == "" || walletAddress == "" {
		return nil, fmt.Errorf("%w: username, ad_id and wallet_address are required", ErrInvalidSelection)
	}
	if !s.known(adID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAd, adID)
	}

	sel := Selection{
		AdID:          adID,
		Username:      username,
		WalletAddress: walletAddress,
		SelectedAt:    s.now().UTC(),
	}
	if err := s.store.Put(ctx, sel); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}

	s.logger.Info("advertisement selected", "username", username, "ad_id", adID)
	return &sel, nil
}

// Selected returns the user's latest selection, if any.
func (s *Service) Selected(ctx context.Context, username string) (*Selection, bool, error) {
	sel, ok, err := s.store.Get(ctx, data.NormalizeHandle(username))
	if err != nil {
		return nil, false, fmt.Errorf("failed to load selection: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &sel, true, nil
}

func (s *Service) known(adID string) bool {
	for _, ad := range s.catalog {
		if ad.ID == adID {
			return true
		}
	}
	return false
}

func channelVolume(stats *models.AccountStats) ChannelVolume {
	return ChannelVolume{
		Username:       stats.Handle,
		Followers:      stats.FollowerCount,
		EngagementRate: stats.EngagementRate,
		AvgLikes:       stats.AvgLikes,
		AvgRetweets:    stats.AvgRetweets,
		ReachScore:     stats.ReachScore,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
