package data

import (
	"context"
	"errors"
	"strings"

	"github.com/sghtao/companion-camp-backend/internal/models"
)

const (
	// MaxPostLimit is the largest page the social platform will return.
	MaxPostLimit = 100
	// DefaultPostLimit is how many recent posts an evaluation pulls.
	DefaultPostLimit = 20
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrProviderUnavailable = errors.New("social data provider unavailable")
)

// SocialDataSource 提供账号统计数据和最近帖子
type SocialDataSource interface {
	// Name identifies the source in logs
	Name() string

	// GetAccountStats retrieves aggregate statistics for a handle
	GetAccountStats(ctx context.Context, handle string) (*models.AccountStats, error)

	// GetRecentPosts retrieves up to limit posts, most recent first
	GetRecentPosts(ctx context.Context, handle string, limit int) ([]models.Post, error)
}

// SnapshotSource returns statistics and recent posts from one round of
// upstream requests. The orchestrator prefers it when a source offers it.
type SnapshotSource interface {
	GetAccountSnapshot(ctx context.Context, handle string, limit int) (*models.AccountStats, []models.Post, error)
}

// MarketDataSource 提供代币行情
type MarketDataSource interface {
	Name() string

	// CollectCoinQuotes returns quotes for the requested coins. Coins the
	// source does not know are omitted from the result.
	CollectCoinQuotes(ctx context.Context, coins []models.CoinQuote) ([]models.CoinQuote, error)
}

// PurchaseStorage 处理购买记录的持久化
type PurchaseStorage interface {
	// SavePurchase stores a purchase and returns its id
	SavePurchase(ctx context.Context, p *models.Purchase) (int64, error)

	// GetPurchaseHistory returns purchases for username, newest first
	GetPurchaseHistory(ctx context.Context, username string) ([]models.Purchase, error)
}

// NormalizeHandle strips surrounding whitespace and any leading "@".
func NormalizeHandle(handle string) string {
	return strings.TrimLeft(strings.TrimSpace(handle), "@")
}

// ClampPostLimit keeps limit inside [1, MaxPostLimit].
func ClampPostLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxPostLimit {
		return MaxPostLimit
	}
	return limit
}
