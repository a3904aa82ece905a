package server

import (
	"context"

	"github.com/sghtao/companion-camp-backend/internal/advertisement"
	"github.com/sghtao/companion-camp-backend/internal/coins"
	"github.com/sghtao/companion-camp-backend/internal/models"
)

// CoinService 代币列表与购买记录
type CoinService interface {
	ListCoins(ctx context.Context) []models.CoinQuote
	RecordPurchase(ctx context.Context, req coins.PurchaseRequest) (int64, error)
	PurchaseHistory(ctx context.Context, username string) ([]models.Purchase, error)
}

// AdService 广告推荐与选择
type AdService interface {
	Recommendations(ctx context.Context, username string) (*advertisement.Recommendation, error)
	Select(ctx context.Context, username, adID, walletAddress string) (*advertisement.Selection, error)
	Selected(ctx context.Context, username string) (*advertisement.Selection, bool, error)
}
