package coins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sghtao/companion-camp-backend/internal/data"
	"github.com/sghtao/companion-camp-backend/internal/models"
)

const FallbackSource = "fallback"

var (
	ErrInvalidPurchase    = errors.New("invalid purchase")
	ErrStorageUnavailable = errors.New("purchase storage not configured")

	maxPurchaseAmount = decimal.New(1, 15)
)

// Solana meme coin contract addresses
const (
	BonkAddress   = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	WifAddress    = "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"
	PopcatAddress = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"
)

// DefaultCoins is the listed coin set, sorted by symbol.
func DefaultCoins() []models.CoinQuote {
	return []models.CoinQuote{
		{Name: "Bonk", Symbol: "BONK", Address: BonkAddress},
		{Name: "Popcat", Symbol: "POPCAT", Address: PopcatAddress},
		{Name: "dogwifhat", Symbol: "WIF", Address: WifAddress},
	}
}

// Cache stores the latest listing
type Cache interface {
	GetCoinList(ctx context.Context) ([]models.CoinQuote, bool, error)
	SetCoinList(ctx context.Context, quotes []models.CoinQuote) error
}

// Subscriber streams refreshed listings
type Subscriber interface {
	SubscribeToCoinQuotes(ctx context.Context, coins []models.CoinQuote, refreshInterval time.Duration) (<-chan []models.CoinQuote, error)
}

type Observer interface {
	CoinQuotesServed(source string)
	CoinCacheLookup(result string)
}

// Service serves the coin listing and purchase history.
type Service struct {
	source   data.MarketDataSource
	cache    Cache
	storage  data.PurchaseStorage
	coins    []models.CoinQuote
	observer Observer
	logger   *slog.Logger
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithObserver(o Observer) Option {
	return func(s *Service) {
		s.observer = o
	}
}

func WithCoins(coins []models.CoinQuote) Option {
	return func(s *Service) {
		if len(coins) > 0 {
			s.coins = coins
		}
	}
}

func NewService(source data.MarketDataSource, storage data.PurchaseStorage, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		source:  source,
		storage: storage,
		coins:   DefaultCoins(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListCoins returns live quotes, the cached listing, or the zero-priced
// fallback list. It never fails.
func (s *Service) ListCoins(ctx context.Context) []models.CoinQuote {
	if s.cache != nil {
		quotes, ok, err := s.cache.GetCoinList(ctx)
		switch {
		case err != nil:
			s.logger.Warn("coin cache unavailable", "err", err)
			s.lookup("error")
		case ok:
			s.lookup("hit")
			s.served("cache")
			return quotes
		default:
			s.lookup("miss")
		}
	}

	quotes, err := s.source.CollectCoinQuotes(ctx, s.coins)
	if err != nil || len(quotes) == 0 {
		s.logger.Warn("using fallback coin data", "err", err)
		s.served(FallbackSource)
		return FallbackList(s.coins)
	}

	s.store(ctx, quotes)
	s.served(quotes[0].Source)
	return quotes
}

// Run keeps the cache warm from a subscription until ctx is done.
func (s *Service) Run(ctx context.Context, sub Subscriber, refreshInterval time.Duration) error {
	ch, err := sub.SubscribeToCoinQuotes(ctx, s.coins, refreshInterval)
	if err != nil {
		return fmt.Errorf("failed to subscribe to coin quotes: %w", err)
	}

	for quotes := range ch {
		s.store(ctx, quotes)
	}
	return ctx.Err()
}

func (s *Service) store(ctx context.Context, quotes []models.CoinQuote) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetCoinList(ctx, quotes); err != nil {
		s.logger.Warn("failed to cache coin list", "err", err)
	}
}

func (s *Service) lookup(result string) {
	if s.observer != nil {
		s.observer.CoinCacheLookup(result)
	}
}

func (s *Service) served(source string) {
	if s.observer != nil {
		s.observer.CoinQuotesServed(source)
	}
}

// FallbackList returns the coins with zero prices.
func FallbackList(coins []models.CoinQuote) []models.CoinQuote {
	out := make([]models.CoinQuote, 0, len(coins))
	for _, c := range coins {
		out = append(out, models.CoinQuote{
			Name:     c.Name,
			Symbol:   c.Symbol,
			PriceUSD: decimal.Zero,
			Address:  c.Address,
			Source:   FallbackSource,
		})
	}
	return out
}

// PurchaseRequest 购买记录请求
type PurchaseRequest struct {
	Username   string          `json:"username"`
	CoinSymbol string          `json:"coin_symbol"`
	Amount     decimal.Decimal `json:"amount"`
	TxHash     string          `json:"tx_hash"`
}

// Validate trims fields and upper-cases the symbol.
func (r *PurchaseRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.CoinSymbol = strings.ToUpper(strings.TrimSpace(r.CoinSymbol))
	r.TxHash = strings.TrimSpace(r.TxHash)

	switch {
	case r.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidPurchase)
	case r.CoinSymbol == "":
		return fmt.Errorf("%w: coin symbol is required", ErrInvalidPurchase)
	case !r.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be greater than 0", ErrInvalidPurchase)
	case r.Amount.GreaterThan(maxPurchaseAmount):
		return fmt.Errorf("%w: amount too large", ErrInvalidPurchase)
	case r.TxHash == "":
		return fmt.Errorf("%w: transaction hash is required", ErrInvalidPurchase)
	}
	return nil
}

// RecordPurchase validates and stores a purchase, returning its id.
func (s *Service) RecordPurchase(ctx context.Context, req PurchaseRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if s.storage == nil {
		return 0, ErrStorageUnavailable
	}

	id, err := s.storage.SavePurchase(ctx, &models.Purchase{
		Username:   req.Username,
		CoinSymbol: req.CoinSymbol,
		Amount:     req.Amount,
		TxHash:     req.TxHash,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save purchase: %w", err)
	}

	s.logger.Info("purchase recorded", "id", id, "username", req.Username, "symbol", req.CoinSymbol)
	return id, nil
}

// PurchaseHistory returns a user's purchases, newest first.
func (s *Service) PurchaseHistory(ctx context.Context, username string) ([]models.Purchase, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidPurchase)
	}
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}

	purchases, err := s.storage.GetPurchaseHistory(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch purchase history: %w", err)
	}
	return purchases, nil
}
