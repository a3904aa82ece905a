package binance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/sghtao/companion-camp-backend/internal/models"
)

const defaultQuoteAsset = "USDT"

// BinanceDataSource prices coins from the Binance 24h ticker. Coins without
// a <SYMBOL>USDT market are skipped.
type BinanceDataSource struct {
	client     *binance.Client
	quoteAsset string
	logger     *slog.Logger
}

func NewBinanceDataSource(logger *slog.Logger, testnet ...bool) *BinanceDataSource {
	testnet = append(testnet, false)
	if testnet[0] {
		binance.UseTestnet = true
	}

	return &BinanceDataSource{
		client:     binance.NewClient("", ""), // 公共行情接口无需密钥
		quoteAsset: defaultQuoteAsset,
		logger:     logger,
	}
}

func (b *BinanceDataSource) Name() string {
	return "binance"
}

// CollectCoinQuotes implements data.MarketDataSource
func (b *BinanceDataSource) CollectCoinQuotes(ctx context.Context, coins []models.CoinQuote) ([]models.CoinQuote, error) {
	quotes := make([]models.CoinQuote, 0, len(coins))
	var lastErr error

	for _, coin := range coins {
		quote, err := b.collectCoinQuote(ctx, coin)
		if err != nil {
			b.logger.Debug("binance ticker unavailable", "symbol", coin.Symbol, "err", err)
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		quotes = append(quotes, *quote)
	}

	if len(quotes) == 0 && lastErr != nil {
		return nil, fmt.Errorf("failed to collect binance quotes: %w", lastErr)
	}
	return quotes, nil
}

func (b *BinanceDataSource) collectCoinQuote(ctx context.Context, coin models.CoinQuote) (*models.CoinQuote, error) {
	symbol := strings.ToUpper(coin.Symbol) + b.quoteAsset

	stats, err := b.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("symbol not found: %s", symbol)
	}
	ticker := stats[0]

	price, err := decimal.NewFromString(ticker.LastPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}

	priceChange, err := strconv.ParseFloat(ticker.PriceChangePercent, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price change: %w", err)
	}

	volume, err := strconv.ParseFloat(ticker.QuoteVolume, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse volume: %w", err)
	}

	quote := coin
	quote.PriceUSD = price
	quote.PriceChange24h = priceChange
	quote.Volume24h = volume
	quote.Source = b.Name()
	return &quote, nil
}
