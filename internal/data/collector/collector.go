package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/sghtao/companion-camp-backend/internal/data"
	"github.com/sghtao/companion-camp-backend/internal/models"
)

// MultiSourceCollector implements data.MarketDataSource by trying each
// source in order until one returns quotes.
type MultiSourceCollector struct {
	sources []data.MarketDataSource
	logger  Logger
}

type Logger interface {
	Error(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
}

func NewMultiSourceCollector(sources []data.MarketDataSource, logger Logger) *MultiSourceCollector {
	return &MultiSourceCollector{
		sources: sources,
		logger:  logger,
	}
}

func (c *MultiSourceCollector) Name() string {
	return "multi"
}

// CollectCoinQuotes implements data.MarketDataSource
func (c *MultiSourceCollector) CollectCoinQuotes(ctx context.Context, coins []models.CoinQuote) ([]models.CoinQuote, error) {
	for _, source := range c.sources {
		quotes, err := source.CollectCoinQuotes(ctx, coins)
		if err == nil && len(quotes) > 0 {
			c.logger.Info("collected coin quotes", "source", source.Name(), "count", len(quotes))
			return quotes, nil
		}
		if err == nil {
			err = fmt.Errorf("no quotes returned")
		}
		c.logger.Error("failed to collect coin quotes", "source", source.Name(), "error", err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("failed to collect coin quotes from all sources")
}

// SubscribeToCoinQuotes polls the sources every refreshInterval and emits
// each successful listing. The channel closes when ctx is done.
func (c *MultiSourceCollector) SubscribeToCoinQuotes(ctx context.Context, coins []models.CoinQuote, refreshInterval time.Duration) (<-chan []models.CoinQuote, error) {
	if refreshInterval <= 0 {
		return nil, fmt.Errorf("invalid refresh interval: %s", refreshInterval)
	}

	out := make(chan []models.CoinQuote, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				quotes, err := c.CollectCoinQuotes(ctx, coins)
				if err != nil {
					c.logger.Error("failed to refresh coin quotes", "error", err)
					continue
				}

				select {
				case out <- quotes:
				default:
					c.logger.Error("channel full, dropping coin quotes", "count", len(quotes))
				}
			}
		}
	}()

	return out, nil
}
