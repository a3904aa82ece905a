package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/sghtao/companion-camp-backend/internal/models"
	"github.com/sghtao/companion-camp-backend/internal/utils/request"
)

// DexScreenerDataSource prices tokens by contract address from the
// DexScreener pair index.
type DexScreenerDataSource struct {
	baseURL    string
	httpClient *resty.Client
	logger     *slog.Logger
}

func NewDexScreenerDataSource(logger *slog.Logger) *DexScreenerDataSource {
	return &DexScreenerDataSource{
		baseURL:    "https://api.dexscreener.com",
		httpClient: request.Request,
		logger:     logger,
	}
}

func (d *DexScreenerDataSource) Name() string {
	return "dexscreener"
}

type pair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
		LogoURI string `json:"logoURI"`
	} `json:"baseToken"`
	PriceUSD    decimal.NullDecimal `json:"priceUsd"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Info struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

type tokensResponse struct {
	Pairs []pair `json:"pairs"`
}

// CollectCoinQuotes implements data.MarketDataSource. For every requested
// address the pair with the highest USD liquidity wins; results are sorted
// by symbol.
func (d *DexScreenerDataSource) CollectCoinQuotes(ctx context.Context, coins []models.CoinQuote) ([]models.CoinQuote, error) {
	if len(coins) == 0 {
		return nil, nil
	}

	requested := make(map[string]models.CoinQuote, len(coins))
	addresses := make([]string, 0, len(coins))
	for _, c := range coins {
		if c.Address == "" {
			continue
		}
		requested[strings.ToUpper(c.Address)] = c
		addresses = append(addresses, c.Address)
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("no token addresses to query")
	}

	url := fmt.Sprintf("%s/latest/dex/tokens/%s", d.baseURL, strings.Join(addresses, ","))
	resp, err := d.httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	var result tokensResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	best := make(map[string]pair)
	for _, p := range result.Pairs {
		key := strings.ToUpper(p.BaseToken.Address)
		if _, ok := requested[key]; !ok {
			continue
		}
		if current, ok := best[key]; !ok || p.Liquidity.USD > current.Liquidity.USD {
			best[key] = p
		}
	}

	quotes := make([]models.CoinQuote, 0, len(best))
	for key, p := range best {
		coin := requested[key]
		quote := models.CoinQuote{
			Name:           firstNonEmpty(p.BaseToken.Name, coin.Name, "Unknown"),
			Symbol:         firstNonEmpty(p.BaseToken.Symbol, coin.Symbol, "UNKNOWN"),
			PriceUSD:       p.PriceUSD.Decimal,
			PriceChange24h: p.PriceChange.H24,
			ImageURL:       firstNonEmpty(p.Info.ImageURL, p.BaseToken.LogoURI, coin.ImageURL),
			Address:        p.BaseToken.Address,
			Volume24h:      p.Volume.H24,
			Liquidity:      p.Liquidity.USD,
			Source:         d.Name(),
		}
		quotes = append(quotes, quote)
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Symbol < quotes[j].Symbol
	})

	d.logger.Debug("dexscreener pairs matched", "pairs", len(result.Pairs), "quotes", len(quotes))
	return quotes, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
