package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sghtao/companion-camp-backend/internal/models"
)

const (
	DefaultTTL = 60 * time.Second

	coinListKey = "companion:coins:list"
)

// CoinCache keeps the latest coin listing in Redis.
type CoinCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

func NewCoinCache(client goredis.UniversalClient, ttl time.Duration) *CoinCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CoinCache{
		client: client,
		ttl:    ttl,
	}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// GetCoinList returns the cached listing. ok is false on a cache miss.
func (c *CoinCache) GetCoinList(ctx context.Context) (quotes []models.CoinQuote, ok bool, err error) {
	raw, err := c.client.Get(ctx, coinListKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get coin list: %w", err)
	}

	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, false, fmt.Errorf("unmarshal coin list: %w", err)
	}
	return quotes, true, nil
}

func (c *CoinCache) SetCoinList(ctx context.Context, quotes []models.CoinQuote) error {
	raw, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("marshal coin list: %w", err)
	}
	return c.client.Set(ctx, coinListKey, raw, c.ttl).Err()
}
