package advertisement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"
)

const selectionKeyPrefix = "companion:ads:selected:"

// SelectionStore keeps the latest selection per user. Usernames are matched
// case-insensitively.
type SelectionStore interface {
	Put(ctx context.Context, sel Selection) error
	Get(ctx context.Context, username string) (Selection, bool, error)
}

// RedisSelectionStore stores one JSON value per user, without expiry.
type RedisSelectionStore struct {
	client goredis.UniversalClient
}

func NewRedisSelectionStore(client goredis.UniversalClient) *RedisSelectionStore {
	return &RedisSelectionStore{client: client}
}

func (s *RedisSelectionStore) Put(ctx context.Context, sel Selection) error {
	raw, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}
	if err := s.client.Set(ctx, selectionKey(sel.Username), raw, 0).Err(); err != nil {
		return fmt.Errorf("set selection: %w", err)
	}
	return nil
}

func (s *RedisSelectionStore) Get(ctx context.Context, username string) (Selection, bool, error) {
	raw, err := s.client.Get(ctx, selectionKey(username)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Selection{}, false, nil
	}
	if err != nil {
		return Selection{}, false, fmt.Errorf("get selection: %w", err)
	}

	var sel Selection
	if err := json.Unmarshal(raw, &sel); err != nil {
		return Selection{}, false, fmt.Errorf("unmarshal selection: %w", err)
	}
	return sel, true, nil
}

func selectionKey(username string) string {
	return selectionKeyPrefix + strings.ToLower(username)
}

// MemorySelectionStore is used when no Redis is configured. Selections are
// lost on restart.
type MemorySelectionStore struct {
	mu         sync.RWMutex
	selections map[string]Selection
}

func NewMemorySelectionStore() *MemorySelectionStore {
	return &MemorySelectionStore{
		selections: make(map[string]Selection),
	}
}

func (s *MemorySelectionStore) Put(_ context.Context, sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[strings.ToLower(sel.Username)] = sel
	return nil
}

func (s *MemorySelectionStore) Get(_ context.Context, username string) (Selection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, ok := s.selections[strings.ToLower(username)]
	return sel, ok, nil
}
