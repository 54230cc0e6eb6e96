package search

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// HistoryLimit is the number of recent queries kept per user.
const HistoryLimit = 5

const historyKeyPrefix = "search_history:"

// HistoryStore keeps each user's most recent search queries, newest first,
// without duplicates.
type HistoryStore interface {
	Get(ctx context.Context, userID string) ([]string, error)
	Set(ctx context.Context, userID string, entries []string) error
	// Append moves query to the front and returns the updated history.
	Append(ctx context.Context, userID, query string) ([]string, error)
}

// RedisHistory stores history as a capped Redis list.
type RedisHistory struct {
	Rdb *redis.Client
}

func (h *RedisHistory) key(userID string) string {
	return historyKeyPrefix + userID
}

func (h *RedisHistory) Get(ctx context.Context, userID string) ([]string, error) {
	entries, err := h.Rdb.LRange(ctx, h.key(userID), 0, HistoryLimit-1).Result()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []string{}
	}
	return entries, nil
}

func (h *RedisHistory) Set(ctx context.Context, userID string, entries []string) error {
	entries = normalizeHistory(entries)
	key := h.key(userID)
	_, err := h.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if len(entries) > 0 {
			vals := make([]any, len(entries))
			for i, e := range entries {
				vals[i] = e
			}
			p.RPush(ctx, key, vals...)
		}
		return nil
	})
	return err
}

func (h *RedisHistory) Append(ctx context.Context, userID, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return h.Get(ctx, userID)
	}
	key := h.key(userID)
	_, err := h.Rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, key, 0, query)
		p.LPush(ctx, key, query)
		p.LTrim(ctx, key, 0, HistoryLimit-1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h.Get(ctx, userID)
}

// MemoryHistory is an in-process HistoryStore.
type MemoryHistory struct {
	mu sync.Mutex
	m  map[string][]string
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{m: make(map[string][]string)}
}

func (h *MemoryHistory) Get(ctx context.Context, userID string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.m[userID]...), nil
}

func (h *MemoryHistory) Set(ctx context.Context, userID string, entries []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m[userID] = normalizeHistory(entries)
	return nil
}

func (h *MemoryHistory) Append(ctx context.Context, userID, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	h.mu.Lock()
	defer h.mu.Unlock()
	if query != "" {
		h.m[userID] = normalizeHistory(append([]string{query}, h.m[userID]...))
	}
	return append([]string{}, h.m[userID]...), nil
}

// normalizeHistory trims, drops blanks and later duplicates, and caps the list.
func normalizeHistory(entries []string) []string {
	out := make([]string, 0, HistoryLimit)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
		if len(out) == HistoryLimit {
			break
		}
	}
	return out
}
