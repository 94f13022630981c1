package memory

import (
	"context"
	"sync"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

// HistoryCache is an in-memory implementation of storage.HistoryCache.
// Each (symbol, timeframe) key holds a bounded window; appends beyond
// the cap evict the oldest entry.
type HistoryCache struct {
	mu      sync.RWMutex
	cap     int
	windows map[historyKey][]*domain.SpreadPoint
}

type historyKey struct {
	symbol string
	tf     domain.Timeframe
}

// NewHistoryCache creates a new in-memory bounded history cache.
func NewHistoryCache(cap int) *HistoryCache {
	if cap <= 0 {
		cap = 10
	}
	return &HistoryCache{
		cap:     cap,
		windows: make(map[historyKey][]*domain.SpreadPoint),
	}
}

// Append adds a sample to the (symbol, timeframe) window.
func (c *HistoryCache) Append(_ context.Context, symbol string, tf domain.Timeframe, p *domain.SpreadPoint) error {
	if symbol == "" || !tf.IsValid() || p == nil {
		return storage.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := historyKey{symbol: symbol, tf: tf}
	pointCopy := *p
	window := append(c.windows[key], &pointCopy)
	if len(window) > c.cap {
		window = window[len(window)-c.cap:]
	}
	c.windows[key] = window
	return nil
}

// GetWindow retrieves the window oldest-first.
func (c *HistoryCache) GetWindow(_ context.Context, symbol string, tf domain.Timeframe) ([]*domain.SpreadPoint, error) {
	if symbol == "" || !tf.IsValid() {
		return nil, storage.ErrInvalidInput
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	window := c.windows[historyKey{symbol: symbol, tf: tf}]
	result := make([]*domain.SpreadPoint, 0, len(window))
	for _, p := range window {
		pointCopy := *p
		result = append(result, &pointCopy)
	}
	return result, nil
}

var _ storage.HistoryCache = (*HistoryCache)(nil)
