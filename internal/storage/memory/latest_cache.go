package memory

import (
	"context"
	"sync"
	"time"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

// LatestCache is an in-memory implementation of storage.LatestCache.
// Entries expire after a fixed TTL; expired entries are dropped lazily
// on read.
type LatestCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry // keyed by symbol
	now     func() time.Time
}

type cacheEntry struct {
	snap      *domain.SpreadSnapshot
	expiresAt time.Time
}

// NewLatestCache creates a new in-memory latest-snapshot cache.
// A non-positive ttl disables expiry.
func NewLatestCache(ttl time.Duration) *LatestCache {
	return &LatestCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// SetSnapshot stores the latest snapshot for its symbol.
func (c *LatestCache) SetSnapshot(_ context.Context, snap *domain.SpreadSnapshot) error {
	if snap == nil || snap.Symbol == "" {
		return storage.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}
	snapCopy := copySnapshot(snap)
	c.entries[snap.Symbol] = cacheEntry{snap: snapCopy, expiresAt: expiresAt}
	return nil
}

// GetSnapshot retrieves the latest snapshot. Returns ErrNotFound when
// the symbol was never written or the entry expired.
func (c *LatestCache) GetSnapshot(_ context.Context, symbol string) (*domain.SpreadSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[symbol]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.entries, symbol)
		return nil, storage.ErrNotFound
	}
	return copySnapshot(e.snap), nil
}

// GetAllSnapshots retrieves every live snapshot, unordered.
func (c *LatestCache) GetAllSnapshots(_ context.Context) ([]*domain.SpreadSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	result := []*domain.SpreadSnapshot{}
	for symbol, e := range c.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(c.entries, symbol)
			continue
		}
		result = append(result, copySnapshot(e.snap))
	}
	return result, nil
}

// copySnapshot deep-copies a snapshot so callers cannot mutate cached maps.
func copySnapshot(s *domain.SpreadSnapshot) *domain.SpreadSnapshot {
	out := &domain.SpreadSnapshot{
		Symbol:    s.Symbol,
		Prices:    make(map[domain.Venue]float64, len(s.Prices)),
		Spreads:   make(map[domain.Venue]*float64, len(s.Spreads)),
		Liquidity: make(map[domain.Venue]*float64, len(s.Liquidity)),
		States:    make(map[domain.Venue]domain.ConnState, len(s.States)),
		TakenAt:   s.TakenAt,
	}
	for v, p := range s.Prices {
		out.Prices[v] = p
	}
	for v, p := range s.Spreads {
		if p == nil {
			out.Spreads[v] = nil
			continue
		}
		val := *p
		out.Spreads[v] = &val
	}
	for v, p := range s.Liquidity {
		if p == nil {
			out.Liquidity[v] = nil
			continue
		}
		val := *p
		out.Liquidity[v] = &val
	}
	for v, st := range s.States {
		out.States[v] = st
	}
	return out
}

var _ storage.LatestCache = (*LatestCache)(nil)
