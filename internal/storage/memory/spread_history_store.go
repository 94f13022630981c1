package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

// SpreadHistoryStore is an in-memory implementation of storage.SpreadHistoryStore.
type SpreadHistoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SpreadPoint // keyed by (symbol, dex, sampled_at)
}

// NewSpreadHistoryStore creates a new in-memory spread history store.
func NewSpreadHistoryStore() *SpreadHistoryStore {
	return &SpreadHistoryStore{
		data: make(map[string]*domain.SpreadPoint),
	}
}

// sampleKey generates a unique key for a spread sample.
func sampleKey(symbol string, dex domain.Venue, sampledAt time.Time) string {
	return fmt.Sprintf("%s|%s|%d", symbol, dex, sampledAt.UnixNano())
}

// Insert adds a new sample. Returns ErrDuplicateKey if the key exists.
func (s *SpreadHistoryStore) Insert(_ context.Context, p *domain.SpreadPoint) error {
	if p == nil || p.Symbol == "" || !p.DEX.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := sampleKey(p.Symbol, p.DEX, p.SampledAt)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	pointCopy := *p
	s.data[key] = &pointCopy
	return nil
}

// InsertBulk adds multiple samples atomically. Fails entire batch on any duplicate.
func (s *SpreadHistoryStore) InsertBulk(_ context.Context, points []*domain.SpreadPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.Symbol == "" || !p.DEX.IsValid() {
			return storage.ErrInvalidInput
		}
		key := sampleKey(p.Symbol, p.DEX, p.SampledAt)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		key := sampleKey(p.Symbol, p.DEX, p.SampledAt)
		pointCopy := *p
		s.data[key] = &pointCopy
	}

	return nil
}

// GetBySymbol retrieves samples for a symbol within the timeframe ending at now.
func (s *SpreadHistoryStore) GetBySymbol(ctx context.Context, symbol string, tf domain.Timeframe, now time.Time) ([]*domain.SpreadPoint, error) {
	window, err := tf.Duration()
	if err != nil {
		return nil, storage.ErrInvalidInput
	}
	return s.GetByTimeRange(ctx, symbol, now.Add(-window), now)
}

// GetByTimeRange retrieves samples for a symbol within [start, end] (inclusive).
func (s *SpreadHistoryStore) GetByTimeRange(_ context.Context, symbol string, start, end time.Time) ([]*domain.SpreadPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.SpreadPoint{}
	for _, p := range s.data {
		if p.Symbol == symbol && !p.SampledAt.Before(start) && !p.SampledAt.After(end) {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SampledAt.Before(result[j].SampledAt)
	})

	return result, nil
}

// Prune deletes samples older than cutoff across all symbols.
func (s *SpreadHistoryStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, p := range s.data {
		if p.SampledAt.Before(cutoff) {
			delete(s.data, key)
			removed++
		}
	}

	return removed, nil
}

var _ storage.SpreadHistoryStore = (*SpreadHistoryStore)(nil)
