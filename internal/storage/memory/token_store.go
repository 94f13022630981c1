package memory

import (
	"context"
	"sort"
	"sync"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by symbol
}

// NewTokenStore creates a new in-memory token catalog.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Upsert inserts or replaces a token by symbol.
func (s *TokenStore) Upsert(_ context.Context, tok *domain.Token) error {
	if tok == nil || tok.Symbol == "" || !tok.Chain.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokCopy := *tok
	s.data[tok.Symbol] = &tokCopy
	return nil
}

// GetBySymbol retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetBySymbol(_ context.Context, symbol string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tok, ok := s.data[symbol]
	if !ok {
		return nil, storage.ErrNotFound
	}
	tokCopy := *tok
	return &tokCopy, nil
}

// List retrieves all tokens ordered by symbol.
func (s *TokenStore) List(_ context.Context, enabledOnly bool) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.Token{}
	for _, tok := range s.data {
		if enabledOnly && !tok.Enabled {
			continue
		}
		tokCopy := *tok
		result = append(result, &tokCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result, nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
