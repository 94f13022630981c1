package postgres

import (
	"context"
	"fmt"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts or replaces a token by symbol.
func (s *TokenStore) Upsert(ctx context.Context, tok *domain.Token) error {
	if tok == nil || tok.Symbol == "" || !tok.Chain.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (symbol, mexc_symbol, chain, mint, address, pair_address, decimals, enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (symbol) DO UPDATE SET
			mexc_symbol = EXCLUDED.mexc_symbol,
			chain = EXCLUDED.chain,
			mint = EXCLUDED.mint,
			address = EXCLUDED.address,
			pair_address = EXCLUDED.pair_address,
			decimals = EXCLUDED.decimals,
			enabled = EXCLUDED.enabled,
			updated_at = now()
	`

	_, err := s.pool.Exec(ctx, query,
		tok.Symbol,
		tok.MEXCSymbol,
		tok.Chain.String(),
		tok.Mint,
		tok.Address,
		tok.PairAddress,
		tok.Decimals,
		tok.Enabled,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetBySymbol retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetBySymbol(ctx context.Context, symbol string) (*domain.Token, error) {
	query := `
		SELECT symbol, mexc_symbol, chain, mint, address, pair_address, decimals, enabled
		FROM tokens
		WHERE symbol = $1
	`

	var tok domain.Token
	var chain string
	err := s.pool.QueryRow(ctx, query, symbol).Scan(
		&tok.Symbol,
		&tok.MEXCSymbol,
		&chain,
		&tok.Mint,
		&tok.Address,
		&tok.PairAddress,
		&tok.Decimals,
		&tok.Enabled,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by symbol: %w", err)
	}

	tok.Chain = domain.Chain(chain)
	return &tok, nil
}

// List retrieves all tokens ordered by symbol.
func (s *TokenStore) List(ctx context.Context, enabledOnly bool) ([]*domain.Token, error) {
	query := `
		SELECT symbol, mexc_symbol, chain, mint, address, pair_address, decimals, enabled
		FROM tokens
		ORDER BY symbol ASC
	`
	if enabledOnly {
		query = `
			SELECT symbol, mexc_symbol, chain, mint, address, pair_address, decimals, enabled
			FROM tokens
			WHERE enabled
			ORDER BY symbol ASC
		`
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	tokens := []*domain.Token{}
	for rows.Next() {
		var tok domain.Token
		var chain string
		if err := rows.Scan(
			&tok.Symbol,
			&tok.MEXCSymbol,
			&chain,
			&tok.Mint,
			&tok.Address,
			&tok.PairAddress,
			&tok.Decimals,
			&tok.Enabled,
		); err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tok.Chain = domain.Chain(chain)
		tokens = append(tokens, &tok)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return tokens, nil
}
