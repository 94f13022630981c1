// Package discovery maintains the tracked-token catalog: configured
// tokens cross-checked against what the CEX actually lists.
package discovery

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

// Lister exposes the CEX's tradable base assets, keyed by base asset
// with the venue pair symbol as value.
type Lister interface {
	TradableSymbols(ctx context.Context) (map[string]string, error)
}

// Catalog serves the tracked tokens. Configured tokens are checked
// against the exchange listing on a refresh interval; a token whose
// pair disappears from the listing is served disabled rather than
// dropped, so the dashboard can show it as unavailable. When the
// listing cannot be fetched at all the catalog falls back to the
// configured set unchanged. With a token store attached, listing state
// survives restarts: Load seeds from the store and every refresh
// writes back.
type Catalog struct {
	lister   Lister             // may be nil: catalog is then purely static
	store    storage.TokenStore // may be nil: catalog is then unpersisted
	interval time.Duration
	log      *zap.Logger

	mu        sync.RWMutex
	tokens    []domain.Token
	refreshed time.Time
}

// CatalogOptions configures a Catalog.
type CatalogOptions struct {
	Tokens          []domain.Token
	Lister          Lister             // optional
	Store           storage.TokenStore // optional
	RefreshInterval time.Duration      // default 10m
	Logger          *zap.Logger
}

// NewCatalog creates a catalog over the configured tokens. Without any
// configured tokens the default tracked set is used.
func NewCatalog(opts CatalogOptions) *Catalog {
	interval := opts.RefreshInterval
	if interval == 0 {
		interval = 10 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	tokens := opts.Tokens
	if len(tokens) == 0 {
		tokens = DefaultTokens()
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Symbol < tokens[j].Symbol })
	return &Catalog{
		lister:   opts.Lister,
		store:    opts.Store,
		interval: interval,
		log:      log,
		tokens:   tokens,
	}
}

// Load seeds the catalog from the token store. Configuration stays the
// source of truth for which tokens exist and where they trade;
// persisted rows only restore the discovered state (listing pair,
// enabled flag) from before the restart. A store that has never been
// written is seeded with the configured set instead.
func (c *Catalog) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	stored, err := c.store.List(ctx, false)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if len(stored) == 0 {
		out := make([]domain.Token, len(c.tokens))
		copy(out, c.tokens)
		c.mu.Unlock()
		c.persist(ctx, out)
		return nil
	}

	bySymbol := make(map[string]*domain.Token, len(stored))
	for _, t := range stored {
		bySymbol[t.Symbol] = t
	}
	for i := range c.tokens {
		st, ok := bySymbol[c.tokens[i].Symbol]
		if !ok {
			continue
		}
		c.tokens[i].Enabled = st.Enabled
		if c.tokens[i].MEXCSymbol == "" {
			c.tokens[i].MEXCSymbol = st.MEXCSymbol
		}
	}
	c.mu.Unlock()
	return nil
}

// Tokens returns the current catalog, refreshing it against the
// exchange listing when the refresh interval has elapsed.
func (c *Catalog) Tokens(ctx context.Context) ([]domain.Token, error) {
	c.mu.RLock()
	stale := c.lister != nil && time.Since(c.refreshed) >= c.interval
	c.mu.RUnlock()

	if stale {
		c.refresh(ctx)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Token, len(c.tokens))
	copy(out, c.tokens)
	return out, nil
}

// Run refreshes the catalog on the interval until ctx is cancelled.
// Optional: Tokens refreshes lazily on its own, Run just keeps the
// catalog warm between reads.
func (c *Catalog) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *Catalog) refresh(ctx context.Context) {
	listed, err := c.lister.TradableSymbols(ctx)
	if err != nil {
		c.log.Warn("exchange listing unavailable, keeping configured set", zap.Error(err))
		c.mu.Lock()
		c.refreshed = time.Now()
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	for i := range c.tokens {
		pair, ok := listed[strings.ToUpper(c.tokens[i].Symbol)]
		c.tokens[i].Enabled = ok
		if ok && c.tokens[i].MEXCSymbol == "" {
			c.tokens[i].MEXCSymbol = pair
		}
	}
	c.refreshed = time.Now()
	out := make([]domain.Token, len(c.tokens))
	copy(out, c.tokens)
	c.mu.Unlock()

	c.persist(ctx, out)
}

// persist writes the token set back to the store, best effort.
func (c *Catalog) persist(ctx context.Context, tokens []domain.Token) {
	if c.store == nil {
		return
	}
	for i := range tokens {
		if err := c.store.Upsert(ctx, &tokens[i]); err != nil {
			c.log.Warn("token upsert failed",
				zap.String("symbol", tokens[i].Symbol),
				zap.Error(err))
		}
	}
}

// DefaultTokens is the tracked set used when no tokens are configured:
// one token per supported chain.
func DefaultTokens() []domain.Token {
	return []domain.Token{
		{
			Symbol:   "SOL",
			Chain:    domain.ChainSolana,
			Mint:     "So11111111111111111111111111111111111111112",
			Decimals: 9,
			Enabled:  true,
		},
		{
			Symbol:      "CAKE",
			Chain:       domain.ChainBSC,
			Address:     "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82",
			PairAddress: "0x0eD7e52944161450477ee417DE9Cd3a859b14fD0",
			Decimals:    18,
			Enabled:     true,
		},
	}
}
