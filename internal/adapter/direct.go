package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sharkspread/internal/apperr"
	"sharkspread/internal/domain"
	"sharkspread/internal/spread"
	"sharkspread/internal/storage"
)

// VenueClient is the per-venue quote surface the direct transport fans
// out to. All three venue clients satisfy it.
type VenueClient interface {
	Venue() domain.Venue
	Price(ctx context.Context, tok domain.Token) (*domain.TokenPrice, error)
}

// TokenLister supplies the tracked-token catalog.
type TokenLister interface {
	Tokens(ctx context.Context) ([]domain.Token, error)
}

// Direct fans out to venue clients from this process. History reads
// are served from an optional store; without one they are empty. An
// optional recent-window cache answers bounded reads without touching
// the store.
type Direct struct {
	catalog TokenLister
	clients map[domain.Venue]VenueClient
	history storage.SpreadHistoryStore // may be nil
	window  storage.HistoryCache       // may be nil
	log     *zap.Logger
}

// DirectOptions configures a Direct source.
type DirectOptions struct {
	Catalog TokenLister
	Clients []VenueClient
	History storage.SpreadHistoryStore // optional
	Window  storage.HistoryCache       // optional
	Logger  *zap.Logger
}

// NewDirect creates a direct source over the given venue clients.
func NewDirect(opts DirectOptions) *Direct {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clients := make(map[domain.Venue]VenueClient, len(opts.Clients))
	for _, c := range opts.Clients {
		clients[c.Venue()] = c
	}
	return &Direct{
		catalog: opts.Catalog,
		clients: clients,
		history: opts.History,
		window:  opts.Window,
		log:     log,
	}
}

// Tokens lists the tracked tokens from the catalog.
func (d *Direct) Tokens(ctx context.Context) ([]domain.Token, error) {
	return d.catalog.Tokens(ctx)
}

// Price queries one venue client.
func (d *Direct) Price(ctx context.Context, venue domain.Venue, tok domain.Token) (*domain.TokenPrice, error) {
	client, ok := d.clients[venue]
	if !ok {
		return nil, apperr.New(apperr.KindBadInput, fmt.Sprintf("venue %s not configured", venue))
	}
	return client.Price(ctx, tok)
}

// Snapshot queries the CEX and the token's DEX concurrently and
// derives the spreads. A venue that fails or has no quote is simply
// absent from the snapshot; Snapshot fails only when every venue does.
func (d *Direct) Snapshot(ctx context.Context, tok domain.Token) (*domain.SpreadSnapshot, error) {
	dex, err := tok.DEXVenue()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, "token has no DEX venue", err)
	}

	venues := []domain.Venue{domain.VenueMEXC, dex}
	prices := make(map[domain.Venue]*domain.TokenPrice, len(venues))
	errs := make(map[domain.Venue]error, len(venues))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, v := range venues {
		client, ok := d.clients[v]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(v domain.Venue, client VenueClient) {
			defer wg.Done()
			p, err := client.Price(ctx, tok)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[v] = err
				return
			}
			prices[v] = p
		}(v, client)
	}
	wg.Wait()

	snap := &domain.SpreadSnapshot{
		Symbol:    tok.Symbol,
		Prices:    make(map[domain.Venue]float64),
		Spreads:   make(map[domain.Venue]*float64),
		Liquidity: make(map[domain.Venue]*float64),
		States:    make(map[domain.Venue]domain.ConnState),
		TakenAt:   time.Now().UTC(),
	}

	for v, err := range errs {
		d.log.Warn("venue fetch failed",
			zap.String("venue", v.String()),
			zap.String("symbol", tok.Symbol),
			zap.Error(err))
		snap.States[v] = domain.ConnError
	}

	for v, p := range prices {
		snap.States[v] = domain.ConnConnected
		if p.Price == 0 {
			continue
		}
		snap.Prices[v] = p.Price
		if p.Liquidity != nil {
			snap.Liquidity[v] = p.Liquidity
		}
	}

	if len(prices) == 0 {
		// Return the first error so the caller sees why.
		for _, err := range errs {
			return nil, fmt.Errorf("snapshot %s: all venues failed: %w", tok.Symbol, err)
		}
		return nil, apperr.New(apperr.KindUnavailable, "no venue clients configured")
	}

	if cex, ok := snap.Prices[domain.VenueMEXC]; ok {
		if dexPrice, ok := snap.Prices[dex]; ok {
			snap.Spreads[dex] = spread.PercentOf(cex, dexPrice)
		}
	}
	return snap, nil
}

// History reads stored samples. Bounded reads are answered from the
// recent-window cache when it holds enough points; everything else
// goes to the store. Without a store configured the result is empty,
// mirroring a key that was never written.
func (d *Direct) History(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]*domain.SpreadPoint, error) {
	if points, ok := d.cachedWindow(ctx, symbol, tf, limit); ok {
		return points, nil
	}
	if d.history == nil {
		return []*domain.SpreadPoint{}, nil
	}
	points, err := d.history.GetBySymbol(ctx, symbol, tf, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return boundHistory(points, limit), nil
}

// cachedWindow serves a bounded read from the window cache. The cache
// keeps only the newest points per key and may span past the timeframe
// cutoff, so it satisfies the read only when, cutoff applied, it still
// has limit points; any shortfall falls through to the store, which
// also covers points the cap already evicted.
func (d *Direct) cachedWindow(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]*domain.SpreadPoint, bool) {
	if d.window == nil || limit <= 0 {
		return nil, false
	}
	points, err := d.window.GetWindow(ctx, symbol, tf)
	if err != nil {
		d.log.Warn("history cache read failed",
			zap.String("symbol", symbol),
			zap.Error(err))
		return nil, false
	}
	dur, err := tf.Duration()
	if err != nil {
		return nil, false
	}
	cutoff := time.Now().UTC().Add(-dur)
	i := 0
	for i < len(points) && points[i].SampledAt.Before(cutoff) {
		i++
	}
	recent := points[i:]
	if len(recent) < limit {
		return nil, false
	}
	return recent[len(recent)-limit:], true
}
