// Package collector samples venue prices on a fixed cadence, derives
// spread points, and fans them out to storage, caches, the websocket
// feed, and an optional message queue.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sharkspread/internal/domain"
	"sharkspread/internal/feed"
	"sharkspread/internal/observability"
	"sharkspread/internal/spread"
	"sharkspread/internal/storage"
)

// Snapshotter is the price surface the collector samples from.
type Snapshotter interface {
	Tokens(ctx context.Context) ([]domain.Token, error)
	Snapshot(ctx context.Context, tok domain.Token) (*domain.SpreadSnapshot, error)
}

// Broadcaster pushes freshly sampled rows to connected feed clients.
type Broadcaster interface {
	Broadcast(rows []feed.Row)
}

// Publisher is an optional downstream sink for sampled points.
type Publisher interface {
	PublishPoints(ctx context.Context, points []*domain.SpreadPoint) error
}

// Runner orchestrates continuous spread sampling. Every sink except
// the history store is optional; a sink failure is logged and skipped
// so one slow dependency never stalls the cycle.
type Runner struct {
	source        Snapshotter
	history       storage.SpreadHistoryStore
	archive       storage.ArchiveStore
	latest        storage.LatestCache
	window        storage.HistoryCache
	feed          Broadcaster
	publisher     Publisher
	interval      time.Duration
	retention     time.Duration
	pruneInterval time.Duration
	log           *zap.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source        Snapshotter
	History       storage.SpreadHistoryStore
	Archive       storage.ArchiveStore   // optional
	Latest        storage.LatestCache    // optional
	Window        storage.HistoryCache   // optional
	Feed          Broadcaster            // optional
	Publisher     Publisher              // optional
	Interval      time.Duration          // default 15s
	Retention     time.Duration          // default 7 days
	PruneInterval time.Duration          // default 1h
	Logger        *zap.Logger
}

// NewRunner creates a collector runner.
func NewRunner(opts RunnerOptions) *Runner {
	interval := opts.Interval
	if interval == 0 {
		interval = 15 * time.Second
	}
	retention := opts.Retention
	if retention == 0 {
		retention = 7 * 24 * time.Hour
	}
	pruneInterval := opts.PruneInterval
	if pruneInterval == 0 {
		pruneInterval = time.Hour
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		source:        opts.Source,
		history:       opts.History,
		archive:       opts.Archive,
		latest:        opts.Latest,
		window:        opts.Window,
		feed:          opts.Feed,
		publisher:     opts.Publisher,
		interval:      interval,
		retention:     retention,
		pruneInterval: pruneInterval,
		log:           log,
	}
}

// Run samples immediately, then on every tick until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("collector starting",
		zap.Duration("interval", r.interval),
		zap.Duration("retention", r.retention))

	r.collectOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	pruner := time.NewTicker(r.pruneInterval)
	defer pruner.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("collector stopped")
			return ctx.Err()
		case <-ticker.C:
			r.collectOnce(ctx)
		case <-pruner.C:
			r.pruneOnce(ctx)
		}
	}
}

// collectOnce runs one full sampling cycle across the tracked tokens.
func (r *Runner) collectOnce(ctx context.Context) {
	tokens, err := r.source.Tokens(ctx)
	if err != nil {
		r.log.Warn("token catalog unavailable", zap.Error(err))
		return
	}

	var points []*domain.SpreadPoint
	var rows []feed.Row

	for _, tok := range tokens {
		if !tok.Enabled {
			continue
		}
		p, row, err := r.sampleToken(ctx, tok)
		if err != nil {
			r.log.Warn("sample failed",
				zap.String("symbol", tok.Symbol),
				zap.Error(err))
			continue
		}
		if p != nil {
			points = append(points, p)
			rows = append(rows, row)
		}
	}

	if len(points) == 0 {
		return
	}

	r.store(ctx, points)

	if r.feed != nil {
		r.feed.Broadcast(rows)
	}
	if r.publisher != nil {
		if err := r.publisher.PublishPoints(ctx, points); err != nil {
			r.log.Warn("publish failed", zap.Error(err))
		}
	}
}

// sampleToken takes one snapshot and flattens it into a stored point
// and a feed row. Returns nil without error when neither venue had a
// quote this cycle.
func (r *Runner) sampleToken(ctx context.Context, tok domain.Token) (*domain.SpreadPoint, feed.Row, error) {
	dex, err := tok.DEXVenue()
	if err != nil {
		return nil, feed.Row{}, err
	}

	snap, err := r.source.Snapshot(ctx, tok)
	if err != nil {
		return nil, feed.Row{}, err
	}

	for v, price := range snap.Prices {
		observability.VenuePrice.WithLabelValues(v.String(), tok.Symbol).Set(price)
	}
	if pct := snap.Spreads[dex]; pct != nil {
		observability.SpreadPct.WithLabelValues(tok.Symbol, dex.String()).Set(*pct)
	}

	if r.latest != nil {
		if err := r.latest.SetSnapshot(ctx, snap); err != nil {
			r.log.Warn("latest cache write failed",
				zap.String("symbol", tok.Symbol),
				zap.Error(err))
		}
	}

	cex := snap.Prices[domain.VenueMEXC]
	dexPrice := snap.Prices[dex]
	if cex == 0 && dexPrice == 0 {
		return nil, feed.Row{}, nil
	}

	p := &domain.SpreadPoint{
		Symbol:    tok.Symbol,
		DEX:       dex,
		CEXPrice:  cex,
		DEXPrice:  dexPrice,
		SpreadPct: snap.Spreads[dex],
		SampledAt: snap.TakenAt,
	}
	return p, feed.RowFromPoint(p, limitOf(snap, dex)), nil
}

// store writes a cycle's points to the history store and the optional
// archive and window cache.
func (r *Runner) store(ctx context.Context, points []*domain.SpreadPoint) {
	for _, p := range points {
		err := r.history.Insert(ctx, p)
		switch {
		case err == nil:
			observability.SamplesStored.Inc()
		case errors.Is(err, storage.ErrDuplicateKey):
			// Same sample twice in one tick window; nothing to do.
		default:
			r.log.Warn("history write failed",
				zap.String("symbol", p.Symbol),
				zap.Error(err))
		}

		if r.window != nil {
			for _, tf := range []domain.Timeframe{domain.Timeframe1H, domain.Timeframe24H, domain.Timeframe7D} {
				if err := r.window.Append(ctx, p.Symbol, tf, p); err != nil {
					r.log.Warn("window cache write failed",
						zap.String("symbol", p.Symbol),
						zap.Error(err))
					break
				}
			}
		}
	}

	if r.archive != nil {
		if err := r.archive.InsertBulk(ctx, points); err != nil {
			r.log.Warn("archive write failed", zap.Error(err))
		}
	}
}

// pruneOnce drops history older than the retention horizon.
func (r *Runner) pruneOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.retention)
	n, err := r.history.Prune(ctx, cutoff)
	if err != nil {
		r.log.Warn("prune failed", zap.Error(err))
		return
	}
	if n > 0 {
		observability.SamplesPruned.Add(float64(n))
		r.log.Info("pruned history", zap.Int64("removed", n))
	}
}

// limitOf renders the DEX-side liquidity as the row's trade limit, or
// a placeholder when the venue reported none.
func limitOf(snap *domain.SpreadSnapshot, dex domain.Venue) string {
	if liq := snap.Liquidity[dex]; liq != nil && *liq > 0 {
		return fmt.Sprintf("$%s", spread.FormatPrice(*liq))
	}
	return "—"
}
