package adapter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"sharkspread/internal/domain"
)

// Hybrid defaults.
const (
	DefaultFailureThreshold = 3
	DefaultRecoveryInterval = 60 * time.Second
)

// HealthProber is the probe hybrid mode uses to decide the primary has
// recovered. Backend satisfies it.
type HealthProber interface {
	Healthz(ctx context.Context) error
}

// Hybrid serves from a primary source and flips to a fallback after a
// run of consecutive primary failures. A recovery ticker re-probes the
// primary and flips back on success. This is deliberately a counter
// plus a probe, not a windowed circuit breaker: one success on the
// probe is enough to return.
type Hybrid struct {
	primary   Source
	fallback  Source
	prober    HealthProber // may be nil; then recovery retries a Tokens call
	threshold int
	recovery  time.Duration
	log       *zap.Logger

	mu          sync.Mutex
	failures    int
	usingBackup bool
}

// HybridOptions configures a Hybrid source.
type HybridOptions struct {
	Primary          Source
	Fallback         Source
	Prober           HealthProber  // optional
	FailureThreshold int           // default 3
	RecoveryInterval time.Duration // default 60s
	Logger           *zap.Logger
}

// NewHybrid creates a hybrid source.
func NewHybrid(opts HybridOptions) *Hybrid {
	threshold := opts.FailureThreshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	recovery := opts.RecoveryInterval
	if recovery <= 0 {
		recovery = DefaultRecoveryInterval
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Hybrid{
		primary:   opts.Primary,
		fallback:  opts.Fallback,
		prober:    opts.Prober,
		threshold: threshold,
		recovery:  recovery,
		log:       log,
	}
}

// UsingFallback reports whether calls are currently routed to the
// fallback source.
func (h *Hybrid) UsingFallback() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.usingBackup
}

// Run drives the recovery ticker. It blocks until the context is
// cancelled. Without it the adapter still works but never flips back.
func (h *Hybrid) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.recovery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.tryRecover(ctx)
		}
	}
}

func (h *Hybrid) tryRecover(ctx context.Context) {
	if !h.UsingFallback() {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	if h.prober != nil {
		err = h.prober.Healthz(probeCtx)
	} else {
		_, err = h.primary.Tokens(probeCtx)
	}
	if err != nil {
		h.log.Debug("primary still down", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.usingBackup = false
	h.failures = 0
	h.mu.Unlock()
	h.log.Info("primary recovered, leaving fallback mode")
}

// recordFailure counts a primary failure and flips to fallback when
// the consecutive run reaches the threshold.
func (h *Hybrid) recordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures++
	if !h.usingBackup && h.failures >= h.threshold {
		h.usingBackup = true
		h.log.Warn("primary failing, switching to fallback",
			zap.Int("consecutive_failures", h.failures),
			zap.Error(err))
	}
}

func (h *Hybrid) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.usingBackup {
		h.failures = 0
	}
}

// call runs op against the active source. A primary failure counts
// toward the flip and the call is retried once on the fallback so the
// caller still gets an answer.
func call[T any](ctx context.Context, h *Hybrid, op func(Source) (T, error)) (T, error) {
	if h.UsingFallback() {
		return op(h.fallback)
	}

	out, err := op(h.primary)
	if err == nil {
		h.recordSuccess()
		return out, nil
	}
	if ctx.Err() != nil {
		// Caller went away; don't punish the primary for it.
		return out, err
	}

	h.recordFailure(err)
	return op(h.fallback)
}

// Tokens implements Source.
func (h *Hybrid) Tokens(ctx context.Context) ([]domain.Token, error) {
	return call(ctx, h, func(s Source) ([]domain.Token, error) {
		return s.Tokens(ctx)
	})
}

// Price implements Source.
func (h *Hybrid) Price(ctx context.Context, venue domain.Venue, tok domain.Token) (*domain.TokenPrice, error) {
	return call(ctx, h, func(s Source) (*domain.TokenPrice, error) {
		return s.Price(ctx, venue, tok)
	})
}

// Snapshot implements Source.
func (h *Hybrid) Snapshot(ctx context.Context, tok domain.Token) (*domain.SpreadSnapshot, error) {
	return call(ctx, h, func(s Source) (*domain.SpreadSnapshot, error) {
		return s.Snapshot(ctx, tok)
	})
}

// History implements Source.
func (h *Hybrid) History(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]*domain.SpreadPoint, error) {
	return call(ctx, h, func(s Source) ([]*domain.SpreadPoint, error) {
		return s.History(ctx, symbol, tf, limit)
	})
}
