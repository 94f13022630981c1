package storage

import (
	"context"
	"time"

	"sharkspread/internal/domain"
)

// SpreadHistoryStore provides access to spread_history storage.
// Rows are keyed by (symbol, dex, sampled_at); duplicates are rejected.
type SpreadHistoryStore interface {
	// Insert adds a new sample. Returns ErrDuplicateKey if the key exists.
	Insert(ctx context.Context, p *domain.SpreadPoint) error

	// InsertBulk adds multiple samples atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, points []*domain.SpreadPoint) error

	// GetBySymbol retrieves samples for a symbol within the timeframe ending
	// at now, ordered by sampled_at ASC. A symbol with no samples yields an
	// empty slice, not an error.
	GetBySymbol(ctx context.Context, symbol string, tf domain.Timeframe, now time.Time) ([]*domain.SpreadPoint, error)

	// GetByTimeRange retrieves samples for a symbol within [start, end]
	// (inclusive), ordered by sampled_at ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.SpreadPoint, error)

	// Prune deletes samples older than cutoff across all symbols and
	// returns how many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArchiveStore provides access to long-horizon spread archive storage.
// Unlike the history store it keeps no retention cutoff and serves
// analytical range scans.
type ArchiveStore interface {
	// InsertBulk appends a batch of samples. Duplicates within the batch
	// are the caller's problem; the archive deduplicates asynchronously.
	InsertBulk(ctx context.Context, points []*domain.SpreadPoint) error

	// GetByTimeRange retrieves samples for a symbol within [start, end]
	// (inclusive), ordered by sampled_at ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.SpreadPoint, error)
}

// LatestCache holds the most recent snapshot per symbol with a TTL, so
// reads never block on venue round-trips. A miss is ErrNotFound.
type LatestCache interface {
	// SetSnapshot stores the latest snapshot for its symbol.
	SetSnapshot(ctx context.Context, snap *domain.SpreadSnapshot) error

	// GetSnapshot retrieves the latest snapshot. Returns ErrNotFound when
	// the symbol was never written or the entry expired.
	GetSnapshot(ctx context.Context, symbol string) (*domain.SpreadSnapshot, error)

	// GetAllSnapshots retrieves every live snapshot, unordered.
	GetAllSnapshots(ctx context.Context) ([]*domain.SpreadSnapshot, error)
}

// HistoryCache keeps a short bounded window of recent samples per
// (symbol, timeframe) for fast recall across restarts. Appends beyond
// the window cap evict the oldest entry.
type HistoryCache interface {
	// Append adds a sample to the (symbol, timeframe) window.
	Append(ctx context.Context, symbol string, tf domain.Timeframe, p *domain.SpreadPoint) error

	// GetWindow retrieves the window oldest-first. A key never written
	// yields an empty slice, not an error.
	GetWindow(ctx context.Context, symbol string, tf domain.Timeframe) ([]*domain.SpreadPoint, error)
}

// TokenStore provides access to the tracked-token catalog.
type TokenStore interface {
	// Upsert inserts or replaces a token by symbol.
	Upsert(ctx context.Context, tok *domain.Token) error

	// GetBySymbol retrieves a token. Returns ErrNotFound if not exists.
	GetBySymbol(ctx context.Context, symbol string) (*domain.Token, error)

	// List retrieves all tokens ordered by symbol. With enabledOnly set,
	// disabled tokens are skipped.
	List(ctx context.Context, enabledOnly bool) ([]*domain.Token, error)
}
