package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

// SpreadHistoryStore implements storage.SpreadHistoryStore using PostgreSQL.
type SpreadHistoryStore struct {
	pool *Pool
}

// NewSpreadHistoryStore creates a new SpreadHistoryStore.
func NewSpreadHistoryStore(pool *Pool) *SpreadHistoryStore {
	return &SpreadHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SpreadHistoryStore = (*SpreadHistoryStore)(nil)

const insertSampleQuery = `
	INSERT INTO spread_history (
		symbol, dex, cex_price, dex_price, spread_pct, sampled_at, cex_latency_ms, dex_latency_ms
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// Insert adds a new sample. Returns ErrDuplicateKey if (symbol, dex, sampled_at) exists.
func (s *SpreadHistoryStore) Insert(ctx context.Context, p *domain.SpreadPoint) error {
	if p == nil || p.Symbol == "" || !p.DEX.IsValid() {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertSampleQuery,
		p.Symbol,
		p.DEX.String(),
		p.CEXPrice,
		p.DEXPrice,
		p.SpreadPct,
		p.SampledAt,
		p.CEXLatency,
		p.DEXLatency,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert spread sample: %w", err)
	}
	return nil
}

// InsertBulk adds multiple samples atomically. Fails entire batch on any duplicate.
func (s *SpreadHistoryStore) InsertBulk(ctx context.Context, points []*domain.SpreadPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range points {
		if p == nil || p.Symbol == "" || !p.DEX.IsValid() {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertSampleQuery,
			p.Symbol,
			p.DEX.String(),
			p.CEXPrice,
			p.DEXPrice,
			p.SpreadPct,
			p.SampledAt,
			p.CEXLatency,
			p.DEXLatency,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert spread sample in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
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
func (s *SpreadHistoryStore) GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.SpreadPoint, error) {
	query := `
		SELECT symbol, dex, cex_price, dex_price, spread_pct, sampled_at, cex_latency_ms, dex_latency_ms
		FROM spread_history
		WHERE symbol = $1 AND sampled_at >= $2 AND sampled_at <= $3
		ORDER BY sampled_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("get spread samples by time range: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// Prune deletes samples older than cutoff across all symbols.
func (s *SpreadHistoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM spread_history WHERE sampled_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune spread history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanSamples scans multiple rows into a slice of SpreadPoint.
func scanSamples(rows pgx.Rows) ([]*domain.SpreadPoint, error) {
	points := []*domain.SpreadPoint{}

	for rows.Next() {
		var p domain.SpreadPoint
		var dex string

		err := rows.Scan(
			&p.Symbol,
			&dex,
			&p.CEXPrice,
			&p.DEXPrice,
			&p.SpreadPct,
			&p.SampledAt,
			&p.CEXLatency,
			&p.DEXLatency,
		)
		if err != nil {
			return nil, fmt.Errorf("scan spread sample row: %w", err)
		}

		p.DEX = domain.Venue(dex)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spread sample rows: %w", err)
	}

	return points, nil
}
