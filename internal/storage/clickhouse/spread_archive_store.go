package clickhouse

import (
	"context"
	"fmt"
	"time"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

// SpreadArchiveStore implements storage.ArchiveStore using ClickHouse.
// The backing table is a ReplacingMergeTree keyed by (symbol, dex,
// sampled_at), so repeated inserts of the same sample collapse during
// merges and reads use FINAL.
type SpreadArchiveStore struct {
	conn *Conn
}

// NewSpreadArchiveStore creates a new SpreadArchiveStore.
func NewSpreadArchiveStore(conn *Conn) *SpreadArchiveStore {
	return &SpreadArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ArchiveStore = (*SpreadArchiveStore)(nil)

// InsertBulk appends a batch of samples.
func (s *SpreadArchiveStore) InsertBulk(ctx context.Context, points []*domain.SpreadPoint) error {
	if len(points) == 0 {
		return nil
	}

	for _, p := range points {
		if p == nil || p.Symbol == "" || !p.DEX.IsValid() {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO spread_archive (
			symbol, dex, cex_price, dex_price, spread_pct, sampled_at, cex_latency_ms, dex_latency_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.Symbol, p.DEX.String(),
			p.CEXPrice, p.DEXPrice, p.SpreadPct,
			p.SampledAt, p.CEXLatency, p.DEXLatency,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves samples for a symbol within [start, end] (inclusive).
func (s *SpreadArchiveStore) GetByTimeRange(ctx context.Context, symbol string, start, end time.Time) ([]*domain.SpreadPoint, error) {
	query := `
		SELECT symbol, dex, cex_price, dex_price, spread_pct, sampled_at, cex_latency_ms, dex_latency_ms
		FROM spread_archive FINAL
		WHERE symbol = ? AND sampled_at >= ? AND sampled_at <= ?
		ORDER BY sampled_at ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query archive by time range: %w", err)
	}
	defer rows.Close()

	return scanArchiveSamples(rows)
}

// chRows is the minimal row iterator shared by query scans.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// scanArchiveSamples scans multiple rows into a slice of SpreadPoint.
func scanArchiveSamples(rows chRows) ([]*domain.SpreadPoint, error) {
	points := []*domain.SpreadPoint{}

	for rows.Next() {
		var p domain.SpreadPoint
		var dex string

		err := rows.Scan(
			&p.Symbol, &dex,
			&p.CEXPrice, &p.DEXPrice, &p.SpreadPct,
			&p.SampledAt, &p.CEXLatency, &p.DEXLatency,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}

		p.DEX = domain.Venue(dex)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}

	return points, nil
}
