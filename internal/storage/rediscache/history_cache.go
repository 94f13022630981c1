package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

// DefaultHistoryCap bounds a history window when no cap is configured.
// Charts render a short trailing window, so ten points is plenty.
const DefaultHistoryCap = 10

// HistoryCache implements storage.HistoryCache on a Redis list per
// (symbol, timeframe). The list is trimmed to the cap on every append,
// oldest entries first out.
type HistoryCache struct {
	client *redis.Client
	cap    int
	ttl    time.Duration
}

// NewHistoryCache creates a Redis-backed bounded history cache.
// A non-positive cap falls back to DefaultHistoryCap; a non-positive
// ttl disables expiry.
func NewHistoryCache(client *redis.Client, cap int, ttl time.Duration) *HistoryCache {
	if cap <= 0 {
		cap = DefaultHistoryCap
	}
	return &HistoryCache{client: client, cap: cap, ttl: ttl}
}

// Compile-time interface check.
var _ storage.HistoryCache = (*HistoryCache)(nil)

// pointDoc is the versioned wire form of one history sample.
type pointDoc struct {
	Symbol     string    `json:"symbol"`
	DEX        string    `json:"dex"`
	CEXPrice   float64   `json:"cex_price"`
	DEXPrice   float64   `json:"dex_price"`
	SpreadPct  *float64  `json:"spread_pct"`
	SampledAt  time.Time `json:"sampled_at"`
	CEXLatency *int64    `json:"cex_latency_ms,omitempty"`
	DEXLatency *int64    `json:"dex_latency_ms,omitempty"`
}

// legacyPointDoc is one entry of the pre-versioning format: a single
// JSON array under one key, camelCase fields, prices as strings and a
// millisecond epoch. Kept only for reads.
type legacyPointDoc struct {
	Token    string   `json:"token"`
	Dex      string   `json:"dex"`
	CexPrice string   `json:"cexPrice"`
	DexPrice string   `json:"dexPrice"`
	Spread   *float64 `json:"spread"`
	Ts       int64    `json:"ts"`
}

// Append adds a sample to the (symbol, timeframe) window.
func (c *HistoryCache) Append(ctx context.Context, symbol string, tf domain.Timeframe, p *domain.SpreadPoint) error {
	if symbol == "" || !tf.IsValid() || p == nil {
		return storage.ErrInvalidInput
	}

	doc := pointDoc{
		Symbol:     p.Symbol,
		DEX:        p.DEX.String(),
		CEXPrice:   p.CEXPrice,
		DEXPrice:   p.DEXPrice,
		SpreadPct:  p.SpreadPct,
		SampledAt:  p.SampledAt,
		CEXLatency: p.CEXLatency,
		DEXLatency: p.DEXLatency,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal history point: %w", err)
	}

	key := historyKeyV2(symbol, tf)
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-c.cap), -1)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history point: %w", err)
	}
	return nil
}

// GetWindow retrieves the window oldest-first. An empty window falls
// back to the legacy single-blob key once, migrating it in place.
func (c *HistoryCache) GetWindow(ctx context.Context, symbol string, tf domain.Timeframe) ([]*domain.SpreadPoint, error) {
	if symbol == "" || !tf.IsValid() {
		return nil, storage.ErrInvalidInput
	}

	entries, err := c.client.LRange(ctx, historyKeyV2(symbol, tf), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read history window: %w", err)
	}

	if len(entries) > 0 {
		points := []*domain.SpreadPoint{}
		for _, raw := range entries {
			if p, ok := parsePointDoc([]byte(raw)); ok {
				points = append(points, p)
			}
		}
		return points, nil
	}

	return c.migrateLegacyWindow(ctx, symbol, tf)
}

// migrateLegacyWindow converts the old single-blob format into the
// list form and deletes the old key. Failures yield an empty window,
// never an error.
func (c *HistoryCache) migrateLegacyWindow(ctx context.Context, symbol string, tf domain.Timeframe) ([]*domain.SpreadPoint, error) {
	empty := []*domain.SpreadPoint{}

	data, err := c.client.Get(ctx, historyKeyV1(symbol, tf)).Result()
	if err != nil {
		return empty, nil
	}

	var legacy []legacyPointDoc
	if err := json.Unmarshal([]byte(data), &legacy); err != nil {
		return empty, nil
	}

	points := []*domain.SpreadPoint{}
	for _, doc := range legacy {
		p, ok := fromLegacyPoint(symbol, doc)
		if !ok {
			continue
		}
		points = append(points, p)
	}
	if len(points) > c.cap {
		points = points[len(points)-c.cap:]
	}

	for _, p := range points {
		if err := c.Append(ctx, symbol, tf, p); err != nil {
			return empty, nil
		}
	}
	c.client.Del(ctx, historyKeyV1(symbol, tf))

	return points, nil
}

func parsePointDoc(data []byte) (*domain.SpreadPoint, bool) {
	var doc pointDoc
	if err := json.Unmarshal(data, &doc); err != nil || doc.Symbol == "" {
		return nil, false
	}
	dex, err := domain.ParseVenue(doc.DEX)
	if err != nil {
		return nil, false
	}
	return &domain.SpreadPoint{
		Symbol:     doc.Symbol,
		DEX:        dex,
		CEXPrice:   doc.CEXPrice,
		DEXPrice:   doc.DEXPrice,
		SpreadPct:  doc.SpreadPct,
		SampledAt:  doc.SampledAt,
		CEXLatency: doc.CEXLatency,
		DEXLatency: doc.DEXLatency,
	}, true
}

// fromLegacyPoint converts one legacy entry, rejecting rows whose
// prices do not parse. The legacy format carried no latency fields.
func fromLegacyPoint(symbol string, doc legacyPointDoc) (*domain.SpreadPoint, bool) {
	if doc.Token != "" && doc.Token != symbol {
		return nil, false
	}
	dex, err := domain.ParseVenue(doc.Dex)
	if err != nil || !dex.IsDEX() {
		return nil, false
	}
	cex, err := strconv.ParseFloat(doc.CexPrice, 64)
	if err != nil {
		return nil, false
	}
	dexPrice, err := strconv.ParseFloat(doc.DexPrice, 64)
	if err != nil {
		return nil, false
	}
	return &domain.SpreadPoint{
		Symbol:    symbol,
		DEX:       dex,
		CEXPrice:  cex,
		DEXPrice:  dexPrice,
		SpreadPct: doc.Spread,
		SampledAt: time.UnixMilli(doc.Ts),
	}, true
}
