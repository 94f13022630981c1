package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

// LatestCache implements storage.LatestCache on Redis with a TTL per
// entry. Unreadable or legacy-format entries never surface as errors;
// a read either yields a snapshot or a miss.
type LatestCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestCache creates a Redis-backed latest-snapshot cache.
// A non-positive ttl disables expiry.
func NewLatestCache(client *redis.Client, ttl time.Duration) *LatestCache {
	return &LatestCache{client: client, ttl: ttl}
}

// Compile-time interface check.
var _ storage.LatestCache = (*LatestCache)(nil)

// snapshotDoc is the versioned wire form of a snapshot.
type snapshotDoc struct {
	Symbol    string              `json:"symbol"`
	Prices    map[string]float64  `json:"prices"`
	Spreads   map[string]*float64 `json:"spreads"`
	Liquidity map[string]*float64 `json:"liquidity,omitempty"`
	States    map[string]string   `json:"states"`
	TakenAt   time.Time           `json:"taken_at"`
}

// legacySnapshotDoc is the pre-versioning flat format: one field per
// venue, camelCase keys, millisecond epoch. Kept only for reads.
type legacySnapshotDoc struct {
	Token         string   `json:"token"`
	MexcPrice     *float64 `json:"mexcPrice"`
	JupiterPrice  *float64 `json:"jupiterPrice"`
	PancakePrice  *float64 `json:"pancakePrice"`
	SpreadJupiter *float64 `json:"spreadJupiter"`
	SpreadPancake *float64 `json:"spreadPancake"`
	UpdatedAtMs   int64    `json:"updatedAt"`
}

// SetSnapshot stores the latest snapshot for its symbol.
func (c *LatestCache) SetSnapshot(ctx context.Context, snap *domain.SpreadSnapshot) error {
	if snap == nil || snap.Symbol == "" {
		return storage.ErrInvalidInput
	}

	doc := toDoc(snap)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := c.client.Set(ctx, latestKeyV2(snap.Symbol), data, c.expiry()).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the latest snapshot. A missing or expired key
// falls back to the legacy key once, migrating it in place.
func (c *LatestCache) GetSnapshot(ctx context.Context, symbol string) (*domain.SpreadSnapshot, error) {
	data, err := c.client.Get(ctx, latestKeyV2(symbol)).Result()
	if err == nil {
		snap, ok := parseDoc([]byte(data))
		if !ok {
			return nil, storage.ErrNotFound
		}
		return snap, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	return c.migrateLegacy(ctx, symbol)
}

// GetAllSnapshots retrieves every live snapshot, unordered.
func (c *LatestCache) GetAllSnapshots(ctx context.Context) ([]*domain.SpreadSnapshot, error) {
	keys, err := c.client.Keys(ctx, latestKeyV2("*")).Result()
	if err != nil {
		return nil, fmt.Errorf("list snapshot keys: %w", err)
	}

	result := []*domain.SpreadSnapshot{}
	if len(keys) == 0 {
		return result, nil
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline get snapshots: %w", err)
	}

	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue // key expired between KEYS and GET
		}
		if snap, ok := parseDoc([]byte(data)); ok {
			result = append(result, snap)
		}
	}

	return result, nil
}

// migrateLegacy reads the pre-versioning key, rewrites it under the
// current scheme and deletes the old one. Every failure is a plain
// miss; migration never surfaces errors.
func (c *LatestCache) migrateLegacy(ctx context.Context, symbol string) (*domain.SpreadSnapshot, error) {
	data, err := c.client.Get(ctx, latestKeyV1(symbol)).Result()
	if err != nil {
		return nil, storage.ErrNotFound
	}

	var legacy legacySnapshotDoc
	if err := json.Unmarshal([]byte(data), &legacy); err != nil || legacy.Token == "" {
		return nil, storage.ErrNotFound
	}

	snap := fromLegacy(&legacy)
	if err := c.SetSnapshot(ctx, snap); err != nil {
		return nil, storage.ErrNotFound
	}
	c.client.Del(ctx, latestKeyV1(symbol))

	return snap, nil
}

func (c *LatestCache) expiry() time.Duration {
	if c.ttl > 0 {
		return c.ttl
	}
	return 0
}

func toDoc(snap *domain.SpreadSnapshot) *snapshotDoc {
	doc := &snapshotDoc{
		Symbol:    snap.Symbol,
		Prices:    make(map[string]float64, len(snap.Prices)),
		Spreads:   make(map[string]*float64, len(snap.Spreads)),
		Liquidity: make(map[string]*float64, len(snap.Liquidity)),
		States:    make(map[string]string, len(snap.States)),
		TakenAt:   snap.TakenAt,
	}
	for v, p := range snap.Prices {
		doc.Prices[v.String()] = p
	}
	for v, p := range snap.Spreads {
		doc.Spreads[v.String()] = p
	}
	for v, p := range snap.Liquidity {
		doc.Liquidity[v.String()] = p
	}
	for v, st := range snap.States {
		doc.States[v.String()] = st.String()
	}
	return doc
}

// parseDoc decodes a v2 snapshot, dropping entries for venues or
// states that are no longer valid.
func parseDoc(data []byte) (*domain.SpreadSnapshot, bool) {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil || doc.Symbol == "" {
		return nil, false
	}

	snap := &domain.SpreadSnapshot{
		Symbol:    doc.Symbol,
		Prices:    make(map[domain.Venue]float64),
		Spreads:   make(map[domain.Venue]*float64),
		Liquidity: make(map[domain.Venue]*float64),
		States:    make(map[domain.Venue]domain.ConnState),
		TakenAt:   doc.TakenAt,
	}
	for name, p := range doc.Prices {
		if v, err := domain.ParseVenue(name); err == nil {
			snap.Prices[v] = p
		}
	}
	for name, p := range doc.Spreads {
		if v, err := domain.ParseVenue(name); err == nil {
			snap.Spreads[v] = p
		}
	}
	for name, p := range doc.Liquidity {
		if v, err := domain.ParseVenue(name); err == nil {
			snap.Liquidity[v] = p
		}
	}
	for name, st := range doc.States {
		v, err := domain.ParseVenue(name)
		if err != nil {
			continue
		}
		state := domain.ConnState(st)
		if state.IsValid() {
			snap.States[v] = state
		}
	}
	return snap, true
}

func fromLegacy(legacy *legacySnapshotDoc) *domain.SpreadSnapshot {
	snap := &domain.SpreadSnapshot{
		Symbol:  legacy.Token,
		Prices:  make(map[domain.Venue]float64),
		Spreads: make(map[domain.Venue]*float64),
		States:  make(map[domain.Venue]domain.ConnState),
		TakenAt: time.UnixMilli(legacy.UpdatedAtMs),
	}
	if legacy.MexcPrice != nil {
		snap.Prices[domain.VenueMEXC] = *legacy.MexcPrice
	}
	if legacy.JupiterPrice != nil {
		snap.Prices[domain.VenueJupiter] = *legacy.JupiterPrice
	}
	if legacy.PancakePrice != nil {
		snap.Prices[domain.VenuePancake] = *legacy.PancakePrice
	}
	snap.Spreads[domain.VenueJupiter] = legacy.SpreadJupiter
	snap.Spreads[domain.VenuePancake] = legacy.SpreadPancake
	return snap
}
