package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

func TestSpreadArchiveStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSpreadArchiveStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	// DateTime64(3) keeps millisecond precision
	base := time.Now().UTC().Truncate(time.Millisecond)

	points := []*domain.SpreadPoint{
		{
			Symbol:     "SHARK",
			DEX:        domain.VenueJupiter,
			CEXPrice:   1.00,
			DEXPrice:   1.02,
			SpreadPct:  ptr(2.0),
			SampledAt:  base.Add(-2 * time.Minute),
			CEXLatency: ptr(int64(42)),
			DEXLatency: ptr(int64(180)),
		},
		{
			Symbol:    "SHARK",
			DEX:       domain.VenuePancake,
			CEXPrice:  1.00,
			DEXPrice:  0.99,
			SpreadPct: ptr(-1.0),
			SampledAt: base.Add(-time.Minute),
		},
	}

	err = store.InsertBulk(ctx, points)
	require.NoError(t, err)

	got, err := store.GetByTimeRange(ctx, "SHARK", base.Add(-time.Hour), base)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ascending sampled_at order
	assert.True(t, got[0].SampledAt.Before(got[1].SampledAt))

	first := got[0]
	assert.Equal(t, "SHARK", first.Symbol)
	assert.Equal(t, domain.VenueJupiter, first.DEX)
	assert.Equal(t, 1.00, first.CEXPrice)
	assert.Equal(t, 1.02, first.DEXPrice)
	require.NotNil(t, first.SpreadPct)
	assert.InDelta(t, 2.0, *first.SpreadPct, 1e-9)
	require.NotNil(t, first.CEXLatency)
	assert.Equal(t, int64(42), *first.CEXLatency)
	assert.True(t, first.SampledAt.Equal(base.Add(-2*time.Minute)))

	// Nullable latency columns survive as nil
	second := got[1]
	assert.Nil(t, second.CEXLatency)
	assert.Nil(t, second.DEXLatency)
}

func TestSpreadArchiveStore_NilSpreadRoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSpreadArchiveStore(conn)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Millisecond)

	// A sample where the spread was undefined (one venue down)
	points := []*domain.SpreadPoint{
		{
			Symbol:    "SHARK",
			DEX:       domain.VenueJupiter,
			CEXPrice:  1.00,
			DEXPrice:  0,
			SpreadPct: nil,
			SampledAt: at,
		},
	}

	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByTimeRange(ctx, "SHARK", at.Add(-time.Minute), at.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].SpreadPct)
}

func TestSpreadArchiveStore_RangeBoundariesInclusive(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSpreadArchiveStore(conn)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	var points []*domain.SpreadPoint
	for i := 0; i < 5; i++ {
		points = append(points, &domain.SpreadPoint{
			Symbol:    "SHARK",
			DEX:       domain.VenueJupiter,
			CEXPrice:  1,
			DEXPrice:  1,
			SpreadPct: ptr(0.0),
			SampledAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	// [t1, t3] picks up exactly the boundary samples and the middle one
	got, err := store.GetByTimeRange(ctx, "SHARK", base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// Other symbols stay invisible
	got, err = store.GetByTimeRange(ctx, "OTHER", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSpreadArchiveStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSpreadArchiveStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.SpreadPoint{
		{Symbol: "", DEX: domain.VenueJupiter, SampledAt: time.Now()},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.InsertBulk(ctx, []*domain.SpreadPoint{
		{Symbol: "SHARK", DEX: domain.Venue("uniswap"), SampledAt: time.Now()},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
