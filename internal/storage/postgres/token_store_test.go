package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage"
)

func TestTokenStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	tok := &domain.Token{
		Symbol:     "SHARK",
		MEXCSymbol: "SHARKUSDT",
		Chain:      domain.ChainSolana,
		Mint:       "GsWQ9WjbkrS9iQoBLBCc5qCQK9QPq5c5vDxEYShark11",
		Decimals:   9,
		Enabled:    true,
	}
	require.NoError(t, store.Upsert(ctx, tok))

	got, err := store.GetBySymbol(ctx, "SHARK")
	require.NoError(t, err)
	assert.Equal(t, "SHARKUSDT", got.MEXCSymbol)
	assert.Equal(t, domain.ChainSolana, got.Chain)
	assert.Equal(t, 9, got.Decimals)
	assert.True(t, got.Enabled)

	// Second upsert replaces the row instead of erroring.
	tok.Enabled = false
	tok.MEXCSymbol = "SHARKUSDC"
	require.NoError(t, store.Upsert(ctx, tok))

	got, err = store.GetBySymbol(ctx, "SHARK")
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, "SHARKUSDC", got.MEXCSymbol)
}

func TestTokenStore_RoundTripsBSCAddresses(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	tok := &domain.Token{
		Symbol:      "CAKE",
		MEXCSymbol:  "CAKEUSDT",
		Chain:       domain.ChainBSC,
		Address:     "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82",
		PairAddress: "0x0eD7e52944161450477ee417DE9Cd3a859b14fD0",
		Decimals:    18,
		Enabled:     true,
	}
	require.NoError(t, store.Upsert(ctx, tok))

	got, err := store.GetBySymbol(ctx, "CAKE")
	require.NoError(t, err)
	assert.Equal(t, tok.Address, got.Address)
	assert.Equal(t, tok.PairAddress, got.PairAddress)
}

func TestTokenStore_GetMissing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)

	_, err := store.GetBySymbol(context.Background(), "NOPE")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStore_ListOrderAndFilter(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	tokens := []*domain.Token{
		{Symbol: "ZEBRA", MEXCSymbol: "ZEBRAUSDT", Chain: domain.ChainBSC, PairAddress: "0x1111", Enabled: true},
		{Symbol: "APE", MEXCSymbol: "APEUSDT", Chain: domain.ChainSolana, Mint: "mintA", Enabled: false},
		{Symbol: "SHARK", MEXCSymbol: "SHARKUSDT", Chain: domain.ChainSolana, Mint: "mintS", Enabled: true},
	}
	for _, tok := range tokens {
		require.NoError(t, store.Upsert(ctx, tok))
	}

	all, err := store.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "APE", all[0].Symbol)
	assert.Equal(t, "SHARK", all[1].Symbol)
	assert.Equal(t, "ZEBRA", all[2].Symbol)

	enabled, err := store.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	for _, tok := range enabled {
		assert.True(t, tok.Enabled)
	}
}

func TestTokenStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, &domain.Token{Symbol: "", Chain: domain.ChainBSC}), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, &domain.Token{Symbol: "X", Chain: domain.Chain("eth")}), storage.ErrInvalidInput)
}
