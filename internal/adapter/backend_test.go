package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharkspread/internal/apperr"
	"sharkspread/internal/domain"
)

func newGatewayStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/tokens", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"symbol":"SOL","chain":"solana","mint":"So11111111111111111111111111111111111111112"}]`))
	})
	mux.HandleFunc("/api/v1/price", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("venue") {
		case "mexc":
			w.Write([]byte(`{"symbol":"SOL","venue":"mexc","price":150.25,"bid":150.2,"ask":150.3,"fetchedAt":1756500000000}`))
		case "jupiter":
			// A venue that answered but had nothing to quote.
			w.Write([]byte(`{"symbol":"SOL","venue":"jupiter","price":null,"fetchedAt":1756500000000}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"unknown venue"}`))
		}
	})
	mux.HandleFunc("/api/v1/spread", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"symbol":"SOL","prices":{"mexc":150,"jupiter":153},"spreads":{"jupiter":2},"states":{"mexc":"connected","jupiter":"connected"},"takenAt":1756500000000}`))
	})
	mux.HandleFunc("/api/v1/spread/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("timeframe") == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"timeframe is required"}`))
			return
		}
		w.Write([]byte(`[{"symbol":"SOL","dex":"jupiter","cexPrice":150,"dexPrice":153,"spreadPct":2,"sampledAt":1756500000000}]`))
	})
	return httptest.NewServer(mux)
}

func TestBackend_Tokens(t *testing.T) {
	srv := newGatewayStub(t)
	defer srv.Close()

	b := NewBackend(BackendOptions{BaseURL: srv.URL})
	tokens, err := b.Tokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "SOL", tokens[0].Symbol)
	assert.Equal(t, domain.ChainSolana, tokens[0].Chain)
	assert.True(t, tokens[0].Enabled)
}

func TestBackend_Price(t *testing.T) {
	srv := newGatewayStub(t)
	defer srv.Close()

	b := NewBackend(BackendOptions{BaseURL: srv.URL})
	tok := domain.Token{Symbol: "SOL", Chain: domain.ChainSolana}

	p, err := b.Price(context.Background(), domain.VenueMEXC, tok)
	require.NoError(t, err)
	assert.Equal(t, 150.25, p.Price)
	require.NotNil(t, p.Bid)
	assert.Equal(t, 150.2, *p.Bid)
	assert.Equal(t, time.UnixMilli(1756500000000).UTC(), p.FetchedAt)

	// Null price decodes as the zero "no quote" value.
	p, err = b.Price(context.Background(), domain.VenueJupiter, tok)
	require.NoError(t, err)
	assert.Zero(t, p.Price)
}

func TestBackend_Snapshot(t *testing.T) {
	srv := newGatewayStub(t)
	defer srv.Close()

	b := NewBackend(BackendOptions{BaseURL: srv.URL})
	snap, err := b.Snapshot(context.Background(), domain.Token{Symbol: "SOL", Chain: domain.ChainSolana})
	require.NoError(t, err)
	assert.Equal(t, 150.0, snap.Prices[domain.VenueMEXC])
	require.NotNil(t, snap.Spreads[domain.VenueJupiter])
	assert.Equal(t, 2.0, *snap.Spreads[domain.VenueJupiter])
	assert.Equal(t, domain.ConnConnected, snap.States[domain.VenueMEXC])
}

func TestBackend_History(t *testing.T) {
	srv := newGatewayStub(t)
	defer srv.Close()

	b := NewBackend(BackendOptions{BaseURL: srv.URL})
	points, err := b.History(context.Background(), "SOL", domain.Timeframe1H, 100)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, domain.VenueJupiter, points[0].DEX)
	assert.Equal(t, 153.0, points[0].DEXPrice)
}

func TestBackend_ErrorEnvelope(t *testing.T) {
	srv := newGatewayStub(t)
	defer srv.Close()

	b := NewBackend(BackendOptions{BaseURL: srv.URL})
	_, err := b.Price(context.Background(), domain.VenuePancake, domain.Token{Symbol: "SOL"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "unknown venue")
}

func TestBackend_NotConfigured(t *testing.T) {
	b := NewBackend(BackendOptions{})
	_, err := b.Tokens(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestBackend_Healthz(t *testing.T) {
	srv := newGatewayStub(t)
	defer srv.Close()

	b := NewBackend(BackendOptions{BaseURL: srv.URL})
	require.NoError(t, b.Healthz(context.Background()))

	srv.Close()
	require.Error(t, b.Healthz(context.Background()))
}
