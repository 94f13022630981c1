package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"sharkspread/internal/domain"
	"sharkspread/internal/storage/memory"
)

type stubLister struct {
	listed map[string]string
	err    error
	calls  int
}

func (s *stubLister) TradableSymbols(ctx context.Context) (map[string]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.listed, nil
}

func configured() []domain.Token {
	return []domain.Token{
		{Symbol: "SOL", Chain: domain.ChainSolana, Mint: "m", Enabled: true},
		{Symbol: "CAKE", Chain: domain.ChainBSC, Address: "0xabc", Enabled: true},
	}
}

func TestCatalog_StaticWithoutLister(t *testing.T) {
	c := NewCatalog(CatalogOptions{Tokens: configured()})

	tokens, err := c.Tokens(context.Background())
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("tokens = %d, want 2", len(tokens))
	}
	// Sorted by symbol.
	if tokens[0].Symbol != "CAKE" || tokens[1].Symbol != "SOL" {
		t.Errorf("order = %s, %s", tokens[0].Symbol, tokens[1].Symbol)
	}
}

func TestCatalog_DefaultsWhenEmpty(t *testing.T) {
	c := NewCatalog(CatalogOptions{})

	tokens, err := c.Tokens(context.Background())
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	if len(tokens) == 0 {
		t.Fatal("expected default tracked set")
	}
	for _, tok := range tokens {
		if !tok.Enabled {
			t.Errorf("default token %s should start enabled", tok.Symbol)
		}
	}
}

func TestCatalog_DisablesDelisted(t *testing.T) {
	lister := &stubLister{listed: map[string]string{"SOL": "SOLUSDT"}}
	c := NewCatalog(CatalogOptions{
		Tokens:          configured(),
		Lister:          lister,
		RefreshInterval: time.Nanosecond,
	})

	tokens, err := c.Tokens(context.Background())
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	bySymbol := map[string]domain.Token{}
	for _, tok := range tokens {
		bySymbol[tok.Symbol] = tok
	}
	if !bySymbol["SOL"].Enabled {
		t.Error("listed token should stay enabled")
	}
	if bySymbol["SOL"].MEXCSymbol != "SOLUSDT" {
		t.Errorf("MEXCSymbol = %q, want filled from listing", bySymbol["SOL"].MEXCSymbol)
	}
	if bySymbol["CAKE"].Enabled {
		t.Error("delisted token should be served disabled")
	}
}

func TestCatalog_KeepsConfiguredSetOnListingFailure(t *testing.T) {
	lister := &stubLister{err: errors.New("exchange down")}
	c := NewCatalog(CatalogOptions{
		Tokens:          configured(),
		Lister:          lister,
		RefreshInterval: time.Nanosecond,
	})

	tokens, err := c.Tokens(context.Background())
	if err != nil {
		t.Fatalf("Tokens must not fail when the listing does: %v", err)
	}
	for _, tok := range tokens {
		if !tok.Enabled {
			t.Errorf("token %s should keep its configured enabled state", tok.Symbol)
		}
	}
}

func TestCatalog_LoadRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()

	// State left behind by a previous run: CAKE was delisted, SOL had
	// its pair discovered.
	sol := domain.Token{Symbol: "SOL", MEXCSymbol: "SOLUSDT", Chain: domain.ChainSolana, Mint: "m", Enabled: true}
	cake := domain.Token{Symbol: "CAKE", Chain: domain.ChainBSC, Address: "0xabc", Enabled: false}
	if err := store.Upsert(ctx, &sol); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, &cake); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	c := NewCatalog(CatalogOptions{Tokens: configured(), Store: store})
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	tokens, err := c.Tokens(ctx)
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	bySymbol := map[string]domain.Token{}
	for _, tok := range tokens {
		bySymbol[tok.Symbol] = tok
	}
	if bySymbol["CAKE"].Enabled {
		t.Error("persisted disabled state should survive the restart")
	}
	if bySymbol["SOL"].MEXCSymbol != "SOLUSDT" {
		t.Errorf("MEXCSymbol = %q, want restored from the store", bySymbol["SOL"].MEXCSymbol)
	}
	// Configured identity fields stay authoritative.
	if bySymbol["CAKE"].Address != "0xabc" {
		t.Errorf("Address = %q, want the configured value", bySymbol["CAKE"].Address)
	}
}

func TestCatalog_LoadSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()

	c := NewCatalog(CatalogOptions{Tokens: configured(), Store: store})
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	stored, err := store.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored = %d, want the configured set persisted", len(stored))
	}
}

func TestCatalog_RefreshPersistsListingState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()
	lister := &stubLister{listed: map[string]string{"SOL": "SOLUSDT"}}

	c := NewCatalog(CatalogOptions{
		Tokens:          configured(),
		Lister:          lister,
		Store:           store,
		RefreshInterval: time.Nanosecond,
	})

	if _, err := c.Tokens(ctx); err != nil {
		t.Fatalf("Tokens: %v", err)
	}

	sol, err := store.GetBySymbol(ctx, "SOL")
	if err != nil {
		t.Fatalf("GetBySymbol: %v", err)
	}
	if sol.MEXCSymbol != "SOLUSDT" || !sol.Enabled {
		t.Errorf("persisted SOL = %+v, want listing state written back", sol)
	}
	cake, err := store.GetBySymbol(ctx, "CAKE")
	if err != nil {
		t.Fatalf("GetBySymbol: %v", err)
	}
	if cake.Enabled {
		t.Error("persisted CAKE should record the delisting")
	}
}

func TestCatalog_RefreshHonorsInterval(t *testing.T) {
	lister := &stubLister{listed: map[string]string{"SOL": "SOLUSDT", "CAKE": "CAKEUSDT"}}
	c := NewCatalog(CatalogOptions{
		Tokens:          configured(),
		Lister:          lister,
		RefreshInterval: time.Hour,
	})

	for i := 0; i < 3; i++ {
		if _, err := c.Tokens(context.Background()); err != nil {
			t.Fatalf("Tokens: %v", err)
		}
	}
	if lister.calls != 1 {
		t.Errorf("listing calls = %d, want 1 within the interval", lister.calls)
	}
}
