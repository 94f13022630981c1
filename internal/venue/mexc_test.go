package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sharkspread/internal/domain"
)

func TestMEXC_Price(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotKey = r.Header.Get(MEXCAPIKeyHeader)
		w.Write([]byte(`{"symbol":"SHARKUSDT","bidPrice":"0.00123","askPrice":"0.00125"}`))
	}))
	defer server.Close()

	client := NewMEXC(server.URL, "secret")
	p, err := client.Price(context.Background(), domain.Token{Symbol: "SHARK", MEXCSymbol: "SHARKUSDT"})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}

	if gotPath != "/api/v3/ticker/bookTicker?symbol=SHARKUSDT" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("api key header = %q, want secret", gotKey)
	}
	if p.Bid == nil || *p.Bid != 0.00123 {
		t.Errorf("bid = %v, want 0.00123", p.Bid)
	}
	if p.Ask == nil || *p.Ask != 0.00125 {
		t.Errorf("ask = %v, want 0.00125", p.Ask)
	}
	if want := (0.00123 + 0.00125) / 2; p.Price != want {
		t.Errorf("mid = %v, want %v", p.Price, want)
	}
	if p.Venue != domain.VenueMEXC {
		t.Errorf("venue = %s", p.Venue)
	}
}

func TestMEXC_Price_EmptyQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"SHARKUSDT","bidPrice":"","askPrice":""}`))
	}))
	defer server.Close()

	client := NewMEXC(server.URL, "")
	p, err := client.Price(context.Background(), domain.Token{Symbol: "SHARK"})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if p.Bid != nil || p.Ask != nil {
		t.Errorf("bid/ask = %v/%v, want nil/nil", p.Bid, p.Ask)
	}
	if p.Price != 0 {
		t.Errorf("price = %v, want 0 (no quote)", p.Price)
	}
}

func TestMEXC_Price_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewMEXC(server.URL, "")
	if _, err := client.Price(context.Background(), domain.Token{Symbol: "NOPE"}); err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestMEXC_TradableSymbols(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/exchangeInfo" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"symbols":[
			{"symbol":"SHARKUSDT","status":"1","baseAsset":"SHARK","quoteAsset":"USDT"},
			{"symbol":"FINBTC","status":"1","baseAsset":"FIN","quoteAsset":"BTC"},
			{"symbol":"DEADUSDT","status":"3","baseAsset":"DEAD","quoteAsset":"USDT"},
			{"symbol":"CAKEUSDT","status":"ENABLED","baseAsset":"cake","quoteAsset":"USDT"}
		]}`))
	}))
	defer server.Close()

	client := NewMEXC(server.URL, "")
	syms, err := client.TradableSymbols(context.Background())
	if err != nil {
		t.Fatalf("TradableSymbols: %v", err)
	}

	want := map[string]string{"SHARK": "SHARKUSDT", "CAKE": "CAKEUSDT"}
	if len(syms) != len(want) {
		t.Fatalf("symbols = %v, want %v", syms, want)
	}
	for base, pair := range want {
		if syms[base] != pair {
			t.Errorf("symbols[%s] = %q, want %q", base, syms[base], pair)
		}
	}
}

func TestMEXC_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "oops", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"symbol":"SHARKUSDT","price":"1.5"}`))
	}))
	defer server.Close()

	client := NewMEXC(server.URL, "", WithMaxRetries(3), WithRetryDelay(0))
	v, err := client.LastPrice(context.Background(), "SHARKUSDT")
	if err != nil {
		t.Fatalf("LastPrice: %v", err)
	}
	if v != 1.5 {
		t.Errorf("price = %v, want 1.5", v)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}
