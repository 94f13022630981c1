package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sharkspread/internal/domain"
)

// wsolMint is a real on-curve mint used as a validation fixture.
const wsolMint = "So11111111111111111111111111111111111111112"

func TestJupiter_Price(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price/v2" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != wsolMint {
			t.Errorf("ids = %q", got)
		}
		w.Write([]byte(`{"data":{"` + wsolMint + `":{"id":"` + wsolMint + `","price":"231.45"}}}`))
	}))
	defer server.Close()

	client := NewJupiter(server.URL)
	p, err := client.Price(context.Background(), domain.Token{Symbol: "SOL", Mint: wsolMint})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if p.Price != 231.45 {
		t.Errorf("price = %v, want 231.45", p.Price)
	}
	if p.Venue != domain.VenueJupiter {
		t.Errorf("venue = %s", p.Venue)
	}
}

func TestJupiter_Price_UnpricedMint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"` + wsolMint + `":null}}`))
	}))
	defer server.Close()

	client := NewJupiter(server.URL)
	p, err := client.Price(context.Background(), domain.Token{Symbol: "SOL", Mint: wsolMint})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if p.Price != 0 {
		t.Errorf("price = %v, want 0 (unpriced)", p.Price)
	}
}

func TestJupiter_Price_RejectsMissingMint(t *testing.T) {
	client := NewJupiter("http://unused")
	if _, err := client.Price(context.Background(), domain.Token{Symbol: "SOL"}); err == nil {
		t.Fatal("expected error for token without mint")
	}
}

func TestValidateMint(t *testing.T) {
	tests := []struct {
		name    string
		mint    string
		wantErr bool
	}{
		{"valid on-curve mint", wsolMint, false},
		{"not base58", "not-a-mint!!", true},
		{"too short", "abc", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMint(tt.mint)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMint(%q) error = %v, wantErr %v", tt.mint, err, tt.wantErr)
			}
		})
	}
}
