package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"sharkspread/internal/apperr"
	"sharkspread/internal/domain"
)

// Jupiter is the price client for the Solana DEX aggregator.
type Jupiter struct {
	httpClient
}

// NewJupiter creates a Jupiter price API client.
func NewJupiter(baseURL string, opts ...Option) *Jupiter {
	return &Jupiter{httpClient: newHTTPClient(domain.VenueJupiter.String(), baseURL, opts...)}
}

// Venue identifies this client's source.
func (c *Jupiter) Venue() domain.Venue {
	return domain.VenueJupiter
}

type jupiterPriceResponse struct {
	Data map[string]*jupiterPriceEntry `json:"data"`
}

type jupiterPriceEntry struct {
	ID    string `json:"id"`
	Price string `json:"price"`
}

// Price returns the USD quote for a token's mint.
func (c *Jupiter) Price(ctx context.Context, tok domain.Token) (*domain.TokenPrice, error) {
	if tok.Mint == "" {
		return nil, apperr.New(apperr.KindBadInput, "token has no Solana mint")
	}
	if err := ValidateMint(tok.Mint); err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, "invalid Solana mint", err)
	}

	prices, err := c.Prices(ctx, []string{tok.Mint})
	if err != nil {
		return nil, err
	}

	p := &domain.TokenPrice{
		Symbol:    strings.ToUpper(tok.Symbol),
		Venue:     domain.VenueJupiter,
		FetchedAt: time.Now().UTC(),
	}
	if v, ok := prices[tok.Mint]; ok {
		p.Price = v
	}
	return p, nil
}

// Prices fetches USD quotes for a batch of mints in one call. Mints
// the aggregator cannot price are absent from the result, not errors.
func (c *Jupiter) Prices(ctx context.Context, mints []string) (map[string]float64, error) {
	if len(mints) == 0 {
		return map[string]float64{}, nil
	}

	body, err := c.get(ctx, "/price/v2?ids="+url.QueryEscape(strings.Join(mints, ",")))
	if err != nil {
		return nil, fmt.Errorf("jupiter price: %w", err)
	}

	var resp jupiterPriceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("jupiter price: decode: %w", err)
	}

	out := make(map[string]float64, len(resp.Data))
	for mint, entry := range resp.Data {
		// Unpriced mints come back as explicit nulls.
		if entry == nil || entry.Price == "" {
			continue
		}
		v, err := strconv.ParseFloat(entry.Price, 64)
		if err != nil {
			c.log.Warn("jupiter returned unparseable price",
				zap.String("mint", mint), zap.String("price", entry.Price))
			continue
		}
		out[mint] = v
	}
	return out, nil
}

// ValidateMint checks that a mint address base58-decodes to 32 bytes
// lying on the ed25519 curve. Program-derived addresses are off the
// curve and never mint SPL tokens.
func ValidateMint(mint string) error {
	raw, err := base58.Decode(mint)
	if err != nil {
		return fmt.Errorf("decode mint: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("mint must be 32 bytes, got %d", len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("mint not on ed25519 curve: %w", err)
	}
	return nil
}
