package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sharkspread/internal/apperr"
	"sharkspread/internal/domain"
)

const (
	pancakeChainID = "bsc"
	pancakeDexID   = "pancakeswap"
)

// Pancake prices BSC tokens through the DexScreener pairs API. When a
// BSC RPC endpoint is configured an on-chain reserves reader is
// preferred for direct-mode freshness.
type Pancake struct {
	httpClient
	reserves *PancakeReserves // nil when no BSC RPC is configured
}

// NewPancake creates a DexScreener-backed Pancake client. reserves may
// be nil.
func NewPancake(baseURL string, reserves *PancakeReserves, opts ...Option) *Pancake {
	return &Pancake{httpClient: newHTTPClient(domain.VenuePancake.String(), baseURL, opts...), reserves: reserves}
}

// Venue identifies this client's source.
func (c *Pancake) Venue() domain.Venue {
	return domain.VenuePancake
}

type dexScreenerResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

type dexScreenerPair struct {
	ChainID     string                `json:"chainId"`
	DexID       string                `json:"dexId"`
	PairAddress string                `json:"pairAddress"`
	PriceUsd    string                `json:"priceUsd"`
	Liquidity   *dexScreenerLiquidity `json:"liquidity"`
}

type dexScreenerLiquidity struct {
	Usd float64 `json:"usd"`
}

// Price returns the USD quote for a BSC token, using on-chain reserves
// when a reader is configured and falling back to DexScreener.
func (c *Pancake) Price(ctx context.Context, tok domain.Token) (*domain.TokenPrice, error) {
	if tok.Address == "" {
		return nil, apperr.New(apperr.KindBadInput, "token has no BSC contract address")
	}

	if c.reserves != nil {
		p, err := c.reserves.Price(ctx, tok)
		if err == nil {
			return p, nil
		}
		c.log.Warn("on-chain reserves read failed, falling back to dexscreener", zap.Error(err))
	}

	body, err := c.get(ctx, "/latest/dex/tokens/"+tok.Address)
	if err != nil {
		return nil, fmt.Errorf("dexscreener %s: %w", tok.Symbol, err)
	}

	var resp dexScreenerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener %s: decode: %w", tok.Symbol, err)
	}

	pair := pickDeepestPair(resp.Pairs)
	p := &domain.TokenPrice{
		Symbol:    strings.ToUpper(tok.Symbol),
		Venue:     domain.VenuePancake,
		FetchedAt: time.Now().UTC(),
	}
	if pair == nil {
		// No matching pair means the source has no quote, not an error.
		return p, nil
	}

	if pair.PriceUsd != "" {
		v, err := strconv.ParseFloat(pair.PriceUsd, 64)
		if err != nil {
			return nil, fmt.Errorf("dexscreener %s: priceUsd %q: %w", tok.Symbol, pair.PriceUsd, err)
		}
		p.Price = v
	}
	if pair.Liquidity != nil {
		liq := pair.Liquidity.Usd
		p.Liquidity = &liq
	}
	return p, nil
}

// pickDeepestPair filters to Pancake pairs on BSC and returns the one
// with the deepest USD liquidity.
func pickDeepestPair(pairs []dexScreenerPair) *dexScreenerPair {
	var best *dexScreenerPair
	for i := range pairs {
		pair := &pairs[i]
		if pair.ChainID != pancakeChainID || pair.DexID != pancakeDexID {
			continue
		}
		if best == nil || liquidityUSD(pair) > liquidityUSD(best) {
			best = pair
		}
	}
	return best
}

func liquidityUSD(p *dexScreenerPair) float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.Usd
}
