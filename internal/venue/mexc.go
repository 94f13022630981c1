package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sharkspread/internal/domain"
)

// MEXCAPIKeyHeader is the header name the keyed MEXC tier expects.
const MEXCAPIKeyHeader = "X-MEXC-APIKEY"

// MEXC is the spot REST client for the centralized exchange side.
type MEXC struct {
	httpClient
}

// NewMEXC creates a MEXC spot client. An empty apiKey selects the
// free tier; a non-empty one is sent as X-MEXC-APIKEY on every call.
func NewMEXC(baseURL, apiKey string, opts ...Option) *MEXC {
	if apiKey != "" {
		opts = append(opts, WithHeader(MEXCAPIKeyHeader, apiKey))
	}
	return &MEXC{httpClient: newHTTPClient(domain.VenueMEXC.String(), baseURL, opts...)}
}

// Venue identifies this client's source.
func (c *MEXC) Venue() domain.Venue {
	return domain.VenueMEXC
}

type mexcBookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

// Price returns the bid/ask quote for a token's USDT pair.
func (c *MEXC) Price(ctx context.Context, tok domain.Token) (*domain.TokenPrice, error) {
	symbol := tok.MEXCSymbol
	if symbol == "" {
		symbol = strings.ToUpper(tok.Symbol) + "USDT"
	}

	body, err := c.get(ctx, "/api/v3/ticker/bookTicker?symbol="+url.QueryEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("mexc bookTicker %s: %w", symbol, err)
	}

	var bt mexcBookTicker
	if err := json.Unmarshal(body, &bt); err != nil {
		return nil, fmt.Errorf("mexc bookTicker %s: decode: %w", symbol, err)
	}

	bid, err := parseDecimal(bt.BidPrice)
	if err != nil {
		return nil, fmt.Errorf("mexc bookTicker %s: bid: %w", symbol, err)
	}
	ask, err := parseDecimal(bt.AskPrice)
	if err != nil {
		return nil, fmt.Errorf("mexc bookTicker %s: ask: %w", symbol, err)
	}

	p := &domain.TokenPrice{
		Symbol:    strings.ToUpper(tok.Symbol),
		Venue:     domain.VenueMEXC,
		Bid:       bid,
		Ask:       ask,
		FetchedAt: time.Now().UTC(),
	}
	p.Price = p.Mid()
	return p, nil
}

type mexcTickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// LastPrice returns the last traded price for a pair symbol.
func (c *MEXC) LastPrice(ctx context.Context, symbol string) (float64, error) {
	body, err := c.get(ctx, "/api/v3/ticker/price?symbol="+url.QueryEscape(symbol))
	if err != nil {
		return 0, fmt.Errorf("mexc ticker price %s: %w", symbol, err)
	}
	var tp mexcTickerPrice
	if err := json.Unmarshal(body, &tp); err != nil {
		return 0, fmt.Errorf("mexc ticker price %s: decode: %w", symbol, err)
	}
	v, err := strconv.ParseFloat(tp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("mexc ticker price %s: %w", symbol, err)
	}
	return v, nil
}

type mexcExchangeInfo struct {
	Symbols []mexcSymbol `json:"symbols"`
}

type mexcSymbol struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
	IsSpot     bool   `json:"isSpotTradingAllowed"`
}

// TradableSymbols returns the base assets of USDT-quoted pairs that
// are currently enabled for spot trading, keyed by base asset.
func (c *MEXC) TradableSymbols(ctx context.Context) (map[string]string, error) {
	body, err := c.get(ctx, "/api/v3/exchangeInfo")
	if err != nil {
		return nil, fmt.Errorf("mexc exchangeInfo: %w", err)
	}

	var info mexcExchangeInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("mexc exchangeInfo: decode: %w", err)
	}

	// MEXC reports status "1" (historically "ENABLED") for live pairs.
	out := make(map[string]string)
	for _, s := range info.Symbols {
		if s.QuoteAsset != "USDT" {
			continue
		}
		if s.Status != "1" && s.Status != "ENABLED" {
			continue
		}
		out[strings.ToUpper(s.BaseAsset)] = s.Symbol
	}
	return out, nil
}

// parseDecimal converts a vendor decimal string into a nullable price.
// Empty strings mean the venue has no quote right now.
func parseDecimal(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return &v, nil
}
