package adapter

import (
	"time"

	"sharkspread/internal/domain"
)

// Wire shapes shared by the gateway's REST responses and the backend
// transport that consumes them.

// TokenDTO is the wire form of a tracked token.
type TokenDTO struct {
	Symbol      string `json:"symbol"`
	MEXCSymbol  string `json:"mexcSymbol,omitempty"`
	Chain       string `json:"chain"`
	Mint        string `json:"mint,omitempty"`
	Address     string `json:"address,omitempty"`
	PairAddress string `json:"pairAddress,omitempty"`
	Decimals    int    `json:"decimals,omitempty"`
}

// PriceDTO is the wire form of one venue quote. A null price means the
// source had no quote.
type PriceDTO struct {
	Symbol    string   `json:"symbol"`
	Venue     string   `json:"venue"`
	Price     *float64 `json:"price"`
	Bid       *float64 `json:"bid,omitempty"`
	Ask       *float64 `json:"ask,omitempty"`
	Liquidity *float64 `json:"liquidity,omitempty"`
	FetchedAt int64    `json:"fetchedAt"` // unix ms
}

// SnapshotDTO is the wire form of a per-token spread snapshot.
type SnapshotDTO struct {
	Symbol  string              `json:"symbol"`
	Prices  map[string]float64  `json:"prices"`
	Spreads map[string]*float64 `json:"spreads"`
	States  map[string]string   `json:"states,omitempty"`
	TakenAt int64               `json:"takenAt"` // unix ms
}

// PointDTO is the wire form of one stored spread sample.
type PointDTO struct {
	Symbol    string   `json:"symbol"`
	DEX       string   `json:"dex"`
	CEXPrice  float64  `json:"cexPrice"`
	DEXPrice  float64  `json:"dexPrice"`
	SpreadPct *float64 `json:"spreadPct"`
	SampledAt int64    `json:"sampledAt"` // unix ms
}

// TokenToDTO converts a domain token to its wire form.
func TokenToDTO(t domain.Token) TokenDTO {
	return TokenDTO{
		Symbol:      t.Symbol,
		MEXCSymbol:  t.MEXCSymbol,
		Chain:       t.Chain.String(),
		Mint:        t.Mint,
		Address:     t.Address,
		PairAddress: t.PairAddress,
		Decimals:    t.Decimals,
	}
}

// TokenFromDTO converts a wire token back to the domain form.
func TokenFromDTO(d TokenDTO) domain.Token {
	return domain.Token{
		Symbol:      d.Symbol,
		MEXCSymbol:  d.MEXCSymbol,
		Chain:       domain.Chain(d.Chain),
		Mint:        d.Mint,
		Address:     d.Address,
		PairAddress: d.PairAddress,
		Decimals:    d.Decimals,
		Enabled:     true,
	}
}

// PriceToDTO converts a venue quote to its wire form. A zero price is
// encoded as null: zero means "no quote" everywhere in this system.
func PriceToDTO(p *domain.TokenPrice) PriceDTO {
	d := PriceDTO{
		Symbol:    p.Symbol,
		Venue:     p.Venue.String(),
		Bid:       p.Bid,
		Ask:       p.Ask,
		Liquidity: p.Liquidity,
		FetchedAt: p.FetchedAt.UnixMilli(),
	}
	if p.Price != 0 {
		v := p.Price
		d.Price = &v
	}
	return d
}

// PriceFromDTO converts a wire quote back to the domain form.
func PriceFromDTO(d PriceDTO) *domain.TokenPrice {
	p := &domain.TokenPrice{
		Symbol:    d.Symbol,
		Venue:     domain.Venue(d.Venue),
		Bid:       d.Bid,
		Ask:       d.Ask,
		Liquidity: d.Liquidity,
		FetchedAt: time.UnixMilli(d.FetchedAt).UTC(),
	}
	if d.Price != nil {
		p.Price = *d.Price
	}
	return p
}

// SnapshotToDTO converts a snapshot to its wire form.
func SnapshotToDTO(s *domain.SpreadSnapshot) SnapshotDTO {
	d := SnapshotDTO{
		Symbol:  s.Symbol,
		Prices:  make(map[string]float64, len(s.Prices)),
		Spreads: make(map[string]*float64, len(s.Spreads)),
		TakenAt: s.TakenAt.UnixMilli(),
	}
	for v, p := range s.Prices {
		d.Prices[v.String()] = p
	}
	for v, p := range s.Spreads {
		d.Spreads[v.String()] = p
	}
	if len(s.States) > 0 {
		d.States = make(map[string]string, len(s.States))
		for v, st := range s.States {
			d.States[v.String()] = st.String()
		}
	}
	return d
}

// SnapshotFromDTO converts a wire snapshot back to the domain form.
func SnapshotFromDTO(d SnapshotDTO) *domain.SpreadSnapshot {
	s := &domain.SpreadSnapshot{
		Symbol:  d.Symbol,
		Prices:  make(map[domain.Venue]float64, len(d.Prices)),
		Spreads: make(map[domain.Venue]*float64, len(d.Spreads)),
		TakenAt: time.UnixMilli(d.TakenAt).UTC(),
	}
	for v, p := range d.Prices {
		s.Prices[domain.Venue(v)] = p
	}
	for v, p := range d.Spreads {
		s.Spreads[domain.Venue(v)] = p
	}
	if len(d.States) > 0 {
		s.States = make(map[domain.Venue]domain.ConnState, len(d.States))
		for v, st := range d.States {
			s.States[domain.Venue(v)] = domain.ConnState(st)
		}
	}
	return s
}

// PointToDTO converts a stored sample to its wire form.
func PointToDTO(p *domain.SpreadPoint) PointDTO {
	return PointDTO{
		Symbol:    p.Symbol,
		DEX:       p.DEX.String(),
		CEXPrice:  p.CEXPrice,
		DEXPrice:  p.DEXPrice,
		SpreadPct: p.SpreadPct,
		SampledAt: p.SampledAt.UnixMilli(),
	}
}

// PointFromDTO converts a wire sample back to the domain form.
func PointFromDTO(d PointDTO) *domain.SpreadPoint {
	return &domain.SpreadPoint{
		Symbol:    d.Symbol,
		DEX:       domain.Venue(d.DEX),
		CEXPrice:  d.CEXPrice,
		DEXPrice:  d.DEXPrice,
		SpreadPct: d.SpreadPct,
		SampledAt: time.UnixMilli(d.SampledAt).UTC(),
	}
}
