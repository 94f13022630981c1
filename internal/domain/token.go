package domain

import "time"

// Token describes a tracked asset across all venues.
type Token struct {
	Symbol      string // display symbol, e.g. "SHARK"
	MEXCSymbol  string // CEX pair symbol, e.g. "SHARKUSDT"
	Chain       Chain  // chain the token's DEX side trades on
	Mint        string // Solana mint address (base58), empty for BSC tokens
	Address     string // BSC token contract address (hex), empty for Solana tokens
	PairAddress string // BSC pair contract address (hex), empty for Solana tokens
	Decimals    int    // on-chain decimals
	Enabled     bool   // disabled tokens are kept but not polled
}

// DEXVenue returns the DEX side of the token's spread pair.
func (t Token) DEXVenue() (Venue, error) {
	return DEXForChain(t.Chain)
}

// TokenPrice is a single quote from a single venue.
type TokenPrice struct {
	Symbol    string    // token display symbol
	Venue     Venue     // where the quote came from
	Price     float64   // quote in USDT (CEX) or USD (DEX)
	Bid       *float64  // best bid, CEX only
	Ask       *float64  // best ask, CEX only
	Liquidity *float64  // pool liquidity in USD, DEX only
	FetchedAt time.Time // when the quote was obtained
}

// Mid returns the bid/ask midpoint when both sides are present,
// falling back to the last price otherwise.
func (p TokenPrice) Mid() float64 {
	if p.Bid != nil && p.Ask != nil && *p.Bid > 0 && *p.Ask > 0 {
		return (*p.Bid + *p.Ask) / 2
	}
	return p.Price
}
