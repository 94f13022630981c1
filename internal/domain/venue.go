package domain

import "fmt"

// Venue identifies one of the three price sources.
type Venue string

const (
	// VenueMEXC is the centralized exchange (spot market).
	VenueMEXC Venue = "mexc"
	// VenueJupiter is the Solana DEX aggregator.
	VenueJupiter Venue = "jupiter"
	// VenuePancake is the BSC DEX (priced via DexScreener pairs).
	VenuePancake Venue = "pancakeswap"
)

// Venues lists all venues in display order: CEX first, then DEXes.
func Venues() []Venue {
	return []Venue{VenueMEXC, VenueJupiter, VenuePancake}
}

// String returns the string representation of Venue.
func (v Venue) String() string {
	return string(v)
}

// IsValid checks if the venue is a valid value.
func (v Venue) IsValid() bool {
	switch v {
	case VenueMEXC, VenueJupiter, VenuePancake:
		return true
	}
	return false
}

// IsDEX reports whether the venue is an on-chain source.
func (v Venue) IsDEX() bool {
	return v == VenueJupiter || v == VenuePancake
}

// Chain returns the chain a DEX venue trades on.
// The CEX has no chain; calling Chain on it is a programming error.
func (v Venue) Chain() (Chain, error) {
	switch v {
	case VenueJupiter:
		return ChainSolana, nil
	case VenuePancake:
		return ChainBSC, nil
	case VenueMEXC:
		return "", fmt.Errorf("venue %s is not chain-bound", v)
	default:
		return "", fmt.Errorf("unknown venue: %s", v)
	}
}

// DEXForChain returns the DEX venue serving a chain.
func DEXForChain(c Chain) (Venue, error) {
	switch c {
	case ChainSolana:
		return VenueJupiter, nil
	case ChainBSC:
		return VenuePancake, nil
	default:
		return "", fmt.Errorf("unknown chain: %s", c)
	}
}

// ParseVenue converts a string to a Venue, failing on unknown values.
func ParseVenue(s string) (Venue, error) {
	v := Venue(s)
	if !v.IsValid() {
		return "", fmt.Errorf("unknown venue: %q", s)
	}
	return v, nil
}

// Chain identifies one of the two supported blockchains.
type Chain string

const (
	ChainSolana Chain = "solana"
	ChainBSC    Chain = "bsc"
)

// String returns the string representation of Chain.
func (c Chain) String() string {
	return string(c)
}

// IsValid checks if the chain is a valid value.
func (c Chain) IsValid() bool {
	return c == ChainSolana || c == ChainBSC
}

// ParseChain converts a string to a Chain, failing on unknown values.
func ParseChain(s string) (Chain, error) {
	c := Chain(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown chain: %q", s)
	}
	return c, nil
}
