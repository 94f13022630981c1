package domain

import (
	"fmt"
	"time"
)

// Timeframe is a history window selector.
type Timeframe string

const (
	Timeframe1H  Timeframe = "1h"
	Timeframe24H Timeframe = "24h"
	Timeframe7D  Timeframe = "7d"
)

// Timeframes lists all selectable windows, shortest first.
func Timeframes() []Timeframe {
	return []Timeframe{Timeframe1H, Timeframe24H, Timeframe7D}
}

// IsValid checks if the timeframe is a valid value.
func (t Timeframe) IsValid() bool {
	switch t {
	case Timeframe1H, Timeframe24H, Timeframe7D:
		return true
	}
	return false
}

// Duration returns the wall-clock length of the window.
func (t Timeframe) Duration() (time.Duration, error) {
	switch t {
	case Timeframe1H:
		return time.Hour, nil
	case Timeframe24H:
		return 24 * time.Hour, nil
	case Timeframe7D:
		return 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown timeframe: %s", t)
	}
}

// ParseTimeframe converts a string to a Timeframe, failing on unknown values.
func ParseTimeframe(s string) (Timeframe, error) {
	t := Timeframe(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown timeframe: %q", s)
	}
	return t, nil
}

// SpreadPoint is one sampled spread between the CEX and a DEX.
// Corresponds to the spread_history table.
type SpreadPoint struct {
	Symbol     string    // token display symbol
	DEX        Venue     // DEX side of the pair (CEX side is always MEXC)
	CEXPrice   float64   // MEXC quote at sample time
	DEXPrice   float64   // DEX quote at sample time
	SpreadPct  *float64  // percent spread, nil when undefined
	SampledAt  time.Time // when both quotes were taken
	CEXLatency *int64    // CEX fetch latency in ms, when measured
	DEXLatency *int64    // DEX fetch latency in ms, when measured
}

// SpreadSnapshot is the full per-token view served to clients:
// every venue's latest quote plus the derived spreads.
type SpreadSnapshot struct {
	Symbol    string              // token display symbol
	Prices    map[Venue]float64   // latest quote per venue that answered
	Spreads   map[Venue]*float64  // CEX->DEX spread per DEX, nil when undefined
	Liquidity map[Venue]*float64  // pool liquidity per DEX, when known
	States    map[Venue]ConnState // per-venue connection state at snapshot time
	TakenAt   time.Time           // snapshot assembly time
}
