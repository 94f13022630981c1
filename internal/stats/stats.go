// Package stats summarizes stored spread samples over a read window.
package stats

import (
	"math"
	"sort"
	"time"

	"sharkspread/internal/domain"
)

// WindowStats is the aggregate over one symbol's samples in a window.
// Spread fields are computed only over samples where both venues had a
// quote; Count still includes one-sided samples.
type WindowStats struct {
	Symbol     string    `json:"symbol"`
	Count      int       `json:"count"`
	WithSpread int       `json:"withSpread"`
	SpreadMin  float64   `json:"spreadMin"`
	SpreadMax  float64   `json:"spreadMax"`
	SpreadMean float64   `json:"spreadMean"`
	SpreadP50  float64   `json:"spreadP50"`
	Stddev     float64   `json:"spreadStddev"`
	// DEXPremiumShare is the fraction of two-sided samples where the
	// DEX price was above the CEX price.
	DEXPremiumShare float64   `json:"dexPremiumShare"`
	FirstSample     time.Time `json:"firstSample"`
	LastSample      time.Time `json:"lastSample"`
}

// Compute aggregates a symbol's samples. Points may arrive in any
// order; they are sorted by sample time before the order-dependent
// fields are taken. An empty input yields a zero aggregate.
func Compute(symbol string, points []*domain.SpreadPoint) *WindowStats {
	n := len(points)
	if n == 0 {
		return &WindowStats{Symbol: symbol}
	}

	sorted := make([]*domain.SpreadPoint, n)
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SampledAt.Before(sorted[j].SampledAt)
	})

	spreads := make([]float64, 0, n)
	premium := 0
	for _, p := range sorted {
		if p.SpreadPct == nil {
			continue
		}
		spreads = append(spreads, *p.SpreadPct)
		if *p.SpreadPct > 0 {
			premium++
		}
	}

	agg := &WindowStats{
		Symbol:      symbol,
		Count:       n,
		WithSpread:  len(spreads),
		FirstSample: sorted[0].SampledAt,
		LastSample:  sorted[n-1].SampledAt,
	}
	if len(spreads) == 0 {
		return agg
	}

	sortedSpreads := make([]float64, len(spreads))
	copy(sortedSpreads, spreads)
	sort.Float64s(sortedSpreads)

	mean := computeMean(spreads)
	agg.SpreadMin = sortedSpreads[0]
	agg.SpreadMax = sortedSpreads[len(sortedSpreads)-1]
	agg.SpreadMean = mean
	agg.SpreadP50 = computePercentile(sortedSpreads, 0.50)
	agg.Stddev = computeStddev(spreads, mean)
	agg.DEXPremiumShare = float64(premium) / float64(len(spreads))
	return agg
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}

// computePercentile uses linear interpolation between closest ranks.
// Input must be sorted ascending.
func computePercentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := q * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
