// Package spread holds the pure math and formatting used everywhere a
// spread is computed or rendered. Functions here take nullable prices
// as *float64 and never panic on bad input.
package spread

import (
	"fmt"
	"math"
	"time"
)

// Percent computes the percent spread from price a to price b,
// (b - a) / a * 100. The result is nil when either input is nil or
// non-finite, or when a is zero (the formula has no finite value).
func Percent(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	av, bv := *a, *b
	if !isFinite(av) || !isFinite(bv) || av == 0 {
		return nil
	}
	v := (bv - av) / av * 100
	if !isFinite(v) {
		return nil
	}
	return &v
}

// PercentOf is Percent over plain floats, for callers that already
// checked presence. A zero base still yields nil.
func PercentOf(a, b float64) *float64 {
	return Percent(&a, &b)
}

// Abs returns the magnitude of a nullable spread, nil in, nil out.
func Abs(pct *float64) *float64 {
	if pct == nil {
		return nil
	}
	v := math.Abs(*pct)
	return &v
}

// FormatSpread renders a spread for display: sign always present,
// exactly two decimals, percent suffix. A nil spread renders as an
// em dash placeholder.
func FormatSpread(pct *float64) string {
	if pct == nil {
		return "—"
	}
	v := *pct
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

// FormatPrice renders a price with precision adapted to magnitude,
// so sub-cent tokens keep their significant digits.
func FormatPrice(p float64) string {
	abs := math.Abs(p)
	switch {
	case abs >= 1:
		return fmt.Sprintf("%.2f", p)
	case abs >= 0.01:
		return fmt.Sprintf("%.4f", p)
	case abs >= 0.0001:
		return fmt.Sprintf("%.6f", p)
	case abs == 0:
		return "0.00"
	default:
		return fmt.Sprintf("%.8f", p)
	}
}

// FormatTime renders a sample timestamp as a chart axis label.
func FormatTime(t time.Time) string {
	return t.Format("15:04:05")
}

// Fresh reports whether a sample taken at ts is within tolerance of
// now. Used by history pruning and by tests asserting recency.
func Fresh(ts, now time.Time, tolerance time.Duration) bool {
	d := now.Sub(ts)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
