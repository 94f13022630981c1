package stats

import (
	"math"
	"testing"
	"time"

	"sharkspread/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func point(pct *float64, at time.Time) *domain.SpreadPoint {
	return &domain.SpreadPoint{
		Symbol:    "SOL",
		DEX:       domain.VenueJupiter,
		CEXPrice:  100,
		DEXPrice:  100,
		SpreadPct: pct,
		SampledAt: at,
	}
}

func TestCompute_Empty(t *testing.T) {
	agg := Compute("SOL", nil)
	if agg.Symbol != "SOL" || agg.Count != 0 || agg.WithSpread != 0 {
		t.Errorf("agg = %+v", agg)
	}
}

func TestCompute_Basic(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	points := []*domain.SpreadPoint{
		point(ptr(-1), base.Add(2*time.Minute)),
		point(ptr(1), base),
		point(ptr(3), base.Add(time.Minute)),
		point(nil, base.Add(3*time.Minute)), // one-sided sample
	}

	agg := Compute("SOL", points)
	if agg.Count != 4 || agg.WithSpread != 3 {
		t.Fatalf("count = %d/%d, want 4/3", agg.Count, agg.WithSpread)
	}
	if agg.SpreadMin != -1 || agg.SpreadMax != 3 {
		t.Errorf("min/max = %v/%v", agg.SpreadMin, agg.SpreadMax)
	}
	if agg.SpreadMean != 1 || agg.SpreadP50 != 1 {
		t.Errorf("mean/p50 = %v/%v", agg.SpreadMean, agg.SpreadP50)
	}
	if math.Abs(agg.Stddev-2) > 1e-9 {
		t.Errorf("stddev = %v, want 2", agg.Stddev)
	}
	if math.Abs(agg.DEXPremiumShare-2.0/3.0) > 1e-9 {
		t.Errorf("premium share = %v, want 2/3", agg.DEXPremiumShare)
	}
	if !agg.FirstSample.Equal(base) || !agg.LastSample.Equal(base.Add(3*time.Minute)) {
		t.Errorf("window = %v .. %v", agg.FirstSample, agg.LastSample)
	}
}

func TestCompute_AllOneSided(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	agg := Compute("SOL", []*domain.SpreadPoint{point(nil, base)})
	if agg.Count != 1 || agg.WithSpread != 0 {
		t.Fatalf("count = %d/%d", agg.Count, agg.WithSpread)
	}
	if agg.SpreadMean != 0 || agg.Stddev != 0 {
		t.Errorf("spread fields must stay zero: %+v", agg)
	}
}

func TestComputePercentile_Interpolates(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	if got := computePercentile(sorted, 0.5); got != 2.5 {
		t.Errorf("p50 = %v, want 2.5", got)
	}
	if got := computePercentile(sorted, 0); got != 1 {
		t.Errorf("p0 = %v, want 1", got)
	}
	if got := computePercentile(sorted, 1); got != 4 {
		t.Errorf("p100 = %v, want 4", got)
	}
}
