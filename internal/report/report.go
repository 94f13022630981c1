// Package report renders stored spread history as CSV and Markdown
// for offline analysis.
package report

import (
	"fmt"
	"strings"
	"time"

	"sharkspread/internal/domain"
	"sharkspread/internal/stats"
)

// RenderCSV renders spread samples as a CSV string. The spread column
// is left empty for one-sided samples.
func RenderCSV(points []*domain.SpreadPoint) string {
	var sb strings.Builder

	sb.WriteString("symbol,dex,cex_price,dex_price,spread_pct,sampled_at\n")

	for _, p := range points {
		spreadCol := ""
		if p.SpreadPct != nil {
			spreadCol = fmt.Sprintf("%.6f", *p.SpreadPct)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%.8f,%.8f,%s,%s\n",
			p.Symbol,
			p.DEX.String(),
			p.CEXPrice,
			p.DEXPrice,
			spreadCol,
			p.SampledAt.UTC().Format(time.RFC3339),
		))
	}

	return sb.String()
}

// RenderMarkdown renders a per-symbol window summary as Markdown.
func RenderMarkdown(tf domain.Timeframe, aggs []*stats.WindowStats) string {
	var sb strings.Builder

	sb.WriteString("# Spread Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Window: %s\n\n", tf))

	sb.WriteString("## Symbols\n\n")
	if len(aggs) == 0 {
		sb.WriteString("No samples in window.\n")
		return sb.String()
	}

	sb.WriteString("| Symbol | Samples | Quoted | Min % | Max % | Mean % | Median % | Stddev | DEX Premium |\n")
	sb.WriteString("|--------|---------|--------|-------|-------|--------|----------|--------|-------------|\n")
	for _, a := range aggs {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.1f%% |\n",
			a.Symbol, a.Count, a.WithSpread,
			a.SpreadMin, a.SpreadMax, a.SpreadMean, a.SpreadP50, a.Stddev,
			a.DEXPremiumShare*100))
	}
	sb.WriteString("\n")

	return sb.String()
}
