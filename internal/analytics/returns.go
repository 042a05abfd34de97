package analytics

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ReturnSeries chain-links sub-period returns into a time-weighted return
// series. External cash flows on a date are backed out of that period's
// return, so deposits and withdrawals do not masquerade as performance.
//
// Dates with zero total valuation are excluded from the output entirely
// rather than reported as 0% -- a flat segment there would be misleading.
// Negative totals are excluded too and flagged as anomalies.
func ReturnSeries(rows []PortfolioSnapshot) ([]ReturnPoint, []Anomaly) {
	sorted := make([]PortfolioSnapshot, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var anomalies []Anomaly
	included := sorted[:0]
	for _, row := range sorted {
		if row.TotalValuation.IsNegative() {
			anomalies = append(anomalies, Anomaly{
				Date:   row.Date,
				Reason: "total valuation is negative",
			})
			continue
		}
		if row.TotalValuation.IsZero() {
			continue
		}
		included = append(included, row)
	}

	if len(included) == 0 {
		return nil, anomalies
	}

	points := make([]ReturnPoint, 0, len(included))
	cumulative := decimal.Zero
	for i, row := range included {
		period := decimal.Zero
		if i > 0 {
			prev := included[i-1].TotalValuation
			if prev.IsPositive() {
				period = row.TotalValuation.Sub(row.NetFlow).Sub(prev).Div(prev)
			}
		}
		cumulative = one.Add(cumulative).Mul(one.Add(period)).Sub(one)
		points = append(points, ReturnPoint{
			Date:             row.Date,
			PeriodReturn:     period,
			CumulativeReturn: cumulative,
		})
	}

	return points, anomalies
}
