package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ResidualTolerance bounds how far the first-order contribution sum may
// drift from the portfolio's own cumulative TWR before it is flagged.
var ResidualTolerance = decimal.NewFromFloat(1e-6)

// AssetContribution is one asset's share of the portfolio's cumulative
// return over the window. Contribution is scaled so that the sum across
// assets equals the portfolio TWR; Raw is the unscaled first-order value.
type AssetContribution struct {
	AssetID      int64           `json:"asset_id"`
	Contribution decimal.Decimal `json:"contribution"`
	Raw          decimal.Decimal `json:"raw_contribution"`
}

// ContributionResult carries the decomposition plus the residual the
// first-order approximation left over. The residual is surfaced, never
// hidden: callers and tests can bound it.
type ContributionResult struct {
	Contributions   []AssetContribution `json:"contributions"`
	PortfolioReturn decimal.Decimal     `json:"portfolio_return"`
	Residual        decimal.Decimal     `json:"residual"`
	Anomalies       []Anomaly           `json:"anomalies,omitempty"`
}

// Contributions decomposes the portfolio's cumulative TWR into per-asset
// contributions: for each sub-period, begin-of-period weight times the
// asset's own flow-adjusted period return, summed per asset. The per-asset
// flow is the cost-basis delta between consecutive dates, so buys and sells
// inside the portfolio do not read as asset performance. The sum is additive
// only to first order; the leftover is scaled away proportionally and
// reported as Residual.
func Contributions(assetRows []AssetSnapshot, portfolio []PortfolioSnapshot) ContributionResult {
	points, anomalies := ReturnSeries(portfolio)
	result := ContributionResult{Anomalies: anomalies}
	if len(points) == 0 {
		return result
	}
	result.PortfolioReturn = points[len(points)-1].CumulativeReturn

	// Index asset lines by date, restricted to the dates the portfolio
	// series actually includes.
	type line struct {
		valuation decimal.Decimal
		purchase  decimal.Decimal
		present   bool
	}
	byAsset := make(map[int64]map[time.Time]line)
	totals := make(map[time.Time]decimal.Decimal)
	for _, p := range points {
		totals[p.Date] = decimal.Zero
	}
	for _, r := range assetRows {
		if _, ok := totals[r.Date]; !ok {
			continue
		}
		byDate, ok := byAsset[r.AssetID]
		if !ok {
			byDate = make(map[time.Time]line)
			byAsset[r.AssetID] = byDate
		}
		prev := byDate[r.Date]
		byDate[r.Date] = line{
			valuation: prev.valuation.Add(r.Valuation),
			purchase:  prev.purchase.Add(r.Purchase),
			present:   true,
		}
		totals[r.Date] = totals[r.Date].Add(r.Valuation)
	}

	ids := make([]int64, 0, len(byAsset))
	for id := range byAsset {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	raw := make(map[int64]decimal.Decimal, len(ids))
	rawSum := decimal.Zero
	for i := 1; i < len(points); i++ {
		prevDate, date := points[i-1].Date, points[i].Date
		totalPrev := totals[prevDate]
		if !totalPrev.IsPositive() {
			continue
		}
		for _, id := range ids {
			prev := byAsset[id][prevDate]
			cur := byAsset[id][date]
			if !prev.present || !prev.valuation.IsPositive() {
				continue
			}
			flow := cur.purchase.Sub(prev.purchase)
			periodReturn := cur.valuation.Sub(flow).Sub(prev.valuation).Div(prev.valuation)
			weight := prev.valuation.Div(totalPrev)
			c := weight.Mul(periodReturn)
			raw[id] = raw[id].Add(c)
			rawSum = rawSum.Add(c)
		}
	}

	result.Residual = result.PortfolioReturn.Sub(rawSum)
	if result.Residual.Abs().GreaterThan(ResidualTolerance) {
		result.Anomalies = append(result.Anomalies, Anomaly{
			Reason: "contribution residual exceeds tolerance: " + result.Residual.String(),
		})
	}

	// Scale so the decomposition sums exactly to the portfolio TWR. When the
	// raw sum is zero there is nothing to scale against; the residual alone
	// tells the story.
	scale := one
	if !rawSum.IsZero() {
		scale = result.PortfolioReturn.Div(rawSum)
	}
	for _, id := range ids {
		result.Contributions = append(result.Contributions, AssetContribution{
			AssetID:      id,
			Raw:          raw[id],
			Contribution: raw[id].Mul(scale),
		})
	}

	return result
}
