package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// WeightPoint is one asset's share of total valuation on one date.
type WeightPoint struct {
	Date      time.Time       `json:"date"`
	AssetID   int64           `json:"asset_id"`
	Valuation decimal.Decimal `json:"valuation_amount"`
	Weight    decimal.Decimal `json:"weight"`
}

// WeightSeries computes weight = valuation / total per (date, asset).
// Duplicate (date, asset) rows are summed first, which makes the
// all-accounts view safe. Dates whose total is zero have no defined weight;
// they are reported as anomalies and skipped.
func WeightSeries(rows []AssetSnapshot) ([]WeightPoint, []Anomaly) {
	grouped := groupByDateAsset(rows)

	dates := make([]time.Time, 0, len(grouped))
	for d := range grouped {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var points []WeightPoint
	var anomalies []Anomaly
	for _, d := range dates {
		assets := grouped[d]

		total := decimal.Zero
		for _, v := range assets {
			total = total.Add(v)
		}
		if !total.IsPositive() {
			anomalies = append(anomalies, Anomaly{
				Date:   d,
				Reason: "total valuation is not positive, weights undefined",
			})
			continue
		}

		ids := make([]int64, 0, len(assets))
		for id := range assets {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			points = append(points, WeightPoint{
				Date:      d,
				AssetID:   id,
				Valuation: assets[id],
				Weight:    assets[id].Div(total),
			})
		}
	}

	return points, anomalies
}

// LatestWeights returns the weight breakdown for the most recent date in the
// input, the view a treemap wants.
func LatestWeights(rows []AssetSnapshot) ([]WeightPoint, []Anomaly) {
	var last time.Time
	for _, r := range rows {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	if last.IsZero() {
		return nil, nil
	}

	lastRows := make([]AssetSnapshot, 0, len(rows))
	for _, r := range rows {
		if r.Date.Equal(last) {
			lastRows = append(lastRows, r)
		}
	}
	return WeightSeries(lastRows)
}

func groupByDateAsset(rows []AssetSnapshot) map[time.Time]map[int64]decimal.Decimal {
	grouped := make(map[time.Time]map[int64]decimal.Decimal)
	for _, r := range rows {
		byAsset, ok := grouped[r.Date]
		if !ok {
			byAsset = make(map[int64]decimal.Decimal)
			grouped[r.Date] = byAsset
		}
		byAsset[r.AssetID] = byAsset[r.AssetID].Add(r.Valuation)
	}
	return grouped
}
