package controller

import (
	"net/http"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/analytics"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/ledger"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/repo"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PortfolioReturns serves the time-weighted return series of an account, or
// of all accounts combined when account_id is omitted. External deposits and
// withdrawals are stripped out per date, so money moving in or out never
// reads as performance.
func (c *Controller) PortfolioReturns(ctx *gin.Context) {
	filter, ok := snapshotFilterFromQuery(ctx)
	if !ok {
		return
	}

	rows, err := c.repo.PortfolioSeries(filter)
	if err != nil {
		internalError(ctx, "failed to fetch portfolio series")
		return
	}
	if len(rows) == 0 {
		ctx.JSON(http.StatusOK, gin.H{"returns": []analytics.ReturnPoint{}})
		return
	}

	snapshots, err := c.portfolioSnapshots(filter, rows)
	if err != nil {
		internalError(ctx, "failed to fetch cash flows")
		return
	}

	points, anomalies := analytics.ReturnSeries(snapshots)
	ctx.JSON(http.StatusOK, gin.H{
		"returns":   points,
		"anomalies": anomalies,
	})
}

// PortfolioWeights serves per-asset weights. With ?latest=true only the most
// recent snapshot date is returned.
func (c *Controller) PortfolioWeights(ctx *gin.Context) {
	filter, ok := snapshotFilterFromQuery(ctx)
	if !ok {
		return
	}

	rows, err := c.repo.AssetSeries(filter)
	if err != nil {
		internalError(ctx, "failed to fetch asset series")
		return
	}

	assetRows := toAssetSnapshots(rows)
	var points []analytics.WeightPoint
	var anomalies []analytics.Anomaly
	if ctx.Query("latest") == "true" {
		points, anomalies = analytics.LatestWeights(assetRows)
	} else {
		points, anomalies = analytics.WeightSeries(assetRows)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"weights":   points,
		"anomalies": anomalies,
	})
}

// PortfolioContributions decomposes the window's cumulative return into
// per-asset contributions.
func (c *Controller) PortfolioContributions(ctx *gin.Context) {
	filter, ok := snapshotFilterFromQuery(ctx)
	if !ok {
		return
	}

	portfolioRows, err := c.repo.PortfolioSeries(filter)
	if err != nil {
		internalError(ctx, "failed to fetch portfolio series")
		return
	}
	assetRows, err := c.repo.AssetSeries(filter)
	if err != nil {
		internalError(ctx, "failed to fetch asset series")
		return
	}

	snapshots, err := c.portfolioSnapshots(filter, portfolioRows)
	if err != nil {
		internalError(ctx, "failed to fetch cash flows")
		return
	}

	result := analytics.Contributions(toAssetSnapshots(assetRows), snapshots)
	ctx.JSON(http.StatusOK, result)
}

// portfolioSnapshots joins the per-date valuation totals with the net
// external cash flow observed on each date.
func (c *Controller) portfolioSnapshots(filter repo.SnapshotFilter, rows []repo.PortfolioRow) ([]analytics.PortfolioSnapshot, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	accountID := filter.AccountID
	if accountID == "" {
		accountID = models.AllAccounts
	}
	start := ledger.Day(rows[0].Date)
	end := ledger.Day(rows[len(rows)-1].Date).Add(24*time.Hour - time.Second)

	flows, err := c.repo.FlowsByDate(accountID, start, end)
	if err != nil {
		return nil, err
	}

	snapshots := make([]analytics.PortfolioSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, analytics.PortfolioSnapshot{
			Date:           row.Date,
			TotalValuation: decimal.NewFromFloat(row.TotalValuation),
			TotalPurchase:  decimal.NewFromFloat(row.TotalPurchase),
			NetFlow:        decimal.NewFromFloat(flows[ledger.Day(row.Date)]),
		})
	}
	return snapshots, nil
}

func toAssetSnapshots(rows []repo.AssetRow) []analytics.AssetSnapshot {
	out := make([]analytics.AssetSnapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.AssetSnapshot{
			Date:      row.Date,
			AssetID:   row.AssetID,
			Valuation: decimal.NewFromFloat(row.ValuationAmount),
			Purchase:  decimal.NewFromFloat(row.PurchaseAmount),
		})
	}
	return out
}
