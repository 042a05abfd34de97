package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func assetLine(date string, assetID int64, valuation, purchase float64) AssetSnapshot {
	return AssetSnapshot{
		Date:      day(date),
		AssetID:   assetID,
		Valuation: dec(valuation),
		Purchase:  dec(purchase),
	}
}

func contributionSum(result ContributionResult) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range result.Contributions {
		sum = sum.Add(c.Contribution)
	}
	return sum
}

func TestContributions_TwoAssetsOffsetting(t *testing.T) {
	// Asset 1 gains 10%, asset 2 loses 10%, equal weights: portfolio is flat
	// and the contributions cancel exactly.
	assets := []AssetSnapshot{
		assetLine("2025-01-01", 1, 100, 100),
		assetLine("2025-01-01", 2, 100, 100),
		assetLine("2025-01-02", 1, 110, 100),
		assetLine("2025-01-02", 2, 90, 100),
	}
	portfolio := []PortfolioSnapshot{
		snap("2025-01-01", 200, 0),
		snap("2025-01-02", 200, 0),
	}

	result := Contributions(assets, portfolio)
	require.Len(t, result.Contributions, 2)
	requireDecEqual(t, 0, result.PortfolioReturn)
	requireDecEqual(t, 0.05, result.Contributions[0].Raw)
	requireDecEqual(t, -0.05, result.Contributions[1].Raw)
	requireDecEqual(t, 0, result.Residual)
}

func TestContributions_SumMatchesPortfolioTWR(t *testing.T) {
	// Three dates, both assets compounding at +/-10% per period.
	assets := []AssetSnapshot{
		assetLine("2025-01-01", 1, 100, 100),
		assetLine("2025-01-01", 2, 100, 100),
		assetLine("2025-01-02", 1, 110, 100),
		assetLine("2025-01-02", 2, 90, 100),
		assetLine("2025-01-03", 1, 121, 100),
		assetLine("2025-01-03", 2, 81, 100),
	}
	portfolio := []PortfolioSnapshot{
		snap("2025-01-01", 200, 0),
		snap("2025-01-02", 200, 0),
		snap("2025-01-03", 202, 0),
	}

	result := Contributions(assets, portfolio)
	requireDecEqual(t, 0.01, result.PortfolioReturn)

	sum, _ := contributionSum(result).Float64()
	cum, _ := result.PortfolioReturn.Float64()
	require.InDelta(t, cum, sum, 1e-9)

	residual, _ := result.Residual.Abs().Float64()
	require.Less(t, residual, 1e-6)
	require.Empty(t, result.Anomalies)
}

func TestContributions_PurchaseDeltaIsNotReturn(t *testing.T) {
	// Asset 1 doubles its position mid-window; the added cost basis must not
	// count as performance.
	assets := []AssetSnapshot{
		assetLine("2025-01-01", 1, 100, 100),
		assetLine("2025-01-02", 1, 210, 200),
	}
	portfolio := []PortfolioSnapshot{
		snap("2025-01-01", 100, 0),
		snap("2025-01-02", 210, 100),
	}

	result := Contributions(assets, portfolio)
	require.Len(t, result.Contributions, 1)
	// (210 - 100 flow - 100) / 100 = 10%, at weight 1.
	requireDecEqual(t, 0.10, result.Contributions[0].Contribution)
	requireDecEqual(t, 0.10, result.PortfolioReturn)
}

func TestContributions_EmptyPortfolio(t *testing.T) {
	result := Contributions(nil, nil)
	require.Empty(t, result.Contributions)
	require.True(t, result.PortfolioReturn.IsZero())
}

func TestContributions_ResidualSurfaced(t *testing.T) {
	// An asset appearing mid-window with immediate gains is invisible to
	// begin-of-period weights; the gap shows up as residual, not silence.
	assets := []AssetSnapshot{
		assetLine("2025-01-01", 1, 100, 100),
		assetLine("2025-01-02", 1, 100, 100),
		assetLine("2025-01-02", 2, 60, 50),
	}
	portfolio := []PortfolioSnapshot{
		snap("2025-01-01", 100, 0),
		snap("2025-01-02", 160, 50),
	}

	result := Contributions(assets, portfolio)
	// Portfolio gained (160-50-100)/100 = 10% but asset 1 was flat and
	// asset 2 had no begin-of-period weight: raw sum is 0.
	requireDecEqual(t, 0.10, result.PortfolioReturn)
	requireDecEqual(t, 0.10, result.Residual)
	require.NotEmpty(t, result.Anomalies)
}
