package ledger

import (
	"testing"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestValuerFor_Priced(t *testing.T) {
	asset := &models.Asset{ID: 1, Ticker: "VOO", AssetType: models.AssetETF}

	v, err := ValuerFor(asset, floatPtr(130), nil)
	require.NoError(t, err)

	price, amount, err := v.Valuate(day("2025-01-01"), 6)
	require.NoError(t, err)
	require.Equal(t, 130.0, price)
	require.Equal(t, 780.0, amount)

	// The single current price applies to every date in range.
	price2, _, err := v.Valuate(day("2024-06-01"), 6)
	require.NoError(t, err)
	require.Equal(t, price, price2)
}

func TestValuerFor_PricedMissingPrice(t *testing.T) {
	asset := &models.Asset{ID: 2, Ticker: "QQQ", AssetType: models.AssetStock}

	_, err := ValuerFor(asset, nil, nil)
	require.ErrorIs(t, err, ErrDataUnavailable)
}

func TestValuerFor_Cash(t *testing.T) {
	asset := &models.Asset{ID: 3, Ticker: "CASH_KRW", AssetType: models.AssetCash}

	v, err := ValuerFor(asset, nil, nil)
	require.NoError(t, err)

	price, amount, err := v.Valuate(day("2025-01-01"), 5000)
	require.NoError(t, err)
	require.Equal(t, 1.0, price)
	require.Equal(t, 5000.0, amount)
}

func TestValuerFor_ManualCarriesForward(t *testing.T) {
	asset := &models.Asset{ID: 4, Ticker: "FUND", AssetType: models.AssetManual}
	manual := []models.ManualValuation{
		{Date: day("2025-01-05"), AssetID: 4, AccountID: "acc-1", ValuationAmount: 1200},
		{Date: day("2025-01-01"), AssetID: 4, AccountID: "acc-1", ValuationAmount: 1000},
	}

	v, err := ValuerFor(asset, nil, manual)
	require.NoError(t, err)

	// Exact date.
	_, amount, err := v.Valuate(day("2025-01-01"), 10)
	require.NoError(t, err)
	require.Equal(t, 1000.0, amount)

	// Gap date carries the latest supplied amount forward.
	_, amount, err = v.Valuate(day("2025-01-03"), 10)
	require.NoError(t, err)
	require.Equal(t, 1000.0, amount)

	price, amount, err := v.Valuate(day("2025-01-07"), 10)
	require.NoError(t, err)
	require.Equal(t, 1200.0, amount)
	require.Equal(t, 120.0, price)

	// Before the first supplied amount there is nothing to value.
	_, _, err = v.Valuate(day("2024-12-31"), 10)
	require.ErrorIs(t, err, ErrDataUnavailable)
}
