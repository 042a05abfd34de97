// Package analytics turns ordered daily snapshot aggregates into
// time-weighted return, weight and contribution series. It is a pure
// computation layer: no storage access, identical input gives identical
// output.
package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Anomaly flags an upstream data problem (negative or zero totals, residuals
// over tolerance). Anomalies travel alongside best-effort output; they are
// warnings, not failures.
type Anomaly struct {
	Date   time.Time `json:"date,omitempty"`
	Reason string    `json:"reason"`
}

func (a Anomaly) String() string {
	if a.Date.IsZero() {
		return a.Reason
	}
	return fmt.Sprintf("%s: %s", a.Date.Format("2006-01-02"), a.Reason)
}

// PortfolioSnapshot is one date's valuation summed across assets and
// accounts, plus the net external cash flow observed on that date.
type PortfolioSnapshot struct {
	Date           time.Time       `json:"date"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
	TotalPurchase  decimal.Decimal `json:"total_purchase"`
	NetFlow        decimal.Decimal `json:"net_flow"`
}

// AssetSnapshot is one (date, asset) valuation line, already summed across
// accounts when an all-accounts view is requested.
type AssetSnapshot struct {
	Date      time.Time       `json:"date"`
	AssetID   int64           `json:"asset_id"`
	Valuation decimal.Decimal `json:"valuation_amount"`
	Purchase  decimal.Decimal `json:"purchase_amount"`
}

// ReturnPoint is the single-period return for the interval ending at Date and
// the chain-linked cumulative return up to it.
type ReturnPoint struct {
	Date             time.Time       `json:"date"`
	PeriodReturn     decimal.Decimal `json:"period_return"`
	CumulativeReturn decimal.Decimal `json:"cumulative_return"`
}

var one = decimal.NewFromInt(1)
