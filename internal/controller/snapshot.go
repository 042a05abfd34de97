package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/ledger"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/repo"

	"github.com/gin-gonic/gin"
)

func (c *Controller) ListSnapshots(ctx *gin.Context) {
	filter, ok := snapshotFilterFromQuery(ctx)
	if !ok {
		return
	}

	snapshots, err := c.repo.ListSnapshots(filter)
	if err != nil {
		internalError(ctx, "failed to fetch snapshots")
		return
	}
	ctx.JSON(http.StatusOK, snapshots)
}

type rebuildRequest struct {
	AccountID string `json:"account_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// RebuildSnapshots recomputes the account's snapshot rows for a date range.
// The response always carries the per-pair outcome; a failing pair does not
// fail the request unless the ledger source itself is inconsistent.
func (c *Controller) RebuildSnapshots(ctx *gin.Context) {
	var req rebuildRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequestWithDetails(ctx, "invalid input", err.Error())
		return
	}
	if req.AccountID == "" || req.AccountID == models.AllAccounts {
		badRequest(ctx, "account_id is required")
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		badRequest(ctx, "start_date must be YYYY-MM-DD")
		return
	}
	end := ledger.Day(time.Now())
	if req.EndDate != "" {
		if end, err = time.Parse("2006-01-02", req.EndDate); err != nil {
			badRequest(ctx, "end_date must be YYYY-MM-DD")
			return
		}
	}
	if end.Before(start) {
		badRequest(ctx, "end_date is before start_date")
		return
	}

	if _, err := c.repo.GetAccountByID(req.AccountID); err != nil {
		notFound(ctx, "account not found")
		return
	}

	statuses, err := c.rebuilds.Rebuild(ctx.Request.Context(), req.AccountID, start, end)
	if err != nil {
		domainError(ctx, err, "rebuild failed")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"pairs": statuses})
}

type manualValuationRequest struct {
	AccountID       string   `json:"account_id"`
	AssetID         int64    `json:"asset_id"`
	Date            string   `json:"date"`
	ValuationAmount float64  `json:"valuation_amount"`
	CostBasisAmount *float64 `json:"cost_basis_amount,omitempty"`
	Currency        string   `json:"currency"`
}

// UpsertManualValuation records an externally supplied valuation for a
// MANUAL asset and writes the matching snapshot row in the same transaction.
// Rebuilds leave this date alone afterwards.
func (c *Controller) UpsertManualValuation(ctx *gin.Context) {
	var req manualValuationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequestWithDetails(ctx, "invalid input", err.Error())
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		badRequest(ctx, "date must be YYYY-MM-DD")
		return
	}
	if req.ValuationAmount < 0 {
		badRequest(ctx, "valuation_amount cannot be negative")
		return
	}

	if _, err := c.repo.GetAccountByID(req.AccountID); err != nil {
		notFound(ctx, "account not found")
		return
	}
	asset, err := c.repo.GetAssetByID(req.AssetID)
	if err != nil {
		notFound(ctx, "asset not found")
		return
	}
	if !asset.IsManual() {
		badRequest(ctx, "asset does not take manual valuations")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = asset.Currency
	}
	purchase := req.ValuationAmount
	if req.CostBasisAmount != nil {
		purchase = *req.CostBasisAmount
	}

	mv := models.ManualValuation{
		Date:            ledger.Day(date),
		AssetID:         req.AssetID,
		AccountID:       req.AccountID,
		ValuationAmount: req.ValuationAmount,
		CostBasisAmount: req.CostBasisAmount,
		Currency:        currency,
	}
	snapshot := models.DailySnapshot{
		Date:            mv.Date,
		AssetID:         mv.AssetID,
		AccountID:       mv.AccountID,
		Quantity:        1,
		ValuationPrice:  req.ValuationAmount,
		PurchasePrice:   purchase,
		ValuationAmount: req.ValuationAmount,
		PurchaseAmount:  purchase,
		Currency:        currency,
	}

	if err := c.repo.UpsertManualValuation(&mv, &snapshot); err != nil {
		internalError(ctx, "failed to record manual valuation")
		return
	}
	ctx.JSON(http.StatusOK, mv)
}

func snapshotFilterFromQuery(ctx *gin.Context) (repo.SnapshotFilter, bool) {
	filter := repo.SnapshotFilter{
		AccountID: ctx.Query("account_id"),
	}

	if assetIDStr := ctx.Query("asset_id"); assetIDStr != "" {
		assetID, err := strconv.ParseInt(assetIDStr, 10, 64)
		if err != nil {
			badRequest(ctx, "invalid asset_id")
			return filter, false
		}
		filter.AssetID = &assetID
	}
	if startDateStr := ctx.Query("start_date"); startDateStr != "" {
		startDate, err := time.Parse("2006-01-02", startDateStr)
		if err != nil {
			badRequest(ctx, "start_date must be YYYY-MM-DD")
			return filter, false
		}
		filter.StartDate = &startDate
	}
	if endDateStr := ctx.Query("end_date"); endDateStr != "" {
		endDate, err := time.Parse("2006-01-02", endDateStr)
		if err != nil {
			badRequest(ctx, "end_date must be YYYY-MM-DD")
			return filter, false
		}
		filter.EndDate = &endDate
	}
	return filter, true
}
