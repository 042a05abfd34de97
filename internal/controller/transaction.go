package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/repo"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/service"

	"github.com/gin-gonic/gin"
)

func (c *Controller) ListTransactions(ctx *gin.Context) {
	filter := repo.TransactionFilter{
		AccountID: ctx.Query("account_id"),
		TradeType: ctx.Query("type"),
	}

	if limitStr := ctx.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := ctx.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}
	if assetIDStr := ctx.Query("asset_id"); assetIDStr != "" {
		if assetID, err := strconv.ParseInt(assetIDStr, 10, 64); err == nil {
			filter.AssetID = &assetID
		}
	}
	if startDateStr := ctx.Query("start_date"); startDateStr != "" {
		if startDate, err := time.Parse("2006-01-02", startDateStr); err == nil {
			filter.StartDate = &startDate
		}
	}
	if endDateStr := ctx.Query("end_date"); endDateStr != "" {
		if endDate, err := time.Parse("2006-01-02", endDateStr); err == nil {
			endDate = endDate.Add(24*time.Hour - time.Second)
			filter.EndDate = &endDate
		}
	}

	result, err := c.repo.ListTransactions(filter)
	if err != nil {
		internalError(ctx, "failed to fetch transactions")
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (c *Controller) GetTransaction(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		badRequest(ctx, "invalid transaction id")
		return
	}

	tx, err := c.repo.GetTransactionByID(id)
	if err != nil {
		notFound(ctx, "transaction not found")
		return
	}
	ctx.JSON(http.StatusOK, tx)
}

type createTransactionRequest struct {
	AccountID       string   `json:"account_id"`
	AssetID         int64    `json:"asset_id"`
	TradeType       string   `json:"trade_type"`
	TransactionDate string   `json:"transaction_date"`
	Quantity        float64  `json:"quantity"`
	Price           float64  `json:"price"`
	Fee             float64  `json:"fee"`
	Tax             float64  `json:"tax"`
	Memo            string   `json:"memo"`
	CashAssetID     *int64   `json:"cash_asset_id,omitempty"`
}

// CreateTransaction records a ledger entry and rebuilds the affected
// snapshots before answering, so a read after the write sees consistent
// figures. The response carries the per-pair rebuild outcome.
func (c *Controller) CreateTransaction(ctx *gin.Context) {
	var req createTransactionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequestWithDetails(ctx, "invalid input", err.Error())
		return
	}

	txDate, err := time.Parse("2006-01-02", req.TransactionDate)
	if err != nil {
		badRequest(ctx, "transaction_date must be YYYY-MM-DD")
		return
	}

	trade, statuses, err := c.trades.Record(ctx.Request.Context(), service.TradeRequest{
		AccountID:       req.AccountID,
		AssetID:         req.AssetID,
		TradeType:       req.TradeType,
		TransactionDate: txDate,
		Quantity:        req.Quantity,
		Price:           req.Price,
		Fee:             req.Fee,
		Tax:             req.Tax,
		Memo:            req.Memo,
		CashAssetID:     req.CashAssetID,
	})
	if err != nil {
		domainError(ctx, err, "failed to create transaction")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"transaction": trade,
		"rebuild":     statuses,
	})
}

func (c *Controller) DeleteTransaction(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		badRequest(ctx, "invalid transaction id")
		return
	}

	if _, err := c.repo.GetTransactionByID(id); err != nil {
		notFound(ctx, "transaction not found")
		return
	}

	statuses, err := c.trades.Remove(ctx.Request.Context(), id)
	if err != nil {
		domainError(ctx, err, "failed to delete transaction")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rebuild": statuses})
}
