package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var validAssetTypes = map[string]bool{
	models.AssetStock:  true,
	models.AssetETF:    true,
	models.AssetCash:   true,
	models.AssetManual: true,
}

func (c *Controller) ListAssets(ctx *gin.Context) {
	assets, err := c.repo.GetAllAssets()
	if err != nil {
		internalError(ctx, "failed to fetch assets")
		return
	}
	ctx.JSON(http.StatusOK, assets)
}

func (c *Controller) GetAsset(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		badRequest(ctx, "invalid asset id")
		return
	}

	asset, err := c.repo.GetAssetByID(id)
	if err != nil {
		notFound(ctx, "asset not found")
		return
	}
	ctx.JSON(http.StatusOK, asset)
}

func (c *Controller) CreateAsset(ctx *gin.Context) {
	var asset models.Asset
	if err := ctx.ShouldBindJSON(&asset); err != nil {
		badRequestWithDetails(ctx, "invalid input", err.Error())
		return
	}
	if asset.Ticker == "" {
		badRequest(ctx, "ticker is required")
		return
	}
	if !validAssetTypes[asset.AssetType] {
		badRequest(ctx, "unknown asset type")
		return
	}

	if err := c.repo.CreateAsset(&asset); err != nil {
		internalError(ctx, "failed to create asset")
		return
	}
	ctx.JSON(http.StatusCreated, asset)
}

func (c *Controller) DeleteAsset(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		badRequest(ctx, "invalid asset id")
		return
	}

	if err := c.repo.DeleteAsset(id); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		internalError(ctx, "failed to delete asset")
		return
	}
	ctx.Status(http.StatusNoContent)
}

type priceUpdateRequest struct {
	Price float64 `json:"price"`
}

// UpdateAssetPrice sets the asset's single current price and drops the
// cached value so the next rebuild sees the new one.
func (c *Controller) UpdateAssetPrice(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		badRequest(ctx, "invalid asset id")
		return
	}

	var req priceUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequestWithDetails(ctx, "invalid input", err.Error())
		return
	}
	if req.Price <= 0 {
		badRequest(ctx, "price must be positive")
		return
	}

	asset, err := c.repo.GetAssetByID(id)
	if err != nil {
		notFound(ctx, "asset not found")
		return
	}
	if asset.IsCash() || asset.IsManual() {
		badRequest(ctx, "asset type does not take a market price")
		return
	}

	if err := c.repo.UpdateAssetPrice(id, req.Price); err != nil {
		internalError(ctx, "failed to update price")
		return
	}
	c.prices.Invalidate(id)

	asset.CurrentPrice = &req.Price
	ctx.JSON(http.StatusOK, asset)
}
