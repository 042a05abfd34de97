package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/controller"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/repo"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/service"

	"github.com/gin-gonic/gin"
)

var (
	ErrNilEngine         = errors.New("engine is required")
	ErrNilLogger         = errors.New("logger is required")
	ErrNilRepository     = errors.New("repository is required")
	ErrNilTradeService   = errors.New("trade service is required")
	ErrNilRebuildService = errors.New("rebuild service is required")
	ErrNilPriceService   = errors.New("price service is required")
	ErrNilEventChannel   = errors.New("event channel is required")
)

type Handler struct {
	engine     *gin.Engine
	logger     *slog.Logger
	repository *repo.Repository
	trades     *service.TradeService
	rebuilds   *service.RebuildService
	prices     *service.PriceService
	eventCh    <-chan []byte
	eventCHSet bool
}

func (h *Handler) IsValid() error {
	switch {
	case h.engine == nil:
		return ErrNilEngine
	case h.logger == nil:
		return ErrNilLogger
	case h.repository == nil:
		return ErrNilRepository
	case h.trades == nil:
		return ErrNilTradeService
	case h.rebuilds == nil:
		return ErrNilRebuildService
	case h.prices == nil:
		return ErrNilPriceService
	case h.eventCHSet && h.eventCh == nil:
		return ErrNilEventChannel
	default:
		return nil
	}
}

type Option func(*Handler)

func WithEngine(engine *gin.Engine) Option {
	return func(h *Handler) {
		h.engine = engine
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

func WithRepository(repository *repo.Repository) Option {
	return func(h *Handler) {
		h.repository = repository
	}
}

func WithTradeService(s *service.TradeService) Option {
	return func(h *Handler) {
		h.trades = s
	}
}

func WithRebuildService(s *service.RebuildService) Option {
	return func(h *Handler) {
		h.rebuilds = s
	}
}

func WithPriceService(s *service.PriceService) Option {
	return func(h *Handler) {
		h.prices = s
	}
}

func WithEventChannel(ch <-chan []byte) Option {
	return func(h *Handler) {
		h.eventCh = ch
		h.eventCHSet = true
	}
}

func New(opts ...Option) (*Handler, error) {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.IsValid(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handler) Setup() error {
	ctrl, err := controller.New(
		controller.WithLogger(h.logger),
		controller.WithRepository(h.repository),
		controller.WithTradeService(h.trades),
		controller.WithRebuildService(h.rebuilds),
		controller.WithPriceService(h.prices),
	)
	if err != nil {
		return err
	}

	h.engine.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := h.engine.Group("/api")

	accounts := api.Group("/accounts")
	accounts.GET("", ctrl.ListAccounts)
	accounts.POST("", ctrl.CreateAccount)
	accounts.GET("/:id", ctrl.GetAccount)

	assets := api.Group("/assets")
	assets.GET("", ctrl.ListAssets)
	assets.POST("", ctrl.CreateAsset)
	assets.GET("/:id", ctrl.GetAsset)
	assets.DELETE("/:id", ctrl.DeleteAsset)
	assets.PUT("/:id/price", ctrl.UpdateAssetPrice)

	transactions := api.Group("/transactions")
	transactions.GET("", ctrl.ListTransactions)
	transactions.POST("", ctrl.CreateTransaction)
	transactions.GET("/:id", ctrl.GetTransaction)
	transactions.DELETE("/:id", ctrl.DeleteTransaction)

	snapshots := api.Group("/snapshots")
	snapshots.GET("", ctrl.ListSnapshots)
	snapshots.POST("/rebuild", ctrl.RebuildSnapshots)
	snapshots.POST("/manual", ctrl.UpsertManualValuation)
	if h.eventCh != nil {
		snapshots.GET("/stream", controller.SSERebuilds(h.eventCh))
	}

	portfolio := api.Group("/portfolio")
	portfolio.GET("/returns", ctrl.PortfolioReturns)
	portfolio.GET("/weights", ctrl.PortfolioWeights)
	portfolio.GET("/contributions", ctrl.PortfolioContributions)

	return nil
}
