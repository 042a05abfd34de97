package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/martinchoi85-lang/my-asset-portfolio/internal/handler"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/ledger"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/repo"
	"github.com/martinchoi85-lang/my-asset-portfolio/internal/service"
	"github.com/martinchoi85-lang/my-asset-portfolio/pkg/database"
	"github.com/martinchoi85-lang/my-asset-portfolio/pkg/integrations/chanpubsub"
	"github.com/martinchoi85-lang/my-asset-portfolio/pkg/integrations/scheduler"
	"github.com/martinchoi85-lang/my-asset-portfolio/pkg/utils"

	"github.com/gin-gonic/gin"
)

// rebuildLookback is how far back the nightly catch-up recomputes. Intraday
// price updates and late trades land inside this window; anything older is
// rebuilt explicitly through the API.
const rebuildLookback = 7 * 24 * time.Hour

func main() {
	utils.LoadEnv()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPath := utils.GetEnv("DB_PATH", "./data/portfolio.db")
	db, err := database.New(database.WithPath(dbPath))
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	repository, err := repo.New(db.Get())
	if err != nil {
		log.Fatal("Failed to create repository:", err)
	}

	if err := repository.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	rebuildCh := make(chan []byte, 10)
	sseCh := make(chan []byte, 10)
	rebuildPublisher := chanpubsub.New(
		chanpubsub.WithChannel(rebuildCh),
		chanpubsub.WithContext(ctx),
		chanpubsub.WithTopic("rebuilds"),
		chanpubsub.WithLogger(logger),
		chanpubsub.WithHandler(func(data []byte) error {
			select {
			case sseCh <- data:
			default:
				logger.Warn("sseCh full, dropping message")
			}
			return nil
		}),
	)
	if err := rebuildPublisher.Subscribe(); err != nil {
		log.Fatal("Failed to start rebuild subscriber:", err)
	}

	priceSvc, err := service.NewPriceService(
		service.WithPriceLogger(logger),
		service.WithPriceRepo(repository),
	)
	if err != nil {
		log.Fatal("Failed to create price service:", err)
	}

	workers, _ := strconv.Atoi(utils.GetEnv("REBUILD_WORKERS", "4"))
	rebuildSvc, err := service.NewRebuildService(
		service.WithRebuildLogger(logger),
		service.WithRebuildRepo(repository),
		service.WithRebuildPrices(priceSvc),
		service.WithRebuildPublisher(rebuildPublisher),
		service.WithRebuildWorkers(workers),
	)
	if err != nil {
		log.Fatal("Failed to create rebuild service:", err)
	}

	tradeSvc, err := service.NewTradeService(
		service.WithTradeLogger(logger),
		service.WithTradeRepo(repository),
		service.WithTradeRebuilder(rebuildSvc),
	)
	if err != nil {
		log.Fatal("Failed to create trade service:", err)
	}

	nightly, err := scheduler.New(
		scheduler.WithContext(ctx),
		scheduler.WithLogger(logger),
		scheduler.WithInterval(24*time.Hour),
		scheduler.WithRunAtStart(),
		scheduler.WithHandler(func() error {
			end := ledger.Day(time.Now())
			start := end.Add(-rebuildLookback)

			accounts, err := repository.GetAllAccounts()
			if err != nil {
				return err
			}
			for _, account := range accounts {
				statuses, err := rebuildSvc.Rebuild(ctx, account.ID, start, end)
				if err != nil {
					logger.Error("nightly rebuild failed", "account_id", account.ID, "error", err)
					continue
				}
				for pair, status := range statuses {
					if !status.OK() {
						logger.Warn("nightly rebuild pair failed",
							"account_id", pair.AccountID, "asset_id", pair.AssetID, "error", status.Error)
					}
				}
			}
			return nil
		}),
	)
	if err != nil {
		log.Fatal("Failed to create scheduler:", err)
	}
	if err := nightly.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}

	r := gin.Default()

	h, err := handler.New(
		handler.WithEngine(r),
		handler.WithLogger(logger),
		handler.WithRepository(repository),
		handler.WithTradeService(tradeSvc),
		handler.WithRebuildService(rebuildSvc),
		handler.WithPriceService(priceSvc),
		handler.WithEventChannel(sseCh),
	)
	if err != nil {
		log.Fatal("Failed to create handler:", err)
	}
	if err := h.Setup(); err != nil {
		log.Fatal("Failed to setup routes:", err)
	}

	port := utils.GetEnv("APP_PORT", "8080")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutting down...")
		cancel()
		nightly.Stop()
		os.Exit(0)
	}()

	logger.Info("starting portfolio server", "port", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
