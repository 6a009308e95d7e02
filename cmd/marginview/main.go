package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/marginview/marginview/internal/app"
	"github.com/marginview/marginview/internal/feedsync"
	feedsynchttp "github.com/marginview/marginview/internal/feedsync/http"
	"github.com/marginview/marginview/internal/observability"
	"github.com/marginview/marginview/internal/platform/cache"
	"github.com/marginview/marginview/internal/platform/db"
	"github.com/marginview/marginview/internal/platform/store"
	"github.com/marginview/marginview/internal/reports"
	reportshttp "github.com/marginview/marginview/internal/reports/http"
	"github.com/marginview/marginview/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Redis is soft-required: without it reports are recomputed per request.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	storeClient := store.NewClient(dbpool, cfg.StorePageSize)
	reportCache := reports.NewCache(redisClient, cfg.CacheTTL)

	reportsRepo := reports.NewRepository(storeClient)
	reportsService := reports.NewService(reportsRepo, reportCache, logger, reports.ServiceConfig{
		PageSize:        cfg.StorePageSize,
		FetchWorkers:    cfg.FetchWorkers,
		CatalogFromYear: cfg.CatalogFromYear,
	})
	reportsHandler := reportshttp.NewHandler(logger, reportsService)

	syncRepo := feedsync.NewRepository(storeClient)
	syncService := feedsync.NewService(syncRepo, reportCache, metrics, logger)
	syncHandler := feedsynchttp.NewHandler(logger, syncService)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(jobClient, inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ReportsHandler: reportsHandler,
		SyncHandler:    syncHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
