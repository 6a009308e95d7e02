package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/marginview/marginview/internal/app"
	"github.com/marginview/marginview/internal/feedsync"
	"github.com/marginview/marginview/internal/integration"
	jobmetrics "github.com/marginview/marginview/internal/jobs"
	"github.com/marginview/marginview/internal/observability"
	"github.com/marginview/marginview/internal/platform/cache"
	"github.com/marginview/marginview/internal/platform/db"
	"github.com/marginview/marginview/internal/platform/store"
	"github.com/marginview/marginview/internal/reports"
	"github.com/marginview/marginview/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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
	storeClient := store.NewClient(pool, cfg.StorePageSize)
	reportCache := reports.NewCache(redisClient, cfg.CacheTTL)

	syncRepo := feedsync.NewRepository(storeClient)
	syncService := feedsync.NewService(syncRepo, reportCache, metrics, logger)

	feed := integration.NewFeedClient(cfg.FeedURL, cfg.FeedTimeout)
	resyncJob := jobs.NewResyncJob(feed, syncService, logger, jobmetrics.NewMetrics(metrics.Registerer()))

	var cron []jobs.CronRegistration
	if cfg.ResyncCron != "" {
		resyncTask, err := jobs.NewSalesResyncTask(jobs.SalesResyncPayload{})
		if err != nil {
			logger.Error("build resync task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.ResyncCron,
			Task:    resyncTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSalesResync, Handler: resyncJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
