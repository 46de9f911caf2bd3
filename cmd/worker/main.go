package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/lotledger/internal/app"
	"github.com/odyssey-erp/lotledger/internal/auditlog"
	jobmetrics "github.com/odyssey-erp/lotledger/internal/jobs"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/platform/cache"
	"github.com/odyssey-erp/lotledger/internal/platform/db"
	"github.com/odyssey-erp/lotledger/internal/reconcile"
	"github.com/odyssey-erp/lotledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, db.PoolConfig{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	ledgerRepo := ledger.NewRepository(pool)
	mainWarehouse, err := ledger.ResolveMainWarehouse(ctx, ledgerRepo, cfg.MainWarehouseID)
	if err != nil {
		logger.Error("resolve main warehouse", slog.Any("error", err))
		os.Exit(1)
	}

	engine := ledger.NewEngine(mainWarehouse.ID, nil, logger)
	reconciler := reconcile.NewService(
		ledgerRepo,
		engine,
		cache.NewLocker(redisClient, cfg.ReconcileLockTTL),
		auditlog.NewWriter(pool, logger),
		logger,
		reconcile.Config{BatchSize: cfg.ReconcileBatchSize, Workers: cfg.ReconcileWorkers},
	)
	handler := jobs.NewReconcileHandler(reconciler, jobmetrics.NewMetrics(prometheus.DefaultRegisterer), logger)

	recalcTask, err := jobs.NewReconcileTask(jobs.TaskRecalculateLots, jobs.ReconcilePayload{})
	if err != nil {
		logger.Error("build recalculate task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.Redis().Asynq(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRecalculateLots, Handler: handler},
			{Type: jobs.TaskSyncMainStock, Handler: handler},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReconcileCron, Task: recalcTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
