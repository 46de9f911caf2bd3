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
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/lotledger/internal/app"
	"github.com/odyssey-erp/lotledger/internal/auditlog"
	"github.com/odyssey-erp/lotledger/internal/einvoice"
	"github.com/odyssey-erp/lotledger/internal/importer"
	"github.com/odyssey-erp/lotledger/internal/invoices"
	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/masterdata"
	"github.com/odyssey-erp/lotledger/internal/observability"
	"github.com/odyssey-erp/lotledger/internal/platform/db"
	"github.com/odyssey-erp/lotledger/internal/transfers"
	"github.com/odyssey-erp/lotledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	ledgerRepo := ledger.NewRepository(pool)
	mainWarehouse, err := ledger.ResolveMainWarehouse(ctx, ledgerRepo, cfg.MainWarehouseID)
	if err != nil {
		logger.Error("resolve main warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("main warehouse resolved", slog.String("id", mainWarehouse.ID), slog.String("name", mainWarehouse.Name))

	metrics := observability.NewMetrics()
	audit := auditlog.NewWriter(pool, logger)
	engine := ledger.NewEngine(mainWarehouse.ID, metrics, logger)

	ledgerService := ledger.NewService(ledgerRepo, engine, audit, logger)
	transferService := transfers.NewService(transfers.NewRepository(pool), engine, audit, logger)
	masterRepo := masterdata.NewRepository(pool)
	masterService := masterdata.NewService(masterRepo, mainWarehouse.ID, audit, logger)

	provider := einvoice.NewClient(einvoice.Config{
		BaseURL:  cfg.InvoiceProviderURL,
		Username: cfg.InvoiceProviderUsername,
		Password: cfg.InvoiceProviderPassword,
		Timeout:  cfg.InvoiceProviderTimeout,
	})
	if provider.Simulated() {
		logger.Warn("invoice provider credentials missing, numbers will be simulated")
	}
	invoiceService := invoices.NewService(invoices.NewRepository(pool), engine, transferService, provider, audit, logger)
	importService := importer.NewService(masterRepo, engine, masterService, audit, logger)

	redisOpts := cfg.Redis().Asynq()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("job inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		LedgerHandler:     ledger.NewHandler(logger, ledgerService),
		TransfersHandler:  transfers.NewHandler(logger, transferService),
		InvoicesHandler:   invoices.NewHandler(logger, invoiceService),
		MasterDataHandler: masterdata.NewHandler(logger, masterService),
		ImportHandler:     importer.NewHandler(logger, importService),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger),
		Metrics:           metrics,
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
