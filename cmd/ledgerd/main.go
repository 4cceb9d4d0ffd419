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

	"github.com/odyssey-erp/hotel-ledger/internal/app"
	"github.com/odyssey-erp/hotel-ledger/internal/integration"
	"github.com/odyssey-erp/hotel-ledger/internal/observability"
	"github.com/odyssey-erp/hotel-ledger/jobs"
)

func main() {
	if err := app.LoadEnv(); err != nil {
		slog.Default().Error("load env", slog.Any("error", err))
		os.Exit(1)
	}
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
	metrics := observability.NewMetrics()

	var (
		queue      integration.Enqueuer
		jobHandler *jobs.Handler
	)
	if cfg.RedisAddr != "" {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		client, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer client.Close()
		queue = client
		inspector := asynq.NewInspector(redisOpts)
		defer inspector.Close()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	rt, err := app.Open(ctx, cfg, logger, metrics, queue)
	if err != nil {
		logger.Error("open ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer rt.Close()

	if rt.Cache != nil {
		go func() {
			if err := rt.Cache.ListenForInvalidation(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("report cache invalidation listener stopped", slog.Any("error", err))
			}
		}()
	}

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		Ledger:     rt.Ledger,
		JobHandler: jobHandler,
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("store", cfg.LedgerStore),
			slog.Bool("report_cache", rt.Cache != nil),
			slog.Bool("events_async", cfg.EventsAsync))
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
