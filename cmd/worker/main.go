package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/hotel-ledger/internal/app"
	jobmetrics "github.com/odyssey-erp/hotel-ledger/internal/jobs"
	"github.com/odyssey-erp/hotel-ledger/internal/observability"
	"github.com/odyssey-erp/hotel-ledger/jobs"
)

func main() {
	if err := app.LoadEnv(); err != nil {
		slog.Default().Error("load env", slog.Any("error", err))
		os.Exit(1)
	}
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
	if cfg.RedisAddr == "" {
		logger.Error("worker requires REDIS_ADDR")
		os.Exit(1)
	}

	registry := observability.NewMetrics()
	rt, err := app.Open(ctx, cfg, logger, registry, nil)
	if err != nil {
		logger.Error("open ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer rt.Close()

	metrics := jobmetrics.NewMetrics(registry.Registerer())

	integrityJob := jobs.NewGLIntegrityJob(rt.Ledger.Reports, rt.Metrics, logger, metrics)
	eventJob := jobs.NewLedgerEventJob(rt.Ledger.Hooks, logger, metrics)

	integrityTask, err := jobs.NewGLIntegrityTask(jobs.GLIntegrityPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGLIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskLedgerEvent, Handler: eventJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.GLIntegrityCron, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("store", cfg.LedgerStore), slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
