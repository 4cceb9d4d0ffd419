package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/hotel-ledger/internal/accounting"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/memstore"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/hotel-ledger/internal/integration"
	"github.com/odyssey-erp/hotel-ledger/internal/observability"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/cache"
	"github.com/odyssey-erp/hotel-ledger/internal/platform/db"
)

// Runtime holds the ledger and the connections behind it.
type Runtime struct {
	Ledger  *accounting.Ledger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Cache   *reports.Cache
	Metrics *observability.LedgerMetrics
}

// Open connects the configured store and cache and wires the ledger.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics, queue integration.Enqueuer) (*Runtime, error) {
	rt := &Runtime{}
	var backend accounting.Backend
	switch cfg.LedgerStore {
	case StoreMemory:
		logger.Warn("using in-memory ledger store; data is lost on exit")
		backend = accounting.MemoryBackend(memstore.New())
	default:
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, err
		}
		rt.Pool = pool
		backend = accounting.PostgresBackend(pool)
	}

	client, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("app: report cache: %w", err)
	}
	if client != nil {
		rt.Redis = client
		rt.Cache = reports.NewCache(client, cfg.ReportCacheTTL, logger)
	}
	rt.Metrics = metrics.Ledger()

	opts := accounting.Options{Logger: logger, Cache: rt.Cache}
	if rt.Metrics != nil {
		opts.Metrics = rt.Metrics
	}
	if cfg.EventsAsync && queue != nil {
		opts.Queue = queue
	}
	rt.Ledger = accounting.New(backend, opts)
	return rt, nil
}

// Close releases pool and redis connections.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}
