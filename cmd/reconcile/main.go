package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/eventhub/config"
	"github.com/oksasatya/eventhub/internal/application"
	pginfra "github.com/oksasatya/eventhub/internal/infrastructure/postgres"
	"github.com/oksasatya/eventhub/internal/infrastructure/search"
	"github.com/oksasatya/eventhub/pkg/helpers"
)

// reconcile rebuilds every event's attendee list from the registrations
// table and, when Elasticsearch is configured, writes every event to the
// search index. Safe to run while the API is serving.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-reconcile", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolOptions{
		DSN:         cfg.PostgresDSN(),
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		MaxConnLife: cfg.DBMaxConnLife,
		Logger:      logger,
		SlowQuery:   cfg.DBSlowQuery,
	})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	svc := application.NewEventService(
		pginfra.NewTxManager(pool),
		pginfra.NewEventRepository(pool),
		pginfra.NewRegistrationRepository(pool),
		logger,
	)
	if cfg.EventsCacheTTL > 0 {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		svc.Redis = rdb
		svc.CacheTTL = cfg.EventsCacheTTL
	}

	changed, err := svc.ReconcileAttendees(ctx)
	if err != nil {
		logger.Fatalf("reconcile failed: %v", err)
	}
	logger.WithField("events_changed", changed).Info("attendee lists reconciled")

	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.Fatalf("elasticsearch client: %v", err)
	}
	if es == nil {
		logger.Info("elasticsearch not configured, skipping reindex")
		return
	}
	idx := search.NewEventIndex(es, cfg.ESEventsIndex)
	if err := idx.EnsureIndex(ctx); err != nil {
		logger.Fatalf("ensure search index: %v", err)
	}
	svc.Index = idx
	if _, err := svc.ReindexEvents(ctx); err != nil {
		logger.Fatalf("reindex failed: %v", err)
	}
}
