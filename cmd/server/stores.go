package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"equity-lab/internal/cache"
	"equity-lab/internal/config"
	"equity-lab/internal/performance"
	chstore "equity-lab/internal/storage/clickhouse"
	"equity-lab/internal/storage/memory"
	"equity-lab/internal/storage/migrations"
	pgstore "equity-lab/internal/storage/postgres"
)

// serverStores holds all storage implementations.
type serverStores struct {
	performance.Stores
	closeCache *cache.DailyCloseCache // nil without redis
}

// createStores creates all required stores.
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*serverStores, func(), error) {
	var (
		stores  *serverStores
		cleanup = func() {}
	)

	if cfg.Storage.UseMemory {
		stores = &serverStores{Stores: performance.Stores{
			Trades:     memory.NewClosedTradeStore(),
			Snapshots:  memory.NewEquitySnapshotStore(),
			Samples:    memory.NewATRSampleStore(),
			MinuteBars: memory.NewMinuteBarStore(),
			Closes:     memory.NewDailyCloseStore(),
			Curves:     memory.NewEquityCurveStore(),
		}}
	} else {
		// PostgreSQL
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}

		// ClickHouse
		chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN, logger)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}

		stores = &serverStores{Stores: performance.Stores{
			// PostgreSQL stores (account data)
			Trades:    pgstore.NewClosedTradeStore(pool),
			Snapshots: pgstore.NewEquitySnapshotStore(pool),
			Samples:   pgstore.NewATRSampleStore(pool),

			// ClickHouse stores (market series)
			MinuteBars: chstore.NewMinuteBarStore(chConn),
			Closes:     chstore.NewDailyCloseStore(chConn),
			Curves:     chstore.NewEquityCurveStore(chConn),
		}}

		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	if cfg.Storage.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			// Cache is optional: reads fall through to the store
			logger.Printf("Redis at %s unreachable, continuing with cache fall-through: %v", cfg.Storage.RedisAddr, err)
		}
		stores.closeCache = cache.NewDailyCloseCache(stores.Closes, client, logger)
		stores.Closes = stores.closeCache

		prev := cleanup
		cleanup = func() {
			client.Close()
			prev()
		}
	}

	return stores, cleanup, nil
}
