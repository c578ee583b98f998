// Package postgres stores account data (closed trades, equity snapshots, ATR samples) in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"equity-lab/internal/observability"
	"equity-lab/internal/storage"
)

const (
	applicationName = "equity-lab"
	maxConnIdleTime = 5 * time.Minute

	// unique_violation
	codeUniqueViolation = "23505"
)

// Pool is the connection pool shared by the account stores.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to dsn and verifies the server is reachable.
// application_name defaults to equity-lab unless the dsn sets one.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	cfg.MaxConnIdleTime = maxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// insertError maps unique violations to storage.ErrDuplicateKey and wraps everything else.
func insertError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return fmt.Errorf("%s: %w", op, storage.ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// observe records query latency and outcome; call as defer observe(op, time.Now(), &err).
func observe(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), *err)
}
