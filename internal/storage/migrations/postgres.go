package migrations

import (
	"context"
	"fmt"
	"log"

	"equity-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Migrations are idempotent (CREATE ... IF NOT EXISTS).
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		logger.Printf("postgres migration applied: %s", m.name)
	}
	return nil
}
