package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// EquitySnapshotStore implements storage.EquitySnapshotStore using PostgreSQL.
type EquitySnapshotStore struct {
	pool *Pool
}

// NewEquitySnapshotStore creates a new EquitySnapshotStore.
func NewEquitySnapshotStore(pool *Pool) *EquitySnapshotStore {
	return &EquitySnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EquitySnapshotStore = (*EquitySnapshotStore)(nil)

// InsertBulk adds multiple snapshots atomically. Fails entire batch on duplicate.
func (s *EquitySnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.EquitySnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}
	for _, snap := range snapshots {
		if snap == nil || snap.Account == "" {
			return storage.ErrInvalidInput
		}
	}
	defer observe("insert_equity_snapshots", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// CopyFrom fails the whole copy on a unique violation
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"equity_snapshots"},
		[]string{"account", "timestamp_ms", "equity"},
		pgx.CopyFromSlice(len(snapshots), func(i int) ([]any, error) {
			snap := snapshots[i]
			return []any{snap.Account, snap.TimestampMs, snap.Equity}, nil
		}),
	)
	if err != nil {
		return insertError("copy equity snapshots", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves snapshots for an account within [start, end] (inclusive).
func (s *EquitySnapshotStore) GetByTimeRange(ctx context.Context, account string, start, end int64) (_ []*domain.EquitySnapshot, err error) {
	defer observe("select_equity_snapshots", time.Now(), &err)

	query := `
		SELECT account, timestamp_ms, equity
		FROM equity_snapshots
		WHERE account = $1 AND timestamp_ms >= $2 AND timestamp_ms <= $3
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, account, start, end)
	if err != nil {
		return nil, fmt.Errorf("get equity snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.EquitySnapshot
	for rows.Next() {
		var snap domain.EquitySnapshot
		if err := rows.Scan(&snap.Account, &snap.TimestampMs, &snap.Equity); err != nil {
			return nil, fmt.Errorf("scan equity snapshot: %w", err)
		}
		snapshots = append(snapshots, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity snapshots: %w", err)
	}
	return snapshots, nil
}
