package clickhouse

import (
	"context"
	"fmt"
	"time"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// DailyCloseStore implements storage.DailyCloseStore using ClickHouse.
type DailyCloseStore struct {
	conn *Conn
}

// NewDailyCloseStore creates a new DailyCloseStore.
func NewDailyCloseStore(conn *Conn) *DailyCloseStore {
	return &DailyCloseStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyCloseStore = (*DailyCloseStore)(nil)

// InsertBulk adds multiple closes. Fails entire batch on duplicate (symbol, timestamp_ms).
func (s *DailyCloseStore) InsertBulk(ctx context.Context, closes []*domain.DailyClose) (err error) {
	if len(closes) == 0 {
		return nil
	}
	defer observe("insert_daily_closes", time.Now(), &err)

	keys := make(map[string][]int64)
	seen := make(map[symbolTs]struct{}, len(closes))
	for _, c := range closes {
		if c == nil || c.Symbol == "" || c.TimestampMs < 0 {
			return storage.ErrInvalidInput
		}
		k := symbolTs{c.Symbol, c.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		keys[c.Symbol] = append(keys[c.Symbol], c.TimestampMs)
	}

	for symbol, timestamps := range keys {
		exists, err := anyExists(ctx, s.conn, "daily_closes", symbol, timestamps)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_closes (symbol, timestamp_ms, close)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range closes {
		if err := batch.Append(c.Symbol, uint64(c.TimestampMs), c.Close); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves closes for a symbol within [start, end] (inclusive).
func (s *DailyCloseStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) (_ []*domain.DailyClose, err error) {
	defer observe("select_daily_closes", time.Now(), &err)

	query := `
		SELECT symbol, timestamp_ms, close
		FROM daily_closes
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, clampUint(start), clampUint(end))
	if err != nil {
		return nil, fmt.Errorf("query daily closes: %w", err)
	}
	defer rows.Close()

	var closes []*domain.DailyClose
	for rows.Next() {
		var c domain.DailyClose
		var timestampMs uint64
		if err := rows.Scan(&c.Symbol, &timestampMs, &c.Close); err != nil {
			return nil, fmt.Errorf("scan daily close row: %w", err)
		}
		c.TimestampMs = int64(timestampMs)
		closes = append(closes, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily close rows: %w", err)
	}
	return closes, nil
}
