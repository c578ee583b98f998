package clickhouse

import (
	"context"
	"fmt"
	"time"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// MinuteBarStore implements storage.MinuteBarStore using ClickHouse.
type MinuteBarStore struct {
	conn *Conn
}

// NewMinuteBarStore creates a new MinuteBarStore.
func NewMinuteBarStore(conn *Conn) *MinuteBarStore {
	return &MinuteBarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MinuteBarStore = (*MinuteBarStore)(nil)

// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp_ms).
func (s *MinuteBarStore) InsertBulk(ctx context.Context, bars []*domain.Bar) (err error) {
	if len(bars) == 0 {
		return nil
	}
	defer observe("insert_minute_bars", time.Now(), &err)

	keys := make(map[string][]int64)
	seen := make(map[symbolTs]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Symbol == "" || b.TimestampMs < 0 {
			return storage.ErrInvalidInput
		}
		k := symbolTs{b.Symbol, b.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		keys[b.Symbol] = append(keys[b.Symbol], b.TimestampMs)
	}

	for symbol, timestamps := range keys {
		exists, err := anyExists(ctx, s.conn, "minute_bars", symbol, timestamps)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO minute_bars (
			symbol, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			b.Symbol, uint64(b.TimestampMs),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *MinuteBarStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) (_ []*domain.Bar, err error) {
	defer observe("select_minute_bars", time.Now(), &err)

	query := `
		SELECT symbol, timestamp_ms, open, high, low, close, volume
		FROM minute_bars
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, clampUint(start), clampUint(end))
	if err != nil {
		return nil, fmt.Errorf("query minute bars: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

func scanBars(rows chRows) ([]*domain.Bar, error) {
	var bars []*domain.Bar

	for rows.Next() {
		var b domain.Bar
		var timestampMs uint64

		err := rows.Scan(
			&b.Symbol, &timestampMs,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan minute bar row: %w", err)
		}

		b.TimestampMs = int64(timestampMs)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate minute bar rows: %w", err)
	}
	return bars, nil
}
