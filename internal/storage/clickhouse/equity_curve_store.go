package clickhouse

import (
	"context"
	"fmt"
	"time"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// EquityCurveStore implements storage.EquityCurveStore using ClickHouse.
type EquityCurveStore struct {
	conn *Conn
}

// NewEquityCurveStore creates a new EquityCurveStore.
func NewEquityCurveStore(conn *Conn) *EquityCurveStore {
	return &EquityCurveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)

// InsertBulk appends points to the curve of (engine, horizon, symbol).
func (s *EquityCurveStore) InsertBulk(ctx context.Context, engine, horizon, symbol string, points []domain.EquityPoint) (err error) {
	if engine == "" || horizon == "" || symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}
	defer observe("insert_equity_curve", time.Now(), &err)

	seen := make(map[int64]struct{}, len(points))
	timestamps := make([]int64, 0, len(points))
	for _, p := range points {
		if _, exists := seen[p.T]; exists {
			return storage.ErrDuplicateKey
		}
		seen[p.T] = struct{}{}
		timestamps = append(timestamps, p.T)
	}

	var count uint64
	err = s.conn.QueryRow(ctx, `
		SELECT count(*) FROM equity_curves
		WHERE engine = ? AND horizon = ? AND symbol = ? AND timestamp_ms IN ?
	`, engine, horizon, symbol, timestamps).Scan(&count)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO equity_curves (engine, horizon, symbol, timestamp_ms, value)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(engine, horizon, symbol, p.T, p.V); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetCurve retrieves a curve ordered by timestamp ASC. Returns ErrNotFound if empty.
func (s *EquityCurveStore) GetCurve(ctx context.Context, engine, horizon, symbol string) (_ []domain.EquityPoint, err error) {
	defer observe("select_equity_curve", time.Now(), &err)

	query := `
		SELECT timestamp_ms, value
		FROM equity_curves
		WHERE engine = ? AND horizon = ? AND symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, engine, horizon, symbol)
	if err != nil {
		return nil, fmt.Errorf("query equity curve: %w", err)
	}
	defer rows.Close()

	var points []domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		if err := rows.Scan(&p.T, &p.V); err != nil {
			return nil, fmt.Errorf("scan equity curve row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity curve rows: %w", err)
	}

	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return points, nil
}

// ListSymbols returns the symbols with a curve for (engine, horizon), sorted ASC.
func (s *EquityCurveStore) ListSymbols(ctx context.Context, engine, horizon string) (_ []string, err error) {
	defer observe("list_curve_symbols", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT symbol
		FROM equity_curves
		WHERE engine = ? AND horizon = ?
		ORDER BY symbol ASC
	`, engine, horizon)
	if err != nil {
		return nil, fmt.Errorf("query curve symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan curve symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curve symbols: %w", err)
	}
	return symbols, nil
}
