package storage

import (
	"context"

	"equity-lab/internal/domain"
)

// ClosedTradeStore provides access to closed_trades storage.
type ClosedTradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.ClosedTrade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.ClosedTrade) error

	// GetByAccount retrieves trades for an account exited within [start, end] (inclusive),
	// ordered by exit timestamp ASC.
	GetByAccount(ctx context.Context, account string, start, end int64) ([]*domain.ClosedTrade, error)

	// GetBySymbolTimeframe retrieves all trades for a symbol/timeframe, ordered by exit timestamp ASC.
	GetBySymbolTimeframe(ctx context.Context, symbol, timeframe string) ([]*domain.ClosedTrade, error)
}

// EquitySnapshotStore provides access to equity_snapshots storage.
type EquitySnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (account, timestamp_ms).
	InsertBulk(ctx context.Context, snapshots []*domain.EquitySnapshot) error

	// GetByTimeRange retrieves snapshots for an account within [start, end] (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, account string, start, end int64) ([]*domain.EquitySnapshot, error)
}

// ATRSampleStore provides access to atr_samples storage.
type ATRSampleStore interface {
	// Insert adds a new sample. Returns ErrDuplicateKey if sample_id exists.
	Insert(ctx context.Context, s *domain.ATRSample) error

	// GetRecent returns up to limit non-null ATR values for symbol/timeframe,
	// most recent first.
	GetRecent(ctx context.Context, symbol, timeframe string, limit int) ([]float64, error)
}

// MinuteBarStore provides access to minute_bars storage.
type MinuteBarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.Bar, error)
}

// DailyCloseStore provides access to daily_closes storage.
type DailyCloseStore interface {
	// InsertBulk adds multiple closes. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, closes []*domain.DailyClose) error

	// GetByTimeRange retrieves closes for a symbol within [start, end] (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.DailyClose, error)
}

// EquityCurveStore provides access to per-symbol engine equity curves.
type EquityCurveStore interface {
	// InsertBulk appends points to the curve of (engine, horizon, symbol).
	// Fails entire batch on duplicate timestamp.
	InsertBulk(ctx context.Context, engine, horizon, symbol string, points []domain.EquityPoint) error

	// GetCurve retrieves the curve of (engine, horizon, symbol) ordered by timestamp ASC.
	// Returns ErrNotFound if the curve has no points.
	GetCurve(ctx context.Context, engine, horizon, symbol string) ([]domain.EquityPoint, error)

	// ListSymbols returns the symbols with a curve for (engine, horizon), sorted ASC.
	ListSymbols(ctx context.Context, engine, horizon string) ([]string, error)
}
