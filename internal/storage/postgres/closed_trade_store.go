package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// ClosedTradeStore implements storage.ClosedTradeStore using PostgreSQL.
type ClosedTradeStore struct {
	pool *Pool
}

// NewClosedTradeStore creates a new ClosedTradeStore.
func NewClosedTradeStore(pool *Pool) *ClosedTradeStore {
	return &ClosedTradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ClosedTradeStore = (*ClosedTradeStore)(nil)

const insertClosedTrade = `
	INSERT INTO closed_trades (
		trade_id, account, symbol, timeframe,
		entry_price, exit_price, realized_pnl,
		capital_at_entry, r_multiple, exit_timestamp
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

const selectClosedTrades = `
	SELECT trade_id, account, symbol, timeframe,
		entry_price, exit_price, realized_pnl,
		capital_at_entry, r_multiple, exit_timestamp
	FROM closed_trades
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *ClosedTradeStore) Insert(ctx context.Context, t *domain.ClosedTrade) (err error) {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("insert_closed_trade", time.Now(), &err)

	_, err = s.pool.Exec(ctx, insertClosedTrade, tradeArgs(t)...)
	if err != nil {
		return insertError("insert closed trade", err)
	}
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *ClosedTradeStore) InsertBulk(ctx context.Context, trades []*domain.ClosedTrade) (err error) {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
	}
	defer observe("insert_closed_trades", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(insertClosedTrade, tradeArgs(t)...)
	}

	results := tx.SendBatch(ctx, batch)
	for range trades {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return insertError("insert closed trade in bulk", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByAccount retrieves trades for an account exited within [start, end] (inclusive).
func (s *ClosedTradeStore) GetByAccount(ctx context.Context, account string, start, end int64) (_ []*domain.ClosedTrade, err error) {
	defer observe("select_trades_by_account", time.Now(), &err)

	query := selectClosedTrades + `
		WHERE account = $1 AND exit_timestamp >= $2 AND exit_timestamp <= $3
		ORDER BY exit_timestamp ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, account, start, end)
	if err != nil {
		return nil, fmt.Errorf("get trades by account: %w", err)
	}
	defer rows.Close()

	return scanClosedTrades(rows)
}

// GetBySymbolTimeframe retrieves all trades for a symbol/timeframe.
func (s *ClosedTradeStore) GetBySymbolTimeframe(ctx context.Context, symbol, timeframe string) (_ []*domain.ClosedTrade, err error) {
	defer observe("select_trades_by_symbol", time.Now(), &err)

	query := selectClosedTrades + `
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY exit_timestamp ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("get trades by symbol timeframe: %w", err)
	}
	defer rows.Close()

	return scanClosedTrades(rows)
}

func tradeArgs(t *domain.ClosedTrade) []any {
	return []any{
		t.TradeID, t.Account, t.Symbol, t.Timeframe,
		t.EntryPrice, t.ExitPrice, t.RealizedPnL,
		t.CapitalAtEntry, t.RMultiple, t.ExitTimestamp,
	}
}

// scanClosedTrade scans a single row into a ClosedTrade.
func scanClosedTrade(row pgx.Row) (*domain.ClosedTrade, error) {
	var t domain.ClosedTrade
	err := row.Scan(
		&t.TradeID, &t.Account, &t.Symbol, &t.Timeframe,
		&t.EntryPrice, &t.ExitPrice, &t.RealizedPnL,
		&t.CapitalAtEntry, &t.RMultiple, &t.ExitTimestamp,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanClosedTrades scans multiple rows into a slice.
func scanClosedTrades(rows pgx.Rows) ([]*domain.ClosedTrade, error) {
	var trades []*domain.ClosedTrade
	for rows.Next() {
		t, err := scanClosedTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closed trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed trades: %w", err)
	}
	return trades, nil
}
