package clickhouse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
	chstore "equity-lab/internal/storage/clickhouse"
)

func TestMinuteBarStore_InsertAndRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewMinuteBarStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, nil))

	bars := []*domain.Bar{
		{Symbol: "AAPL", TimestampMs: 120_000, Open: 2, High: 3, Low: 1, Close: 2.5, Volume: 10},
		{Symbol: "AAPL", TimestampMs: 60_000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 5},
		{Symbol: "MSFT", TimestampMs: 60_000, Open: 9, High: 9, Low: 9, Close: 9, Volume: 1},
	}
	require.NoError(t, store.InsertBulk(ctx, bars))

	got, err := store.GetByTimeRange(ctx, "AAPL", 0, 120_000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(60_000), got[0].TimestampMs)
	assert.Equal(t, 1.5, got[0].Close)
	assert.Equal(t, 10.0, got[1].Volume)

	err = store.InsertBulk(ctx, []*domain.Bar{{Symbol: "AAPL", TimestampMs: 60_000}})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.Bar{
		{Symbol: "AAPL", TimestampMs: 180_000},
		{Symbol: "AAPL", TimestampMs: 180_000},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDailyCloseStore_InsertAndRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewDailyCloseStore(conn)
	ctx := context.Background()

	closes := []*domain.DailyClose{
		{Symbol: "^GSPC", TimestampMs: 2 * domain.DayMs, Close: 4800},
		{Symbol: "^GSPC", TimestampMs: domain.DayMs, Close: 4750},
		{Symbol: "^GSPC", TimestampMs: 5 * domain.DayMs, Close: 4900},
	}
	require.NoError(t, store.InsertBulk(ctx, closes))

	got, err := store.GetByTimeRange(ctx, "^GSPC", domain.DayMs, 3*domain.DayMs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4750.0, got[0].Close)
	assert.Equal(t, 4800.0, got[1].Close)

	err = store.InsertBulk(ctx, []*domain.DailyClose{{Symbol: "^GSPC", TimestampMs: domain.DayMs, Close: 1}})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEquityCurveStore_RoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewEquityCurveStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "trend", "1d", "MSFT", []domain.EquityPoint{{T: 2, V: 11}, {T: 1, V: 10}}))
	require.NoError(t, store.InsertBulk(ctx, "trend", "1d", "AAPL", []domain.EquityPoint{{T: 1, V: 5}}))

	curve, err := store.GetCurve(ctx, "trend", "1d", "MSFT")
	require.NoError(t, err)
	assert.Equal(t, []domain.EquityPoint{{T: 1, V: 10}, {T: 2, V: 11}}, curve)

	symbols, err := store.ListSymbols(ctx, "trend", "1d")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	_, err = store.GetCurve(ctx, "trend", "1d", "NVDA")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.InsertBulk(ctx, "trend", "1d", "MSFT", []domain.EquityPoint{{T: 2, V: 1}})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
