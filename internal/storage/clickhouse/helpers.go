package clickhouse

import (
	"context"
	"fmt"
	"time"

	"equity-lab/internal/observability"
)

// symbolTs keys symbol-scoped time series rows.
type symbolTs struct {
	symbol      string
	timestampMs int64
}

// anyExists reports whether table already holds a row for symbol at any of timestamps.
// MergeTree does not enforce uniqueness, so append-only semantics are checked here.
func anyExists(ctx context.Context, conn *Conn, table, symbol string, timestamps []int64) (bool, error) {
	ts := make([]uint64, len(timestamps))
	for i, t := range timestamps {
		ts[i] = uint64(t)
	}

	query := fmt.Sprintf(`
		SELECT count(*) FROM %s
		WHERE symbol = ? AND timestamp_ms IN ?
	`, table)

	var count uint64
	if err := conn.QueryRow(ctx, query, symbol, ts).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// clampUint converts a millisecond bound to the UInt64 column domain.
func clampUint(ms int64) uint64 {
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

func observe(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), *err)
}
