package postgres

import (
	"context"
	"fmt"
	"time"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// ATRSampleStore implements storage.ATRSampleStore using PostgreSQL.
type ATRSampleStore struct {
	pool *Pool
}

// NewATRSampleStore creates a new ATRSampleStore.
func NewATRSampleStore(pool *Pool) *ATRSampleStore {
	return &ATRSampleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ATRSampleStore = (*ATRSampleStore)(nil)

// Insert adds a new sample. Returns ErrDuplicateKey if sample_id exists.
func (s *ATRSampleStore) Insert(ctx context.Context, sample *domain.ATRSample) (err error) {
	if sample == nil || sample.SampleID == "" || sample.Symbol == "" {
		return storage.ErrInvalidInput
	}
	defer observe("insert_atr_sample", time.Now(), &err)

	query := `
		INSERT INTO atr_samples (sample_id, symbol, timeframe, timestamp_ms, atr)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.pool.Exec(ctx, query,
		sample.SampleID, sample.Symbol, sample.Timeframe, sample.TimestampMs, sample.ATR,
	)
	if err != nil {
		return insertError("insert atr sample", err)
	}
	return nil
}

// GetRecent returns up to limit non-null ATR values, most recent first.
func (s *ATRSampleStore) GetRecent(ctx context.Context, symbol, timeframe string, limit int) (_ []float64, err error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	defer observe("select_atr_samples", time.Now(), &err)

	query := `
		SELECT atr
		FROM atr_samples
		WHERE symbol = $1 AND timeframe = $2 AND atr IS NOT NULL
		ORDER BY timestamp_ms DESC, sample_id ASC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent atr samples: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan atr sample: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate atr samples: %w", err)
	}
	return values, nil
}
