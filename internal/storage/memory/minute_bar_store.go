package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// MinuteBarStore is an in-memory implementation of storage.MinuteBarStore.
type MinuteBarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Bar // keyed by (symbol, timestamp_ms)
}

// NewMinuteBarStore creates a new in-memory minute bar store.
func NewMinuteBarStore() *MinuteBarStore {
	return &MinuteBarStore{
		data: make(map[string]*domain.Bar),
	}
}

func barKey(symbol string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", symbol, timestampMs)
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *MinuteBarStore) InsertBulk(_ context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bars))
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(b.Symbol, b.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, b := range bars {
		barCopy := *b
		s.data[barKey(b.Symbol, b.TimestampMs)] = &barCopy
	}
	return nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *MinuteBarStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for _, b := range s.data {
		if b.Symbol == symbol && b.TimestampMs >= start && b.TimestampMs <= end {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

var _ storage.MinuteBarStore = (*MinuteBarStore)(nil)
