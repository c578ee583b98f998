package memory

import (
	"context"
	"sort"
	"sync"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// DailyCloseStore is an in-memory implementation of storage.DailyCloseStore.
type DailyCloseStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailyClose // keyed by (symbol, timestamp_ms)
}

// NewDailyCloseStore creates a new in-memory daily close store.
func NewDailyCloseStore() *DailyCloseStore {
	return &DailyCloseStore{
		data: make(map[string]*domain.DailyClose),
	}
}

// InsertBulk adds multiple closes. Fails entire batch on duplicate.
func (s *DailyCloseStore) InsertBulk(_ context.Context, closes []*domain.DailyClose) error {
	if len(closes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(closes))
	for _, c := range closes {
		if c == nil || c.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(c.Symbol, c.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, c := range closes {
		closeCopy := *c
		s.data[barKey(c.Symbol, c.TimestampMs)] = &closeCopy
	}
	return nil
}

// GetByTimeRange retrieves closes for a symbol within [start, end] (inclusive).
func (s *DailyCloseStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.DailyClose, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyClose
	for _, c := range s.data {
		if c.Symbol == symbol && c.TimestampMs >= start && c.TimestampMs <= end {
			closeCopy := *c
			result = append(result, &closeCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

var _ storage.DailyCloseStore = (*DailyCloseStore)(nil)
