package memory

import (
	"context"
	"sort"
	"sync"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// ATRSampleStore is an in-memory implementation of storage.ATRSampleStore.
type ATRSampleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ATRSample // keyed by sample_id
}

// NewATRSampleStore creates a new in-memory ATR sample store.
func NewATRSampleStore() *ATRSampleStore {
	return &ATRSampleStore{
		data: make(map[string]*domain.ATRSample),
	}
}

// Insert adds a new sample. Returns ErrDuplicateKey if exists.
func (s *ATRSampleStore) Insert(_ context.Context, sample *domain.ATRSample) error {
	if sample == nil || sample.SampleID == "" || sample.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sample.SampleID]; exists {
		return storage.ErrDuplicateKey
	}

	c := *sample
	if sample.ATR != nil {
		v := *sample.ATR
		c.ATR = &v
	}
	s.data[sample.SampleID] = &c
	return nil
}

// GetRecent returns up to limit non-null ATR values, most recent first.
func (s *ATRSampleStore) GetRecent(_ context.Context, symbol, timeframe string, limit int) ([]float64, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.ATRSample
	for _, sample := range s.data {
		if sample.Symbol == symbol && sample.Timeframe == timeframe && sample.ATR != nil {
			matched = append(matched, sample)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].TimestampMs != matched[j].TimestampMs {
			return matched[i].TimestampMs > matched[j].TimestampMs
		}
		return matched[i].SampleID < matched[j].SampleID
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}

	result := make([]float64, len(matched))
	for i, sample := range matched {
		result[i] = *sample.ATR
	}
	return result, nil
}

var _ storage.ATRSampleStore = (*ATRSampleStore)(nil)
