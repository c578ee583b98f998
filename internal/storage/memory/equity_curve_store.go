package memory

import (
	"context"
	"sort"
	"sync"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// curveKey identifies one per-symbol curve.
type curveKey struct {
	engine  string
	horizon string
	symbol  string
}

// EquityCurveStore is an in-memory implementation of storage.EquityCurveStore.
type EquityCurveStore struct {
	mu   sync.RWMutex
	data map[curveKey]map[int64]float64 // curve -> timestamp -> value
}

// NewEquityCurveStore creates a new in-memory equity curve store.
func NewEquityCurveStore() *EquityCurveStore {
	return &EquityCurveStore{
		data: make(map[curveKey]map[int64]float64),
	}
}

// InsertBulk appends points to a curve. Fails entire batch on duplicate timestamp.
func (s *EquityCurveStore) InsertBulk(_ context.Context, engine, horizon, symbol string, points []domain.EquityPoint) error {
	if engine == "" || horizon == "" || symbol == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	key := curveKey{engine: engine, horizon: horizon, symbol: symbol}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[key]
	batch := make(map[int64]struct{}, len(points))
	for _, p := range points {
		if _, exists := existing[p.T]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[p.T]; exists {
			return storage.ErrDuplicateKey
		}
		batch[p.T] = struct{}{}
	}

	if existing == nil {
		existing = make(map[int64]float64, len(points))
		s.data[key] = existing
	}
	for _, p := range points {
		existing[p.T] = p.V
	}
	return nil
}

// GetCurve retrieves a curve ordered by timestamp ASC. Returns ErrNotFound if empty.
func (s *EquityCurveStore) GetCurve(_ context.Context, engine, horizon, symbol string) ([]domain.EquityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := s.data[curveKey{engine: engine, horizon: horizon, symbol: symbol}]
	if len(values) == 0 {
		return nil, storage.ErrNotFound
	}

	result := make([]domain.EquityPoint, 0, len(values))
	for t, v := range values {
		result = append(result, domain.EquityPoint{T: t, V: v})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].T < result[j].T
	})
	return result, nil
}

// ListSymbols returns the symbols with a curve for (engine, horizon), sorted ASC.
func (s *EquityCurveStore) ListSymbols(_ context.Context, engine, horizon string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []string
	for k, values := range s.data {
		if k.engine == engine && k.horizon == horizon && len(values) > 0 {
			result = append(result, k.symbol)
		}
	}
	sort.Strings(result)
	return result, nil
}

var _ storage.EquityCurveStore = (*EquityCurveStore)(nil)
