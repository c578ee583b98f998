package memory

import (
	"context"
	"sort"
	"sync"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// ClosedTradeStore is an in-memory implementation of storage.ClosedTradeStore.
type ClosedTradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ClosedTrade // keyed by trade_id
}

// NewClosedTradeStore creates a new in-memory closed trade store.
func NewClosedTradeStore() *ClosedTradeStore {
	return &ClosedTradeStore{
		data: make(map[string]*domain.ClosedTrade),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if exists.
func (s *ClosedTradeStore) Insert(_ context.Context, t *domain.ClosedTrade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[t.TradeID] = copyTrade(t)
	return nil
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *ClosedTradeStore) InsertBulk(_ context.Context, trades []*domain.ClosedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TradeID] = struct{}{}
	}

	for _, t := range trades {
		s.data[t.TradeID] = copyTrade(t)
	}
	return nil
}

// GetByAccount retrieves trades for an account exited within [start, end] (inclusive).
func (s *ClosedTradeStore) GetByAccount(_ context.Context, account string, start, end int64) ([]*domain.ClosedTrade, error) {
	return s.filter(func(t *domain.ClosedTrade) bool {
		return t.Account == account && t.ExitTimestamp >= start && t.ExitTimestamp <= end
	}), nil
}

// GetBySymbolTimeframe retrieves all trades for a symbol/timeframe.
func (s *ClosedTradeStore) GetBySymbolTimeframe(_ context.Context, symbol, timeframe string) ([]*domain.ClosedTrade, error) {
	return s.filter(func(t *domain.ClosedTrade) bool {
		return t.Symbol == symbol && t.Timeframe == timeframe
	}), nil
}

func (s *ClosedTradeStore) filter(match func(*domain.ClosedTrade) bool) []*domain.ClosedTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClosedTrade
	for _, t := range s.data {
		if match(t) {
			result = append(result, copyTrade(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ExitTimestamp != result[j].ExitTimestamp {
			return result[i].ExitTimestamp < result[j].ExitTimestamp
		}
		return result[i].TradeID < result[j].TradeID
	})
	return result
}

// copyTrade deep-copies nullable fields so callers cannot mutate stored state.
func copyTrade(t *domain.ClosedTrade) *domain.ClosedTrade {
	c := *t
	if t.CapitalAtEntry != nil {
		v := *t.CapitalAtEntry
		c.CapitalAtEntry = &v
	}
	if t.RMultiple != nil {
		v := *t.RMultiple
		c.RMultiple = &v
	}
	return &c
}

var _ storage.ClosedTradeStore = (*ClosedTradeStore)(nil)
