package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"equity-lab/internal/domain"
	"equity-lab/internal/storage"
)

// EquitySnapshotStore is an in-memory implementation of storage.EquitySnapshotStore.
type EquitySnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.EquitySnapshot // keyed by (account, timestamp_ms)
}

// NewEquitySnapshotStore creates a new in-memory equity snapshot store.
func NewEquitySnapshotStore() *EquitySnapshotStore {
	return &EquitySnapshotStore{
		data: make(map[string]*domain.EquitySnapshot),
	}
}

func snapshotKey(account string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", account, timestampMs)
}

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate.
func (s *EquitySnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.EquitySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.Account == "" {
			return storage.ErrInvalidInput
		}
		key := snapshotKey(snap.Account, snap.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, snap := range snapshots {
		snapCopy := *snap
		s.data[snapshotKey(snap.Account, snap.TimestampMs)] = &snapCopy
	}
	return nil
}

// GetByTimeRange retrieves snapshots for an account within [start, end] (inclusive).
func (s *EquitySnapshotStore) GetByTimeRange(_ context.Context, account string, start, end int64) ([]*domain.EquitySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquitySnapshot
	for _, snap := range s.data {
		if snap.Account == account && snap.TimestampMs >= start && snap.TimestampMs <= end {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

var _ storage.EquitySnapshotStore = (*EquitySnapshotStore)(nil)
