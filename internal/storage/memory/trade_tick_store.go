package memory

import (
	"context"
	"sort"
	"sync"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

// TradeTickStore is an in-memory implementation of storage.TradeTickStore.
type TradeTickStore struct {
	mu   sync.RWMutex
	data []*domain.TradeTick
}

// NewTradeTickStore creates a new in-memory trade tick store.
func NewTradeTickStore() *TradeTickStore {
	return &TradeTickStore{}
}

// Compile-time interface check.
var _ storage.TradeTickStore = (*TradeTickStore)(nil)

// InsertBulk adds multiple ticks.
func (s *TradeTickStore) InsertBulk(_ context.Context, ticks []*domain.TradeTick) error {
	if len(ticks) == 0 {
		return nil
	}

	for _, tick := range ticks {
		if tick == nil || tick.AssetID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tick := range ticks {
		copy := *tick
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetByTimeRange retrieves ticks for a token within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *TradeTickStore) GetByTimeRange(_ context.Context, assetID string, start, end int64) ([]*domain.TradeTick, error) {
	if assetID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeTick
	for _, tick := range s.data {
		if tick.AssetID == assetID && tick.Timestamp >= start && tick.Timestamp <= end {
			copy := *tick
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}
