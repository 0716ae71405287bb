package memory

import (
	"context"
	"sort"
	"sync"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by trade id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" || t.AssetID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.TradeID] = &copy
	return nil
}

// GetByID retrieves a trade by id.
func (s *TradeStore) GetByID(_ context.Context, tradeID string) (*domain.Trade, error) {
	if tradeID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[tradeID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetByAssetID retrieves all trades for a token, ordered by timestamp ASC.
func (s *TradeStore) GetByAssetID(_ context.Context, assetID string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.AssetID == assetID {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortTrades(result)
	return result, nil
}

// GetByTrader retrieves all trades for a trader address, ordered by timestamp ASC.
func (s *TradeStore) GetByTrader(_ context.Context, trader string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.TraderAddress == trader {
			copy := *t
			result = append(result, &copy)
		}
	}

	sortTrades(result)
	return result, nil
}

// sortTrades orders trades by timestamp ASC, trade id ASC for determinism.
func sortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		return trades[i].TradeID < trades[j].TradeID
	})
}
