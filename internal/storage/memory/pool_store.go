package memory

import (
	"context"
	"sort"
	"sync"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Pool // keyed by asset id
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{
		data: make(map[string]*domain.Pool),
	}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Insert adds a new pool. Returns ErrDuplicateKey if the asset id exists.
func (s *PoolStore) Insert(_ context.Context, p *domain.Pool) error {
	if p == nil || p.AssetID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.AssetID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[p.AssetID] = &copy
	return nil
}

// GetByAssetID retrieves a pool by asset id.
func (s *PoolStore) GetByAssetID(_ context.Context, assetID string) (*domain.Pool, error) {
	if assetID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[assetID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *p
	return &copy, nil
}

// Update replaces the stored pool state.
func (s *PoolStore) Update(_ context.Context, p *domain.Pool) error {
	if p == nil || p.AssetID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[p.AssetID]; !ok {
		return storage.ErrNotFound
	}

	copy := *p
	s.data[p.AssetID] = &copy
	return nil
}

// List retrieves up to limit pools, ordered by asset id for determinism.
func (s *PoolStore) List(_ context.Context, limit int) ([]*domain.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Pool, 0, len(s.data))
	for _, p := range s.data {
		copy := *p
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AssetID < result[j].AssetID
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}
