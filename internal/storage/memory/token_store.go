package memory

import (
	"context"
	"sort"
	"sync"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Token // keyed by asset id
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Token),
	}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if the asset id exists.
func (s *TokenStore) Insert(_ context.Context, t *domain.Token) error {
	if t == nil || t.PolicyID == "" || t.AssetName == "" {
		return storage.ErrInvalidInput
	}

	key := t.AssetID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[key] = &copy
	return nil
}

// GetByAssetID retrieves a token by asset id.
func (s *TokenStore) GetByAssetID(_ context.Context, assetID string) (*domain.Token, error) {
	if assetID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[assetID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// List retrieves up to limit tokens ordered by creation time DESC.
func (s *TokenStore) List(_ context.Context, limit int) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Token, 0, len(s.data))
	for _, t := range s.data {
		copy := *t
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].AssetID() < result[j].AssetID()
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// UpdateStage transitions a token's lifecycle stage.
func (s *TokenStore) UpdateStage(_ context.Context, assetID string, stage domain.TokenStage) error {
	if assetID == "" || stage == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[assetID]
	if !ok {
		return storage.ErrNotFound
	}

	t.Stage = stage
	return nil
}
