package memory

import (
	"context"
	"fmt"
	"sync"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

// SplitRecoveryStore is an in-memory implementation of storage.SplitRecoveryStore.
type SplitRecoveryStore struct {
	mu     sync.RWMutex
	byAddr map[string]*domain.SplitRecovery // keyed by address|channel
	byID   map[string]string                // allocation id -> address|channel key
}

// NewSplitRecoveryStore creates a new in-memory split recovery store.
func NewSplitRecoveryStore() *SplitRecoveryStore {
	return &SplitRecoveryStore{
		byAddr: make(map[string]*domain.SplitRecovery),
		byID:   make(map[string]string),
	}
}

// Compile-time interface check.
var _ storage.SplitRecoveryStore = (*SplitRecoveryStore)(nil)

// recoveryKey generates the (address, channel) composite key.
func recoveryKey(address string, channelID int) string {
	return fmt.Sprintf("%s|%d", address, channelID)
}

// Insert adds a new recovery record.
// Returns ErrDuplicateKey if one exists for (address, channel_id).
func (s *SplitRecoveryStore) Insert(_ context.Context, r *domain.SplitRecovery) error {
	if r == nil || r.AllocationID == "" || r.Address == "" {
		return storage.ErrInvalidInput
	}

	key := recoveryKey(r.Address, r.ChannelID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddr[key]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byID[r.AllocationID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	copy.Target = r.Target.Clone()
	copy.FullyWithdrawn = append([]string(nil), r.FullyWithdrawn...)
	s.byAddr[key] = &copy
	s.byID[r.AllocationID] = key
	return nil
}

// Get retrieves the recovery record for (address, channelID).
func (s *SplitRecoveryStore) Get(_ context.Context, address string, channelID int) (*domain.SplitRecovery, error) {
	if address == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byAddr[recoveryKey(address, channelID)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *r
	copy.Target = r.Target.Clone()
	copy.FullyWithdrawn = append([]string(nil), r.FullyWithdrawn...)
	return &copy, nil
}

// UpdatePhase transitions a recovery record's phase.
func (s *SplitRecoveryStore) UpdatePhase(_ context.Context, allocationID string, phase domain.SplitPhase) error {
	if allocationID == "" || phase == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[allocationID]
	if !ok {
		return storage.ErrNotFound
	}

	s.byAddr[key].Phase = phase
	return nil
}

// Delete removes a completed recovery record.
func (s *SplitRecoveryStore) Delete(_ context.Context, allocationID string) error {
	if allocationID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[allocationID]
	if !ok {
		return storage.ErrNotFound
	}

	delete(s.byAddr, key)
	delete(s.byID, allocationID)
	return nil
}
