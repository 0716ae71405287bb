package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

// SplitRecoveryStore implements storage.SplitRecoveryStore using PostgreSQL.
// This is the persisted recovery state behind two-phase decommits: a row
// exists exactly while a split allocation awaits its decommit.
type SplitRecoveryStore struct {
	pool *Pool
}

// NewSplitRecoveryStore creates a new SplitRecoveryStore.
func NewSplitRecoveryStore(pool *Pool) *SplitRecoveryStore {
	return &SplitRecoveryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SplitRecoveryStore = (*SplitRecoveryStore)(nil)

// Insert adds a new recovery record.
// Returns ErrDuplicateKey if one exists for (address, channel_id).
func (s *SplitRecoveryStore) Insert(ctx context.Context, r *domain.SplitRecovery) error {
	if r == nil || r.AllocationID == "" || r.Address == "" {
		return storage.ErrInvalidInput
	}

	assets, err := json.Marshal(r.Target.Assets)
	if err != nil {
		return fmt.Errorf("marshal target assets: %w", err)
	}
	withdrawn, err := json.Marshal(r.FullyWithdrawn)
	if err != nil {
		return fmt.Errorf("marshal fully withdrawn units: %w", err)
	}

	query := `
		INSERT INTO split_recovery (
			allocation_id, address, channel_id, target_lovelace,
			target_assets, fully_withdrawn, phase, split_tx, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		r.AllocationID, r.Address, r.ChannelID, r.Target.Lovelace,
		assets, withdrawn, string(r.Phase), r.SplitTx, r.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert split recovery: %w", err)
	}
	return nil
}

// Get retrieves the recovery record for (address, channelID).
func (s *SplitRecoveryStore) Get(ctx context.Context, address string, channelID int) (*domain.SplitRecovery, error) {
	if address == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT allocation_id, address, channel_id, target_lovelace,
		       target_assets, fully_withdrawn, phase, split_tx, updated_at
		FROM split_recovery
		WHERE address = $1 AND channel_id = $2
	`

	var r domain.SplitRecovery
	var assets, withdrawn []byte
	var phase string
	err := s.pool.QueryRow(ctx, query, address, channelID).Scan(
		&r.AllocationID, &r.Address, &r.ChannelID, &r.Target.Lovelace,
		&assets, &withdrawn, &phase, &r.SplitTx, &r.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get split recovery: %w", err)
	}

	if err := json.Unmarshal(assets, &r.Target.Assets); err != nil {
		return nil, fmt.Errorf("unmarshal target assets: %w", err)
	}
	if err := json.Unmarshal(withdrawn, &r.FullyWithdrawn); err != nil {
		return nil, fmt.Errorf("unmarshal fully withdrawn units: %w", err)
	}
	r.Phase = domain.SplitPhase(phase)
	return &r, nil
}

// UpdatePhase transitions a recovery record's phase.
func (s *SplitRecoveryStore) UpdatePhase(ctx context.Context, allocationID string, phase domain.SplitPhase) error {
	if allocationID == "" || phase == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE split_recovery SET phase = $2 WHERE allocation_id = $1`,
		allocationID, string(phase),
	)
	if err != nil {
		return fmt.Errorf("update split recovery phase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a completed recovery record.
func (s *SplitRecoveryStore) Delete(ctx context.Context, allocationID string) error {
	if allocationID == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM split_recovery WHERE allocation_id = $1`,
		allocationID,
	)
	if err != nil {
		return fmt.Errorf("delete split recovery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
