package postgres

import (
	"context"
	"fmt"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

// Insert adds a new pool. Returns ErrDuplicateKey if the asset id exists.
func (s *PoolStore) Insert(ctx context.Context, p *domain.Pool) error {
	if p == nil || p.AssetID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pools (
			asset_id, current_supply, slope, ada_raised,
			volume_24h, price_change_24h, head_port, head_status, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		p.AssetID, p.CurrentSupply, p.Slope, p.ADARaised,
		p.Volume24h, p.PriceChange24h, p.HeadPort, string(p.HeadStatus), p.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// GetByAssetID retrieves a pool by asset id. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByAssetID(ctx context.Context, assetID string) (*domain.Pool, error) {
	if assetID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT asset_id, current_supply, slope, ada_raised,
		       volume_24h, price_change_24h, head_port, head_status, updated_at
		FROM pools
		WHERE asset_id = $1
	`

	var p domain.Pool
	var headStatus string
	err := s.pool.QueryRow(ctx, query, assetID).Scan(
		&p.AssetID, &p.CurrentSupply, &p.Slope, &p.ADARaised,
		&p.Volume24h, &p.PriceChange24h, &p.HeadPort, &headStatus, &p.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by asset id: %w", err)
	}

	p.HeadStatus = domain.HeadStatus(headStatus)
	return &p, nil
}

// Update replaces the stored pool state.
func (s *PoolStore) Update(ctx context.Context, p *domain.Pool) error {
	if p == nil || p.AssetID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE pools
		SET current_supply = $2, slope = $3, ada_raised = $4,
		    volume_24h = $5, price_change_24h = $6,
		    head_port = $7, head_status = $8, updated_at = $9
		WHERE asset_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		p.AssetID, p.CurrentSupply, p.Slope, p.ADARaised,
		p.Volume24h, p.PriceChange24h, p.HeadPort, string(p.HeadStatus), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List retrieves up to limit pools ordered by asset id.
func (s *PoolStore) List(ctx context.Context, limit int) ([]*domain.Pool, error) {
	query := `
		SELECT asset_id, current_supply, slope, ada_raised,
		       volume_24h, price_change_24h, head_port, head_status, updated_at
		FROM pools
		ORDER BY asset_id ASC
		LIMIT $1
	`
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	var result []*domain.Pool
	for rows.Next() {
		var p domain.Pool
		var headStatus string
		if err := rows.Scan(
			&p.AssetID, &p.CurrentSupply, &p.Slope, &p.ADARaised,
			&p.Volume24h, &p.PriceChange24h, &p.HeadPort, &headStatus, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		p.HeadStatus = domain.HeadStatus(headStatus)
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pools: %w", err)
	}
	return result, nil
}
