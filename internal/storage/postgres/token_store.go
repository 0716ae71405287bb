package postgres

import (
	"context"
	"fmt"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// Insert adds a new token. Returns ErrDuplicateKey if the asset id exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.Token) error {
	if t == nil || t.PolicyID == "" || t.AssetName == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (
			asset_id, policy_id, asset_name, ticker, total_supply,
			decimals, owner_key_hash, creation_tx, content_id, stage, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		t.AssetID(), t.PolicyID, t.AssetName, t.Ticker, t.TotalSupply,
		t.Decimals, t.OwnerKeyHash, t.CreationTx, t.ContentID, string(t.Stage), t.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByAssetID retrieves a token by asset id. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByAssetID(ctx context.Context, assetID string) (*domain.Token, error) {
	if assetID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT policy_id, asset_name, ticker, total_supply, decimals,
		       owner_key_hash, creation_tx, content_id, stage, created_at
		FROM tokens
		WHERE asset_id = $1
	`

	var t domain.Token
	var stage string
	err := s.pool.QueryRow(ctx, query, assetID).Scan(
		&t.PolicyID, &t.AssetName, &t.Ticker, &t.TotalSupply, &t.Decimals,
		&t.OwnerKeyHash, &t.CreationTx, &t.ContentID, &stage, &t.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by asset id: %w", err)
	}

	t.Stage = domain.TokenStage(stage)
	return &t, nil
}

// List retrieves up to limit tokens ordered by creation time DESC.
func (s *TokenStore) List(ctx context.Context, limit int) ([]*domain.Token, error) {
	query := `
		SELECT policy_id, asset_name, ticker, total_supply, decimals,
		       owner_key_hash, creation_tx, content_id, stage, created_at
		FROM tokens
		ORDER BY created_at DESC, asset_id ASC
		LIMIT $1
	`
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var result []*domain.Token
	for rows.Next() {
		var t domain.Token
		var stage string
		if err := rows.Scan(
			&t.PolicyID, &t.AssetName, &t.Ticker, &t.TotalSupply, &t.Decimals,
			&t.OwnerKeyHash, &t.CreationTx, &t.ContentID, &stage, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		t.Stage = domain.TokenStage(stage)
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return result, nil
}

// UpdateStage transitions a token's lifecycle stage.
func (s *TokenStore) UpdateStage(ctx context.Context, assetID string, stage domain.TokenStage) error {
	if assetID == "" || stage == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tokens SET stage = $2 WHERE asset_id = $1`,
		assetID, string(stage),
	)
	if err != nil {
		return fmt.Errorf("update token stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
