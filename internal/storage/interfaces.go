package storage

import (
	"context"

	"hydra-launchpad/internal/domain"
)

// TokenStore provides access to token records.
type TokenStore interface {
	// Insert adds a new token. Returns ErrDuplicateKey if the asset id exists.
	Insert(ctx context.Context, t *domain.Token) error

	// GetByAssetID retrieves a token by asset id. Returns ErrNotFound if not exists.
	GetByAssetID(ctx context.Context, assetID string) (*domain.Token, error)

	// List retrieves up to limit tokens ordered by creation time DESC.
	List(ctx context.Context, limit int) ([]*domain.Token, error)

	// UpdateStage transitions a token's lifecycle stage.
	// Returns ErrNotFound if the token does not exist.
	UpdateStage(ctx context.Context, assetID string, stage domain.TokenStage) error
}

// PoolStore provides access to pool state. Pool state is the one piece of
// core-owned mutable shared state; callers serialize mutation per pool.
type PoolStore interface {
	// Insert adds a new pool. Returns ErrDuplicateKey if the asset id exists.
	Insert(ctx context.Context, p *domain.Pool) error

	// GetByAssetID retrieves a pool by asset id. Returns ErrNotFound if not exists.
	GetByAssetID(ctx context.Context, assetID string) (*domain.Pool, error)

	// Update replaces the stored pool state.
	// Returns ErrNotFound if the pool does not exist.
	Update(ctx context.Context, p *domain.Pool) error

	// List retrieves up to limit pools.
	List(ctx context.Context, limit int) ([]*domain.Pool, error)
}

// TradeStore provides access to executed trades. Trades are append-only.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// GetByID retrieves a trade by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByAssetID retrieves all trades for a token, ordered by timestamp ASC.
	GetByAssetID(ctx context.Context, assetID string) ([]*domain.Trade, error)

	// GetByTrader retrieves all trades for a trader address, ordered by timestamp ASC.
	GetByTrader(ctx context.Context, trader string) ([]*domain.Trade, error)
}

// SplitRecoveryStore persists the phase-1 markers of two-phase decommits so
// phase 2 can be retried without re-running the split.
type SplitRecoveryStore interface {
	// Insert adds a new recovery record.
	// Returns ErrDuplicateKey if one exists for (address, channel_id).
	Insert(ctx context.Context, r *domain.SplitRecovery) error

	// Get retrieves the recovery record for (address, channelID).
	// Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string, channelID int) (*domain.SplitRecovery, error)

	// UpdatePhase transitions a recovery record's phase.
	// Returns ErrNotFound if the record does not exist.
	UpdatePhase(ctx context.Context, allocationID string, phase domain.SplitPhase) error

	// Delete removes a completed recovery record.
	Delete(ctx context.Context, allocationID string) error
}

// TradeTickStore provides access to the trade tick timeseries backing 24h
// volume and price-change aggregates.
type TradeTickStore interface {
	// InsertBulk adds multiple ticks.
	InsertBulk(ctx context.Context, ticks []*domain.TradeTick) error

	// GetByTimeRange retrieves ticks for a token within [start, end]
	// (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, assetID string, start, end int64) ([]*domain.TradeTick, error)
}
