package postgres

import (
	"context"
	"fmt"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, asset_id, side, token_amount, lovelace_amount,
	price, trader_address, settlement_tx, head_port, ts
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.TradeID == "" || t.AssetID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trades (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.AssetID, string(t.Side), t.TokenAmount, t.LovelaceAmount,
		t.Price, t.TraderAddress, t.SettlementTx, t.HeadPort, t.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by id. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.Trade, error) {
	if tradeID == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `SELECT ` + tradeColumns + ` FROM trades WHERE trade_id = $1`

	t, err := scanTrade(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByAssetID retrieves all trades for a token, ordered by timestamp ASC.
func (s *TradeStore) GetByAssetID(ctx context.Context, assetID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE asset_id = $1
		ORDER BY ts ASC, trade_id ASC
	`
	return s.queryTrades(ctx, query, assetID)
}

// GetByTrader retrieves all trades for a trader address, ordered by timestamp ASC.
func (s *TradeStore) GetByTrader(ctx context.Context, trader string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE trader_address = $1
		ORDER BY ts ASC, trade_id ASC
	`
	return s.queryTrades(ctx, query, trader)
}

func (s *TradeStore) queryTrades(ctx context.Context, query string, arg any) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var result []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return result, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var t domain.Trade
	var side string
	if err := row.Scan(
		&t.TradeID, &t.AssetID, &side, &t.TokenAmount, &t.LovelaceAmount,
		&t.Price, &t.TraderAddress, &t.SettlementTx, &t.HeadPort, &t.Timestamp,
	); err != nil {
		return nil, err
	}
	t.Side = domain.TradeSide(side)
	return &t, nil
}
