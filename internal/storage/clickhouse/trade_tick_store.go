package clickhouse

import (
	"context"
	"fmt"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

// TradeTickStore implements storage.TradeTickStore using ClickHouse.
type TradeTickStore struct {
	conn *Conn
}

// NewTradeTickStore creates a new TradeTickStore.
func NewTradeTickStore(conn *Conn) *TradeTickStore {
	return &TradeTickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeTickStore = (*TradeTickStore)(nil)

// InsertBulk adds multiple ticks. Ticks are append-only projections of
// settled trades, so no duplicate detection is performed.
func (s *TradeTickStore) InsertBulk(ctx context.Context, ticks []*domain.TradeTick) error {
	if len(ticks) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_ticks (
			asset_id, timestamp_ms, price, lovelace, side
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		err = batch.Append(
			t.AssetID, uint64(t.Timestamp), t.Price, t.Lovelace, string(t.Side),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves ticks for a token within [start, end] (inclusive).
func (s *TradeTickStore) GetByTimeRange(ctx context.Context, assetID string, start, end int64) ([]*domain.TradeTick, error) {
	query := `
		SELECT asset_id, timestamp_ms, price, lovelace, side
		FROM trade_ticks
		WHERE asset_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, assetID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTradeTicks(rows)
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanTradeTicks scans multiple rows.
func scanTradeTicks(rows chRows) ([]*domain.TradeTick, error) {
	var ticks []*domain.TradeTick

	for rows.Next() {
		var t domain.TradeTick
		var timestampMs uint64
		var side string

		err := rows.Scan(&t.AssetID, &timestampMs, &t.Price, &t.Lovelace, &side)
		if err != nil {
			return nil, fmt.Errorf("scan trade tick row: %w", err)
		}

		t.Timestamp = int64(timestampMs)
		t.Side = domain.TradeSide(side)
		ticks = append(ticks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade tick rows: %w", err)
	}

	return ticks, nil
}
