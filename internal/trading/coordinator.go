// Package trading executes trades against bonding-curve pools: quoting,
// slippage enforcement, L1 direct settlement or L2 channel settlement, and
// post-confirmation recording.
package trading

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"hydra-launchpad/internal/curve"
	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/head"
	"hydra-launchpad/internal/idhash"
	"hydra-launchpad/internal/observability"
	"hydra-launchpad/internal/storage"
)

// ErrSlippageExceeded is returned when the quoted average price deviates
// from the pre-trade spot price beyond the caller's bound. Raised before
// any settlement attempt.
var ErrSlippageExceeded = errors.New("trading: price impact exceeds slippage bound")

// ErrSignerRequired is returned for channel-settled trades without a signer.
var ErrSignerRequired = errors.New("trading: channel settlement requires a signer")

// Signer signs an unsigned channel transaction on the trader's behalf.
type Signer func(unsigned []byte) (signed []byte, err error)

// Reporter receives every committed trade exactly once, after settlement
// confirmation. The data-serving API registers trades through this.
type Reporter interface {
	ReportTrade(ctx context.Context, trade *domain.Trade, pool *domain.Pool) error
}

// Result is the outcome of an executed trade.
type Result struct {
	Trade *domain.Trade
	Pool  *domain.Pool // post-trade pool snapshot
	Quote *curve.Quote
}

// Coordinator executes trades. Concurrent trades against one pool
// serialize on a per-pool lock so no two trades observe the same pre-trade
// supply; ordering between them is commit order.
type Coordinator struct {
	tokens   storage.TokenStore
	pools    storage.PoolStore
	trades   storage.TradeStore
	ticks    storage.TradeTickStore
	head     head.Client
	reporter Reporter
	logger   *log.Logger

	mu        sync.Mutex
	poolLocks map[string]*sync.Mutex
	directSeq atomic.Uint64
}

// NewCoordinator creates a trade coordinator. reporter may be nil when no
// data API is attached; headClient may be nil when every pool trades on L1.
func NewCoordinator(
	tokens storage.TokenStore,
	pools storage.PoolStore,
	trades storage.TradeStore,
	ticks storage.TradeTickStore,
	headClient head.Client,
	reporter Reporter,
	logger *log.Logger,
) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Coordinator{
		tokens:    tokens,
		pools:     pools,
		trades:    trades,
		ticks:     ticks,
		head:      headClient,
		reporter:  reporter,
		logger:    logger,
		poolLocks: make(map[string]*sync.Mutex),
	}
}

// poolLock returns the exclusive section guarding one pool's supply.
func (c *Coordinator) poolLock(assetID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.poolLocks[assetID]
	if !ok {
		lock = &sync.Mutex{}
		c.poolLocks[assetID] = lock
	}
	return lock
}

// Trade quotes and settles a trade. The quote is checked against
// maxSlippageBps before any settlement attempt; a rejected trade leaves no
// record and no pool mutation. On success the Trade record and the pool
// mutation commit together: a Trade exists if and only if its settlement
// succeeded.
func (c *Coordinator) Trade(
	ctx context.Context,
	assetID string,
	side domain.TradeSide,
	amount int64,
	traderAddress string,
	maxSlippageBps int64,
	signer Signer,
) (*Result, error) {
	lock := c.poolLock(assetID)
	lock.Lock()
	defer lock.Unlock()

	pool, err := c.pools.GetByAssetID(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("load pool %s: %w", assetID, err)
	}
	token, err := c.tokens.GetByAssetID(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("load token %s: %w", assetID, err)
	}

	quote, err := curve.QuoteTrade(pool, token.TotalSupply, side, amount)
	if err != nil {
		observability.RecordTradeRejected("curve")
		return nil, err
	}

	if quote.PriceImpactBps > float64(maxSlippageBps) {
		observability.RecordTradeRejected("slippage")
		return nil, fmt.Errorf("%w: impact %.1f bps, bound %d bps",
			ErrSlippageExceeded, quote.PriceImpactBps, maxSlippageBps)
	}

	start := time.Now()
	var settlementTx, layer string
	if pool.OnHead() {
		layer = "l2"
		settlementTx, err = c.settleOnChannel(ctx, pool, side, amount, traderAddress, quote, signer)
	} else {
		layer = "l1"
		settlementTx, err = c.settleDirect()
	}
	if err != nil {
		return nil, err
	}
	observability.RecordSettlementLatency(layer, time.Since(start).Seconds())

	now := time.Now().UnixMilli()
	applyTrade(pool, side, amount, quote.Lovelace, now)
	price := curve.CurrentPrice(pool)

	trade := &domain.Trade{
		TradeID:        idhash.ComputeTradeID(assetID, traderAddress, string(side), amount, settlementTx),
		AssetID:        assetID,
		Side:           side,
		TokenAmount:    amount,
		LovelaceAmount: quote.Lovelace,
		Price:          price,
		TraderAddress:  traderAddress,
		SettlementTx:   settlementTx,
		HeadPort:       pool.HeadPort,
		Timestamp:      now,
	}

	if err := c.recordTrade(ctx, trade, pool, now); err != nil {
		return nil, err
	}

	observability.RecordTradeExecuted(string(side), layer, quote.Lovelace)
	c.logger.Printf("trade settled: asset=%s side=%s amount=%d lovelace=%d layer=%s",
		assetID, side, amount, quote.Lovelace, layer)

	if c.reporter != nil {
		if err := c.reporter.ReportTrade(ctx, trade, pool); err != nil {
			// The trade is already committed; registration is not retried
			// here to keep delivery at most once.
			c.logger.Printf("report trade %s: %v", trade.TradeID, err)
		}
	}

	return &Result{Trade: trade, Pool: pool, Quote: quote}, nil
}

// settleDirect settles on L1: the pool-state update itself is the
// settlement, applied atomically under the pool lock. The returned
// reference is a process-unique marker distinguishing otherwise identical
// trades in the trade id.
func (c *Coordinator) settleDirect() (string, error) {
	return fmt.Sprintf("direct-%d-%d", time.Now().UnixMilli(), c.directSeq.Add(1)), nil
}

// settleOnChannel settles inside the pool's head: the trader signs the
// channel transaction and nothing is recorded until the channel confirms it.
func (c *Coordinator) settleOnChannel(
	ctx context.Context,
	pool *domain.Pool,
	side domain.TradeSide,
	amount int64,
	traderAddress string,
	quote *curve.Quote,
	signer Signer,
) (string, error) {
	if signer == nil {
		return "", ErrSignerRequired
	}

	unsigned, err := c.head.BuildTransferTransaction(ctx, &head.TransferSpec{
		ChannelID:   pool.HeadPort,
		Trader:      traderAddress,
		AssetID:     pool.AssetID,
		Side:        side,
		TokenAmount: amount,
		Lovelace:    quote.Lovelace,
	})
	if err != nil {
		return "", fmt.Errorf("build transfer transaction: %w", err)
	}

	signed, err := signer(unsigned)
	if err != nil {
		return "", fmt.Errorf("sign transfer transaction: %w", err)
	}

	txRef, err := c.head.SubmitSigned(ctx, pool.HeadPort, signed)
	if err != nil {
		return "", fmt.Errorf("submit transfer to channel %d: %w", pool.HeadPort, err)
	}
	if err := c.head.AwaitTxConfirmation(ctx, pool.HeadPort, txRef); err != nil {
		return "", fmt.Errorf("await transfer confirmation: %w", err)
	}
	return txRef, nil
}

// applyTrade mutates the pool for a settled trade.
func applyTrade(pool *domain.Pool, side domain.TradeSide, amount, lovelace, now int64) {
	switch side {
	case domain.TradeSideBuy:
		pool.CurrentSupply += amount
		pool.ADARaised += lovelace
	case domain.TradeSideSell:
		pool.CurrentSupply -= amount
		pool.ADARaised -= lovelace
	}
	pool.UpdatedAt = now
}

// recordTrade commits the trade and the mutated pool together, then folds
// the trade into the tick timeseries and refreshes the 24h aggregates.
func (c *Coordinator) recordTrade(ctx context.Context, trade *domain.Trade, pool *domain.Pool, now int64) error {
	if err := c.trades.Insert(ctx, trade); err != nil {
		return fmt.Errorf("record trade %s: %w", trade.TradeID, err)
	}

	tick := &domain.TradeTick{
		AssetID:   trade.AssetID,
		Timestamp: now,
		Price:     trade.Price,
		Lovelace:  trade.LovelaceAmount,
		Side:      trade.Side,
	}
	if err := c.ticks.InsertBulk(ctx, []*domain.TradeTick{tick}); err != nil {
		c.logger.Printf("record tick for %s: %v", trade.AssetID, err)
	} else if stats, err := c.dayStats(ctx, trade.AssetID, now); err != nil {
		c.logger.Printf("refresh aggregates for %s: %v", trade.AssetID, err)
	} else {
		pool.Volume24h = stats.VolumeLovelace
		pool.PriceChange24h = stats.PriceChange
	}

	if err := c.pools.Update(ctx, pool); err != nil {
		return fmt.Errorf("update pool %s: %w", pool.AssetID, err)
	}
	return nil
}

func (c *Coordinator) dayStats(ctx context.Context, assetID string, now int64) (curve.DayStats, error) {
	ticks, err := c.ticks.GetByTimeRange(ctx, assetID, now-curve.Window24h, now)
	if err != nil {
		return curve.DayStats{}, err
	}
	return curve.ComputeDayStats(ticks, now), nil
}
