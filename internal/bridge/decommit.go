package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/head"
	"hydra-launchpad/internal/idhash"
	"hydra-launchpad/internal/observability"
	"hydra-launchpad/internal/selection"
	"hydra-launchpad/internal/storage"
)

// WithdrawAll requests the full withdrawable ADA balance. The coordinator
// resolves it against the channel balance, applying the reserve rule when
// another held token is not fully withdrawn.
const WithdrawAll int64 = -1

// ErrPartialBridgeFailure is returned when phase 1 of a decommit is in the
// channel but phase 2 has not confirmed. The isolated allocation persists
// inside the channel; recovery is RetryDecommit, never a second split.
var ErrPartialBridgeFailure = errors.New("bridge: split accepted, decommit not confirmed")

// ErrNoPendingDecommit is returned by RetryDecommit when no split recovery
// record exists for the address and channel.
var ErrNoPendingDecommit = errors.New("bridge: no pending decommit")

// ErrSplitNotConfirmed is returned by RetryDecommit while phase 1 is still
// awaiting channel confirmation.
var ErrSplitNotConfirmed = errors.New("bridge: split not yet confirmed")

// DecommitCoordinator moves assets from a settlement head back to L1 via
// the two-phase split/decommit protocol. A channel decommits whole
// allocations only, so the requested amounts are first isolated into a
// dedicated allocation (phase 1) and then removed toward L1 (phase 2).
//
// The coordinator undoes the commit-side head assignment: when a token's
// entire channel holding is withdrawn and the decommit confirms, the token
// returns to the MINTED stage and its pool is unbound from the channel so
// trades settle directly again.
type DecommitCoordinator struct {
	head       head.Client
	tokens     storage.TokenStore
	pools      storage.PoolStore
	recoveries storage.SplitRecoveryStore
	logger     *log.Logger
}

// NewDecommitCoordinator creates a decommit coordinator.
func NewDecommitCoordinator(
	headClient head.Client,
	tokens storage.TokenStore,
	pools storage.PoolStore,
	recoveries storage.SplitRecoveryStore,
	logger *log.Logger,
) *DecommitCoordinator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &DecommitCoordinator{
		head:       headClient,
		tokens:     tokens,
		pools:      pools,
		recoveries: recoveries,
		logger:     logger,
	}
}

// Decommit builds the two-phase sign request isolating and removing the
// requested amounts. Building is side-effect free: the split recovery
// marker is persisted by SubmitSigned when submission begins, so a sign
// request that is never submitted leaves no state behind and does not
// block later decommits.
//
// While a submitted decommit's marker exists for (address, channel) the
// call is rejected with ErrPartialBridgeFailure: the pending phase 2 must
// be retried, never shadowed by a second split.
func (c *DecommitCoordinator) Decommit(
	ctx context.Context,
	walletAddress string,
	adaAmount int64,
	tokenAmounts map[string]int64,
	channelID int,
) (*domain.TwoPhaseSignRequest, error) {
	if _, err := c.recoveries.Get(ctx, walletAddress, channelID); err == nil {
		return nil, fmt.Errorf("%w: retry the pending decommit for %s on channel %d",
			ErrPartialBridgeFailure, walletAddress, channelID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check pending decommit: %w", err)
	}

	if adaAmount == WithdrawAll {
		// The sentinel stands in for the lovelace amount only; token
		// quantities are still validated.
		if err := validateTokenAmounts(tokenAmounts); err != nil {
			return nil, err
		}
	} else if err := validateAmounts(adaAmount, tokenAmounts); err != nil {
		return nil, err
	}

	status, err := c.head.Status(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("query channel %d status: %w", channelID, err)
	}
	if status != domain.HeadOpen {
		return nil, fmt.Errorf("%w: channel %d is %s", head.ErrChannelUnavailable, channelID, status)
	}

	allocs, err := c.head.GetChannelBalance(ctx, walletAddress, channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch channel %d balance: %w", channelID, err)
	}
	balance := domain.NewValue(0)
	for _, a := range allocs {
		balance = balance.Add(a.Value)
	}

	if adaAmount == WithdrawAll {
		adaAmount = maxWithdrawableADA(balance, tokenAmounts)
	}

	target := domain.Value{Lovelace: adaAmount, Assets: tokenAmounts}
	if !balance.Covers(target) {
		return nil, channelShortfall(balance, target)
	}

	allocationID := idhash.ComputeAllocationID(walletAddress, channelID, target)
	fullyWithdrawn := fullWithdrawals(balance, target)

	splitTx, err := c.head.BuildSplitTransaction(ctx, &head.SplitSpec{
		ChannelID:    channelID,
		Address:      walletAddress,
		AllocationID: allocationID,
		Target:       target,
	})
	if err != nil {
		return nil, fmt.Errorf("build split transaction: %w", err)
	}

	decommitTx, err := c.head.BuildDecommitTransaction(ctx, &head.DecommitSpec{
		ChannelID:    channelID,
		Address:      walletAddress,
		AllocationID: allocationID,
	})
	if err != nil {
		return nil, fmt.Errorf("build decommit transaction: %w", err)
	}

	c.logger.Printf("decommit built: address=%s channel=%d allocation=%s lovelace=%d",
		walletAddress, channelID, allocationID, adaAmount)

	return &domain.TwoPhaseSignRequest{
		AllocationID: allocationID,
		SplitTx:      splitTx,
		DecommitTx:   decommitTx,
		Request: domain.DecommitRequest{
			Address:        walletAddress,
			Target:         target,
			ChannelID:      channelID,
			FullyWithdrawn: fullyWithdrawn,
		},
	}, nil
}

// SubmitSigned runs both phases of a decommit with the caller's signed
// transactions. The recovery marker is written before phase 1 goes out, so
// a crash between the two submissions leaves the allocation recoverable.
// If phase 1 never reaches the channel the marker is removed and the whole
// operation may be redone; once phase 1 is in, every failure surfaces as
// ErrPartialBridgeFailure and recovery goes through RetryDecommit.
func (c *DecommitCoordinator) SubmitSigned(ctx context.Context, req *domain.TwoPhaseSignRequest, signedSplit, signedDecommit []byte) error {
	channelID := req.Request.ChannelID

	if err := c.recoveries.Insert(ctx, &domain.SplitRecovery{
		AllocationID:   req.AllocationID,
		Address:        req.Request.Address,
		ChannelID:      channelID,
		Target:         req.Request.Target,
		FullyWithdrawn: req.Request.FullyWithdrawn,
		Phase:          domain.SplitPending,
		UpdatedAt:      time.Now().UnixMilli(),
	}); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("%w: retry the pending decommit for %s on channel %d",
				ErrPartialBridgeFailure, req.Request.Address, channelID)
		}
		return fmt.Errorf("persist split recovery: %w", err)
	}

	splitRef, err := c.head.SubmitSigned(ctx, channelID, signedSplit)
	if err != nil {
		observability.RecordDecommit("split", "submit_failed")
		if delErr := c.recoveries.Delete(ctx, req.AllocationID); delErr != nil {
			c.logger.Printf("drop split recovery %s: %v", req.AllocationID, delErr)
		}
		return fmt.Errorf("submit split to channel %d: %w", channelID, err)
	}

	if err := c.head.AwaitTxConfirmation(ctx, channelID, splitRef); err != nil {
		observability.RecordDecommit("split", "unconfirmed")
		return fmt.Errorf("%w: split %s awaiting confirmation: %v",
			ErrPartialBridgeFailure, splitRef, err)
	}

	if err := c.recoveries.UpdatePhase(ctx, req.AllocationID, domain.SplitConfirmed); err != nil {
		return fmt.Errorf("mark split %s confirmed: %w", req.AllocationID, err)
	}
	observability.RecordDecommit("split", "confirmed")

	// The withdrawal is now in flight for tokens leaving the head in full;
	// the stage reverts to MINTED once phase 2 confirms. Failures here do
	// not abort phase 2: the stage is advisory while the saga is running.
	for _, assetID := range req.Request.FullyWithdrawn {
		if err := c.tokens.UpdateStage(ctx, assetID, domain.StageDecommitting); err != nil {
			c.logger.Printf("mark token %s decommitting: %v", assetID, err)
		}
	}

	return c.submitPhase2(ctx, req, signedDecommit)
}

// RetryDecommit rebuilds the phase-2 sign request for a decommit whose
// split already confirmed. Phase 1 is never re-run: the request targets the
// allocation isolated by the original split.
func (c *DecommitCoordinator) RetryDecommit(ctx context.Context, walletAddress string, channelID int) (*domain.TwoPhaseSignRequest, error) {
	rec, err := c.recoveries.Get(ctx, walletAddress, channelID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s on channel %d", ErrNoPendingDecommit, walletAddress, channelID)
	}
	if err != nil {
		return nil, fmt.Errorf("load split recovery: %w", err)
	}
	if rec.Phase == domain.SplitPending {
		return nil, fmt.Errorf("%w: allocation %s", ErrSplitNotConfirmed, rec.AllocationID)
	}

	decommitTx, err := c.head.BuildDecommitTransaction(ctx, &head.DecommitSpec{
		ChannelID:    channelID,
		Address:      walletAddress,
		AllocationID: rec.AllocationID,
	})
	if err != nil {
		return nil, fmt.Errorf("build decommit transaction: %w", err)
	}

	c.logger.Printf("decommit retry built: address=%s channel=%d allocation=%s",
		walletAddress, channelID, rec.AllocationID)

	return &domain.TwoPhaseSignRequest{
		AllocationID: rec.AllocationID,
		DecommitTx:   decommitTx,
		Request: domain.DecommitRequest{
			Address:        walletAddress,
			Target:         rec.Target,
			ChannelID:      channelID,
			FullyWithdrawn: rec.FullyWithdrawn,
		},
	}, nil
}

// SubmitRetry submits the signed phase-2 transaction of a retried decommit.
func (c *DecommitCoordinator) SubmitRetry(ctx context.Context, req *domain.TwoPhaseSignRequest, signedDecommit []byte) error {
	return c.submitPhase2(ctx, req, signedDecommit)
}

func (c *DecommitCoordinator) submitPhase2(ctx context.Context, req *domain.TwoPhaseSignRequest, signedDecommit []byte) error {
	channelID := req.Request.ChannelID
	allocationID := req.AllocationID

	decommitRef, err := c.head.SubmitSigned(ctx, channelID, signedDecommit)
	if err != nil {
		observability.RecordDecommit("decommit", "submit_failed")
		return fmt.Errorf("%w: submit decommit for allocation %s: %v",
			ErrPartialBridgeFailure, allocationID, err)
	}

	if err := c.head.AwaitTxConfirmation(ctx, channelID, decommitRef); err != nil {
		observability.RecordDecommit("decommit", "unconfirmed")
		return fmt.Errorf("%w: decommit %s awaiting confirmation: %v",
			ErrPartialBridgeFailure, decommitRef, err)
	}

	if err := c.recoveries.UpdatePhase(ctx, allocationID, domain.DecommitDone); err != nil {
		return fmt.Errorf("mark decommit %s done: %w", allocationID, err)
	}

	for _, assetID := range req.Request.FullyWithdrawn {
		if err := c.releaseHead(ctx, assetID); err != nil {
			return err
		}
	}

	if err := c.recoveries.Delete(ctx, allocationID); err != nil {
		return fmt.Errorf("drop split recovery %s: %w", allocationID, err)
	}

	observability.RecordDecommit("decommit", "confirmed")
	c.logger.Printf("decommit confirmed: allocation=%s channel=%d tx=%s",
		allocationID, channelID, decommitRef)
	return nil
}

// releaseHead returns a fully-withdrawn token to L1. The inverse of the
// commit-side head assignment: the token re-enters the MINTED stage and may
// be committed again later.
func (c *DecommitCoordinator) releaseHead(ctx context.Context, assetID string) error {
	if err := c.tokens.UpdateStage(ctx, assetID, domain.StageMinted); err != nil {
		return fmt.Errorf("update token %s stage: %w", assetID, err)
	}

	pool, err := c.pools.GetByAssetID(ctx, assetID)
	if err != nil {
		return fmt.Errorf("load pool %s: %w", assetID, err)
	}
	pool.HeadPort = 0
	pool.HeadStatus = domain.HeadIdle
	pool.UpdatedAt = time.Now().UnixMilli()
	if err := c.pools.Update(ctx, pool); err != nil {
		return fmt.Errorf("unbind pool %s from channel: %w", assetID, err)
	}
	return nil
}

// maxWithdrawableADA resolves a withdraw-all request. When any other token
// stays in the channel after the withdrawal, the minimum-holding floor plus
// the fee reserve is withheld so the remaining bundle is not stranded.
func maxWithdrawableADA(balance domain.Value, tokenAmounts map[string]int64) int64 {
	withdrawable := balance.Lovelace

	for unit, held := range balance.Assets {
		if held > 0 && tokenAmounts[unit] < held {
			withdrawable -= MinHoldingFloor + FeeReserve
			break
		}
	}

	if withdrawable < 0 {
		return 0
	}
	return withdrawable
}

// fullWithdrawals lists the asset units whose entire channel holding is
// requested. These tokens leave the head when the decommit confirms.
func fullWithdrawals(balance, target domain.Value) []string {
	var units []string
	for unit, qty := range target.Assets {
		if qty > 0 && qty >= balance.Assets[unit] {
			units = append(units, unit)
		}
	}
	sort.Strings(units)
	return units
}

// channelShortfall reports which requested quantities exceed the channel
// balance, in the selector's structured form.
func channelShortfall(balance, target domain.Value) *selection.InsufficientFundsError {
	err := &selection.InsufficientFundsError{}
	if balance.Lovelace < target.Lovelace {
		err.Shortfalls = append(err.Shortfalls, selection.Shortfall{
			Unit:     domain.LovelaceUnit,
			Required: target.Lovelace,
			Got:      balance.Lovelace,
		})
	}
	units := make([]string, 0, len(target.Assets))
	for unit := range target.Assets {
		units = append(units, unit)
	}
	sort.Strings(units)
	for _, unit := range units {
		if qty := target.Assets[unit]; balance.Assets[unit] < qty {
			err.Shortfalls = append(err.Shortfalls, selection.Shortfall{
				Unit:     unit,
				Required: qty,
				Got:      balance.Assets[unit],
			})
		}
	}
	return err
}
