// Package bridge coordinates cross-layer settlement: committing L1 assets
// into a head and the two-phase split/decommit protocol moving them back.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/head"
	"hydra-launchpad/internal/ledger"
	"hydra-launchpad/internal/observability"
	"hydra-launchpad/internal/selection"
	"hydra-launchpad/internal/storage"
)

// Lovelace constants governing bundle validity inside a head.
const (
	// MinHoldingFloor is the minimum lovelace a committed token bundle must
	// carry to be structurally valid on the receiving layer.
	MinHoldingFloor = 2 * domain.LovelacePerADA

	// FeeReserve is the lovelace withheld from withdraw-all requests to
	// cover channel transaction fees.
	FeeReserve = 2 * domain.LovelacePerADA
)

// ErrNothingRequested is returned when a bridge request names no lovelace
// and no token amounts.
var ErrNothingRequested = errors.New("bridge: nothing requested")

// ErrInvalidRequest is returned for malformed bridge requests.
var ErrInvalidRequest = errors.New("bridge: invalid request")

// CommitCoordinator moves assets from L1 into a settlement head.
type CommitCoordinator struct {
	ledger ledger.Client
	head   head.Client
	tokens storage.TokenStore
	pools  storage.PoolStore
	logger *log.Logger
}

// NewCommitCoordinator creates a commit coordinator.
func NewCommitCoordinator(
	ledgerClient ledger.Client,
	headClient head.Client,
	tokens storage.TokenStore,
	pools storage.PoolStore,
	logger *log.Logger,
) *CommitCoordinator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &CommitCoordinator{
		ledger: ledgerClient,
		head:   headClient,
		tokens: tokens,
		pools:  pools,
		logger: logger,
	}
}

// Commit selects L1 inputs covering the requested amounts and requests a
// single unsigned commit transaction from the channel operator. When tokens
// are requested with less than the minimum-holding floor of ADA, the ADA
// target is raised to the floor so the committed bundle stays valid.
//
// Selection runs against a fresh wallet snapshot and fails fast: on a
// selection failure no request reaches the channel operator.
func (c *CommitCoordinator) Commit(
	ctx context.Context,
	walletAddress string,
	adaAmount int64,
	tokenAmounts map[string]int64,
	channelID int,
) (*domain.SignRequest, error) {
	if err := validateAmounts(adaAmount, tokenAmounts); err != nil {
		return nil, err
	}

	if anyPositive(tokenAmounts) && adaAmount < MinHoldingFloor {
		adaAmount = MinHoldingFloor
	}

	units, err := c.ledger.GetSpendableUnits(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch spendable units: %w", err)
	}

	sel, err := selection.Select(units, adaAmount, tokenAmounts)
	if err != nil {
		observability.RecordCommit("rejected")
		return nil, err
	}

	status, err := c.head.Status(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("query channel %d status: %w", channelID, err)
	}
	if status != domain.HeadOpen {
		observability.RecordCommit("rejected")
		return nil, fmt.Errorf("%w: channel %d is %s", head.ErrChannelUnavailable, channelID, status)
	}

	target := domain.Value{Lovelace: adaAmount, Assets: tokenAmounts}
	unsigned, err := c.head.BuildCommitTransaction(ctx, &head.CommitSpec{
		ChannelID: channelID,
		Address:   walletAddress,
		Inputs:    sel.Refs(),
		Amount:    target,
	})
	if err != nil {
		return nil, fmt.Errorf("build commit transaction: %w", err)
	}

	observability.RecordCommit("built")
	c.logger.Printf("commit built: address=%s channel=%d lovelace=%d inputs=%d",
		walletAddress, channelID, adaAmount, len(sel.Units))

	return &domain.SignRequest{
		UnsignedTx: unsigned,
		Request: domain.CommitRequest{
			Address:        walletAddress,
			Target:         target,
			SelectedInputs: sel.Refs(),
			ChannelID:      channelID,
		},
	}, nil
}

// SubmitSigned submits the signed commit transaction, waits for the channel
// to confirm it, and records the head assignment: every committed token is
// moved to the COMMITTED stage and its pool bound to the channel.
func (c *CommitCoordinator) SubmitSigned(ctx context.Context, req *domain.SignRequest, signed []byte) (string, error) {
	channelID := req.Request.ChannelID

	txRef, err := c.head.SubmitSigned(ctx, channelID, signed)
	if err != nil {
		observability.RecordCommit("submit_failed")
		return "", fmt.Errorf("submit commit to channel %d: %w", channelID, err)
	}

	if err := c.head.AwaitTxConfirmation(ctx, channelID, txRef); err != nil {
		observability.RecordCommit("unconfirmed")
		return "", fmt.Errorf("await commit confirmation: %w", err)
	}

	for assetID, qty := range req.Request.Target.Assets {
		if qty <= 0 {
			continue
		}
		if err := c.assignHead(ctx, assetID, channelID); err != nil {
			return "", err
		}
	}

	observability.RecordCommit("confirmed")
	c.logger.Printf("commit confirmed: address=%s channel=%d tx=%s",
		req.Request.Address, channelID, txRef)
	return txRef, nil
}

// assignHead binds a committed token's pool to the channel.
func (c *CommitCoordinator) assignHead(ctx context.Context, assetID string, channelID int) error {
	if err := c.tokens.UpdateStage(ctx, assetID, domain.StageCommitted); err != nil {
		return fmt.Errorf("update token %s stage: %w", assetID, err)
	}

	pool, err := c.pools.GetByAssetID(ctx, assetID)
	if err != nil {
		return fmt.Errorf("load pool %s: %w", assetID, err)
	}
	pool.HeadPort = channelID
	pool.HeadStatus = domain.HeadOpen
	pool.UpdatedAt = time.Now().UnixMilli()
	if err := c.pools.Update(ctx, pool); err != nil {
		return fmt.Errorf("assign pool %s to channel %d: %w", assetID, channelID, err)
	}
	return nil
}

func validateAmounts(adaAmount int64, tokenAmounts map[string]int64) error {
	if adaAmount < 0 {
		return fmt.Errorf("%w: negative lovelace amount", ErrInvalidRequest)
	}
	if err := validateTokenAmounts(tokenAmounts); err != nil {
		return err
	}
	if adaAmount == 0 && !anyPositive(tokenAmounts) {
		return ErrNothingRequested
	}
	return nil
}

func validateTokenAmounts(tokenAmounts map[string]int64) error {
	for unit, qty := range tokenAmounts {
		if qty < 0 {
			return fmt.Errorf("%w: negative amount for %s", ErrInvalidRequest, unit)
		}
	}
	return nil
}

func anyPositive(amounts map[string]int64) bool {
	for _, qty := range amounts {
		if qty > 0 {
			return true
		}
	}
	return false
}
