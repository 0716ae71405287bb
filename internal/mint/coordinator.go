// Package mint coordinates one-shot token mints: policy identity derivation
// from a consumed reference input, coin selection for the pool output and
// collateral, CIP-25 metadata assembly, and confirmation tracking.
package mint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"hydra-launchpad/internal/address"
	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/idhash"
	"hydra-launchpad/internal/ledger"
	"hydra-launchpad/internal/observability"
	"hydra-launchpad/internal/selection"
	"hydra-launchpad/internal/storage"
)

// scriptTag is folded into the policy id hash so ids derived for other
// script purposes can never collide with minting policies.
const scriptTag = "one-shot-mint"

// metadataLabel is the CIP-25 token metadata label.
const metadataLabel = "721"

// Lovelace floors checked before any transaction is built.
const (
	// CollateralFloor is the minimum lovelace a pure-ADA collateral unit
	// must carry.
	CollateralFloor = 5 * domain.LovelacePerADA

	// PoolOutputLovelace is the minimum ADA held by the pool script output
	// carrying the minted bundle.
	PoolOutputLovelace = 12 * domain.LovelacePerADA

	// WalletMinimum is the total wallet balance required to mint.
	WalletMinimum = 15 * domain.LovelacePerADA
)

// ErrNoReferenceInput is returned when the wallet has no spendable units to
// consume as the policy's reference input.
var ErrNoReferenceInput = errors.New("mint: wallet has no spendable units")

// ErrNoCollateral is returned when no pure-ADA unit meets the collateral floor.
var ErrNoCollateral = errors.New("mint: no pure-ADA unit meets the collateral floor")

// ErrInvalidParams is returned for malformed mint parameters.
var ErrInvalidParams = errors.New("mint: invalid parameters")

// WalletBalanceError reports a wallet whose total balance is below the
// minting minimum.
type WalletBalanceError struct {
	Required int64
	Got      int64
}

func (e *WalletBalanceError) Error() string {
	return fmt.Sprintf("mint: wallet balance %d below minimum %d", e.Got, e.Required)
}

// Params describes a mint request.
type Params struct {
	OwnerAddress         string
	OwnerVerificationKey []byte // ed25519 verification key of the owner
	Name                 string // asset display name, becomes the hex asset name
	Ticker               string
	TotalSupply          int64
	Decimals             int
	Slope                float64 // bonding-curve slope coefficient
	ContentID            string  // content-store id of the logo, threaded opaquely
	Description          string
	Website              string
	Twitter              string
	Telegram             string
}

// Plan is the result of a successful mint build: the derived identity, the
// initial pool datum, and the unsigned transaction for the caller to sign.
type Plan struct {
	PolicyID       string
	AssetName      string // hex-encoded
	AssetID        string
	Datum          domain.PoolDatum
	ReferenceInput domain.TxOutRef
	Collateral     domain.TxOutRef
	Inputs         []domain.TxOutRef
	UnsignedTx     []byte
	Request        *Params
}

// Coordinator builds mint plans and records confirmed mints.
type Coordinator struct {
	ledger      ledger.Client
	tokens      storage.TokenStore
	pools       storage.PoolStore
	poolAddress string // pool script address receiving the minted bundle
	logger      *log.Logger
}

// NewCoordinator creates a mint coordinator. poolAddress is the script
// address that receives the minted bundle and the initial pool datum.
func NewCoordinator(
	ledgerClient ledger.Client,
	tokens storage.TokenStore,
	pools storage.PoolStore,
	poolAddress string,
	logger *log.Logger,
) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Coordinator{
		ledger:      ledgerClient,
		tokens:      tokens,
		pools:       pools,
		poolAddress: poolAddress,
		logger:      logger,
	}
}

// Mint builds a mint plan for the given parameters. The first spendable
// unit of the wallet is consumed as the policy's reference input; because
// that reference can never be spent twice, the derived policy id is
// globally unique. No state is recorded here: the caller signs and submits
// the returned transaction, then calls ConfirmMint.
func (c *Coordinator) Mint(ctx context.Context, params *Params) (*Plan, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	ownerKeyHash, err := address.PaymentKeyHash(params.OwnerVerificationKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	units, err := c.ledger.GetSpendableUnits(ctx, params.OwnerAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch spendable units: %w", err)
	}
	if len(units) == 0 {
		return nil, ErrNoReferenceInput
	}

	var balance int64
	for _, u := range units {
		balance += u.Value.Lovelace
	}
	if balance < WalletMinimum {
		return nil, &WalletBalanceError{Required: WalletMinimum, Got: balance}
	}

	refInput := units[0]

	collateral, found := pickCollateral(units, refInput.Ref)
	if !found {
		return nil, ErrNoCollateral
	}

	// The reference input leads the candidate list so greedy selection
	// always consumes it; the collateral unit must stay unspent.
	candidates := make([]domain.SpendableUnit, 0, len(units))
	candidates = append(candidates, refInput)
	for _, u := range units[1:] {
		if u.Ref == collateral.Ref {
			continue
		}
		candidates = append(candidates, u)
	}

	sel, err := selection.Select(candidates, PoolOutputLovelace, nil)
	if err != nil {
		return nil, err
	}

	policyID := idhash.ComputePolicyID(scriptTag, refInput.Ref.TxHash, refInput.Ref.OutputIndex)
	assetName := hex.EncodeToString([]byte(params.Name))
	assetID := policyID + assetName

	datum := domain.PoolDatum{
		PolicyID:     policyID,
		AssetName:    assetName,
		Slope:        params.Slope,
		Supply:       0,
		OwnerKeyHash: ownerKeyHash,
	}

	spec := &ledger.TxSpec{
		ChangeAddress: params.OwnerAddress,
		Inputs:        sel.Refs(),
		Collateral:    []domain.TxOutRef{collateral.Ref},
		Outputs: []ledger.TxOut{
			{
				Address: c.poolAddress,
				Value: domain.Value{
					Lovelace: PoolOutputLovelace,
					Assets:   map[string]int64{assetID: params.TotalSupply},
				},
				Datum: datum,
			},
		},
		Mint: []ledger.MintField{
			{PolicyID: policyID, AssetName: assetName, Quantity: params.TotalSupply},
		},
		Metadata: map[string]interface{}{
			metadataLabel: tokenMetadata(policyID, params),
		},
	}

	unsigned, err := c.ledger.BuildUnsignedTransaction(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("build mint transaction: %w", err)
	}

	observability.RecordMintStarted()
	c.logger.Printf("mint plan built: policy=%s asset=%s supply=%d inputs=%d",
		policyID, assetName, params.TotalSupply, len(sel.Units))

	return &Plan{
		PolicyID:       policyID,
		AssetName:      assetName,
		AssetID:        assetID,
		Datum:          datum,
		ReferenceInput: refInput.Ref,
		Collateral:     collateral.Ref,
		Inputs:         sel.Refs(),
		UnsignedTx:     unsigned,
		Request:        params,
	}, nil
}

// Submit sends the signed mint transaction to the ledger and returns its
// reference. ErrStaleInputs from the ledger propagates; the caller must
// rebuild the plan from a fresh wallet snapshot.
func (c *Coordinator) Submit(ctx context.Context, signed []byte) (string, error) {
	txRef, err := c.ledger.Submit(ctx, signed)
	if err != nil {
		if errors.Is(err, ledger.ErrStaleInputs) {
			observability.RecordMintError("stale_inputs")
		}
		return "", fmt.Errorf("submit mint transaction: %w", err)
	}
	return txRef, nil
}

// AwaitConfirmation blocks until the ledger reports the transaction final.
// No internal timeout; callers bound the wait through ctx.
func (c *Coordinator) AwaitConfirmation(ctx context.Context, txRef string) error {
	return c.ledger.AwaitConfirmation(ctx, txRef)
}

// ConfirmMint waits for the submitted mint transaction to confirm, then
// records the token and its pool. Nothing is recorded before finality, so a
// failed or abandoned mint leaves no state behind.
func (c *Coordinator) ConfirmMint(ctx context.Context, plan *Plan, txRef string) error {
	if err := c.ledger.AwaitConfirmation(ctx, txRef); err != nil {
		observability.RecordMintError("confirmation")
		return fmt.Errorf("await mint confirmation: %w", err)
	}

	now := time.Now().UnixMilli()
	params := plan.Request

	token := &domain.Token{
		PolicyID:     plan.PolicyID,
		AssetName:    plan.AssetName,
		Ticker:       params.Ticker,
		TotalSupply:  params.TotalSupply,
		Decimals:     params.Decimals,
		OwnerKeyHash: plan.Datum.OwnerKeyHash,
		CreationTx:   txRef,
		ContentID:    params.ContentID,
		Stage:        domain.StageMinted,
		CreatedAt:    now,
	}
	if err := c.tokens.Insert(ctx, token); err != nil {
		return fmt.Errorf("record token %s: %w", plan.AssetID, err)
	}

	pool := &domain.Pool{
		AssetID:       plan.AssetID,
		CurrentSupply: 0,
		Slope:         params.Slope,
		UpdatedAt:     now,
	}
	if err := c.pools.Insert(ctx, pool); err != nil {
		return fmt.Errorf("record pool %s: %w", plan.AssetID, err)
	}

	observability.RecordMintConfirmed()
	c.logger.Printf("mint confirmed: asset=%s tx=%s", plan.AssetID, txRef)
	return nil
}

func validateParams(params *Params) error {
	switch {
	case params.OwnerAddress == "":
		return fmt.Errorf("%w: owner address required", ErrInvalidParams)
	case params.Name == "":
		return fmt.Errorf("%w: name required", ErrInvalidParams)
	case params.TotalSupply <= 0:
		return fmt.Errorf("%w: total supply must be positive", ErrInvalidParams)
	case params.Decimals < 0:
		return fmt.Errorf("%w: decimals must not be negative", ErrInvalidParams)
	case params.Slope <= 0:
		return fmt.Errorf("%w: slope must be positive", ErrInvalidParams)
	}
	return nil
}

// pickCollateral returns the first pure-ADA unit meeting the collateral
// floor, skipping the reference input.
func pickCollateral(units []domain.SpendableUnit, refInput domain.TxOutRef) (domain.SpendableUnit, bool) {
	for _, u := range units {
		if u.Ref == refInput {
			continue
		}
		if u.IsPureADA() && u.Value.Lovelace >= CollateralFloor {
			return u, true
		}
	}
	return domain.SpendableUnit{}, false
}

// tokenMetadata assembles the CIP-25 metadata payload. Optional fields are
// omitted when empty.
func tokenMetadata(policyID string, params *Params) map[string]interface{} {
	entry := map[string]interface{}{
		"name":   params.Name,
		"ticker": params.Ticker,
	}
	if params.ContentID != "" {
		entry["image"] = "ipfs://" + params.ContentID
	}
	if params.Description != "" {
		entry["description"] = params.Description
	}
	if params.Website != "" {
		entry["website"] = params.Website
	}
	if params.Twitter != "" {
		entry["twitter"] = params.Twitter
	}
	if params.Telegram != "" {
		entry["telegram"] = params.Telegram
	}
	return map[string]interface{}{
		policyID: map[string]interface{}{
			params.Name: entry,
		},
	}
}
