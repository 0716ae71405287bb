package mint

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"hydra-launchpad/internal/address"
	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/idhash"
	"hydra-launchpad/internal/ledger/stub"
	"hydra-launchpad/internal/selection"
	"hydra-launchpad/internal/storage"
	"hydra-launchpad/internal/storage/memory"
)

const (
	testOwner       = "addr_test1owner"
	testPoolAddress = "addr_test1poolscript"
)

func testParams(t *testing.T) *Params {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &Params{
		OwnerAddress:         testOwner,
		OwnerVerificationKey: pub,
		Name:                 "MOON",
		Ticker:               "MOON",
		TotalSupply:          1_000_000_000,
		Decimals:             6,
		Slope:                0.0000001,
		ContentID:            "QmTestContentId",
		Description:          "to the moon",
	}
}

func adaUnit(txHash string, lovelace int64) domain.SpendableUnit {
	return domain.SpendableUnit{
		Ref:     domain.TxOutRef{TxHash: txHash, OutputIndex: 0},
		Address: testOwner,
		Value:   domain.NewValue(lovelace),
	}
}

func newTestCoordinator(ledgerStub *stub.Client) (*Coordinator, storage.TokenStore, storage.PoolStore) {
	tokens := memory.NewTokenStore()
	pools := memory.NewPoolStore()
	c := NewCoordinator(ledgerStub, tokens, pools, testPoolAddress, nil)
	return c, tokens, pools
}

func TestMint(t *testing.T) {
	ledgerStub := stub.NewClient()
	ledgerStub.SetUnits(testOwner, []domain.SpendableUnit{
		adaUnit("aa01", 8_000_000),
		adaUnit("aa02", 6_000_000),
		adaUnit("aa03", 7_000_000),
	})
	c, _, _ := newTestCoordinator(ledgerStub)

	params := testParams(t)
	plan, err := c.Mint(context.Background(), params)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	wantPolicy := idhash.ComputePolicyID("one-shot-mint", "aa01", 0)
	if plan.PolicyID != wantPolicy {
		t.Errorf("PolicyID = %s, want %s", plan.PolicyID, wantPolicy)
	}
	wantName := hex.EncodeToString([]byte("MOON"))
	if plan.AssetName != wantName {
		t.Errorf("AssetName = %s, want %s", plan.AssetName, wantName)
	}
	if plan.AssetID != wantPolicy+wantName {
		t.Errorf("AssetID = %s, want %s", plan.AssetID, wantPolicy+wantName)
	}

	if plan.ReferenceInput.TxHash != "aa01" {
		t.Errorf("ReferenceInput = %s, want aa01#0", plan.ReferenceInput)
	}
	// aa02 is the first pure-ADA unit above the floor after the reference.
	if plan.Collateral.TxHash != "aa02" {
		t.Errorf("Collateral = %s, want aa02#0", plan.Collateral)
	}
	// Greedy selection takes aa01 (8 ADA) then aa03 (7 ADA) against 12 ADA.
	if len(plan.Inputs) != 2 || plan.Inputs[0].TxHash != "aa01" || plan.Inputs[1].TxHash != "aa03" {
		t.Errorf("Inputs = %v, want [aa01#0 aa03#0]", plan.Inputs)
	}

	if plan.Datum.Supply != 0 {
		t.Errorf("Datum.Supply = %d, want 0", plan.Datum.Supply)
	}
	wantKeyHash, err := address.PaymentKeyHash(params.OwnerVerificationKey)
	if err != nil {
		t.Fatalf("PaymentKeyHash failed: %v", err)
	}
	if plan.Datum.OwnerKeyHash != wantKeyHash {
		t.Errorf("Datum.OwnerKeyHash = %s, want %s", plan.Datum.OwnerKeyHash, wantKeyHash)
	}

	if len(ledgerStub.BuiltSpecs) != 1 {
		t.Fatalf("built %d specs, want 1", len(ledgerStub.BuiltSpecs))
	}
	spec := ledgerStub.BuiltSpecs[0]
	if spec.ChangeAddress != testOwner {
		t.Errorf("ChangeAddress = %s, want %s", spec.ChangeAddress, testOwner)
	}
	if len(spec.Collateral) != 1 || spec.Collateral[0].TxHash != "aa02" {
		t.Errorf("spec collateral = %v, want [aa02#0]", spec.Collateral)
	}
	if len(spec.Mint) != 1 || spec.Mint[0].Quantity != params.TotalSupply {
		t.Errorf("spec mint = %v, want quantity %d", spec.Mint, params.TotalSupply)
	}
	if len(spec.Outputs) != 1 {
		t.Fatalf("spec has %d outputs, want 1", len(spec.Outputs))
	}
	out := spec.Outputs[0]
	if out.Address != testPoolAddress {
		t.Errorf("pool output address = %s, want %s", out.Address, testPoolAddress)
	}
	if out.Value.Lovelace != PoolOutputLovelace {
		t.Errorf("pool output lovelace = %d, want %d", out.Value.Lovelace, PoolOutputLovelace)
	}
	if out.Value.Assets[plan.AssetID] != params.TotalSupply {
		t.Errorf("pool output tokens = %d, want %d", out.Value.Assets[plan.AssetID], params.TotalSupply)
	}

	if _, ok := spec.Metadata["721"]; !ok {
		t.Error("spec metadata missing label 721")
	}
}

func TestMint_MetadataThreadsContentID(t *testing.T) {
	ledgerStub := stub.NewClient()
	ledgerStub.SetUnits(testOwner, []domain.SpendableUnit{
		adaUnit("aa01", 10_000_000),
		adaUnit("aa02", 6_000_000),
		adaUnit("aa03", 7_000_000),
	})
	c, _, _ := newTestCoordinator(ledgerStub)

	plan, err := c.Mint(context.Background(), testParams(t))
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	label := ledgerStub.BuiltSpecs[0].Metadata["721"].(map[string]interface{})
	byPolicy := label[plan.PolicyID].(map[string]interface{})
	entry := byPolicy["MOON"].(map[string]interface{})
	if entry["image"] != "ipfs://QmTestContentId" {
		t.Errorf("image = %v, want ipfs://QmTestContentId", entry["image"])
	}
	if entry["ticker"] != "MOON" {
		t.Errorf("ticker = %v, want MOON", entry["ticker"])
	}
	if entry["description"] != "to the moon" {
		t.Errorf("description = %v, want set", entry["description"])
	}
	if _, ok := entry["website"]; ok {
		t.Error("empty website field included in metadata")
	}
}

func TestMint_EmptyWallet(t *testing.T) {
	ledgerStub := stub.NewClient()
	c, _, _ := newTestCoordinator(ledgerStub)

	_, err := c.Mint(context.Background(), testParams(t))
	if !errors.Is(err, ErrNoReferenceInput) {
		t.Errorf("err = %v, want ErrNoReferenceInput", err)
	}
}

func TestMint_WalletBelowMinimum(t *testing.T) {
	ledgerStub := stub.NewClient()
	ledgerStub.SetUnits(testOwner, []domain.SpendableUnit{
		adaUnit("aa01", 4_000_000),
		adaUnit("aa02", 6_000_000),
	})
	c, _, _ := newTestCoordinator(ledgerStub)

	_, err := c.Mint(context.Background(), testParams(t))
	var balErr *WalletBalanceError
	if !errors.As(err, &balErr) {
		t.Fatalf("err = %v, want *WalletBalanceError", err)
	}
	if balErr.Got != 10_000_000 || balErr.Required != WalletMinimum {
		t.Errorf("WalletBalanceError = %+v, want got 10000000 required %d", balErr, WalletMinimum)
	}
}

func TestMint_NoCollateral(t *testing.T) {
	tokenUnit := adaUnit("bb01", 9_000_000)
	tokenUnit.Value.Assets["somepolicysomeasset"] = 500

	ledgerStub := stub.NewClient()
	ledgerStub.SetUnits(testOwner, []domain.SpendableUnit{
		// The only pure-ADA unit above the floor is the reference input,
		// which cannot double as collateral.
		adaUnit("aa01", 16_000_000),
		tokenUnit,
	})
	c, _, _ := newTestCoordinator(ledgerStub)

	_, err := c.Mint(context.Background(), testParams(t))
	if !errors.Is(err, ErrNoCollateral) {
		t.Errorf("err = %v, want ErrNoCollateral", err)
	}
}

func TestMint_InsufficientFunds(t *testing.T) {
	ledgerStub := stub.NewClient()
	ledgerStub.SetUnits(testOwner, []domain.SpendableUnit{
		// Balance clears the wallet minimum, but with the collateral unit
		// reserved the remaining units cannot cover the pool output.
		adaUnit("aa01", 2_000_000),
		adaUnit("aa02", 14_000_000),
	})
	c, _, _ := newTestCoordinator(ledgerStub)

	_, err := c.Mint(context.Background(), testParams(t))
	var insuffErr *selection.InsufficientFundsError
	if !errors.As(err, &insuffErr) {
		t.Fatalf("err = %v, want *InsufficientFundsError", err)
	}
	if len(ledgerStub.BuiltSpecs) != 0 {
		t.Error("transaction built despite selection failure")
	}
}

func TestMint_InvalidParams(t *testing.T) {
	ledgerStub := stub.NewClient()
	c, _, _ := newTestCoordinator(ledgerStub)

	params := testParams(t)
	params.TotalSupply = 0
	if _, err := c.Mint(context.Background(), params); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("zero supply: err = %v, want ErrInvalidParams", err)
	}

	params = testParams(t)
	params.Slope = 0
	if _, err := c.Mint(context.Background(), params); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("zero slope: err = %v, want ErrInvalidParams", err)
	}

	params = testParams(t)
	params.OwnerVerificationKey = []byte{0x01}
	if _, err := c.Mint(context.Background(), params); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("bad key: err = %v, want ErrInvalidParams", err)
	}
}

func TestConfirmMint(t *testing.T) {
	ledgerStub := stub.NewClient()
	ledgerStub.SetUnits(testOwner, []domain.SpendableUnit{
		adaUnit("aa01", 8_000_000),
		adaUnit("aa02", 6_000_000),
		adaUnit("aa03", 7_000_000),
	})
	c, tokens, pools := newTestCoordinator(ledgerStub)

	ctx := context.Background()
	plan, err := c.Mint(ctx, testParams(t))
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	if err := c.ConfirmMint(ctx, plan, "mint-tx-ref"); err != nil {
		t.Fatalf("ConfirmMint failed: %v", err)
	}

	token, err := tokens.GetByAssetID(ctx, plan.AssetID)
	if err != nil {
		t.Fatalf("token not recorded: %v", err)
	}
	if token.Stage != domain.StageMinted {
		t.Errorf("token stage = %s, want %s", token.Stage, domain.StageMinted)
	}
	if token.CreationTx != "mint-tx-ref" {
		t.Errorf("token creation tx = %s, want mint-tx-ref", token.CreationTx)
	}

	pool, err := pools.GetByAssetID(ctx, plan.AssetID)
	if err != nil {
		t.Fatalf("pool not recorded: %v", err)
	}
	if pool.CurrentSupply != 0 {
		t.Errorf("pool supply = %d, want 0", pool.CurrentSupply)
	}
	if pool.Slope != plan.Datum.Slope {
		t.Errorf("pool slope = %v, want %v", pool.Slope, plan.Datum.Slope)
	}
	if pool.OnHead() {
		t.Error("fresh pool assigned to a head")
	}
}

func TestConfirmMint_ConfirmationAborted(t *testing.T) {
	ledgerStub := stub.NewClient()
	ledgerStub.SetUnits(testOwner, []domain.SpendableUnit{
		adaUnit("aa01", 8_000_000),
		adaUnit("aa02", 6_000_000),
		adaUnit("aa03", 7_000_000),
	})
	c, tokens, _ := newTestCoordinator(ledgerStub)

	ctx := context.Background()
	plan, err := c.Mint(ctx, testParams(t))
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	ledgerStub.HoldConfirmation("mint-tx-ref")
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if err := c.ConfirmMint(waitCtx, plan, "mint-tx-ref"); err == nil {
		t.Fatal("ConfirmMint succeeded without confirmation")
	}

	// Nothing is recorded before finality.
	if _, err := tokens.GetByAssetID(ctx, plan.AssetID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("token lookup err = %v, want ErrNotFound", err)
	}
}
