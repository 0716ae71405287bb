package bridge

import (
	"context"
	"errors"
	"testing"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/head"
	headstub "hydra-launchpad/internal/head/stub"
	ledgerstub "hydra-launchpad/internal/ledger/stub"
	"hydra-launchpad/internal/selection"
	"hydra-launchpad/internal/storage/memory"
)

const (
	testWallet  = "addr_test1wallet"
	testChannel = 4001
	testAssetID = "deadbeefpolicy" + "4d4f4f4e"
)

func unitWith(txHash string, lovelace int64, assets map[string]int64) domain.SpendableUnit {
	value := domain.NewValue(lovelace)
	for unit, qty := range assets {
		value.Assets[unit] = qty
	}
	return domain.SpendableUnit{
		Ref:     domain.TxOutRef{TxHash: txHash, OutputIndex: 0},
		Address: testWallet,
		Value:   value,
	}
}

func newCommitFixture() (*CommitCoordinator, *ledgerstub.Client, *headstub.Client, *memory.TokenStore, *memory.PoolStore) {
	ledgerStub := ledgerstub.NewClient()
	headStub := headstub.NewClient()
	tokens := memory.NewTokenStore()
	pools := memory.NewPoolStore()
	c := NewCommitCoordinator(ledgerStub, headStub, tokens, pools, nil)
	return c, ledgerStub, headStub, tokens, pools
}

func TestCommit(t *testing.T) {
	c, ledgerStub, headStub, _, _ := newCommitFixture()
	ledgerStub.SetUnits(testWallet, []domain.SpendableUnit{
		unitWith("aa01", 3_000_000, nil),
		unitWith("aa02", 2_000_000, map[string]int64{testAssetID: 500}),
	})

	req, err := c.Commit(context.Background(), testWallet, 4_000_000, map[string]int64{testAssetID: 200}, testChannel)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if string(req.UnsignedTx) != "commit-tx-1" {
		t.Errorf("UnsignedTx = %q, want commit-tx-1", req.UnsignedTx)
	}
	if req.Request.ChannelID != testChannel {
		t.Errorf("ChannelID = %d, want %d", req.Request.ChannelID, testChannel)
	}
	if req.Request.Target.Lovelace != 4_000_000 {
		t.Errorf("target lovelace = %d, want 4000000", req.Request.Target.Lovelace)
	}
	if len(req.Request.SelectedInputs) != 2 {
		t.Errorf("selected %d inputs, want 2", len(req.Request.SelectedInputs))
	}

	if len(headStub.CommitSpecs) != 1 {
		t.Fatalf("built %d commit specs, want 1", len(headStub.CommitSpecs))
	}
	spec := headStub.CommitSpecs[0]
	if spec.Amount.Assets[testAssetID] != 200 {
		t.Errorf("spec token amount = %d, want 200", spec.Amount.Assets[testAssetID])
	}
}

func TestCommit_ADAFloorAutoRaise(t *testing.T) {
	c, ledgerStub, headStub, _, _ := newCommitFixture()
	ledgerStub.SetUnits(testWallet, []domain.SpendableUnit{
		unitWith("aa01", 5_000_000, map[string]int64{testAssetID: 500}),
	})

	// Tokens with zero ADA: the target is raised to the minimum-holding
	// floor so the committed bundle stays valid.
	req, err := c.Commit(context.Background(), testWallet, 0, map[string]int64{testAssetID: 100}, testChannel)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if req.Request.Target.Lovelace != MinHoldingFloor {
		t.Errorf("target lovelace = %d, want floor %d", req.Request.Target.Lovelace, MinHoldingFloor)
	}
	if headStub.CommitSpecs[0].Amount.Lovelace != MinHoldingFloor {
		t.Errorf("spec lovelace = %d, want floor %d", headStub.CommitSpecs[0].Amount.Lovelace, MinHoldingFloor)
	}
}

func TestCommit_FailFastOnInsufficientFunds(t *testing.T) {
	c, ledgerStub, headStub, _, _ := newCommitFixture()
	ledgerStub.SetUnits(testWallet, []domain.SpendableUnit{
		unitWith("aa01", 1_000_000, nil),
	})

	_, err := c.Commit(context.Background(), testWallet, 5_000_000, nil, testChannel)
	var insuffErr *selection.InsufficientFundsError
	if !errors.As(err, &insuffErr) {
		t.Fatalf("err = %v, want *InsufficientFundsError", err)
	}

	// No request ever reaches the channel operator.
	if len(headStub.CommitSpecs) != 0 {
		t.Error("commit spec built despite selection failure")
	}
}

func TestCommit_ChannelNotOpen(t *testing.T) {
	c, ledgerStub, headStub, _, _ := newCommitFixture()
	ledgerStub.SetUnits(testWallet, []domain.SpendableUnit{
		unitWith("aa01", 10_000_000, nil),
	})
	headStub.SetStatus(testChannel, domain.HeadClosed)

	_, err := c.Commit(context.Background(), testWallet, 5_000_000, nil, testChannel)
	if !errors.Is(err, head.ErrChannelUnavailable) {
		t.Errorf("err = %v, want ErrChannelUnavailable", err)
	}
}

func TestCommit_NothingRequested(t *testing.T) {
	c, _, _, _, _ := newCommitFixture()

	if _, err := c.Commit(context.Background(), testWallet, 0, nil, testChannel); !errors.Is(err, ErrNothingRequested) {
		t.Errorf("err = %v, want ErrNothingRequested", err)
	}
	if _, err := c.Commit(context.Background(), testWallet, -1, nil, testChannel); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestSubmitSigned_AssignsHead(t *testing.T) {
	c, ledgerStub, _, tokens, pools := newCommitFixture()
	ctx := context.Background()

	if err := tokens.Insert(ctx, &domain.Token{
		PolicyID:  "deadbeefpolicy",
		AssetName: "4d4f4f4e",
		Stage:     domain.StageMinted,
	}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	if err := pools.Insert(ctx, &domain.Pool{AssetID: testAssetID, Slope: 0.001}); err != nil {
		t.Fatalf("seed pool: %v", err)
	}
	ledgerStub.SetUnits(testWallet, []domain.SpendableUnit{
		unitWith("aa01", 5_000_000, map[string]int64{testAssetID: 500}),
	})

	req, err := c.Commit(ctx, testWallet, 0, map[string]int64{testAssetID: 500}, testChannel)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	txRef, err := c.SubmitSigned(ctx, req, []byte("signed-commit"))
	if err != nil {
		t.Fatalf("SubmitSigned failed: %v", err)
	}
	if txRef == "" {
		t.Error("empty tx ref")
	}

	token, err := tokens.GetByAssetID(ctx, testAssetID)
	if err != nil {
		t.Fatalf("token lookup: %v", err)
	}
	if token.Stage != domain.StageCommitted {
		t.Errorf("token stage = %s, want %s", token.Stage, domain.StageCommitted)
	}

	pool, err := pools.GetByAssetID(ctx, testAssetID)
	if err != nil {
		t.Fatalf("pool lookup: %v", err)
	}
	if pool.HeadPort != testChannel {
		t.Errorf("pool head port = %d, want %d", pool.HeadPort, testChannel)
	}
	if pool.HeadStatus != domain.HeadOpen {
		t.Errorf("pool head status = %s, want %s", pool.HeadStatus, domain.HeadOpen)
	}
}

func TestSubmitSigned_SubmitFailure(t *testing.T) {
	c, ledgerStub, headStub, _, _ := newCommitFixture()
	ledgerStub.SetUnits(testWallet, []domain.SpendableUnit{
		unitWith("aa01", 5_000_000, nil),
	})

	req, err := c.Commit(context.Background(), testWallet, 3_000_000, nil, testChannel)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	headStub.SubmitErr = errors.New("connection reset")
	if _, err := c.SubmitSigned(context.Background(), req, []byte("signed")); err == nil {
		t.Fatal("SubmitSigned succeeded despite submit failure")
	}
}
