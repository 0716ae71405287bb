package memory

import (
	"context"
	"errors"
	"testing"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

func testToken(policyID, name string, createdAt int64) *domain.Token {
	return &domain.Token{
		PolicyID:     policyID,
		AssetName:    name,
		Ticker:       "TST",
		TotalSupply:  1_000_000_000,
		Decimals:     6,
		OwnerKeyHash: "owner1",
		CreationTx:   "tx1",
		Stage:        domain.StageMinted,
		CreatedAt:    createdAt,
	}
}

func TestTokenStore_InsertAndGet(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	tok := testToken("policy1", "746f6b656e31", 1000)
	if err := store.Insert(ctx, tok); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByAssetID(ctx, tok.AssetID())
	if err != nil {
		t.Fatalf("GetByAssetID failed: %v", err)
	}
	if got.Ticker != "TST" || got.TotalSupply != 1_000_000_000 {
		t.Errorf("unexpected token: %+v", got)
	}
}

func TestTokenStore_DuplicateKey(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	tok := testToken("policy1", "746f6b656e31", 1000)
	if err := store.Insert(ctx, tok); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.Insert(ctx, tok)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestTokenStore_ListOrdersByCreationDesc(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	store.Insert(ctx, testToken("p1", "6161", 1000))
	store.Insert(ctx, testToken("p2", "6262", 3000))
	store.Insert(ctx, testToken("p3", "6363", 2000))

	result, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(result))
	}
	if result[0].PolicyID != "p2" || result[1].PolicyID != "p3" {
		t.Errorf("unexpected order: %s, %s", result[0].PolicyID, result[1].PolicyID)
	}
}

func TestTokenStore_UpdateStage(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	tok := testToken("policy1", "746f6b656e31", 1000)
	store.Insert(ctx, tok)

	if err := store.UpdateStage(ctx, tok.AssetID(), domain.StageCommitted); err != nil {
		t.Fatalf("UpdateStage failed: %v", err)
	}

	got, _ := store.GetByAssetID(ctx, tok.AssetID())
	if got.Stage != domain.StageCommitted {
		t.Errorf("stage = %s, want COMMITTED", got.Stage)
	}

	err := store.UpdateStage(ctx, "missing", domain.StageMigrated)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTokenStore_GetReturnsCopy(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	tok := testToken("policy1", "746f6b656e31", 1000)
	store.Insert(ctx, tok)

	got, _ := store.GetByAssetID(ctx, tok.AssetID())
	got.Ticker = "MUTATED"

	again, _ := store.GetByAssetID(ctx, tok.AssetID())
	if again.Ticker != "TST" {
		t.Error("mutation of returned token leaked into the store")
	}
}
