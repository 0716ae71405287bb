package memory

import (
	"context"
	"errors"
	"testing"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/storage"
)

func testPool(assetID string, supply int64) *domain.Pool {
	return &domain.Pool{
		AssetID:       assetID,
		CurrentSupply: supply,
		Slope:         0.0001,
	}
}

func TestPoolStore_InsertAndUpdate(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	pool := testPool("asset1", 0)
	if err := store.Insert(ctx, pool); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	pool.CurrentSupply = 500
	pool.ADARaised = 12_500
	if err := store.Update(ctx, pool); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.GetByAssetID(ctx, "asset1")
	if err != nil {
		t.Fatalf("GetByAssetID failed: %v", err)
	}
	if got.CurrentSupply != 500 || got.ADARaised != 12_500 {
		t.Errorf("unexpected pool: %+v", got)
	}
}

func TestPoolStore_UpdateMissing(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	err := store.Update(ctx, testPool("ghost", 1))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPoolStore_DuplicateKey(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	store.Insert(ctx, testPool("asset1", 0))
	err := store.Insert(ctx, testPool("asset1", 0))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestPoolStore_GetReturnsCopy(t *testing.T) {
	store := NewPoolStore()
	ctx := context.Background()

	store.Insert(ctx, testPool("asset1", 100))

	got, _ := store.GetByAssetID(ctx, "asset1")
	got.CurrentSupply = 999

	again, _ := store.GetByAssetID(ctx, "asset1")
	if again.CurrentSupply != 100 {
		t.Error("mutation of returned pool leaked into the store")
	}
}
