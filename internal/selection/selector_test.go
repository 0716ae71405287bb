package selection

import (
	"errors"
	"testing"

	"hydra-launchpad/internal/domain"
)

func adaUnit(txHash string, lovelace int64) domain.SpendableUnit {
	return domain.SpendableUnit{
		Ref:     domain.TxOutRef{TxHash: txHash, OutputIndex: 0},
		Address: "addr1",
		Value:   domain.NewValue(lovelace),
	}
}

func tokenUnit(txHash string, lovelace int64, unit string, qty int64) domain.SpendableUnit {
	u := adaUnit(txHash, lovelace)
	u.Value.Assets[unit] = qty
	return u
}

func TestSelect_GreedyTakesInOrderWithoutLookahead(t *testing.T) {
	// 4 ADA alone is short of the 6 ADA target, so the selector takes the
	// 10 ADA unit as well. It never skips ahead to pick only the 10.
	available := []domain.SpendableUnit{
		adaUnit("tx1", 4_000_000),
		adaUnit("tx2", 10_000_000),
	}

	sel, err := Select(available, 6_000_000, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if len(sel.Units) != 2 {
		t.Fatalf("expected both units selected, got %d", len(sel.Units))
	}
	if sel.Units[0].Ref.TxHash != "tx1" || sel.Units[1].Ref.TxHash != "tx2" {
		t.Errorf("selection order mismatch: %v", sel.Refs())
	}
	if sel.Total.Lovelace != 14_000_000 {
		t.Errorf("accumulated lovelace = %d, want 14000000", sel.Total.Lovelace)
	}
}

func TestSelect_StopsOnceSatisfied(t *testing.T) {
	available := []domain.SpendableUnit{
		adaUnit("tx1", 7_000_000),
		adaUnit("tx2", 10_000_000),
	}

	sel, err := Select(available, 6_000_000, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(sel.Units) != 1 {
		t.Errorf("expected 1 unit, got %d", len(sel.Units))
	}
}

func TestSelect_AssetTargets(t *testing.T) {
	available := []domain.SpendableUnit{
		adaUnit("tx1", 5_000_000),
		tokenUnit("tx2", 2_000_000, "tokenA", 50),
		tokenUnit("tx3", 2_000_000, "tokenA", 60),
	}

	sel, err := Select(available, 6_000_000, map[string]int64{"tokenA": 100})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// Lovelace is satisfied after tx2 (7 ADA) but tokenA needs tx3 too.
	if len(sel.Units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(sel.Units))
	}
	if sel.Total.Assets["tokenA"] != 110 {
		t.Errorf("accumulated tokenA = %d, want 110", sel.Total.Assets["tokenA"])
	}
}

func TestSelect_Deterministic(t *testing.T) {
	available := []domain.SpendableUnit{
		tokenUnit("tx1", 1_000_000, "tokenA", 10),
		adaUnit("tx2", 3_000_000),
		tokenUnit("tx3", 2_000_000, "tokenB", 5),
	}

	first, err := Select(available, 4_000_000, map[string]int64{"tokenA": 5})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := Select(available, 4_000_000, map[string]int64{"tokenA": 5})
		if err != nil {
			t.Fatalf("repeat Select failed: %v", err)
		}
		if len(again.Units) != len(first.Units) {
			t.Fatalf("selection size changed between runs")
		}
		for j := range again.Units {
			if again.Units[j].Ref != first.Units[j].Ref {
				t.Fatalf("selection membership changed between runs")
			}
		}
	}
}

func TestSelect_NeverSelectsForeignUnits(t *testing.T) {
	available := []domain.SpendableUnit{
		adaUnit("tx1", 5_000_000),
		adaUnit("tx2", 5_000_000),
	}
	known := map[domain.TxOutRef]bool{}
	for _, u := range available {
		known[u.Ref] = true
	}

	sel, err := Select(available, 8_000_000, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for _, u := range sel.Units {
		if !known[u.Ref] {
			t.Errorf("selected unit %s not present in available", u.Ref)
		}
	}
}

func TestSelect_InsufficientLovelace(t *testing.T) {
	available := []domain.SpendableUnit{
		adaUnit("tx1", 2_000_000),
	}

	_, err := Select(available, 6_000_000, nil)

	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if len(insufficient.Shortfalls) != 1 {
		t.Fatalf("expected 1 shortfall, got %d", len(insufficient.Shortfalls))
	}
	s := insufficient.Shortfalls[0]
	if s.Unit != domain.LovelaceUnit || s.Required != 6_000_000 || s.Got != 2_000_000 {
		t.Errorf("unexpected shortfall detail: %+v", s)
	}
}

func TestSelect_ReportsEveryUnmetRequirement(t *testing.T) {
	available := []domain.SpendableUnit{
		tokenUnit("tx1", 1_000_000, "tokenB", 3),
	}

	_, err := Select(available, 5_000_000, map[string]int64{"tokenA": 10, "tokenB": 2})

	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}

	// lovelace and tokenA unmet, tokenB covered. Order: lovelace, then sorted units.
	if len(insufficient.Shortfalls) != 2 {
		t.Fatalf("expected 2 shortfalls, got %d: %v", len(insufficient.Shortfalls), insufficient)
	}
	if insufficient.Shortfalls[0].Unit != domain.LovelaceUnit {
		t.Errorf("first shortfall should be lovelace, got %s", insufficient.Shortfalls[0].Unit)
	}
	if insufficient.Shortfalls[1].Unit != "tokenA" {
		t.Errorf("second shortfall should be tokenA, got %s", insufficient.Shortfalls[1].Unit)
	}
}

func TestSelect_EmptyTargetSelectsNothing(t *testing.T) {
	available := []domain.SpendableUnit{adaUnit("tx1", 5_000_000)}

	sel, err := Select(available, 0, nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(sel.Units) != 0 {
		t.Errorf("empty target must select nothing, got %d units", len(sel.Units))
	}
}
