package curve

import (
	"testing"

	"hydra-launchpad/internal/domain"
)

func tick(ts int64, price float64, lovelace int64) *domain.TradeTick {
	return &domain.TradeTick{
		AssetID:   "asset1",
		Timestamp: ts,
		Price:     price,
		Lovelace:  lovelace,
		Side:      domain.TradeSideBuy,
	}
}

func TestComputeDayStats_Empty(t *testing.T) {
	stats := ComputeDayStats(nil, 1_000_000)
	if stats.VolumeLovelace != 0 || stats.TradeCount != 0 || stats.PriceChange != 0 {
		t.Errorf("empty ticks must yield zero stats, got %+v", stats)
	}
}

func TestComputeDayStats_WindowFilter(t *testing.T) {
	now := int64(100 * Window24h)
	ticks := []*domain.TradeTick{
		tick(now-Window24h-1, 1.0, 500),  // outside window
		tick(now-Window24h+1, 2.0, 100),  // first inside
		tick(now-1000, 3.0, 200),         // inside
		tick(now, 4.0, 300),              // boundary, inclusive
		tick(now+1, 9.0, 999),            // future, excluded
	}

	stats := ComputeDayStats(ticks, now)

	if stats.TradeCount != 3 {
		t.Errorf("expected 3 trades in window, got %d", stats.TradeCount)
	}
	if stats.VolumeLovelace != 600 {
		t.Errorf("volume = %d, want 600", stats.VolumeLovelace)
	}
	// First price in window 2.0, last 4.0 → +100%.
	if stats.PriceChange != 1.0 {
		t.Errorf("price change = %f, want 1.0", stats.PriceChange)
	}
}

func TestComputeDayStats_OrderIndependent(t *testing.T) {
	now := int64(10 * Window24h)
	ordered := []*domain.TradeTick{
		tick(now-3000, 1.0, 10),
		tick(now-2000, 2.0, 20),
		tick(now-1000, 3.0, 30),
	}
	shuffled := []*domain.TradeTick{ordered[2], ordered[0], ordered[1]}

	a := ComputeDayStats(ordered, now)
	b := ComputeDayStats(shuffled, now)

	if a != b {
		t.Errorf("tick order changed stats: %+v vs %+v", a, b)
	}
}
