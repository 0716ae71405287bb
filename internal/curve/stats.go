package curve

import (
	"sort"

	"hydra-launchpad/internal/domain"
)

// Window24h is the aggregation window for pool statistics, in milliseconds.
const Window24h = 24 * 60 * 60 * 1000

// DayStats holds the trailing-24h aggregates of one pool.
type DayStats struct {
	VolumeLovelace int64   // summed lovelace across trades in the window
	PriceChange    float64 // relative change from the window's first price to its last
	TradeCount     int     // trades in the window
}

// ComputeDayStats aggregates trade ticks over the 24h window ending at now.
// Ticks are sorted by (timestamp, price) before computing the change so the
// result is deterministic regardless of input order.
func ComputeDayStats(ticks []*domain.TradeTick, now int64) DayStats {
	cutoff := now - Window24h

	var window []*domain.TradeTick
	for _, tick := range ticks {
		if tick.Timestamp > cutoff && tick.Timestamp <= now {
			window = append(window, tick)
		}
	}

	if len(window) == 0 {
		return DayStats{}
	}

	sort.Slice(window, func(i, j int) bool {
		if window[i].Timestamp != window[j].Timestamp {
			return window[i].Timestamp < window[j].Timestamp
		}
		return window[i].Price < window[j].Price
	})

	stats := DayStats{TradeCount: len(window)}
	for _, tick := range window {
		stats.VolumeLovelace += tick.Lovelace
	}

	first := window[0].Price
	last := window[len(window)-1].Price
	if first != 0 {
		stats.PriceChange = (last - first) / first
	}

	return stats
}
