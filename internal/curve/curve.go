// Package curve implements the bonding-curve price model shared by L1 and
// L2 settlement: quotes, spot price, market cap, and 24h trade aggregates.
// All functions are pure over a pool snapshot.
package curve

import (
	"errors"
	"math"

	"hydra-launchpad/internal/domain"
)

// Curve-boundary errors.
var (
	// ErrInsufficientSupply is returned when a sell exceeds circulating supply.
	ErrInsufficientSupply = errors.New("sell amount exceeds circulating supply")

	// ErrCurveExhausted is returned when a buy would push supply past the
	// token's total mintable cap. Signals migration eligibility.
	ErrCurveExhausted = errors.New("curve exhausted: supply cap reached")

	// ErrInvalidAmount is returned for negative trade amounts.
	ErrInvalidAmount = errors.New("trade amount must not be negative")
)

// Quote is the priced result of a prospective trade.
type Quote struct {
	TokenAmount    int64   // requested token amount
	Lovelace       int64   // lovelace counter-amount (cost for buys, proceeds for sells)
	AveragePrice   float64 // lovelace per token unit over the traded range
	PriceImpactBps float64 // relative deviation of average price from the pre-trade spot price
}

// CurrentPrice returns the spot price k*s. Never negative for a valid pool.
func CurrentPrice(pool *domain.Pool) float64 {
	return pool.Slope * float64(pool.CurrentSupply)
}

// MarketCap returns price * circulating supply in lovelace.
func MarketCap(pool *domain.Pool) float64 {
	return CurrentPrice(pool) * float64(pool.CurrentSupply)
}

// Progress returns the fraction of the mintable cap already on the curve,
// in [0, 1]. Used to decide migration eligibility.
func Progress(pool *domain.Pool, totalSupply int64) float64 {
	if totalSupply <= 0 {
		return 0
	}
	p := float64(pool.CurrentSupply) / float64(totalSupply)
	if p > 1 {
		return 1
	}
	return p
}

// QuoteTrade prices a buy or sell of amount tokens at the pool's current
// supply s with slope k, using the quadratic integral of the linear curve:
//
//	buy cost      = k * ((s+a)^2 - s^2) / 2    over [s, s+a]
//	sell proceeds = k * (s^2 - (s-a)^2) / 2    over [s-a, s]
//
// The same formula is applied to both sides so an immediate round-trip is
// inverse up to lovelace rounding: buys round cost up, sells round proceeds
// down, so a sell never returns more than the matching buy cost.
//
// A zero amount yields a zero quote without error. Buys past totalSupply
// fail with ErrCurveExhausted; sells past circulating supply fail with
// ErrInsufficientSupply.
func QuoteTrade(pool *domain.Pool, totalSupply int64, side domain.TradeSide, amount int64) (*Quote, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	if amount == 0 {
		return &Quote{}, nil
	}

	s := float64(pool.CurrentSupply)
	a := float64(amount)
	k := pool.Slope

	var cost float64
	var lovelace int64

	switch side {
	case domain.TradeSideBuy:
		if pool.CurrentSupply+amount > totalSupply {
			return nil, ErrCurveExhausted
		}
		cost = k * ((s+a)*(s+a) - s*s) / 2
		lovelace = int64(math.Ceil(cost))
	case domain.TradeSideSell:
		if amount > pool.CurrentSupply {
			return nil, ErrInsufficientSupply
		}
		cost = k * (s*s - (s-a)*(s-a)) / 2
		lovelace = int64(math.Floor(cost))
	default:
		return nil, ErrInvalidAmount
	}

	avg := cost / a
	return &Quote{
		TokenAmount:    amount,
		Lovelace:       lovelace,
		AveragePrice:   avg,
		PriceImpactBps: impactBps(CurrentPrice(pool), avg),
	}, nil
}

// impactBps returns the relative deviation of the average execution price
// from the pre-trade spot price, in basis points. A zero pre-trade price
// (empty curve) has no meaningful reference, so impact is reported as zero.
func impactBps(spot, avg float64) float64 {
	if spot == 0 {
		return 0
	}
	return math.Abs(avg-spot) / spot * 10_000
}
