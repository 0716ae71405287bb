// Package selection implements greedy UTxO coin selection over a wallet
// snapshot. Selection is pure: it never mutates the snapshot and performs
// no I/O.
package selection

import (
	"fmt"
	"sort"
	"strings"

	"hydra-launchpad/internal/domain"
)

// Selection is a covering subset of spendable units.
type Selection struct {
	Units []domain.SpendableUnit // selected units, in input order
	Total domain.Value           // accumulated value of the selected units
}

// Refs returns the references of the selected units, in selection order.
func (s *Selection) Refs() []domain.TxOutRef {
	refs := make([]domain.TxOutRef, len(s.Units))
	for i, u := range s.Units {
		refs[i] = u.Ref
	}
	return refs
}

// Shortfall describes one unmet requirement.
type Shortfall struct {
	Unit     string // asset unit, "lovelace" for the base currency
	Required int64
	Got      int64
}

// InsufficientFundsError reports which requirements the available units
// could not cover, and by how much.
type InsufficientFundsError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientFundsError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("%s: need %d, have %d", s.Unit, s.Required, s.Got)
	}
	return "insufficient funds: " + strings.Join(parts, ", ")
}

// Select accumulates units from available, in their given order, until the
// running totals cover requiredLovelace and every quantity in
// requiredAssets, then stops. Whole units only, no look-ahead: the result
// is a sufficient covering set, not a minimal one. Given the same input
// order the selected set is fully deterministic.
//
// If the entire list leaves any requirement unmet, an
// *InsufficientFundsError naming each unmet requirement is returned.
func Select(available []domain.SpendableUnit, requiredLovelace int64, requiredAssets map[string]int64) (*Selection, error) {
	target := domain.Value{Lovelace: requiredLovelace, Assets: requiredAssets}

	sel := &Selection{Total: domain.NewValue(0)}

	if target.Lovelace <= 0 && allZero(requiredAssets) {
		return sel, nil
	}

	for _, unit := range available {
		sel.Units = append(sel.Units, unit)
		sel.Total = sel.Total.Add(unit.Value)

		if sel.Total.Covers(target) {
			return sel, nil
		}
	}

	return nil, shortfallError(sel.Total, target)
}

func allZero(assets map[string]int64) bool {
	for _, qty := range assets {
		if qty > 0 {
			return false
		}
	}
	return true
}

// shortfallError builds a deterministic error listing unmet requirements in
// sorted unit order, lovelace first.
func shortfallError(got, target domain.Value) *InsufficientFundsError {
	err := &InsufficientFundsError{}

	if got.Lovelace < target.Lovelace {
		err.Shortfalls = append(err.Shortfalls, Shortfall{
			Unit:     domain.LovelaceUnit,
			Required: target.Lovelace,
			Got:      got.Lovelace,
		})
	}

	units := make([]string, 0, len(target.Assets))
	for unit := range target.Assets {
		units = append(units, unit)
	}
	sort.Strings(units)

	for _, unit := range units {
		if got.Assets[unit] < target.Assets[unit] {
			err.Shortfalls = append(err.Shortfalls, Shortfall{
				Unit:     unit,
				Required: target.Assets[unit],
				Got:      got.Assets[unit],
			})
		}
	}

	return err
}
