package domain

// LovelaceUnit is the asset unit of the base currency.
const LovelaceUnit = "lovelace"

// LovelacePerADA is the number of lovelace in one ADA.
const LovelacePerADA = 1_000_000

// Value is a multi-asset bundle: a lovelace amount plus zero or more
// token-unit quantities keyed by asset unit (policy id + asset name hex).
type Value struct {
	Lovelace int64
	Assets   map[string]int64 // unit -> quantity, never contains lovelace
}

// NewValue creates a Value with an empty asset map.
func NewValue(lovelace int64) Value {
	return Value{Lovelace: lovelace, Assets: make(map[string]int64)}
}

// Add accumulates other into v and returns the result.
// Neither operand is mutated.
func (v Value) Add(other Value) Value {
	out := Value{Lovelace: v.Lovelace + other.Lovelace, Assets: make(map[string]int64, len(v.Assets)+len(other.Assets))}
	for unit, qty := range v.Assets {
		out.Assets[unit] += qty
	}
	for unit, qty := range other.Assets {
		out.Assets[unit] += qty
	}
	return out
}

// Quantity returns the quantity of the given unit, treating lovelace as its own unit.
func (v Value) Quantity(unit string) int64 {
	if unit == LovelaceUnit {
		return v.Lovelace
	}
	return v.Assets[unit]
}

// Covers reports whether v meets or exceeds every quantity in target.
func (v Value) Covers(target Value) bool {
	if v.Lovelace < target.Lovelace {
		return false
	}
	for unit, qty := range target.Assets {
		if v.Assets[unit] < qty {
			return false
		}
	}
	return true
}

// IsZero reports whether v carries no lovelace and no assets.
func (v Value) IsZero() bool {
	if v.Lovelace != 0 {
		return false
	}
	for _, qty := range v.Assets {
		if qty != 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := Value{Lovelace: v.Lovelace, Assets: make(map[string]int64, len(v.Assets))}
	for unit, qty := range v.Assets {
		out.Assets[unit] = qty
	}
	return out
}
