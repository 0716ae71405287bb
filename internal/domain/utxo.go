package domain

import "fmt"

// TxOutRef uniquely identifies a transaction output on either layer.
// A reference is consumed at most once; a spent reference never reappears
// as an input of a second transaction.
type TxOutRef struct {
	TxHash      string // source transaction hash (hex)
	OutputIndex int    // output position within the transaction
}

// String returns the canonical "txhash#index" form.
func (r TxOutRef) String() string {
	return fmt.Sprintf("%s#%d", r.TxHash, r.OutputIndex)
}

// SpendableUnit is an atomic, indivisible bundle owned by one address on one
// layer. A unit is either fully consumed by a transaction or left untouched;
// partial consumption is impossible.
type SpendableUnit struct {
	Ref     TxOutRef // unique reference
	Address string   // owning address
	Value   Value    // bundle contents
}

// IsPureADA reports whether the unit carries only the base currency.
func (u SpendableUnit) IsPureADA() bool {
	for _, qty := range u.Value.Assets {
		if qty > 0 {
			return false
		}
	}
	return true
}
