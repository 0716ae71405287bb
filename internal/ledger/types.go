package ledger

import "hydra-launchpad/internal/domain"

// TxOut is one output of a transaction spec.
type TxOut struct {
	Address string       `json:"address"`
	Value   domain.Value `json:"value"`
	Datum   interface{}  `json:"datum,omitempty"` // inline datum, opaque to the client
}

// MintField declares token units created or burned by a transaction.
type MintField struct {
	PolicyID  string `json:"policyId"`
	AssetName string `json:"assetName"`
	Quantity  int64  `json:"quantity"` // negative for burns
}

// TxSpec describes an unsigned transaction for the ledger service to build.
// Inputs are consumed whole; the ledger returns change to ChangeAddress.
type TxSpec struct {
	ChangeAddress string                 `json:"changeAddress"`
	Inputs        []domain.TxOutRef      `json:"inputs"`
	Collateral    []domain.TxOutRef      `json:"collateral,omitempty"`
	Outputs       []TxOut                `json:"outputs"`
	Mint          []MintField            `json:"mint,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"` // label -> payload
}
