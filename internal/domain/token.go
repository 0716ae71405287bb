package domain

// TokenStage is the lifecycle stage of a token.
type TokenStage string

// Token lifecycle stages. A token may cycle between MINTED and COMMITTED
// any number of times before MIGRATED.
const (
	StageMinting      TokenStage = "MINTING"      // mint submitted, not yet confirmed
	StageMinted       TokenStage = "MINTED"       // confirmed on L1
	StageCommitted    TokenStage = "COMMITTED"    // pool committed into a head
	StageTrading      TokenStage = "TRADING"      // actively trading inside the head
	StageDecommitting TokenStage = "DECOMMITTING" // decommit in flight
	StageMigrated     TokenStage = "MIGRATED"     // graduated to full liquidity
)

// Token represents a minted fungible token.
// Identity (PolicyID, AssetName) is immutable once minted and unique
// system-wide: the policy id is derived from a consumed UTxO reference.
type Token struct {
	PolicyID     string     // one-shot minting policy identity (hex)
	AssetName    string     // asset name (hex-encoded)
	Ticker       string     // display ticker
	TotalSupply  int64      // fixed at mint time
	Decimals     int        // decimal precision
	OwnerKeyHash string     // owner payment key hash (hex)
	CreationTx   string     // mint transaction hash
	ContentID    string     // content-store identifier for logo/metadata, opaque
	Stage        TokenStage // lifecycle stage
	CreatedAt    int64      // record creation timestamp (ms)
}

// AssetID returns the concatenated policy id + asset name, the unit string
// used inside Value bundles.
func (t *Token) AssetID() string {
	return t.PolicyID + t.AssetName
}
