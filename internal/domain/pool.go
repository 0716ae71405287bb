package domain

// HeadStatus is the lifecycle status of an off-chain settlement head.
type HeadStatus string

// Head statuses as reported by the channel service.
const (
	HeadIdle           HeadStatus = "Idle"
	HeadInitializing   HeadStatus = "Initializing"
	HeadOpen           HeadStatus = "Open"
	HeadClosed         HeadStatus = "Closed"
	HeadFanoutPossible HeadStatus = "FanoutPossible"
)

// Pool holds the bonding-curve state for one token. There is exactly one
// pool per token.
//
// Invariants: CurrentPrice = Slope * CurrentSupply; CurrentSupply never
// exceeds the token's TotalSupply; while the token is not MIGRATED every
// settled trade moves CurrentSupply by exactly the traded token amount.
type Pool struct {
	AssetID        string  // token identity (policy id + asset name)
	CurrentSupply  int64   // circulating supply on the curve
	Slope          float64 // price per unit of supply
	ADARaised      int64   // cumulative lovelace raised by buys
	Volume24h      int64   // lovelace volume over the trailing 24h
	PriceChange24h float64 // relative price change over the trailing 24h
	HeadPort       int     // assigned head port, 0 when trading on L1
	HeadStatus     HeadStatus
	UpdatedAt      int64 // last mutation timestamp (ms)
}

// OnHead reports whether the pool has been assigned to a settlement head.
func (p *Pool) OnHead() bool {
	return p.HeadPort != 0
}

// PoolDatum is the on-chain datum emitted at mint time, carried verbatim
// into the pool script output.
type PoolDatum struct {
	PolicyID     string  // minting policy identity
	AssetName    string  // asset name (hex)
	Slope        float64 // bonding-curve slope coefficient
	Supply       int64   // initial circulating supply, always 0 at mint
	OwnerKeyHash string  // owner payment key hash
}
