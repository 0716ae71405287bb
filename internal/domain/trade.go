package domain

// TradeSide is the direction of a trade against the bonding curve.
type TradeSide string

// Trade side constants.
const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is an executed trade against a pool. A Trade is recorded if and
// only if the corresponding settlement succeeded; it is immutable once
// recorded and is created atomically with the pool supply mutation.
type Trade struct {
	TradeID        string    // deterministic hash
	AssetID        string    // traded token
	Side           TradeSide // buy or sell
	TokenAmount    int64     // token units moved
	LovelaceAmount int64     // lovelace moved against the tokens
	Price          float64   // pool price after the trade
	TraderAddress  string    // trader identity
	SettlementTx   string    // settlement transaction reference
	HeadPort       int       // settlement head, 0 for direct L1 settlement
	Timestamp      int64     // execution timestamp (ms)
}

// TradeTick is the timeseries projection of a trade used for volume and
// price-change aggregation.
type TradeTick struct {
	AssetID   string
	Timestamp int64 // ms
	Price     float64
	Lovelace  int64 // lovelace volume contributed by the trade
	Side      TradeSide
}
