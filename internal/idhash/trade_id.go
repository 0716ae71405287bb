package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade id using SHA256.
// Formula: SHA256(asset_id|trader|side|token_amount|settlement_tx)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	assetID string,
	trader string,
	side string,
	tokenAmount int64,
	settlementTx string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%s",
		assetID,
		trader,
		side,
		tokenAmount,
		settlementTx,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
