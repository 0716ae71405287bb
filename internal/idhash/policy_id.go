package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePolicyID computes a deterministic one-shot minting policy identity
// using SHA256 over the consumed reference input.
// Formula: SHA256(script_tag|tx_hash|output_index)
// Returns hex-encoded hash (64 characters).
//
// Because the reference input can only ever be consumed once, no two mints
// can derive the same policy identity.
func ComputePolicyID(scriptTag string, txHash string, outputIndex int) string {
	data := fmt.Sprintf("%s|%s|%d", scriptTag, txHash, outputIndex)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
