// Package address provides verification-key and payment-key-hash helpers
// for ledger addresses.
package address

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"filippo.io/edwards25519"
)

// VerificationKeySize is the byte length of an ed25519 verification key.
const VerificationKeySize = 32

// IsValidVerificationKey reports whether key decodes to a point on the
// ed25519 curve. Ledger payment keys are ed25519; anything off-curve can
// never sign a transaction. Non-canonical encodings of valid points are
// accepted.
func IsValidVerificationKey(key []byte) bool {
	if len(key) != VerificationKeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(key)
	return err == nil
}

// PaymentKeyHash derives the hex-encoded payment key hash for a
// verification key. Returns an error for malformed keys.
func PaymentKeyHash(key []byte) (string, error) {
	if !IsValidVerificationKey(key) {
		return "", fmt.Errorf("invalid verification key (%d bytes)", len(key))
	}
	hash := sha256.Sum256(key)
	// Payment credentials use a 28-byte hash.
	return hex.EncodeToString(hash[:28]), nil
}
