package address

import (
	"crypto/ed25519"
	"testing"
)

func TestIsValidVerificationKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	if !IsValidVerificationKey(pub) {
		t.Error("generated ed25519 public key rejected")
	}

	if IsValidVerificationKey(nil) {
		t.Error("nil key accepted")
	}
	if IsValidVerificationKey(make([]byte, 31)) {
		t.Error("short key accepted")
	}

	// 0xEF || 0xFF*31 encodes a y coordinate with no matching x, so no
	// curve point decodes from it.
	bad := make([]byte, VerificationKeySize)
	for i := range bad {
		bad[i] = 0xFF
	}
	bad[0] = 0xEF
	if IsValidVerificationKey(bad) {
		t.Error("off-curve bytes accepted")
	}
}

func TestPaymentKeyHash(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	h1, err := PaymentKeyHash(pub)
	if err != nil {
		t.Fatalf("PaymentKeyHash failed: %v", err)
	}
	h2, err := PaymentKeyHash(pub)
	if err != nil {
		t.Fatalf("PaymentKeyHash failed: %v", err)
	}

	if h1 != h2 {
		t.Error("hash not deterministic")
	}
	if len(h1) != 56 {
		t.Errorf("expected 56-char hex hash, got %d chars", len(h1))
	}

	if _, err := PaymentKeyHash([]byte("too short")); err == nil {
		t.Error("expected error for malformed key")
	}
}
