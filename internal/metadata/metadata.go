package metadata

import (
	"context"
	"fmt"

	"github.com/mr-tron/base58"
)

// ContentStore accepts an opaque content blob and returns its content
// identifier. The identifier is threaded through mint metadata verbatim and
// never interpreted.
type ContentStore interface {
	// Pin uploads a blob and returns its CIDv0.
	Pin(ctx context.Context, name string, blob []byte) (string, error)
}

// cidV0Length is the length of a base58-encoded CIDv0 ("Qm" + 44 chars).
const cidV0Length = 46

// multihash prefix of a CIDv0: sha2-256 (0x12) with 32-byte digest (0x20).
var cidV0Prefix = []byte{0x12, 0x20}

// ValidateCID checks that s is a well-formed CIDv0.
func ValidateCID(s string) error {
	if len(s) != cidV0Length {
		return fmt.Errorf("cid length %d, want %d", len(s), cidV0Length)
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode cid: %w", err)
	}

	if len(raw) != 34 || raw[0] != cidV0Prefix[0] || raw[1] != cidV0Prefix[1] {
		return fmt.Errorf("cid is not a sha2-256 multihash")
	}

	return nil
}
