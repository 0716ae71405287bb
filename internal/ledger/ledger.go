package ledger

import (
	"context"
	"errors"

	"hydra-launchpad/internal/domain"
)

// ErrStaleInputs is returned when a selected input was already spent by the
// time the transaction reached the ledger. Callers must re-fetch a fresh
// snapshot and redo selection; stale selections are never reused.
var ErrStaleInputs = errors.New("ledger: selected inputs already spent")

// Client defines the L1 ledger service interface.
type Client interface {
	// GetSpendableUnits retrieves the current spendable units of an address.
	GetSpendableUnits(ctx context.Context, address string) ([]domain.SpendableUnit, error)

	// BuildUnsignedTransaction builds an unsigned transaction from a spec.
	BuildUnsignedTransaction(ctx context.Context, spec *TxSpec) ([]byte, error)

	// Submit sends a signed transaction and returns its reference.
	// Returns ErrStaleInputs if any consumed input was already spent.
	Submit(ctx context.Context, signed []byte) (string, error)

	// AwaitConfirmation blocks until the ledger reports the transaction
	// final. No internal timeout is enforced; callers bound the wait via ctx.
	AwaitConfirmation(ctx context.Context, txRef string) error
}
