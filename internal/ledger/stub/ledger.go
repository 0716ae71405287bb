package stub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/ledger"
)

// Client implements ledger.Client for testing. All submitted transactions
// confirm immediately unless a txRef is held back via HoldConfirmation.
type Client struct {
	mu sync.Mutex

	Units       map[string][]domain.SpendableUnit // address -> units
	BuiltSpecs  []*ledger.TxSpec                  // specs passed to BuildUnsignedTransaction
	Submitted   [][]byte                          // signed bytes passed to Submit
	StaleTxs    map[string]bool                   // signed payload (string) -> reject as stale
	unconfirmed map[string]bool
	nextRef     int
}

// NewClient creates a new stub ledger client.
func NewClient() *Client {
	return &Client{
		Units:       make(map[string][]domain.SpendableUnit),
		StaleTxs:    make(map[string]bool),
		unconfirmed: make(map[string]bool),
	}
}

// Compile-time interface check.
var _ ledger.Client = (*Client)(nil)

// SetUnits sets the spendable units for an address.
func (c *Client) SetUnits(address string, units []domain.SpendableUnit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Units[address] = units
}

// HoldConfirmation marks a txRef as unconfirmed until ReleaseConfirmation.
func (c *Client) HoldConfirmation(txRef string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unconfirmed[txRef] = true
}

// ReleaseConfirmation confirms a previously held txRef.
func (c *Client) ReleaseConfirmation(txRef string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.unconfirmed, txRef)
}

// GetSpendableUnits retrieves stubbed units for an address.
func (c *Client) GetSpendableUnits(_ context.Context, address string) ([]domain.SpendableUnit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Units[address], nil
}

// BuildUnsignedTransaction records the spec and returns synthetic tx bytes.
func (c *Client) BuildUnsignedTransaction(_ context.Context, spec *ledger.TxSpec) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BuiltSpecs = append(c.BuiltSpecs, spec)
	return []byte(fmt.Sprintf("unsigned-tx-%d", len(c.BuiltSpecs))), nil
}

// Submit records the signed bytes and returns a synthetic reference.
func (c *Client) Submit(_ context.Context, signed []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.StaleTxs[string(signed)] {
		return "", ledger.ErrStaleInputs
	}
	c.Submitted = append(c.Submitted, signed)
	c.nextRef++
	return fmt.Sprintf("txref-%d", c.nextRef), nil
}

// AwaitConfirmation blocks while the txRef is held, polling the stub state.
func (c *Client) AwaitConfirmation(ctx context.Context, txRef string) error {
	for {
		c.mu.Lock()
		held := c.unconfirmed[txRef]
		c.mu.Unlock()
		if !held {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}
