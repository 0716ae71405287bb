package stub

import (
	"context"
	"fmt"
	"sync"

	"hydra-launchpad/internal/domain"
	"hydra-launchpad/internal/head"
)

// Client implements head.Client for testing. Channels default to Open and
// submissions confirm immediately; error injection hooks cover the failure
// paths.
type Client struct {
	mu sync.Mutex

	Statuses    map[int]domain.HeadStatus // channel -> status, default Open
	Balances    map[string][]head.Allocation
	CommitSpecs []*head.CommitSpec
	SplitSpecs  []*head.SplitSpec
	DecommSpecs []*head.DecommitSpec
	TransSpecs  []*head.TransferSpec
	Submitted   [][][]byte // one entry per SubmitSigned call

	// SubmitErr fails SubmitSigned calls while non-nil. When SubmitErrOn is
	// non-zero only the call with that 1-based index fails.
	SubmitErr   error
	SubmitErrOn int
	submitCalls int
	// ConfirmErr fails the next AwaitTxConfirmation calls while non-nil.
	ConfirmErr error

	nextRef int
}

// NewClient creates a new stub head client.
func NewClient() *Client {
	return &Client{
		Statuses: make(map[int]domain.HeadStatus),
		Balances: make(map[string][]head.Allocation),
	}
}

// Compile-time interface check.
var _ head.Client = (*Client)(nil)

// balanceKey identifies an address's balance inside one channel.
func balanceKey(address string, channelID int) string {
	return fmt.Sprintf("%s|%d", address, channelID)
}

// SetStatus sets a channel's status.
func (c *Client) SetStatus(channelID int, status domain.HeadStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Statuses[channelID] = status
}

// SetBalance sets an address's allocations inside a channel.
func (c *Client) SetBalance(address string, channelID int, allocs []head.Allocation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[balanceKey(address, channelID)] = allocs
}

// Status reports the stubbed channel status.
func (c *Client) Status(_ context.Context, channelID int) (domain.HeadStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status, ok := c.Statuses[channelID]; ok {
		return status, nil
	}
	return domain.HeadOpen, nil
}

// GetChannelBalance retrieves stubbed allocations.
func (c *Client) GetChannelBalance(_ context.Context, address string, channelID int) ([]head.Allocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[balanceKey(address, channelID)], nil
}

// BuildCommitTransaction records the spec and returns synthetic tx bytes.
func (c *Client) BuildCommitTransaction(_ context.Context, spec *head.CommitSpec) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CommitSpecs = append(c.CommitSpecs, spec)
	return []byte(fmt.Sprintf("commit-tx-%d", len(c.CommitSpecs))), nil
}

// BuildSplitTransaction records the spec and returns synthetic tx bytes.
func (c *Client) BuildSplitTransaction(_ context.Context, spec *head.SplitSpec) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SplitSpecs = append(c.SplitSpecs, spec)
	return []byte(fmt.Sprintf("split-tx-%d", len(c.SplitSpecs))), nil
}

// BuildDecommitTransaction records the spec and returns synthetic tx bytes.
func (c *Client) BuildDecommitTransaction(_ context.Context, spec *head.DecommitSpec) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DecommSpecs = append(c.DecommSpecs, spec)
	return []byte(fmt.Sprintf("decommit-tx-%d", len(c.DecommSpecs))), nil
}

// BuildTransferTransaction records the spec and returns synthetic tx bytes.
func (c *Client) BuildTransferTransaction(_ context.Context, spec *head.TransferSpec) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TransSpecs = append(c.TransSpecs, spec)
	return []byte(fmt.Sprintf("transfer-tx-%d", len(c.TransSpecs))), nil
}

// SubmitSigned records the transactions and returns a synthetic reference.
func (c *Client) SubmitSigned(_ context.Context, channelID int, signed ...[]byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitCalls++
	if c.SubmitErr != nil && (c.SubmitErrOn == 0 || c.submitCalls == c.SubmitErrOn) {
		return "", c.SubmitErr
	}
	c.Submitted = append(c.Submitted, signed)
	c.nextRef++
	return fmt.Sprintf("head-txref-%d", c.nextRef), nil
}

// AwaitTxConfirmation confirms immediately unless ConfirmErr is set.
func (c *Client) AwaitTxConfirmation(ctx context.Context, _ int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ConfirmErr != nil {
		return c.ConfirmErr
	}
	return ctx.Err()
}

// Close is a no-op.
func (c *Client) Close() error {
	return nil
}
