package head

import (
	"context"
	"errors"

	"hydra-launchpad/internal/domain"
)

// ErrChannelUnavailable is returned when an L2 action is requested against a
// channel that is not Open.
var ErrChannelUnavailable = errors.New("head: channel not open")

// Client defines the L2 head (settlement channel) service interface.
// Channels are addressed by their head port.
type Client interface {
	// Status reports the channel's current lifecycle status.
	Status(ctx context.Context, channelID int) (domain.HeadStatus, error)

	// GetChannelBalance retrieves an address's balance inside the channel,
	// broken into its channel-internal allocations.
	GetChannelBalance(ctx context.Context, address string, channelID int) ([]Allocation, error)

	// BuildCommitTransaction builds the unsigned L1 transaction committing
	// the selected inputs into the channel.
	BuildCommitTransaction(ctx context.Context, spec *CommitSpec) ([]byte, error)

	// BuildSplitTransaction builds the unsigned channel-internal transaction
	// isolating the target assets into a dedicated allocation.
	BuildSplitTransaction(ctx context.Context, spec *SplitSpec) ([]byte, error)

	// BuildDecommitTransaction builds the unsigned channel-internal
	// transaction removing an allocation from the channel toward L1.
	BuildDecommitTransaction(ctx context.Context, spec *DecommitSpec) ([]byte, error)

	// BuildTransferTransaction builds the unsigned channel-internal
	// transaction settling a trade inside the channel.
	BuildTransferTransaction(ctx context.Context, spec *TransferSpec) ([]byte, error)

	// SubmitSigned sends one or more signed transactions to the channel in
	// order. Returns the channel's reference for the last transaction.
	SubmitSigned(ctx context.Context, channelID int, signed ...[]byte) (string, error)

	// AwaitTxConfirmation blocks until the channel reports the transaction
	// valid in a confirmed snapshot. No internal timeout; bound via ctx.
	AwaitTxConfirmation(ctx context.Context, channelID int, txRef string) error

	// Close releases all channel connections.
	Close() error
}
