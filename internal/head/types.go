package head

import (
	"encoding/json"
	"fmt"

	"hydra-launchpad/internal/domain"
)

// Allocation is one channel-internal bundle held by an address. Decommits
// remove whole allocations only, never fractions of an aggregate balance.
type Allocation struct {
	AllocationID string       `json:"allocationId"`
	Address      string       `json:"address"`
	Value        domain.Value `json:"value"`
}

// CommitSpec describes the L1 transaction committing inputs into a channel.
type CommitSpec struct {
	ChannelID int               `json:"channelId"`
	Address   string            `json:"address"`
	Inputs    []domain.TxOutRef `json:"inputs"`
	Amount    domain.Value      `json:"amount"`
}

// SplitSpec describes the channel-internal transaction isolating the target
// assets into a dedicated allocation.
type SplitSpec struct {
	ChannelID    int          `json:"channelId"`
	Address      string       `json:"address"`
	AllocationID string       `json:"allocationId"`
	Target       domain.Value `json:"target"`
}

// DecommitSpec describes the channel-internal transaction removing an
// allocation from the channel toward an L1 address.
type DecommitSpec struct {
	ChannelID    int    `json:"channelId"`
	Address      string `json:"address"` // L1 destination
	AllocationID string `json:"allocationId"`
}

// TransferSpec describes the channel-internal transaction settling a trade:
// lovelace against token units between trader and pool.
type TransferSpec struct {
	ChannelID   int              `json:"channelId"`
	Trader      string           `json:"trader"`
	AssetID     string           `json:"assetId"`
	Side        domain.TradeSide `json:"side"`
	TokenAmount int64            `json:"tokenAmount"`
	Lovelace    int64            `json:"lovelace"`
}

// ServerMessage is one message from the channel's websocket feed. The wire
// format is a JSON object discriminated by a "tag" field; messages are
// decoded into typed variants at this boundary and never propagated untyped.
type ServerMessage interface {
	serverMessage()
}

// Greetings is sent by the channel on connect and carries its status.
type Greetings struct {
	HeadStatus domain.HeadStatus
}

// HeadIsOpen signals the channel transitioned to Open.
type HeadIsOpen struct {
	HeadID string
}

// HeadIsClosed signals the channel transitioned to Closed.
type HeadIsClosed struct {
	HeadID string
}

// ReadyToFanout signals the channel reached FanoutPossible.
type ReadyToFanout struct {
	HeadID string
}

// TxValid signals a submitted transaction was accepted by the channel.
type TxValid struct {
	TxRef string
}

// TxInvalid signals a submitted transaction was rejected.
type TxInvalid struct {
	TxRef  string
	Reason string
}

// SnapshotConfirmed signals a snapshot containing the listed transactions
// was multi-signed by all channel participants.
type SnapshotConfirmed struct {
	TxRefs []string
}

// DecommitFinalized signals an allocation left the channel and reached L1.
type DecommitFinalized struct {
	AllocationID string
}

func (Greetings) serverMessage()         {}
func (HeadIsOpen) serverMessage()        {}
func (HeadIsClosed) serverMessage()      {}
func (ReadyToFanout) serverMessage()     {}
func (TxValid) serverMessage()           {}
func (TxInvalid) serverMessage()         {}
func (SnapshotConfirmed) serverMessage() {}
func (DecommitFinalized) serverMessage() {}

// UnknownMessageError reports a websocket message with an unrecognized tag.
type UnknownMessageError struct {
	Tag string
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("unknown channel message tag %q", e.Tag)
}

// rawServerMessage is the wire envelope; only the fields of the matched tag
// are populated.
type rawServerMessage struct {
	Tag          string `json:"tag"`
	HeadStatus   string `json:"headStatus"`
	HeadID       string `json:"headId"`
	TxRef        string `json:"txRef"`
	Reason       string `json:"reason"`
	AllocationID string `json:"allocationId"`
	Snapshot     *struct {
		TxRefs []string `json:"txRefs"`
	} `json:"snapshot"`
}

// ParseServerMessage decodes one websocket message into its typed variant.
// Unknown tags return UnknownMessageError so callers can decide whether to
// skip or fail; malformed JSON returns a decode error.
func ParseServerMessage(data []byte) (ServerMessage, error) {
	var raw rawServerMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode channel message: %w", err)
	}

	switch raw.Tag {
	case "Greetings":
		return Greetings{HeadStatus: domain.HeadStatus(raw.HeadStatus)}, nil
	case "HeadIsOpen":
		return HeadIsOpen{HeadID: raw.HeadID}, nil
	case "HeadIsClosed":
		return HeadIsClosed{HeadID: raw.HeadID}, nil
	case "ReadyToFanout":
		return ReadyToFanout{HeadID: raw.HeadID}, nil
	case "TxValid":
		return TxValid{TxRef: raw.TxRef}, nil
	case "TxInvalid":
		return TxInvalid{TxRef: raw.TxRef, Reason: raw.Reason}, nil
	case "SnapshotConfirmed":
		msg := SnapshotConfirmed{}
		if raw.Snapshot != nil {
			msg.TxRefs = raw.Snapshot.TxRefs
		}
		return msg, nil
	case "DecommitFinalized":
		return DecommitFinalized{AllocationID: raw.AllocationID}, nil
	default:
		return nil, &UnknownMessageError{Tag: raw.Tag}
	}
}
