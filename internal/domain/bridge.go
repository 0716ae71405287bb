package domain

// CommitRequest is the ephemeral request to move assets from L1 into a head.
// It is submitted once and discarded after terminal success or failure;
// selected inputs are never reused after a failure.
type CommitRequest struct {
	Address        string     // originating L1 address
	Target         Value      // lovelace and per-asset targets
	SelectedInputs []TxOutRef // inputs chosen by the coin selector
	ChannelID      int        // destination head port
}

// DecommitRequest is the ephemeral request to move assets from a head back
// to L1 via the two-phase split/decommit protocol.
type DecommitRequest struct {
	Address        string   // L1 destination address
	Target         Value    // lovelace and per-asset targets
	ChannelID      int      // source head port
	FullyWithdrawn []string // units whose entire channel holding is withdrawn
}

// SplitPhase is the recovery status of a two-phase decommit.
type SplitPhase string

// Split phases. SPLIT_CONFIRMED means the isolated allocation exists inside
// the head and phase 2 may be retried without re-splitting.
const (
	SplitPending   SplitPhase = "SPLIT_PENDING"
	SplitConfirmed SplitPhase = "SPLIT_CONFIRMED"
	DecommitDone   SplitPhase = "DECOMMIT_DONE"
)

// SplitRecovery is the persisted phase-1 marker of a two-phase decommit.
// It records which allocation was isolated so a retry of phase 2 alone is
// possible after a phase-2 failure.
type SplitRecovery struct {
	AllocationID   string     // deterministic id of the isolated allocation
	Address        string     // withdrawing address
	ChannelID      int        // head port
	Target         Value      // isolated lovelace and assets
	FullyWithdrawn []string   // units leaving the head entirely
	Phase          SplitPhase // current phase
	SplitTx        string     // phase-1 transaction reference
	UpdatedAt      int64      // last transition timestamp (ms)
}

// SignRequest is an unsigned transaction returned to the caller for signing.
type SignRequest struct {
	UnsignedTx []byte // transaction bytes to sign
	Request    CommitRequest
}

// TwoPhaseSignRequest carries both unsigned transactions of a decommit.
// Phase 2 is only valid once phase 1 is accepted; both must be signed in
// sequence and submitted together.
type TwoPhaseSignRequest struct {
	AllocationID string
	SplitTx      []byte // phase 1: isolate the requested assets
	DecommitTx   []byte // phase 2: remove the allocation and fan out to L1
	Request      DecommitRequest
}
