package orchestrator

import (
	"time"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/confirmation"
)

// State is a bridge flow state.
type State string

const (
	StateIdle                 State = "Idle"
	StateCheckingAllowance    State = "CheckingAllowance"
	StateNeedsApproval        State = "NeedsApproval"
	StateReady                State = "Ready"
	StateApproving            State = "Approving"
	StateSubmitting           State = "Submitting"
	StateAwaitingConfirmation State = "AwaitingConfirmation"
	StateCompleted            State = "Completed"
	StateFailed               State = "Failed"
)

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// InFlight reports whether s holds the wallet's submission guard.
func (s State) InFlight() bool {
	return s == StateSubmitting || s == StateAwaitingConfirmation
}

// Busy reports whether an operation is running in s.
func (s State) Busy() bool {
	return s == StateCheckingAllowance || s == StateApproving || s.InFlight()
}

// Transition is published whenever a flow changes state.
type Transition struct {
	FlowID    string    `json:"flow_id"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// IntentView is the JSON form of a flow's intent.
type IntentView struct {
	SourceChainID      uint64 `json:"source_chain_id"`
	DestinationChainID uint64 `json:"destination_chain_id"`
	Token              string `json:"token"`
	Symbol             string `json:"symbol"`
	Amount             string `json:"amount"`
}

// Snapshot is a point-in-time copy of a flow.
type Snapshot struct {
	ID           string               `json:"id"`
	State        State                `json:"state"`
	History      []State              `json:"history"`
	Intent       IntentView           `json:"intent"`
	Approved     bool                 `json:"approved"`
	Allowance    string               `json:"allowance"`
	ApprovalTx   string               `json:"approval_tx,omitempty"`
	Receipt      *bridge.Receipt      `json:"receipt,omitempty"`
	Confirmation *confirmation.Result `json:"confirmation,omitempty"`
	Attempts     int                  `json:"attempts"`
	ErrorKind    string               `json:"error_kind,omitempty"`
	Error        string               `json:"error,omitempty"`
	// Pending is set when confirmation timed out; the transfer may still settle.
	Pending   bool      `json:"pending"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
