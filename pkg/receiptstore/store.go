// Package receiptstore journals lock receipts and their confirmation
// outcome in PostgreSQL.
package receiptstore

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/orchestrator"
)

// ErrReceiptNotFound is returned when no receipt matches a lookup.
var ErrReceiptNotFound = errors.New("receipt not found")

// Receipt statuses. The terminal ones match the orchestrator outcomes.
const (
	StatusSubmitted = "submitted"
	StatusConfirmed = orchestrator.OutcomeConfirmed
	StatusTimedOut  = orchestrator.OutcomeTimedOut
	StatusAbandoned = orchestrator.OutcomeAbandoned
)

func validStatus(s string) bool {
	switch s {
	case StatusSubmitted, StatusConfirmed, StatusTimedOut, StatusAbandoned:
		return true
	}
	return false
}

// Entry is a journaled receipt.
type Entry struct {
	bridge.Receipt
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// Store defines receipt persistence.
type Store interface {
	orchestrator.Journal
	SaveReceipt(ctx context.Context, r *bridge.Receipt) error
	UpdateStatus(ctx context.Context, sourceTxHash common.Hash, status string) error
	GetBySourceTxHash(ctx context.Context, sourceTxHash common.Hash) (*Entry, error)
	ListBySender(ctx context.Context, sender common.Address, limit int) ([]*Entry, error)
}
