package orchestrator

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
)

// Outcomes recorded once a flow stops waiting for confirmation.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeTimedOut  = "timed_out"
	OutcomeAbandoned = "abandoned"
)

// Journal keeps a durable record of receipts. Journal failures are logged
// and never change a flow's state.
type Journal interface {
	RecordReceipt(ctx context.Context, r *bridge.Receipt) error
	RecordOutcome(ctx context.Context, sourceTxHash common.Hash, outcome string) error
}

// NopJournal discards everything.
type NopJournal struct{}

func (NopJournal) RecordReceipt(context.Context, *bridge.Receipt) error { return nil }

func (NopJournal) RecordOutcome(context.Context, common.Hash, string) error { return nil }
