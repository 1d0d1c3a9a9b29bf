package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/topdeveloper55/ether-pulse-bridge/internal/fanout"
	"github.com/topdeveloper55/ether-pulse-bridge/internal/metrics"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/confirmation"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

const journalTimeout = 10 * time.Second

// Flow is the state machine for one bridge intent. Operations are
// serialized by state: each one claims a busy state before it calls out and
// any other operation started meanwhile fails with ErrInvalidTransition.
type Flow struct {
	id     string
	intent bridge.Intent
	o      *Orchestrator
	events *fanout.Broadcaster[Transition]

	mu           sync.Mutex
	state        State
	history      []State
	allowance    bridge.AllowanceResult
	approvalTx   common.Hash
	receipt      *bridge.Receipt
	confirmation *confirmation.Result
	attempts     int
	errKind      string
	errMsg       string
	pending      bool
	createdAt    time.Time
	updatedAt    time.Time
}

func newFlow(o *Orchestrator, id string, intent bridge.Intent) *Flow {
	now := o.now()
	return &Flow{
		id:        id,
		intent:    intent,
		o:         o,
		events:    fanout.New[Transition](fanout.DefaultBuffer),
		state:     StateIdle,
		history:   []State{StateIdle},
		allowance: bridge.AllowanceResult{Allowance: "0"},
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the flow id.
func (f *Flow) ID() string { return f.id }

// Intent returns the intent the flow was started with.
func (f *Flow) Intent() bridge.Intent { return f.intent }

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe streams this flow's transitions. The channel closes once the
// flow reaches a terminal state.
func (f *Flow) Subscribe() (<-chan Transition, func()) {
	return f.events.Subscribe()
}

// Snapshot returns a copy of the flow.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{
		ID:      f.id,
		State:   f.state,
		History: append([]State(nil), f.history...),
		Intent: IntentView{
			SourceChainID:      f.intent.Source.ChainID,
			DestinationChainID: f.intent.Destination.ChainID,
			Token:              f.intent.Token.Address.Hex(),
			Symbol:             f.intent.Token.Symbol,
			Amount:             f.intent.Amount,
		},
		Approved:  f.allowance.Approved,
		Allowance: f.allowance.Allowance,
		Attempts:  f.attempts,
		ErrorKind: f.errKind,
		Error:     f.errMsg,
		Pending:   f.pending,
		CreatedAt: f.createdAt,
		UpdatedAt: f.updatedAt,
	}
	if f.approvalTx != (common.Hash{}) {
		s.ApprovalTx = f.approvalTx.Hex()
	}
	if f.receipt != nil {
		r := *f.receipt
		s.Receipt = &r
	}
	if f.confirmation != nil {
		c := *f.confirmation
		s.Confirmation = &c
	}
	return s
}

// Recheck re-reads the allowance and settles on NeedsApproval or Ready.
// It is refused while an operation runs and once the flow is terminal.
func (f *Flow) Recheck(ctx context.Context) error {
	f.mu.Lock()
	if f.state.Busy() || f.state.Terminal() {
		from := f.state
		f.mu.Unlock()
		return invalidTransition("recheck", from)
	}
	f.clearErrorLocked()
	f.transitionLocked(StateCheckingAllowance, nil)
	f.mu.Unlock()

	f.checkAllowance(ctx)
	return nil
}

// Approve grants the bridge allowance and re-checks. On failure the flow
// returns to NeedsApproval with the error recorded.
func (f *Flow) Approve(ctx context.Context) error {
	if err := f.beginApprove(); err != nil {
		return err
	}
	return f.runApprove(ctx)
}

// ApproveAsync claims the Approving state and runs the approval in the
// background. The channel yields the approval's result.
func (f *Flow) ApproveAsync(ctx context.Context) (<-chan error, error) {
	if err := f.beginApprove(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		done <- f.runApprove(ctx)
		close(done)
	}()
	return done, nil
}

// Submit locks the amount and waits for confirmation. A submission failure
// leaves the flow in Ready through Failed; a confirmation timeout leaves it
// Failed with Pending set.
func (f *Flow) Submit(ctx context.Context) error {
	s, release, err := f.beginSubmit()
	if err != nil {
		return err
	}
	return f.runSubmit(ctx, s, release)
}

// SubmitAsync claims the wallet guard and the Submitting state, then runs
// the submission in the background. Guard and state errors are returned
// synchronously.
func (f *Flow) SubmitAsync(ctx context.Context) (<-chan error, error) {
	s, release, err := f.beginSubmit()
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		done <- f.runSubmit(ctx, s, release)
		close(done)
	}()
	return done, nil
}

func (f *Flow) beginApprove() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateNeedsApproval {
		return invalidTransition("approve", f.state)
	}
	f.clearErrorLocked()
	f.transitionLocked(StateApproving, nil)
	return nil
}

func (f *Flow) runApprove(ctx context.Context) error {
	s := f.o.c.Wallet.Session()
	hash, err := f.o.c.Approvals.Approve(ctx, s, f.intent.Source, f.intent.Token)

	f.mu.Lock()
	if hash != (common.Hash{}) {
		f.approvalTx = hash
	}
	if err != nil {
		f.transitionLocked(StateNeedsApproval, err)
		f.mu.Unlock()
		return err
	}
	f.transitionLocked(StateCheckingAllowance, nil)
	f.mu.Unlock()

	f.checkAllowance(ctx)
	return nil
}

func (f *Flow) beginSubmit() (wallet.Session, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateReady {
		return wallet.Session{}, nil, invalidTransition("submit", f.state)
	}
	s := f.o.c.Wallet.Session()
	if !s.Connected {
		return wallet.Session{}, nil, bridge.NotConnectedError()
	}
	release, err := f.o.guard.acquire(s.Address, f.id)
	if err != nil {
		return wallet.Session{}, nil, err
	}
	f.clearErrorLocked()
	f.transitionLocked(StateSubmitting, nil)
	return s, release, nil
}

func (f *Flow) runSubmit(ctx context.Context, s wallet.Session, release func()) error {
	defer release()

	receipt, err := f.o.c.Submissions.SubmitLock(ctx, s, f.intent)
	if err != nil {
		f.mu.Lock()
		f.transitionLocked(StateFailed, err)
		f.transitionLocked(StateReady, nil)
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	f.receipt = receipt
	f.transitionLocked(StateAwaitingConfirmation, nil)
	f.mu.Unlock()

	f.record(ctx, func(jctx context.Context) error {
		return f.o.journal.RecordReceipt(jctx, receipt)
	})

	result, err := f.o.c.Confirmations.Await(ctx, receipt.SourceTxHash.Hex(), f.observeAttempt)

	f.mu.Lock()
	f.confirmation = &result
	f.attempts = result.Attempts
	outcome := OutcomeConfirmed
	switch {
	case err == nil:
		f.transitionLocked(StateCompleted, nil)
	case errors.Is(err, bridge.ErrConfirmationTimedOut):
		outcome = OutcomeTimedOut
		f.pending = true
		f.transitionLocked(StateFailed, err)
	default:
		outcome = OutcomeAbandoned
		f.pending = true
		f.transitionLocked(StateFailed, err)
	}
	f.mu.Unlock()
	f.events.Close()

	f.record(ctx, func(jctx context.Context) error {
		return f.o.journal.RecordOutcome(jctx, receipt.SourceTxHash, outcome)
	})
	return err
}

func (f *Flow) observeAttempt(a confirmation.Attempt) {
	f.mu.Lock()
	f.attempts = a.Number
	f.updatedAt = f.o.now()
	f.mu.Unlock()
}

// checkAllowance runs from CheckingAllowance and settles the flow. Any
// nonzero allowance counts as approved; a lock above it reverts and
// surfaces as a submission failure.
func (f *Flow) checkAllowance(ctx context.Context) {
	s := f.o.c.Wallet.Session()
	res := f.o.c.Allowance.CheckAllowance(ctx, s, f.intent.Source, f.intent.Token)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.allowance = res
	if res.Approved {
		f.transitionLocked(StateReady, nil)
		return
	}
	f.transitionLocked(StateNeedsApproval, nil)
}

// record writes to the journal on a context that outlives cancellation of
// the flow's own.
func (f *Flow) record(ctx context.Context, fn func(context.Context) error) {
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := fn(jctx); err != nil {
		metrics.ErrorsTotal.WithLabelValues("journal", "write_failed").Inc()
		f.o.logger.Error("Failed to journal receipt",
			zap.String("flow_id", f.id),
			zap.Error(err))
	}
}

func (f *Flow) clearErrorLocked() {
	f.errKind = ""
	f.errMsg = ""
	f.pending = false
}

// transitionLocked moves the flow to next. Callers hold f.mu.
func (f *Flow) transitionLocked(next State, cause error) {
	from := f.state
	f.state = next
	f.history = append(f.history, next)
	f.updatedAt = f.o.now()

	t := Transition{FlowID: f.id, From: from, To: next, At: f.updatedAt}
	if cause != nil {
		f.errKind = KindOf(cause)
		f.errMsg = cause.Error()
		t.ErrorKind = f.errKind
		t.Error = f.errMsg
	}

	metrics.FlowTransitions.WithLabelValues(string(next)).Inc()
	fields := []zap.Field{
		zap.String("flow_id", f.id),
		zap.String("from", string(from)),
		zap.String("state", string(next)),
	}
	if cause != nil {
		fields = append(fields, zap.String("error_kind", t.ErrorKind), zap.Error(cause))
		f.o.logger.Warn("Flow transition", fields...)
	} else {
		f.o.logger.Info("Flow transition", fields...)
	}

	f.events.Publish(t)
	f.o.publish(t)
}
