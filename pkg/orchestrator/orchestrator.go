// Package orchestrator drives bridge flows through allowance checking,
// approval, submission and confirmation, one state machine per intent.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/topdeveloper55/ether-pulse-bridge/internal/fanout"
	apperrors "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/errors"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/confirmation"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

var (
	ErrFlowNotFound      = errors.New("flow not found")
	ErrInvalidTransition = errors.New("invalid flow transition")
)

// KindOf names the failure kind of err, extending bridge.KindOf with the
// orchestrator's own errors.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFlowNotFound):
		return "FlowNotFound"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	default:
		return bridge.KindOf(err)
	}
}

func invalidTransition(op string, from State) error {
	return apperrors.ConflictError(
		fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, op, from),
		ErrInvalidTransition.Error(),
	)
}

// AllowanceChecker is implemented by *bridge.Inspector.
type AllowanceChecker interface {
	CheckAllowance(ctx context.Context, s wallet.Session, chain registry.Chain, token registry.Token) bridge.AllowanceResult
}

// Approver is implemented by *bridge.Issuer.
type Approver interface {
	Approve(ctx context.Context, s wallet.Session, chain registry.Chain, token registry.Token) (common.Hash, error)
}

// LockSubmitter is implemented by *bridge.Submitter.
type LockSubmitter interface {
	SubmitLock(ctx context.Context, s wallet.Session, intent bridge.Intent) (*bridge.Receipt, error)
}

// ConfirmationAwaiter is implemented by *confirmation.Poller.
type ConfirmationAwaiter interface {
	Await(ctx context.Context, txHash string, observe ...func(confirmation.Attempt)) (confirmation.Result, error)
}

// Components are the collaborators a flow calls into.
type Components struct {
	Wallet        wallet.Provider
	Allowance     AllowanceChecker
	Approvals     Approver
	Submissions   LockSubmitter
	Confirmations ConfirmationAwaiter
}

func (c Components) validate() error {
	switch {
	case c.Wallet == nil:
		return errors.New("wallet provider is required")
	case c.Allowance == nil:
		return errors.New("allowance checker is required")
	case c.Approvals == nil:
		return errors.New("approver is required")
	case c.Submissions == nil:
		return errors.New("lock submitter is required")
	case c.Confirmations == nil:
		return errors.New("confirmation awaiter is required")
	}
	return nil
}

// Orchestrator owns every flow started through it and the per-wallet
// submission guard they share.
type Orchestrator struct {
	c       Components
	journal Journal
	logger  *zap.Logger
	now     func() time.Time

	guard  *walletGuard
	events *fanout.Broadcaster[Transition]

	mu    sync.RWMutex
	flows map[string]*Flow
	order []string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithJournal records receipts and confirmation outcomes.
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithClock overrides the time source used for snapshots.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator.
func New(c Components, opts ...Option) (*Orchestrator, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		c:       c,
		journal: NopJournal{},
		logger:  zap.NewNop(),
		now:     time.Now,
		guard:   newWalletGuard(),
		events:  fanout.New[Transition](64),
		flows:   make(map[string]*Flow),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Start validates intent, registers a flow for it and runs the first
// allowance check. An invalid intent creates no flow.
func (o *Orchestrator) Start(ctx context.Context, intent bridge.Intent) (*Flow, error) {
	if _, err := intent.ScaledAmount(); err != nil {
		return nil, err
	}

	f := newFlow(o, uuid.NewString(), intent)

	o.mu.Lock()
	o.flows[f.id] = f
	o.order = append(o.order, f.id)
	o.mu.Unlock()

	o.logger.Info("Flow started",
		zap.String("flow_id", f.id),
		zap.Uint64("source_chain_id", intent.Source.ChainID),
		zap.Uint64("destination_chain_id", intent.Destination.ChainID),
		zap.String("token", intent.Token.Symbol),
		zap.String("amount", intent.Amount))

	if err := f.Recheck(ctx); err != nil {
		return f, err
	}
	return f, nil
}

// Flow returns the flow with id.
func (o *Orchestrator) Flow(id string) (*Flow, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	f, ok := o.flows[id]
	if !ok {
		return nil, apperrors.ResourceNotFoundError(
			fmt.Errorf("%w: %s", ErrFlowNotFound, id),
			ErrFlowNotFound.Error(),
		)
	}
	return f, nil
}

// Flows returns snapshots of every flow in start order.
func (o *Orchestrator) Flows() []Snapshot {
	o.mu.RLock()
	flows := make([]*Flow, 0, len(o.order))
	for _, id := range o.order {
		flows = append(flows, o.flows[id])
	}
	o.mu.RUnlock()

	out := make([]Snapshot, 0, len(flows))
	for _, f := range flows {
		out = append(out, f.Snapshot())
	}
	return out
}

// Subscribe streams transitions of every flow.
func (o *Orchestrator) Subscribe() (<-chan Transition, func()) {
	return o.events.Subscribe()
}

// InFlight returns the id of the flow holding addr's submission guard.
func (o *Orchestrator) InFlight(addr common.Address) (string, bool) {
	return o.guard.owner(addr)
}

// Watch re-checks allowance for idle flows whenever the wallet reports an
// account or chain change. It returns when ctx ends or the wallet closes
// its event stream.
func (o *Orchestrator) Watch(ctx context.Context) error {
	events, unsubscribe := o.c.Wallet.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			o.logger.Debug("Wallet event",
				zap.String("event", string(ev.Type)),
				zap.Bool("connected", ev.Session.Connected),
				zap.Uint64("chain_id", ev.Session.ActiveChainID))
			o.recheckAll(ctx)
		}
	}
}

func (o *Orchestrator) recheckAll(ctx context.Context) {
	o.mu.RLock()
	flows := make([]*Flow, 0, len(o.order))
	for _, id := range o.order {
		flows = append(flows, o.flows[id])
	}
	o.mu.RUnlock()

	for _, f := range flows {
		state := f.State()
		if state.Busy() || state.Terminal() {
			continue
		}
		if err := f.Recheck(ctx); err != nil && !errors.Is(err, ErrInvalidTransition) {
			o.logger.Warn("Recheck after wallet change failed",
				zap.String("flow_id", f.id),
				zap.Error(err))
		}
	}
}

// Close ends every transition stream.
func (o *Orchestrator) Close() {
	o.mu.RLock()
	for _, f := range o.flows {
		f.events.Close()
	}
	o.mu.RUnlock()
	o.events.Close()
}

func (o *Orchestrator) publish(t Transition) {
	if dropped := o.events.Publish(t); dropped > 0 {
		o.logger.Warn("Dropped flow transition for slow subscribers",
			zap.String("flow_id", t.FlowID),
			zap.String("state", string(t.To)),
			zap.Int("dropped", dropped))
	}
}
