package agent

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/topdeveloper55/ether-pulse-bridge/internal/fanout"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/confirmation"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/receiptstore"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

// MockWallet is an in-memory WalletController.
type MockWallet struct {
	mu      sync.Mutex
	session wallet.Session
	address common.Address
	chains  map[uint64]bool
	events  *fanout.Broadcaster[wallet.Event]
}

func NewMockWallet(address common.Address, chainID uint64, chains ...uint64) *MockWallet {
	w := &MockWallet{
		session: wallet.Session{ActiveChainID: chainID, NativeBalance: "0"},
		address: address,
		chains:  make(map[uint64]bool),
		events:  fanout.New[wallet.Event](fanout.DefaultBuffer),
	}
	for _, id := range chains {
		w.chains[id] = true
	}
	return w
}

func (w *MockWallet) Session() wallet.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

func (w *MockWallet) Connect(context.Context) (wallet.Session, error) {
	w.mu.Lock()
	w.session.Connected = true
	w.session.Address = w.address
	s := w.session
	w.mu.Unlock()
	w.events.Publish(wallet.Event{Type: wallet.EventAccountsChanged, Session: s})
	return s, nil
}

func (w *MockWallet) Disconnect() wallet.Session {
	w.mu.Lock()
	w.session.Connected = false
	w.session.Address = common.Address{}
	s := w.session
	w.mu.Unlock()
	w.events.Publish(wallet.Event{Type: wallet.EventDisconnected, Session: s})
	return s
}

func (w *MockWallet) SwitchChain(_ context.Context, chainID uint64) (wallet.Session, error) {
	if !w.chains[chainID] {
		return w.Session(), fmt.Errorf("%w: %d", wallet.ErrUnsupportedChain, chainID)
	}
	w.mu.Lock()
	w.session.ActiveChainID = chainID
	s := w.session
	w.mu.Unlock()
	w.events.Publish(wallet.Event{Type: wallet.EventChainChanged, Session: s})
	return s, nil
}

func (w *MockWallet) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	s, err := w.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return []common.Address{s.Address}, nil
}

func (w *MockWallet) ActiveChainID(context.Context) (uint64, error) {
	return w.Session().ActiveChainID, nil
}

func (w *MockWallet) SignAndSend(context.Context, wallet.TxRequest) (common.Hash, error) {
	return common.Hash{}, errors.New("mock wallet does not sign")
}

func (w *MockWallet) WaitForReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, errors.New("mock wallet has no receipts")
}

func (w *MockWallet) Subscribe() (<-chan wallet.Event, func()) {
	return w.events.Subscribe()
}

// MockChecker reports a fixed allowance.
type MockChecker struct {
	Raw *big.Int
}

func (m *MockChecker) CheckAllowance(context.Context, wallet.Session, registry.Chain, registry.Token) bridge.AllowanceResult {
	if m.Raw == nil || m.Raw.Sign() == 0 {
		return bridge.AllowanceResult{Allowance: "0"}
	}
	return bridge.AllowanceResult{Approved: true, Allowance: m.Raw.String(), Raw: m.Raw}
}

// MockApprover raises the checker's allowance.
type MockApprover struct {
	Checker *MockChecker
	Err     error
}

func (m *MockApprover) Approve(context.Context, wallet.Session, registry.Chain, registry.Token) (common.Hash, error) {
	if m.Err != nil {
		return common.Hash{}, m.Err
	}
	m.Checker.Raw = new(big.Int).Lsh(big.NewInt(1), 128)
	return common.HexToHash("0xa11"), nil
}

// MockSubmitter returns a receipt for the intent.
type MockSubmitter struct{}

func (MockSubmitter) SubmitLock(_ context.Context, s wallet.Session, intent bridge.Intent) (*bridge.Receipt, error) {
	amount, err := intent.ScaledAmount()
	if err != nil {
		return nil, err
	}
	hash := common.HexToHash("0x10c")
	return &bridge.Receipt{
		UniqueID:           "1",
		SourceTxHash:       hash,
		LockTxHash:         hash,
		SourceChainID:      intent.Source.ChainID,
		DestinationChainID: intent.Destination.ChainID,
		Token:              intent.Token.Address,
		Amount:             amount.String(),
		Sender:             s.Address,
		Recipient:          s.Address,
	}, nil
}

// MockAwaiter confirms on the first attempt.
type MockAwaiter struct{}

func (MockAwaiter) Await(_ context.Context, txHash string, observe ...func(confirmation.Attempt)) (confirmation.Result, error) {
	for _, fn := range observe {
		fn(confirmation.Attempt{Number: 1, Status: confirmation.StatusConfirmed})
	}
	return confirmation.Result{
		Status:   confirmation.StatusConfirmed,
		Attempts: 1,
		Record:   &confirmation.Record{TxHash: txHash, Confirmed: true},
	}, nil
}

// MockConfirmations serves canned backend answers.
type MockConfirmations struct {
	Records []confirmation.Record
	Total   int64
	Sum     string
	Err     error
}

func (m *MockConfirmations) Lookup(_ context.Context, txHash string) ([]confirmation.Record, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []confirmation.Record
	for _, r := range m.Records {
		if r.TxHash == txHash {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockConfirmations) Recent(context.Context) ([]confirmation.Record, error) {
	return m.Records, m.Err
}

func (m *MockConfirmations) Count(context.Context) (int64, error) {
	return m.Total, m.Err
}

func (m *MockConfirmations) Volume(context.Context) (string, error) {
	return m.Sum, m.Err
}

// MockReceipts records the last query.
type MockReceipts struct {
	Entries []*receiptstore.Entry
	Sender  common.Address
	Limit   int
}

func (m *MockReceipts) GetBySourceTxHash(_ context.Context, hash common.Hash) (*receiptstore.Entry, error) {
	for _, e := range m.Entries {
		if e.SourceTxHash == hash {
			return e, nil
		}
	}
	return nil, receiptstore.ErrReceiptNotFound
}

func (m *MockReceipts) ListBySender(_ context.Context, sender common.Address, limit int) ([]*receiptstore.Entry, error) {
	m.Sender = sender
	m.Limit = limit
	return m.Entries, nil
}
