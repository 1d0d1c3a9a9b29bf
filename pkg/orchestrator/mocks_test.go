package orchestrator

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
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum/contracts"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

// Ledger is an in-memory chain plus wallet: it implements wallet.Provider
// and bridge.ChainReader and applies approve and lockTokens calldata.
type Ledger struct {
	mu        sync.Mutex
	session   wallet.Session
	allowance map[common.Address]*big.Int
	records   []ethereum.TransferRecord
	blocks    map[common.Hash]int64
	block     int64
	sent      []wallet.TxRequest

	SignAndSendErr error
	events         *fanout.Broadcaster[wallet.Event]
}

func NewLedger(owner common.Address, chainID uint64) *Ledger {
	return &Ledger{
		session:   wallet.Session{Connected: true, Address: owner, ActiveChainID: chainID},
		allowance: make(map[common.Address]*big.Int),
		blocks:    make(map[common.Hash]int64),
		block:     100,
		events:    fanout.New[wallet.Event](fanout.DefaultBuffer),
	}
}

func (l *Ledger) Readers(ctx context.Context, chainID uint64) (bridge.ChainReader, error) {
	return l, nil
}

func (l *Ledger) SetSession(s wallet.Session, t wallet.EventType) {
	l.mu.Lock()
	l.session = s
	l.mu.Unlock()
	l.events.Publish(wallet.Event{Type: t, Session: s})
}

func (l *Ledger) Sent() []wallet.TxRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]wallet.TxRequest(nil), l.sent...)
}

func (l *Ledger) Session() wallet.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

func (l *Ledger) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{l.Session().Address}, nil
}

func (l *Ledger) ActiveChainID(ctx context.Context) (uint64, error) {
	return l.Session().ActiveChainID, nil
}

func (l *Ledger) SignAndSend(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sent = append(l.sent, req)
	if l.SignAndSendErr != nil {
		return common.Hash{}, l.SignAndSendErr
	}
	if req.ChainID != l.session.ActiveChainID {
		return common.Hash{}, fmt.Errorf("%w: %d", wallet.ErrChainMismatch, req.ChainID)
	}
	if len(req.Data) < 4 {
		return common.Hash{}, errors.New("short calldata")
	}

	l.block++
	hash := common.BigToHash(big.NewInt(int64(len(l.sent))))
	l.blocks[hash] = l.block

	tokenABI, err := contracts.ERC20MetaData.GetAbi()
	if err != nil {
		return common.Hash{}, err
	}
	bridgeABI, err := contracts.LockBridgeMetaData.GetAbi()
	if err != nil {
		return common.Hash{}, err
	}

	if method, err := tokenABI.MethodById(req.Data[:4]); err == nil && method.Name == "approve" {
		args, err := method.Inputs.Unpack(req.Data[4:])
		if err != nil {
			return common.Hash{}, err
		}
		l.allowance[req.To] = args[1].(*big.Int)
		return hash, nil
	}
	if method, err := bridgeABI.MethodById(req.Data[:4]); err == nil && method.Name == "lockTokens" {
		args, err := method.Inputs.Unpack(req.Data[4:])
		if err != nil {
			return common.Hash{}, err
		}
		l.records = append(l.records, ethereum.TransferRecord{
			UniqueID:           big.NewInt(int64(len(l.records))),
			From:               l.session.Address,
			To:                 args[0].(common.Address),
			Token:              args[1].(common.Address),
			Amount:             args[2].(*big.Int),
			DestinationChainID: args[3].(*big.Int),
			TxHash:             hash,
		})
		return hash, nil
	}
	return common.Hash{}, fmt.Errorf("unknown selector %x", req.Data[:4])
}

func (l *Ledger) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	block, ok := l.blocks[hash]
	if !ok {
		return nil, errors.New("unknown transaction")
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(block)}, nil
}

func (l *Ledger) Subscribe() (<-chan wallet.Event, func()) {
	return l.events.Subscribe()
}

func (l *Ledger) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.allowance[token]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (l *Ledger) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return new(big.Int).Lsh(big.NewInt(1), 128), nil
}

func (l *Ledger) LatestTransferID(ctx context.Context, bridgeAddr common.Address, blockNumber *big.Int) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) == 0 {
		return nil, errors.New("no transfers")
	}
	return big.NewInt(int64(len(l.records) - 1)), nil
}

func (l *Ledger) TransferRecord(ctx context.Context, bridgeAddr common.Address, id, blockNumber *big.Int) (*ethereum.TransferRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := int(id.Int64())
	if i < 0 || i >= len(l.records) {
		return nil, errors.New("no such transfer")
	}
	r := l.records[i]
	return &r, nil
}

// MockChecker implements AllowanceChecker for testing
type MockChecker struct {
	CheckAllowanceFunc func(ctx context.Context, s wallet.Session, chain registry.Chain, token registry.Token) bridge.AllowanceResult

	mu    sync.Mutex
	calls int
}

func (m *MockChecker) CheckAllowance(ctx context.Context, s wallet.Session, chain registry.Chain, token registry.Token) bridge.AllowanceResult {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.CheckAllowanceFunc != nil {
		return m.CheckAllowanceFunc(ctx, s, chain, token)
	}
	return bridge.AllowanceResult{Approved: true, Allowance: "100000000", Raw: new(big.Int).Lsh(big.NewInt(1), 128)}
}

func (m *MockChecker) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockApprover implements Approver for testing
type MockApprover struct {
	ApproveFunc func(ctx context.Context, s wallet.Session, chain registry.Chain, token registry.Token) (common.Hash, error)
}

func (m *MockApprover) Approve(ctx context.Context, s wallet.Session, chain registry.Chain, token registry.Token) (common.Hash, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, s, chain, token)
	}
	return common.HexToHash("0xa1"), nil
}

// MockSubmitter implements LockSubmitter for testing
type MockSubmitter struct {
	SubmitLockFunc func(ctx context.Context, s wallet.Session, intent bridge.Intent) (*bridge.Receipt, error)
}

func (m *MockSubmitter) SubmitLock(ctx context.Context, s wallet.Session, intent bridge.Intent) (*bridge.Receipt, error) {
	if m.SubmitLockFunc != nil {
		return m.SubmitLockFunc(ctx, s, intent)
	}
	amount, err := intent.ScaledAmount()
	if err != nil {
		return nil, err
	}
	return &bridge.Receipt{
		UniqueID:           "1",
		SourceTxHash:       common.HexToHash("0xb1"),
		LockTxHash:         common.HexToHash("0xb1"),
		SourceChainID:      intent.Source.ChainID,
		DestinationChainID: intent.Destination.ChainID,
		Token:              intent.Token.Address,
		Amount:             amount.String(),
		Sender:             s.Address,
		Recipient:          s.Address,
	}, nil
}

// MockAwaiter implements ConfirmationAwaiter for testing
type MockAwaiter struct {
	AwaitFunc func(ctx context.Context, txHash string) (confirmation.Result, error)
}

func (m *MockAwaiter) Await(ctx context.Context, txHash string, observe ...func(confirmation.Attempt)) (confirmation.Result, error) {
	if m.AwaitFunc != nil {
		return m.AwaitFunc(ctx, txHash)
	}
	for _, fn := range observe {
		fn(confirmation.Attempt{Number: 1, Status: confirmation.StatusConfirmed})
	}
	return confirmation.Result{Status: confirmation.StatusConfirmed, Attempts: 1}, nil
}

// MockJournal implements Journal for testing
type MockJournal struct {
	mu       sync.Mutex
	Receipts []*bridge.Receipt
	Outcomes []string
}

func (m *MockJournal) RecordReceipt(ctx context.Context, r *bridge.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Receipts = append(m.Receipts, r)
	return nil
}

func (m *MockJournal) RecordOutcome(ctx context.Context, sourceTxHash common.Hash, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, outcome)
	return nil
}

func (m *MockJournal) Snapshot() ([]*bridge.Receipt, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*bridge.Receipt(nil), m.Receipts...), append([]string(nil), m.Outcomes...)
}

// confirmOnAttempt answers Lookup with a pending record until attempt n.
type confirmOnAttempt struct {
	n     int
	mu    sync.Mutex
	calls int
}

func (c *confirmOnAttempt) Lookup(ctx context.Context, txHash string) ([]confirmation.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return []confirmation.Record{{TxHash: txHash, Confirmed: c.calls >= c.n}}, nil
}

func (c *confirmOnAttempt) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
