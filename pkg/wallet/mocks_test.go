package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum"
)

// MockBackend implements the Backend calls KeyedProvider makes.
type MockBackend struct {
	ethereum.Backend

	mu              sync.Mutex
	Nonce           uint64
	GasPrice        *big.Int
	EstimateErr     error
	Balance         *big.Int
	Sent            []*types.Transaction
	ReceiptStatus   uint64
	ReceiptMisses   int
	receiptRequests int
}

func (m *MockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return m.Nonce, nil
}

func (m *MockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(m.GasPrice), nil
}

func (m *MockBackend) EstimateGas(ctx context.Context, msg goethereum.CallMsg) (uint64, error) {
	if m.EstimateErr != nil {
		return 0, m.EstimateErr
	}
	return 50000, nil
}

func (m *MockBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, tx)
	return nil
}

func (m *MockBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiptRequests++
	if m.receiptRequests <= m.ReceiptMisses {
		return nil, goethereum.NotFound
	}
	return &types.Receipt{
		Status:      m.ReceiptStatus,
		TxHash:      hash,
		GasUsed:     42000,
		BlockNumber: big.NewInt(100),
	}, nil
}

func (m *MockBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if m.Balance == nil {
		return big.NewInt(0), nil
	}
	return m.Balance, nil
}

// MockClients maps chain ids to backends.
type MockClients map[uint64]*MockBackend

func (m MockClients) Client(ctx context.Context, chainID uint64) (ethereum.Backend, error) {
	b, ok := m[chainID]
	if !ok {
		return nil, fmt.Errorf("no backend for chain %d", chainID)
	}
	return b, nil
}
