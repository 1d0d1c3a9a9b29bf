package bridge

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

// MockProvider implements wallet.Provider for testing
type MockProvider struct {
	SessionFunc        func() wallet.Session
	ActiveChainIDFunc  func(ctx context.Context) (uint64, error)
	SignAndSendFunc    func(ctx context.Context, req wallet.TxRequest) (common.Hash, error)
	WaitForReceiptFunc func(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	mu       sync.Mutex
	Requests []wallet.TxRequest
}

func (m *MockProvider) Session() wallet.Session {
	if m.SessionFunc != nil {
		return m.SessionFunc()
	}
	return wallet.Session{}
}

func (m *MockProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{m.Session().Address}, nil
}

func (m *MockProvider) ActiveChainID(ctx context.Context) (uint64, error) {
	if m.ActiveChainIDFunc != nil {
		return m.ActiveChainIDFunc(ctx)
	}
	return m.Session().ActiveChainID, nil
}

func (m *MockProvider) SignAndSend(ctx context.Context, req wallet.TxRequest) (common.Hash, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.SignAndSendFunc != nil {
		return m.SignAndSendFunc(ctx, req)
	}
	return common.HexToHash("0x01"), nil
}

func (m *MockProvider) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if m.WaitForReceiptFunc != nil {
		return m.WaitForReceiptFunc(ctx, hash)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(100)}, nil
}

func (m *MockProvider) Subscribe() (<-chan wallet.Event, func()) {
	ch := make(chan wallet.Event)
	return ch, func() {}
}

func (m *MockProvider) Sent() []wallet.TxRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]wallet.TxRequest(nil), m.Requests...)
}

// MockReader implements ChainReader for testing
type MockReader struct {
	AllowanceFunc        func(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	BalanceOfFunc        func(ctx context.Context, token, account common.Address) (*big.Int, error)
	LatestTransferIDFunc func(ctx context.Context, bridge common.Address, blockNumber *big.Int) (*big.Int, error)
	TransferRecordFunc   func(ctx context.Context, bridge common.Address, id, blockNumber *big.Int) (*ethereum.TransferRecord, error)
}

func (m *MockReader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if m.AllowanceFunc != nil {
		return m.AllowanceFunc(ctx, token, owner, spender)
	}
	return big.NewInt(0), nil
}

func (m *MockReader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if m.BalanceOfFunc != nil {
		return m.BalanceOfFunc(ctx, token, account)
	}
	return new(big.Int).Lsh(big.NewInt(1), 128), nil
}

func (m *MockReader) LatestTransferID(ctx context.Context, bridge common.Address, blockNumber *big.Int) (*big.Int, error) {
	if m.LatestTransferIDFunc != nil {
		return m.LatestTransferIDFunc(ctx, bridge, blockNumber)
	}
	return big.NewInt(0), nil
}

func (m *MockReader) TransferRecord(ctx context.Context, bridge common.Address, id, blockNumber *big.Int) (*ethereum.TransferRecord, error) {
	if m.TransferRecordFunc != nil {
		return m.TransferRecordFunc(ctx, bridge, id, blockNumber)
	}
	return &ethereum.TransferRecord{UniqueID: id}, nil
}

func readersFor(r ChainReader) ReaderSource {
	return func(ctx context.Context, chainID uint64) (ChainReader, error) {
		return r, nil
	}
}
