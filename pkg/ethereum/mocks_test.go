package ethereum

import (
	"context"
	"errors"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// MockCaller answers contract calls by method name using the given ABI.
type MockCaller struct {
	ABI     *abi.ABI
	Results map[string][]interface{}
	Calls   []CallRecord
}

// CallRecord captures one CallContract invocation.
type CallRecord struct {
	Method      string
	To          common.Address
	BlockNumber *big.Int
}

func (m *MockCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (m *MockCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	method, err := m.ABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	m.Calls = append(m.Calls, CallRecord{Method: method.Name, To: *call.To, BlockNumber: blockNumber})
	out, ok := m.Results[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return method.Outputs.Pack(out...)
}

// MockBackend overrides the pieces of Backend the pool touches.
type MockBackend struct {
	Backend
	ChainIDValue *big.Int
	Closed       bool
}

func (m *MockBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return m.ChainIDValue, nil
}

func (m *MockBackend) Close() {
	m.Closed = true
}
