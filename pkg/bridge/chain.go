package bridge

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum"
)

// ChainReader is the read-only contract access the core needs on one chain.
type ChainReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	LatestTransferID(ctx context.Context, bridge common.Address, blockNumber *big.Int) (*big.Int, error)
	TransferRecord(ctx context.Context, bridge common.Address, id, blockNumber *big.Int) (*ethereum.TransferRecord, error)
}

// ReaderSource returns the ChainReader for a chain id.
type ReaderSource func(ctx context.Context, chainID uint64) (ChainReader, error)

// PoolReaders reads through the pool's cached RPC clients.
func PoolReaders(pool *ethereum.Pool) ReaderSource {
	return func(ctx context.Context, chainID uint64) (ChainReader, error) {
		backend, err := pool.Client(ctx, chainID)
		if err != nil {
			return nil, err
		}
		return ethereum.NewReader(backend), nil
	}
}
