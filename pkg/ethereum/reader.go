package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum/contracts"
)

// Reader performs read-only token and bridge contract calls on one chain.
type Reader struct {
	caller bind.ContractCaller
}

// NewReader creates a reader over any contract caller.
func NewReader(caller bind.ContractCaller) *Reader {
	return &Reader{caller: caller}
}

func callOpts(ctx context.Context, blockNumber *big.Int) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, BlockNumber: blockNumber}
}

// Allowance returns how much spender may move on behalf of owner.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	erc20, err := contracts.NewERC20Caller(token, r.caller)
	if err != nil {
		return nil, fmt.Errorf("failed to bind token contract: %w", err)
	}
	v, err := erc20.Allowance(callOpts(ctx, nil), owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to read allowance: %w", err)
	}
	return v, nil
}

// BalanceOf returns the token balance of account.
func (r *Reader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	erc20, err := contracts.NewERC20Caller(token, r.caller)
	if err != nil {
		return nil, fmt.Errorf("failed to bind token contract: %w", err)
	}
	v, err := erc20.BalanceOf(callOpts(ctx, nil), account)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	return v, nil
}

// LatestTransferID reads the bridge's uniqueID counter as of blockNumber.
// A nil blockNumber reads the latest state.
func (r *Reader) LatestTransferID(ctx context.Context, bridge common.Address, blockNumber *big.Int) (*big.Int, error) {
	lb, err := contracts.NewLockBridgeCaller(bridge, r.caller)
	if err != nil {
		return nil, fmt.Errorf("failed to bind bridge contract: %w", err)
	}
	id, err := lb.UniqueID(callOpts(ctx, blockNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to read uniqueID: %w", err)
	}
	return id, nil
}

// TransferRecord reads txInfo(id) as of blockNumber.
func (r *Reader) TransferRecord(ctx context.Context, bridge common.Address, id, blockNumber *big.Int) (*TransferRecord, error) {
	lb, err := contracts.NewLockBridgeCaller(bridge, r.caller)
	if err != nil {
		return nil, fmt.Errorf("failed to bind bridge contract: %w", err)
	}
	info, err := lb.TxInfo(callOpts(ctx, blockNumber), id)
	if err != nil {
		return nil, fmt.Errorf("failed to read txInfo(%s): %w", id.String(), err)
	}
	return &TransferRecord{
		UniqueID:           new(big.Int).Set(id),
		From:               info.From,
		To:                 info.To,
		Token:              info.Token,
		Amount:             info.Amount,
		DestinationChainID: info.ChainId,
		TxHash:             common.Hash(info.TxHash),
	}, nil
}
