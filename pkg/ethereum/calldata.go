package ethereum

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum/contracts"
)

// PackApprove encodes approve(spender, amount) calldata.
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := contracts.ERC20MetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("failed to load token ABI: %w", err)
	}
	data, err := parsed.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}
	return data, nil
}

// PackLockTokens encodes lockTokens(recipient, token, amount, destChainID) calldata.
func PackLockTokens(recipient, token common.Address, amount *big.Int, destChainID uint64) ([]byte, error) {
	parsed, err := contracts.LockBridgeMetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("failed to load bridge ABI: %w", err)
	}
	data, err := parsed.Pack("lockTokens", recipient, token, amount, new(big.Int).SetUint64(destChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to pack lockTokens: %w", err)
	}
	return data, nil
}
