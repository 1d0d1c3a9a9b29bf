package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// GasSettings bounds what a transactor may spend.
type GasSettings struct {
	// GasLimit is used when estimation fails.
	GasLimit uint64
	// MaxGasPrice caps the suggested gas price; nil leaves it uncapped.
	MaxGasPrice *big.Int
}

// gasHeadroom is applied to estimates as a percentage.
const gasHeadroom = 120

// NewTransactor returns signing options for key on chainID with the pending
// nonce and a capped gas price filled in.
func NewTransactor(
	ctx context.Context,
	backend bind.ContractTransactor,
	key *ecdsa.PrivateKey,
	chainID uint64,
	gas GasSettings,
	logger *zap.Logger,
) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx

	nonce, err := backend.PendingNonceAt(ctx, auth.From)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)

	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	if gas.MaxGasPrice != nil && gasPrice.Cmp(gas.MaxGasPrice) > 0 {
		logger.Warn("Suggested gas price exceeds maximum",
			zap.String("suggested", gasPrice.String()),
			zap.String("max", gas.MaxGasPrice.String()))
		gasPrice = new(big.Int).Set(gas.MaxGasPrice)
	}
	auth.GasPrice = gasPrice

	return auth, nil
}

// EstimateGas estimates the call with headroom, falling back to the configured
// limit when the node cannot estimate.
func EstimateGas(ctx context.Context, backend bind.ContractTransactor, msg ethereum.CallMsg, gas GasSettings, logger *zap.Logger) uint64 {
	estimate, err := backend.EstimateGas(ctx, msg)
	if err != nil || estimate == 0 {
		logger.Warn("Gas estimation failed, using configured limit",
			zap.Uint64("gas_limit", gas.GasLimit),
			zap.Error(err))
		return gas.GasLimit
	}
	return estimate * gasHeadroom / 100
}

// SendRaw signs and broadcasts calldata to the given contract.
func SendRaw(auth *bind.TransactOpts, backend bind.ContractBackend, to common.Address, data []byte) (*types.Transaction, error) {
	contract := bind.NewBoundContract(to, abi.ABI{}, backend, backend, backend)
	tx, err := contract.RawTransact(auth, data)
	if err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	return tx, nil
}
