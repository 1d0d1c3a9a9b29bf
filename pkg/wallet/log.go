package wallet

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const providerName = "WalletProvider"

const calldataDisplaySize = 10

// logProvider wraps Provider with logging of the signing calls
type logProvider struct {
	Provider
	logger *zap.Logger
}

// NewLog creates a logging decorator for a Provider. Reads pass through;
// SignAndSend and WaitForReceipt log entry, outcome and duration.
func NewLog(p Provider, logger *zap.Logger) Provider {
	return &logProvider{
		Provider: p,
		logger:   logger,
	}
}

// SignAndSend wraps the provider method with logging
func (lp *logProvider) SignAndSend(ctx context.Context, req TxRequest) (hash common.Hash, err error) {
	start := time.Now()

	lp.logger.Info("SignAndSend started",
		zap.String("service", providerName),
		zap.String("operation", req.Operation),
		zap.Uint64("chain_id", req.ChainID),
		zap.String("to", req.To.Hex()),
		zap.String("calldata", truncateCalldata(req.Data)),
	)

	defer func() {
		duration := time.Since(start)
		if err != nil {
			lp.logger.Error("SignAndSend failed",
				zap.String("service", providerName),
				zap.String("operation", req.Operation),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return
		}
		lp.logger.Info("SignAndSend completed",
			zap.String("service", providerName),
			zap.String("operation", req.Operation),
			zap.String("tx_hash", hash.Hex()),
			zap.Duration("duration", duration),
		)
	}()

	return lp.Provider.SignAndSend(ctx, req)
}

// WaitForReceipt wraps the provider method with logging
func (lp *logProvider) WaitForReceipt(ctx context.Context, hash common.Hash) (receipt *types.Receipt, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)
		if err != nil {
			lp.logger.Error("WaitForReceipt failed",
				zap.String("service", providerName),
				zap.String("tx_hash", hash.Hex()),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return
		}
		lp.logger.Info("WaitForReceipt completed",
			zap.String("service", providerName),
			zap.String("tx_hash", hash.Hex()),
			zap.Uint64("block_number", receipt.BlockNumber.Uint64()),
			zap.Uint64("gas_used", receipt.GasUsed),
			zap.Duration("duration", duration),
		)
	}()

	return lp.Provider.WaitForReceipt(ctx, hash)
}

// truncateCalldata shows the selector and the first argument bytes only.
func truncateCalldata(data []byte) string {
	if len(data) <= calldataDisplaySize {
		return "0x" + hex.EncodeToString(data)
	}
	return "0x" + hex.EncodeToString(data[:calldataDisplaySize]) + "..."
}
