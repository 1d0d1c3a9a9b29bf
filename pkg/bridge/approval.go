package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/topdeveloper55/ether-pulse-bridge/internal/metrics"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

// DefaultApprovalCeiling is the allowance granted, in whole tokens.
const DefaultApprovalCeiling = "100000000"

// inclusionTimeout bounds the wait for a broadcast transaction.
const inclusionTimeout = 10 * time.Minute

// Issuer sends approval transactions granting a bridge contract allowance.
type Issuer struct {
	provider wallet.Provider
	ceiling  decimal.Decimal
	logger   *zap.Logger
}

// NewIssuer creates an approval issuer. ceiling is in whole tokens; empty
// selects DefaultApprovalCeiling.
func NewIssuer(provider wallet.Provider, ceiling string, logger *zap.Logger) (*Issuer, error) {
	if ceiling == "" {
		ceiling = DefaultApprovalCeiling
	}
	c, err := decimal.NewFromString(ceiling)
	if err != nil || !c.IsPositive() {
		return nil, fmt.Errorf("invalid approval ceiling %q", ceiling)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{provider: provider, ceiling: c, logger: logger}, nil
}

// Approve grants chain's bridge the ceiling allowance over token and waits
// for inclusion. Nothing is signed unless the wallet is connected and on chain.
func (is *Issuer) Approve(ctx context.Context, s wallet.Session, chain registry.Chain, token registry.Token) (common.Hash, error) {
	if err := guardSigner(ctx, is.provider, s, chain); err != nil {
		metrics.Approvals.WithLabelValues("rejected").Inc()
		return common.Hash{}, err
	}
	if _, ok := chain.Token(token.Address); !ok {
		metrics.Approvals.WithLabelValues("rejected").Inc()
		return common.Hash{}, InvalidSelectionError("token is not listed on chain")
	}

	data, err := ethereum.PackApprove(chain.Bridge, scaleWhole(is.ceiling, token.Decimals))
	if err != nil {
		return common.Hash{}, is.failed(err)
	}

	hash, err := is.provider.SignAndSend(ctx, wallet.TxRequest{
		ChainID:   chain.ChainID,
		To:        token.Address,
		Data:      data,
		Operation: "approve",
	})
	if err != nil {
		if errors.Is(err, wallet.ErrChainMismatch) {
			metrics.Approvals.WithLabelValues("rejected").Inc()
			return common.Hash{}, WrongNetworkError(is.provider.Session().ActiveChainID, chain.ChainID)
		}
		return common.Hash{}, is.failed(err)
	}

	wctx, cancel := afterBroadcast(ctx)
	defer cancel()
	if _, err := is.provider.WaitForReceipt(wctx, hash); err != nil {
		return hash, is.failed(err)
	}

	metrics.Approvals.WithLabelValues("success").Inc()
	is.logger.Info("Approval included",
		zap.Uint64("chain_id", chain.ChainID),
		zap.String("token", token.Symbol),
		zap.String("spender", chain.Bridge.Hex()),
		zap.String("tx_hash", hash.Hex()))
	return hash, nil
}

func (is *Issuer) failed(err error) error {
	metrics.Approvals.WithLabelValues("failed").Inc()
	metrics.ErrorsTotal.WithLabelValues("approval", "tx_failed").Inc()
	return ApprovalError(err)
}

// afterBroadcast detaches from ctx once a transaction is out: cancelling
// the caller must not turn an on-chain write into a reported failure.
func afterBroadcast(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), inclusionTimeout)
}

// guardSigner rejects writes unless the wallet is connected and its live
// active chain is the given chain.
func guardSigner(ctx context.Context, provider wallet.Provider, s wallet.Session, chain registry.Chain) error {
	if !s.Connected {
		return NotConnectedError()
	}
	active, err := provider.ActiveChainID(ctx)
	if err != nil {
		return WrongNetworkError(s.ActiveChainID, chain.ChainID)
	}
	if active != chain.ChainID {
		return WrongNetworkError(active, chain.ChainID)
	}
	return nil
}
