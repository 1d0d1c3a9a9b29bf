package bridge

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"github.com/topdeveloper55/ether-pulse-bridge/internal/metrics"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

// AllowanceResult is the outcome of one allowance inspection.
type AllowanceResult struct {
	Approved bool `json:"approved"`
	// Allowance is the granted amount in whole tokens, "0" when unknown.
	Allowance string   `json:"allowance"`
	Raw       *big.Int `json:"-"`
}

// Inspector reads token allowances granted to bridge contracts.
type Inspector struct {
	readers ReaderSource
	logger  *zap.Logger
}

// NewInspector creates an allowance inspector.
func NewInspector(readers ReaderSource, logger *zap.Logger) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{readers: readers, logger: logger}
}

// CheckAllowance reports whether the wallet has granted chain's bridge any
// allowance over token. It fails closed: a disconnected wallet or any read
// error yields Approved=false.
func (in *Inspector) CheckAllowance(ctx context.Context, s wallet.Session, chain registry.Chain, token registry.Token) AllowanceResult {
	notApproved := AllowanceResult{Allowance: "0"}

	if !s.Connected {
		metrics.AllowanceChecks.WithLabelValues("disconnected").Inc()
		return notApproved
	}

	reader, err := in.readers(ctx, chain.ChainID)
	if err != nil {
		in.fail(chain, token, err)
		return notApproved
	}

	allowance, err := reader.Allowance(ctx, token.Address, s.Address, chain.Bridge)
	if err != nil {
		in.fail(chain, token, err)
		return notApproved
	}

	res := AllowanceResult{
		Approved:  allowance.Sign() > 0,
		Allowance: FormatAmount(allowance, token.Decimals),
		Raw:       allowance,
	}
	if res.Approved {
		metrics.AllowanceChecks.WithLabelValues("approved").Inc()
	} else {
		metrics.AllowanceChecks.WithLabelValues("not_approved").Inc()
	}

	in.logger.Debug("Allowance checked",
		zap.Uint64("chain_id", chain.ChainID),
		zap.String("token", token.Symbol),
		zap.String("owner", s.Address.Hex()),
		zap.String("allowance", res.Allowance),
		zap.Bool("approved", res.Approved))
	return res
}

func (in *Inspector) fail(chain registry.Chain, token registry.Token, err error) {
	metrics.AllowanceChecks.WithLabelValues("error").Inc()
	metrics.ErrorsTotal.WithLabelValues("allowance", "read_failed").Inc()
	in.logger.Warn("Allowance check failed, treating as not approved",
		zap.Uint64("chain_id", chain.ChainID),
		zap.String("token", token.Address.Hex()),
		zap.Error(err))
}
