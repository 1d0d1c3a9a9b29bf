// Package fee computes the displayed bridge fee and net-receive amounts.
// Results are estimates for display; the contract's own accounting is
// authoritative.
package fee

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/config"
)

const (
	DefaultRate      = "0.03"
	DefaultLPShare   = "0.70"
	DefaultPrecision = 6
)

// Calculator applies a flat percentage fee.
type Calculator struct {
	Rate      decimal.Decimal
	LPShare   decimal.Decimal
	Precision int32
}

// Quote is a full fee breakdown for one amount. All values are decimal
// strings at the calculator's precision.
type Quote struct {
	Amount                  string `json:"amount"`
	Fee                     string `json:"fee"`
	NetReceive              string `json:"net_receive"`
	LiquidityProviderReward string `json:"liquidity_provider_reward"`
	Rate                    string `json:"rate"`
}

// Default returns the 3% schedule with 70% of fees going to liquidity providers.
func Default() Calculator {
	return Calculator{
		Rate:      decimal.RequireFromString(DefaultRate),
		LPShare:   decimal.RequireFromString(DefaultLPShare),
		Precision: DefaultPrecision,
	}
}

// FromConfig builds a calculator from validated config.
func FromConfig(cfg config.FeeConfig) (Calculator, error) {
	rate, err := decimal.NewFromString(cfg.Rate)
	if err != nil {
		return Calculator{}, err
	}
	share, err := decimal.NewFromString(cfg.LPShare)
	if err != nil {
		return Calculator{}, err
	}
	return Calculator{Rate: rate, LPShare: share, Precision: cfg.Precision}, nil
}

// Fee returns amount × rate rounded to Precision, or "0" for input that is
// empty, malformed or not positive. It never fails, so it can run on every
// keystroke.
func (c Calculator) Fee(amount string) string {
	return c.Quote(amount).Fee
}

// NetReceive returns amount − Fee(amount). Fee and NetReceive always sum to
// the amount at Precision.
func (c Calculator) NetReceive(amount string) string {
	return c.Quote(amount).NetReceive
}

// Quote computes the full breakdown for amount.
func (c Calculator) Quote(amount string) Quote {
	const zero = "0"
	q := Quote{
		Amount:                  zero,
		Fee:                     zero,
		NetReceive:              zero,
		LiquidityProviderReward: zero,
		Rate:                    c.Rate.String(),
	}

	v, ok := parsePositive(amount)
	if !ok {
		return q
	}

	// Amounts that round away at Precision are unusable.
	v = v.Round(c.Precision)
	if v.IsZero() {
		return q
	}
	fee := v.Mul(c.Rate).Round(c.Precision)

	q.Amount = c.format(v)
	q.Fee = c.format(fee)
	q.NetReceive = c.format(v.Sub(fee))
	q.LiquidityProviderReward = c.format(fee.Mul(c.LPShare).Round(c.Precision))
	return q
}

func (c Calculator) format(d decimal.Decimal) string {
	return d.StringFixed(c.Precision)
}

func parsePositive(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil || !v.IsPositive() {
		return decimal.Zero, false
	}
	return v, true
}
