package bridge

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

var plainDecimal = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// ParseAmount converts a user-entered decimal string into token base units.
// The amount must be positive and representable at the token's decimals.
func ParseAmount(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, InvalidAmountError("amount is empty")
	}
	if !plainDecimal.MatchString(s) {
		return nil, InvalidAmountError(fmt.Sprintf("%q is not a decimal number", s))
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, InvalidAmountError(err.Error())
	}
	if !d.IsPositive() {
		return nil, InvalidAmountError("amount must be greater than zero")
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, InvalidAmountError(fmt.Sprintf("more than %d fractional digits", decimals))
	}

	v := scaled.BigInt()
	if v.Cmp(math.MaxBig256) > 0 {
		return nil, InvalidAmountError("amount overflows uint256")
	}
	return v, nil
}

// FormatAmount renders base units as a decimal string without trailing zeros.
func FormatAmount(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

// scaleWhole scales a whole-token decimal string, truncating below one base unit.
func scaleWhole(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}
