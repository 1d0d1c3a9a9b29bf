package bridge

import (
	"math/big"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

// Intent is one user request to move Amount of Token from Source to
// Destination. It is built fresh per attempt and never stored.
type Intent struct {
	Source      registry.Chain
	Destination registry.Chain
	Token       registry.Token
	Amount      string
}

// Validate checks the selection and the amount without touching the network.
func (i Intent) Validate() error {
	_, err := i.ScaledAmount()
	return err
}

// ScaledAmount validates the intent and returns the amount in base units.
func (i Intent) ScaledAmount() (*big.Int, error) {
	if i.Source.ChainID == 0 || i.Destination.ChainID == 0 {
		return nil, InvalidSelectionError("source and destination chains are required")
	}
	if i.Source.ChainID == i.Destination.ChainID {
		return nil, InvalidSelectionError("source and destination chains must differ")
	}
	if _, ok := i.Source.Token(i.Token.Address); !ok {
		return nil, InvalidSelectionError("token " + i.Token.Address.Hex() + " is not listed on the source chain")
	}
	return ParseAmount(i.Amount, i.Token.Decimals)
}

// IsSourceChain reports whether the session can sign for chain.
func IsSourceChain(s wallet.Session, chain registry.Chain) bool {
	return s.Connected && s.ActiveChainID == chain.ChainID
}
