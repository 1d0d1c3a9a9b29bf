// Package registry holds the static catalog of chains and tokens the bridge
// supports. It is loaded once at start-up and never mutated afterwards.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/config"
)

var (
	// ErrUnknownChain is returned when a chain id is not in the catalog.
	ErrUnknownChain = errors.New("unknown chain")
	// ErrUnknownToken is returned when a token is not listed on the requested chain.
	ErrUnknownToken = errors.New("unknown token")
)

// Token describes one token contract on one chain.
type Token struct {
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	IconURL  string         `json:"icon_url,omitempty"`
}

// Chain describes one supported chain, its bridge contracts and tokens.
type Chain struct {
	ID               int            `json:"id"`
	Name             string         `json:"name"`
	Network          string         `json:"network"`
	ChainID          uint64         `json:"chain_id"`
	RPCURL           string         `json:"-"`
	BlockExplorerURL string         `json:"block_explorer_url,omitempty"`
	IconURL          string         `json:"icon_url,omitempty"`
	Bridge           common.Address `json:"bridge_contract"`
	Pool             common.Address `json:"pool_contract"`
	Tokens           []Token        `json:"tokens"`
}

// Token returns the token listed at address on this chain.
func (c Chain) Token(address common.Address) (Token, bool) {
	for _, t := range c.Tokens {
		if t.Address == address {
			return t, true
		}
	}
	return Token{}, false
}

func (c Chain) clone() Chain {
	c.Tokens = append([]Token(nil), c.Tokens...)
	return c
}

// Registry is a read-only, chainId-keyed catalog.
type Registry struct {
	order  []uint64
	chains map[uint64]Chain
}

// New builds a registry, rejecting duplicate chain ids, chains without a bridge
// contract and tokens listed twice on the same chain.
func New(chains []Chain) (*Registry, error) {
	r := &Registry{chains: make(map[uint64]Chain, len(chains))}
	for _, c := range chains {
		if c.ChainID == 0 {
			return nil, fmt.Errorf("chain %q: chain id is required", c.Name)
		}
		if _, dup := r.chains[c.ChainID]; dup {
			return nil, fmt.Errorf("duplicate chain id %d", c.ChainID)
		}
		if c.Bridge == (common.Address{}) {
			return nil, fmt.Errorf("chain %d: bridge contract is required", c.ChainID)
		}
		seen := make(map[common.Address]struct{}, len(c.Tokens))
		for _, t := range c.Tokens {
			if _, dup := seen[t.Address]; dup {
				return nil, fmt.Errorf("chain %d: token %s listed twice", c.ChainID, t.Address.Hex())
			}
			seen[t.Address] = struct{}{}
		}
		r.chains[c.ChainID] = c.clone()
		r.order = append(r.order, c.ChainID)
	}
	return r, nil
}

// FromConfig converts the chains section of the agent configuration.
func FromConfig(cfgs []config.ChainConfig) (*Registry, error) {
	chains := make([]Chain, 0, len(cfgs))
	for _, cc := range cfgs {
		chain := Chain{
			ID:               cc.ID,
			Name:             cc.Name,
			Network:          cc.Network,
			ChainID:          cc.ChainID,
			RPCURL:           cc.RPCURL,
			BlockExplorerURL: strings.TrimRight(cc.BlockExplorerURL, "/"),
			IconURL:          cc.IconURL,
			Bridge:           common.HexToAddress(cc.BridgeContract),
		}
		if cc.PoolContract != "" {
			chain.Pool = common.HexToAddress(cc.PoolContract)
		}
		for _, tc := range cc.Tokens {
			chain.Tokens = append(chain.Tokens, Token{
				Name:     tc.Name,
				Symbol:   tc.Symbol,
				Address:  common.HexToAddress(tc.Address),
				Decimals: tc.Decimals,
				IconURL:  tc.IconURL,
			})
		}
		chains = append(chains, chain)
	}
	return New(chains)
}

// Chains returns every chain in declaration order.
func (r *Registry) Chains() []Chain {
	out := make([]Chain, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.chains[id].clone())
	}
	return out
}

// ChainIDs returns the catalog keys sorted ascending.
func (r *Registry) ChainIDs() []uint64 {
	ids := append([]uint64(nil), r.order...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Chain looks up a chain by its numeric chain id.
func (r *Registry) Chain(chainID uint64) (Chain, error) {
	c, ok := r.chains[chainID]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	return c.clone(), nil
}

// Token looks up a token by contract address on the given chain.
func (r *Registry) Token(chainID uint64, address common.Address) (Token, error) {
	c, err := r.Chain(chainID)
	if err != nil {
		return Token{}, err
	}
	t, ok := c.Token(address)
	if !ok {
		return Token{}, fmt.Errorf("%w: %s on chain %d", ErrUnknownToken, address.Hex(), chainID)
	}
	return t, nil
}

// TokenBySymbol looks up a token by case-insensitive symbol on the given chain.
func (r *Registry) TokenBySymbol(chainID uint64, symbol string) (Token, error) {
	c, err := r.Chain(chainID)
	if err != nil {
		return Token{}, err
	}
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, nil
		}
	}
	return Token{}, fmt.Errorf("%w: %s on chain %d", ErrUnknownToken, symbol, chainID)
}

// Counterpart returns the token with the same symbol on the destination chain.
// The two are distinct descriptors with independent addresses.
func (r *Registry) Counterpart(token Token, destChainID uint64) (Token, error) {
	return r.TokenBySymbol(destChainID, token.Symbol)
}

// ExplorerTxURL returns the block explorer link for a transaction, or an empty
// string when the chain has no explorer configured.
func (r *Registry) ExplorerTxURL(chainID uint64, txHash common.Hash) string {
	c, ok := r.chains[chainID]
	if !ok || c.BlockExplorerURL == "" {
		return ""
	}
	return c.BlockExplorerURL + "/tx/" + txHash.Hex()
}
