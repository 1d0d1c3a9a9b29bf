package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
)

// Backend is the subset of an RPC client the bridge needs on one chain.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// DialFunc opens a Backend for an RPC endpoint.
type DialFunc func(ctx context.Context, rpcURL string) (Backend, error)

func dialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Pool lazily dials and caches one Backend per registry chain.
type Pool struct {
	registry *registry.Registry
	dial     DialFunc
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[uint64]Backend
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithDialer replaces the default ethclient dialer.
func WithDialer(dial DialFunc) PoolOption {
	return func(p *Pool) { p.dial = dial }
}

// WithLogger sets the pool logger.
func WithLogger(logger *zap.Logger) PoolOption {
	return func(p *Pool) { p.logger = logger }
}

// NewPool creates a connection pool over the registry's RPC endpoints.
func NewPool(reg *registry.Registry, opts ...PoolOption) *Pool {
	p := &Pool{
		registry: reg,
		dial:     dialEthclient,
		logger:   zap.NewNop(),
		clients:  make(map[uint64]Backend),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Client returns the Backend for chainID, dialing it on first use. The remote
// chain id is checked against the registry before the client is cached.
// Dialing happens outside the pool lock; when two callers race, the first
// cached client wins and the other is closed.
func (p *Pool) Client(ctx context.Context, chainID uint64) (Backend, error) {
	if c, ok := p.cached(chainID); ok {
		return c, nil
	}

	chain, err := p.registry.Chain(chainID)
	if err != nil {
		return nil, err
	}

	client, err := p.connect(ctx, chain)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if c, ok := p.clients[chainID]; ok {
		p.mu.Unlock()
		client.Close()
		return c, nil
	}
	p.clients[chainID] = client
	p.mu.Unlock()

	p.logger.Info("Connected to chain",
		zap.Uint64("chain_id", chainID),
		zap.String("name", chain.Name),
		zap.String("bridge_contract", chain.Bridge.Hex()))
	return client, nil
}

func (p *Pool) cached(chainID uint64) (Backend, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.clients[chainID]
	return c, ok
}

func (p *Pool) connect(ctx context.Context, chain registry.Chain) (Backend, error) {
	client, err := p.dial(ctx, chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d RPC: %w", chain.ChainID, err)
	}

	remote, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain id from RPC: %w", err)
	}
	if !remote.IsUint64() || remote.Uint64() != chain.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc for chain %d reports chain id %s", chain.ChainID, remote.String())
	}
	return client, nil
}

// Close closes every dialed client.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, c := range p.clients {
		c.Close()
		delete(p.clients, id)
	}
}
