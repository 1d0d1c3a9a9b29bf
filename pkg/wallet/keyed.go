package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/topdeveloper55/ether-pulse-bridge/internal/fanout"
	"github.com/topdeveloper55/ether-pulse-bridge/internal/metrics"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/config"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
)

// Clients hands out per-chain RPC backends. *ethereum.Pool implements it.
type Clients interface {
	Client(ctx context.Context, chainID uint64) (ethereum.Backend, error)
}

type pendingTx struct {
	chainID   uint64
	operation string
}

// KeyedProvider is a Provider backed by a local private key, used when the
// agent signs on behalf of its operator.
type KeyedProvider struct {
	key          *ecdsa.PrivateKey
	address      common.Address
	registry     *registry.Registry
	clients      Clients
	gas          ethereum.GasSettings
	pollInterval time.Duration
	logger       *zap.Logger

	// signMu orders chain switches against signing.
	signMu sync.Mutex

	mu      sync.RWMutex
	session Session
	pending map[common.Hash]pendingTx

	events *fanout.Broadcaster[Event]
}

var _ Provider = (*KeyedProvider)(nil)

// NewKeyedProvider creates a disconnected provider on the configured default
// chain, or the first registry chain when none is set.
func NewKeyedProvider(
	privateKeyHex string,
	reg *registry.Registry,
	clients Clients,
	cfg config.WalletConfig,
	logger *zap.Logger,
) (*KeyedProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	maxGasPrice, err := ethereum.ParseWei(cfg.MaxGasPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid max gas price: %w", err)
	}

	chainID := cfg.DefaultChainID
	if chainID == 0 {
		ids := reg.Chains()
		if len(ids) == 0 {
			return nil, errors.New("registry has no chains")
		}
		chainID = ids[0].ChainID
	}
	if _, err := reg.Chain(chainID); err != nil {
		return nil, err
	}

	pollInterval := cfg.ReceiptPollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &KeyedProvider{
		key:          key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		registry:     reg,
		clients:      clients,
		gas:          ethereum.GasSettings{GasLimit: cfg.GasLimit, MaxGasPrice: maxGasPrice},
		pollInterval: pollInterval,
		logger:       logger,
		session:      Session{ActiveChainID: chainID, NativeBalance: "0"},
		pending:      make(map[common.Hash]pendingTx),
		events:       fanout.New[Event](fanout.DefaultBuffer),
	}, nil
}

// Address returns the signing address whether or not the session is connected.
func (p *KeyedProvider) Address() common.Address {
	return p.address
}

// Session returns a copy of the current session.
func (p *KeyedProvider) Session() Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

// Subscribe registers for session events. The returned func unsubscribes.
func (p *KeyedProvider) Subscribe() (<-chan Event, func()) {
	return p.events.Subscribe()
}

// Connect exposes the key's address and reads its native balance.
func (p *KeyedProvider) Connect(ctx context.Context) (Session, error) {
	p.mu.Lock()
	p.session.Connected = true
	p.session.Address = p.address
	chainID := p.session.ActiveChainID
	p.mu.Unlock()

	p.refreshBalance(ctx, chainID)

	s := p.Session()
	p.publish(EventAccountsChanged, s)
	p.logger.Info("Wallet connected",
		zap.String("address", s.Address.Hex()),
		zap.Uint64("chain_id", s.ActiveChainID))
	return s, nil
}

// Disconnect clears the session address.
func (p *KeyedProvider) Disconnect() Session {
	p.mu.Lock()
	p.session.Connected = false
	p.session.Address = common.Address{}
	p.session.NativeBalance = "0"
	s := p.session
	p.mu.Unlock()

	p.publish(EventDisconnected, s)
	p.logger.Info("Wallet disconnected")
	return s
}

// SwitchChain changes the active chain to a registry chain.
func (p *KeyedProvider) SwitchChain(ctx context.Context, chainID uint64) (Session, error) {
	if _, err := p.registry.Chain(chainID); err != nil {
		return p.Session(), fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}

	p.signMu.Lock()
	p.mu.Lock()
	changed := p.session.ActiveChainID != chainID
	p.session.ActiveChainID = chainID
	connected := p.session.Connected
	p.mu.Unlock()
	p.signMu.Unlock()

	if !changed {
		return p.Session(), nil
	}
	if connected {
		p.refreshBalance(ctx, chainID)
	}

	s := p.Session()
	p.publish(EventChainChanged, s)
	p.logger.Info("Wallet switched chain", zap.Uint64("chain_id", chainID))
	return s, nil
}

// RequestAccounts connects when needed and returns the exposed account.
func (p *KeyedProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	s := p.Session()
	if !s.Connected {
		var err error
		if s, err = p.Connect(ctx); err != nil {
			return nil, err
		}
	}
	return []common.Address{s.Address}, nil
}

// ActiveChainID returns the chain the provider signs for.
func (p *KeyedProvider) ActiveChainID(ctx context.Context) (uint64, error) {
	return p.Session().ActiveChainID, nil
}

// SignAndSend signs req and broadcasts it. The request is refused unless
// req.ChainID is the active chain; a chain switch waits for it to finish.
func (p *KeyedProvider) SignAndSend(ctx context.Context, req TxRequest) (common.Hash, error) {
	p.signMu.Lock()
	defer p.signMu.Unlock()

	s := p.Session()
	if !s.Connected {
		return common.Hash{}, ErrNotConnected
	}
	if req.ChainID != s.ActiveChainID {
		return common.Hash{}, fmt.Errorf("%w: active chain %d, request for %d", ErrChainMismatch, s.ActiveChainID, req.ChainID)
	}

	backend, err := p.clients.Client(ctx, s.ActiveChainID)
	if err != nil {
		return common.Hash{}, err
	}

	auth, err := ethereum.NewTransactor(ctx, backend, p.key, s.ActiveChainID, p.gas, p.logger)
	if err != nil {
		return common.Hash{}, err
	}
	auth.Value = req.Value

	to := req.To
	auth.GasLimit = ethereum.EstimateGas(ctx, backend, goethereum.CallMsg{
		From:     p.address,
		To:       &to,
		GasPrice: auth.GasPrice,
		Value:    req.Value,
		Data:     req.Data,
	}, p.gas, p.logger)

	tx, err := ethereum.SendRaw(auth, backend, req.To, req.Data)
	if err != nil {
		return common.Hash{}, err
	}

	p.mu.Lock()
	p.pending[tx.Hash()] = pendingTx{chainID: s.ActiveChainID, operation: req.Operation}
	p.mu.Unlock()

	return tx.Hash(), nil
}

// WaitForReceipt polls for the receipt of a transaction sent through this
// provider until it is mined or ctx ends.
func (p *KeyedProvider) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	p.mu.RLock()
	ptx, ok := p.pending[hash]
	if !ok {
		ptx = pendingTx{chainID: p.session.ActiveChainID, operation: "unknown"}
	}
	p.mu.RUnlock()

	backend, err := p.clients.Client(ctx, ptx.chainID)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			p.mu.Lock()
			delete(p.pending, hash)
			p.mu.Unlock()

			metrics.GasUsed.WithLabelValues(ptx.operation).Observe(float64(receipt.GasUsed))
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
			}
			return receipt, nil
		case err != nil && !errors.Is(err, goethereum.NotFound):
			p.logger.Warn("Failed to fetch receipt", zap.String("tx_hash", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close ends every subscription.
func (p *KeyedProvider) Close() {
	p.events.Close()
}

func (p *KeyedProvider) refreshBalance(ctx context.Context, chainID uint64) {
	balance := "0"
	if v, err := p.nativeBalance(ctx, chainID); err != nil {
		p.logger.Warn("Failed to read native balance", zap.Uint64("chain_id", chainID), zap.Error(err))
	} else {
		balance = v.String()
	}

	p.mu.Lock()
	if p.session.ActiveChainID == chainID {
		p.session.NativeBalance = balance
	}
	p.mu.Unlock()
}

func (p *KeyedProvider) nativeBalance(ctx context.Context, chainID uint64) (*big.Int, error) {
	backend, err := p.clients.Client(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return backend.BalanceAt(ctx, p.address, nil)
}

func (p *KeyedProvider) publish(t EventType, s Session) {
	if dropped := p.events.Publish(Event{Type: t, Session: s}); dropped > 0 {
		p.logger.Warn("Dropped wallet event for slow subscribers",
			zap.String("event", string(t)),
			zap.Int("dropped", dropped))
	}
}
