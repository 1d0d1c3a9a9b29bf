// Package agent implements app.Runner for the bridge agent process.
package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	agentapi "github.com/topdeveloper55/ether-pulse-bridge/pkg/agent"
	apphttp "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/http"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/auth"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/config"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/confirmation"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/ethereum"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/fee"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/orchestrator"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/pgutil"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/receiptstore"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

const connectTimeout = 30 * time.Second

// Server holds the configuration of the agent process.
type Server struct {
	cfg *config.Config
}

// NewServer initializes a new agent Server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// keyedWallet is the session-changing wallet behind the agent, wrapped
// with logging on the Provider side.
type keyedWallet struct {
	wallet.Provider
	keyed *wallet.KeyedProvider
}

func (w keyedWallet) Connect(ctx context.Context) (wallet.Session, error) {
	return w.keyed.Connect(ctx)
}

func (w keyedWallet) Disconnect() wallet.Session {
	return w.keyed.Disconnect()
}

func (w keyedWallet) SwitchChain(ctx context.Context, chainID uint64) (wallet.Session, error) {
	return w.keyed.SwitchChain(ctx, chainID)
}

// Run starts the orchestrator and the HTTP API. It blocks until an OS
// shutdown signal is received or the server fails.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	reg, err := registry.FromConfig(cfg.Chains)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	logger.Info("Starting bridge agent",
		zap.String("address", cfg.Server.Address()),
		zap.Uint64s("chains", reg.ChainIDs()))

	validator, err := s.authValidator(logger)
	if err != nil {
		return err
	}

	pool := ethereum.NewPool(reg, ethereum.WithLogger(logger))
	defer pool.Close()

	w, err := s.openWallet(ctx, reg, pool, logger)
	if err != nil {
		return err
	}
	defer w.keyed.Close()

	fees, err := fee.FromConfig(cfg.Fee)
	if err != nil {
		return fmt.Errorf("fee schedule: %w", err)
	}

	issuer, err := bridge.NewIssuer(w, cfg.Approval.Ceiling, logger)
	if err != nil {
		return fmt.Errorf("approval issuer: %w", err)
	}

	confirmClient := confirmation.NewClient(
		cfg.Confirmation.BaseURL,
		cfg.Confirmation.RequestTimeout,
		confirmation.WithClientLogger(logger),
	)
	poller := confirmation.NewPoller(
		confirmClient,
		cfg.Confirmation.PollInterval,
		cfg.Confirmation.MaxAttempts,
		confirmation.WithPollerLogger(logger),
	)

	store, closeDB, err := s.openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if store != nil {
		opts = append(opts, orchestrator.WithJournal(store))
	}

	orch, err := orchestrator.New(orchestrator.Components{
		Wallet:        w,
		Allowance:     bridge.NewInspector(bridge.PoolReaders(pool), logger),
		Approvals:     issuer,
		Submissions:   bridge.NewSubmitter(w, bridge.PoolReaders(pool), logger),
		Confirmations: poller,
	}, opts...)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}
	defer orch.Close()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := orch.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Wallet watcher stopped", zap.Error(err))
		}
	}()

	deps := agentapi.Deps{
		Registry:      reg,
		Wallet:        w,
		Flows:         orch,
		Confirmations: confirmClient,
		Fees:          fees,
		Logger:        logger,
		BaseContext:   ctx,
	}
	if store != nil {
		deps.Receipts = store
	}

	router := agentapi.NewRouter(deps, agentapi.RouterConfig{
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Metrics:           cfg.Monitoring.Enabled,
		Auth:              validator,
	})

	err = apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)

	// Stop the watcher before the wallet closes its event stream.
	stop()
	<-watchDone

	return err
}

// authValidator returns nil when API authentication is disabled.
func (s *Server) authValidator(logger *zap.Logger) (*auth.Validator, error) {
	a := s.cfg.Auth
	if !a.Enabled {
		logger.Warn("API authentication disabled")
		return nil, nil
	}
	v := auth.NewValidator(a.Secret(), a.JWKSURL, a.Issuer)
	if !v.IsConfigured() {
		return nil, fmt.Errorf("auth enabled but neither %s nor auth.jwks_url is set", a.SecretEnv)
	}
	return v, nil
}

func (s *Server) openWallet(
	ctx context.Context,
	reg *registry.Registry,
	pool *ethereum.Pool,
	logger *zap.Logger,
) (keyedWallet, error) {
	key, err := s.cfg.Wallet.PrivateKey()
	if err != nil {
		return keyedWallet{}, err
	}

	keyed, err := wallet.NewKeyedProvider(key, reg, pool, s.cfg.Wallet, logger)
	if err != nil {
		return keyedWallet{}, fmt.Errorf("create wallet: %w", err)
	}
	w := keyedWallet{Provider: wallet.NewLog(keyed, logger), keyed: keyed}

	if s.cfg.Wallet.AutoConnect {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		session, err := keyed.Connect(connectCtx)
		if err != nil {
			keyed.Close()
			return keyedWallet{}, fmt.Errorf("connect wallet: %w", err)
		}
		logger.Info("Wallet ready",
			zap.String("address", session.Address.Hex()),
			zap.Uint64("chain_id", session.ActiveChainID))
	}
	return w, nil
}

// openStore connects the receipt journal when the database is enabled.
// The returned store is nil otherwise.
func (s *Server) openStore(ctx context.Context, logger *zap.Logger) (receiptstore.Store, func(), error) {
	if !s.cfg.Database.Enabled {
		logger.Info("Receipt journal disabled")
		return nil, func() {}, nil
	}

	db, err := pgutil.ConnectDB(ctx, &s.cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect receipt journal: %w", err)
	}
	return receiptstore.NewStore(db), func() { _ = db.Close() }, nil
}
