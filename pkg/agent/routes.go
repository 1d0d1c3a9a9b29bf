// Package agent exposes the bridge orchestrator, the wallet session and the
// confirmation backend over HTTP.
package agent

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	apphttp "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/http"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/auth"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/confirmation"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/fee"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/orchestrator"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/receiptstore"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

const defaultRequestTimeout = 60 * time.Second

// WalletController is a wallet provider whose session the agent can change.
// *wallet.KeyedProvider implements it.
type WalletController interface {
	wallet.Provider
	Connect(ctx context.Context) (wallet.Session, error)
	Disconnect() wallet.Session
	SwitchChain(ctx context.Context, chainID uint64) (wallet.Session, error)
}

// Flows is the orchestrator surface the agent drives.
type Flows interface {
	Start(ctx context.Context, intent bridge.Intent) (*orchestrator.Flow, error)
	Flow(id string) (*orchestrator.Flow, error)
	Flows() []orchestrator.Snapshot
	InFlight(addr common.Address) (string, bool)
}

// Confirmations is the read side of the confirmation backend.
type Confirmations interface {
	Lookup(ctx context.Context, txHash string) ([]confirmation.Record, error)
	Recent(ctx context.Context) ([]confirmation.Record, error)
	Count(ctx context.Context) (int64, error)
	Volume(ctx context.Context) (string, error)
}

// Receipts reads journaled receipts.
type Receipts interface {
	GetBySourceTxHash(ctx context.Context, sourceTxHash common.Hash) (*receiptstore.Entry, error)
	ListBySender(ctx context.Context, sender common.Address, limit int) ([]*receiptstore.Entry, error)
}

// Deps are the collaborators behind the routes. Receipts is optional.
type Deps struct {
	Registry      *registry.Registry
	Wallet        WalletController
	Flows         Flows
	Confirmations Confirmations
	Fees          fee.Calculator
	Receipts      Receipts
	Logger        *zap.Logger
	// BaseContext bounds background approvals and submissions. It should
	// end when the process shuts down, not when a request finishes.
	BaseContext context.Context
}

// RouterConfig holds the outer HTTP policy.
type RouterConfig struct {
	AllowedOrigins    []string
	RequestsPerMinute int
	Metrics           bool
	RequestTimeout    time.Duration
	// Auth guards the state-changing routes. Nil leaves them open.
	Auth *auth.Validator
}

// HTTP wraps Deps to serve the agent endpoints.
type HTTP struct {
	deps    Deps
	origins []string
	authn   func(http.Handler) http.Handler
	logger  *zap.Logger
}

// NewRouter builds the full agent router.
func NewRouter(deps Deps, cfg RouterConfig) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	h := &HTTP{deps: deps, origins: cfg.AllowedOrigins, logger: deps.Logger}
	if cfg.Auth != nil {
		h.authn = auth.Middleware(cfg.Auth, deps.Logger)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// The event stream is long-lived and must not inherit the request timeout.
		r.Get("/flows/{id}/events", h.flowEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))
			RegisterRoutes(r, h)
		})
	})

	return newCORSHandler(cfg.AllowedOrigins, r)
}

// RegisterRoutes registers the request/response endpoints of h on r.
// Writes accept JSON bodies only and sit behind bearer auth when configured.
func RegisterRoutes(r chi.Router, h *HTTP) {
	handle := func(fn apphttp.HandlerFunc) http.HandlerFunc {
		return apphttp.HandleErrorWithKind(fn, orchestrator.KindOf)
	}

	if h.deps.Registry != nil {
		r.Method(http.MethodGet, "/chains", registry.NewHandler(h.deps.Registry, h.logger))
	}
	r.Get("/fee", handle(h.quoteFee))

	r.Get("/wallet", handle(h.walletSession))
	r.Get("/flows", handle(h.listFlows))
	r.Get("/flows/{id}", handle(h.getFlow))

	r.Get("/transactions", handle(h.recentTransactions))
	r.Get("/transactions/{hash}", handle(h.lookupTransaction))
	r.Get("/stats", handle(h.networkStats))

	if h.deps.Receipts != nil {
		r.Get("/receipts", handle(h.listReceipts))
		r.Get("/receipts/{hash}", handle(h.getReceipt))
	}

	r.Group(func(r chi.Router) {
		if h.authn != nil {
			r.Use(h.authn)
		}
		r.Use(middleware.AllowContentType("application/json"))

		r.Post("/wallet/connect", handle(h.connectWallet))
		r.Post("/wallet/disconnect", handle(h.disconnectWallet))
		r.Post("/wallet/switch", handle(h.switchChain))

		r.Post("/flows", handle(h.startFlow))
		r.Post("/flows/{id}/recheck", handle(h.recheckFlow))
		r.Post("/flows/{id}/approve", handle(h.approveFlow))
		r.Post("/flows/{id}/submit", handle(h.submitFlow))
	})
}

func newCORSHandler(allowedOrigins []string, next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	// Browsers reject credentials on wildcard origins.
	allowCredentials := !(len(allowedOrigins) == 1 && allowedOrigins[0] == "*")

	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-Id",
		},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}).Handler(next)
}
