package registry

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Handler serves the chain catalog as JSON.
type Handler struct {
	registry *Registry
	logger   *zap.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(registry *Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry: registry,
		logger:   logger,
	}
}

// ChainsResponse is the JSON body returned by the catalog endpoint.
type ChainsResponse struct {
	Chains []Chain `json:"chains"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// ServeHTTP handles GET requests and returns every configured chain.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
			Error: "method not allowed",
			Code:  http.StatusMethodNotAllowed,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, ChainsResponse{Chains: h.registry.Chains()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write JSON response", zap.Error(err))
	}
}
