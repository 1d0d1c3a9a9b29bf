package agent

import (
	"errors"
	"net/http"

	apperrors "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/errors"
	apphttp "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/http"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/wallet"
)

// WalletResponse is the session plus the flow holding its submission guard.
type WalletResponse struct {
	wallet.Session
	InFlightFlow string `json:"in_flight_flow,omitempty"`
}

// SwitchChainRequest is the body of POST /wallet/switch.
type SwitchChainRequest struct {
	ChainID uint64 `json:"chain_id"`
}

func (h *HTTP) walletResponse(s wallet.Session) WalletResponse {
	resp := WalletResponse{Session: s}
	if s.Connected && h.deps.Flows != nil {
		resp.InFlightFlow, _ = h.deps.Flows.InFlight(s.Address)
	}
	return resp
}

func (h *HTTP) walletSession(w http.ResponseWriter, _ *http.Request) error {
	apphttp.WriteJSON(w, http.StatusOK, h.walletResponse(h.deps.Wallet.Session()))
	return nil
}

func (h *HTTP) connectWallet(w http.ResponseWriter, r *http.Request) error {
	s, err := h.deps.Wallet.Connect(r.Context())
	if err != nil {
		return apperrors.DependencyFailureError(err, "failed to connect wallet")
	}
	apphttp.WriteJSON(w, http.StatusOK, h.walletResponse(s))
	return nil
}

func (h *HTTP) disconnectWallet(w http.ResponseWriter, _ *http.Request) error {
	apphttp.WriteJSON(w, http.StatusOK, h.walletResponse(h.deps.Wallet.Disconnect()))
	return nil
}

func (h *HTTP) switchChain(w http.ResponseWriter, r *http.Request) error {
	var req SwitchChainRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if req.ChainID == 0 {
		return apperrors.BadRequestError(nil, "chain_id is required")
	}

	s, err := h.deps.Wallet.SwitchChain(r.Context(), req.ChainID)
	if err != nil {
		if errors.Is(err, wallet.ErrUnsupportedChain) {
			return apperrors.BadRequestError(err, wallet.ErrUnsupportedChain.Error())
		}
		return apperrors.DependencyFailureError(err, "failed to switch chain")
	}
	apphttp.WriteJSON(w, http.StatusOK, h.walletResponse(s))
	return nil
}
