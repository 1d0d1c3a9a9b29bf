package agent

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/errors"
	apphttp "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/http"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/auth"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/orchestrator"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/registry"
)

const maxBodySize = 1 << 20

// StartFlowRequest is the body of POST /flows. Token is a contract address
// or a symbol listed on the source chain.
type StartFlowRequest struct {
	SourceChainID      uint64 `json:"source_chain_id"`
	DestinationChainID uint64 `json:"destination_chain_id"`
	Token              string `json:"token"`
	Amount             string `json:"amount"`
}

// FlowView is a flow snapshot plus what the registry adds for display.
type FlowView struct {
	orchestrator.Snapshot
	// DestinationToken is the same-symbol token credited on the destination chain.
	DestinationToken *registry.Token `json:"destination_token,omitempty"`
	ApprovalTxURL    string          `json:"approval_tx_url,omitempty"`
	SourceTxURL      string          `json:"source_tx_url,omitempty"`
}

// FlowsResponse lists flows in start order.
type FlowsResponse struct {
	Flows []FlowView `json:"flows"`
}

// AcceptedResponse answers a request whose work continues in the background.
type AcceptedResponse struct {
	FlowID string             `json:"flow_id"`
	State  orchestrator.State `json:"state"`
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	return nil
}

func (h *HTTP) startFlow(w http.ResponseWriter, r *http.Request) error {
	var req StartFlowRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}

	intent, err := h.resolveIntent(req)
	if err != nil {
		return err
	}

	f, err := h.deps.Flows.Start(r.Context(), intent)
	if err != nil {
		if f == nil {
			return err
		}
		h.logger.Warn("Initial allowance check refused", zap.String("flow_id", f.ID()), zap.Error(err))
	}

	apphttp.WriteJSON(w, http.StatusCreated, h.view(f.Snapshot()))
	return nil
}

func (h *HTTP) view(s orchestrator.Snapshot) FlowView {
	v := FlowView{Snapshot: s}
	reg := h.deps.Registry
	if reg == nil {
		return v
	}
	if tok, err := reg.Counterpart(registry.Token{Symbol: s.Intent.Symbol}, s.Intent.DestinationChainID); err == nil {
		v.DestinationToken = &tok
	}
	if s.ApprovalTx != "" {
		v.ApprovalTxURL = reg.ExplorerTxURL(s.Intent.SourceChainID, common.HexToHash(s.ApprovalTx))
	}
	if s.Receipt != nil {
		v.SourceTxURL = reg.ExplorerTxURL(s.Receipt.SourceChainID, s.Receipt.SourceTxHash)
	}
	return v
}

// resolveIntent maps chain ids and a token reference onto registry descriptors.
func (h *HTTP) resolveIntent(req StartFlowRequest) (bridge.Intent, error) {
	if h.deps.Registry == nil {
		return bridge.Intent{}, apperrors.GeneralError(errors.New("registry not configured"))
	}
	source, err := h.deps.Registry.Chain(req.SourceChainID)
	if err != nil {
		return bridge.Intent{}, bridge.InvalidSelectionError(err.Error())
	}
	dest, err := h.deps.Registry.Chain(req.DestinationChainID)
	if err != nil {
		return bridge.Intent{}, bridge.InvalidSelectionError(err.Error())
	}

	var token registry.Token
	switch {
	case req.Token == "":
		return bridge.Intent{}, bridge.InvalidSelectionError("token is required")
	case common.IsHexAddress(req.Token):
		token, err = h.deps.Registry.Token(source.ChainID, common.HexToAddress(req.Token))
	default:
		token, err = h.deps.Registry.TokenBySymbol(source.ChainID, req.Token)
	}
	if err != nil {
		return bridge.Intent{}, bridge.InvalidSelectionError(err.Error())
	}

	return bridge.Intent{
		Source:      source,
		Destination: dest,
		Token:       token,
		Amount:      req.Amount,
	}, nil
}

func (h *HTTP) listFlows(w http.ResponseWriter, _ *http.Request) error {
	snaps := h.deps.Flows.Flows()
	views := make([]FlowView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, h.view(snap))
	}
	apphttp.WriteJSON(w, http.StatusOK, FlowsResponse{Flows: views})
	return nil
}

func (h *HTTP) getFlow(w http.ResponseWriter, r *http.Request) error {
	f, err := h.deps.Flows.Flow(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, h.view(f.Snapshot()))
	return nil
}

func (h *HTTP) recheckFlow(w http.ResponseWriter, r *http.Request) error {
	f, err := h.deps.Flows.Flow(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	if err := f.Recheck(r.Context()); err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, h.view(f.Snapshot()))
	return nil
}

func (h *HTTP) approveFlow(w http.ResponseWriter, r *http.Request) error {
	f, err := h.deps.Flows.Flow(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	done, err := f.ApproveAsync(h.deps.BaseContext)
	if err != nil {
		return err
	}
	h.logAccepted(r, f.ID(), "approve")
	go h.logResult(f.ID(), "approve", done)

	apphttp.WriteJSON(w, http.StatusAccepted, AcceptedResponse{FlowID: f.ID(), State: f.State()})
	return nil
}

func (h *HTTP) submitFlow(w http.ResponseWriter, r *http.Request) error {
	f, err := h.deps.Flows.Flow(chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	done, err := f.SubmitAsync(h.deps.BaseContext)
	if err != nil {
		return err
	}
	h.logAccepted(r, f.ID(), "submit")
	go h.logResult(f.ID(), "submit", done)

	apphttp.WriteJSON(w, http.StatusAccepted, AcceptedResponse{FlowID: f.ID(), State: f.State()})
	return nil
}

func (h *HTTP) logAccepted(r *http.Request, flowID, op string) {
	fields := []zap.Field{
		zap.String("flow_id", flowID),
		zap.String("operation", op),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}
	if sub, ok := auth.SubjectFromContext(r.Context()); ok {
		fields = append(fields, zap.String("subject", sub))
	}
	h.logger.Info("Flow operation accepted", fields...)
}

func (h *HTTP) logResult(flowID, op string, done <-chan error) {
	err := <-done
	if err == nil {
		return
	}
	fields := []zap.Field{
		zap.String("flow_id", flowID),
		zap.String("operation", op),
		zap.String("kind", orchestrator.KindOf(err)),
		zap.Stringer("category", apperrors.CategoryOf(err)),
		zap.Error(err),
	}
	if apperrors.IsInternalError(err) {
		h.logger.Warn("Background flow operation failed", fields...)
		return
	}
	h.logger.Debug("Background flow operation ended with error", fields...)
}
