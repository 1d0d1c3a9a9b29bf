package agent

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"

	apperrors "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/errors"
	apphttp "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/http"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/confirmation"
	"github.com/topdeveloper55/ether-pulse-bridge/pkg/receiptstore"
)

const (
	defaultReceiptLimit = 50
	maxReceiptLimit     = 500
)

// TransactionsResponse carries confirmation records.
type TransactionsResponse struct {
	Transactions []confirmation.Record `json:"transactions"`
}

// StatsResponse carries the network-wide counters of the confirmation backend.
type StatsResponse struct {
	Count  int64  `json:"count"`
	Volume string `json:"volume"`
}

// ReceiptsResponse lists journaled receipts, newest first.
type ReceiptsResponse struct {
	Receipts []*receiptstore.Entry `json:"receipts"`
}

func (h *HTTP) quoteFee(w http.ResponseWriter, r *http.Request) error {
	amount := strings.TrimSpace(r.URL.Query().Get("amount"))
	if amount == "" {
		return apperrors.BadRequestError(nil, "amount is required")
	}
	apphttp.WriteJSON(w, http.StatusOK, h.deps.Fees.Quote(amount))
	return nil
}

func (h *HTTP) recentTransactions(w http.ResponseWriter, r *http.Request) error {
	records, err := h.deps.Confirmations.Recent(r.Context())
	if err != nil {
		return err
	}
	if records == nil {
		records = []confirmation.Record{}
	}
	apphttp.WriteJSON(w, http.StatusOK, TransactionsResponse{Transactions: records})
	return nil
}

func (h *HTTP) lookupTransaction(w http.ResponseWriter, r *http.Request) error {
	hash := chi.URLParam(r, "hash")
	if !isTxHash(hash) {
		return apperrors.BadRequestError(nil, "invalid transaction hash")
	}

	records, err := h.deps.Confirmations.Lookup(r.Context(), hash)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return apperrors.ResourceNotFoundError(nil, "transaction not found")
	}
	apphttp.WriteJSON(w, http.StatusOK, TransactionsResponse{Transactions: records})
	return nil
}

func (h *HTTP) networkStats(w http.ResponseWriter, r *http.Request) error {
	count, err := h.deps.Confirmations.Count(r.Context())
	if err != nil {
		return err
	}
	volume, err := h.deps.Confirmations.Volume(r.Context())
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, StatsResponse{Count: count, Volume: volume})
	return nil
}

func (h *HTTP) listReceipts(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	sender := q.Get("sender")
	if sender == "" {
		if s := h.deps.Wallet.Session(); s.Connected {
			sender = s.Address.Hex()
		}
	}
	if !common.IsHexAddress(sender) {
		return apperrors.BadRequestError(nil, "sender address is required")
	}

	limit := defaultReceiptLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return apperrors.BadRequestError(err, "invalid limit")
		}
		limit = min(n, maxReceiptLimit)
	}

	entries, err := h.deps.Receipts.ListBySender(r.Context(), common.HexToAddress(sender), limit)
	if err != nil {
		return apperrors.DependencyFailureError(err, "failed to list receipts")
	}
	if entries == nil {
		entries = []*receiptstore.Entry{}
	}
	apphttp.WriteJSON(w, http.StatusOK, ReceiptsResponse{Receipts: entries})
	return nil
}

// ReceiptResponse is one journaled receipt with its explorer link.
type ReceiptResponse struct {
	*receiptstore.Entry
	ExplorerURL string `json:"explorer_url,omitempty"`
}

func (h *HTTP) getReceipt(w http.ResponseWriter, r *http.Request) error {
	hash := chi.URLParam(r, "hash")
	if !isTxHash(hash) {
		return apperrors.BadRequestError(nil, "invalid transaction hash")
	}

	entry, err := h.deps.Receipts.GetBySourceTxHash(r.Context(), common.HexToHash(hash))
	if errors.Is(err, receiptstore.ErrReceiptNotFound) {
		return apperrors.ResourceNotFoundError(err, "receipt not found")
	}
	if err != nil {
		return apperrors.DependencyFailureError(err, "failed to read receipt")
	}

	resp := ReceiptResponse{Entry: entry}
	if h.deps.Registry != nil {
		resp.ExplorerURL = h.deps.Registry.ExplorerTxURL(entry.SourceChainID, entry.SourceTxHash)
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

func isTxHash(s string) bool {
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == common.HashLength
}
