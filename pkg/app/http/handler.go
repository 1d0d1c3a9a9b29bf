// Package http provides HTTP utilities including chi-compatible error handling
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/errors"
)

// HandlerFunc defines a function that returns an error for clean error handling
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// KindFunc maps an error to a short machine-readable kind for clients.
type KindFunc func(error) string

type errorResponse struct {
	ErrMsg     string `json:"error"`
	ErrMsgCode int    `json:"code"`
	Kind       string `json:"kind,omitempty"`
}

// HandleError wraps an error-returning HandlerFunc into a standard http.HandlerFunc.
//
//	r.Post("/flows", http.HandleError(handler.createFlow))
func HandleError(h HandlerFunc) http.HandlerFunc {
	return HandleErrorWithKind(h, nil)
}

// HandleErrorWithKind is HandleError with a kind attached to every error body.
func HandleErrorWithKind(h HandlerFunc, kind KindFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			WriteError(w, err, kind)
		}
	}
}

// DefaultErrorHandler handles errors returned from HTTP handlers
func DefaultErrorHandler(w http.ResponseWriter, err error) {
	WriteError(w, err, nil)
}

// WriteError renders err as {"error","code","kind"}. Only ServiceError
// messages reach the client; anything else becomes a generic 500.
func WriteError(w http.ResponseWriter, err error, kind KindFunc) {
	resp := errorResponse{
		ErrMsg:     "Unexpected Service Error",
		ErrMsgCode: http.StatusInternalServerError,
	}

	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		resp.ErrMsg = svcErr.Message
		resp.ErrMsgCode = svcErr.StatusCode()
	}
	if kind != nil {
		resp.Kind = kind(err)
	}

	WriteJSON(w, resp.ErrMsgCode, &resp)
}

// WriteJSON writes body as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
