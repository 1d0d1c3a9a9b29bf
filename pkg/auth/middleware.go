package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/errors"
	apphttp "github.com/topdeveloper55/ether-pulse-bridge/pkg/app/http"
)

type contextKey string

// ContextKeySubject is the context key for the token subject
const ContextKeySubject contextKey = "subject"

var errMissingToken = errors.New("missing bearer token")

// WithSubject adds the token subject to the context
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ContextKeySubject, subject)
}

// SubjectFromContext retrieves the token subject from the context
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(ContextKeySubject).(string)
	return sub, ok
}

// Middleware rejects requests without a valid bearer token with 401.
func Middleware(v *Validator, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apphttp.WriteError(w, apperrors.UnAuthorizedError(errMissingToken, errMissingToken.Error()), nil)
				return
			}
			claims, err := v.ValidateToken(r.Context(), token)
			if err != nil {
				logger.Debug("Rejected bearer token",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				apphttp.WriteError(w, apperrors.UnAuthorizedError(err, "invalid token"), nil)
				return
			}
			sub, _ := claims.GetSubject()
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}
