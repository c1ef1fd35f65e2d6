package webapp

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey struct{}

// AuthHeader carries the raw init data, in the form "tma <initData>".
const AuthHeader = "Authorization"

// IdentityFrom returns the authenticated identity stored by Middleware, or
// nil when auth is disabled.
func IdentityFrom(ctx context.Context) *Identity {
	identity, _ := ctx.Value(contextKey{}).(*Identity)
	return identity
}

// Middleware validates init data on every request. With disabled=true (local
// development) requests pass through without an identity and handlers skip
// the ownership check.
func Middleware(botToken string, disabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if disabled {
				next.ServeHTTP(w, r)
				return
			}

			raw := r.Header.Get(AuthHeader)
			if !strings.HasPrefix(raw, "tma ") {
				http.Error(w, "missing init data", http.StatusUnauthorized)
				return
			}

			identity, err := Validate(strings.TrimPrefix(raw, "tma "), botToken)
			if err != nil {
				zap.L().Debug("Init data rejected", zap.Error(err))
				http.Error(w, "invalid init data", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), contextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
