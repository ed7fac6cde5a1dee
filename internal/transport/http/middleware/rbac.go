package middleware

import (
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// RequireRole lets the request through only if the caller holds role
// exactly. Auth must run first.
func RequireRole(role string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			if !domain.HasRole(p.Roles, role) {
				writeErr(w, r, domain.ErrInsufficientRole(role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
