package middleware

import (
	"net/http"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) ([]domain.Claim, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// Auth accepts "Authorization: Bearer <token>" or, without that header, the
// access_token cookie. The verified identity is put into the request context.
func Auth(verifier TokenVerifier, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := accessToken(r)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			id, ok := auth.SubjectID(claims)
			if !ok {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			email, _ := auth.ClaimValue(claims, domain.ClaimEmail)
			isUser, _ := auth.ClaimValue(claims, domain.ClaimIsUserAuth)

			ctx := WithPrincipal(r.Context(), Principal{
				UserID:     id,
				Email:      email,
				Roles:      auth.ClaimValues(claims, domain.ClaimRole),
				IsUserAuth: isUser == "true",
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		if access, _ := security.ReadAuthCookies(r); access != "" {
			return access, nil
		}
		return "", domain.ErrTokenMissing()
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", domain.ErrTokenInvalid()
	}

	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", domain.ErrTokenInvalid()
	}
	return raw, nil
}
