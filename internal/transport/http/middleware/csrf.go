package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// OriginSet is the allow-list built from ALLOWED_ORIGINS, keyed by
// lower-cased host. Values are the configured origins.
type OriginSet map[string]string

func NewOriginSet(allowedOrigins []string) OriginSet {
	set := make(OriginSet)
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			set[strings.ToLower(u.Host)] = origin
		}
	}
	return set
}

// Match returns the configured origin whose host equals origin's host.
func (s OriginSet) Match(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return "", false
	}
	configured, ok := s[strings.ToLower(u.Host)]
	return configured, ok
}

func (s OriginSet) Allows(origin string) bool {
	_, ok := s.Match(origin)
	return ok
}

// CSRFProtection checks Origin (or Referer) against allowedOrigins on
// state-changing requests. It guards the cookie-authenticated endpoints,
// whose cookies are SameSite=None.
func CSRFProtection(allowedOrigins []string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	allowed := NewOriginSet(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}

			if !allowed.Allows(origin) {
				writeErr(w, r, domain.ErrForbidden())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
