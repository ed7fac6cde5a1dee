package security

import (
	"net/http"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// SetAuthCookies writes both tokens. Cookie lifetime is independent of
// token validity.
func SetAuthCookies(w http.ResponseWriter, pair domain.TokenPair, days int) {
	expires := time.Now().AddDate(0, 0, days)
	http.SetCookie(w, authCookie(AccessCookieName, pair.AccessToken, expires))
	http.SetCookie(w, authCookie(RefreshCookieName, pair.RefreshToken, expires))
}

func ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		c := authCookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// ReadAuthCookies returns whatever token cookies are present; missing ones
// come back empty.
func ReadAuthCookies(r *http.Request) (access, refresh string) {
	if c, err := r.Cookie(AccessCookieName); err == nil {
		access = c.Value
	}
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		refresh = c.Value
	}
	return access, refresh
}

func authCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  expires,
	}
}
