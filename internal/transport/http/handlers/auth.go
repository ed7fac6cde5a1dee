package http_handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
)

// AuthHandler serves login, token rotation and the password flows.
type AuthHandler struct {
	svc        *auth.Service
	cookieDays int

	// reset links only ever point at one of these
	origins       middleware.OriginSet
	defaultOrigin string
}

// NewAuthHandler takes the ALLOWED_ORIGINS list; its first entry is the
// reset-link origin when a request's Origin is missing or not listed.
func NewAuthHandler(svc *auth.Service, cookieDays int, allowedOrigins []string) *AuthHandler {
	if cookieDays <= 0 {
		cookieDays = 7
	}
	h := &AuthHandler{
		svc:        svc,
		cookieDays: cookieDays,
		origins:    middleware.NewOriginSet(allowedOrigins),
	}
	if len(allowedOrigins) > 0 {
		h.defaultOrigin = strings.TrimRight(strings.TrimSpace(allowedOrigins[0]), "/")
	}
	return h
}

// Login handles POST /auth: back-office login with the role whitelist.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.svc.Authenticate)
}

// LoginUser handles POST /auth/user: end-user login.
func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.svc.AuthenticateUser)
}

type authenticateFunc func(ctx context.Context, identifier, password string) (auth.AuthResult, error)

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, authenticate authenticateFunc) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Check(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := authenticate(r.Context(), req.Identifier, req.Password)
	middleware.ObserveLogin(err)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	l := logger.WithCtx(r.Context())
	l.Info().Int64("user_id", res.UserID).Msg("user_logged_in")

	security.SetAuthCookies(w, res.Tokens, h.cookieDays)
	response.OK(w, "authenticated", dto.NewAuthResponse(res))
}

// Refresh handles POST /refresh. Tokens come from the auth cookies; a JSON
// body may supply them instead.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	access, refresh := security.ReadAuthCookies(r)

	if access == "" || refresh == "" {
		var req dto.RefreshRequest
		if r.ContentLength != 0 {
			if err := response.DecodeJSON(w, r, &req); err != nil {
				response.WriteError(w, r, err)
				return
			}
		}
		access, refresh = firstNonEmpty(access, req.AccessToken), firstNonEmpty(refresh, req.RefreshToken)
	}

	pair, err := h.svc.Refresh(r.Context(), access, refresh)
	middleware.ObserveRefresh(err)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.SetAuthCookies(w, pair, h.cookieDays)
	response.OK(w, "token refreshed", nil)
}

// Revoke handles POST /revoke: drops the stored refresh token when the
// access cookie still identifies the caller, and always clears cookies.
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	access, _ := security.ReadAuthCookies(r)
	if err := h.svc.SignOut(r.Context(), access); err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.ClearAuthCookies(w)
	response.OK(w, "signed out", nil)
}

// ForgotPassword handles POST /forgot-password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Check(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	origin := h.resetOrigin(r)
	if origin == "" {
		response.WriteError(w, r, domain.ErrMissingField("origin"))
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email, origin); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "password reset link sent", nil)
}

// resetOrigin picks the configured origin matching the request's Origin
// header, falling back to the default. A foreign Origin never reaches the
// reset link.
func (h *AuthHandler) resetOrigin(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Origin"))
	if origin, ok := h.origins.Match(raw); ok {
		return origin
	}
	if raw != "" {
		l := logger.WithCtx(r.Context())
		l.Warn().Str("origin", raw).Msg("forgot_password_foreign_origin")
	}
	return h.defaultOrigin
}

// ResetPassword handles POST /reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Check(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Email, req.Token, req.Password); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "password reset", nil)
}

// ChangePassword handles POST /change-password for the authenticated caller.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	var req dto.ChangePasswordRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Check(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	err := h.svc.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword, req.ConfirmNewPassword)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "password changed", nil)
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	view, err := h.svc.GetAccount(r.Context(), p.UserID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "", dto.NewAccountResponse(view))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
