package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const BasePath = "/accounts/v1"

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Login(w http.ResponseWriter, r *http.Request)
	LoginUser(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Revoke(w http.ResponseWriter, r *http.Request)

	ForgotPassword(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)

	Me(w http.ResponseWriter, r *http.Request)
}

type AccountHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	UpdateRoles(w http.ResponseWriter, r *http.Request)
	ToggleStatus(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Search(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health   HealthHandler
	Auth     AuthHandler
	Accounts AccountHandler

	// Metrics serves /metrics when set.
	Metrics http.Handler

	RequestIDMW  Middleware
	AuthMW       Middleware
	SuperAdminMW Middleware

	// Optional; nil means pass-through.
	MetricsMW     Middleware
	CSRFMW        Middleware
	LoginLimitMW  Middleware
	ForgotLimitMW Middleware
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Accounts == nil {
		return nil, fmt.Errorf("nil Accounts handler")
	}
	if deps.RequestIDMW == nil {
		return nil, fmt.Errorf("nil RequestID middleware")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.SuperAdminMW == nil {
		return nil, fmt.Errorf("nil SuperAdmin middleware")
	}

	metricsMW := orNoop(deps.MetricsMW)
	csrf := orNoop(deps.CSRFMW)
	loginLimit := orNoop(deps.LoginLimitMW)
	forgotLimit := orNoop(deps.ForgotLimitMW)

	r := chi.NewRouter()
	r.Use(deps.RequestIDMW)
	r.Use(metricsMW)

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route(BasePath, func(r chi.Router) {
		// --- Authentication ---
		r.With(loginLimit).Post("/auth", deps.Auth.Login)
		r.With(loginLimit).Post("/auth/user", deps.Auth.LoginUser)

		// cookie-authenticated: origin checked
		r.With(csrf).Post("/refresh", deps.Auth.Refresh)
		r.With(csrf).Post("/revoke", deps.Auth.Revoke)

		// --- Password lifecycle ---
		r.With(forgotLimit).Post("/forgot-password", deps.Auth.ForgotPassword)
		r.Post("/reset-password", deps.Auth.ResetPassword)
		r.With(deps.AuthMW).Post("/change-password", deps.Auth.ChangePassword)

		r.With(deps.AuthMW).Get("/me", deps.Auth.Me)

		// --- Account administration ---
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMW)
			r.Use(deps.SuperAdminMW)

			r.Get("/", deps.Accounts.List)
			r.Post("/", deps.Accounts.Register)
			r.Get("/search", deps.Accounts.Search)
			r.Get("/{id}", deps.Accounts.Get)
			r.Put("/{id}", deps.Accounts.Update)
			r.Put("/{id}/roles", deps.Accounts.UpdateRoles)
			r.Put("/{id}/status", deps.Accounts.ToggleStatus)
		})
	})

	return r, nil
}

func orNoop(mw Middleware) Middleware {
	if mw != nil {
		return mw
	}
	return func(next http.Handler) http.Handler { return next }
}
