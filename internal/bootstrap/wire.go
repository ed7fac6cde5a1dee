package bootstrap

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	http_handlers "github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (*sql.DB, error)

	NewRedis func(addr, password string, db int) *redis.Client

	NewMailer func(rabbitURL, exchange string) (Mailer, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

// Mailer is the password-reset delivery the service hands links to.
type Mailer interface {
	auth.PasswordResetMailer
	Close() error
}

type roleRegistry interface {
	auth.RoleRegistry
	EnsureRoles(ctx context.Context, roles []domain.Role) error
}

type credentialStore interface {
	auth.CredentialStore
	auth.RefreshTokenSwapper
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	log := logger.Logger

	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checks := map[string]http_handlers.Check{}

	// 1) redis (reset tokens + rate limiting)
	var (
		resets  postgres.ResetTokens
		limiter middleware.RateLimiter
	)
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			if !cfg.IsDev() {
				return fail(err)
			}
			log.Warn().Err(err).Msg("redis unavailable; using in-memory reset tokens, rate limiting disabled")
		} else {
			log.Info().Msg("redis connected")
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			resets = redis.NewResetTokenStore(c)
			limiter = redis.NewFixedWindowLimiter(c)
			checks["redis"] = c.Ping
		}
	}
	if resets == nil {
		resets = memory.NewResetTokenStore()
	}

	// 2) credential store + role registry
	hasher := security.NewBcryptHasher(cfg.BcryptCost)

	var (
		store    credentialStore
		registry roleRegistry
	)
	if cfg.DBAddr != "" {
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return fail(err)
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		if err := postgres.Migrate(ctx, db); err != nil {
			return fail(err)
		}

		store = postgres.NewCredentialStore(db, hasher, resets, cfg.PasswordResetTokenTTL)
		registry = postgres.NewRoleRegistry(db)
		checks["postgres"] = db.PingContext
	} else {
		log.Warn().Msg("DB_ADDR not set; accounts are kept in memory")
		roles := memory.NewRoleRegistry()
		store = memory.NewCredentialStore(roles, hasher, resets, cfg.PasswordResetTokenTTL)
		registry = roles
	}

	if err := registry.EnsureRoles(ctx, domain.DefaultRoles()); err != nil {
		return fail(err)
	}

	// 3) password reset delivery
	var mailer Mailer
	if cfg.RabbitURL != "" && deps.NewMailer != nil {
		mailer, err = deps.NewMailer(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if !cfg.IsDev() {
				return fail(err)
			}
			log.Warn().Err(err).Msg("rabbitmq unavailable; reset links are only logged")
			mailer = nil
		}
	}
	if mailer == nil {
		mailer = logMailer{memory.NewLogMailer()}
	}
	cleanupFns = append(cleanupFns, func() { _ = mailer.Close() })

	// 4) security
	log.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt signer")
	signer, err := security.NewJWTSigner(security.SigningConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		AccessTTL: cfg.AccessTokenTTL(),
	})
	if err != nil {
		return fail(err)
	}

	// 5) service
	svc := auth.NewService(store, registry, signer, mailer, auth.Config{
		RefreshTTL:     cfg.RefreshTokenTTL(),
		ResetPath:      cfg.PasswordResetPath,
		StrictRotation: cfg.StrictRotation,
	}).
		WithAudit(audit.New(log).Record).
		WithLogger(log)

	if err := seedAdmin(ctx, svc, cfg, log); err != nil {
		return fail(err)
	}

	// 6) handlers + middleware
	authH := http_handlers.NewAuthHandler(svc, cfg.CookieDays, cfg.AllowedOrigins)
	accountH := http_handlers.NewAccountHandler(svc)
	healthH := http_handlers.NewHealthHandler(checks)

	rl := func(key string, limit int) func(http.Handler) http.Handler {
		if limiter == nil {
			return nil
		}
		return middleware.RateLimitFixedWindow(
			limiter,
			middleware.FixedWindowConfig{RouteKey: key, Limit: limit, Window: cfg.RateLimitWindow},
			response.WriteError,
		)
	}

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health:   healthH,
		Auth:     authH,
		Accounts: accountH,
		Metrics:  promhttp.Handler(),

		RequestIDMW:  middleware.RequestID,
		MetricsMW:    middleware.Metrics,
		AuthMW:       middleware.Auth(signer, response.WriteError),
		SuperAdminMW: middleware.RequireRole(domain.RoleSuperAdmin, response.WriteError),
		CSRFMW:       middleware.CSRFProtection(cfg.AllowedOrigins, response.WriteError),

		LoginLimitMW:  rl("accounts.auth", cfg.LoginRateLimit),
		ForgotLimitMW: rl("accounts.forgot_password", cfg.ForgotRateLimit),
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

// seedAdmin creates the configured SuperAdmin once; an existing account
// with the same identifier or email is left alone.
func seedAdmin(ctx context.Context, svc *auth.Service, cfg *config.Config, log zerolog.Logger) error {
	if cfg.SeedAdminIdentifier == "" || cfg.SeedAdminPassword == "" {
		return nil
	}

	_, err := svc.Register(ctx, auth.RegisterInput{
		Identifier: cfg.SeedAdminIdentifier,
		FullName:   "Super Administrator",
		Email:      cfg.SeedAdminEmail,
		Password:   cfg.SeedAdminPassword,
		Roles:      []string{domain.RoleSuperAdmin},
	})
	switch {
	case err == nil:
		log.Info().Str("identifier", cfg.SeedAdminIdentifier).Msg("seeded super admin")
		return nil
	case domain.Is(err, domain.CodeDuplicateIdentifier), domain.Is(err, domain.CodeDuplicateEmail):
		return nil
	default:
		return err
	}
}

// logMailer adapts memory.LogMailer to Mailer.
type logMailer struct{ *memory.LogMailer }

func (logMailer) Close() error { return nil }

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		NewRedis:   redis.New,
		NewMailer: func(url, exchange string) (Mailer, error) {
			return rabbitmq_pub.NewPublisher(url, exchange)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
