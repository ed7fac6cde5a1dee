package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr string

	// Signing
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	AccessTokenMinutes int
	RefreshTokenDays   int
	CookieDays         int
	StrictRotation     bool

	// Password reset
	PasswordResetPath     string
	PasswordResetTokenTTL time.Duration
	BcryptCost            int

	// Infrastructure; empty values fall back to in-memory adapters in dev
	DBAddr         string
	DBDebug        bool
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RabbitURL      string
	RabbitExchange string

	// Optional SuperAdmin created at startup
	SeedAdminIdentifier string
	SeedAdminEmail      string
	SeedAdminPassword   string

	// Origins trusted by the CSRF check on cookie endpoints. The first one
	// also builds reset links when a request carries no Origin header.
	AllowedOrigins []string

	// Fixed-window limits per client, 0 disables
	LoginRateLimit  int
	ForgotRateLimit int
	RateLimitWindow time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenDays) * 24 * time.Hour
}

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTIssuer:      os.Getenv("JWT_ISSUER"),
		JWTAudience:    os.Getenv("JWT_AUDIENCE"),
		DBAddr:         os.Getenv("DB_ADDR"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "accounts.events"),

		PasswordResetPath: getEnv("PASSWORD_RESET_PATH", "/auth/new-password"),

		SeedAdminIdentifier: os.Getenv("SEED_ADMIN_IDENTIFIER"),
		SeedAdminEmail:      os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:   os.Getenv("SEED_ADMIN_PASSWORD"),

		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// signing material is never defaulted
	for k, v := range map[string]string{
		"JWT_SECRET":   cfg.JWTSecret,
		"JWT_ISSUER":   cfg.JWTIssuer,
		"JWT_AUDIENCE": cfg.JWTAudience,
	} {
		if v == "" {
			return nil, fmt.Errorf("missing required env var: %s", k)
		}
	}

	var err error
	ints := []struct {
		key string
		def int
		dst *int
		min int
	}{
		{"ACCESS_TOKEN_MINUTES", 15, &cfg.AccessTokenMinutes, 1},
		{"REFRESH_TOKEN_DAYS", 7, &cfg.RefreshTokenDays, 1},
		{"COOKIE_DAYS", 7, &cfg.CookieDays, 1},
		{"BCRYPT_COST", 12, &cfg.BcryptCost, 4},
		{"REDIS_DB", 0, &cfg.RedisDB, 0},
		{"RATE_LIMIT_LOGIN", 10, &cfg.LoginRateLimit, 0},
		{"RATE_LIMIT_FORGOT_PASSWORD", 5, &cfg.ForgotRateLimit, 0},
	}
	for _, it := range ints {
		if *it.dst, err = getInt(it.key, it.def, it.min); err != nil {
			return nil, err
		}
	}

	if cfg.StrictRotation, err = getBool("STRICT_REFRESH_ROTATION", false); err != nil {
		return nil, err
	}
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"PASSWORD_RESET_TOKEN_TTL", 30 * time.Minute, &cfg.PasswordResetTokenTTL},
		{"RATE_LIMIT_WINDOW", time.Minute, &cfg.RateLimitWindow},
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.HTTPWriteTimeout},
		{"HTTP_IDLE_TIMEOUT", time.Minute, &cfg.HTTPIdleTimeout},
	}
	for _, it := range durations {
		if *it.dst, err = getDuration(it.key, it.def); err != nil {
			return nil, err
		}
	}

	if !strings.HasPrefix(cfg.PasswordResetPath, "/") {
		return nil, fmt.Errorf("PASSWORD_RESET_PATH must start with '/': %q", cfg.PasswordResetPath)
	}

	// Outside dev the service cannot run on in-memory fallbacks.
	if !cfg.IsDev() {
		for k, v := range map[string]string{
			"DB_ADDR":    cfg.DBAddr,
			"REDIS_ADDR": cfg.RedisAddr,
			"RABBIT_URL": cfg.RabbitURL,
		} {
			if v == "" {
				return nil, fmt.Errorf("missing required env var: %s (ENV=%s)", k, cfg.Env)
			}
		}
	}
	if cfg.DBAddr != "" && !strings.HasPrefix(cfg.DBAddr, "postgres://") && !strings.HasPrefix(cfg.DBAddr, "postgresql://") {
		return nil, fmt.Errorf("DB_ADDR must be a postgres URL")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getList splits a comma separated value, dropping blanks.
func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.TrimRight(p, "/"))
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getInt(key string, def, min int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	if n < min {
		return 0, fmt.Errorf("%s must be >= %d, got %d", key, min, n)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}
