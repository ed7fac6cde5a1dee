package auth

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const DefaultResetPath = "/auth/new-password"

type Service struct {
	store    CredentialStore
	registry RoleRegistry
	signer   TokenSigner
	mailer   PasswordResetMailer

	refreshTTL     time.Duration
	resetPath      string
	strictRotation bool

	now   func() time.Time
	audit func(action string, fields map[string]string)
	log   zerolog.Logger
}

type Config struct {
	RefreshTTL time.Duration
	// ResetPath is appended to the caller's origin to build reset links.
	ResetPath string
	// StrictRotation makes refresh a compare-and-swap on the stored token
	// when the store supports it.
	StrictRotation bool
}

func NewService(
	store CredentialStore,
	registry RoleRegistry,
	signer TokenSigner,
	mailer PasswordResetMailer,
	cfg Config,
) *Service {
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	resetPath := strings.TrimSpace(cfg.ResetPath)
	if resetPath == "" {
		resetPath = DefaultResetPath
	}
	return &Service{
		store:    store,
		registry: registry,
		signer:   signer,
		mailer:   mailer,

		refreshTTL:     refreshTTL,
		resetPath:      resetPath,
		strictRotation: cfg.StrictRotation,

		now:   time.Now,
		audit: func(string, map[string]string) {},
		log:   zerolog.Nop(),
	}
}

// AuthResult is what a successful login hands back to the boundary.
type AuthResult struct {
	UserID       int64
	Email        string
	Roles        []string
	IsActive     bool
	IsFirstLogin bool
	Tokens       domain.TokenPair
}

// AccountView is a user without credential material.
type AccountView struct {
	ID                int64
	Identifier        string
	FullName          string
	Email             string
	PhoneNumber       string
	IsActive          bool
	IsDefaultPassword bool
	LastLogin         *time.Time
	Roles             []string
}

func newAccountView(u domain.User, roles []string) AccountView {
	return AccountView{
		ID:                u.ID,
		Identifier:        u.Identifier,
		FullName:          u.FullName,
		Email:             u.Email,
		PhoneNumber:       u.PhoneNumber,
		IsActive:          u.IsActive,
		IsDefaultPassword: u.IsDefaultPassword,
		LastLogin:         u.LastLogin,
		Roles:             roles,
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) WithLogger(l zerolog.Logger) *Service {
	s.log = l
	return s
}

// WithClock replaces the time source used for expiry and last-login stamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}
