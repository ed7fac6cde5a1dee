package auth

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Authenticate is the back-office login. Besides valid credentials the
// account must hold at least one whitelisted role.
// IMPORTANT: every failure is the same invalid_credentials error.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (AuthResult, error) {
	return s.authenticate(ctx, "auth.login", identifier, password, true, false)
}

// AuthenticateUser is the end-user login: no role whitelist, and tokens
// are marked isUserAuth=true.
func (s *Service) AuthenticateUser(ctx context.Context, identifier, password string) (AuthResult, error) {
	return s.authenticate(ctx, "auth.login_user", identifier, password, false, true)
}

func (s *Service) authenticate(
	ctx context.Context,
	action, identifier, password string,
	requireLoginRole, isUserAuth bool,
) (AuthResult, error) {
	identifier = strings.TrimSpace(identifier)

	res, err := s.login(ctx, identifier, password, requireLoginRole, isUserAuth)
	s.auditResult(action, res.UserID, err, map[string]string{"identifier": identifier})
	if err != nil {
		return AuthResult{}, err
	}
	return res, nil
}

func (s *Service) login(
	ctx context.Context,
	identifier, password string,
	requireLoginRole, isUserAuth bool,
) (AuthResult, error) {
	if identifier == "" || password == "" {
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return AuthResult{}, domain.ErrInvalidCredentials()
		}
		return AuthResult{}, err
	}

	if !u.IsActive {
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	ok, err := s.store.VerifyPassword(ctx, u, password)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	roles, err := s.store.GetRoles(ctx, u.ID)
	if err != nil {
		return AuthResult{}, err
	}
	if requireLoginRole && !domain.HasLoginRole(roles) {
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	// Must be read before the last-login stamp below.
	firstLogin := u.IsFirstLogin()

	tokens, err := s.issueTokenPair(ctx, &u, BuildClaims(u, roles, isUserAuth))
	if err != nil {
		return AuthResult{}, err
	}

	now := s.now()
	u.LastLogin = &now
	if err := s.store.Update(ctx, u); err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		UserID:       u.ID,
		Email:        u.Email,
		Roles:        roles,
		IsActive:     u.IsActive,
		IsFirstLogin: firstLogin,
		Tokens:       tokens,
	}, nil
}
