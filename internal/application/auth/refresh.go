package auth

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Refresh exchanges an (access, refresh) pair for a new pair. The access
// token may be expired but must carry a valid signature. The stored refresh
// token is overwritten, so a pair can be used once.
// IMPORTANT: every token failure is the same token_invalid error.
func (s *Service) Refresh(ctx context.Context, accessToken, refreshToken string) (domain.TokenPair, error) {
	const action = "auth.refresh"

	userID, pair, err := s.refresh(ctx, accessToken, refreshToken)
	s.auditResult(action, userID, err, nil)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return pair, nil
}

func (s *Service) refresh(ctx context.Context, accessToken, refreshToken string) (int64, domain.TokenPair, error) {
	if accessToken == "" || refreshToken == "" {
		return 0, domain.TokenPair{}, domain.ErrTokenInvalid()
	}

	claims, err := s.signer.ParseExpired(accessToken)
	if err != nil {
		s.log.Debug().Err(err).Msg("refresh: access token rejected")
		return 0, domain.TokenPair{}, domain.ErrTokenInvalid()
	}

	userID, ok := SubjectID(claims)
	if !ok {
		return 0, domain.TokenPair{}, domain.ErrTokenInvalid()
	}

	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return userID, domain.TokenPair{}, domain.ErrTokenInvalid()
		}
		return userID, domain.TokenPair{}, err
	}

	// An empty stored token means revoked; it never matches.
	if u.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(u.RefreshToken), []byte(refreshToken)) != 1 ||
		!s.now().Before(u.RefreshTokenExpiresAt) {
		return userID, domain.TokenPair{}, domain.ErrTokenInvalid()
	}

	// Claims come from the presented token, not from the current store state.
	var pair domain.TokenPair
	if swapper, ok := s.store.(RefreshTokenSwapper); ok && s.strictRotation {
		pair, err = s.swapTokenPair(ctx, swapper, &u, refreshToken, claims)
	} else {
		pair, err = s.issueTokenPair(ctx, &u, claims)
	}
	if err != nil {
		return userID, domain.TokenPair{}, err
	}

	now := s.now()
	u.LastLogin = &now
	if err := s.store.Update(ctx, u); err != nil {
		return userID, domain.TokenPair{}, err
	}

	return userID, pair, nil
}

// swapTokenPair replaces the stored refresh token only if it still equals
// presented. Losing the race reads as an invalid token.
func (s *Service) swapTokenPair(
	ctx context.Context,
	swapper RefreshTokenSwapper,
	u *domain.User,
	presented string,
	claims []domain.Claim,
) (domain.TokenPair, error) {
	access, refresh, err := s.mintPair(claims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	expiresAt := s.now().Add(s.refreshTTL)
	swapped, err := swapper.SwapRefreshToken(ctx, u.ID, presented, refresh, expiresAt)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !swapped {
		return domain.TokenPair{}, domain.ErrTokenInvalid()
	}

	u.RefreshToken = refresh
	u.RefreshTokenExpiresAt = expiresAt
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RevokeRefreshToken clears the stored refresh token so no pair for this
// user can be refreshed until the next login.
func (s *Service) RevokeRefreshToken(ctx context.Context, userID int64) error {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		s.auditResult("auth.revoke", userID, err, nil)
		return err
	}

	u.RefreshToken = ""
	u.RefreshTokenExpiresAt = time.Time{}
	err = s.store.Update(ctx, u)
	s.auditResult("auth.revoke", userID, err, nil)
	return err
}

// SignOut revokes the refresh token of whoever the access token names.
// Unreadable tokens are ignored; signing out is always allowed.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	claims, err := s.signer.ParseExpired(accessToken)
	if err != nil {
		return nil
	}
	userID, ok := SubjectID(claims)
	if !ok {
		return nil
	}
	err = s.RevokeRefreshToken(ctx, userID)
	if domain.Is(err, domain.CodeUserNotFound) {
		return nil
	}
	return err
}
