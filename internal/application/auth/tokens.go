package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const refreshTokenBytes = 40

// NewRefreshToken returns 40 random bytes as upper-case hex.
// Collisions are not checked; at this length they are not a practical concern.
func NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// IssueTokenPair signs an access token for claims, mints a fresh refresh
// token and persists it on the user before returning.
func (s *Service) IssueTokenPair(ctx context.Context, u domain.User, claims []domain.Claim) (domain.TokenPair, error) {
	return s.issueTokenPair(ctx, &u, claims)
}

// issueTokenPair mutates u so callers can keep persisting the same record.
func (s *Service) issueTokenPair(ctx context.Context, u *domain.User, claims []domain.Claim) (domain.TokenPair, error) {
	access, refresh, err := s.mintPair(claims)
	if err != nil {
		return domain.TokenPair{}, err
	}

	u.RefreshToken = refresh
	u.RefreshTokenExpiresAt = s.now().Add(s.refreshTTL)
	if err := s.store.Update(ctx, *u); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) mintPair(claims []domain.Claim) (string, string, error) {
	access, err := s.signer.SignAccessToken(claims)
	if err != nil {
		return "", "", domain.ErrTokenSignFailed(err)
	}
	refresh, err := NewRefreshToken()
	if err != nil {
		return "", "", domain.ErrRandomFailed(err)
	}
	return access, refresh, nil
}
