package auth

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
CredentialStore
---------------
Persistence port for accounts and their role associations.
Password hashing is owned by the store; the service never sees a hash.

Lookups return domain.ErrUserNotFound() when nothing matches.
Update persists profile, activity and refresh-token fields but never the
password hash; passwords only change through Create, SetPassword and
ConsumeResetToken.
*/
type CredentialStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id int64) (domain.User, error)

	VerifyPassword(ctx context.Context, u domain.User, password string) (bool, error)
	Create(ctx context.Context, u domain.User, password string) (domain.User, error)
	Update(ctx context.Context, u domain.User) error
	SetPassword(ctx context.Context, userID int64, newPassword string) error

	GetRoles(ctx context.Context, userID int64) ([]string, error)
	AddToRoles(ctx context.Context, userID int64, roles []string) error
	RemoveFromRoles(ctx context.Context, userID int64, roles []string) error

	// ListAccounts returns the filtered page ordered by id with Roles filled,
	// and the filter's total match count.
	ListAccounts(ctx context.Context, f domain.AccountFilter) ([]domain.User, int, error)

	// Reset tokens are opaque to the service; it only transports them.
	IssueResetToken(ctx context.Context, u domain.User) (string, error)
	ConsumeResetToken(ctx context.Context, u domain.User, token, newPassword string) error
}

/*
RefreshTokenSwapper
-------------------
Optional store capability: replace the stored refresh token only if it still
equals expected. Used when strict rotation is enabled.
*/
type RefreshTokenSwapper interface {
	SwapRefreshToken(ctx context.Context, userID int64, expected, next string, expiresAt time.Time) (bool, error)
}

// RoleRegistry lists the canonical role names. Queried on every use.
type RoleRegistry interface {
	ListRoles(ctx context.Context) ([]string, error)
}

/*
TokenSigner
-----------
Signs access tokens and recovers claims from tokens whose lifetime may
already have elapsed (refresh path only).
*/
type TokenSigner interface {
	SignAccessToken(claims []domain.Claim) (string, error)
	ParseExpired(token string) ([]domain.Claim, error)
}

/*
PasswordResetMailer
-------------------
Hands the reset link off to whatever delivers email.
The service does not send mail itself.
*/
type PasswordResetMailer interface {
	SendPasswordReset(ctx context.Context, evt PasswordResetEvent) error
}

type PasswordResetEvent struct {
	UserID   int64
	Email    string
	FullName string
	URL      string
}
