package domain

import "time"

type User struct {
	ID          int64
	Identifier  string // normalized login identifier (tax id)
	FullName    string
	Email       string
	PhoneNumber string

	PasswordHash      string
	IsActive          bool
	IsDefaultPassword bool
	LastLogin         *time.Time

	// One live refresh token per user; a new one overwrites the old value.
	RefreshToken          string
	RefreshTokenExpiresAt time.Time

	// Roles is a read model filled by the credential store; the user/role
	// association table is authoritative.
	Roles []string
}

// IsFirstLogin is true while the account still uses its default password
// or has never completed a login.
func (u User) IsFirstLogin() bool {
	return u.IsDefaultPassword || u.LastLogin == nil
}

// Claim types carried by access tokens. Consumers downstream read these
// exact keys.
const (
	ClaimNameID     = "nameid"
	ClaimEmail      = "email"
	ClaimIsUserAuth = "isUserAuth"
	ClaimUserID     = "userId"
	ClaimRole       = "role"
)

// Claim is a transient identity assertion embedded in an access token.
type Claim struct {
	Type  string
	Value string
}

// TokenPair is never persisted as a whole: the access token is
// self-contained and only the refresh token's current value is stored on
// the user.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AccountFilter narrows an account listing. Name and Identifier are
// substring matches; when both are set an account matching either one is
// kept, and when both are empty every account matches.
type AccountFilter struct {
	// BackOfficeOnly keeps accounts holding a role other than User.
	BackOfficeOnly bool
	Name           string // case-insensitive
	Identifier     string

	Limit  int
	Offset int
}
