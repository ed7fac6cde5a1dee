package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const userColumns = `id, identifier, full_name, email, phone_number, password_hash,
is_active, is_default_password, last_login, refresh_token, refresh_token_expires_at`

type userRow struct {
	ID                    int64
	Identifier            string
	FullName              string
	Email                 string
	PhoneNumber           string
	PasswordHash          string
	IsActive              bool
	IsDefaultPassword     bool
	LastLogin             sql.NullTime
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (userRow, error) {
	var ur userRow
	err := row.Scan(ur.dest()...)
	return ur, err
}

// scanUserWithRoles reads userColumns followed by the comma-joined role names.
func scanUserWithRoles(row rowScanner) (userRow, string, error) {
	var (
		ur    userRow
		roles string
	)
	err := row.Scan(append(ur.dest(), &roles)...)
	return ur, roles, err
}

func (ur *userRow) dest() []any {
	return []any{
		&ur.ID,
		&ur.Identifier,
		&ur.FullName,
		&ur.Email,
		&ur.PhoneNumber,
		&ur.PasswordHash,
		&ur.IsActive,
		&ur.IsDefaultPassword,
		&ur.LastLogin,
		&ur.RefreshToken,
		&ur.RefreshTokenExpiresAt,
	}
}

func (ur userRow) toDomain() domain.User {
	u := domain.User{
		ID:                    ur.ID,
		Identifier:            ur.Identifier,
		FullName:              ur.FullName,
		Email:                 ur.Email,
		PhoneNumber:           ur.PhoneNumber,
		PasswordHash:          ur.PasswordHash,
		IsActive:              ur.IsActive,
		IsDefaultPassword:     ur.IsDefaultPassword,
		RefreshToken:          ur.RefreshToken,
		RefreshTokenExpiresAt: ur.RefreshTokenExpiresAt,
	}
	if ur.LastLogin.Valid {
		t := ur.LastLogin.Time
		u.LastLogin = &t
	}
	return u
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
