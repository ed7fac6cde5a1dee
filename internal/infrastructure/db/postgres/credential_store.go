package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

const uniqueViolation = "23505"

// Hasher is the password hashing surface the store needs.
type Hasher interface {
	Hash(password string) (string, error)
	Matches(hash, password string) (bool, error)
}

// ResetTokens keeps short-lived password reset tokens outside the database.
type ResetTokens interface {
	Save(ctx context.Context, token string, userID int64, ttl time.Duration) error
	Consume(ctx context.Context, token string) (int64, error)
}

type CredentialStore struct {
	db       *sql.DB
	hasher   Hasher
	resets   ResetTokens
	resetTTL time.Duration
}

func NewCredentialStore(db *sql.DB, hasher Hasher, resets ResetTokens, resetTTL time.Duration) *CredentialStore {
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	return &CredentialStore{db: db, hasher: hasher, resets: resets, resetTTL: resetTTL}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ---------- lookups ----------

func (s *CredentialStore) FindByIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	return s.findOne(ctx, "identifier = $1", strings.TrimSpace(identifier))
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.findOne(ctx, "email = $1", normalizeEmail(email))
}

func (s *CredentialStore) FindByID(ctx context.Context, id int64) (domain.User, error) {
	return s.findOne(ctx, "id = $1", id)
}

func (s *CredentialStore) findOne(ctx context.Context, where string, arg any) (domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`

	ur, err := scanUser(s.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return ur.toDomain(), nil
}

// ---------- credentials ----------

func (s *CredentialStore) VerifyPassword(ctx context.Context, u domain.User, password string) (bool, error) {
	return s.hasher.Matches(u.PasswordHash, password)
}

func (s *CredentialStore) Create(ctx context.Context, u domain.User, password string) (domain.User, error) {
	if password == "" {
		return domain.User{}, domain.ErrMissingField("password")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	u.Email = normalizeEmail(u.Email)
	u.PasswordHash = hash

	const q = `
INSERT INTO users (identifier, full_name, email, phone_number, password_hash, is_active, is_default_password)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

	err = s.db.QueryRowContext(ctx, q,
		u.Identifier, u.FullName, u.Email, u.PhoneNumber, u.PasswordHash, u.IsActive, u.IsDefaultPassword,
	).Scan(&u.ID)
	if err != nil {
		return domain.User{}, mapWriteErr(err)
	}
	return u, nil
}

// Update writes every mutable column except the password hash.
func (s *CredentialStore) Update(ctx context.Context, u domain.User) error {
	const q = `
UPDATE users SET
    identifier = $2,
    full_name = $3,
    email = $4,
    phone_number = $5,
    is_active = $6,
    is_default_password = $7,
    last_login = $8,
    refresh_token = $9,
    refresh_token_expires_at = $10
WHERE id = $1`

	res, err := s.db.ExecContext(ctx, q,
		u.ID, u.Identifier, u.FullName, normalizeEmail(u.Email), u.PhoneNumber,
		u.IsActive, u.IsDefaultPassword, nullTime(u.LastLogin),
		u.RefreshToken, u.RefreshTokenExpiresAt,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	return requireOneRow(res)
}

func (s *CredentialStore) SetPassword(ctx context.Context, userID int64, newPassword string) error {
	if newPassword == "" {
		return domain.ErrMissingField("password")
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, hash)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return requireOneRow(res)
}

// SwapRefreshToken replaces the refresh token only while it still equals
// expected; an empty stored token never matches.
func (s *CredentialStore) SwapRefreshToken(ctx context.Context, userID int64, expected, next string, expiresAt time.Time) (bool, error) {
	const q = `
UPDATE users SET refresh_token = $3, refresh_token_expires_at = $4
WHERE id = $1 AND refresh_token = $2 AND refresh_token <> ''`

	res, err := s.db.ExecContext(ctx, q, userID, expected, next, expiresAt)
	if err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.ErrDBUnavailable(err)
	}
	return n == 1, nil
}

// ---------- roles ----------

func (s *CredentialStore) GetRoles(ctx context.Context, userID int64) ([]string, error) {
	const q = `
SELECT r.name
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = $1
ORDER BY r.id`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return names, nil
}

// AddToRoles links every named role in one transaction. Existing links are
// kept; an unknown role name fails the whole call.
func (s *CredentialStore) AddToRoles(ctx context.Context, userID int64, roles []string) error {
	const q = `
INSERT INTO user_roles (user_id, role_id)
SELECT $1, r.id FROM roles r WHERE r.name = $2
ON CONFLICT DO NOTHING`

	return s.eachRoleInTx(ctx, userID, roles, q, func(tx *sql.Tx, name string, affected int64) error {
		if affected > 0 {
			return nil
		}
		var known bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, name).Scan(&known)
		if err != nil {
			return domain.ErrDBUnavailable(err)
		}
		if !known {
			return domain.ErrInvalidRoles([]string{name})
		}
		return nil
	})
}

func (s *CredentialStore) RemoveFromRoles(ctx context.Context, userID int64, roles []string) error {
	const q = `
DELETE FROM user_roles
WHERE user_id = $1 AND role_id = (SELECT id FROM roles WHERE name = $2)`

	return s.eachRoleInTx(ctx, userID, roles, q, nil)
}

func (s *CredentialStore) eachRoleInTx(
	ctx context.Context,
	userID int64,
	roles []string,
	q string,
	check func(tx *sql.Tx, name string, affected int64) error,
) (err error) {
	if len(roles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, name := range roles {
		res, execErr := tx.ExecContext(ctx, q, userID, name)
		if execErr != nil {
			return domain.ErrDBUnavailable(execErr)
		}
		if check != nil {
			n, _ := res.RowsAffected()
			if err := check(tx, name, n); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

// ---------- listing ----------

// rolesAgg is a per-row subquery: the user's role names in role id order.
const rolesAgg = `COALESCE((
    SELECT string_agg(r.name, ',' ORDER BY r.id)
    FROM user_roles ur JOIN roles r ON r.id = ur.role_id
    WHERE ur.user_id = users.id), '')`

// ListAccounts returns one page of accounts ordered by id, roles filled in,
// plus the number of accounts the filter matches overall.
func (s *CredentialStore) ListAccounts(ctx context.Context, f domain.AccountFilter) ([]domain.User, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(condFmt string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(condFmt, len(args)))
	}

	if f.BackOfficeOnly {
		add(`EXISTS (
    SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
    WHERE ur.user_id = users.id AND r.name <> $%d)`, domain.RoleUser)
	}

	var search []string
	if name := strings.TrimSpace(f.Name); name != "" {
		args = append(args, strings.ToLower(name))
		search = append(search, fmt.Sprintf("strpos(lower(full_name), $%d) > 0", len(args)))
	}
	if identifier := strings.TrimSpace(f.Identifier); identifier != "" {
		args = append(args, identifier)
		search = append(search, fmt.Sprintf("strpos(identifier, $%d) > 0", len(args)))
	}
	if len(search) > 0 {
		where = append(where, "("+strings.Join(search, " OR ")+")")
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = total
	}
	listSQL := `SELECT ` + userColumns + `, ` + rolesAgg + ` FROM users` + whereSQL +
		fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	rows, err := s.db.QueryContext(ctx, listSQL, append(args, limit, max(f.Offset, 0))...)
	if err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		ur, roles, err := scanUserWithRoles(rows)
		if err != nil {
			return nil, 0, domain.ErrDBUnavailable(err)
		}
		u := ur.toDomain()
		if roles != "" {
			u.Roles = strings.Split(roles, ",")
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.ErrDBUnavailable(err)
	}
	return out, total, nil
}

// ---------- password reset ----------

func (s *CredentialStore) IssueResetToken(ctx context.Context, u domain.User) (string, error) {
	return issueResetToken(ctx, s.resets, u.ID, s.resetTTL)
}

func (s *CredentialStore) ConsumeResetToken(ctx context.Context, u domain.User, token, newPassword string) error {
	userID, err := s.resets.Consume(ctx, token)
	if err != nil {
		return err
	}
	if userID != u.ID {
		return domain.ErrResetTokenNotFound()
	}
	return s.SetPassword(ctx, u.ID, newPassword)
}

func issueResetToken(ctx context.Context, resets ResetTokens, userID int64, ttl time.Duration) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	// standard alphabet on purpose: the link builder url-encodes it
	token := base64.StdEncoding.EncodeToString(b)
	if err := resets.Save(ctx, token, userID, ttl); err != nil {
		return "", err
	}
	return token, nil
}

// ---------- helpers ----------

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "users_identifier_key":
			return domain.ErrDuplicateIdentifier()
		case "users_email_key":
			return domain.ErrDuplicateEmail()
		}
		return fmt.Errorf("unique violation on %s: %w", pgErr.ConstraintName, err)
	}
	return domain.ErrDBUnavailable(err)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}
