package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type fakeHasher struct{}

func (fakeHasher) Hash(pw string) (string, error) { return "H(" + pw + ")", nil }
func (fakeHasher) Matches(hash, pw string) (bool, error) {
	return hash != "" && hash == "H("+pw+")", nil
}

type fakeResets struct {
	saved map[string]int64
}

func (f *fakeResets) Save(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	f.saved[token] = userID
	return nil
}

func (f *fakeResets) Consume(ctx context.Context, token string) (int64, error) {
	id, ok := f.saved[token]
	if !ok {
		return 0, domain.ErrResetTokenNotFound()
	}
	delete(f.saved, token)
	return id, nil
}

func newMockStore(t *testing.T) (*CredentialStore, sqlmock.Sqlmock, *fakeResets) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	resets := &fakeResets{saved: map[string]int64{}}
	return NewCredentialStore(db, fakeHasher{}, resets, time.Minute), mock, resets
}

var userCols = []string{
	"id", "identifier", "full_name", "email", "phone_number", "password_hash",
	"is_active", "is_default_password", "last_login", "refresh_token", "refresh_token_expires_at",
}

func TestCredentialStore_FindByIdentifier(t *testing.T) {
	store, mock, _ := newMockStore(t)
	exp := time.Now().Add(time.Hour).UTC()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE identifier =").
		WithArgs("52998224725").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			int64(9), "52998224725", "Maria", "maria@example.com", "11987654321", "H(pw)",
			true, true, nil, "REFRESH", exp,
		))

	u, err := store.FindByIdentifier(context.Background(), " 52998224725 ")
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.ID)
	assert.Equal(t, "maria@example.com", u.Email)
	assert.Nil(t, u.LastLogin)
	assert.Equal(t, "REFRESH", u.RefreshToken)
	assert.True(t, u.RefreshTokenExpiresAt.Equal(exp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_FindByEmail_NotFound(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email =").
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FindByEmail(context.Background(), " Nobody@Example.com ")
	assert.True(t, domain.Is(err, domain.CodeUserNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_FindByID_DBError(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id =").
		WithArgs(int64(3)).
		WillReturnError(errors.New("conn reset"))

	_, err := store.FindByID(context.Background(), 3)
	assert.True(t, domain.Is(err, "db_unavailable"))
}

func TestCredentialStore_VerifyPassword(t *testing.T) {
	store, _, _ := newMockStore(t)
	u := domain.User{PasswordHash: "H(Secret123)"}

	ok, err := store.VerifyPassword(context.Background(), u, "Secret123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.VerifyPassword(context.Background(), u, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialStore_Create(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("52998224725", "Maria", "maria@example.com", "11987654321", "H(Secret123)", true, true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	u, err := store.Create(context.Background(), domain.User{
		Identifier:        "52998224725",
		FullName:          "Maria",
		Email:             "Maria@Example.com",
		PhoneNumber:       "11987654321",
		IsActive:          true,
		IsDefaultPassword: true,
	}, "Secret123")
	require.NoError(t, err)
	assert.Equal(t, int64(11), u.ID)
	assert.Equal(t, "maria@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_Create_UniqueViolations(t *testing.T) {
	cases := map[string]string{
		"users_identifier_key": domain.CodeDuplicateIdentifier,
		"users_email_key":      domain.CodeDuplicateEmail,
	}
	for constraint, code := range cases {
		t.Run(constraint, func(t *testing.T) {
			store, mock, _ := newMockStore(t)

			mock.ExpectQuery("INSERT INTO users").
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraint})

			_, err := store.Create(context.Background(), domain.User{Identifier: "x", Email: "y"}, "pw")
			assert.True(t, domain.Is(err, code), "got %v", err)
		})
	}
}

func TestCredentialStore_Create_EmptyPassword(t *testing.T) {
	store, _, _ := newMockStore(t)

	_, err := store.Create(context.Background(), domain.User{}, "")
	assert.True(t, domain.Is(err, "missing_field"))
}

func TestCredentialStore_Update(t *testing.T) {
	store, mock, _ := newMockStore(t)
	now := time.Now()

	mock.ExpectExec("UPDATE users SET").
		WithArgs(int64(4), "52998224725", "Maria", "maria@example.com", "119", false, false,
			sqlmock.AnyArg(), "TOK", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Update(context.Background(), domain.User{
		ID: 4, Identifier: "52998224725", FullName: "Maria", Email: "maria@example.com",
		PhoneNumber: "119", LastLogin: &now, RefreshToken: "TOK", RefreshTokenExpiresAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_Update_NoRows(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), domain.User{ID: 404})
	assert.True(t, domain.Is(err, domain.CodeUserNotFound))
}

func TestCredentialStore_SetPassword(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = $2 WHERE id = $1")).
		WithArgs(int64(4), "H(NewSecret1)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SetPassword(context.Background(), 4, "NewSecret1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_SwapRefreshToken(t *testing.T) {
	store, mock, _ := newMockStore(t)
	exp := time.Now().Add(time.Hour)

	mock.ExpectExec("UPDATE users SET refresh_token").
		WithArgs(int64(4), "OLD", "NEW", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET refresh_token").
		WithArgs(int64(4), "OLD", "NEWER", exp).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.SwapRefreshToken(context.Background(), 4, "OLD", "NEW", exp)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SwapRefreshToken(context.Background(), 4, "OLD", "NEWER", exp)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_GetRoles(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectQuery("SELECT r.name FROM user_roles").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Admin").AddRow("User"))

	roles, err := store.GetRoles(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin", "User"}, roles)
}

func TestCredentialStore_AddToRoles_Transaction(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO user_roles").WithArgs(int64(4), "Admin").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_roles").WithArgs(int64(4), "User").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("User").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	require.NoError(t, store.AddToRoles(context.Background(), 4, []string{"Admin", "User"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_AddToRoles_UnknownRoleRollsBack(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO user_roles").WithArgs(int64(4), "Pilot").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("Pilot").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := store.AddToRoles(context.Background(), 4, []string{"Pilot"})
	assert.True(t, domain.Is(err, domain.CodeInvalidRoles))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_RemoveFromRoles(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_roles").WithArgs(int64(4), "Admin").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.RemoveFromRoles(context.Background(), 4, []string{"Admin"}))
	assert.NoError(t, store.RemoveFromRoles(context.Background(), 4, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_ResetTokenFlow(t *testing.T) {
	store, mock, resets := newMockStore(t)
	u := domain.User{ID: 4}

	tok, err := store.IssueResetToken(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, int64(4), resets.saved[tok])

	// a token issued to someone else is rejected without touching the db
	other := domain.User{ID: 5}
	tok2, err := store.IssueResetToken(context.Background(), other)
	require.NoError(t, err)
	err = store.ConsumeResetToken(context.Background(), u, tok2, "NewSecret1")
	assert.True(t, domain.Is(err, "reset_token_not_found"))

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs(int64(4), "H(NewSecret1)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.ConsumeResetToken(context.Background(), u, tok, "NewSecret1"))
	err = store.ConsumeResetToken(context.Background(), u, tok, "NewSecret1")
	assert.True(t, domain.Is(err, "reset_token_not_found"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_ListAccounts(t *testing.T) {
	store, mock, _ := newMockStore(t)
	exp := time.Now().UTC()
	cols := append(append([]string(nil), userCols...), "roles")

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE EXISTS (.+) AND \(strpos\(lower\(full_name\), \$2\) > 0 OR strpos\(identifier, \$3\) > 0\)`).
		WithArgs("User", "souza", "111").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(23))
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE (.+) ORDER BY id LIMIT \$4 OFFSET \$5`).
		WithArgs("User", "souza", "111", 10, 20).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(21), "52998224725", "Ana Souza", "ana@example.com", "", "H(x)", true, false, nil, "", exp, "Admin,User").
			AddRow(int64(22), "11144477735", "Bia", "bia@example.com", "", "H(x)", true, true, nil, "", exp, ""))

	got, total, err := store.ListAccounts(context.Background(), domain.AccountFilter{
		BackOfficeOnly: true,
		Name:           " Souza ",
		Identifier:     "111",
		Limit:          10,
		Offset:         20,
	})
	require.NoError(t, err)
	assert.Equal(t, 23, total)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Admin", "User"}, got[0].Roles)
	assert.Nil(t, got[1].Roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_ListAccounts_NoFilter(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY id LIMIT \$1 OFFSET \$2`).
		WithArgs(5, 0).
		WillReturnRows(sqlmock.NewRows(append(append([]string(nil), userCols...), "roles")))

	got, total, err := store.ListAccounts(context.Background(), domain.AccountFilter{Limit: 5})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialStore_ListAccounts_DBError(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("conn reset"))

	_, _, err := store.ListAccounts(context.Background(), domain.AccountFilter{Limit: 5})
	assert.True(t, domain.Is(err, "db_unavailable"))
}
