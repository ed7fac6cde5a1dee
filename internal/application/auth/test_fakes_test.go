package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeStore struct {
	mu sync.Mutex

	nextID    int64
	users     map[int64]domain.User
	passwords map[int64]string
	roles     map[int64][]string
	resets    map[int64]string

	// injected errors (if set, method returns error)
	findErr      error
	verifyErr    error
	createErr    error
	updateErr    error
	setPwdErr    error
	getRolesErr  error
	addRolesErr  error
	removeErr    error
	issueErr     error
	consumeErr   error
	listErr      error
	swapNotMatch bool

	// record calls
	updates    []domain.User
	added      [][]string
	removed    [][]string
	setPwdIDs  []int64
	swapCalled int
	listed     []domain.AccountFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[int64]domain.User{},
		passwords: map[int64]string{},
		roles:     map[int64][]string{},
		resets:    map[int64]string{},
	}
}

// seed stores a user with a plaintext password and role set.
func (f *fakeStore) seed(u domain.User, password string, roles ...string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	f.passwords[u.ID] = password
	f.roles[u.ID] = append([]string(nil), roles...)
	return u
}

func (f *fakeStore) user(id int64) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeStore) find(match func(domain.User) bool) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return domain.User{}, f.findErr
	}
	for _, u := range f.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeStore) FindByIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.Identifier == identifier })
}

func (f *fakeStore) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.Email == email })
}

func (f *fakeStore) FindByID(ctx context.Context, id int64) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.ID == id })
}

func (f *fakeStore) VerifyPassword(ctx context.Context, u domain.User, password string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.verifyErr != nil {
		return false, f.verifyErr
	}
	return f.passwords[u.ID] == password, nil
}

func (f *fakeStore) Create(ctx context.Context, u domain.User, password string) (domain.User, error) {
	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	return f.seed(u, password), nil
}

func (f *fakeStore) Update(ctx context.Context, u domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[u.ID]; !ok {
		return domain.ErrUserNotFound()
	}
	f.users[u.ID] = u
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeStore) SetPassword(ctx context.Context, userID int64, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setPwdErr != nil {
		return f.setPwdErr
	}
	f.passwords[userID] = newPassword
	f.setPwdIDs = append(f.setPwdIDs, userID)
	return nil
}

func (f *fakeStore) GetRoles(ctx context.Context, userID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getRolesErr != nil {
		return nil, f.getRolesErr
	}
	return append([]string(nil), f.roles[userID]...), nil
}

func (f *fakeStore) AddToRoles(ctx context.Context, userID int64, roles []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.addRolesErr != nil {
		return f.addRolesErr
	}
	if _, ok := f.users[userID]; !ok {
		return errors.New("no such user")
	}
	f.roles[userID] = append(f.roles[userID], roles...)
	f.added = append(f.added, roles)
	return nil
}

func (f *fakeStore) RemoveFromRoles(ctx context.Context, userID int64, roles []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.removeErr != nil {
		return f.removeErr
	}
	drop := map[string]bool{}
	for _, r := range roles {
		drop[r] = true
	}
	var kept []string
	for _, r := range f.roles[userID] {
		if !drop[r] {
			kept = append(kept, r)
		}
	}
	f.roles[userID] = kept
	f.removed = append(f.removed, roles)
	return nil
}

// ListAccounts honours BackOfficeOnly and paging; search text is only
// recorded.
func (f *fakeStore) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listed = append(f.listed, filter)
	if f.listErr != nil {
		return nil, 0, f.listErr
	}

	var out []domain.User
	for id := int64(1); id <= f.nextID; id++ {
		u, ok := f.users[id]
		if !ok {
			continue
		}
		u.Roles = append([]string(nil), f.roles[id]...)
		if filter.BackOfficeOnly && !domain.IsBackOffice(u.Roles) {
			continue
		}
		out = append(out, u)
	}

	total := len(out)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return out[start:end], total, nil
}

func (f *fakeStore) IssueResetToken(ctx context.Context, u domain.User) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.issueErr != nil {
		return "", f.issueErr
	}
	tok := "reset+token/for=" + u.Email
	f.resets[u.ID] = tok
	return tok, nil
}

func (f *fakeStore) ConsumeResetToken(ctx context.Context, u domain.User, token, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.consumeErr != nil {
		return f.consumeErr
	}
	if f.resets[u.ID] == "" || f.resets[u.ID] != token {
		return errors.New("invalid token")
	}
	delete(f.resets, u.ID)
	f.passwords[u.ID] = newPassword
	return nil
}

// swappingStore adds compare-and-swap on the refresh token.
type swappingStore struct {
	*fakeStore
}

func (s swappingStore) SwapRefreshToken(ctx context.Context, userID int64, expected, next string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.swapCalled++
	u, ok := s.users[userID]
	if !ok || s.swapNotMatch || u.RefreshToken != expected {
		return false, nil
	}
	u.RefreshToken = next
	u.RefreshTokenExpiresAt = expiresAt
	s.users[userID] = u
	return true, nil
}

type fakeRegistry struct {
	names []string
	err   error
}

func (f *fakeRegistry) ListRoles(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.names...), nil
}

// fakeSigner produces readable, unsigned tokens: "fake." + base64(json).
type fakeSigner struct {
	signErr error
}

type fakeToken struct {
	Alg    string         `json:"alg"`
	Claims []domain.Claim `json:"claims"`
}

func (f *fakeSigner) SignAccessToken(claims []domain.Claim) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return encodeFakeToken("HS256", claims), nil
}

func (f *fakeSigner) ParseExpired(token string) ([]domain.Claim, error) {
	raw, ok := strings.CutPrefix(token, "fake.")
	if !ok {
		return nil, errors.New("malformed")
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	var ft fakeToken
	if err := json.Unmarshal(b, &ft); err != nil {
		return nil, err
	}
	if ft.Alg != "HS256" {
		return nil, errors.New("algorithm mismatch")
	}
	return ft.Claims, nil
}

func encodeFakeToken(alg string, claims []domain.Claim) string {
	b, _ := json.Marshal(fakeToken{Alg: alg, Claims: claims})
	return "fake." + base64.RawURLEncoding.EncodeToString(b)
}

type fakeMailer struct {
	mu     sync.Mutex
	events []PasswordResetEvent
	err    error
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, evt PasswordResetEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

/*
Fixtures
*/

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSvcForTest(t *testing.T) (*Service, *fakeStore, *fakeMailer) {
	t.Helper()

	store := newFakeStore()
	mailer := &fakeMailer{}
	svc := NewService(
		store,
		&fakeRegistry{names: []string{"SuperAdmin", "Admin", "User", "ReadOnly", "Passenger", "A", "B", "C"}},
		&fakeSigner{},
		mailer,
		Config{RefreshTTL: 7 * 24 * time.Hour},
	).WithClock(func() time.Time { return testNow })
	return svc, store, mailer
}

func activeUser(identifier, email string) domain.User {
	return domain.User{
		Identifier:        identifier,
		Email:             email,
		FullName:          "Test User",
		IsActive:          true,
		IsDefaultPassword: true,
	}
}

func sorted(v []string) []string {
	out := append([]string(nil), v...)
	sort.Strings(out)
	return out
}
