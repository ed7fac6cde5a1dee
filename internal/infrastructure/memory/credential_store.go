package memory

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/base64"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type Hasher interface {
	Hash(password string) (string, error)
	Matches(hash, password string) (bool, error)
}

type ResetTokens interface {
	Save(ctx context.Context, token string, userID int64, ttl time.Duration) error
	Consume(ctx context.Context, token string) (int64, error)
}

// userRole is one row of the association arena; both sides are ids.
type userRole struct {
	userID int64
	roleID int64
}

// CredentialStore keeps accounts in process memory. Role links reference
// the registry by id so removing a role drops its links.
type CredentialStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]domain.User
	links  []userRole

	roles    *RoleRegistry
	hasher   Hasher
	resets   ResetTokens
	resetTTL time.Duration
}

func NewCredentialStore(roles *RoleRegistry, hasher Hasher, resets ResetTokens, resetTTL time.Duration) *CredentialStore {
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	s := &CredentialStore{
		users:    make(map[int64]domain.User),
		roles:    roles,
		hasher:   hasher,
		resets:   resets,
		resetTTL: resetTTL,
	}
	roles.onRemove(s.dropRole)
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *CredentialStore) find(match func(domain.User) bool) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (s *CredentialStore) FindByIdentifier(ctx context.Context, identifier string) (domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	return s.find(func(u domain.User) bool { return u.Identifier == identifier })
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	email = normalizeEmail(email)
	return s.find(func(u domain.User) bool { return u.Email == email })
}

func (s *CredentialStore) FindByID(ctx context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

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

	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = normalizeEmail(u.Email)
	if err := s.checkUniqueLocked(u); err != nil {
		return domain.User{}, err
	}

	s.nextID++
	u.ID = s.nextID
	u.PasswordHash = hash
	u.Roles = nil
	s.users[u.ID] = u
	return u, nil
}

// Update keeps the stored password hash whatever u carries.
func (s *CredentialStore) Update(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.Email = normalizeEmail(u.Email)
	if err := s.checkUniqueLocked(u); err != nil {
		return err
	}

	u.PasswordHash = cur.PasswordHash
	u.Roles = nil
	s.users[u.ID] = u
	return nil
}

func (s *CredentialStore) checkUniqueLocked(u domain.User) error {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if other.Identifier == u.Identifier {
			return domain.ErrDuplicateIdentifier()
		}
		if other.Email == u.Email {
			return domain.ErrDuplicateEmail()
		}
	}
	return nil
}

func (s *CredentialStore) SetPassword(ctx context.Context, userID int64, newPassword string) error {
	if newPassword == "" {
		return domain.ErrMissingField("password")
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = hash
	s.users[userID] = u
	return nil
}

func (s *CredentialStore) SwapRefreshToken(ctx context.Context, userID int64, expected, next string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.RefreshToken == "" || u.RefreshToken != expected {
		return false, nil
	}
	u.RefreshToken = next
	u.RefreshTokenExpiresAt = expiresAt
	s.users[userID] = u
	return true, nil
}

func (s *CredentialStore) GetRoles(ctx context.Context, userID int64) ([]string, error) {
	s.mu.RLock()
	var ids []int64
	for _, l := range s.links {
		if l.userID == userID {
			ids = append(ids, l.roleID)
		}
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	return s.roles.namesFor(ids), nil
}

// ListAccounts returns one page of accounts, ordered by id, with roles
// filled in, plus the number of accounts the filter matches overall.
func (s *CredentialStore) ListAccounts(ctx context.Context, f domain.AccountFilter) ([]domain.User, int, error) {
	s.mu.RLock()
	users := make([]domain.User, 0, len(s.users))
	roleIDs := make(map[int64][]int64, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	for _, l := range s.links {
		roleIDs[l.userID] = append(roleIDs[l.userID], l.roleID)
	}
	s.mu.RUnlock()

	slices.SortFunc(users, func(a, b domain.User) int { return cmp.Compare(a.ID, b.ID) })

	name := strings.ToLower(strings.TrimSpace(f.Name))
	identifier := strings.TrimSpace(f.Identifier)

	var matched []domain.User
	for _, u := range users {
		ids := roleIDs[u.ID]
		slices.Sort(ids)
		u.Roles = s.roles.namesFor(ids)

		if f.BackOfficeOnly && !domain.IsBackOffice(u.Roles) {
			continue
		}
		if !matchesSearch(u, name, identifier) {
			continue
		}
		matched = append(matched, u)
	}

	total := len(matched)
	start := min(max(f.Offset, 0), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return matched[start:end], total, nil
}

func matchesSearch(u domain.User, name, identifier string) bool {
	if name == "" && identifier == "" {
		return true
	}
	if name != "" && strings.Contains(strings.ToLower(u.FullName), name) {
		return true
	}
	return identifier != "" && strings.Contains(u.Identifier, identifier)
}

func (s *CredentialStore) AddToRoles(ctx context.Context, userID int64, roles []string) error {
	ids, err := s.roles.idsFor(roles)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return domain.ErrUserNotFound()
	}
	for _, roleID := range ids {
		link := userRole{userID: userID, roleID: roleID}
		if !slices.Contains(s.links, link) {
			s.links = append(s.links, link)
		}
	}
	return nil
}

func (s *CredentialStore) RemoveFromRoles(ctx context.Context, userID int64, roles []string) error {
	ids, err := s.roles.idsFor(roles)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.links = slices.DeleteFunc(s.links, func(l userRole) bool {
		return l.userID == userID && slices.Contains(ids, l.roleID)
	})
	return nil
}

// dropRole removes every link to a role; called when the registry deletes it.
func (s *CredentialStore) dropRole(roleID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links = slices.DeleteFunc(s.links, func(l userRole) bool { return l.roleID == roleID })
}

func (s *CredentialStore) IssueResetToken(ctx context.Context, u domain.User) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	token := base64.StdEncoding.EncodeToString(b)
	if err := s.resets.Save(ctx, token, u.ID, s.resetTTL); err != nil {
		return "", err
	}
	return token, nil
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
