package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type resetEntry struct {
	userID    int64
	expiresAt time.Time
}

// ResetTokenStore is the process-local stand-in for the redis store.
type ResetTokenStore struct {
	mu   sync.Mutex
	data map[string]resetEntry
	now  func() time.Time
}

func NewResetTokenStore() *ResetTokenStore {
	return &ResetTokenStore{data: make(map[string]resetEntry), now: time.Now}
}

func (s *ResetTokenStore) Save(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	if token == "" {
		return domain.ErrMissingField("token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[token] = resetEntry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *ResetTokenStore) Consume(ctx context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[token]
	if !ok {
		return 0, domain.ErrResetTokenNotFound()
	}
	delete(s.data, token)
	if !s.now().Before(e.expiresAt) {
		return 0, domain.ErrResetTokenNotFound()
	}
	return e.userID, nil
}
