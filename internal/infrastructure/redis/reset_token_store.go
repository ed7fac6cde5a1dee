package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

var errNotConfigured = errors.New("redis reset-token store not configured")

// consumeScript is an atomic GET + DEL: a token can be redeemed once.
var consumeScript = goredis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
  return nil
end
redis.call("DEL", KEYS[1])
return v
`)

// ResetTokenStore keeps password-reset tokens as token -> user id with a TTL.
type ResetTokenStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewResetTokenStore(c *Client) *ResetTokenStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &ResetTokenStore{rdb: rdb, prefix: "pwreset:"}
}

func (s *ResetTokenStore) Save(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if userID <= 0 {
		return domain.ErrMissingField("user_id")
	}
	if ttl <= 0 {
		return domain.ErrMissingField("ttl")
	}
	if s.rdb == nil {
		return errNotConfigured
	}

	if err := s.rdb.Set(ctx, s.prefix+token, userID, ttl).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

// Consume redeems a token. Unknown, expired and already used tokens all
// return reset_token_not_found.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, domain.ErrMissingField("token")
	}
	if s.rdb == nil {
		return 0, errNotConfigured
	}

	res, err := consumeScript.Run(ctx, s.rdb, []string{s.prefix + token}).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, domain.ErrResetTokenNotFound()
	}
	if err != nil {
		return 0, domain.ErrRedisUnavailable(fmt.Errorf("reset token consume: %w", err))
	}

	raw, ok := res.(string)
	if !ok {
		return 0, domain.ErrResetTokenNotFound()
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.ErrResetTokenNotFound()
	}
	return id, nil
}
