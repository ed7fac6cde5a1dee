package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// pingTimeout bounds both the startup ping and each /readyz check.
const pingTimeout = 2 * time.Second

var errClosed = errors.New("redis client closed")

// Client owns the connection shared by the reset-token store and the rate
// limiter. Its Ping doubles as the redis readiness check.
type Client struct {
	rdb *goredis.Client

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func New(addr, password string, db int) *Client {
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  pingTimeout,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		}),
	}
}

// Ping reports whether redis answers within pingTimeout. After Close it
// fails without touching the network so readiness flips to unavailable
// during shutdown.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return errClosed
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close releases the pool once; later calls return the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.rdb.Close()
	})
	return c.closeErr
}
