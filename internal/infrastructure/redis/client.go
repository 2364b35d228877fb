package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quizhub/quiz-api/internal/cache"
)

// compareAndDelete deletes KEYS[1] only when its value equals ARGV[1].
var compareAndDelete = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Options struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// Client wraps a go-redis client with an explicit connect/close lifecycle.
type Client struct {
	opts Options

	mu  sync.RWMutex
	rdb *goredis.Client
}

var _ cache.Client = (*Client)(nil)

func New(opts Options) *Client {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &Client{opts: opts}
}

// Connect dials Redis and pings it. Calling Connect twice is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rdb != nil {
		return nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        c.opts.Addr,
		Password:    c.opts.Password,
		DB:          c.opts.DB,
		DialTimeout: c.opts.DialTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping %s: %w", c.opts.Addr, err)
	}
	c.rdb = rdb
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rdb == nil {
		return nil
	}
	err := c.rdb.Close()
	c.rdb = nil
	return err
}

func (c *Client) conn() (*goredis.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rdb == nil {
		return nil, cache.ErrNotConnected
	}
	return c.rdb, nil
}

func (c *Client) Ping(ctx context.Context) error {
	rdb, err := c.conn()
	if err != nil {
		return err
	}
	return rdb.Ping(ctx).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	rdb, err := c.conn()
	if err != nil {
		return "", err
	}
	v, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", cache.ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	rdb, err := c.conn()
	if err != nil {
		return err
	}
	if err := rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *Client) Del(ctx context.Context, key string) error {
	rdb, err := c.conn()
	if err != nil {
		return err
	}
	if err := rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	rdb, err := c.conn()
	if err != nil {
		return false, err
	}
	n, err := compareAndDelete.Run(ctx, rdb, []string{key}, expected).Int64()
	if err != nil {
		return false, fmt.Errorf("redis compare-and-delete: %w", err)
	}
	return n == 1, nil
}
