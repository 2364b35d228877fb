// Package memcache is an in-process cache backend built on go-cache. It
// suits single-instance deployments and local development.
package memcache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/quizhub/quiz-api/internal/cache"
)

type Client struct {
	cleanup time.Duration

	mu    sync.Mutex
	store *gocache.Cache
}

var _ cache.Client = (*Client)(nil)

// New returns a client that purges expired entries every cleanup interval.
func New(cleanup time.Duration) *Client {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Client{cleanup: cleanup}
}

func (c *Client) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = gocache.New(gocache.NoExpiration, c.cleanup)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		c.store.Flush()
		c.store = nil
	}
	return nil
}

func (c *Client) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return cache.ErrNotConnected
	}
	return nil
}

func (c *Client) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return "", cache.ErrNotConnected
	}
	v, ok := c.store.Get(key)
	if !ok {
		return "", cache.ErrMiss
	}
	return v.(string), nil
}

func (c *Client) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return cache.ErrNotConnected
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(key, value, ttl)
	return nil
}

func (c *Client) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return cache.ErrNotConnected
	}
	c.store.Delete(key)
	return nil
}

func (c *Client) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return false, cache.ErrNotConnected
	}
	v, ok := c.store.Get(key)
	if !ok || v.(string) != expected {
		return false, nil
	}
	c.store.Delete(key)
	return true, nil
}
