// Package cache defines the key-value contract shared by the Redis and
// in-memory backends.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Get when the key is absent or expired.
	ErrMiss = errors.New("cache miss")
	// ErrNotConnected is returned when an operation runs before Connect
	// or after Close.
	ErrNotConnected = errors.New("cache not connected")
)

// Client is a string key-value store with per-key expiry.
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// CompareAndDelete removes key only if it currently holds expected.
	// It reports whether the key was removed.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}
