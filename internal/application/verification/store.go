// Package verification issues one-time numeric codes bound to an email
// address and redeems them at most once.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quizhub/quiz-api/internal/cache"
	"github.com/quizhub/quiz-api/internal/domain"
	"github.com/quizhub/quiz-api/internal/pkg/logger"
	"github.com/quizhub/quiz-api/internal/pkg/metrics"
	"github.com/quizhub/quiz-api/internal/pkg/token"
)

var (
	// ErrStoreUnavailable means the cache could not be written.
	ErrStoreUnavailable = fmt.Errorf("verification store: %w", domain.ErrUnavailable)
	// ErrInvalidOrExpired means a redemption did not match a live entry.
	ErrInvalidOrExpired = fmt.Errorf("verification code: %w", domain.ErrInvalidCode)
	// ErrInvalidTTL rejects entries that would never expire.
	ErrInvalidTTL = errors.New("verification code ttl must be positive")
)

// Cache is the subset of cache.Client the store needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// compareDeleter is implemented by backends that can redeem atomically.
type compareDeleter interface {
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// Store holds no state of its own; every entry lives in the cache.
type Store struct {
	cache   Cache
	purpose domain.VerificationPurpose
	prefix  string
	newCode func() (string, error)
	log     *zap.Logger
}

func NewStore(c Cache, purpose domain.VerificationPurpose) *Store {
	return &Store{
		cache:   c,
		purpose: purpose,
		prefix:  "verify:" + string(purpose) + ":",
		newCode: token.NewVerificationCode,
		log:     logger.WithModule("verification").With(zap.String("purpose", string(purpose))),
	}
}

func (s *Store) Purpose() domain.VerificationPurpose { return s.purpose }

func (s *Store) key(email string) string {
	return s.prefix + strings.ToLower(strings.TrimSpace(email))
}

// Issue stores a fresh code for email, replacing any pending one, and
// returns it. The code is never logged.
func (s *Store) Issue(ctx context.Context, email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	code, err := s.newCode()
	if err != nil {
		metrics.CodesIssued.WithLabelValues(string(s.purpose), "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.cache.Set(ctx, s.key(email), code, ttl); err != nil {
		metrics.CodesIssued.WithLabelValues(string(s.purpose), "error").Inc()
		s.log.Warn("store verification code", zap.String("email", email), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	metrics.CodesIssued.WithLabelValues(string(s.purpose), "ok").Inc()
	s.log.Debug("verification code issued", zap.String("email", email), zap.Duration("ttl", ttl))
	return code, nil
}

// Redeem reports whether code matches the live entry for email and, if
// so, consumes it. A mismatch leaves the entry untouched. Cache errors
// are reported as invalid.
func (s *Store) Redeem(ctx context.Context, email, code string) bool {
	ok, err := s.redeem(ctx, s.key(email), code)
	if err != nil {
		s.log.Warn("redeem verification code", zap.String("email", email), zap.Error(err))
	}
	result := "invalid"
	if ok {
		result = "valid"
	}
	metrics.CodesRedeemed.WithLabelValues(string(s.purpose), result).Inc()
	return ok
}

func (s *Store) redeem(ctx context.Context, key, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	if cd, ok := s.cache.(compareDeleter); ok {
		return cd.CompareAndDelete(ctx, key, code)
	}

	stored, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != code {
		return false, nil
	}
	if err := s.cache.Del(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}
