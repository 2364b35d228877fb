package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizhub/quiz-api/internal/application/verification"
	"github.com/quizhub/quiz-api/internal/cache"
	"github.com/quizhub/quiz-api/internal/domain"
	"github.com/quizhub/quiz-api/internal/pkg/logger"
	"github.com/quizhub/quiz-api/internal/pkg/metrics"
	"github.com/quizhub/quiz-api/internal/pkg/password"
)

const verifiedPrefix = "verified:"

var errBadCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)

type Service interface {
	SendEmailVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, req domain.VerifyEmailRequest) error
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error)
	SendPasswordResetCode(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

type codeStore interface {
	Issue(ctx context.Context, email string, ttl time.Duration) (string, error)
	Redeem(ctx context.Context, email, code string) bool
}

type markerStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type notifier interface {
	SendVerificationCode(ctx context.Context, email, code string, purpose domain.VerificationPurpose, ttl time.Duration) error
}

type tokenSigner interface {
	Sign(userID uint64, username, role string) (string, error)
}

type ServiceDeps struct {
	UserRepo             userStore
	RegistrationCodes    codeStore
	ResetCodes           codeStore
	Markers              markerStore
	Notifier             notifier
	JWTProvider          tokenSigner
	RegistrationTTL      time.Duration
	ResetTTL             time.Duration
	VerifiedEmailTTL     time.Duration
	RequireVerifiedEmail bool
}

type service struct {
	users           userStore
	registration    codeStore
	reset           codeStore
	markers         markerStore
	notifier        notifier
	jwtProvider     tokenSigner
	registrationTTL time.Duration
	resetTTL        time.Duration
	verifiedTTL     time.Duration
	requireVerified bool
	hashCost        int
	log             *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:           deps.UserRepo,
		registration:    deps.RegistrationCodes,
		reset:           deps.ResetCodes,
		markers:         deps.Markers,
		notifier:        deps.Notifier,
		jwtProvider:     deps.JWTProvider,
		registrationTTL: deps.RegistrationTTL,
		resetTTL:        deps.ResetTTL,
		verifiedTTL:     deps.VerifiedEmailTTL,
		requireVerified: deps.RequireVerifiedEmail,
		hashCost:        bcrypt.DefaultCost,
		log:             logger.WithModule("auth"),
	}
	if s.registrationTTL <= 0 {
		s.registrationTTL = domain.RegistrationCodeTTL
	}
	if s.resetTTL <= 0 {
		s.resetTTL = domain.PasswordResetCodeTTL
	}
	if s.verifiedTTL <= 0 {
		s.verifiedTTL = 30 * time.Minute
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) SendEmailVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	return s.issueAndSend(ctx, s.registration, email, domain.PurposeRegistration, s.registrationTTL)
}

func (s *service) VerifyEmail(ctx context.Context, req domain.VerifyEmailRequest) error {
	email := normalizeEmail(req.Email)
	if !s.registration.Redeem(ctx, email, req.Code) {
		return verification.ErrInvalidOrExpired
	}
	if err := s.markers.Set(ctx, verifiedPrefix+email, "1", s.verifiedTTL); err != nil {
		s.log.Warn("set verified-email marker", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("record verified email: %w", domain.ErrUnavailable)
	}
	return nil
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := normalizeEmail(req.Email)
	if req.Role != "" && req.Role != domain.RoleStudent {
		return nil, fmt.Errorf("role %q cannot be self-assigned: %w", req.Role, domain.ErrBadRequest)
	}
	if err := s.ensureAvailable(ctx, req.Username, email); err != nil {
		return nil, err
	}
	if s.requireVerified {
		if _, err := s.markers.Get(ctx, verifiedPrefix+email); err != nil {
			if errors.Is(err, cache.ErrMiss) {
				return nil, fmt.Errorf("email not verified: %w", domain.ErrForbidden)
			}
			s.log.Warn("read verified-email marker", zap.String("email", email), zap.Error(err))
			return nil, fmt.Errorf("check verified email: %w", domain.ErrUnavailable)
		}
	}

	hash, err := password.Hash([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        email,
		PasswordHash: hash,
		StudentID:    req.StudentID,
		Role:         domain.RoleStudent,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	if s.requireVerified {
		if err := s.markers.Del(ctx, verifiedPrefix+email); err != nil {
			s.log.Warn("clear verified-email marker", zap.String("email", email), zap.Error(err))
		}
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID), zap.String("email", email))
	return u, nil
}

func (s *service) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if _, err := s.users.GetByUsername(ctx, strings.TrimSpace(username)); err == nil {
		return fmt.Errorf("username already taken: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	res, err := s.login(ctx, req)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return res, nil
}

func (s *service) login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errBadCredentials
	}
	token, err := s.jwtProvider.Sign(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResult{User: u, Token: token}, nil
}

func (s *service) SendPasswordResetCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return err
	}
	return s.issueAndSend(ctx, s.reset, email, domain.PurposePasswordReset, s.resetTTL)
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	email := normalizeEmail(req.Email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return verification.ErrInvalidOrExpired
		}
		return err
	}
	// Hash before redeeming so a rejected password leaves the code usable.
	hash, err := password.Hash([]byte(req.NewPassword), s.hashCost)
	if err != nil {
		return err
	}
	if !s.reset.Redeem(ctx, email, req.Code) {
		return verification.ErrInvalidOrExpired
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.log.Info("password reset", zap.Uint64("user_id", u.ID))
	return nil
}

func (s *service) issueAndSend(ctx context.Context, store codeStore, email string, purpose domain.VerificationPurpose, ttl time.Duration) error {
	code, err := store.Issue(ctx, email, ttl)
	if err != nil {
		return err
	}
	if err := s.notifier.SendVerificationCode(ctx, email, code, purpose, ttl); err != nil {
		s.log.Error("deliver verification code", zap.String("email", email), zap.String("purpose", string(purpose)), zap.Error(err))
		return fmt.Errorf("deliver verification code: %w", domain.ErrUnavailable)
	}
	return nil
}
