package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizhub/quiz-api/internal/application/verification"
	"github.com/quizhub/quiz-api/internal/cache"
	"github.com/quizhub/quiz-api/internal/domain"
	redisclient "github.com/quizhub/quiz-api/internal/infrastructure/redis"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Issue(ctx context.Context, email string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, email, ttl)
	return args.String(0), args.Error(1)
}
func (m *mockCodeStore) Redeem(ctx context.Context, email, code string) bool {
	return m.Called(ctx, email, code).Bool(0)
}

type mockMarkers struct{ mock.Mock }

func (m *mockMarkers) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
func (m *mockMarkers) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}
func (m *mockMarkers) Del(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendVerificationCode(ctx context.Context, email, code string, purpose domain.VerificationPurpose, ttl time.Duration) error {
	return m.Called(ctx, email, code, purpose, ttl).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID uint64, username, role string) (string, error) {
	args := m.Called(userID, username, role)
	return args.String(0), args.Error(1)
}

// --- helpers ---

type fixture struct {
	users    *mockUserStore
	register *mockCodeStore
	reset    *mockCodeStore
	markers  *mockMarkers
	notifier *mockNotifier
	signer   *mockSigner
	svc      *service
}

func newFixture(requireVerified bool) *fixture {
	f := &fixture{
		users:    &mockUserStore{},
		register: &mockCodeStore{},
		reset:    &mockCodeStore{},
		markers:  &mockMarkers{},
		notifier: &mockNotifier{},
		signer:   &mockSigner{},
	}
	f.svc = NewService(ServiceDeps{
		UserRepo:             f.users,
		RegistrationCodes:    f.register,
		ResetCodes:           f.reset,
		Markers:              f.markers,
		Notifier:             f.notifier,
		JWTProvider:          f.signer,
		RequireVerifiedEmail: requireVerified,
	}).(*service)
	f.svc.hashCost = bcrypt.MinCost
	return f
}

func hashOf(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

var ctx = context.Background()

// --- SendEmailVerification ---

func TestSendEmailVerification_IssuesAndMails(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "new@qq.com").Return(nil, domain.ErrNotFound)
	f.register.On("Issue", ctx, "new@qq.com", domain.RegistrationCodeTTL).Return("482913", nil)
	f.notifier.On("SendVerificationCode", ctx, "new@qq.com", "482913", domain.PurposeRegistration, domain.RegistrationCodeTTL).Return(nil)

	require.NoError(t, f.svc.SendEmailVerification(ctx, "  New@QQ.com "))
	f.register.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestSendEmailVerification_AlreadyRegistered(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "a@qq.com").Return(&domain.User{ID: 1}, nil)

	err := f.svc.SendEmailVerification(ctx, "a@qq.com")
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.register.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendEmailVerification_StoreUnavailable(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "a@qq.com").Return(nil, domain.ErrNotFound)
	f.register.On("Issue", ctx, "a@qq.com", domain.RegistrationCodeTTL).Return("", verification.ErrStoreUnavailable)

	err := f.svc.SendEmailVerification(ctx, "a@qq.com")
	assert.ErrorIs(t, err, verification.ErrStoreUnavailable)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	f.notifier.AssertNotCalled(t, "SendVerificationCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendEmailVerification_MailFailure(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "a@qq.com").Return(nil, domain.ErrNotFound)
	f.register.On("Issue", ctx, "a@qq.com", domain.RegistrationCodeTTL).Return("123456", nil)
	f.notifier.On("SendVerificationCode", ctx, "a@qq.com", "123456", domain.PurposeRegistration, domain.RegistrationCodeTTL).
		Return(errors.New("relay down"))

	err := f.svc.SendEmailVerification(ctx, "a@qq.com")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

// --- VerifyEmail ---

func TestVerifyEmail_SetsMarker(t *testing.T) {
	f := newFixture(true)
	f.register.On("Redeem", ctx, "a@qq.com", "482913").Return(true)
	f.markers.On("Set", ctx, "verified:a@qq.com", "1", 30*time.Minute).Return(nil)

	require.NoError(t, f.svc.VerifyEmail(ctx, domain.VerifyEmailRequest{Email: "A@qq.com", Code: "482913"}))
	f.markers.AssertExpectations(t)
}

func TestVerifyEmail_InvalidCode(t *testing.T) {
	f := newFixture(true)
	f.register.On("Redeem", ctx, "a@qq.com", "000000").Return(false)

	err := f.svc.VerifyEmail(ctx, domain.VerifyEmailRequest{Email: "a@qq.com", Code: "000000"})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	f.markers.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyEmail_MarkerFailure(t *testing.T) {
	f := newFixture(true)
	f.register.On("Redeem", ctx, "a@qq.com", "482913").Return(true)
	f.markers.On("Set", ctx, "verified:a@qq.com", "1", 30*time.Minute).Return(errors.New("conn refused"))

	err := f.svc.VerifyEmail(ctx, domain.VerifyEmailRequest{Email: "a@qq.com", Code: "482913"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	// The code is spent either way; the client asks for a new one.
	f.register.AssertExpectations(t)
}

// --- Register ---

func validRegister() domain.RegisterRequest {
	return domain.RegisterRequest{Username: "alice", Email: "Alice@qq.com", Password: "secret1"}
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "alice@qq.com").Return(nil, domain.ErrNotFound)
	f.users.On("GetByUsername", ctx, "alice").Return(nil, domain.ErrNotFound)
	f.markers.On("Get", ctx, "verified:alice@qq.com").Return("1", nil)
	f.users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "alice@qq.com" && u.Role == domain.RoleStudent &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) == nil
	})).Run(func(args mock.Arguments) { args.Get(1).(*domain.User).ID = 7 }).Return(nil)
	f.markers.On("Del", ctx, "verified:alice@qq.com").Return(nil)

	u, err := f.svc.Register(ctx, validRegister())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.ID)
	f.users.AssertExpectations(t)
	f.markers.AssertExpectations(t)
}

func TestRegister_EmailTaken(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "alice@qq.com").Return(&domain.User{ID: 1}, nil)

	_, err := f.svc.Register(ctx, validRegister())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegister_UsernameTaken(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "alice@qq.com").Return(nil, domain.ErrNotFound)
	f.users.On("GetByUsername", ctx, "alice").Return(&domain.User{ID: 2}, nil)

	_, err := f.svc.Register(ctx, validRegister())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegister_LookupErrorIsNotConflict(t *testing.T) {
	f := newFixture(true)
	boom := errors.New("db down")
	f.users.On("GetByEmail", ctx, "alice@qq.com").Return(nil, boom)

	_, err := f.svc.Register(ctx, validRegister())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestRegister_RejectsAdminRole(t *testing.T) {
	f := newFixture(true)
	req := validRegister()
	req.Role = domain.RoleAdmin

	_, err := f.svc.Register(ctx, req)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_EmailNotVerified(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "alice@qq.com").Return(nil, domain.ErrNotFound)
	f.users.On("GetByUsername", ctx, "alice").Return(nil, domain.ErrNotFound)
	f.markers.On("Get", ctx, "verified:alice@qq.com").Return("", cache.ErrMiss)

	_, err := f.svc.Register(ctx, validRegister())
	assert.ErrorIs(t, err, domain.ErrForbidden)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_MarkerCacheDown(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "alice@qq.com").Return(nil, domain.ErrNotFound)
	f.users.On("GetByUsername", ctx, "alice").Return(nil, domain.ErrNotFound)
	f.markers.On("Get", ctx, "verified:alice@qq.com").Return("", errors.New("conn refused"))

	_, err := f.svc.Register(ctx, validRegister())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestRegister_VerificationNotRequired(t *testing.T) {
	f := newFixture(false)
	f.users.On("GetByEmail", ctx, "alice@qq.com").Return(nil, domain.ErrNotFound)
	f.users.On("GetByUsername", ctx, "alice").Return(nil, domain.ErrNotFound)
	f.users.On("Create", ctx, mock.Anything).Return(nil)

	_, err := f.svc.Register(ctx, validRegister())
	require.NoError(t, err)
	f.markers.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	f.markers.AssertNotCalled(t, "Del", mock.Anything, mock.Anything)
}

func TestRegister_CreateConflictFromDB(t *testing.T) {
	f := newFixture(false)
	f.users.On("GetByEmail", ctx, "alice@qq.com").Return(nil, domain.ErrNotFound)
	f.users.On("GetByUsername", ctx, "alice").Return(nil, domain.ErrNotFound)
	f.users.On("Create", ctx, mock.Anything).Return(domain.ErrConflict)

	_, err := f.svc.Register(ctx, validRegister())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	f := newFixture(true)
	u := &domain.User{ID: 3, Username: "bob", Email: "bob@qq.com", Role: domain.RoleStudent, PasswordHash: hashOf(t, "pw123456")}
	f.users.On("GetByEmail", ctx, "bob@qq.com").Return(u, nil)
	f.signer.On("Sign", uint64(3), "bob", domain.RoleStudent).Return("jwt-token", nil)

	res, err := f.svc.Login(ctx, domain.LoginRequest{Email: "Bob@qq.com", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", res.Token)
	assert.Equal(t, u, res.User)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(true)
	u := &domain.User{ID: 3, PasswordHash: hashOf(t, "pw123456")}
	f.users.On("GetByEmail", ctx, "bob@qq.com").Return(u, nil)

	_, err := f.svc.Login(ctx, domain.LoginRequest{Email: "bob@qq.com", Password: "nope"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	f.signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "ghost@qq.com").Return(nil, domain.ErrNotFound)

	_, err := f.svc.Login(ctx, domain.LoginRequest{Email: "ghost@qq.com", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

// --- password reset ---

func TestSendPasswordResetCode_UnknownUser(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "ghost@qq.com").Return(nil, domain.ErrNotFound)

	err := f.svc.SendPasswordResetCode(ctx, "ghost@qq.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.reset.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendPasswordResetCode_IssuesWithResetTTL(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "a@qq.com").Return(&domain.User{ID: 1}, nil)
	f.reset.On("Issue", ctx, "a@qq.com", domain.PasswordResetCodeTTL).Return("654321", nil)
	f.notifier.On("SendVerificationCode", ctx, "a@qq.com", "654321", domain.PurposePasswordReset, domain.PasswordResetCodeTTL).Return(nil)

	require.NoError(t, f.svc.SendPasswordResetCode(ctx, "a@qq.com"))
	f.reset.AssertExpectations(t)
	f.register.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword_Success(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "a@qq.com").Return(&domain.User{ID: 9}, nil)
	f.reset.On("Redeem", ctx, "a@qq.com", "654321").Return(true)
	f.users.On("UpdatePassword", ctx, uint64(9), mock.MatchedBy(func(h string) bool {
		return bcrypt.CompareHashAndPassword([]byte(h), []byte("newpass1")) == nil
	})).Return(nil)

	err := f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{Email: "a@qq.com", Code: "654321", NewPassword: "newpass1"})
	require.NoError(t, err)
	f.users.AssertExpectations(t)
}

func TestResetPassword_InvalidCode(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "a@qq.com").Return(&domain.User{ID: 9}, nil)
	f.reset.On("Redeem", ctx, "a@qq.com", "111111").Return(false)

	err := f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{Email: "a@qq.com", Code: "111111", NewPassword: "newpass1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword_UnknownUser(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "ghost@qq.com").Return(nil, domain.ErrNotFound)

	err := f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{Email: "ghost@qq.com", Code: "111111", NewPassword: "newpass1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	f.reset.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword_PasswordTooLongKeepsCode(t *testing.T) {
	f := newFixture(true)
	f.users.On("GetByEmail", ctx, "a@qq.com").Return(&domain.User{ID: 9}, nil)

	err := f.svc.ResetPassword(ctx, domain.ResetPasswordRequest{
		Email: "a@qq.com", Code: "654321", NewPassword: strings.Repeat("密", 30),
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	f.reset.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	f := newFixture(false)
	f.users.On("GetByEmail", ctx, "alice@qq.com").Return(nil, domain.ErrNotFound)
	f.users.On("GetByUsername", ctx, "alice").Return(nil, domain.ErrNotFound)

	req := validRegister()
	req.Password = strings.Repeat("密", 30)
	_, err := f.svc.Register(ctx, req)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// A rejected new password must not burn the emailed reset code.
func TestResetPassword_WithRedisStore_RejectedPasswordKeepsCode(t *testing.T) {
	m := miniredis.RunT(t)
	c := redisclient.New(redisclient.Options{Addr: m.Addr()})
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() { _ = c.Close() })

	users := &mockUserStore{}
	users.On("GetByEmail", mock.Anything, "dave@qq.com").Return(&domain.User{ID: 4}, nil)
	users.On("UpdatePassword", mock.Anything, uint64(4), mock.Anything).Return(nil)
	notifier := &mockNotifier{}
	var mailed string
	notifier.On("SendVerificationCode", mock.Anything, "dave@qq.com", mock.Anything, domain.PurposePasswordReset, domain.PasswordResetCodeTTL).
		Run(func(args mock.Arguments) { mailed = args.String(2) }).Return(nil)

	svc := NewService(ServiceDeps{
		UserRepo:          users,
		RegistrationCodes: verification.NewStore(c, domain.PurposeRegistration),
		ResetCodes:        verification.NewStore(c, domain.PurposePasswordReset),
		Markers:           c,
		Notifier:          notifier,
		JWTProvider:       &mockSigner{},
	}).(*service)
	svc.hashCost = bcrypt.MinCost

	require.NoError(t, svc.SendPasswordResetCode(ctx, "dave@qq.com"))
	require.Len(t, mailed, 6)

	err := svc.ResetPassword(ctx, domain.ResetPasswordRequest{
		Email: "dave@qq.com", Code: mailed, NewPassword: strings.Repeat("密", 30),
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Equal(t, mailed, mustGet(t, m, "verify:reset:dave@qq.com"))

	require.NoError(t, svc.ResetPassword(ctx, domain.ResetPasswordRequest{
		Email: "dave@qq.com", Code: mailed, NewPassword: "newpass1",
	}))
	assert.False(t, m.Exists("verify:reset:dave@qq.com"))
	users.AssertCalled(t, "UpdatePassword", mock.Anything, uint64(4), mock.Anything)
}

// The registration flow end to end against real verification stores on
// miniredis: the emailed code verifies once, and registration consumes
// the verified marker.
func TestRegistrationFlow_WithRedisStores(t *testing.T) {
	m := miniredis.RunT(t)
	c := redisclient.New(redisclient.Options{Addr: m.Addr()})
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(func() { _ = c.Close() })

	users := &mockUserStore{}
	notifier := &mockNotifier{}
	var mailed string
	notifier.On("SendVerificationCode", mock.Anything, "carol@qq.com", mock.Anything, domain.PurposeRegistration, domain.RegistrationCodeTTL).
		Run(func(args mock.Arguments) { mailed = args.String(2) }).Return(nil)
	users.On("GetByEmail", mock.Anything, "carol@qq.com").Return(nil, domain.ErrNotFound)
	users.On("GetByUsername", mock.Anything, "carol").Return(nil, domain.ErrNotFound)
	users.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(ServiceDeps{
		UserRepo:             users,
		RegistrationCodes:    verification.NewStore(c, domain.PurposeRegistration),
		ResetCodes:           verification.NewStore(c, domain.PurposePasswordReset),
		Markers:              c,
		Notifier:             notifier,
		JWTProvider:          &mockSigner{},
		RequireVerifiedEmail: true,
	}).(*service)
	svc.hashCost = bcrypt.MinCost

	require.NoError(t, svc.SendEmailVerification(ctx, "carol@qq.com"))
	require.Len(t, mailed, 6)
	assert.Equal(t, mailed, mustGet(t, m, "verify:register:carol@qq.com"))

	require.NoError(t, svc.VerifyEmail(ctx, domain.VerifyEmailRequest{Email: "carol@qq.com", Code: mailed}))
	assert.ErrorIs(t, svc.VerifyEmail(ctx, domain.VerifyEmailRequest{Email: "carol@qq.com", Code: mailed}), domain.ErrInvalidCode)
	assert.True(t, m.Exists("verified:carol@qq.com"))

	_, err := svc.Register(ctx, domain.RegisterRequest{Username: "carol", Email: "carol@qq.com", Password: "secret1"})
	require.NoError(t, err)
	assert.False(t, m.Exists("verified:carol@qq.com"))
}

func mustGet(t *testing.T, m *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := m.Get(key)
	require.NoError(t, err)
	return v
}
