package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/auth"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/event"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/identity"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Activate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *mockUserRepository) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	args := m.Called(ctx, ids)
	names, _ := args.Get(0).(map[int64]string)
	return names, args.Error(1)
}

// --- Mock Profile Repository ---

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) GetByUserID(ctx context.Context, userID int64) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

// --- Mock Refresh Token Repository ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) RevokeByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

// --- Recording collaborators ---

type recordingMailer struct {
	mu   sync.Mutex
	sent []event.MailRequest
	err  error
}

func (r *recordingMailer) RequestMail(_ context.Context, req event.MailRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, req)
	return nil
}

func (r *recordingMailer) last(t *testing.T) event.MailRequest {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.sent, "no mail requested")
	return r.sent[len(r.sent)-1]
}

type recordingRevoker struct {
	revoked []string
}

func (r *recordingRevoker) Revoke(_ context.Context, tokenID string, _ time.Time) error {
	r.revoked = append(r.revoked, tokenID)
	return nil
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing", 15*time.Minute, 7*24*time.Hour)
}

type userServiceFixture struct {
	svc      *UserService
	users    *mockUserRepository
	profiles *mockProfileRepository
	tokens   *mockRefreshTokenRepository
	mail     *recordingMailer
	revoker  *recordingRevoker
	redis    *miniredis.Miniredis
}

func newUserServiceFixture(t *testing.T) *userServiceFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &userServiceFixture{
		users:    new(mockUserRepository),
		profiles: new(mockProfileRepository),
		tokens:   new(mockRefreshTokenRepository),
		mail:     &recordingMailer{},
		revoker:  &recordingRevoker{},
		redis:    mr,
	}
	f.svc = NewUserService(UserServiceDeps{
		Users:         f.users,
		Profiles:      f.profiles,
		RefreshTokens: f.tokens,
		JWT:           newTestJWTManager(),
		Identity:      identity.NewProvider(client, identity.DefaultConfig()),
		Mail:          f.mail,
		Revoker:       f.revoker,
	}, newTestLogger())
	return f
}

func hashedUser(t *testing.T, id int64, email, password string, active bool) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{ID: id, Username: "budi", Email: email, PasswordHash: string(hash), IsActive: active}
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	f := newUserServiceFixture(t)
	ctx := context.Background()

	f.users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "budi@sonix.id" && u.Username == "budi" && !u.IsActive && u.PasswordHash != "secret123"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = 42
	}).Return(nil)

	user, err := f.svc.Register(ctx, RegisterInput{Username: " budi ", Email: " Budi@Sonix.ID ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))

	mail := f.mail.last(t)
	assert.Equal(t, event.EventTypeMailOTP, mail.Kind)
	assert.Equal(t, "budi@sonix.id", mail.To)
	assert.Len(t, mail.Code, 6)
	assert.Equal(t, 10, mail.ExpiresInMinutes)
	f.users.AssertExpectations(t)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newUserServiceFixture(t)
	ctx := context.Background()
	f.users.On("Create", ctx, mock.Anything).Return(apperrors.AlreadyExists("user", "email", "budi@sonix.id"))

	_, err := f.svc.Register(ctx, RegisterInput{Username: "budi", Email: "budi@sonix.id", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Empty(t, f.mail.sent)
}

func TestRegister_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing email", RegisterInput{Username: "budi", Password: "secret123"}},
		{"missing username", RegisterInput{Email: "budi@sonix.id", Password: "secret123"}},
		{"short password", RegisterInput{Username: "budi", Email: "budi@sonix.id", Password: "abc1"}},
		{"no digit", RegisterInput{Username: "budi", Email: "budi@sonix.id", Password: "onlyletters"}},
		{"no letter", RegisterInput{Username: "budi", Email: "budi@sonix.id", Password: "12345678"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserServiceFixture(t)
			_, err := f.svc.Register(context.Background(), tt.input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_MailFailureKeepsAccount(t *testing.T) {
	f := newUserServiceFixture(t)
	f.mail.err = errors.New("broker down")
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)

	user, err := f.svc.Register(context.Background(), RegisterInput{Username: "budi", Email: "budi@sonix.id", Password: "secret123"})
	require.NoError(t, err)
	assert.NotNil(t, user)
}

// --- OTP ---

func TestVerifyOTP_Success(t *testing.T) {
	f := newUserServiceFixture(t)
	ctx := context.Background()
	user := hashedUser(t, 7, "budi@sonix.id", "secret123", false)

	f.users.On("GetByEmail", ctx, "budi@sonix.id").Return(user, nil)
	f.users.On("Activate", ctx, int64(7)).Return(nil)
	f.tokens.On("Create", ctx, int64(7), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	require.NoError(t, f.svc.ResendOTP(ctx, "budi@sonix.id"))
	code := f.mail.last(t).Code

	res, err := f.svc.VerifyOTP(ctx, "BUDI@sonix.id", code)
	require.NoError(t, err)
	assert.True(t, res.User.IsActive)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.Equal(t, int64(900), res.Tokens.ExpiresIn)

	_, err = f.svc.VerifyOTP(ctx, "budi@sonix.id", code)
	assert.Error(t, err, "code is single use")
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	f := newUserServiceFixture(t)
	ctx := context.Background()
	user := hashedUser(t, 7, "budi@sonix.id", "secret123", false)
	f.users.On("GetByEmail", ctx, "budi@sonix.id").Return(user, nil)

	require.NoError(t, f.svc.ResendOTP(ctx, "budi@sonix.id"))
	code := f.mail.last(t).Code
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	_, err := f.svc.VerifyOTP(ctx, "budi@sonix.id", wrong)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.users.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything)
}

func TestVerifyOTP_AlreadyVerified(t *testing.T) {
	f := newUserServiceFixture(t)
	f.users.On("GetByEmail", mock.Anything, "budi@sonix.id").Return(hashedUser(t, 7, "budi@sonix.id", "secret123", true), nil)

	_, err := f.svc.VerifyOTP(context.Background(), "budi@sonix.id", "123456")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestVerifyOTP_UnknownEmail(t *testing.T) {
	f := newUserServiceFixture(t)
	f.users.On("GetByEmail", mock.Anything, "nobody@sonix.id").Return(nil, apperrors.NotFound("user", "nobody@sonix.id"))

	_, err := f.svc.VerifyOTP(context.Background(), "nobody@sonix.id", "123456")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestResendOTP(t *testing.T) {
	t.Run("unknown email is silent", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.users.On("GetByEmail", mock.Anything, "nobody@sonix.id").Return(nil, apperrors.NotFound("user", "nobody@sonix.id"))

		assert.NoError(t, f.svc.ResendOTP(context.Background(), "nobody@sonix.id"))
		assert.Empty(t, f.mail.sent)
	})

	t.Run("verified account conflicts", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.users.On("GetByEmail", mock.Anything, "budi@sonix.id").Return(hashedUser(t, 7, "budi@sonix.id", "secret123", true), nil)

		assert.ErrorIs(t, f.svc.ResendOTP(context.Background(), "budi@sonix.id"), apperrors.ErrConflict)
	})

	t.Run("mail failure is unavailable", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.mail.err = errors.New("broker down")
		f.users.On("GetByEmail", mock.Anything, "budi@sonix.id").Return(hashedUser(t, 7, "budi@sonix.id", "secret123", false), nil)

		assert.ErrorIs(t, f.svc.ResendOTP(context.Background(), "budi@sonix.id"), apperrors.ErrServiceUnavail)
	})
}

// --- Login / Logout / Refresh ---

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		user     *domain.User
		lookup   error
		password string
		wantErr  error
	}{
		{name: "unknown email", lookup: apperrors.NotFound("user", "x"), password: "secret123", wantErr: apperrors.ErrUnauthorized},
		{name: "wrong password", user: &domain.User{}, password: "wrong-pass1", wantErr: apperrors.ErrUnauthorized},
		{name: "not verified", user: &domain.User{}, password: "secret123", wantErr: apperrors.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserServiceFixture(t)
			if tt.user != nil {
				f.users.On("GetByEmail", mock.Anything, "budi@sonix.id").Return(hashedUser(t, 7, "budi@sonix.id", "secret123", false), nil)
			} else {
				f.users.On("GetByEmail", mock.Anything, "budi@sonix.id").Return(nil, tt.lookup)
			}

			_, err := f.svc.Login(context.Background(), LoginInput{Email: "budi@sonix.id", Password: tt.password})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	f := newUserServiceFixture(t)
	ctx := context.Background()
	f.users.On("GetByEmail", ctx, "budi@sonix.id").Return(hashedUser(t, 7, "budi@sonix.id", "secret123", true), nil)
	f.tokens.On("Create", ctx, int64(7), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	res, err := f.svc.Login(ctx, LoginInput{Email: "Budi@Sonix.id", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.User.ID)

	claims, err := newTestJWTManager().ValidateAccessToken(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "budi@sonix.id", claims.Email)
	f.tokens.AssertExpectations(t)
}

func TestLogout(t *testing.T) {
	f := newUserServiceFixture(t)
	f.tokens.On("RevokeByUserID", mock.Anything, int64(7)).Return(nil)

	require.NoError(t, f.svc.Logout(context.Background(), 7, "jti-1", time.Now().Add(time.Minute)))
	assert.Equal(t, []string{"jti-1"}, f.revoker.revoked)
	f.tokens.AssertExpectations(t)
}

func TestRefreshToken_Rotates(t *testing.T) {
	f := newUserServiceFixture(t)
	ctx := context.Background()
	jwtManager := newTestJWTManager()

	refresh, expiresAt, err := jwtManager.GenerateRefreshToken(7)
	require.NoError(t, err)
	oldHash := hashToken(refresh)

	f.tokens.On("GetByHash", ctx, oldHash).Return(&domain.RefreshToken{UserID: 7, TokenHash: oldHash, ExpiresAt: expiresAt}, nil)
	f.tokens.On("Revoke", ctx, oldHash).Return(nil)
	f.tokens.On("Create", ctx, int64(7), mock.MatchedBy(func(h string) bool { return h != oldHash }), mock.AnythingOfType("time.Time")).Return(nil)
	f.users.On("GetByID", ctx, int64(7)).Return(hashedUser(t, 7, "budi@sonix.id", "secret123", true), nil)

	pair, err := f.svc.RefreshToken(ctx, refresh)
	require.NoError(t, err)
	assert.NotEqual(t, refresh, pair.RefreshToken)
	f.tokens.AssertExpectations(t)
}

func TestRefreshToken_Rejected(t *testing.T) {
	jwtManager := newTestJWTManager()
	refresh, expiresAt, err := jwtManager.GenerateRefreshToken(7)
	require.NoError(t, err)
	revokedAt := time.Now().Add(-time.Minute)

	tests := []struct {
		name   string
		token  string
		stored *domain.RefreshToken
		err    error
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "unknown hash", token: refresh, err: apperrors.NotFound("refresh_token", "x")},
		{name: "revoked", token: refresh, stored: &domain.RefreshToken{UserID: 7, ExpiresAt: expiresAt, RevokedAt: &revokedAt}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserServiceFixture(t)
			if tt.stored != nil || tt.err != nil {
				f.tokens.On("GetByHash", mock.Anything, hashToken(tt.token)).Return(tt.stored, tt.err)
			}
			_, err := f.svc.RefreshToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
			f.tokens.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
		})
	}
}

// --- Password reset ---

func TestForgotAndResetPassword(t *testing.T) {
	f := newUserServiceFixture(t)
	ctx := context.Background()
	f.users.On("GetByEmail", ctx, "budi@sonix.id").Return(hashedUser(t, 7, "budi@sonix.id", "secret123", true), nil)

	require.NoError(t, f.svc.ForgotPassword(ctx, "budi@sonix.id"))
	mail := f.mail.last(t)
	assert.Equal(t, event.EventTypeMailPasswordReset, mail.Kind)
	assert.Equal(t, 30, mail.ExpiresInMinutes)
	require.NotEmpty(t, mail.Token)

	var newHash string
	f.users.On("UpdatePassword", ctx, int64(7), mock.AnythingOfType("string")).Run(func(args mock.Arguments) {
		newHash = args.String(2)
	}).Return(nil)
	f.tokens.On("RevokeByUserID", ctx, int64(7)).Return(nil)

	require.NoError(t, f.svc.ResetPassword(ctx, mail.Token, "newsecret9"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newHash), []byte("newsecret9")))
	f.tokens.AssertExpectations(t)

	err := f.svc.ResetPassword(ctx, mail.Token, "newsecret9")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "token is single use")
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	f := newUserServiceFixture(t)
	f.users.On("GetByEmail", mock.Anything, "nobody@sonix.id").Return(nil, apperrors.NotFound("user", "nobody@sonix.id"))

	assert.NoError(t, f.svc.ForgotPassword(context.Background(), "nobody@sonix.id"))
	assert.Empty(t, f.mail.sent)
}

func TestResetPassword_WeakPassword(t *testing.T) {
	f := newUserServiceFixture(t)
	err := f.svc.ResetPassword(context.Background(), "token", "short")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

// --- Profile ---

func TestGetProfile(t *testing.T) {
	t.Run("without profile", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.users.On("GetByID", mock.Anything, int64(7)).Return(hashedUser(t, 7, "budi@sonix.id", "secret123", true), nil)
		f.profiles.On("GetByUserID", mock.Anything, int64(7)).Return(nil, apperrors.NotFound("profile", "7"))

		detail, err := f.svc.GetProfile(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "budi@sonix.id", detail.Email)
		assert.Nil(t, detail.Profile)
	})

	t.Run("with profile", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.users.On("GetByID", mock.Anything, int64(7)).Return(hashedUser(t, 7, "budi@sonix.id", "secret123", true), nil)
		f.profiles.On("GetByUserID", mock.Anything, int64(7)).Return(&domain.Profile{UserID: 7, FootWidth: "Wide", ArchType: "Flat"}, nil)

		detail, err := f.svc.GetProfile(context.Background(), 7)
		require.NoError(t, err)
		require.NotNil(t, detail.Profile)
		assert.Equal(t, "Wide", detail.Profile.FootWidth)
	})

	t.Run("profile store failure", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.users.On("GetByID", mock.Anything, int64(7)).Return(hashedUser(t, 7, "budi@sonix.id", "secret123", true), nil)
		f.profiles.On("GetByUserID", mock.Anything, int64(7)).Return(nil, errors.New("connection reset"))

		_, err := f.svc.GetProfile(context.Background(), 7)
		assert.Error(t, err)
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Run("invalid choices", func(t *testing.T) {
		f := newUserServiceFixture(t)
		_, err := f.svc.UpdateProfile(context.Background(), 7, ProfileInput{FootWidth: "wide", ArchType: "Flat"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		_, err = f.svc.UpdateProfile(context.Background(), 7, ProfileInput{FootWidth: "Wide", ArchType: "Curved"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		f.profiles.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("saves profile", func(t *testing.T) {
		f := newUserServiceFixture(t)
		f.users.On("GetByID", mock.Anything, int64(7)).Return(hashedUser(t, 7, "budi@sonix.id", "secret123", true), nil)
		f.profiles.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.Profile) bool {
			return p.UserID == 7 && p.FootWidth == "Narrow" && p.ArchType == "High" && p.UsesOrthotics
		})).Return(nil)

		detail, err := f.svc.UpdateProfile(context.Background(), 7, ProfileInput{FootWidth: "Narrow", ArchType: "High", UsesOrthotics: true})
		require.NoError(t, err)
		require.NotNil(t, detail.Profile)
		assert.True(t, detail.Profile.UsesOrthotics)
		f.profiles.AssertExpectations(t)
	})
}
