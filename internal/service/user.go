package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/auth"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/event"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/repository"
	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
var bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// IdentityProvider issues and checks OTP codes and password reset tokens.
type IdentityProvider interface {
	IssueOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, code string) error
	IssueResetToken(ctx context.Context, userID int64) (string, error)
	ConsumeResetToken(ctx context.Context, token string) (int64, error)
	OTPTTL() time.Duration
	ResetTokenTTL() time.Duration
}

// MailRequester hands a mail off for delivery.
type MailRequester interface {
	RequestMail(ctx context.Context, req event.MailRequest) error
}

// TokenRevoker denylists an access token until it expires.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// UserEvents publishes account lifecycle events.
type UserEvents interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserVerified(ctx context.Context, user *domain.User) error
}

// UserService implements registration, verification, sessions, password
// reset and the runner profile.
type UserService struct {
	userRepo         repository.UserRepository
	profileRepo      repository.ProfileRepository
	refreshTokenRepo repository.RefreshTokenRepository
	jwtManager       *auth.JWTManager
	identity         IdentityProvider
	mail             MailRequester
	revoker          TokenRevoker
	events           UserEvents
	logger           *slog.Logger
}

// UserServiceDeps groups the collaborators of UserService. Events may be nil.
type UserServiceDeps struct {
	Users         repository.UserRepository
	Profiles      repository.ProfileRepository
	RefreshTokens repository.RefreshTokenRepository
	JWT           *auth.JWTManager
	Identity      IdentityProvider
	Mail          MailRequester
	Revoker       TokenRevoker
	Events        UserEvents
}

// NewUserService creates a new user service.
func NewUserService(deps UserServiceDeps, logger *slog.Logger) *UserService {
	return &UserService{
		userRepo:         deps.Users,
		profileRepo:      deps.Profiles,
		refreshTokenRepo: deps.RefreshTokens,
		jwtManager:       deps.JWT,
		identity:         deps.Identity,
		mail:             deps.Mail,
		revoker:          deps.Revoker,
		events:           deps.Events,
		logger:           logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// ProfileInput holds the runner profile fields.
type ProfileInput struct {
	FootWidth     string
	ArchType      string
	UsesOrthotics bool
}

// AuthResult is returned by the operations that start a session.
type AuthResult struct {
	User   *domain.User      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// --- Account verification ---

// Register creates an inactive account and mails it an OTP. The account can
// log in only after VerifyOTP succeeds.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if username == "" {
		return nil, apperrors.InvalidInput("username is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.sendOTP(ctx, user); err != nil {
		// The account exists; the runner can ask for another code.
		s.logger.ErrorContext(ctx, "failed to send registration otp",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.events != nil {
		if err := s.events.PublishUserRegistered(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish user.registered event",
				slog.Int64("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// VerifyOTP activates the account of email and starts a session.
func (s *UserService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(code) == "" {
		return nil, apperrors.InvalidInput("email and otp are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("invalid email or otp")
		}
		return nil, fmt.Errorf("get user for otp verification: %w", err)
	}
	if user.IsActive {
		return nil, apperrors.Conflict("account is already verified")
	}

	if err := s.identity.VerifyOTP(ctx, email, code); err != nil {
		return nil, err
	}
	if err := s.userRepo.Activate(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("activate user: %w", err)
	}
	user.IsActive = true

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishUserVerified(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish user.verified event",
				slog.Int64("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "user verified", slog.Int64("user_id", user.ID))
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// ResendOTP issues a new OTP for an unverified account. Unknown emails are
// accepted silently.
func (s *UserService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "otp resend requested for unknown email")
			return nil
		}
		return fmt.Errorf("get user for otp resend: %w", err)
	}
	if user.IsActive {
		return apperrors.Conflict("account is already verified")
	}

	if err := s.sendOTP(ctx, user); err != nil {
		return apperrors.ServiceUnavailable("could not send verification code", err)
	}
	return nil
}

func (s *UserService) sendOTP(ctx context.Context, user *domain.User) error {
	code, err := s.identity.IssueOTP(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}
	return s.mail.RequestMail(ctx, event.MailRequest{
		Kind:             event.EventTypeMailOTP,
		UserID:           user.ID,
		To:               user.Email,
		Username:         user.Username,
		Code:             code,
		ExpiresInMinutes: int(s.identity.OTPTTL().Minutes()),
	})
}

// --- Sessions ---

// Login authenticates a verified user with email and password.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("get user for login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account is not verified, check your email for the otp")
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", user.ID))
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Logout revokes every refresh token of the user and denylists the access
// token used for the request.
func (s *UserService) Logout(ctx context.Context, userID int64, tokenID string, expiresAt time.Time) error {
	if err := s.refreshTokenRepo.RevokeByUserID(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	if s.revoker != nil {
		if err := s.revoker.Revoke(ctx, tokenID, expiresAt); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "user logged out", slog.Int64("user_id", userID))
	return nil
}

// RefreshToken validates a refresh token and rotates it for a new pair.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	tokenHash := hashToken(refreshToken)
	stored, err := s.refreshTokenRepo.GetByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("refresh token not found")
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	if !stored.Usable(time.Now().UTC()) {
		return nil, apperrors.Unauthorized("refresh token has been revoked or has expired")
	}

	if err := s.refreshTokenRepo.Revoke(ctx, tokenHash); err != nil {
		return nil, fmt.Errorf("revoke old refresh token: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed", slog.Int64("user_id", user.ID))
	return tokens, nil
}

// --- Password reset ---

// ForgotPassword mails a reset token to the account of email. The outcome
// is the same whether or not the email is registered.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("get user for password reset: %w", err)
	}

	token, err := s.identity.IssueResetToken(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	err = s.mail.RequestMail(ctx, event.MailRequest{
		Kind:             event.EventTypeMailPasswordReset,
		UserID:           user.ID,
		To:               user.Email,
		Username:         user.Username,
		Token:            token,
		ExpiresInMinutes: int(s.identity.ResetTokenTTL().Minutes()),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to request password reset mail",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	s.logger.InfoContext(ctx, "password reset requested", slog.Int64("user_id", user.ID))
	return nil
}

// ResetPassword consumes a reset token, sets the new password and ends every
// existing session of the account.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return apperrors.InvalidInput("reset token is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	userID, err := s.identity.ConsumeResetToken(ctx, token)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hashedPassword)); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if err := s.refreshTokenRepo.RevokeByUserID(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens after password reset",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset completed", slog.Int64("user_id", userID))
	return nil
}

// --- Profile ---

// GetProfile returns the account with its runner profile, if one was saved.
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*domain.UserDetail, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("get runner profile: %w", err)
		}
		profile = nil
	}
	return user.Detail(profile), nil
}

// UpdateProfile creates or replaces the runner profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, input ProfileInput) (*domain.UserDetail, error) {
	if !domain.IsValidFootWidth(input.FootWidth) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("foot_width must be one of Narrow, Regular, Wide, got %q", input.FootWidth))
	}
	if !domain.IsValidArchType(input.ArchType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("arch_type must be one of Flat, Normal, High, got %q", input.ArchType))
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for profile update: %w", err)
	}

	profile := &domain.Profile{
		UserID:        userID,
		FootWidth:     input.FootWidth,
		ArchType:      input.ArchType,
		UsesOrthotics: input.UsesOrthotics,
	}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("save runner profile: %w", err)
	}

	s.logger.InfoContext(ctx, "runner profile updated", slog.Int64("user_id", userID))
	return user.Detail(profile), nil
}

// --- Helpers ---

// generateTokenPair creates an access/refresh token pair and stores the refresh token hash.
func (s *UserService) generateTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, expiresAt, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.refreshTokenRepo.Create(ctx, user.ID, hashToken(refreshToken), expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.AccessExpiry().Seconds()),
	}, nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasLetter, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsLetter(ch):
			hasLetter = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one letter and one digit")
	}
	return nil
}
