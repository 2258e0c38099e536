// Package auth issues and validates the JWT session tokens handed out on
// login and OTP verification.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "sonix-be"

// Token uses. A token of one use is rejected where the other is expected.
const (
	useAccess  = "access"
	useRefresh = "refresh"
)

var errWrongTokenUse = errors.New("token used for the wrong purpose")

// Claims is the payload of an access token.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Use    string `json:"use"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	UserID int64  `json:"user_id"`
	Use    string `json:"use"`
	jwt.RegisteredClaims
}

// JWTManager signs HS256 session tokens.
type JWTManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowFunc       func() time.Time
}

func NewJWTManager(secret string, accessExpiry, refreshExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		nowFunc:       time.Now,
	}
}

// AccessExpiry returns the lifetime of access tokens.
func (m *JWTManager) AccessExpiry() time.Duration { return m.accessExpiry }

// registered fills the standard claims. Each token gets its own jti so it
// can be revoked on logout.
func (m *JWTManager) registered(userID int64, ttl time.Duration) jwt.RegisteredClaims {
	now := m.nowFunc().UTC()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (m *JWTManager) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// GenerateAccessToken signs an access token for the user.
func (m *JWTManager) GenerateAccessToken(userID int64, email string) (string, error) {
	token, err := m.sign(&Claims{
		UserID:           userID,
		Email:            email,
		Use:              useAccess,
		RegisteredClaims: m.registered(userID, m.accessExpiry),
	})
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

// GenerateRefreshToken signs a refresh token and returns its expiry.
func (m *JWTManager) GenerateRefreshToken(userID int64) (string, time.Time, error) {
	claims := &RefreshClaims{
		UserID:           userID,
		Use:              useRefresh,
		RegisteredClaims: m.registered(userID, m.refreshExpiry),
	}
	token, err := m.sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

func (m *JWTManager) ValidateAccessToken(token string) (*Claims, error) {
	claims := &Claims{}
	if err := m.parse(token, claims); err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	if claims.Use != useAccess {
		return nil, fmt.Errorf("access token: %w", errWrongTokenUse)
	}
	return claims, nil
}

func (m *JWTManager) ValidateRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(token, claims); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if claims.Use != useRefresh {
		return nil, fmt.Errorf("refresh token: %w", errWrongTokenUse)
	}
	return claims, nil
}

func (m *JWTManager) parse(token string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	return err
}
