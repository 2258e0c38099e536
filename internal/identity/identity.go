// Package identity issues and verifies one-time passcodes for account
// verification and single-use tokens for password reset. Both live in Redis
// under a TTL; only their SHA-256 digests are stored.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/SONIX-Kelompok-6/sonix-be/pkg/errors"
)

const (
	otpKeyPrefix   = "sonix:otp:"
	resetKeyPrefix = "sonix:reset:"

	fieldDigest   = "digest"
	fieldAttempts = "attempts"
)

// Config controls code length, lifetimes and the number of wrong guesses
// allowed before an OTP is burned.
type Config struct {
	OTPLength      int
	OTPTTL         time.Duration
	OTPMaxAttempts int
	ResetTokenTTL  time.Duration
}

// DefaultConfig returns a 6 digit OTP valid for 10 minutes with 5 attempts
// and a reset token valid for 30 minutes.
func DefaultConfig() Config {
	return Config{
		OTPLength:      6,
		OTPTTL:         10 * time.Minute,
		OTPMaxAttempts: 5,
		ResetTokenTTL:  30 * time.Minute,
	}
}

// Provider is the Redis backed identity provider.
type Provider struct {
	client *redis.Client
	cfg    Config
}

// NewProvider creates a Provider. Zero config fields fall back to DefaultConfig.
func NewProvider(client *redis.Client, cfg Config) *Provider {
	def := DefaultConfig()
	if cfg.OTPLength <= 0 {
		cfg.OTPLength = def.OTPLength
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = def.OTPTTL
	}
	if cfg.OTPMaxAttempts <= 0 {
		cfg.OTPMaxAttempts = def.OTPMaxAttempts
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = def.ResetTokenTTL
	}
	return &Provider{client: client, cfg: cfg}
}

// OTPTTL returns how long an issued OTP stays valid.
func (p *Provider) OTPTTL() time.Duration { return p.cfg.OTPTTL }

// ResetTokenTTL returns how long an issued reset token stays valid.
func (p *Provider) ResetTokenTTL() time.Duration { return p.cfg.ResetTokenTTL }

// IssueOTP creates a fresh code for email, replacing any earlier one, and
// returns it in clear text for delivery.
func (p *Provider) IssueOTP(ctx context.Context, email string) (string, error) {
	code, err := randomDigits(p.cfg.OTPLength)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	key := otpKey(email)
	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldDigest, digest(code), fieldAttempts, 0)
		pipe.Expire(ctx, key, p.cfg.OTPTTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("redis store otp: %w", err)
	}
	return code, nil
}

// VerifyOTP checks code against the outstanding OTP for email. A correct
// code is consumed. A wrong code counts as an attempt, and once the limit is
// reached the OTP is discarded and a new one must be requested.
func (p *Provider) VerifyOTP(ctx context.Context, email, code string) error {
	key := otpKey(email)

	vals, err := p.client.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis get otp: %w", err)
	}
	stored, ok := vals[fieldDigest]
	if !ok {
		return apperrors.InvalidInput("otp has expired or was never issued")
	}

	attempts, _ := strconv.Atoi(vals[fieldAttempts])
	if attempts >= p.cfg.OTPMaxAttempts {
		_ = p.client.Del(ctx, key).Err()
		return apperrors.TooManyRequests("too many incorrect otp attempts, request a new code")
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(digest(strings.TrimSpace(code)))) != 1 {
		n, err := p.client.HIncrBy(ctx, key, fieldAttempts, 1).Result()
		if err != nil {
			return fmt.Errorf("redis count otp attempt: %w", err)
		}
		if int(n) >= p.cfg.OTPMaxAttempts {
			_ = p.client.Del(ctx, key).Err()
			return apperrors.TooManyRequests("too many incorrect otp attempts, request a new code")
		}
		return apperrors.InvalidInput("invalid otp")
	}

	if err := p.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis consume otp: %w", err)
	}
	return nil
}

// IssueResetToken creates a single-use password reset token for userID.
func (p *Provider) IssueResetToken(ctx context.Context, userID int64) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := p.client.Set(ctx, resetKeyPrefix+digest(token), userID, p.cfg.ResetTokenTTL).Err(); err != nil {
		return "", fmt.Errorf("redis store reset token: %w", err)
	}
	return token, nil
}

// ConsumeResetToken returns the user a reset token was issued for and
// deletes it, so a token works exactly once.
func (p *Provider) ConsumeResetToken(ctx context.Context, token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, apperrors.InvalidInput("reset token is required")
	}

	userID, err := p.client.GetDel(ctx, resetKeyPrefix+digest(token)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, apperrors.InvalidInput("reset token is invalid or has expired")
		}
		return 0, fmt.Errorf("redis consume reset token: %w", err)
	}
	return userID, nil
}

func otpKey(email string) string {
	return otpKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func randomDigits(n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}
