package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SONIX-Kelompok-6/sonix-be/pkg/middleware"
)

const denylistPrefix = "sonix:denylist:"

// Denylist records revoked access token IDs until the tokens would have
// expired anyway.
type Denylist struct {
	client *redis.Client
}

// NewDenylist creates a Redis backed denylist.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

// Revoke denylists tokenID until expiresAt. Already expired tokens are not stored.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denylistPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis denylist token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been denylisted.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, denylistPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis check denylist: %w", err)
	}
	return n > 0, nil
}

// Validator returns the token validator used by the auth middleware. A token
// is rejected when its signature or expiry is invalid or when it has been
// revoked. If the denylist cannot be reached the token is rejected too.
func Validator(m *JWTManager, d *Denylist) middleware.TokenValidator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		claims, err := m.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		if d != nil {
			revoked, err := d.IsRevoked(ctx, claims.ID)
			if err != nil {
				return nil, err
			}
			if revoked {
				return nil, fmt.Errorf("access token has been revoked")
			}
		}

		out := &middleware.Claims{
			UserID:  claims.UserID,
			Email:   claims.Email,
			TokenID: claims.ID,
		}
		if claims.ExpiresAt != nil {
			out.ExpiresAt = claims.ExpiresAt.Time
		}
		return out, nil
	}
}
