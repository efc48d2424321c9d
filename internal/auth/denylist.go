package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "auth:denylist:"

// TokenDenylist revokes issued tokens until their natural expiry. Backed by
// Redis so revocation survives process restarts and is shared across
// replicas.
type TokenDenylist struct {
	client *redis.Client
}

// NewTokenDenylist wraps a redis client.
func NewTokenDenylist(client *redis.Client) *TokenDenylist {
	return &TokenDenylist{client: client}
}

// Revoke marks a token id as revoked until expiresAt.
func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if d == nil || d.client == nil {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistPrefix+tokenID, "1", ttl).Err()
}

// Revoked reports whether a token id has been revoked. Redis being
// unreachable fails open: the token is still signature-checked and
// expiry-checked by the token manager.
func (d *TokenDenylist) Revoked(ctx context.Context, tokenID string) bool {
	if d == nil || d.client == nil {
		return false
	}
	n, err := d.client.Exists(ctx, denylistPrefix+tokenID).Result()
	if err != nil {
		return false
	}
	return n > 0
}
