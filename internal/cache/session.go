package cache

import (
	"context"
	"fmt"
	"time"
)

func (c *Cache) revokedSessionKey(tokenID string) string {
	return c.key("session", "revoked", tokenID)
}

// RevokeToken denylists a session token id for ttl, normally the remaining
// lifetime of the token. A non-positive ttl is a no-op: the token is already
// expired and the codec rejects it on its own.
func (c *Cache) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, c.revokedSessionKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the session token id is on the denylist.
func (c *Cache) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	n, err := c.client.Exists(ctx, c.revokedSessionKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
