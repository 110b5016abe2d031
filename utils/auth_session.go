// File: utils/auth_session.go
package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// AuthTokenPrefix is the prefix used for Redis session-token cache keys.
const AuthTokenPrefix = "authToken:"

// AuthTokenTTL is the time-to-live for cached session tokens. Tokens not
// seen in Redis are treated as revoked even when their signature is valid.
const AuthTokenTTL = 12 * time.Hour

// RegisterAuthToken records a freshly issued token hash so the auth
// middleware can distinguish live tokens from revoked ones.
func RegisterAuthToken(client *redis.Client, subject, tokenHash string) error {
	ctx := context.Background()
	key := AuthTokenPrefix + tokenHash
	if err := client.Set(ctx, key, subject, AuthTokenTTL).Err(); err != nil {
		return fmt.Errorf("failed to register auth token: %w", err)
	}
	return nil
}

// IsAuthTokenLive reports whether the token hash is still registered.
func IsAuthTokenLive(client *redis.Client, tokenHash string) (bool, error) {
	ctx := context.Background()
	n, err := client.Exists(ctx, AuthTokenPrefix+tokenHash).Result()
	if err != nil {
		return false, fmt.Errorf("failed to look up auth token: %w", err)
	}
	return n > 0, nil
}

// RevokeAuthToken drops a token hash from the live set.
func RevokeAuthToken(client *redis.Client, tokenHash string) error {
	ctx := context.Background()
	if err := client.Del(ctx, AuthTokenPrefix+tokenHash).Err(); err != nil {
		return fmt.Errorf("failed to revoke auth token: %w", err)
	}
	return nil
}
