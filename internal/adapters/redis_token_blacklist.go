package adapters

import (
	"context"
	"time"

	"github.com/go-redis/redis"
)

const revokedPrefix = "revoked_token:"

type RedisTokenBlacklist struct {
	client *redis.Client
}

func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	n, err := b.client.WithContext(ctx).Exists(revokedPrefix + tokenHash).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke is a no-op for tokens that are already expired.
func (b *RedisTokenBlacklist) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.client.WithContext(ctx).Set(revokedPrefix+tokenHash, time.Now().Unix(), ttl).Err()
}

func (b *RedisTokenBlacklist) Ping(ctx context.Context) error {
	return b.client.WithContext(ctx).Ping().Err()
}
