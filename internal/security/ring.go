package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	SecretsKey   = "webhook:secrets"
	RingCapacity = 12
	RingTTL      = 30 * 24 * time.Hour
)

// SecretRing holds the HMAC secrets accepted for inbound webhooks, newest first.
// Rotation pushes a secret to the head and keeps at most RingCapacity entries; the
// whole ring expires RingTTL after the most recent rotation.
type SecretRing interface {
	Rotate(ctx context.Context, secret string) error
	ActiveSecrets(ctx context.Context) ([]string, error)
	IsExpired(ctx context.Context) (bool, error)
}

var ErrEmptySecret = errors.New("secret must not be empty")

type RedisSecretRing struct {
	client *redis.Client
	key    string
}

func NewRedisSecretRing(client *redis.Client) *RedisSecretRing {
	return &RedisSecretRing{client: client, key: SecretsKey}
}

func (r *RedisSecretRing) Rotate(ctx context.Context, secret string) error {
	if secret == "" {
		return ErrEmptySecret
	}

	// MULTI/EXEC so a concurrent reader never sees the ring over capacity or without a TTL.
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, secret)
		pipe.LTrim(ctx, r.key, 0, RingCapacity-1)
		pipe.Expire(ctx, r.key, RingTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rotating secret ring: %w", err)
	}
	return nil
}

func (r *RedisSecretRing) ActiveSecrets(ctx context.Context) ([]string, error) {
	secrets, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading secret ring: %w", err)
	}
	return secrets, nil
}

// IsExpired reports whether the ring key is gone, either because it was never
// seeded or because its TTL ran out.
func (r *RedisSecretRing) IsExpired(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, r.key).Result()
	if err != nil {
		return false, fmt.Errorf("checking secret ring: %w", err)
	}
	return n == 0, nil
}
