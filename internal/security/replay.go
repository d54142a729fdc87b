package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ReplayKeyPrefix = "replay:"
	ReplayTTL       = 300 * time.Second
)

// ReplayGuard remembers accepted signatures for ReplayTTL.
type ReplayGuard interface {
	// Record stores digest and reports whether it was absent. A false result means
	// the signature was already accepted inside the window.
	Record(ctx context.Context, digest string) (bool, error)
}

type RedisReplayGuard struct {
	client *redis.Client
}

func NewRedisReplayGuard(client *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{client: client}
}

// Record uses SET NX EX so two instances racing on the same delivery cannot both win.
func (g *RedisReplayGuard) Record(ctx context.Context, digest string) (bool, error) {
	fresh, err := g.client.SetNX(ctx, ReplayKeyPrefix+digest, "1", ReplayTTL).Result()
	if err != nil {
		return false, fmt.Errorf("recording replay key: %w", err)
	}
	return fresh, nil
}
