package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"caretaker.app/relay/internal/model"
)

type Consumer interface {
	// Pop removes the oldest item of the highest-priority non-empty lane.
	// ok is false when every lane is empty.
	Pop(ctx context.Context) (item Item, ok bool, err error)
}

type RedisConsumer struct {
	client *redis.Client
}

func NewRedisConsumer(client *redis.Client) *RedisConsumer {
	return &RedisConsumer{client: client}
}

// Pop scans lanes strictly in model.Priorities order. Lower lanes are only read
// while every higher lane is empty; there is no aging. RPOP is atomic, so several
// relay instances can share the lanes without handing the same item out twice.
func (c *RedisConsumer) Pop(ctx context.Context) (Item, bool, error) {
	for _, p := range model.Priorities {
		payload, err := c.client.RPop(ctx, LaneKey(p)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Item{}, false, fmt.Errorf("rpop %s: %w", LaneKey(p), err)
		}
		return Item{Priority: p, Payload: payload}, true, nil
	}
	return Item{}, false, nil
}

// Depth returns the number of items waiting in each lane.
func (c *RedisConsumer) Depth(ctx context.Context) (map[model.Priority]int64, error) {
	pipe := c.client.Pipeline()
	cmds := make(map[model.Priority]*redis.IntCmd, len(model.Priorities))
	for _, p := range model.Priorities {
		cmds[p] = pipe.LLen(ctx, LaneKey(p))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("reading lane depth: %w", err)
	}

	depth := make(map[model.Priority]int64, len(cmds))
	for p, cmd := range cmds {
		depth[p] = cmd.Val()
	}
	return depth, nil
}
