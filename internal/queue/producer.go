package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"caretaker.app/relay/internal/model"
)

type Producer interface {
	// Enqueue appends payload to the tail of the lane for priority.
	Enqueue(ctx context.Context, priority model.Priority, payload []byte) error
}

type redisProducer struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		logger: logger,
	}
}

// Enqueue pushes to the head of the list; consumers pop from the other end, so
// each lane is FIFO.
func (p *redisProducer) Enqueue(ctx context.Context, priority model.Priority, payload []byte) error {
	lane := LaneKey(priority)
	if err := p.client.LPush(ctx, lane, payload).Err(); err != nil {
		return fmt.Errorf("enqueue to %s: %w", lane, err)
	}

	p.logger.DebugContext(ctx, "enqueued agent event", "lane", lane, "bytes", len(payload))
	return nil
}
