package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type deadLetterStore struct {
	client *redis.Client
}

func newDeadLetterStore(client *redis.Client) DeadLetterStore {
	return &deadLetterStore{client: client}
}

func (s *deadLetterStore) Append(ctx context.Context, raw string) error {
	if err := s.client.LPush(ctx, DeadLetterKey, raw).Err(); err != nil {
		return fmt.Errorf("appending dead letter: %w", err)
	}
	return nil
}

func (s *deadLetterStore) List(ctx context.Context) ([]string, error) {
	items, err := s.client.LRange(ctx, DeadLetterKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}
	return items, nil
}
