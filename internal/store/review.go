package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"caretaker.app/relay/internal/model"
)

type reviewStore struct {
	client *redis.Client
}

func newReviewStore(client *redis.Client) ReviewStore {
	return &reviewStore{client: client}
}

func (s *reviewStore) Append(ctx context.Context, review model.ValidatedReview) error {
	data, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("marshaling review: %w", err)
	}
	if err := s.client.LPush(ctx, ReviewsKey, data).Err(); err != nil {
		return fmt.Errorf("appending review: %w", err)
	}
	return nil
}

// List returns every review currently held, newest first. Entries that no longer
// decode are skipped rather than failing the whole read.
func (s *reviewStore) List(ctx context.Context) ([]model.ValidatedReview, error) {
	items, err := s.client.LRange(ctx, ReviewsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}

	reviews := make([]model.ValidatedReview, 0, len(items))
	for _, item := range items {
		var r model.ValidatedReview
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			continue
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}
