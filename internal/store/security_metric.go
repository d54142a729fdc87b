package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"caretaker.app/relay/internal/model"
)

type securityMetricStore struct {
	client *redis.Client
}

func newSecurityMetricStore(client *redis.Client) SecurityMetricStore {
	return &securityMetricStore{client: client}
}

func (s *securityMetricStore) Upsert(ctx context.Context, advisoryID string, metric model.SecurityMetric) error {
	data, err := json.Marshal(metric)
	if err != nil {
		return fmt.Errorf("marshaling security metric: %w", err)
	}
	if err := s.client.HSet(ctx, SecurityMetricsKey, advisoryID, data).Err(); err != nil {
		return fmt.Errorf("upserting security metric %s: %w", advisoryID, err)
	}
	return nil
}

func (s *securityMetricStore) List(ctx context.Context) (map[string]model.SecurityMetric, error) {
	raw, err := s.client.HGetAll(ctx, SecurityMetricsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing security metrics: %w", err)
	}

	metrics := make(map[string]model.SecurityMetric, len(raw))
	for advisoryID, value := range raw {
		var m model.SecurityMetric
		if err := json.Unmarshal([]byte(value), &m); err != nil {
			return nil, fmt.Errorf("decoding security metric %s: %w", advisoryID, err)
		}
		metrics[advisoryID] = m
	}
	return metrics, nil
}
