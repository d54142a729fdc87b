package store

import "github.com/redis/go-redis/v9"

// Redis keys owned by the stores.
const (
	ReviewsKey         = "agent:reviews"
	DeadLetterKey      = "agent:deadletter"
	SecurityMetricsKey = "security:metrics"
	agentKeyPrefix     = "agent:registration:"
)

type Stores struct {
	client *redis.Client
}

func NewStores(client *redis.Client) *Stores {
	return &Stores{client: client}
}

func (s *Stores) Reviews() ReviewStore {
	return newReviewStore(s.client)
}

func (s *Stores) DeadLetters() DeadLetterStore {
	return newDeadLetterStore(s.client)
}

func (s *Stores) SecurityMetrics() SecurityMetricStore {
	return newSecurityMetricStore(s.client)
}

func (s *Stores) Agents() AgentStore {
	return newAgentStore(s.client)
}
