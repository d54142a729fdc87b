package service

import (
	"caretaker.app/relay/internal/metrics"
	"caretaker.app/relay/internal/queue"
	"caretaker.app/relay/internal/security"
	"caretaker.app/relay/internal/service/issue_tracker"
	"caretaker.app/relay/internal/store"
)

type Services struct {
	stores   *store.Stores
	producer queue.Producer
	depth    LaneDepth
	ring     security.SecretRing
	issues   issue_tracker.IssueCreator
	metrics  *metrics.Metrics
}

func NewServices(
	stores *store.Stores,
	producer queue.Producer,
	depth LaneDepth,
	ring security.SecretRing,
	issues issue_tracker.IssueCreator,
	m *metrics.Metrics,
) *Services {
	return &Services{
		stores:   stores,
		producer: producer,
		depth:    depth,
		ring:     ring,
		issues:   issues,
		metrics:  m,
	}
}

func (s *Services) Agents() AgentService {
	return NewAgentService(
		s.stores.Agents(),
		s.stores.Reviews(),
		s.stores.DeadLetters(),
		s.producer,
		s.depth,
		s.metrics,
	)
}

func (s *Services) Security() SecurityService {
	return NewSecurityService(s.stores.SecurityMetrics(), s.ring, s.issues, s.metrics)
}
