package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"caretaker.app/relay/common/id"
	"caretaker.app/relay/common/logger"
	"caretaker.app/relay/internal/metrics"
	"caretaker.app/relay/internal/model"
	"caretaker.app/relay/internal/queue"
	"caretaker.app/relay/internal/store"
)

var (
	ErrInvalidAgentEvent  = errors.New("agent event must be a JSON object")
	ErrMissingAgentFields = errors.New("name and callbackUrl are required")
)

type RegisterAgentParams struct {
	Name        string `json:"name"`
	CallbackURL string `json:"callbackUrl"`
	Token       string `json:"token,omitempty"`
}

type EnqueueResult struct {
	DeliveryID int64
	Priority   model.Priority
}

// LaneDepth reports how many items wait in each queue lane.
type LaneDepth interface {
	Depth(ctx context.Context) (map[model.Priority]int64, error)
}

type AgentService interface {
	Register(ctx context.Context, params RegisterAgentParams) (*model.AgentRegistration, error)
	Enqueue(ctx context.Context, payload []byte) (*EnqueueResult, error)
	ListReviews(ctx context.Context) ([]model.ValidatedReview, error)
	ListDeadLetters(ctx context.Context) ([]string, error)
	QueueDepth(ctx context.Context) (map[model.Priority]int64, error)
}

type agentService struct {
	agents      store.AgentStore
	reviews     store.ReviewStore
	deadLetters store.DeadLetterStore
	producer    queue.Producer
	depth       LaneDepth
	metrics     *metrics.Metrics
}

func NewAgentService(
	agents store.AgentStore,
	reviews store.ReviewStore,
	deadLetters store.DeadLetterStore,
	producer queue.Producer,
	depth LaneDepth,
	m *metrics.Metrics,
) AgentService {
	return &agentService{
		agents:      agents,
		reviews:     reviews,
		deadLetters: deadLetters,
		producer:    producer,
		depth:       depth,
		metrics:     m,
	}
}

// Register stores where an agent can be reached. The token itself is never kept.
func (s *agentService) Register(ctx context.Context, params RegisterAgentParams) (*model.AgentRegistration, error) {
	name := strings.TrimSpace(params.Name)
	callbackURL := strings.TrimSpace(params.CallbackURL)
	if name == "" || callbackURL == "" {
		return nil, ErrMissingAgentFields
	}

	agent := model.AgentRegistration{
		Name:        name,
		CallbackURL: callbackURL,
		TokenStored: params.Token != "",
	}
	if err := s.agents.Register(ctx, agent); err != nil {
		return nil, fmt.Errorf("registering agent: %w", err)
	}

	slog.InfoContext(ctx, "agent registered", "agent", name, "token_stored", agent.TokenStored)
	return &agent, nil
}

// Enqueue puts the raw event bytes on the lane named by its "priority" field.
// Missing, non-string or unknown priorities land on the normal lane.
func (s *agentService) Enqueue(ctx context.Context, payload []byte) (*EnqueueResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, ErrInvalidAgentEvent
	}

	var declared string
	if raw, ok := fields["priority"]; ok {
		_ = json.Unmarshal(raw, &declared)
	}
	priority := model.ParsePriority(declared)

	deliveryID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: &deliveryID,
		Lane:       logger.Ptr(priority.String()),
	})

	if err := s.producer.Enqueue(ctx, priority, payload); err != nil {
		return nil, fmt.Errorf("enqueueing agent event: %w", err)
	}
	s.metrics.ObserveEnqueue(priority.String())

	slog.InfoContext(ctx, "agent event queued", "declared_priority", declared)
	return &EnqueueResult{DeliveryID: deliveryID, Priority: priority}, nil
}

func (s *agentService) ListReviews(ctx context.Context) ([]model.ValidatedReview, error) {
	reviews, err := s.reviews.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return reviews, nil
}

func (s *agentService) ListDeadLetters(ctx context.Context) ([]string, error) {
	items, err := s.deadLetters.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}
	return items, nil
}

func (s *agentService) QueueDepth(ctx context.Context) (map[model.Priority]int64, error) {
	depth, err := s.depth.Depth(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading queue depth: %w", err)
	}
	return depth, nil
}
