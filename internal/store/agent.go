package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"caretaker.app/relay/internal/model"
)

type agentStore struct {
	client *redis.Client
}

func newAgentStore(client *redis.Client) AgentStore {
	return &agentStore{client: client}
}

func (s *agentStore) Register(ctx context.Context, agent model.AgentRegistration) error {
	err := s.client.HSet(ctx, agentKeyPrefix+agent.Name,
		"callback_url", agent.CallbackURL,
		"token_stored", strconv.FormatBool(agent.TokenStored),
	).Err()
	if err != nil {
		return fmt.Errorf("registering agent %s: %w", agent.Name, err)
	}
	return nil
}

func (s *agentStore) GetByName(ctx context.Context, name string) (*model.AgentRegistration, error) {
	fields, err := s.client.HGetAll(ctx, agentKeyPrefix+name).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching agent %s: %w", name, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	tokenStored, _ := strconv.ParseBool(fields["token_stored"])
	return &model.AgentRegistration{
		Name:        name,
		CallbackURL: fields["callback_url"],
		TokenStored: tokenStored,
	}, nil
}
