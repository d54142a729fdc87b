package store

import (
	"context"
	"errors"

	"caretaker.app/relay/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ReviewStore is the append-only sink for reviews that passed validation.
type ReviewStore interface {
	Append(ctx context.Context, review model.ValidatedReview) error
	List(ctx context.Context) ([]model.ValidatedReview, error)
}

// DeadLetterStore keeps raw payloads whose review failed validation, verbatim,
// for manual inspection.
type DeadLetterStore interface {
	Append(ctx context.Context, raw string) error
	List(ctx context.Context) ([]string, error)
}

// SecurityMetricStore holds one record per advisory id; writes replace.
type SecurityMetricStore interface {
	Upsert(ctx context.Context, advisoryID string, metric model.SecurityMetric) error
	List(ctx context.Context) (map[string]model.SecurityMetric, error)
}

// AgentStore holds agent registrations keyed by name.
type AgentStore interface {
	Register(ctx context.Context, agent model.AgentRegistration) error
	GetByName(ctx context.Context, name string) (*model.AgentRegistration, error)
}
