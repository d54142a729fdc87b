package worker

import "context"

// TokenPool gates how often the dispatcher may hand an item to agents.
type TokenPool interface {
	Acquire(ctx context.Context) error
}

// TickFunc is one unit of work run by a Loop.
type TickFunc func(ctx context.Context) error
