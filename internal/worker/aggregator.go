package worker

import (
	"context"
	"fmt"
	"log/slog"

	"caretaker.app/relay/internal/metrics"
	"caretaker.app/relay/internal/store"
)

// Aggregator periodically reports how many validated reviews are held. It only
// reads; running it any number of times leaves the store unchanged.
type Aggregator struct {
	reviews store.ReviewStore
	metrics *metrics.Metrics
}

func NewAggregator(reviews store.ReviewStore, m *metrics.Metrics) *Aggregator {
	return &Aggregator{reviews: reviews, metrics: m}
}

func (a *Aggregator) Tick(ctx context.Context) (int, error) {
	reviews, err := a.reviews.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading validated reviews: %w", err)
	}

	count := len(reviews)
	a.metrics.SetValidatedReviews(count)
	if count > 0 {
		slog.InfoContext(ctx, "aggregated reviews available", "count", count)
	}
	return count, nil
}
