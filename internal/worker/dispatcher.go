package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"caretaker.app/relay/common/logger"
	"caretaker.app/relay/internal/metrics"
	"caretaker.app/relay/internal/model"
	"caretaker.app/relay/internal/queue"
	"caretaker.app/relay/internal/review"
	"caretaker.app/relay/internal/store"
)

// Outcome is the terminal state of a single dispatch tick.
type Outcome string

const (
	OutcomeIdle         Outcome = "idle"
	OutcomeValidated    Outcome = "validated"
	OutcomeDeadLettered Outcome = "dead_lettered"
	OutcomeDropped      Outcome = "dropped"
)

const defaultAction = "repo_event"

// Dispatcher moves at most one queued agent event per tick into either the
// validated review store or the dead-letter list.
type Dispatcher struct {
	consumer    queue.Consumer
	tokens      TokenPool
	reviews     store.ReviewStore
	deadLetters store.DeadLetterStore
	metrics     *metrics.Metrics
}

func NewDispatcher(consumer queue.Consumer, tokens TokenPool, reviews store.ReviewStore, deadLetters store.DeadLetterStore, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		consumer:    consumer,
		tokens:      tokens,
		reviews:     reviews,
		deadLetters: deadLetters,
		metrics:     m,
	}
}

// Tick pops the highest-priority item, waits for a token and routes it. Items are
// removed before processing, so a failure after the pop loses the item.
func (d *Dispatcher) Tick(ctx context.Context) (Outcome, error) {
	item, ok, err := d.consumer.Pop(ctx)
	if err != nil {
		return OutcomeIdle, fmt.Errorf("popping agent queue: %w", err)
	}
	if !ok {
		return OutcomeIdle, nil
	}

	sc := logger.StartSpan(ctx, "worker.dispatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("queue.lane", item.Priority.String())))
	defer sc.End()

	ctx = logger.WithLogFields(sc.Context(), logger.LogFields{
		Lane: logger.Ptr(item.Priority.String()),
	})

	start := time.Now()
	outcome, err := d.dispatch(ctx, item)
	if err != nil {
		sc.RecordError(err)
	}
	elapsed := time.Since(start)
	d.metrics.ObserveDispatch(string(outcome), elapsed)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Outcome: logger.Ptr(string(outcome))})
	slog.DebugContext(ctx, "dispatch finished", "duration_ms", elapsed.Milliseconds())

	return outcome, err
}

func (d *Dispatcher) dispatch(ctx context.Context, item queue.Item) (Outcome, error) {
	if err := d.tokens.Acquire(ctx); err != nil {
		return OutcomeDropped, fmt.Errorf("waiting for dispatch capacity: %w", err)
	}

	event, err := model.ParseAgentEvent([]byte(item.Payload))
	if err != nil {
		slog.ErrorContext(ctx, "dropping malformed agent event",
			"error", err,
			"payload", logger.Truncate(item.Payload, 256))
		return OutcomeDropped, nil
	}

	action := event.Action
	if action == "" {
		action = defaultAction
	}
	slog.InfoContext(ctx, "dispatching to agents", "event", action)

	res := review.Validate(event.Review)
	if !res.OK() {
		if err := d.deadLetters.Append(ctx, item.Payload); err != nil {
			return OutcomeDropped, fmt.Errorf("dead-lettering agent event: %w", err)
		}
		slog.WarnContext(ctx, "agent review rejected, dead-lettered", "reason", res.Err)
		return OutcomeDeadLettered, nil
	}

	if err := d.reviews.Append(ctx, *res.Review); err != nil {
		return OutcomeDropped, fmt.Errorf("storing validated review: %w", err)
	}

	slog.DebugContext(ctx, "agent review stored", "repo", res.Review.Repo, "pr", res.Review.PR)
	return OutcomeValidated, nil
}
