package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"caretaker.app/relay/common/logger"
)

// Loop runs a TickFunc on a fixed interval. Ticks never overlap: a tick that
// outlasts the interval delays the next one instead of running alongside it.
type Loop struct {
	name     string
	interval time.Duration
	clock    clockwork.Clock
	tick     TickFunc

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewLoop(name string, interval time.Duration, clock clockwork.Clock, tick TickFunc) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loop{
		name:      name,
		interval:  interval,
		clock:     clock,
		tick:      tick,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until ctx is done or Stop is called. Stopping cancels the context
// handed to an in-flight tick.
func (l *Loop) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "relay.worker." + l.name,
	})
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer close(l.stoppedCh)

	go func() {
		select {
		case <-l.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "loop started", "interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "loop stopping")
			return
		case <-ticker.Chan():
			if err := l.runOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "tick failed", "error", err)
			}
		}
	}
}

// Stop signals the loop and waits for Run to return. Run must have been started.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.stoppedCh
}

func (l *Loop) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.tick(ctx)
}

// Runner owns the dispatch and aggregation loops of one process.
type Runner struct {
	loops []*Loop
}

type RunnerConfig struct {
	DispatchInterval  time.Duration
	AggregateInterval time.Duration
	Clock             clockwork.Clock
}

func NewRunner(d *Dispatcher, a *Aggregator, cfg RunnerConfig) *Runner {
	dispatch := NewLoop("dispatcher", cfg.DispatchInterval, cfg.Clock, func(ctx context.Context) error {
		_, err := d.Tick(ctx)
		return err
	})
	aggregate := NewLoop("aggregator", cfg.AggregateInterval, cfg.Clock, func(ctx context.Context) error {
		_, err := a.Tick(ctx)
		return err
	})
	return &Runner{loops: []*Loop{dispatch, aggregate}}
}

func (r *Runner) Start(ctx context.Context) {
	for _, l := range r.loops {
		go l.Run(ctx)
	}
}

func (r *Runner) Stop() {
	for _, l := range r.loops {
		l.Stop()
	}
}
