package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Reservoir is a fixed-window token pool: it starts with capacity tokens and is
// topped back up to capacity at the end of every window. It is not a leaky bucket;
// unused tokens do not carry over and nothing refills mid-window.
type Reservoir struct {
	clock    clockwork.Clock
	capacity int
	window   time.Duration

	mu        sync.Mutex
	remaining int
	windowEnd time.Time
}

func NewReservoir(capacity int, window time.Duration, clock clockwork.Clock) *Reservoir {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reservoir{
		clock:     clock,
		capacity:  capacity,
		window:    window,
		remaining: capacity,
		windowEnd: clock.Now().Add(window),
	}
}

// Acquire takes one token, sleeping until the next refill when the pool is empty.
// It only fails when ctx is done.
func (r *Reservoir) Acquire(ctx context.Context) error {
	for {
		wait, ok := r.tryAcquire()
		if ok {
			return nil
		}

		timer := r.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}
	}
}

// Remaining reports the tokens left in the current window.
func (r *Reservoir) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill(r.clock.Now())
	return r.remaining
}

func (r *Reservoir) tryAcquire() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.refill(now)
	if r.remaining > 0 {
		r.remaining--
		return 0, true
	}
	return r.windowEnd.Sub(now), false
}

// refill must be called with mu held.
func (r *Reservoir) refill(now time.Time) {
	if now.Before(r.windowEnd) {
		return
	}
	missed := now.Sub(r.windowEnd) / r.window
	r.windowEnd = r.windowEnd.Add((missed + 1) * r.window)
	r.remaining = r.capacity
}
