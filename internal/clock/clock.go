// Package clock provides the countdown engine that drives interview phases.
package clock

import (
	"sync"
	"time"
)

// DefaultTickInterval matches the sub-second refresh used for on-screen countdowns.
const DefaultTickInterval = 100 * time.Millisecond

// Clock runs at most one countdown at a time. Remaining time is derived from
// wall-clock elapsed time rather than from the number of ticks observed, so a
// delayed tick never stretches the countdown.
type Clock struct {
	tick time.Duration
	now  func() time.Time

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// Option configures a Clock.
type Option func(*Clock)

// WithTickInterval sets how often remaining time is re-evaluated.
func WithTickInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.tick = d
		}
	}
}

// WithNow replaces the wall-clock source, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an idle Clock.
func New(opts ...Option) *Clock {
	c := &Clock{
		tick: DefaultTickInterval,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a countdown of durationSeconds. onTick receives the remaining
// whole seconds each time the value changes, starting with the full duration
// and ending with 0. onExpire fires once, after the final onTick(0), unless
// Stop or another Start intervenes. Either callback may be nil.
//
// A running countdown is stopped first, and Start waits for its goroutine to
// exit, so no callback of the previous countdown runs after Start returns.
//
// Callbacks run on the countdown goroutine and must not call Start or Stop
// synchronously.
func (c *Clock) Start(durationSeconds int, onTick func(remaining int), onExpire func()) {
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	c.mu.Lock()
	prev := c.done
	c.stopLocked()
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop = stop
	c.done = done
	c.running = true
	c.mu.Unlock()

	if prev != nil {
		<-prev
	}
	go c.run(durationSeconds, onTick, onExpire, stop, done)
}

// Stop cancels the active countdown without firing onExpire. It blocks until
// the countdown goroutine has exited, so no callback runs after Stop returns.
// Calling Stop on an idle Clock is a no-op.
func (c *Clock) Stop() {
	c.mu.Lock()
	done := c.done
	c.stopLocked()
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Running reports whether a countdown is in progress.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Clock) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.done = nil
	c.running = false
}

func (c *Clock) run(duration int, onTick func(int), onExpire func(), stop, done chan struct{}) {
	defer close(done)

	select {
	case <-stop:
		return
	default:
	}

	started := c.now()
	last := duration
	if onTick != nil {
		onTick(last)
	}

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for last > 0 {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		elapsed := int(c.now().Sub(started) / time.Second)
		remaining := max(0, duration-elapsed)
		// Never report an increase, even if the wall clock steps backwards.
		if remaining >= last {
			continue
		}
		last = remaining
		if onTick != nil {
			onTick(last)
		}
	}

	// A Stop racing with expiry wins: onExpire must not fire after Stop.
	c.mu.Lock()
	if c.stop != stop {
		c.mu.Unlock()
		return
	}
	c.stop = nil
	c.done = nil
	c.running = false
	c.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
}
