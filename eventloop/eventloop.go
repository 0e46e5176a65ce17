// Package eventloop provides a single-goroutine cooperative loop for
// hosts that have no event loop of their own.
//
// Funcs posted to a Loop run one at a time, in order, on the goroutine
// that called Run. Timers fire by posting onto the loop, so timer funcs
// also run there.
package eventloop

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Loop runs posted funcs on one goroutine.
type Loop struct {
	clock clockwork.Clock

	mu       sync.Mutex
	pending  []func()
	stopped  bool
	wake     chan struct{}
	quit     chan struct{}
	stopOnce sync.Once
}

// New creates a loop. A nil clock selects the real clock.
func New(clock clockwork.Clock) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loop{
		clock: clock,
		wake:  make(chan struct{}, 1),
		quit:  make(chan struct{}),
	}
}

// Post queues fn. It reports false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// AfterFunc posts fn onto the loop after d. The returned func cancels the
// timer and reports whether it was still pending.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (stop func() bool) {
	t := l.clock.AfterFunc(d, func() { l.Post(fn) })
	return t.Stop
}

// Run executes posted funcs until ctx is done or Stop is called. Funcs
// still queued at that point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for _, fn := range l.take() {
			fn()
		}

		select {
		case <-l.wake:
		case <-l.quit:
			return nil
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		}
	}
}

// Stop ends Run. It is safe to call more than once and from any goroutine.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.pending = nil
		l.mu.Unlock()
		close(l.quit)
	})
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fns := l.pending
	l.pending = nil
	return fns
}
