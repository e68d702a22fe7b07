// Package loop provides a single-goroutine callback loop.
//
// Background work (sector compression, file writes) runs on its own goroutines
// and posts its completion back onto a Loop. Every posted callback runs on the
// goroutine executing Run, one at a time and in posting order, so state touched
// only from callbacks needs no locking.
package loop

import (
	"context"
	"sync"
)

// Scheduler accepts callbacks to run on the loop goroutine.
//
// Post must not block and may be called from any goroutine, including from a
// callback already running on the loop.
type Scheduler interface {
	Post(fn func())
}

// Loop is a FIFO callback executor. The zero value is not usable; call New.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
}

var _ Scheduler = (*Loop)(nil)

// New creates an idle loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn. Callbacks posted after Stop are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	l.signal()
}

// Stop makes Run return once the callback currently executing, if any, finishes.
// Queued callbacks that have not started are discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()

	l.signal()
}

// Run executes posted callbacks until Stop is called or ctx is done.
//
// Returns:
//   - error: nil after Stop, ctx.Err() on cancellation
func (l *Loop) Run(ctx context.Context) error {
	for {
		fn, ok, stopped := l.next()
		if stopped {
			return nil
		}

		if ok {
			fn()
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return nil, false, true
	}

	if len(l.queue) == 0 {
		return nil, false, false
	}

	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]

	return fn, true, false
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
