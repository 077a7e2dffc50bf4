// Package loop provides the single-threaded task loop every engine
// operation runs on.
//
// Signal propagation, directive evaluation and binding updates all run
// inside loop tasks. Timers and asynchronous work (fetches, includes)
// complete by posting a task back onto the loop, so user-visible state is
// never touched from two goroutines at once.
package loop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Option configures a Loop.
type Option func(*Loop)

// WithPanicHandler sets the function called with the recovered value when
// a task panics. Without one, the panic is re-raised.
func WithPanicHandler(fn func(recovered any)) Option {
	return func(l *Loop) {
		l.onPanic = fn
	}
}

// WithClock replaces the real clock, typically with a ManualClock.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// Loop is a FIFO of tasks drained by a single goroutine at a time.
type Loop struct {
	mu       sync.Mutex
	queue    []func()
	wake     chan struct{}
	inflight atomic.Int64
	running  atomic.Bool
	clock    Clock
	onPanic  func(any)
}

// New creates a loop using the real clock unless WithClock is given.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
	}
	l.clock = realClock{loop: l}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Clock returns the clock timers should be scheduled on.
func (l *Loop) Clock() Clock {
	return l.clock
}

// Post queues task. It is safe to call from any goroutine.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.signal()
}

// Go runs work on its own goroutine. The function work returns, if not
// nil, is posted back onto the loop. Settle waits for work started this
// way.
func (l *Loop) Go(work func() (done func())) {
	l.inflight.Add(1)
	go func() {
		defer func() {
			l.inflight.Add(-1)
			l.signal()
		}()
		done := l.protect(work)
		if done != nil {
			l.Post(done)
		}
	}()
}

func (l *Loop) protect(work func() func()) (done func()) {
	defer func() {
		if r := recover(); r != nil {
			done = func() { l.panicked(r) }
		}
	}()
	return work()
}

// Flush runs queued tasks, including tasks they post, until the queue is
// empty. It returns the number of tasks run.
func (l *Loop) Flush() int {
	if !l.running.CompareAndSwap(false, true) {
		return 0
	}
	defer l.running.Store(false)

	count := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return count
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(task)
		count++
	}
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panicked(r)
		}
	}()
	task()
}

func (l *Loop) panicked(r any) {
	if l.onPanic == nil {
		panic(fmt.Sprintf("loop: task panicked: %v", r))
	}
	l.onPanic(r)
}

// Pending reports queued tasks plus outstanding Go work.
func (l *Loop) Pending() int {
	l.mu.Lock()
	n := len(l.queue)
	l.mu.Unlock()
	return n + int(l.inflight.Load())
}

// Settle runs tasks until the queue is empty and no Go work is
// outstanding. Timers that have not fired yet are not waited for.
func (l *Loop) Settle(ctx context.Context) error {
	for {
		l.Flush()
		if l.Pending() == 0 {
			return nil
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run drains the loop until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Flush()
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
