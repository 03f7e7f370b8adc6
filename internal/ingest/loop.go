package ingest

import (
	"errors"
	"sync"
)

// ErrStopped is returned when work is handed to a closed loop or session.
var ErrStopped = errors.New("ingest: stopped")

// Dispatcher runs functions on the consumer's execution context. Dispatch
// must not block the caller on the consumer, and functions must run in the
// order they were dispatched.
type Dispatcher interface {
	Dispatch(fn func()) error
}

// DispatchFunc adapts a function to a Dispatcher.
type DispatchFunc func(fn func()) error

// Dispatch calls f.
func (f DispatchFunc) Dispatch(fn func()) error { return f(fn) }

// Loop is a FIFO dispatcher backed by one goroutine and an unbounded
// queue. Dispatch never blocks.
//
// With a nil forward function the loop goroutine itself is the consumer
// context and runs each function directly. Otherwise each function is
// passed to forward, which may block (bubbletea's Program.Send does)
// without ever stalling the producer.
type Loop struct {
	forward func(fn func())

	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewLoop starts a loop.
func NewLoop(forward func(fn func())) *Loop {
	l := &Loop{
		forward: forward,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Dispatch queues fn.
func (l *Loop) Dispatch(fn func()) error {
	if fn == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrStopped
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			if l.forward != nil {
				l.forward(fn)
			} else {
				fn()
			}
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

// Sync waits until every function dispatched before the call has run.
// Must not be called from the consumer context.
func (l *Loop) Sync() error {
	ch := make(chan struct{})
	if err := l.Dispatch(func() { close(ch) }); err != nil {
		return err
	}
	select {
	case <-ch:
	case <-l.done:
	}
	return nil
}

// Close stops accepting work, drains what is queued and waits for the loop
// goroutine to exit.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}
