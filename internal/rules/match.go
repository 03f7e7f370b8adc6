package rules

import "github.com/five82/loglens/internal/observe"

// Match is a matcher evaluated against an observable input. Its value is
// always Test applied to the current input; it is computed lazily and
// cached until the input, the matcher's internal state or the matcher
// itself changes.
//
// Subscribers are notified when a cached value becomes stale, not on every
// upstream change.
type Match[T any] struct {
	slot  observe.Observable[Matcher[T]]
	input observe.Observable[T]

	matcher    Matcher[T]
	slotSub    *observe.Subscription
	inputSub   *observe.Subscription
	matcherSub *observe.Subscription

	valid  bool
	value  bool
	closed bool
	sig    observe.Signal
}

// Matches evaluates a fixed matcher against input. A nil matcher is treated
// as Never.
func Matches[T any](m Matcher[T], input observe.Observable[T]) *Match[T] {
	if m == nil {
		m = Never[T]()
	}
	return newMatch(observe.Const(m), input)
}

func newMatch[T any](slot observe.Observable[Matcher[T]], input observe.Observable[T]) *Match[T] {
	m := &Match[T]{slot: slot, input: input}
	m.follow(slot.Get())
	m.slotSub = slot.Subscribe(func() {
		m.follow(m.slot.Get())
		m.invalidate()
	})
	m.inputSub = input.Subscribe(m.invalidate)
	return m
}

// follow moves the internal-state subscription to matcher.
func (m *Match[T]) follow(matcher Matcher[T]) {
	m.matcherSub.Cancel()
	if matcher == nil {
		matcher = Never[T]()
	}
	m.matcher = matcher
	m.matcherSub = matcher.Subscribe(m.invalidate)
}

func (m *Match[T]) invalidate() {
	if !m.valid {
		return
	}
	m.valid = false
	m.sig.Notify()
}

// Get returns Test applied to the current input.
func (m *Match[T]) Get() bool {
	if m.closed {
		return m.matcher.Test(m.input.Get())
	}
	if !m.valid {
		m.value = m.matcher.Test(m.input.Get())
		m.valid = true
	}
	return m.value
}

// Subscribe registers l to be called when the cached value goes stale.
func (m *Match[T]) Subscribe(l observe.Listener) *observe.Subscription {
	return m.sig.Subscribe(l)
}

// Close releases every subscription the Match holds upstream. Get keeps
// working afterwards but no longer caches.
func (m *Match[T]) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.valid = false
	m.slotSub.Cancel()
	m.inputSub.Cancel()
	m.matcherSub.Cancel()
}
