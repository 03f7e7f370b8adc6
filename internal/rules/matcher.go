package rules

import "github.com/five82/loglens/internal/observe"

// Matcher tests an input and reports changes to its own configuration.
//
// Subscribe must fire whenever anything Test depends on (other than the
// input itself) changes, so bound engines can invalidate. A matcher with no
// mutable state may return an inactive subscription.
//
// Test must handle the zero value of T (an absent input) by returning false
// unless the matcher deliberately matches everything.
type Matcher[T any] interface {
	Test(value T) bool
	Subscribe(l observe.Listener) *observe.Subscription
}

// Func adapts a static predicate to a Matcher.
type Func[T any] func(T) bool

// Test calls f.
func (f Func[T]) Test(v T) bool { return f(v) }

// Subscribe returns an inactive subscription; a Func never changes.
func (f Func[T]) Subscribe(observe.Listener) *observe.Subscription {
	return &observe.Subscription{}
}

// Always returns a matcher that accepts every input, including absent ones.
func Always[T any]() Matcher[T] {
	return Func[T](func(T) bool { return true })
}

// Never returns a matcher that rejects every input.
func Never[T any]() Matcher[T] {
	return Func[T](func(T) bool { return false })
}

// Predicate is a matcher whose predicate can be replaced at runtime.
type Predicate[T any] struct {
	observe.Signal
	fn func(T) bool
}

// NewPredicate returns a Predicate wrapping fn.
func NewPredicate[T any](fn func(T) bool) *Predicate[T] {
	return &Predicate[T]{fn: fn}
}

// Test applies the current predicate; a nil predicate rejects everything.
func (p *Predicate[T]) Test(v T) bool {
	if p.fn == nil {
		return false
	}
	return p.fn(v)
}

// SetFunc replaces the predicate and notifies subscribers.
func (p *Predicate[T]) SetFunc(fn func(T) bool) {
	p.fn = fn
	p.Notify()
}

// Invalidate notifies subscribers without changing the predicate. Use it
// when state captured by the predicate changed.
func (p *Predicate[T]) Invalidate() {
	p.Notify()
}
