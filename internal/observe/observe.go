// Package observe provides the small set of reactive primitives the rule
// engine is built on: listener registries, settable observable slots and
// explicit subscriptions.
//
// Nothing in this package is safe for concurrent use. Every observable,
// and everything subscribed to it, is owned by a single execution context
// (the UI goroutine in loglens). Cross-goroutine producers must marshal onto
// that context before touching an observable.
//
// Subscriptions are explicit. A listener stays registered until its
// Subscription is cancelled; nothing is dropped implicitly when the
// subscriber becomes unreachable.
package observe

// Listener is notified when an observable may have changed.
type Listener func()

// Subscription is a handle to a registered listener.
type Subscription struct {
	cancel func()
}

// Cancel unregisters the listener. It is safe to call more than once and on
// a nil Subscription.
func (s *Subscription) Cancel() {
	if s == nil || s.cancel == nil {
		return
	}
	cancel := s.cancel
	s.cancel = nil
	cancel()
}

// Active reports whether the subscription has not been cancelled yet.
func (s *Subscription) Active() bool {
	return s != nil && s.cancel != nil
}

// inert returns a subscription with nothing to release.
func inert() *Subscription {
	return &Subscription{}
}

// Event is an ordered registry of typed listeners.
// The zero value is ready to use.
type Event[E any] struct {
	next      uint64
	order     []uint64
	listeners map[uint64]func(E)
}

// Subscribe registers fn and returns the handle that removes it.
func (e *Event[E]) Subscribe(fn func(E)) *Subscription {
	if fn == nil {
		return inert()
	}
	if e.listeners == nil {
		e.listeners = make(map[uint64]func(E))
	}
	e.next++
	id := e.next
	e.listeners[id] = fn
	e.order = append(e.order, id)
	return &Subscription{cancel: func() { e.remove(id) }}
}

func (e *Event[E]) remove(id uint64) {
	if _, ok := e.listeners[id]; !ok {
		return
	}
	delete(e.listeners, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i:i], e.order[i+1:]...)
			break
		}
	}
}

// Emit calls every listener registered at the time of the call, in
// registration order. A listener cancelled by an earlier listener during the
// same emit is skipped.
func (e *Event[E]) Emit(v E) {
	if len(e.order) == 0 {
		return
	}
	ids := make([]uint64, len(e.order))
	copy(ids, e.order)
	for _, id := range ids {
		if fn, ok := e.listeners[id]; ok {
			fn(v)
		}
	}
}

// Len returns the number of registered listeners.
func (e *Event[E]) Len() int {
	return len(e.listeners)
}

// Signal is an Event without a payload.
type Signal struct {
	ev Event[struct{}]
}

// Subscribe registers l.
func (s *Signal) Subscribe(l Listener) *Subscription {
	if l == nil {
		return inert()
	}
	return s.ev.Subscribe(func(struct{}) { l() })
}

// Notify calls every registered listener.
func (s *Signal) Notify() {
	s.ev.Emit(struct{}{})
}

// Len returns the number of registered listeners.
func (s *Signal) Len() int {
	return s.ev.Len()
}

// Observable is a value that can be read and watched for changes.
type Observable[T any] interface {
	Get() T
	Subscribe(l Listener) *Subscription
}

// Value is a settable observable slot.
type Value[T any] struct {
	v   T
	sig Signal
}

// NewValue returns a slot holding v.
func NewValue[T any](v T) *Value[T] {
	return &Value[T]{v: v}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	return v.v
}

// Set stores x and notifies listeners. Listeners are notified even when x
// equals the previous value; callers that care compare first.
func (v *Value[T]) Set(x T) {
	v.v = x
	v.sig.Notify()
}

// Subscribe registers l for changes.
func (v *Value[T]) Subscribe(l Listener) *Subscription {
	return v.sig.Subscribe(l)
}

// Listeners returns the number of registered listeners.
func (v *Value[T]) Listeners() int {
	return v.sig.Len()
}

type constant[T any] struct {
	v T
}

// Const returns an Observable that always yields v and never notifies.
func Const[T any](v T) Observable[T] {
	return constant[T]{v: v}
}

func (c constant[T]) Get() T                           { return c.v }
func (c constant[T]) Subscribe(Listener) *Subscription { return inert() }
