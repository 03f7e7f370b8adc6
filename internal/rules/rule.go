package rules

import "github.com/five82/loglens/internal/observe"

// Rule pairs a matcher with a result. Both slots are independently
// replaceable and observable.
type Rule[T, U any] struct {
	matcher *observe.Value[Matcher[T]]
	result  *observe.Value[U]
}

// NewRule returns a rule yielding result when m accepts the input.
// A nil matcher is stored as Never.
func NewRule[T, U any](m Matcher[T], result U) *Rule[T, U] {
	if m == nil {
		m = Never[T]()
	}
	return &Rule[T, U]{
		matcher: observe.NewValue(m),
		result:  observe.NewValue(result),
	}
}

// Matcher returns the current matcher.
func (r *Rule[T, U]) Matcher() Matcher[T] {
	return r.matcher.Get()
}

// SetMatcher replaces the matcher. A nil matcher is stored as Never.
func (r *Rule[T, U]) SetMatcher(m Matcher[T]) {
	if m == nil {
		m = Never[T]()
	}
	r.matcher.Set(m)
}

// MatcherValue exposes the matcher slot.
func (r *Rule[T, U]) MatcherValue() observe.Observable[Matcher[T]] {
	return r.matcher
}

// Result returns the current result.
func (r *Rule[T, U]) Result() U {
	return r.result.Get()
}

// SetResult replaces the result.
func (r *Rule[T, U]) SetResult(u U) {
	r.result.Set(u)
}

// ResultValue exposes the result slot.
func (r *Rule[T, U]) ResultValue() observe.Observable[U] {
	return r.result
}

// Matches returns the rule's matcher evaluated against input. The returned
// Match follows matcher replacement on this rule.
func (r *Rule[T, U]) Matches(input observe.Observable[T]) *Match[T] {
	return newMatch(r.matcher, input)
}

// listeners reports how many subscriptions are held on the rule's slots.
func (r *Rule[T, U]) listeners() int {
	return r.matcher.Listeners() + r.result.Listeners()
}
