package rules

import "github.com/five82/loglens/internal/observe"

type engineState uint8

const (
	stateStale engineState = iota
	stateValid
	stateComputing
)

func (s engineState) String() string {
	switch s {
	case stateValid:
		return "valid"
	case stateComputing:
		return "computing"
	default:
		return "stale"
	}
}

// ruleBinding is the engine's hold on one distinct rule. refs counts how
// many entries of the bound set point at the rule.
type ruleBinding[T any] struct {
	match     *Match[T]
	matchSub  *observe.Subscription
	resultSub *observe.Subscription
	refs      int
}

func (b *ruleBinding[T]) release() {
	b.matchSub.Cancel()
	b.resultSub.Cancel()
	b.match.Close()
}

// Engine maintains the result of the first rule in a RuleSet whose matcher
// accepts the current input.
//
// Any upstream change only marks the engine stale; the scan runs on the
// next Get. All methods must be called from the context that owns the rule
// set and the input.
type Engine[T, U any] struct {
	ref   observe.Observable[*RuleSet[T, U]]
	input observe.Observable[T]
	def   U

	set      *RuleSet[T, U]
	bindings map[*Rule[T, U]]*ruleBinding[T]
	refSub   *observe.Subscription
	setSub   *observe.Subscription
	inputSub *observe.Subscription

	state  engineState
	value  U
	closed bool
	sig    observe.Signal
}

// Bind returns an engine over the rule set held by ref. When ref changes the
// engine drops every subscription on the previous set and binds the new one.
// A nil set yields def.
func Bind[T, U any](ref observe.Observable[*RuleSet[T, U]], input observe.Observable[T], def U) *Engine[T, U] {
	e := &Engine[T, U]{
		ref:      ref,
		input:    input,
		def:      def,
		bindings: make(map[*Rule[T, U]]*ruleBinding[T]),
	}
	e.rebind(ref.Get())
	e.refSub = ref.Subscribe(func() { e.rebind(e.ref.Get()) })
	e.inputSub = input.Subscribe(e.invalidate)
	return e
}

func (e *Engine[T, U]) rebind(set *RuleSet[T, U]) {
	e.unbind()
	e.set = set
	if set != nil {
		e.setSub = set.Subscribe(e.onChange)
		for _, r := range set.rules {
			e.retain(r)
		}
	}
	e.invalidate()
}

func (e *Engine[T, U]) unbind() {
	e.setSub.Cancel()
	e.setSub = nil
	for r, b := range e.bindings {
		b.release()
		delete(e.bindings, r)
	}
	e.set = nil
}

func (e *Engine[T, U]) onChange(c Change[T, U]) {
	// Retain before release so a rule that is both added and removed in
	// one change keeps its subscriptions.
	for _, r := range c.Added {
		e.retain(r)
	}
	for _, r := range c.Removed {
		e.releaseRule(r)
	}
	e.invalidate()
}

func (e *Engine[T, U]) retain(r *Rule[T, U]) {
	if b, ok := e.bindings[r]; ok {
		b.refs++
		return
	}
	m := r.Matches(e.input)
	e.bindings[r] = &ruleBinding[T]{
		match:     m,
		matchSub:  m.Subscribe(e.invalidate),
		resultSub: r.ResultValue().Subscribe(e.invalidate),
		refs:      1,
	}
}

func (e *Engine[T, U]) releaseRule(r *Rule[T, U]) {
	b, ok := e.bindings[r]
	if !ok {
		return
	}
	b.refs--
	if b.refs > 0 {
		return
	}
	b.release()
	delete(e.bindings, r)
}

func (e *Engine[T, U]) invalidate() {
	switch e.state {
	case stateValid:
		e.state = stateStale
		e.sig.Notify()
	case stateComputing:
		// The scan in progress may have read a value that just changed.
		e.state = stateStale
	}
}

// Get returns the current first-match result, recomputing it if stale.
func (e *Engine[T, U]) Get() U {
	if e.closed {
		return e.compute()
	}
	if e.state == stateValid {
		return e.value
	}
	e.state = stateComputing
	v := e.compute()
	e.value = v
	if e.state == stateComputing {
		e.state = stateValid
	}
	return v
}

func (e *Engine[T, U]) compute() U {
	if e.set == nil {
		return e.def
	}
	var in T
	direct := false
	for _, r := range e.set.rules {
		if b, ok := e.bindings[r]; ok {
			if b.match.Get() {
				return r.Result()
			}
			continue
		}
		if !direct {
			in = e.input.Get()
			direct = true
		}
		if r.Matcher().Test(in) {
			return r.Result()
		}
	}
	return e.def
}

// Subscribe registers l to be called when a valid result goes stale.
func (e *Engine[T, U]) Subscribe(l observe.Listener) *observe.Subscription {
	return e.sig.Subscribe(l)
}

// Stale reports whether the next Get will rescan the rule set.
func (e *Engine[T, U]) Stale() bool {
	return e.state != stateValid
}

// Bound returns the number of distinct rules the engine holds
// subscriptions for.
func (e *Engine[T, U]) Bound() int {
	return len(e.bindings)
}

// Close releases every subscription the engine registered. Get keeps
// returning the first-match result for the last bound set, uncached.
func (e *Engine[T, U]) Close() {
	if e.closed {
		return
	}
	set := e.set
	e.refSub.Cancel()
	e.inputSub.Cancel()
	e.unbind()
	e.set = set
	e.closed = true
	e.state = stateStale
}
