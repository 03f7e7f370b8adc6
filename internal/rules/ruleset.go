package rules

import "github.com/five82/loglens/internal/observe"

// Change describes one structural edit of a RuleSet. Added and Removed list
// every rule entry touched by the edit, duplicates included, so observers
// can keep per-entry bookkeeping exact.
type Change[T, U any] struct {
	Added     []*Rule[T, U]
	Removed   []*Rule[T, U]
	Reordered bool
}

// RuleSet is an ordered, mutable sequence of rules. Position is priority:
// earlier rules win.
type RuleSet[T, U any] struct {
	rules []*Rule[T, U]
	ev    observe.Event[Change[T, U]]
}

// NewRuleSet returns a set holding rules in order. Nil rules are skipped.
func NewRuleSet[T, U any](rules ...*Rule[T, U]) *RuleSet[T, U] {
	return &RuleSet[T, U]{rules: compact(rules)}
}

func compact[T, U any](rules []*Rule[T, U]) []*Rule[T, U] {
	out := make([]*Rule[T, U], 0, len(rules))
	for _, r := range rules {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of rules.
func (s *RuleSet[T, U]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// At returns the rule at index i, or nil when i is out of range.
func (s *RuleSet[T, U]) At(i int) *Rule[T, U] {
	if s == nil || i < 0 || i >= len(s.rules) {
		return nil
	}
	return s.rules[i]
}

// Rules returns a copy of the rules in priority order.
func (s *RuleSet[T, U]) Rules() []*Rule[T, U] {
	if s == nil {
		return nil
	}
	out := make([]*Rule[T, U], len(s.rules))
	copy(out, s.rules)
	return out
}

// IndexOf returns the index of the first occurrence of r, or -1.
func (s *RuleSet[T, U]) IndexOf(r *Rule[T, U]) int {
	if s == nil {
		return -1
	}
	for i, v := range s.rules {
		if v == r {
			return i
		}
	}
	return -1
}

// Add appends rules at the lowest priority.
func (s *RuleSet[T, U]) Add(rules ...*Rule[T, U]) {
	s.Insert(len(s.rules), rules...)
}

// Insert places rules starting at index i. The index is clamped to the
// valid range.
func (s *RuleSet[T, U]) Insert(i int, rules ...*Rule[T, U]) {
	added := compact(rules)
	if len(added) == 0 {
		return
	}
	i = max(0, min(i, len(s.rules)))
	next := make([]*Rule[T, U], 0, len(s.rules)+len(added))
	next = append(next, s.rules[:i]...)
	next = append(next, added...)
	next = append(next, s.rules[i:]...)
	s.rules = next
	s.ev.Emit(Change[T, U]{Added: added})
}

// Remove deletes the first occurrence of r and reports whether it was found.
func (s *RuleSet[T, U]) Remove(r *Rule[T, U]) bool {
	i := s.IndexOf(r)
	if i < 0 {
		return false
	}
	s.RemoveAt(i)
	return true
}

// RemoveAt deletes and returns the rule at index i, or nil when i is out of
// range.
func (s *RuleSet[T, U]) RemoveAt(i int) *Rule[T, U] {
	r := s.At(i)
	if r == nil {
		return nil
	}
	s.rules = append(s.rules[:i:i], s.rules[i+1:]...)
	s.ev.Emit(Change[T, U]{Removed: []*Rule[T, U]{r}})
	return r
}

// Replace swaps the rule at index i for r and returns the previous rule.
func (s *RuleSet[T, U]) Replace(i int, r *Rule[T, U]) *Rule[T, U] {
	old := s.At(i)
	if old == nil || r == nil {
		return nil
	}
	s.rules[i] = r
	s.ev.Emit(Change[T, U]{
		Added:   []*Rule[T, U]{r},
		Removed: []*Rule[T, U]{old},
	})
	return old
}

// Move relocates the rule at index from to index to.
func (s *RuleSet[T, U]) Move(from, to int) bool {
	n := len(s.rules)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}
	r := s.rules[from]
	rest := append(s.rules[:from:from], s.rules[from+1:]...)
	next := make([]*Rule[T, U], 0, n)
	next = append(next, rest[:to]...)
	next = append(next, r)
	next = append(next, rest[to:]...)
	s.rules = next
	s.ev.Emit(Change[T, U]{Reordered: true})
	return true
}

// Reset replaces the whole sequence in one change.
func (s *RuleSet[T, U]) Reset(rules ...*Rule[T, U]) {
	old := s.rules
	s.rules = compact(rules)
	if len(old) == 0 && len(s.rules) == 0 {
		return
	}
	s.ev.Emit(Change[T, U]{
		Added:     s.Rules(),
		Removed:   old,
		Reordered: true,
	})
}

// Clear removes every rule.
func (s *RuleSet[T, U]) Clear() {
	if len(s.rules) == 0 {
		return
	}
	old := s.rules
	s.rules = nil
	s.ev.Emit(Change[T, U]{Removed: old})
}

// Subscribe registers fn for structural changes.
func (s *RuleSet[T, U]) Subscribe(fn func(Change[T, U])) *observe.Subscription {
	return s.ev.Subscribe(fn)
}

// Listeners returns the number of structural subscribers.
func (s *RuleSet[T, U]) Listeners() int {
	return s.ev.Len()
}

// OutputFor returns an engine yielding the result of the first rule whose
// matcher accepts input, or def when none does.
func (s *RuleSet[T, U]) OutputFor(input observe.Observable[T], def U) *Engine[T, U] {
	return Bind(observe.Const(s), input, def)
}
