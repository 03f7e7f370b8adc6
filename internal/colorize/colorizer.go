package colorize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/five82/loglens/internal/observe"
	"github.com/five82/loglens/internal/rules"
)

// RuleSpec describes one configured color rule. Field selects a named
// field; empty matches against the raw line.
type RuleSpec struct {
	Name    string
	Field   string
	Pattern string
	Style   Style
}

// Rule and RuleSet are the rule types the colorizer evaluates.
type (
	Rule    = rules.Rule[Input, Style]
	RuleSet = rules.RuleSet[Input, Style]
)

// highlightName cannot collide with a configured rule name.
const highlightName = "\x00highlight"

type entry struct {
	spec  RuleSpec
	rule  *Rule
	raw   *RawMatcher
	field *FieldMatcher
}

// Colorizer owns the rule set that picks a row style. The first rule whose
// matcher accepts a record wins. An active search highlight sits in front
// of the configured rules and the default style sits behind them.
//
// A Colorizer is owned by the UI context and is not safe for concurrent
// use.
type Colorizer struct {
	set     *RuleSet
	ref     *observe.Value[*RuleSet]
	enabled bool

	entries   map[string]*entry
	order     []*entry
	highlight *entry
	fallback  *Rule

	probe *Binding
}

// New returns a colorizer for specs with def as the fallback style.
func New(specs []RuleSpec, def Style) (*Colorizer, error) {
	c := &Colorizer{
		set:      rules.NewRuleSet[Input, Style](),
		entries:  make(map[string]*entry),
		fallback: rules.NewRule[Input, Style](rules.Always[Input](), def),
		enabled:  true,
	}
	c.ref = observe.NewValue(c.set)
	if err := c.Apply(specs, def); err != nil {
		return nil, err
	}
	return c, nil
}

func validate(specs []RuleSpec) error {
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("rule %q: duplicate name", name)
		}
		seen[name] = true
		if _, err := compile(s.Pattern); err != nil {
			return fmt.Errorf("rule %q: %w", name, err)
		}
	}
	return nil
}

// Apply reconciles the rule set with specs. Rules are matched by name: a
// kept rule has its matcher and style updated in place, so bound rows see
// a matcher change rather than a new rule. Invalid specs leave the
// colorizer untouched.
func (c *Colorizer) Apply(specs []RuleSpec, def Style) error {
	if err := validate(specs); err != nil {
		return err
	}

	next := make(map[string]*entry, len(specs))
	order := make([]*entry, 0, len(specs))
	for _, s := range specs {
		s.Name = strings.TrimSpace(s.Name)
		e, ok := c.entries[s.Name]
		if ok {
			if err := e.update(s); err != nil {
				return err
			}
		} else {
			var err error
			if e, err = newEntry(s); err != nil {
				return err
			}
		}
		next[s.Name] = e
		order = append(order, e)
	}

	c.entries = next
	c.order = order
	if c.fallback.Result() != def {
		c.fallback.SetResult(def)
	}
	c.rebuild()
	return nil
}

func newEntry(s RuleSpec) (*entry, error) {
	e := &entry{spec: s}
	var m rules.Matcher[Input]
	if s.Field == "" {
		raw, err := NewRawMatcher(s.Pattern)
		if err != nil {
			return nil, err
		}
		e.raw, m = raw, raw
	} else {
		field, err := NewFieldMatcher(s.Field, s.Pattern)
		if err != nil {
			return nil, err
		}
		e.field, m = field, field
	}
	e.rule = rules.NewRule[Input, Style](m, s.Style)
	return e, nil
}

// update moves the entry to s, editing the existing matcher when its kind
// is unchanged.
func (e *entry) update(s RuleSpec) error {
	switch {
	case s.Field == "" && e.raw != nil:
		if err := e.raw.SetPattern(s.Pattern); err != nil {
			return err
		}
	case s.Field != "" && e.field != nil:
		if err := e.field.SetPattern(s.Pattern); err != nil {
			return err
		}
		e.field.SetField(s.Field)
	default:
		fresh, err := newEntry(s)
		if err != nil {
			return err
		}
		e.raw, e.field = fresh.raw, fresh.field
		e.rule.SetMatcher(fresh.rule.Matcher())
	}
	if e.rule.Result() != s.Style {
		e.rule.SetResult(s.Style)
	}
	e.spec = s
	return nil
}

// rebuild publishes the current order in one structural change, skipping it
// when nothing moved.
func (c *Colorizer) rebuild() {
	want := make([]*Rule, 0, len(c.order)+2)
	if c.highlight != nil {
		want = append(want, c.highlight.rule)
	}
	for _, e := range c.order {
		want = append(want, e.rule)
	}
	want = append(want, c.fallback)

	cur := c.set.Rules()
	if len(cur) == len(want) {
		same := true
		for i := range cur {
			if cur[i] != want[i] {
				same = false
				break
			}
		}
		if same {
			return
		}
	}
	c.set.Reset(want...)
}

// Highlight puts a search rule in front of every configured rule. Calling
// it again edits the existing highlight in place.
func (c *Colorizer) Highlight(expr string, style Style) error {
	if strings.TrimSpace(expr) == "" {
		return errors.New("empty highlight expression")
	}
	spec := RuleSpec{Name: highlightName, Pattern: expr, Style: style}
	if c.highlight != nil {
		return c.highlight.update(spec)
	}
	e, err := newEntry(spec)
	if err != nil {
		return err
	}
	c.highlight = e
	c.set.Insert(0, e.rule)
	return nil
}

// HighlightPattern returns the active search expression, or "".
func (c *Colorizer) HighlightPattern() string {
	if c.highlight == nil {
		return ""
	}
	return c.highlight.spec.Pattern
}

// ClearHighlight removes the search rule.
func (c *Colorizer) ClearHighlight() {
	if c.highlight == nil {
		return
	}
	c.set.Remove(c.highlight.rule)
	c.highlight = nil
}

// SetEnabled switches coloring on or off. Disabled, every row gets the
// zero style; bound rows rebind without being recreated.
func (c *Colorizer) SetEnabled(on bool) {
	if on == c.enabled {
		return
	}
	c.enabled = on
	if on {
		c.ref.Set(c.set)
	} else {
		c.ref.Set(nil)
	}
}

// Enabled reports whether coloring is on.
func (c *Colorizer) Enabled() bool { return c.enabled }

// Specs returns the configured rules in priority order.
func (c *Colorizer) Specs() []RuleSpec {
	out := make([]RuleSpec, len(c.order))
	for i, e := range c.order {
		out[i] = e.spec
	}
	return out
}

// Rules exposes the live rule set.
func (c *Colorizer) Rules() *RuleSet { return c.set }

// Default returns the fallback style.
func (c *Colorizer) Default() Style { return c.fallback.Result() }

// Bind returns a binding whose style follows the rule set for whatever
// record it is pointed at.
func (c *Colorizer) Bind() *Binding {
	input := observe.NewValue[Input](nil)
	return &Binding{
		input:  input,
		engine: rules.Bind[Input, Style](c.ref, input, Style{}),
	}
}

// StyleFor evaluates rec once.
func (c *Colorizer) StyleFor(rec Input) Style {
	if c.probe == nil {
		c.probe = c.Bind()
	}
	c.probe.Set(rec)
	st := c.probe.Style()
	c.probe.Set(nil)
	return st
}

// Binding is a per-row engine: one input slot and the first-match result
// for it.
type Binding struct {
	input  *observe.Value[Input]
	engine *rules.Engine[Input, Style]
}

// Set points the binding at rec.
func (b *Binding) Set(rec Input) {
	if b.input.Get() == rec {
		return
	}
	b.input.Set(rec)
}

// Record returns the bound record.
func (b *Binding) Record() Input { return b.input.Get() }

// Style returns the current style for the bound record.
func (b *Binding) Style() Style { return b.engine.Get() }

// Stale reports whether the next Style call recomputes.
func (b *Binding) Stale() bool { return b.engine.Stale() }

// Subscribe registers l for invalidations of the bound style.
func (b *Binding) Subscribe(l observe.Listener) *observe.Subscription {
	return b.engine.Subscribe(l)
}

// Close releases the binding's subscriptions.
func (b *Binding) Close() { b.engine.Close() }
