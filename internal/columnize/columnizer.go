package columnize

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrNoFields is returned by New and Replace for an empty field list.
	ErrNoFields = errors.New("columnizer needs at least one field")
	// ErrNoPatterns is returned by New and Replace for an empty pattern list.
	ErrNoPatterns = errors.New("columnizer needs at least one pattern")
	// ErrLastField is returned by RemoveField for the only remaining field.
	ErrLastField = errors.New("cannot remove the last field")
	// ErrLastPattern is returned by RemovePattern for the only remaining pattern.
	ErrLastPattern = errors.New("cannot remove the last pattern")
	// ErrUnknownField is returned when an edit names a field that does not exist.
	ErrUnknownField = errors.New("unknown field")
	// ErrUnknownPattern is returned when an edit names a pattern that does not exist.
	ErrUnknownPattern = errors.New("unknown pattern")
	// ErrDuplicateField is returned when two fields share a name.
	ErrDuplicateField = errors.New("duplicate field name")
)

// DefaultSeparator joins the values of a multi-group field.
const DefaultSeparator = "\n"

// FieldDefinition is one output column. Name is the record key. Groups
// lists the capturing groups feeding the field; it defaults to Name.
type FieldDefinition struct {
	Name      string
	Header    string
	Groups    []string
	Separator string
	Visible   bool
	Width     int
}

func (d FieldDefinition) normalize() (FieldDefinition, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return d, errors.New("field name is required")
	}
	if d.Header == "" {
		d.Header = d.Name
	}
	groups := make([]string, 0, len(d.Groups))
	for _, g := range d.Groups {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		groups = []string{d.Name}
	}
	d.Groups = groups
	if d.Separator == "" {
		d.Separator = DefaultSeparator
	}
	if d.Width < 0 {
		d.Width = 0
	}
	return d, nil
}

// layout is an immutable snapshot of the columnizer configuration.
type layout struct {
	fields   []FieldDefinition
	patterns []*Pattern
}

// Columnizer parses raw lines into records using ordered patterns.
//
// Parse is safe to call from any goroutine, concurrently with edits. Each
// edit publishes a new snapshot; a parse in flight keeps the snapshot it
// started with.
type Columnizer struct {
	mu  sync.Mutex
	cur atomic.Pointer[layout]
}

// New returns a Columnizer over defs and patterns. Both must be non-empty.
func New(defs []FieldDefinition, patterns []*Pattern) (*Columnizer, error) {
	l, err := newLayout(defs, patterns)
	if err != nil {
		return nil, err
	}
	c := &Columnizer{}
	c.cur.Store(l)
	return c, nil
}

func newLayout(defs []FieldDefinition, patterns []*Pattern) (*layout, error) {
	if len(defs) == 0 {
		return nil, ErrNoFields
	}
	l := &layout{
		fields:   make([]FieldDefinition, 0, len(defs)),
		patterns: make([]*Pattern, 0, len(patterns)),
	}
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		nd, err := d.normalize()
		if err != nil {
			return nil, err
		}
		if seen[nd.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, nd.Name)
		}
		seen[nd.Name] = true
		l.fields = append(l.fields, nd)
	}
	for _, p := range patterns {
		if p != nil {
			l.patterns = append(l.patterns, p)
		}
	}
	if len(l.patterns) == 0 {
		return nil, ErrNoPatterns
	}
	return l, nil
}

// Parse columnizes line. It never fails: when no pattern covers the trimmed
// line, the first field receives the raw line and every other field is
// empty.
func (c *Columnizer) Parse(line string) Record {
	l := c.cur.Load()
	fields := make(map[string]string, len(l.fields))
	trimmed := strings.TrimSpace(line)

	for _, p := range l.patterns {
		sub := p.match(trimmed)
		if sub == nil {
			continue
		}
		for _, d := range l.fields {
			fields[d.Name] = extract(p, sub, d)
		}
		return Record{raw: line, fields: fields}
	}

	for i, d := range l.fields {
		if i == 0 {
			fields[d.Name] = line
			continue
		}
		fields[d.Name] = ""
	}
	return Record{raw: line, fields: fields}
}

func extract(p *Pattern, sub []string, d FieldDefinition) string {
	if len(d.Groups) == 1 {
		return p.group(sub, d.Groups[0])
	}
	parts := make([]string, 0, len(d.Groups))
	for _, g := range d.Groups {
		if v := p.group(sub, g); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, d.Separator)
}

// Fields returns a copy of the field definitions in column order.
func (c *Columnizer) Fields() []FieldDefinition {
	l := c.cur.Load()
	out := make([]FieldDefinition, len(l.fields))
	for i, d := range l.fields {
		d.Groups = append([]string(nil), d.Groups...)
		out[i] = d
	}
	return out
}

// Visible returns the visible field definitions in column order.
func (c *Columnizer) Visible() []FieldDefinition {
	all := c.Fields()
	out := all[:0]
	for _, d := range all {
		if d.Visible {
			out = append(out, d)
		}
	}
	return out
}

// Patterns returns the patterns in priority order.
func (c *Columnizer) Patterns() []*Pattern {
	l := c.cur.Load()
	return append([]*Pattern(nil), l.patterns...)
}

// edit applies fn to a copy of the current layout and publishes it.
func (c *Columnizer) edit(fn func(l *layout) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.cur.Load()
	next := &layout{
		fields:   append([]FieldDefinition(nil), cur.fields...),
		patterns: append([]*Pattern(nil), cur.patterns...),
	}
	if err := fn(next); err != nil {
		return err
	}
	c.cur.Store(next)
	return nil
}

// AddPattern appends p at the lowest priority.
func (c *Columnizer) AddPattern(p *Pattern) error {
	if p == nil {
		return errors.New("nil pattern")
	}
	return c.edit(func(l *layout) error {
		l.patterns = append(l.patterns, p)
		return nil
	})
}

// RemovePattern removes the first pattern with the given name.
func (c *Columnizer) RemovePattern(name string) error {
	return c.edit(func(l *layout) error {
		for i, p := range l.patterns {
			if p.Name != name {
				continue
			}
			if len(l.patterns) == 1 {
				return ErrLastPattern
			}
			l.patterns = append(l.patterns[:i], l.patterns[i+1:]...)
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUnknownPattern, name)
	})
}

// AddField appends a column.
func (c *Columnizer) AddField(d FieldDefinition) error {
	nd, err := d.normalize()
	if err != nil {
		return err
	}
	return c.edit(func(l *layout) error {
		for _, f := range l.fields {
			if f.Name == nd.Name {
				return fmt.Errorf("%w: %s", ErrDuplicateField, nd.Name)
			}
		}
		l.fields = append(l.fields, nd)
		return nil
	})
}

// RemoveField removes the named column.
func (c *Columnizer) RemoveField(name string) error {
	return c.edit(func(l *layout) error {
		for i, f := range l.fields {
			if f.Name != name {
				continue
			}
			if len(l.fields) == 1 {
				return ErrLastField
			}
			l.fields = append(l.fields[:i], l.fields[i+1:]...)
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	})
}

// SetVisible shows or hides the named column.
func (c *Columnizer) SetVisible(name string, visible bool) error {
	return c.edit(func(l *layout) error {
		for i := range l.fields {
			if l.fields[i].Name == name {
				l.fields[i].Visible = visible
				return nil
			}
		}
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	})
}

// Replace swaps the whole configuration at once.
func (c *Columnizer) Replace(defs []FieldDefinition, patterns []*Pattern) error {
	next, err := newLayout(defs, patterns)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cur.Store(next)
	c.mu.Unlock()
	return nil
}
