package colorize

import (
	"fmt"

	"github.com/grafana/regexp"

	"github.com/five82/loglens/internal/columnize"
	"github.com/five82/loglens/internal/observe"
	"github.com/five82/loglens/internal/rules"
)

// Input is the value rules are evaluated against. A nil record means no
// row is bound yet.
type Input = *columnize.Record

func compile(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	return re, nil
}

// RawMatcher matches a regular expression anywhere in the raw line.
type RawMatcher struct {
	observe.Signal
	re *regexp.Regexp
}

var _ rules.Matcher[Input] = (*RawMatcher)(nil)

// NewRawMatcher compiles expr.
func NewRawMatcher(expr string) (*RawMatcher, error) {
	re, err := compile(expr)
	if err != nil {
		return nil, err
	}
	return &RawMatcher{re: re}, nil
}

// Test reports whether the raw line contains a match.
func (m *RawMatcher) Test(r Input) bool {
	return r != nil && m.re.MatchString(r.Raw())
}

// Pattern returns the current expression.
func (m *RawMatcher) Pattern() string { return m.re.String() }

// SetPattern replaces the expression. An invalid expression is rejected and
// the matcher is left unchanged.
func (m *RawMatcher) SetPattern(expr string) error {
	if expr == m.re.String() {
		return nil
	}
	re, err := compile(expr)
	if err != nil {
		return err
	}
	m.re = re
	m.Notify()
	return nil
}

// FieldMatcher matches a regular expression anywhere in one named field.
type FieldMatcher struct {
	observe.Signal
	field string
	re    *regexp.Regexp
}

var _ rules.Matcher[Input] = (*FieldMatcher)(nil)

// NewFieldMatcher compiles expr for field.
func NewFieldMatcher(field, expr string) (*FieldMatcher, error) {
	re, err := compile(expr)
	if err != nil {
		return nil, err
	}
	return &FieldMatcher{field: field, re: re}, nil
}

// Test reports whether the field value contains a match.
func (m *FieldMatcher) Test(r Input) bool {
	return r != nil && m.re.MatchString(r.Field(m.field))
}

// Field returns the matched field name.
func (m *FieldMatcher) Field() string { return m.field }

// Pattern returns the current expression.
func (m *FieldMatcher) Pattern() string { return m.re.String() }

// SetField points the matcher at another field.
func (m *FieldMatcher) SetField(field string) {
	if field == m.field {
		return
	}
	m.field = field
	m.Notify()
}

// SetPattern replaces the expression. An invalid expression is rejected and
// the matcher is left unchanged.
func (m *FieldMatcher) SetPattern(expr string) error {
	if expr == m.re.String() {
		return nil
	}
	re, err := compile(expr)
	if err != nil {
		return err
	}
	m.re = re
	m.Notify()
	return nil
}
