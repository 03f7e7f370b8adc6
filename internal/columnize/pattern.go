package columnize

import (
	"fmt"
	"strings"

	"github.com/grafana/regexp"
)

// Pattern is a compiled line pattern. It only matches when it covers the
// whole (trimmed) line.
type Pattern struct {
	Name string
	Expr string

	re     *regexp.Regexp
	groups map[string]int
}

// CompilePattern compiles expr for full-line matching. Named groups may use
// either (?P<name>...) or (?<name>...).
func CompilePattern(name, expr string) (*Pattern, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("pattern %q: empty expression", name)
	}
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", name, err)
	}
	groups := make(map[string]int)
	for i, g := range re.SubexpNames() {
		if g != "" {
			if _, dup := groups[g]; !dup {
				groups[g] = i
			}
		}
	}
	return &Pattern{Name: name, Expr: expr, re: re, groups: groups}, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
func MustCompilePattern(name, expr string) *Pattern {
	p, err := CompilePattern(name, expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Groups returns the named capturing groups of the pattern.
func (p *Pattern) Groups() []string {
	out := make([]string, 0, len(p.groups))
	for _, g := range p.re.SubexpNames() {
		if _, ok := p.groups[g]; ok && g != "" {
			out = append(out, g)
		}
	}
	return out
}

// match returns submatches for line, or nil if the pattern does not cover it.
func (p *Pattern) match(line string) []string {
	return p.re.FindStringSubmatch(line)
}

func (p *Pattern) group(sub []string, name string) string {
	i, ok := p.groups[name]
	if !ok || i >= len(sub) {
		return ""
	}
	return sub[i]
}
