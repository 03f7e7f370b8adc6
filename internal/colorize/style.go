package colorize

import "github.com/charmbracelet/lipgloss"

// Style is a display attribute chosen for a row. Colors are anything
// lipgloss accepts: hex ("#FF6B6B") or ANSI numbers ("9").
type Style struct {
	Foreground string
	Background string
	Bold       bool
	Italic     bool
	Underline  bool
	Faint      bool
}

// IsZero reports whether the style sets nothing.
func (s Style) IsZero() bool {
	return s == Style{}
}

// Lipgloss converts the style.
func (s Style) Lipgloss() lipgloss.Style {
	st := lipgloss.NewStyle()
	if s.Foreground != "" {
		st = st.Foreground(lipgloss.Color(s.Foreground))
	}
	if s.Background != "" {
		st = st.Background(lipgloss.Color(s.Background))
	}
	if s.Bold {
		st = st.Bold(true)
	}
	if s.Italic {
		st = st.Italic(true)
	}
	if s.Underline {
		st = st.Underline(true)
	}
	if s.Faint {
		st = st.Faint(true)
	}
	return st
}

// Render applies the style to text.
func (s Style) Render(text string) string {
	if s.IsZero() {
		return text
	}
	return s.Lipgloss().Render(text)
}

// Over fills attributes unset in s from base.
func (s Style) Over(base Style) Style {
	if s.Foreground == "" {
		s.Foreground = base.Foreground
	}
	if s.Background == "" {
		s.Background = base.Background
	}
	s.Bold = s.Bold || base.Bold
	s.Italic = s.Italic || base.Italic
	s.Underline = s.Underline || base.Underline
	s.Faint = s.Faint || base.Faint
	return s
}
