package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/loglens/internal/state"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	content := m.buildStatusContent(styles, bg)

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		MaxHeight(1).
		Render(content)
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle) string {
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot

	var parts []string

	// Logo
	parts = append(parts, bg.Render("loglens", styles.Logo))

	// Session phase
	parts = append(parts, styles.Badge(m.theme.PhaseColor(snap.Phase)).Render(phaseLabel(snap.Phase)))

	// Session counters
	lines := formatCount(snap.LinesDelivered)
	if compact {
		parts = append(parts,
			bg.Render("L:", styles.MutedText)+bg.Space()+bg.Render(lines, styles.Text))
	} else {
		parts = append(parts,
			bg.Render("Lines:", styles.MutedText)+bg.Space()+bg.Render(lines, styles.Text)+
				bg.Spaces(2)+bg.Render("•", styles.FaintText)+bg.Spaces(2)+
				bg.Render("Batches:", styles.MutedText)+bg.Space()+bg.Render(formatCount(snap.Batches), styles.Text))
	}

	if snap.Rotations > 0 {
		parts = append(parts,
			bg.Render("Rotated:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", snap.Rotations), styles.InfoText))
	}

	// Timestamp with relative time
	if !compact {
		if ts := formatTimestamp(snap.LastUpdated, time.Now()); ts != "" {
			parts = append(parts, bg.Render(ts, styles.MutedText))
		}
	}

	// Error indicator
	if snap.LastError != nil {
		maxErr := 80
		if compact {
			maxErr = 40
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(snap.LastError.Error(), maxErr), styles.DangerText))
	}

	return bg.Join(parts, "  ")
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 || len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// formatTimestamp formats the last update time with relative indicator.
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	since := now.Sub(t)
	out := t.Format("15:04:05")

	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	// Command bar uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }

	followLabel := "Pause"
	if !m.table.follow {
		followLabel = "Follow"
	}
	commands := []cmd{
		{"Space", followLabel},
		{"/", "Search"},
		{"n/N", "Next/Prev"},
		{"1-9", "Columns"},
		{"c", "Colors"},
		{"R", "Reload"},
		{"r", "Restart"},
		{"?", "More"},
	}
	if m.width < LayoutCompactWidth {
		commands = append(commands[:3], commands[len(commands)-1])
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	// Show active search pattern
	if m.search.query != "" {
		segments = append(segments,
			bg.Render("/"+truncate(m.search.query, 18), styles.AccentText))
	}

	// Add theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxHeight(1).Render(strings.Join(segments, sep))
}

// phaseLabel is the plain-mode rendering of a phase.
func phaseLabel(p state.Phase) string {
	return strings.ToUpper(p.String())
}
