package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/loglens/internal/columnize"
)

// helpSections builds the overlay content from the key map so the two
// cannot drift.
func (m Model) helpSections() []helpSection {
	titles := []string{"Navigation", "Paging", "Records", "Columns & Config", "General"}
	groups := m.keys.FullHelp()
	sections := make([]helpSection, 0, len(groups))
	for i, group := range groups {
		sec := helpSection{title: titles[i]}
		for _, b := range group {
			h := b.Help()
			sec.items = append(sec.items, helpItem{key: h.Key, desc: h.Desc})
		}
		sections = append(sections, sec)
	}
	return sections
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	sections := m.helpSections()

	var b strings.Builder

	// Title
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 36)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(10)

	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")

		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}

		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	// Column numbers for the 1-9 toggles
	var fields []columnize.FieldDefinition
	if m.columns != nil {
		fields = m.columns.Fields()
	}
	if len(fields) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.AccentText.Bold(true).Render("Columns"))
		b.WriteString("\n")
		for i, f := range fields {
			if i >= 9 {
				break
			}
			mark := "·"
			if f.Visible {
				mark = "✓"
			}
			b.WriteString(keyStyle.Render(string(rune('1' + i))))
			b.WriteString(styles.Text.Render(mark + " " + f.Header))
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(44)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(strings.TrimRight(b.String(), "\n")),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}
