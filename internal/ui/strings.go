package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}

// truncateMiddle shortens a string by removing characters from the middle,
// keeping more of the end so file names stay readable.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || value == "" {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	keep := limit - 1
	suffix := keep * 2 / 3
	prefix := keep - suffix
	return string(runes[:prefix]) + "…" + string(runes[len(runes)-suffix:])
}

// fitCell makes value exactly width display cells wide. Control characters
// that would break the row, such as tabs and multi-line field separators,
// are flattened to spaces first.
func fitCell(value string, width int) string {
	if width <= 0 {
		return ""
	}
	value = flatten(value)
	if lipgloss.Width(value) > width {
		value = truncate(value, width)
		for lipgloss.Width(value) > width {
			r := []rune(value)
			if len(r) <= 2 {
				value = ""
				break
			}
			value = string(r[:len(r)-2]) + "…"
		}
	}
	return padRight(value, width)
}

// padRight pads a string with spaces to the given display width.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if width <= 0 || w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

var flattener = strings.NewReplacer("\t", "    ", "\r", "", "\n", " ")

func flatten(s string) string {
	if !strings.ContainsAny(s, "\t\r\n") {
		return s
	}
	return flattener.Replace(s)
}
