package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the header drops
	// counters and the command bar shortens.
	LayoutCompactWidth = 100

	// LayoutMinColumnWidth is the narrowest a flexible column shrinks to.
	LayoutMinColumnWidth = 8
)

// Chrome rows around the record box: header, command bar, status line.
const (
	chromeRows = 3
	boxBorders = 2
	headerRows = 1
)

// Timing constants.
const (
	// DefaultUIInterval is the status refresh interval.
	DefaultUIInterval = time.Second

	// NoticeTTL is how long a transient notice stays in the status line.
	NoticeTTL = 4 * time.Second
)
