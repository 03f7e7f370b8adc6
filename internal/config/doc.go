// Package config handles loading and parsing loglens configuration files.
//
// # Overview
//
// The configuration describes three things: how lines are tailed and
// batched, how each line is split into named columns, and which color rule
// applies to a row. Everything has a built-in default so loglens works on a
// fresh machine without a config file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/loglens/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists, sections it omits keep their defaults
//
// # Default Values
//
//   - Batch size: 200 lines
//   - Flush interval: 100ms
//   - Retained records: 10000 (0 means unbounded)
//   - Backlog on open: 500 lines
//   - Poll interval: 250ms
//   - Columns: Time, Level, Component, Message
//   - Rules: ERROR/FATAL red, WARN yellow, DEBUG/TRACE faint cyan
//
// The default pattern understands lines of the form
//
//	2025-10-08 21:01:05 INFO [encoder] encoding started
//
// Lines that match no pattern land whole in the first column.
//
// # TOML Format
//
//	[ingest]
//	batch_size = 200
//	flush_interval = "100ms"
//	skip_empty_lines = false
//	max_records = 10000
//	backlog = 500
//	poll_interval = "250ms"
//	from_start = false
//
//	[[columns]]
//	name = "level"
//	header = "Level"
//	width = 5
//
//	[[columns]]
//	name = "msg"
//	groups = ["msg", "detail"]
//	separator = " "
//
//	[[patterns]]
//	name = "standard"
//	expr = '(?P<level>[A-Z]+) (?P<msg>.*)'
//
//	[default_style]
//	fg = "#C0C0C0"
//
//	[[rules]]
//	name = "error"
//	field = "level"
//	pattern = "^ERROR"
//	fg = "#FF6B6B"
//	bold = true
//
// A [[columns]] or [[patterns]] section replaces the default list entirely.
// Patterns must match the whole trimmed line and are tried in order; named
// capture groups feed the columns that list them. Rules without a field
// match anywhere in the raw line. A rule with enabled = false is skipped.
//
// # Path Expansion
//
// The package handles several path formats:
//
//   - Absolute paths: Used as-is ("/var/log/app.log")
//   - Tilde paths: Expanded to home directory ("~/.config/loglens")
//   - Relative paths: Converted to absolute based on current directory
//
// # Error Handling
//
// Load returns an error only when the file exists but cannot be used:
//
//   - "open config": file exists but cannot be opened
//   - "read config": I/O failure while reading
//   - "parse config": invalid TOML or an unparseable duration
//   - "invalid config": a pattern or rule fails to compile, or the
//     column list is inconsistent
//
// Every expression is compiled during Load so a broken config is reported
// before any file is opened.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return fmt.Errorf("load config: %w", err)
//	}
//	columns, err := cfg.Columnizer()
//	if err != nil {
//	    return err
//	}
//	colors, err := cfg.Colorizer()
//
// # Reloading
//
// The UI reloads by calling Load again and pushing the result into the live
// columnizer (Replace) and colorizer (Apply). Both keep their identity, so
// rows already on screen restyle in place.
//
// # Testing Considerations
//
// Tests set HOME to a temporary directory so the default path never
// touches the real user config.
package config
