// Package ui provides the loglens terminal interface and the plain-mode
// printer.
//
// # Architecture Overview
//
// The interface is a Bubble Tea program. Its event loop is the consumer
// context: batches delivered by the ingestion buffer arrive as messages and
// run there, so the record list, the columnizer's visibility flags and the
// colorizer's rule set are only ever touched from one goroutine.
//
// # Package Structure
//
//   - model.go: Model, Update/View, key dispatch and Run
//   - table.go: record window, column layout, search
//   - header.go: session status bar and command hints
//   - help.go: help overlay generated from the key map
//   - render.go: background-safe rendering and the titled box
//   - plain.go: Printer, the sink used without a terminal UI
//   - theme.go, keys.go, layout.go, strings.go: supporting pieces
//
// # Rendering
//
// Only the visible window is rendered. The model keeps one colorizer
// binding per screen line and re-points it at whichever record occupies
// that line, so restyling after a rule edit costs one evaluation per
// visible row. Lines no pattern recognized are shown whole.
//
// # Event Flow
//
//  1. Run creates the program and an ingest.Loop that forwards work to it
//  2. The controller starts a session dispatching onto that loop
//  3. Delivered batches arrive as runMsg values and append to the list
//  4. A periodic tick copies the session snapshot from state.Store
//  5. Keys scroll, search, toggle columns and colors, reload or restart
//
// # Preferences
//
// Theme, hidden columns, the color switch and the last file are saved to
// prefs.toml whenever they change and re-applied after a config reload.
package ui
