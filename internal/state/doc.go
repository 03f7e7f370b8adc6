// Package state provides thread-safe session state for the loglens UI.
//
// # Overview
//
// A tailing session reports its lifecycle through the ingest.Monitor
// callbacks. Those calls arrive from the session's own goroutines while the
// UI renders from its event loop, so Store sits between them and hands out
// copies.
//
//	Producer (ingest.Session):      Consumer (UI):
//	┌──────────────────────┐       ┌──────────────────────┐
//	│ Started / Delivered  │       │                      │
//	│ Rotated / FileMissing│──────→│ store.Snapshot()     │
//	│ Failed / Stopped     │(mutex)│       ↓              │
//	└──────────────────────┘       │ render status bar    │
//	                               └──────────────────────┘
//
// # Session Identity
//
// Every session has an id. Started replaces the snapshot; every other
// callback is applied only when its id matches the current one. Stopping a
// session and starting another is therefore safe even though the old
// session's finisher goroutine may report Stopped after the new session has
// already delivered lines.
//
// # Phases
//
//   - idle: nothing started yet
//   - tailing: reading lines
//   - waiting for file: the file is missing and the tailer is polling for it
//   - failed: the session ended with an error (LastError)
//   - stopped: the session ended cleanly
//
// # Concurrency Model
//
// Store uses a readers-writer lock. Callbacks take the write lock for a few
// field updates; Snapshot takes the read lock and copies. The zero Store is
// ready to use.
//
// # Usage Example
//
//	store := &state.Store{}
//	sess, err := ingest.Start(ctx, opts, columns, list, loop, store)
//	...
//	snap := store.Snapshot()
//	fmt.Printf("%s: %d lines (%s)\n", snap.Path, snap.LinesDelivered, snap.Phase)
package state
