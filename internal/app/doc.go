// Package app is the composition root for loglens.
//
// # Overview
//
// Run wires configuration, preferences, the columnizer, the colorizer, the
// session store and either the terminal UI or the plain printer, then blocks
// until the context is cancelled, the user quits or, in plain mode, the
// session ends.
//
// # Architecture
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Columns, patterns, rules, ingest
//	       ├─────> prefs.Load()         Theme, hidden columns, last file
//	       ├─────> state.Store{}        Session status for the header
//	       ├─────> NewController()      Owns the tailing session
//	       └─────> ui.Run() / runPlain  Consumer context (blocks)
//
//	Session pipeline:
//	┌─────────────────────────────────────────┐
//	│ logtail.Tailer ─> ingest.Buffer          │
//	│   └─> Dispatcher ─> Sink.AppendBatch()   │
//	│         (UI event loop or plain Loop)    │
//	└─────────────────────────────────────────┘
//
// # Controller
//
// The Controller opens a path or glob (newest match wins), restarts it and
// reloads the config into the live columnizer and colorizer. Every method
// runs on the consumer context, so reloads never race with batch delivery.
// Command-line Overrides are re-applied on every reload.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Config file present but invalid
//   - No path given and none remembered in prefs
//   - The first open failing, such as a glob with no matches
//
// Recoverable errors (logged, shown in the header):
//   - The file disappearing; the tailer waits for it to come back
//   - A reload with an invalid config; the previous config stays active
//
// # Plain Mode
//
// With Options.Plain the records go to Options.Stdout through ui.Printer.
// A receive on Options.Reload reloads the config, which is how SIGHUP is
// handled.
//
// # Usage Example
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := app.Run(ctx, app.Options{Path: "/var/log/app/*.log"}); err != nil {
//		log.Fatalf("loglens failed: %v", err)
//	}
package app
