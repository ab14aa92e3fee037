// Package cli provides the interactive fieldreport command-line client.
//
// It wires configuration, the local SQLite store, the submission service and
// an interactive REPL that keeps working while the endpoint is unreachable.
// Typical flow: resume the saved draft, start the background connectivity
// watcher and sweeper, then execute user commands until exit.
//
// Key features:
//   - Compose an entry: location, category, fields, table rows, tags, notes, photos
//   - Every edit is written through to the draft slot
//   - Submit once; failed deliveries are queued and swept later
//   - Inspect and sweep the pending queue
//
// The REPL is started via App.Run(ctx, in), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
