// Package cli provides the interactive fintrack command-line client.
//
// It wires configuration, the local store, the remote API, the connectivity
// monitor, the sync engine and the realtime chat channel behind a small REPL.
// Every write lands in the local store first; when the server is reachable the
// sync engine pushes it right away, otherwise it waits for the monitor to see
// the server again.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
