// Package storage persists the relay journal and notifier dedup state.
//
// Drivers: "none" (disabled), "file" (JSON Lines) and "sqlite"
// (modernc.org/sqlite with goose migrations).
package storage
