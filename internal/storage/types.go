package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines files next to Path
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Journal kinds.
const (
	KindNote     = "note"
	KindCalendar = "calendar"
	KindReminder = "reminder"
	KindAlert    = "alert"
)

// JournalEntry records one relayed item.
type JournalEntry struct {
	At     time.Time `json:"at"`
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Detail string    `json:"detail,omitempty"`
	Error  string    `json:"error,omitempty"`
}
