package notifier

import (
	"time"

	kit "noterelay/internal/transport"
)

// Config controls the async notification pipeline.
type Config struct {
	Enabled         bool
	Workers         int
	QueueSize       int
	RatePerSec      int
	RetryMax        int
	RetryBase       time.Duration
	RetryMaxDelay   time.Duration
	DedupWindow     time.Duration
	DedupMaxEntries int
	PersistDedup    bool
}

// Notification is one outgoing message. Key identifies it for dedup; an
// empty Key falls back to a hash of target and text.
type Notification struct {
	Key     string
	Target  kit.ChatTarget
	Text    string
	Options *kit.SendOptions

	// Journal, when Kind is set, is appended after a successful send.
	Kind  string
	Title string
}
