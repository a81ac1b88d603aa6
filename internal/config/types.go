package config

// Config is the whole file. It is decoded strictly: unknown keys are an
// error in both JSON and YAML.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Backend  BackendConfig  `json:"backend"`
	Alerts   AlertsConfig   `json:"alerts"`

	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// OwnerUserID is the only account whose updates are handled.
	// Alerts are sent to this chat as well.
	OwnerUserID int64 `json:"owner_user_id"`
	// GroupLog receives forwarded log lines when logging.telegram is enabled.
	GroupLog int64 `json:"group_log,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// MaxDownload caps calendar attachments, in bytes. 0 means 1 MiB.
	MaxDownload int64 `json:"max_download,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// BackendConfig points at the note server. BaseURL may be "host:port" or a
// full http(s) URL. A configured Token skips the login call.
type BackendConfig struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

// AlertsConfig controls the two polling cycles.
//
// Enabled, Tasks and Events are pointers so an omitted toggle means "on".
type AlertsConfig struct {
	Enabled *bool `json:"enabled,omitempty"`
	Tasks   *bool `json:"tasks,omitempty"`
	Events  *bool `json:"events,omitempty"`

	// Grace is the offset after each minute boundary (default "2s").
	Grace string `json:"grace,omitempty"`
	// Timeout bounds one cycle (default "45s").
	Timeout string `json:"timeout,omitempty"`
	// Timezone is an IANA name used for due times and replies. Empty means local.
	Timezone string `json:"timezone,omitempty"`
}

// NotifierConfig controls the async delivery pipeline.
//
// All durations are Go duration strings. If the section is omitted the
// notifier is enabled with defaults, as it is when enabled is unset.
type NotifierConfig struct {
	Enabled         *bool  `json:"enabled,omitempty"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
	PersistDedup    bool   `json:"persist_dedup,omitempty"`
}

// StorageConfig controls the optional journal.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./noterelay.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

func enabledOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// TasksEnabled reports the effective task cycle toggle.
func (a AlertsConfig) TasksEnabled() bool {
	return enabledOr(a.Enabled, true) && enabledOr(a.Tasks, true)
}

// EventsEnabled reports the effective event cycle toggle.
func (a AlertsConfig) EventsEnabled() bool {
	return enabledOr(a.Enabled, true) && enabledOr(a.Events, true)
}

// IsEnabled reports whether the delivery pipeline runs. Unset means on.
func (n NotifierConfig) IsEnabled() bool { return enabledOr(n.Enabled, true) }
