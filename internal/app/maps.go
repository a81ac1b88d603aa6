package app

import (
	"fmt"
	"strings"
	"time"

	"noterelay/internal/alerts"
	"noterelay/internal/backend"
	"noterelay/internal/config"
	"noterelay/internal/notifier"
	"noterelay/internal/storage"
	logx "noterelay/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled && cfg.Telegram.GroupLog != 0,
			ChatID:     cfg.Telegram.GroupLog,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapBackendConfig(cfg *config.Config) (backend.Config, error) {
	timeout, err := config.ParseDurationOrDefault("backend.timeout", cfg.Backend.Timeout, 15*time.Second)
	if err != nil {
		return backend.Config{}, err
	}
	return backend.Config{
		BaseURL:  strings.TrimSpace(cfg.Backend.BaseURL),
		Username: cfg.Backend.Username,
		Password: cfg.Backend.Password,
		Token:    cfg.Backend.Token,
		Timeout:  timeout,
	}, nil
}

func mapAlertsConfig(cfg *config.Config) (alerts.Config, error) {
	loc, err := config.Location(cfg.Alerts.Timezone)
	if err != nil {
		return alerts.Config{}, err
	}
	grace, err := config.ParseDurationOrDefault("alerts.grace", cfg.Alerts.Grace, 2*time.Second)
	if err != nil {
		return alerts.Config{}, err
	}
	timeout, err := config.ParseDurationOrDefault("alerts.timeout", cfg.Alerts.Timeout, 45*time.Second)
	if err != nil {
		return alerts.Config{}, err
	}
	return alerts.Config{
		Tasks:    cfg.Alerts.TasksEnabled(),
		Events:   cfg.Alerts.EventsEnabled(),
		Grace:    grace,
		Timeout:  timeout,
		Location: loc,
	}, nil
}

// mapNotifierConfig parses durations and fills defaults. An omitted
// section or enabled key means on; retries stay off unless configured.
func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	out := notifier.Config{
		Enabled:         true,
		Workers:         2,
		QueueSize:       512,
		RatePerSec:      3,
		RetryBase:       500 * time.Millisecond,
		RetryMaxDelay:   10 * time.Second,
		DedupWindow:     2 * time.Minute,
		DedupMaxEntries: 2000,
	}
	if cfg == nil || cfg.Notifier == nil {
		return out, nil
	}
	n := cfg.Notifier
	out.Enabled = n.IsEnabled()
	out.PersistDedup = n.PersistDedup
	if n.Workers != 0 {
		out.Workers = n.Workers
	}
	if n.QueueSize != 0 {
		out.QueueSize = n.QueueSize
	}
	if n.RatePerSec != 0 {
		out.RatePerSec = n.RatePerSec
	}
	out.RetryMax = n.RetryMax
	if n.DedupMaxEntries != 0 {
		out.DedupMaxEntries = n.DedupMaxEntries
	}

	var err error
	if out.RetryBase, err = config.ParseDurationOrDefault("notifier.retry_base", n.RetryBase, out.RetryBase); err != nil {
		return notifier.Config{}, err
	}
	if out.RetryMaxDelay, err = config.ParseDurationOrDefault("notifier.retry_max_delay", n.RetryMaxDelay, out.RetryMaxDelay); err != nil {
		return notifier.Config{}, err
	}
	if out.DedupWindow, err = config.ParseDurationOrDefault("notifier.dedup_window", n.DedupWindow, out.DedupWindow); err != nil {
		return notifier.Config{}, err
	}

	if out.Workers < 0 || out.QueueSize < 0 || out.RatePerSec < 0 || out.RetryMax < 0 || out.DedupMaxEntries < 0 {
		return notifier.Config{}, fmt.Errorf("notifier: numeric fields must be >= 0")
	}
	return out, nil
}

// mapStorageConfig returns enabled=false for an omitted section or driver
// "none".
func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "", "none":
		return storage.Config{}, false, nil
	case "file":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}
