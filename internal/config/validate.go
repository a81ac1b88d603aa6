package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks a fully resolved config (file plus environment). It is
// run at startup and before a hot reload is committed.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, fmt.Errorf("telegram.token is required (or set %s)", EnvBotToken))
	}
	if cfg.Telegram.OwnerUserID == 0 {
		errs = append(errs, fmt.Errorf("telegram.owner_user_id is required (or set %s)", EnvUserID))
	}
	if cfg.Telegram.MaxDownload < 0 {
		errs = append(errs, errors.New("telegram.max_download must be >= 0"))
	}
	if strings.TrimSpace(cfg.Backend.BaseURL) == "" {
		errs = append(errs, fmt.Errorf("backend.base_url is required (or set %s)", EnvBackendHost))
	}
	if cfg.Backend.Token == "" && (cfg.Backend.Username == "" || cfg.Backend.Password == "") {
		errs = append(errs, errors.New("backend needs either a token or username and password"))
	}
	if cfg.Logging.Telegram.Enabled && cfg.Telegram.GroupLog == 0 {
		errs = append(errs, errors.New("logging.telegram.enabled requires telegram.group_log"))
	}
	if cfg.Logging.Telegram.RatePerSec < 0 {
		errs = append(errs, errors.New("logging.telegram.rate_per_sec must be >= 0"))
	}

	for _, d := range []struct{ path, raw string }{
		{"telegram.poll_timeout", cfg.Telegram.PollTimeout},
		{"backend.timeout", cfg.Backend.Timeout},
		{"alerts.grace", cfg.Alerts.Grace},
		{"alerts.timeout", cfg.Alerts.Timeout},
	} {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			errs = append(errs, err)
		}
	}
	if g, err := ParseDurationField("alerts.grace", cfg.Alerts.Grace); err == nil && g >= time.Minute {
		errs = append(errs, errors.New("alerts.grace must be below 1m"))
	}
	if _, err := Location(cfg.Alerts.Timezone); err != nil {
		errs = append(errs, err)
	}

	if n := cfg.Notifier; n != nil {
		for _, d := range []struct{ path, raw string }{
			{"notifier.retry_base", n.RetryBase},
			{"notifier.retry_max_delay", n.RetryMaxDelay},
			{"notifier.dedup_window", n.DedupWindow},
		} {
			if _, err := ParseDurationField(d.path, d.raw); err != nil {
				errs = append(errs, err)
			}
		}
		if n.Workers < 0 || n.QueueSize < 0 || n.RatePerSec < 0 || n.RetryMax < 0 || n.DedupMaxEntries < 0 {
			errs = append(errs, errors.New("notifier: numeric fields must be >= 0"))
		}
	}

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none":
		case "file":
			if strings.TrimSpace(s.Path) == "" {
				errs = append(errs, errors.New("storage.path is required when storage.driver=file"))
			}
		case "sqlite", "sqlite3":
			if strings.TrimSpace(s.Path) == "" {
				errs = append(errs, errors.New("storage.path is required when storage.driver=sqlite"))
			}
			if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
				errs = append(errs, err)
			}
		default:
			errs = append(errs, fmt.Errorf("unknown storage.driver: %s", s.Driver))
		}
	}
	return errors.Join(errs...)
}

// Location resolves an IANA zone name. Empty means time.Local.
func Location(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("alerts.timezone: invalid %q: %w", name, err)
	}
	return loc, nil
}
