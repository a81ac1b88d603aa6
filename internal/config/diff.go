package config

import (
	"reflect"
	"sort"
	"strings"

	logx "noterelay/pkg/logx"
)

var defaultNotifier = NotifierConfig{
	Workers:         2,
	QueueSize:       512,
	RatePerSec:      3,
	RetryBase:       "500ms",
	RetryMaxDelay:   "10s",
	DedupWindow:     "2m",
	DedupMaxEntries: 2000,
}

// SummarizeChange returns the changed top-level sections and safe log
// attrs for them. Tokens and passwords are reported only as set/unset.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token || ot.OwnerUserID != nt.OwnerUserID || ot.GroupLog != nt.GroupLog ||
		strings.TrimSpace(ot.PollTimeout) != strings.TrimSpace(nt.PollTimeout) || ot.MaxDownload != nt.MaxDownload {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
			logx.Bool("telegram.owner_changed", ot.OwnerUserID != nt.OwnerUserID),
			logx.Bool("telegram.group_log_set", nt.GroupLog != 0),
			logx.String("telegram.poll_timeout", strings.TrimSpace(nt.PollTimeout)),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	ob, nb := oldCfg.Backend, newCfg.Backend
	if ob != nb {
		changed = append(changed, "backend")
		attrs = append(attrs,
			logx.String("backend.base_url", strings.TrimSpace(nb.BaseURL)),
			logx.Bool("backend.token_set", nb.Token != ""),
			logx.Bool("backend.credentials_changed", ob.Username != nb.Username || ob.Password != nb.Password),
		)
	}

	if !reflect.DeepEqual(oldCfg.Alerts, newCfg.Alerts) {
		changed = append(changed, "alerts")
		attrs = append(attrs,
			logx.Bool("alerts.tasks", newCfg.Alerts.TasksEnabled()),
			logx.Bool("alerts.events", newCfg.Alerts.EventsEnabled()),
			logx.String("alerts.timezone", strings.TrimSpace(newCfg.Alerts.Timezone)),
		)
	}

	on, nn := oldCfg.Notifier, newCfg.Notifier
	if on == nil {
		on = &defaultNotifier
	}
	if nn == nil {
		nn = &defaultNotifier
	}
	oldN, newN := *on, *nn
	oldN.Enabled, newN.Enabled = nil, nil
	if oldN != newN || on.IsEnabled() != nn.IsEnabled() {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Bool("notifier.enabled", nn.IsEnabled()),
			logx.Int("notifier.workers", nn.Workers),
			logx.Int("notifier.rate_per_sec", nn.RatePerSec),
			logx.Int("notifier.retry_max", nn.RetryMax),
		)
	}

	var oldS, newS StorageConfig
	if oldCfg.Storage != nil {
		oldS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		newS = *newCfg.Storage
	}
	if oldS != newS {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(newS.Path) != ""),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// RestartRequired lists the changed sections that hot reload cannot apply.
func RestartRequired(sections []string) []string {
	var out []string
	for _, s := range sections {
		switch s {
		case "backend", "alerts", "storage":
			out = append(out, s)
		}
	}
	return out
}
