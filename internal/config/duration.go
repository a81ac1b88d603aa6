package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a Go duration string such as "45s" or "2m"
// found at the config key path. Blank means zero; negative values are
// rejected. Errors name the key, e.g. "alerts.grace: invalid duration".
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with blank or zero mapped
// to def. The app maps use it for alerts, backend, notifier and storage
// timings.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
