// Package timefmt renders short lead-time strings ("2d", "1h30m") and
// parses the loose date/time specs typed into chat.
package timefmt

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
	minutesPerWeek = 7 * minutesPerDay
)

// FormatDuration renders d using the largest whole unit that fits:
// weeks, then days, then hours (with zero-padded remainder minutes when
// non-zero), then minutes. Partial units are floored. Negative spans
// render as "0m".
func FormatDuration(d time.Duration) string {
	return FormatMinutes(int64(d / time.Minute))
}

// FormatMinutes is FormatDuration for a whole-minute count.
func FormatMinutes(m int64) string {
	switch {
	case m <= 0:
		return "0m"
	case m >= minutesPerWeek:
		return strconv.FormatInt(m/minutesPerWeek, 10) + "w"
	case m >= minutesPerDay:
		return strconv.FormatInt(m/minutesPerDay, 10) + "d"
	case m >= minutesPerHour:
		h, rem := m/minutesPerHour, m%minutesPerHour
		if rem == 0 {
			return strconv.FormatInt(h, 10) + "h"
		}
		return fmt.Sprintf("%dh%02dm", h, rem)
	default:
		return strconv.FormatInt(m, 10) + "m"
	}
}

var ErrInvalidSpec = errors.New("timefmt: expected YYYY-MM-DD [HH:MM]")

// The separator between hour and minute may be any single character.
var specRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[\sT](\d{2}).(\d{2}))?$`)

// ParseSpec parses "YYYY-MM-DD" optionally followed by a space or "T" and
// "HH:MM" into a wall-clock time in loc. Seconds are always zero and a
// missing time means midnight. Out-of-range fields are rejected rather
// than normalised.
func ParseSpec(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	m := specRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSpec, s)
	}

	n := make([]int, 5)
	for i, g := range m[1:] {
		if g == "" {
			continue
		}
		v, err := strconv.Atoi(g)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSpec, s)
		}
		n[i] = v
	}
	year, month, day, hour, minute := n[0], time.Month(n[1]), n[2], n[3], n[4]

	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if t.Month() != month || t.Day() != day || t.Hour() != hour || t.Minute() != minute {
		return time.Time{}, fmt.Errorf("timefmt: %q is not a valid date/time", s)
	}
	return t, nil
}
