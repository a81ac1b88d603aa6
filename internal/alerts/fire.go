package alerts

import (
	"time"

	"noterelay/pkg/timefmt"
)

// Thresholds are the lead times, in minutes, at which a regular item
// alerts: one week, two days, one day, one hour and ten minutes.
var Thresholds = [...]int64{10080, 2880, 1440, 60, 10}

// Alert is a fired notification for one item.
type Alert struct {
	Item    DueItem
	Minutes int64 // floored minutes remaining when fired
}

// Text renders the lead time followed by the item title, e.g. "1h Standup".
func (a Alert) Text() string {
	return timefmt.FormatMinutes(a.Minutes) + " " + a.Item.Title
}

// MinutesRemaining floors the time left until due to whole minutes.
func MinutesRemaining(due, now time.Time) int64 {
	return int64(due.Sub(now) / time.Minute)
}

// ShouldFire reports whether item alerts at now. Items due at or before
// now never fire. Reminders fire in their last minute; everything else
// fires when the floored minutes left equal a threshold.
func ShouldFire(item DueItem, now time.Time) (int64, bool) {
	if !item.Due.After(now) {
		return 0, false
	}
	left := MinutesRemaining(item.Due, now)
	if item.Reminder {
		return left, left == 0
	}
	for _, th := range Thresholds {
		if left == th {
			return left, true
		}
	}
	return left, false
}

// Evaluate returns the alerts due at now, in input order.
func Evaluate(items []DueItem, now time.Time) []Alert {
	var out []Alert
	for _, it := range items {
		if left, ok := ShouldFire(it, now); ok {
			out = append(out, Alert{Item: it, Minutes: left})
		}
	}
	return out
}
