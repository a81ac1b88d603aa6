package alerts

import (
	"testing"
	"time"
)

// tick simulates minute-aligned polls with a grace offset, from well
// before due until after it, and counts fired alerts per lead time.
func tick(item DueItem, grace time.Duration) map[int64]int {
	fired := map[int64]int{}
	start := item.Due.Truncate(time.Minute).Add(-8 * 24 * time.Hour)
	end := item.Due.Add(2 * time.Minute)
	for now := start.Add(grace); now.Before(end); now = now.Add(time.Minute) {
		for _, a := range Evaluate([]DueItem{item}, now) {
			fired[a.Minutes]++
		}
	}
	return fired
}

func TestThresholds_FireExactlyOnce(t *testing.T) {
	t.Parallel()

	for _, due := range []time.Time{
		time.Date(2024, 6, 10, 9, 0, 0, 0, loc),
		time.Date(2024, 6, 10, 9, 0, 30, 0, loc),
	} {
		fired := tick(DueItem{Title: "x", Due: due}, 2*time.Second)
		if len(fired) != len(Thresholds) {
			t.Fatalf("due %v: fired at %v, want exactly the thresholds", due, fired)
		}
		for _, th := range Thresholds {
			if fired[th] != 1 {
				t.Fatalf("due %v: threshold %d fired %d times, want 1", due, th, fired[th])
			}
		}
	}
}

func TestReminder_FiresOnlyInLastMinute(t *testing.T) {
	t.Parallel()

	fired := tick(DueItem{Title: "x", Due: time.Date(2024, 6, 10, 9, 0, 0, 0, loc), Reminder: true}, 2*time.Second)
	if len(fired) != 1 || fired[0] != 1 {
		t.Fatalf("reminder fired at %v, want once at 0", fired)
	}
}

func TestShouldFire_Boundaries(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 6, 10, 9, 0, 0, 0, loc)
	tests := []struct {
		name     string
		now      time.Time
		reminder bool
		want     bool
	}{
		{"exactly 60m", due.Add(-60 * time.Minute), false, true},
		{"60m minus a second floors to 59", due.Add(-60*time.Minute + time.Second), false, false},
		{"60m plus 59s floors to 60", due.Add(-60*time.Minute - 59*time.Second), false, true},
		{"past due", due.Add(time.Minute), false, false},
		{"at due", due, true, false},
		{"reminder 30s before", due.Add(-30 * time.Second), true, true},
		{"reminder ignores thresholds", due.Add(-10 * time.Minute), true, false},
		{"11 minutes", due.Add(-11 * time.Minute), false, false},
	}
	for _, tt := range tests {
		_, got := ShouldFire(DueItem{Due: due, Reminder: tt.reminder}, tt.now)
		if got != tt.want {
			t.Fatalf("%s: ShouldFire() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAlertText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		minutes int64
		want    string
	}{
		{10080, "1w Standup"},
		{2880, "2d Standup"},
		{1440, "1d Standup"},
		{60, "1h Standup"},
		{10, "10m Standup"},
		{0, "0m Standup"},
	}
	for _, tt := range tests {
		a := Alert{Item: DueItem{Title: "Standup"}, Minutes: tt.minutes}
		if got := a.Text(); got != tt.want {
			t.Fatalf("Text() = %q, want %q", got, tt.want)
		}
	}
}
