package alerts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout       = "2006-01-02"
	eventStartLayout = "2006-01-02T15:04:05"
)

// TaskDue resolves a task's due time from todoDate and todoTime.
// ok is false for tasks that never alert: no todoDate, a doneDate label,
// or canceled == "true". A malformed date or time is an error.
func TaskDue(t Task, loc *time.Location) (item DueItem, ok bool, err error) {
	if loc == nil {
		loc = time.Local
	}
	var (
		date, clock        string
		hasDate            bool
		done, canceled, rm bool
	)
	for _, l := range t.Labels {
		switch l.Kind {
		case LabelTodoDate:
			date, hasDate = l.Value, true
		case LabelTodoTime:
			clock = l.Value
		case LabelDoneDate:
			done = true
		case LabelReminder:
			rm = true
		case LabelCanceled:
			canceled = canceled || l.Value == "true"
		case LabelOther:
		}
	}
	if !hasDate || done || canceled {
		return DueItem{}, false, nil
	}

	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return DueItem{}, false, fmt.Errorf("task %q: todoDate: %w", t.Title, err)
	}
	h, m, s, err := parseClock(clock)
	if err != nil {
		return DueItem{}, false, fmt.Errorf("task %q: todoTime: %w", t.Title, err)
	}
	return DueItem{
		Source:   SourceTask,
		Title:    t.Title,
		Due:      time.Date(d.Year(), d.Month(), d.Day(), h, m, s, 0, loc),
		Reminder: rm,
	}, true, nil
}

// parseClock reads HH:MM:SS where every field may be missing or empty
// and then counts as zero.
func parseClock(v string) (h, m, s int, err error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, 0, 0, nil
	}
	parts := strings.Split(v, ":")
	if len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("invalid time %q", v)
	}
	var n [3]int
	limits := [3]int{23, 59, 59}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		x, err := strconv.Atoi(p)
		if err != nil || x < 0 || x > limits[i] {
			return 0, 0, 0, fmt.Errorf("invalid time %q", v)
		}
		n[i] = x
	}
	return n[0], n[1], n[2], nil
}

// EventDue parses the event's start time as local wall-clock time.
func EventDue(e Event, loc *time.Location) (DueItem, error) {
	if loc == nil {
		loc = time.Local
	}
	due, err := time.ParseInLocation(eventStartLayout, strings.TrimSpace(e.StartTime), loc)
	if err != nil {
		return DueItem{}, fmt.Errorf("event %q: startTime: %w", e.Name, err)
	}
	return DueItem{Source: SourceEvent, Title: e.Name, Due: due}, nil
}
