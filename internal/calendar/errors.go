package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCalendar is returned when the input has no VCALENDAR object.
	ErrNoCalendar = errors.New("calendar: no calendar found")

	// ErrInvalidTimestampLength is returned for DTSTART/DTEND values that
	// are neither 15 nor 16 characters long.
	ErrInvalidTimestampLength = errors.New("calendar: invalid timestamp length")

	// ErrUnsupportedDuration is returned for DURATION values outside PT<h>H<m>M.
	ErrUnsupportedDuration = errors.New("calendar: unsupported duration")
)

// MissingFieldError reports a required event property that was absent.
type MissingFieldError struct {
	Field string // "dtstart" or "dtend"
}

func (e *MissingFieldError) Error() string {
	return "calendar: missing " + e.Field
}

// MalformedError wraps a grammar error from the ICS decoder.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string { return "calendar: malformed document: " + e.Err.Error() }
func (e *MalformedError) Unwrap() error { return e.Err }

// TimestampError reports a timestamp whose digit groups do not decode
// to a valid date and time.
type TimestampError struct {
	Value     string
	Component string // year, month, day, hour, minute, second or date
	Err       error
}

func (e *TimestampError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("calendar: bad %s in %q", e.Component, e.Value)
	}
	return fmt.Sprintf("calendar: bad %s in %q: %v", e.Component, e.Value, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }
