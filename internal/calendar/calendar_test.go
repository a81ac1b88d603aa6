package calendar

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var cet = time.FixedZone("CET", 3600)

func doc(lines ...string) string {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR")
	return strings.Join(all, "\r\n") + "\r\n"
}

func event(lines ...string) []string {
	return append(append([]string{"BEGIN:VEVENT"}, lines...), "END:VEVENT")
}

func TestParse_StandupWithDuration(t *testing.T) {
	t.Parallel()

	data := doc(event(
		"UID:abc-1",
		"DTSTART:20240101T090000Z",
		"SUMMARY:Standup",
		"DURATION:PT0H30M",
	)...)
	cal, err := ParseInLocation(data, cet)
	if err != nil {
		t.Fatalf("ParseInLocation() error: %v", err)
	}
	if len(cal.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(cal.Events))
	}
	ev := cal.Events[0]
	wantStart := time.Date(2024, 1, 1, 10, 0, 0, 0, cet)
	if !ev.Start.Equal(wantStart) || ev.Start.Hour() != 10 {
		t.Fatalf("Start = %v, want %v in local zone", ev.Start, wantStart)
	}
	if got := ev.End.Sub(ev.Start); got != 30*time.Minute {
		t.Fatalf("End-Start = %v, want 30m", got)
	}
	if ev.Duration == nil || *ev.Duration != 30*time.Minute {
		t.Fatalf("Duration = %v, want 30m", ev.Duration)
	}
	if ev.Summary != "Standup" || ev.UID != "abc-1" {
		t.Fatalf("Summary/UID = %q/%q", ev.Summary, ev.UID)
	}
	if ev.Description != "" || ev.Location != "" || ev.DescriptionHTML != nil {
		t.Fatalf("unmatched optional fields should be empty: %+v", ev)
	}
}

func TestParse_CalendarNameAndFields(t *testing.T) {
	t.Parallel()

	lines := []string{"NAME:Work"}
	lines = append(lines, event(
		"UID:u1",
		"SUMMARY:Review",
		"DESCRIPTION:bring notes",
		"LOCATION:Room 4",
		"STATUS:CONFIRMED",
		"RRULE:FREQ=WEEKLY",
		"X-UNKNOWN:ignored",
		"DTSTART:20240315T140000",
		"DTEND:20240315T153000",
		"DURATION:PT5H0M",
		"X-ALT-DESC;FMTTYPE=text/html:<b>bring notes</b>",
	)...)
	cal, err := ParseInLocation(doc(lines...), cet)
	if err != nil {
		t.Fatalf("ParseInLocation() error: %v", err)
	}
	if cal.Name != "Work" {
		t.Fatalf("Name = %q, want Work", cal.Name)
	}
	ev := cal.Events[0]
	if ev.Description != "bring notes" || ev.Location != "Room 4" {
		t.Fatalf("Description/Location = %q/%q", ev.Description, ev.Location)
	}
	if ev.DescriptionHTML == nil || *ev.DescriptionHTML != "<b>bring notes</b>" {
		t.Fatalf("DescriptionHTML = %v, want html", ev.DescriptionHTML)
	}
	// Explicit DTEND wins over DURATION.
	if want := time.Date(2024, 3, 15, 15, 30, 0, 0, cet); !ev.End.Equal(want) {
		t.Fatalf("End = %v, want %v", ev.End, want)
	}
	if ev.Duration == nil || *ev.Duration != 5*time.Hour {
		t.Fatalf("Duration should be retained, got %v", ev.Duration)
	}
	if got := ev.ContentHTML(); got != "<b>bring notes</b>" {
		t.Fatalf("ContentHTML() = %q", got)
	}
}

func TestParse_AltDescRequiresHTML(t *testing.T) {
	t.Parallel()

	data := doc(event(
		"DTSTART:20240315T140000",
		"DTEND:20240315T150000",
		"DESCRIPTION:a < b",
		"X-ALT-DESC;FMTTYPE=text/plain:plain alt",
		"X-ALT-DESC:no params",
	)...)
	cal, err := ParseInLocation(data, cet)
	if err != nil {
		t.Fatalf("ParseInLocation() error: %v", err)
	}
	ev := cal.Events[0]
	if ev.DescriptionHTML != nil {
		t.Fatalf("DescriptionHTML = %q, want nil", *ev.DescriptionHTML)
	}
	if ev.UID != "" || ev.Title() != "" {
		t.Fatalf("missing UID should be empty, got %q", ev.UID)
	}
	if got := ev.ContentHTML(); got != "a &lt; b" {
		t.Fatalf("ContentHTML() = %q, want escaped description", got)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		data  string
		check func(error) bool
	}{
		{
			name:  "no calendar",
			data:  "hello\r\nworld\r\n",
			check: func(err error) bool { return errors.Is(err, ErrNoCalendar) },
		},
		{
			name:  "empty",
			data:  "",
			check: func(err error) bool { return errors.Is(err, ErrNoCalendar) },
		},
		{
			name: "missing dtstart",
			data: doc(event("SUMMARY:x", "DTEND:20240101T100000", "DURATION:PT1H0M")...),
			check: func(err error) bool {
				var mf *MissingFieldError
				return errors.As(err, &mf) && mf.Field == "dtstart"
			},
		},
		{
			name: "missing dtend and duration",
			data: doc(event("DTSTART:20240101T100000")...),
			check: func(err error) bool {
				var mf *MissingFieldError
				return errors.As(err, &mf) && mf.Field == "dtend"
			},
		},
		{
			name:  "date-only dtstart",
			data:  doc(event("DTSTART;VALUE=DATE:20240101", "DTEND;VALUE=DATE:20240102")...),
			check: func(err error) bool { return errors.Is(err, ErrInvalidTimestampLength) },
		},
		{
			name:  "minutes-only duration",
			data:  doc(event("DTSTART:20240101T100000", "DURATION:PT45M")...),
			check: func(err error) bool { return errors.Is(err, ErrUnsupportedDuration) },
		},
		{
			name: "line over scanner limit",
			data: doc(event("DTSTART:20240101T100000", "DTEND:20240101T110000", "DESCRIPTION:"+strings.Repeat("x", 5<<20))...),
			check: func(err error) bool {
				var mf *MalformedError
				return errors.As(err, &mf)
			},
		},
		{
			name: "non-numeric timestamp",
			data: doc(event("DTSTART:2024XX01T100000", "DTEND:20240101T110000")...),
			check: func(err error) bool {
				var te *TimestampError
				return errors.As(err, &te) && te.Component == "month"
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cal, err := ParseInLocation(tt.data, cet)
			if err == nil {
				t.Fatalf("ParseInLocation() = %+v, want error", cal)
			}
			if !tt.check(err) {
				t.Fatalf("unexpected error %T: %v", err, err)
			}
		})
	}
}

func TestParse_TextValuesUnescaped(t *testing.T) {
	t.Parallel()

	data := doc(event(
		"DTSTART:20240315T140000",
		"DTEND:20240315T150000",
		`SUMMARY:Lunch\, team`,
		`DESCRIPTION:first\nsecond\; third\\`,
		`LOCATION:Room 4\, floor 2`,
	)...)
	cal, err := ParseInLocation(data, cet)
	if err != nil {
		t.Fatalf("ParseInLocation() error: %v", err)
	}
	ev := cal.Events[0]
	tests := []struct {
		field, got, want string
	}{
		{field: "summary", got: ev.Summary, want: "Lunch, team"},
		{field: "description", got: ev.Description, want: "first\nsecond; third\\"},
		{field: "location", got: ev.Location, want: "Room 4, floor 2"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("%s = %q, want %q", tt.field, tt.got, tt.want)
		}
	}
}

func TestParse_OnlyFirstCalendar(t *testing.T) {
	t.Parallel()

	first := doc(append([]string{"NAME:first"}, event("DTSTART:20240101T100000", "DTEND:20240101T110000")...)...)
	second := doc(append([]string{"NAME:second"}, event("DTSTART:20240102T100000", "DTEND:20240102T110000")...)...)
	cal, err := ParseInLocation("garbage before\r\n"+first+second, cet)
	if err != nil {
		t.Fatalf("ParseInLocation() error: %v", err)
	}
	if cal.Name != "first" || len(cal.Events) != 1 {
		t.Fatalf("got name %q with %d events, want first calendar only", cal.Name, len(cal.Events))
	}
}

func TestParseDateTime(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"20200626T140000", "19991231T235959", "20240229T000000"} {
		got, err := ParseDateTime(v, cet)
		if err != nil {
			t.Fatalf("ParseDateTime(%q) error: %v", v, err)
		}
		if got.Location() != cet {
			t.Fatalf("ParseDateTime(%q) location = %v, want CET", v, got.Location())
		}
		if back := got.Format("20060102T150405"); back != v {
			t.Fatalf("ParseDateTime(%q) round-trip = %q", v, back)
		}
	}

	got, err := ParseDateTime("20200626T140000Z", cet)
	if err != nil {
		t.Fatalf("ParseDateTime(Z) error: %v", err)
	}
	want := time.Date(2020, 6, 26, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != cet || got.Hour() != 15 {
		t.Fatalf("ParseDateTime(Z) = %v, want %v converted to CET", got, want)
	}

	// The separator is positional only.
	if _, err := ParseDateTime("20200626X140000", cet); err != nil {
		t.Fatalf("ParseDateTime with odd separator error: %v", err)
	}
	for _, bad := range []string{"", "20200626", "20200626T1400", "20200626T140000ZZ"} {
		if _, err := ParseDateTime(bad, cet); !errors.Is(err, ErrInvalidTimestampLength) {
			t.Fatalf("ParseDateTime(%q) err = %v, want ErrInvalidTimestampLength", bad, err)
		}
	}
	if _, err := ParseDateTime("20200230T100000", cet); err == nil {
		t.Fatalf("ParseDateTime(Feb 30) should fail")
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	ok := map[string]time.Duration{
		"PT0H30M":  30 * time.Minute,
		"PT1H0M":   time.Hour,
		"PT2H15M":  135 * time.Minute,
		"PT36H90M": 37*time.Hour + 30*time.Minute,
	}
	for in, want := range ok {
		got, err := ParseDuration(in)
		if err != nil || got != want {
			t.Fatalf("ParseDuration(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"PT45M", "PT1H", "P1D", "P1DT2H3M", "PT1H30M15S", ""} {
		if _, err := ParseDuration(in); !errors.Is(err, ErrUnsupportedDuration) {
			t.Fatalf("ParseDuration(%q) err = %v, want ErrUnsupportedDuration", in, err)
		}
	}
}
