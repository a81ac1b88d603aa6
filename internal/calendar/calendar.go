package calendar

import (
	"bufio"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// Calendar is one decoded VCALENDAR object.
type Calendar struct {
	Name   string // NAME property, "" when absent
	Events []Event
}

// Event is one decoded VEVENT. End is always resolved.
type Event struct {
	UID             string
	Summary         string
	Description     string
	DescriptionHTML *string // X-ALT-DESC;FMTTYPE=text/html
	Start           time.Time
	End             time.Time
	Duration        *time.Duration // DURATION, kept even when DTEND wins
	Location        string
}

// Title is the summary, or the UID for events without one.
func (e Event) Title() string {
	if strings.TrimSpace(e.Summary) != "" {
		return e.Summary
	}
	return e.UID
}

// ContentHTML returns the HTML description when present, otherwise the
// escaped plain description.
func (e Event) ContentHTML() string {
	if e.DescriptionHTML != nil {
		return *e.DescriptionHTML
	}
	return html.EscapeString(e.Description)
}

// Property names consumed from the document.
const (
	propName        = "NAME"
	propUID         = "UID"
	propSummary     = "SUMMARY"
	propLocation    = "LOCATION"
	propDescription = "DESCRIPTION"
	propStatus      = "STATUS"
	propDtStart     = "DTSTART"
	propDtEnd       = "DTEND"
	propDuration    = "DURATION"
	propRRule       = "RRULE"
	propAltDesc     = "X-ALT-DESC"

	paramFmtType = "FMTTYPE"
	mimeHTML     = "text/html"
)

// Parse decodes data with time.Local as the local zone.
func Parse(data string) (*Calendar, error) {
	return ParseInLocation(data, time.Local)
}

// ParseInLocation decodes the first calendar in data. Local timestamps
// are interpreted in loc and UTC timestamps are converted to loc.
func ParseInLocation(data string, loc *time.Location) (*Calendar, error) {
	if loc == nil {
		loc = time.Local
	}
	doc, ok, err := firstCalendar(data)
	if err != nil {
		return nil, &MalformedError{Err: err}
	}
	if !ok {
		return nil, ErrNoCalendar
	}
	cal, err := ical.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		return nil, &MalformedError{Err: err}
	}

	out := &Calendar{}
	for _, p := range cal.CalendarProperties {
		if string(p.IANAToken) == propName {
			out.Name = p.Value
		}
	}
	events := cal.Events()
	out.Events = make([]Event, 0, len(events))
	for _, ve := range events {
		ev, err := decodeEvent(ve, loc)
		if err != nil {
			return nil, err
		}
		out.Events = append(out.Events, ev)
	}
	return out, nil
}

// firstCalendar cuts data down to its first BEGIN:VCALENDAR ..
// END:VCALENDAR block. A block without an END line is returned as-is so
// the decoder can report it.
func firstCalendar(data string) (string, bool, error) {
	var b strings.Builder
	inside := false
	sc := bufio.NewScanner(strings.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if !inside {
			if line != "BEGIN:VCALENDAR" {
				continue
			}
			inside = true
		}
		b.WriteString(line)
		b.WriteString("\r\n")
		if line == "END:VCALENDAR" {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return "", false, err
	}
	return b.String(), inside, nil
}

func decodeEvent(ve *ical.VEvent, loc *time.Location) (Event, error) {
	var (
		ev         Event
		start, end *time.Time
	)
	for _, p := range ve.Properties {
		switch string(p.IANAToken) {
		case propUID:
			ev.UID = p.Value
		case propSummary:
			ev.Summary = p.Value
		case propLocation:
			ev.Location = p.Value
		case propDescription:
			ev.Description = p.Value
		case propStatus, propRRule:
			// recognised, not interpreted
		case propDtStart:
			t, err := ParseDateTime(p.Value, loc)
			if err != nil {
				return Event{}, err
			}
			start = &t
		case propDtEnd:
			t, err := ParseDateTime(p.Value, loc)
			if err != nil {
				return Event{}, err
			}
			end = &t
		case propDuration:
			d, err := ParseDuration(p.Value)
			if err != nil {
				return Event{}, err
			}
			ev.Duration = &d
		case propAltDesc:
			if isHTML(p.ICalParameters) {
				v := p.Value
				ev.DescriptionHTML = &v
			}
		}
	}

	if start == nil {
		return Event{}, &MissingFieldError{Field: "dtstart"}
	}
	ev.Start = *start
	switch {
	case end != nil:
		ev.End = *end
	case ev.Duration != nil:
		ev.End = ev.Start.Add(*ev.Duration)
	default:
		return Event{}, &MissingFieldError{Field: "dtend"}
	}
	return ev, nil
}

func isHTML(params map[string][]string) bool {
	vs := params[paramFmtType]
	return len(vs) > 0 && vs[0] == mimeHTML
}

// ParseDateTime decodes YYYYMMDDTHHMMSS with an optional Z suffix. Digit
// groups are read by position; the separator at offset 8 is not checked.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if len(value) != 15 && len(value) != 16 {
		return time.Time{}, ErrInvalidTimestampLength
	}

	groups := [...]struct {
		name     string
		from, to int
	}{
		{"year", 0, 4},
		{"month", 4, 6},
		{"day", 6, 8},
		{"hour", 9, 11},
		{"minute", 11, 13},
		{"second", 13, 15},
	}
	var n [6]int
	for i, g := range groups {
		v, err := strconv.Atoi(value[g.from:g.to])
		if err != nil || v < 0 {
			return time.Time{}, &TimestampError{Value: value, Component: g.name, Err: err}
		}
		n[i] = v
	}

	zone := loc
	utc := strings.HasSuffix(value, "Z")
	if utc {
		zone = time.UTC
	}
	t := time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, zone)
	if t.Month() != time.Month(n[1]) || t.Day() != n[2] || t.Hour() != n[3] || t.Minute() != n[4] || t.Second() != n[5] {
		return time.Time{}, &TimestampError{Value: value, Component: "date"}
	}
	if utc {
		t = t.In(loc)
	}
	return t, nil
}

var durationRe = regexp.MustCompile(`^PT(\d+)H(\d+)M$`)

// ParseDuration accepts only PT<h>H<m>M with both parts present.
// PT45M, PT1H and date-based forms are rejected.
func ParseDuration(value string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(value)
	if m == nil {
		return 0, ErrUnsupportedDuration
	}
	h, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, ErrUnsupportedDuration
	}
	mins, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, ErrUnsupportedDuration
	}
	return time.Duration(h*60+mins) * time.Minute, nil
}
