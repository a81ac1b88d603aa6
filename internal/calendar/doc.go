// Package calendar decodes iCalendar (ICS) attachments into events ready
// to be submitted to the note backend.
//
// Line unfolding and parameter grammar are delegated to
// github.com/arran4/golang-ical; this package applies the relay's own
// property rules on top:
//   - only the first VCALENDAR object is read
//   - UID, SUMMARY, LOCATION and DESCRIPTION are copied verbatim (missing -> "")
//   - DTSTART is required; DTEND falls back to DTSTART + DURATION
//   - DURATION must have the form PT<h>H<m>M
//   - X-ALT-DESC is kept only when its first FMTTYPE value is text/html
//   - STATUS and RRULE are recognised but not interpreted
//
// Timestamps use the compact form YYYYMMDDTHHMMSS, optionally suffixed
// with Z. Z values are read as UTC and converted to the local zone; all
// others are taken as local wall-clock time.
package calendar
