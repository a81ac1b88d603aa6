package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"noterelay/internal/alerts"
	"noterelay/internal/backend"
	"noterelay/internal/storage"
	kit "noterelay/internal/transport"
	"noterelay/internal/transport/telegram/router"
	logx "noterelay/pkg/logx"
)

const owner = 42

type sent struct {
	text   string
	markup bool
}

type fakeAdapter struct {
	mu      sync.Mutex
	sent    []sent
	edits   map[int]string
	files   map[string][]byte
	nextID  int
	answers []string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{edits: map[int]string{}, files: map[string][]byte{}, nextID: 100}
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                     { return nil }

func (f *fakeAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sent{text: text, markup: opt != nil && opt.ReplyMarkupAdapter != nil})
	return kit.MessageRef{ChatID: to.ChatID, MessageID: f.nextID}, nil
}

func (f *fakeAdapter) EditText(_ context.Context, ref kit.MessageRef, text string, _ *kit.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits[ref.MessageID] = text
	return nil
}

func (f *fakeAdapter) AnswerCallback(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeAdapter) DownloadFile(_ context.Context, id string) ([]byte, error) {
	b, ok := f.files[id]
	if !ok {
		return nil, errors.New("no such file")
	}
	return b, nil
}

func (f *fakeAdapter) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].text
}

type note struct{ title, content string }

type reminderReq struct {
	at    time.Time
	label string
}

type fakeBackend struct {
	notes     []note
	events    []backend.EventRequest
	reminders []reminderReq
	fail      error
}

func (b *fakeBackend) CreateNote(_ context.Context, title, content string) error {
	if b.fail != nil {
		return b.fail
	}
	b.notes = append(b.notes, note{title, content})
	return nil
}

func (b *fakeBackend) CreateEvent(_ context.Context, ev backend.EventRequest) error {
	if b.fail != nil {
		return b.fail
	}
	b.events = append(b.events, ev)
	return nil
}

func (b *fakeBackend) CreateReminder(_ context.Context, at time.Time, label string) error {
	if b.fail != nil {
		return b.fail
	}
	b.reminders = append(b.reminders, reminderReq{at, label})
	return nil
}

type fakeUpcoming struct {
	items []alerts.DueItem
	err   error
}

func (u *fakeUpcoming) Upcoming(context.Context, time.Time) ([]alerts.DueItem, error) {
	return u.items, u.err
}

type fakeJournal struct{ entries []storage.JournalEntry }

func (j *fakeJournal) AppendJournal(_ context.Context, e storage.JournalEntry) error {
	j.entries = append(j.entries, e)
	return nil
}

func (j *fakeJournal) RecentJournal(_ context.Context, limit int) ([]storage.JournalEntry, error) {
	out := make([]storage.JournalEntry, 0, limit)
	for i := len(j.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.entries[i])
	}
	return out, nil
}

type harness struct {
	ad  *fakeAdapter
	be  *fakeBackend
	up  *fakeUpcoming
	jr  *fakeJournal
	rl  *Relay
	rt  *router.Router
	now time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ad:  newFakeAdapter(),
		be:  &fakeBackend{},
		up:  &fakeUpcoming{},
		jr:  &fakeJournal{},
		now: time.Date(2024, 3, 4, 9, 5, 0, 0, time.UTC),
	}
	h.rl = New(Config{Location: time.UTC}, h.ad, h.be, h.up, h.jr, logx.Nop())
	h.rl.now = func() time.Time { return h.now }
	h.rt = router.New(logx.Nop(), h.ad, owner)
	h.rt.SetRoutes(h.rl.Routes())
	return h
}

func (h *harness) text(s string) {
	h.rt.Dispatch(context.Background(), kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 7, FromID: owner, Text: s}})
}

func (h *harness) press(data string) {
	h.rt.Dispatch(context.Background(), kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: "cb", ChatID: 7, FromID: owner, Data: data}})
}

func (h *harness) document(doc kit.Document) {
	h.rt.Dispatch(context.Background(), kit.Update{Kind: kit.UpdateDocument, Message: &kit.Message{ChatID: 7, FromID: owner, Document: &doc}})
}

func TestText_SavesURLNote(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.text("https://example.com/a?b=1&c=2")

	if len(h.be.notes) != 1 {
		t.Fatalf("notes = %+v", h.be.notes)
	}
	n := h.be.notes[0]
	if n.title != "URL found at 9:05" {
		t.Fatalf("title = %q", n.title)
	}
	want := `<ul><li><a href="https://example.com/a?b=1&amp;c=2">https://example.com/a?b=1&amp;c=2</a></li></ul>`
	if n.content != want {
		t.Fatalf("content = %q, want %q", n.content, want)
	}
	if h.ad.last() != "URL saved :-)" {
		t.Fatalf("reply = %q", h.ad.last())
	}
	if len(h.jr.entries) != 1 || h.jr.entries[0].Kind != storage.KindNote {
		t.Fatalf("journal = %+v", h.jr.entries)
	}
}

func TestText_SavesPlainNote(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.text("buy <milk> & eggs")

	n := h.be.notes[0]
	if n.title != "content found at 9:05" || n.content != "<ul><li>buy &lt;milk&gt; &amp; eggs</li></ul>" {
		t.Fatalf("note = %+v", n)
	}
	if h.ad.last() != "Text saved :-)" {
		t.Fatalf("reply = %q", h.ad.last())
	}
}

func TestText_BackendFailureReported(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.be.fail = errors.New("backend down")
	h.text("hello")

	if !strings.HasPrefix(h.ad.last(), "error: save note") {
		t.Fatalf("reply = %q", h.ad.last())
	}
	if len(h.jr.entries) != 1 || h.jr.entries[0].Error != "backend down" {
		t.Fatalf("journal = %+v", h.jr.entries)
	}
}

func TestAsURL(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"https://example.com":      true,
		"http://localhost:8080/x":  true,
		"example.com":              false,
		"see https://example.com":  false,
		"mailto:someone@example":   false,
		"":                         false,
		"ftp://files.example/a.gz": true,
	}
	for in, want := range cases {
		if _, got := asURL(in); got != want {
			t.Fatalf("asURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRemindMe_Flow(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.text("/remindme")
	if len(h.ad.sent) != 1 || !h.ad.sent[0].markup || !strings.Contains(h.ad.sent[0].text, "Reminder") {
		t.Fatalf("card = %+v", h.ad.sent)
	}
	card := h.ad.nextID

	h.press("10m_cb")
	h.press("10m_cb")
	h.press("1h_cb")
	if got := h.ad.edits[card]; !strings.Contains(got, "1h20m") {
		t.Fatalf("card after increments = %q, want 1h20m", got)
	}

	h.text("Call mom")
	if got := h.ad.edits[card]; !strings.Contains(got, "Call mom") || !strings.Contains(got, "1h20m") {
		t.Fatalf("card after label = %q", got)
	}
	if len(h.be.notes) != 0 {
		t.Fatalf("label text was saved as a note")
	}

	h.press("save_cb")
	if len(h.be.reminders) != 1 {
		t.Fatalf("reminders = %+v", h.be.reminders)
	}
	got := h.be.reminders[0]
	if want := h.now.Add(80 * time.Minute); !got.at.Equal(want) || got.label != "Call mom" {
		t.Fatalf("reminder = %+v, want %v Call mom", got, want)
	}
	if h.ad.last() != "Reminder saved :-)" {
		t.Fatalf("reply = %q", h.ad.last())
	}

	// Idle again: save is rejected and plain text becomes a note.
	h.press("save_cb")
	if len(h.be.reminders) != 1 {
		t.Fatalf("second save submitted a reminder")
	}
	if a := h.ad.answers[len(h.ad.answers)-1]; !strings.Contains(a, "no reminder") {
		t.Fatalf("callback answer = %q", a)
	}
	h.text("after")
	if len(h.be.notes) != 1 {
		t.Fatalf("idle text not saved as note")
	}
}

func TestRemindMe_LabelKeptVerbatim(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.text("/remindme")
	h.text("  Call  mom \n")
	h.text("time")
	h.press("save_cb")

	if len(h.be.reminders) != 1 || h.be.reminders[0].label != "time" {
		t.Fatalf("reminders = %+v, want bare \"time\" as label", h.be.reminders)
	}

	h.text("/remindme")
	h.text("  Call  mom \n")
	h.press("save_cb")
	if got := h.be.reminders[1].label; got != "  Call  mom \n" {
		t.Fatalf("label = %q, want it unchanged", got)
	}
}

func TestRemindMe_TimeAnchor(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.text("/remindme")
	h.text("time 2024-12-24 18.30")
	if !strings.HasPrefix(h.ad.last(), "anchor set to Tue 2024-12-24 18:30") {
		t.Fatalf("reply = %q", h.ad.last())
	}
	h.text("time tomorrow")
	if !strings.HasPrefix(h.ad.last(), "could not parse time") {
		t.Fatalf("reply = %q", h.ad.last())
	}
	h.press("1d_cb")
	h.press("save_cb")

	want := time.Date(2024, 12, 25, 18, 30, 0, 0, time.UTC)
	if len(h.be.reminders) != 1 || !h.be.reminders[0].at.Equal(want) || h.be.reminders[0].label != "Reminder" {
		t.Fatalf("reminders = %+v, want %v", h.be.reminders, want)
	}
}

func TestRemindMe_SaveFailureKeepsSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.text("/remindme")
	h.be.fail = errors.New("backend down")
	h.press("save_cb")
	if len(h.be.reminders) != 0 || !h.rl.session.Active() {
		t.Fatalf("session lost after failed save")
	}
	h.be.fail = nil
	h.press("save_cb")
	if len(h.be.reminders) != 1 || h.rl.session.Active() {
		t.Fatalf("retry did not save: %+v", h.be.reminders)
	}
}

func TestIncrementWhileIdle(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.press("1w_cb")
	if len(h.ad.edits) != 0 || len(h.ad.sent) != 0 {
		t.Fatalf("idle increment touched the chat: edits=%v sent=%v", h.ad.edits, h.ad.sent)
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.text("/next")
	if h.ad.last() != "nothing upcoming" {
		t.Fatalf("reply = %q", h.ad.last())
	}

	h.up.items = []alerts.DueItem{
		{Title: "Standup", Due: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)},
		{Title: "Dentist", Due: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)},
	}
	h.text("/next")
	want := "<pre>Mon 2024-03-04 10:00 Standup\nTue 2024-03-05 14:30 Dentist</pre>"
	if h.ad.last() != want {
		t.Fatalf("reply = %q, want %q", h.ad.last(), want)
	}
}

const ics = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\nNAME:Work\r\n" +
	"BEGIN:VEVENT\r\nUID:1@test\r\nDTSTAMP:20240101T000000Z\r\nSUMMARY:Standup\r\nDESCRIPTION:daily\r\n" +
	"DTSTART:20240101T090000Z\r\nDURATION:PT0H30M\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

func TestDocument_ImportsCalendar(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.ad.files["f1"] = []byte(ics)
	h.document(kit.Document{FileID: "f1", FileName: "work.ics", MIME: "text/calendar", Size: int64(len(ics))})

	if h.ad.last() != "imported 1 event(s) from Work" {
		t.Fatalf("reply = %q", h.ad.last())
	}
	if len(h.be.events) != 1 {
		t.Fatalf("events = %+v", h.be.events)
	}
	ev := h.be.events[0]
	if ev.UID != "1@test" || ev.Name != "Standup" || ev.Summary != "daily" || ev.FileName != "work.ics" || ev.FileData != ics {
		t.Fatalf("event = %+v", ev)
	}
	if got := ev.End.Sub(ev.Start); got != 30*time.Minute {
		t.Fatalf("end - start = %v, want 30m", got)
	}
}

func TestDocument_Rejections(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.document(kit.Document{FileID: "x", FileName: "photo.png", MIME: "image/png"})
	if !strings.Contains(h.ad.last(), "unsupported document") {
		t.Fatalf("reply = %q", h.ad.last())
	}

	h.ad.files["bad"] = []byte("BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:x\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n")
	h.document(kit.Document{FileID: "bad", FileName: "bad.ics", MIME: "application/octet-stream"})
	if !strings.HasPrefix(h.ad.last(), "error: could not read calendar") {
		t.Fatalf("reply = %q", h.ad.last())
	}
	if len(h.be.events) != 0 {
		t.Fatalf("events created from a bad calendar")
	}
}

func TestRecent(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.text("/recent")
	if h.ad.last() != "journal is empty" {
		t.Fatalf("reply = %q", h.ad.last())
	}
	h.text("first")
	h.text("second")
	h.text("/recent 1")
	if got := h.ad.last(); !strings.Contains(got, "content found at 9:05") || strings.Count(got, "note") != 1 {
		t.Fatalf("reply = %q", got)
	}
	h.text("/recent zero")
	if !strings.Contains(h.ad.last(), "usage") {
		t.Fatalf("reply = %q", h.ad.last())
	}
}
