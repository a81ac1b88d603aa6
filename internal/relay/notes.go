package relay

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"noterelay/internal/storage"
	"noterelay/internal/transport/telegram/router"
)

// handleText feeds the reminder session when one is active; otherwise the
// text is saved as a note.
func (r *Relay) handleText(ctx context.Context, req *router.Request) error {
	text := req.RawArgs
	if r.session.Active() {
		if spec, ok := strings.CutPrefix(text, "time "); ok {
			return r.setAnchor(ctx, req, spec)
		}
		return r.setLabel(ctx, req, text)
	}
	return r.saveNote(ctx, req, text)
}

func (r *Relay) saveNote(ctx context.Context, req *router.Request, text string) error {
	title, content, isURL := noteFor(text, r.now().In(r.cfg.Location))
	err := r.be.CreateNote(ctx, title, content)
	r.record(ctx, storage.JournalEntry{Kind: storage.KindNote, Title: title, Detail: text}, err)
	if err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	if isURL {
		return r.reply(ctx, req, "URL saved :-)")
	}
	return r.reply(ctx, req, "Text saved :-)")
}

// noteFor builds the note title and HTML body for text.
func noteFor(text string, now time.Time) (title, content string, isURL bool) {
	if u, ok := asURL(text); ok {
		esc := html.EscapeString(u)
		return fmt.Sprintf("URL found at %d:%02d", now.Hour(), now.Minute()),
			`<ul><li><a href="` + esc + `">` + esc + `</a></li></ul>`, true
	}
	return fmt.Sprintf("content found at %d:%02d", now.Hour(), now.Minute()),
		"<ul><li>" + html.EscapeString(text) + "</li></ul>", false
}

// asURL accepts a single absolute URL with a scheme and host.
func asURL(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return s, true
}
