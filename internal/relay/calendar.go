package relay

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"noterelay/internal/backend"
	"noterelay/internal/calendar"
	"noterelay/internal/storage"
	"noterelay/internal/transport/telegram/router"
	logx "noterelay/pkg/logx"
)

const mimeCalendar = "text/calendar"

func isCalendarDocument(mime, name string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime == mimeCalendar || strings.EqualFold(path.Ext(name), ".ics")
}

// handleDocument imports every event of an attached calendar.
func (r *Relay) handleDocument(ctx context.Context, req *router.Request) error {
	doc := req.Update.Message.Document
	if !isCalendarDocument(doc.MIME, doc.FileName) {
		return &router.UserError{Msg: "unsupported document: send a .ics calendar"}
	}
	if doc.Size > r.cfg.MaxDocument {
		return &router.UserError{Msg: fmt.Sprintf("calendar too large (%d bytes)", doc.Size)}
	}

	data, err := r.ad.DownloadFile(ctx, doc.FileID)
	if err != nil {
		return fmt.Errorf("download %s: %w", doc.FileName, err)
	}
	cal, err := calendar.ParseInLocation(string(data), r.cfg.Location)
	if err != nil {
		r.record(ctx, storage.JournalEntry{Kind: storage.KindCalendar, Title: doc.FileName}, err)
		return &router.UserError{Msg: "could not read calendar: " + err.Error()}
	}

	name := cal.Name
	if name == "" {
		name = doc.FileName
	}
	imported := 0
	var errs []error
	for _, ev := range cal.Events {
		err := r.be.CreateEvent(ctx, eventRequest(ev, doc.FileName, string(data)))
		r.record(ctx, storage.JournalEntry{Kind: storage.KindCalendar, Title: ev.Title(), Detail: name}, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ev.Title(), err))
			continue
		}
		imported++
	}

	msg := fmt.Sprintf("imported %d event(s) from %s", imported, name)
	if len(errs) > 0 {
		msg += fmt.Sprintf(", %d failed", len(errs))
		r.log.Warn("calendar import incomplete", logx.Err(errors.Join(errs...)))
	}
	return r.reply(ctx, req, msg)
}

func eventRequest(ev calendar.Event, fileName, fileData string) backend.EventRequest {
	er := backend.EventRequest{
		UID:      ev.UID,
		Name:     ev.Summary,
		Summary:  ev.Description,
		Location: ev.Location,
		Start:    ev.Start,
		End:      ev.End,
		FileName: fileName,
		FileData: fileData,
	}
	if ev.DescriptionHTML != nil {
		er.SummaryHTML = *ev.DescriptionHTML
	}
	return er
}
