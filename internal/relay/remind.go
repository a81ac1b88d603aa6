package relay

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"noterelay/internal/reminder"
	"noterelay/internal/storage"
	kit "noterelay/internal/transport"
	"noterelay/internal/transport/telegram/router"
	logx "noterelay/pkg/logx"
	"noterelay/pkg/tgui"
	"noterelay/pkg/timefmt"
)

const whenLayout = "Mon 2006-01-02 15:04"

var errNoSession = &router.UserError{Msg: "no reminder in progress, send /remindme"}

func (r *Relay) handleRemindMe(ctx context.Context, req *router.Request) error {
	s := r.session.Start(r.now().In(r.cfg.Location), 0)
	ref, err := r.renderSession(s).Send(ctx, r.ad, req.Chat)
	if err != nil {
		r.session.Reset()
		return fmt.Errorf("send reminder card: %w", err)
	}
	return r.session.Track(ref.MessageID)
}

// handleCallback serves the session buttons. req.Command carries the raw
// callback data.
func (r *Relay) handleCallback(ctx context.Context, req *router.Request) error {
	cb, ok := reminder.ParseCallback(req.Command)
	if !ok {
		return nil
	}
	switch cb.Action {
	case reminder.ActionSave:
		return r.handleSave(ctx, req)
	case reminder.ActionIncrement:
		s, err := r.session.Increment(cb.Step)
		if errors.Is(err, reminder.ErrNoSession) {
			return errNoSession
		}
		if err != nil {
			return err
		}
		return r.refresh(ctx, req, s)
	}
	return nil
}

func (r *Relay) setLabel(ctx context.Context, req *router.Request, label string) error {
	s, err := r.session.SetLabel(label)
	if err != nil {
		return err
	}
	return r.refresh(ctx, req, s)
}

func (r *Relay) setAnchor(ctx context.Context, req *router.Request, spec string) error {
	at, err := timefmt.ParseSpec(spec, r.cfg.Location)
	if err != nil {
		return r.reply(ctx, req, fmt.Sprintf("could not parse time %q: %v", spec, err))
	}
	s, err := r.session.SetAnchor(at)
	if err != nil {
		return err
	}
	if err := r.refresh(ctx, req, s); err != nil {
		return err
	}
	return r.reply(ctx, req, "anchor set to "+at.Format(whenLayout))
}

// handleSave submits the reminder first, so a backend failure leaves the
// session intact for another try.
func (r *Relay) handleSave(ctx context.Context, req *router.Request) error {
	s, ok := r.session.Current()
	if !ok {
		return errNoSession
	}
	at := s.At()
	err := r.be.CreateReminder(ctx, at, s.Label)
	r.record(ctx, storage.JournalEntry{Kind: storage.KindReminder, Title: s.Label, Detail: at.Format(whenLayout)}, err)
	if err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}
	if _, _, err := r.session.Save(); err != nil {
		return err
	}

	done := tgui.New().
		Title(s.Label).
		Line("saved for " + at.Format(whenLayout)).
		Build()
	if s.MessageID != 0 {
		if err := done.Edit(ctx, r.ad, kit.MessageRef{ChatID: req.Chat.ChatID, MessageID: s.MessageID}); err != nil {
			r.log.Debug("reminder card edit failed", logx.Err(err))
		}
	}
	return r.reply(ctx, req, "Reminder saved :-)")
}

func (r *Relay) refresh(ctx context.Context, req *router.Request, s reminder.Session) error {
	if s.MessageID == 0 {
		return nil
	}
	return r.renderSession(s).Edit(ctx, r.ad, kit.MessageRef{ChatID: req.Chat.ChatID, MessageID: s.MessageID})
}

// renderSession shows label, accumulated offset and the resulting time,
// with the increment row and the save row.
func (r *Relay) renderSession(s reminder.Session) tgui.Message {
	row := make([]tele.Btn, 0, len(reminder.Steps))
	for _, st := range reminder.Steps {
		row = append(row, tgui.Btn("+"+string(st), reminder.StepData(st)))
	}
	kb := tgui.NewInline().Row(row...).Row(tgui.Btn("save", reminder.SaveData))

	return tgui.New().
		Title(s.Label).
		KV("in", timefmt.FormatDuration(s.Offset)).
		KV("at", s.At().Format(whenLayout)).
		Inline(kb).
		Build()
}
