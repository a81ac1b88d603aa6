package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"noterelay/internal/alerts"
	"noterelay/internal/transport/telegram/router"
	"noterelay/pkg/tgui"
)

func (r *Relay) handleNext(ctx context.Context, req *router.Request) error {
	items, err := r.upcoming.Upcoming(ctx, r.now())
	if err != nil {
		return fmt.Errorf("upcoming: %w", err)
	}
	if len(items) == 0 {
		return r.reply(ctx, req, "nothing upcoming")
	}
	for i := range items {
		items[i].Due = items[i].Due.In(r.cfg.Location)
	}
	_, err = tgui.New().Pre(alerts.FormatUpcoming(items)).Build().Send(ctx, r.ad, req.Chat)
	return err
}

const recentDefault = 10

func (r *Relay) handleRecent(ctx context.Context, req *router.Request) error {
	if r.journal == nil {
		return &router.UserError{Msg: "journal is disabled (storage.driver is none)"}
	}
	n := recentDefault
	if len(req.Args) > 0 {
		v, err := strconv.Atoi(req.Args[0])
		if err != nil || v <= 0 || v > 50 {
			return &router.UserError{Msg: "usage: /recent [1-50]"}
		}
		n = v
	}
	entries, err := r.journal.RecentJournal(ctx, n)
	if err != nil {
		return fmt.Errorf("recent: %w", err)
	}
	if len(entries) == 0 {
		return r.reply(ctx, req, "journal is empty")
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		status := "ok"
		if e.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(&b, "%s %-8s %-6s %s", e.At.In(r.cfg.Location).Format("01-02 15:04"), e.Kind, status, e.Title)
	}
	_, err = tgui.New().Pre(b.String()).Build().Send(ctx, r.ad, req.Chat)
	return err
}
