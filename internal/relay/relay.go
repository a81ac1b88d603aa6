package relay

import (
	"context"
	"time"

	"noterelay/internal/alerts"
	"noterelay/internal/backend"
	"noterelay/internal/reminder"
	"noterelay/internal/storage"
	kit "noterelay/internal/transport"
	"noterelay/internal/transport/telegram/router"
	logx "noterelay/pkg/logx"
)

// Backend is the subset of the note backend the handlers write to.
type Backend interface {
	CreateNote(ctx context.Context, title, content string) error
	CreateEvent(ctx context.Context, ev backend.EventRequest) error
	CreateReminder(ctx context.Context, at time.Time, label string) error
}

// Upcoming lists due items for /next.
type Upcoming interface {
	Upcoming(ctx context.Context, now time.Time) ([]alerts.DueItem, error)
}

// Journal records handled actions. It may be nil.
type Journal interface {
	AppendJournal(ctx context.Context, e storage.JournalEntry) error
	RecentJournal(ctx context.Context, limit int) ([]storage.JournalEntry, error)
}

type Config struct {
	Location    *time.Location
	MaxDocument int64 // bytes; 0 means 1 MiB
}

type Relay struct {
	cfg      Config
	ad       kit.Adapter
	be       Backend
	upcoming Upcoming
	journal  Journal
	log      logx.Logger
	now      func() time.Time

	session reminder.Machine
}

func New(cfg Config, ad kit.Adapter, be Backend, up Upcoming, journal Journal, log logx.Logger) *Relay {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxDocument <= 0 {
		cfg.MaxDocument = 1 << 20
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Relay{cfg: cfg, ad: ad, be: be, upcoming: up, journal: journal, log: log, now: time.Now}
}

// Routes returns the handler table for the router.
func (r *Relay) Routes() router.Routes {
	cbs := map[string]router.HandlerFunc{
		reminder.SaveData: r.handleCallback,
	}
	for _, st := range reminder.Steps {
		cbs[reminder.StepData(st)] = r.handleCallback
	}
	return router.Routes{
		Commands: []router.Command{
			{
				Name:        "remindme",
				Description: "build a reminder with buttons",
				Usage:       "/remindme, then type a label or \"time YYYY-MM-DD HH.MM\"",
				Handle:      r.handleRemindMe,
			},
			{
				Name:        "next",
				Description: "list upcoming tasks and events",
				Timeout:     30 * time.Second,
				Handle:      r.handleNext,
			},
			{
				Name:        "recent",
				Description: "show the last relayed items",
				Usage:       "/recent [n]",
				Handle:      r.handleRecent,
			},
		},
		Callbacks: cbs,
		Text:      r.handleText,
		Document:  r.handleDocument,
		Timeout:   time.Minute,
	}
}

func (r *Relay) record(ctx context.Context, e storage.JournalEntry, err error) {
	if r.journal == nil {
		return
	}
	if err != nil {
		e.Error = err.Error()
	}
	e.At = r.now()
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if jerr := r.journal.AppendJournal(cctx, e); jerr != nil {
		r.log.Debug("journal append failed", logx.Err(jerr))
	}
}

func (r *Relay) reply(ctx context.Context, req *router.Request, text string) error {
	_, err := r.ad.SendText(ctx, req.Chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}
