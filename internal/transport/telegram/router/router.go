package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	kit "noterelay/internal/transport"
	logx "noterelay/pkg/logx"
)

// Command is a slash command. Name has no leading slash.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Timeout     time.Duration // optional per-command override
	Handle      HandlerFunc
}

// Request is what handlers see for one update.
type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string // command name, callback data or "text"/"document"
	Args    []string
	// RawArgs is the text after the command word, untrimmed of inner spaces.
	RawArgs string
	ReqID   string
	Logger  logx.Logger
}

// Routes is the full handler table. Text and Document receive updates that
// are not commands; Callbacks is keyed by the exact callback data.
type Routes struct {
	Commands  []Command
	Callbacks map[string]HandlerFunc
	Text      HandlerFunc
	Document  HandlerFunc
	Timeout   time.Duration // default per-update timeout; 0 means none
}

// Router consumes updates one at a time. Handlers run on the consumer
// goroutine, so state they share needs no locking.
type Router struct {
	log     logx.Logger
	adapter kit.Adapter
	owner   atomic.Int64

	mu     sync.RWMutex
	cmds   map[string]*Command
	menu   []kit.BotCommand
	routes Routes
}

func New(log logx.Logger, adapter kit.Adapter, ownerID int64) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{log: log, adapter: adapter, cmds: map[string]*Command{}}
	r.owner.Store(ownerID)
	return r
}

// SetOwner replaces the only user whose updates are handled.
func (r *Router) SetOwner(id int64) { r.owner.Store(id) }

func (r *Router) Owner() int64 { return r.owner.Load() }

// SetRoutes installs the handler table and injects /help.
func (r *Router) SetRoutes(routes Routes) {
	cmds := append([]Command(nil), routes.Commands...)
	cmds = append(cmds, Command{
		Name:        "help",
		Aliases:     []string{"start"},
		Description: "list commands",
		Usage:       "/help",
		Handle: func(ctx context.Context, req *Request) error {
			_, err := r.adapter.SendText(ctx, req.Chat, r.helpText(), &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
			return err
		},
	})

	table := map[string]*Command{}
	ordered := make([]Command, 0, len(cmds))
	for i := range cmds {
		c := &cmds[i]
		name := sanitizeTelegramCommand(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		c.Name = name
		table[name] = c
		ordered = append(ordered, *c)
		for _, a := range c.Aliases {
			if a = sanitizeTelegramCommand(a); a != "" {
				if _, exists := table[a]; !exists {
					table[a] = c
				}
			}
		}
	}

	r.mu.Lock()
	r.cmds = table
	r.menu = buildMenuCommands(ordered)
	r.routes = routes
	r.mu.Unlock()
}

// PublishMenu pushes the command list to the adapter when it supports a
// platform menu.
func (r *Router) PublishMenu(ctx context.Context) error {
	up, ok := r.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return nil
	}
	r.mu.RLock()
	menu := append([]kit.BotCommand(nil), r.menu...)
	r.mu.RUnlock()
	return up.UpdateMenuCommands(ctx, menu)
}

// Run handles updates until ctx is canceled or the channel is closed.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) error {
	r.log.Info("dispatcher started")
	defer r.log.Info("dispatcher stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.Dispatch(ctx, up)
		}
	}
}

// Dispatch routes a single update synchronously.
func (r *Router) Dispatch(ctx context.Context, up kit.Update) {
	if from := up.FromID(); from == 0 || from != r.owner.Load() {
		r.log.Debug("update from unauthorized sender dropped", logx.Int64("from_id", from), logx.String("kind", string(up.Kind)))
		return
	}
	switch up.Kind {
	case kit.UpdateMessage:
		r.routeMessage(ctx, up)
	case kit.UpdateDocument:
		r.routeDocument(ctx, up)
	case kit.UpdateCallback:
		r.routeCallback(ctx, up)
	}
}

func (r *Router) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	r.mu.RLock()
	routes := r.routes
	table := r.cmds
	r.mu.RUnlock()

	text := strings.TrimSpace(msg.Text)
	if word, rest, ok := splitCommand(text); ok {
		cmd, found := table[word]
		if !found {
			_, _ = r.adapter.SendText(ctx, chatOf(msg), "unknown command, try /help", nil)
			return
		}
		req := r.newRequest(up, chatOf(msg), msg.FromID, cmd.Name)
		req.RawArgs = rest
		req.Args = strings.Fields(rest)
		timeout := cmd.Timeout
		if timeout <= 0 {
			timeout = routes.Timeout
		}
		r.run(ctx, req, cmd.Handle, timeout, func(err error) {
			r.replyError(ctx, req.Chat, err)
		})
		return
	}

	if routes.Text == nil || text == "" {
		return
	}
	req := r.newRequest(up, chatOf(msg), msg.FromID, "text")
	// Free text is passed on verbatim.
	req.RawArgs = msg.Text
	r.run(ctx, req, routes.Text, routes.Timeout, func(err error) {
		r.replyError(ctx, req.Chat, err)
	})
}

func (r *Router) routeDocument(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil || msg.Document == nil {
		return
	}
	r.mu.RLock()
	routes := r.routes
	r.mu.RUnlock()
	if routes.Document == nil {
		return
	}
	req := r.newRequest(up, chatOf(msg), msg.FromID, "document")
	r.run(ctx, req, routes.Document, routes.Timeout, func(err error) {
		r.replyError(ctx, req.Chat, err)
	})
}

func (r *Router) routeCallback(ctx context.Context, up kit.Update) {
	cb := up.Callback
	if cb == nil {
		return
	}
	data := strings.TrimSpace(cb.Data)
	r.mu.RLock()
	routes := r.routes
	h := routes.Callbacks[data]
	r.mu.RUnlock()
	if h == nil {
		_ = r.adapter.AnswerCallback(ctx, cb.ID, "")
		r.log.Debug("callback without route", logx.String("data", data))
		return
	}
	req := r.newRequest(up, kit.ChatTarget{ChatID: cb.ChatID}, cb.FromID, data)
	answer := ""
	r.run(ctx, req, h, routes.Timeout, func(err error) {
		answer = shortError(err)
	})
	// Stops the client spinner; handlers do not answer themselves.
	_ = r.adapter.AnswerCallback(ctx, cb.ID, answer)
}

func (r *Router) newRequest(up kit.Update, chat kit.ChatTarget, from int64, command string) *Request {
	rid := newReqID()
	return &Request{
		Update:  up,
		Chat:    chat,
		FromID:  from,
		Command: command,
		ReqID:   rid,
		Logger: r.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", chat.ChatID),
			logx.String("cmd", command),
		),
	}
}

func (r *Router) run(ctx context.Context, req *Request, h HandlerFunc, timeout time.Duration, onErr func(error)) {
	final := Chain(h,
		MWPanicRecover(r.log),
		MWRequestLog(r.log),
		MWTimeout(timeout),
	)
	if err := final(ctx, req); err != nil && ctx.Err() == nil {
		onErr(err)
	}
}

func (r *Router) replyError(ctx context.Context, chat kit.ChatTarget, err error) {
	_, _ = r.adapter.SendText(ctx, chat, "error: "+shortError(err), nil)
}

// UserError is shown to the user verbatim.
type UserError struct{ Msg string }

func (e *UserError) Error() string { return e.Msg }

func shortError(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Msg
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	s := err.Error()
	if len(s) > 180 {
		s = s[:180] + "…"
	}
	return s
}

func chatOf(m *kit.Message) kit.ChatTarget { return kit.ChatTarget{ChatID: m.ChatID} }
