package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	kit "noterelay/internal/transport"
	logx "noterelay/pkg/logx"
)

type fakeAdapter struct {
	mu       sync.Mutex
	sent     []string
	answered map[string]string
	menu     []kit.BotCommand
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                     { return nil }

func (f *fakeAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) EditText(context.Context, kit.MessageRef, string, *kit.SendOptions) error {
	return nil
}

func (f *fakeAdapter) AnswerCallback(_ context.Context, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.answered == nil {
		f.answered = map[string]string{}
	}
	f.answered[id] = text
	return nil
}

func (f *fakeAdapter) DownloadFile(context.Context, string) ([]byte, error) { return nil, nil }

func (f *fakeAdapter) UpdateMenuCommands(_ context.Context, cmds []kit.BotCommand) error {
	f.menu = cmds
	return nil
}

const owner = 42

func text(from int64, s string) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 7, FromID: from, Text: s}}
}

func TestDispatch_DropsStrangersSilently(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(logx.Nop(), ad, owner)
	called := false
	r.SetRoutes(Routes{Text: func(context.Context, *Request) error { called = true; return nil }})

	r.Dispatch(context.Background(), text(99, "hello"))
	r.Dispatch(context.Background(), text(99, "/nope"))
	if called || len(ad.sent) != 0 {
		t.Fatalf("stranger update handled: called=%v sent=%q", called, ad.sent)
	}
}

func TestDispatch_CommandsAndText(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(logx.Nop(), ad, owner)
	var gotArgs, gotText string
	r.SetRoutes(Routes{
		Commands: []Command{{
			Name:    "next",
			Aliases: []string{"n"},
			Handle: func(_ context.Context, req *Request) error {
				gotArgs = req.RawArgs
				return nil
			},
		}},
		Text: func(_ context.Context, req *Request) error {
			gotText = req.RawArgs
			return nil
		},
	})

	r.Dispatch(context.Background(), text(owner, "/next@relay_bot  a b"))
	if gotArgs != "a b" {
		t.Fatalf("RawArgs = %q, want %q", gotArgs, "a b")
	}
	gotArgs = "-"
	r.Dispatch(context.Background(), text(owner, "/n"))
	if gotArgs != "" {
		t.Fatalf("alias did not reach command, RawArgs = %q", gotArgs)
	}
	r.Dispatch(context.Background(), text(owner, "  buy milk "))
	if gotText != "  buy milk " {
		t.Fatalf("text = %q", gotText)
	}
	gotText = "-"
	r.Dispatch(context.Background(), text(owner, " \n "))
	if gotText != "-" {
		t.Fatalf("blank text reached the handler: %q", gotText)
	}
	r.Dispatch(context.Background(), text(owner, "/unknown"))
	if n := len(ad.sent); n != 1 || !strings.Contains(ad.sent[0], "/help") {
		t.Fatalf("sent = %q, want one /help hint", ad.sent)
	}
}

func TestDispatch_HandlerErrorReported(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(logx.Nop(), ad, owner)
	r.SetRoutes(Routes{
		Commands: []Command{
			{Name: "fail", Handle: func(context.Context, *Request) error { return &UserError{Msg: "bad time"} }},
			{Name: "boom", Handle: func(context.Context, *Request) error { panic("x") }},
		},
	})

	r.Dispatch(context.Background(), text(owner, "/fail"))
	r.Dispatch(context.Background(), text(owner, "/boom"))
	if len(ad.sent) != 2 || ad.sent[0] != "error: bad time" || !strings.Contains(ad.sent[1], "panic") {
		t.Fatalf("sent = %q", ad.sent)
	}
}

func TestDispatch_CallbacksAlwaysAnswered(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(logx.Nop(), ad, owner)
	hits := 0
	r.SetRoutes(Routes{Callbacks: map[string]HandlerFunc{
		"10m_cb":  func(context.Context, *Request) error { hits++; return nil },
		"save_cb": func(context.Context, *Request) error { return &UserError{Msg: "no reminder in progress"} },
	}})

	cb := func(id, data string) kit.Update {
		return kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: id, FromID: owner, ChatID: 7, Data: data}}
	}
	r.Dispatch(context.Background(), cb("a", "10m_cb"))
	r.Dispatch(context.Background(), cb("b", "save_cb"))
	r.Dispatch(context.Background(), cb("c", "other"))

	if hits != 1 {
		t.Fatalf("hits = %d, want 1", hits)
	}
	want := map[string]string{"a": "", "b": "no reminder in progress", "c": ""}
	for id, w := range want {
		got, ok := ad.answered[id]
		if !ok || got != w {
			t.Fatalf("answer[%s] = %q (%v), want %q", id, got, ok, w)
		}
	}
	if len(ad.sent) != 0 {
		t.Fatalf("callbacks should not send messages, sent = %q", ad.sent)
	}
}

func TestRun_StopsOnClosedChannel(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(logx.Nop(), ad, owner)
	var order []string
	r.SetRoutes(Routes{Text: func(_ context.Context, req *Request) error {
		order = append(order, req.RawArgs)
		return nil
	}})

	ch := make(chan kit.Update, 3)
	ch <- text(owner, "one")
	ch <- text(owner, "two")
	ch <- text(owner, "three")
	close(ch)
	if err := r.Run(context.Background(), ch); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if strings.Join(order, ",") != "one,two,three" {
		t.Fatalf("order = %v", order)
	}
}

func TestPublishMenu(t *testing.T) {
	t.Parallel()

	ad := &fakeAdapter{}
	r := New(logx.Nop(), ad, owner)
	r.SetRoutes(Routes{Commands: []Command{
		{Name: "remindme", Description: "start a reminder", Handle: func(context.Context, *Request) error { return nil }},
	}})
	if err := r.PublishMenu(context.Background()); err != nil {
		t.Fatalf("PublishMenu() = %v", err)
	}
	if len(ad.menu) != 2 || ad.menu[0].Command != "remindme" || ad.menu[1].Command != "help" {
		t.Fatalf("menu = %+v", ad.menu)
	}
}

func TestShortError(t *testing.T) {
	t.Parallel()

	if got := shortError(context.DeadlineExceeded); got != "timed out" {
		t.Fatalf("shortError(deadline) = %q", got)
	}
	if got := shortError(errors.New(strings.Repeat("x", 300))); len([]rune(got)) != 181 {
		t.Fatalf("long error not truncated: %d runes", len([]rune(got)))
	}
}

func TestSanitizeTelegramCommand(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"RemindMe":    "remindme",
		"a-b c":       "a_b_c",
		"__x__":       "x",
		"!!!":         "",
		"next/events": "next_events",
	}
	for in, want := range cases {
		if got := sanitizeTelegramCommand(in); got != want {
			t.Fatalf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
