package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	logx "noterelay/pkg/logx"
)

func TestMinuteSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 * * * * *"},
		{2 * time.Second, "2 * * * * *"},
		{2500 * time.Millisecond, "2 * * * * *"},
		{-time.Second, "0 * * * * *"},
		{5 * time.Minute, "59 * * * * *"},
	}
	for _, tt := range tests {
		if got := MinuteSpec(tt.in); got != tt.want {
			t.Fatalf("MinuteSpec(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMinuteSpec_FiresOncePerMinuteAfterGrace(t *testing.T) {
	t.Parallel()

	s := New(time.UTC, logx.Nop())
	sched, err := s.parser.Parse(MinuteSpec(2 * time.Second))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	from := time.Date(2024, 1, 1, 9, 0, 30, 0, time.UTC)
	want := []time.Time{
		time.Date(2024, 1, 1, 9, 1, 2, 0, time.UTC),
		time.Date(2024, 1, 1, 9, 2, 2, 0, time.UTC),
		time.Date(2024, 1, 1, 9, 3, 2, 0, time.UTC),
	}
	cur := from
	for i, w := range want {
		cur = sched.Next(cur)
		if !cur.Equal(w) {
			t.Fatalf("Next #%d = %v, want %v", i, cur, w)
		}
	}
}

func TestAddCron_UpsertAndRemove(t *testing.T) {
	t.Parallel()

	s := New(time.UTC, logx.Nop())
	noop := func(ctx context.Context) error { return nil }
	if err := s.AddCron("tasks", "* * * * *", 0, noop); err != nil {
		t.Fatalf("AddCron() error: %v", err)
	}
	if err := s.AddCron("tasks", "*/5 * * * *", 0, noop); err != nil {
		t.Fatalf("AddCron() upsert error: %v", err)
	}
	if len(s.defs) != 1 || s.defs[0].spec != "*/5 * * * *" {
		t.Fatalf("defs = %+v, want single upserted def", s.defs)
	}
	if err := s.AddCron("bad", "not a spec", 0, noop); err == nil {
		t.Fatalf("AddCron() with invalid spec should fail")
	}
	if err := s.AddCron(" ", "* * * * *", 0, noop); err == nil {
		t.Fatalf("AddCron() with empty name should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	if next, ok := s.Next("tasks"); !ok || next.IsZero() {
		t.Fatalf("Next(tasks) = %v, %v; want scheduled", next, ok)
	}
	if !s.Remove("tasks") {
		t.Fatalf("Remove(tasks) = false, want true")
	}
	if _, ok := s.Next("tasks"); ok {
		t.Fatalf("Next(tasks) after Remove should be absent")
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	s.Stop(stopCtx)
}

var _ cron.Logger = cronLogger{}
