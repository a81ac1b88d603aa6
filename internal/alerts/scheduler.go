package alerts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"noterelay/internal/schedule"
	logx "noterelay/pkg/logx"
)

// Source supplies the raw alert feeds.
type Source interface {
	TaskAlerts(ctx context.Context) ([]byte, error)
	EventAlerts(ctx context.Context) ([]byte, error)
}

// Sink delivers fired alerts.
type Sink interface {
	Deliver(ctx context.Context, a Alert) error
}

type Config struct {
	Tasks    bool
	Events   bool
	Grace    time.Duration // offset after each minute boundary
	Timeout  time.Duration // per cycle
	Location *time.Location
}

const (
	CycleTasks  = "alerts.tasks"
	CycleEvents = "alerts.events"

	// UpcomingLimit caps the /next listing.
	UpcomingLimit = 10

	rawPayloadLogLimit = 4096
)

// Scheduler polls the backend once per minute per collection and hands
// fired alerts to a Sink. The two cycles share no state.
type Scheduler struct {
	cfg  Config
	src  Source
	sink Sink
	log  logx.Logger
	now  func() time.Time
}

func New(cfg Config, src Source, sink Sink, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Scheduler{cfg: cfg, src: src, sink: sink, log: log, now: time.Now}
}

// Register adds the enabled cycles to sched on a minute-aligned spec.
func (s *Scheduler) Register(sched *schedule.Service) error {
	spec := schedule.MinuteSpec(s.cfg.Grace)
	if s.cfg.Tasks {
		if err := sched.AddCron(CycleTasks, spec, s.cfg.Timeout, s.RunTasks); err != nil {
			return err
		}
	}
	if s.cfg.Events {
		if err := sched.AddCron(CycleEvents, spec, s.cfg.Timeout, s.RunEvents); err != nil {
			return err
		}
	}
	s.log.Info("alert cycles registered", logx.String("spec", spec), logx.Bool("tasks", s.cfg.Tasks), logx.Bool("events", s.cfg.Events))
	return nil
}

// RunTasks performs one task cycle. Malformed tasks are skipped; a fetch
// or decode failure ends the cycle.
func (s *Scheduler) RunTasks(ctx context.Context) error {
	now := s.now()
	tasks, err := s.fetchTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		item, ok, err := TaskDue(t, s.cfg.Location)
		if err != nil {
			s.log.Warn("task skipped", logx.Err(err))
			continue
		}
		if ok {
			s.fire(ctx, item, now)
		}
	}
	return nil
}

// RunEvents performs one event cycle. An unparsable start time ends the
// cycle at that event.
func (s *Scheduler) RunEvents(ctx context.Context) error {
	now := s.now()
	events, err := s.fetchEvents(ctx)
	if err != nil {
		return err
	}
	for _, e := range events {
		item, err := EventDue(e, s.cfg.Location)
		if err != nil {
			return err
		}
		s.fire(ctx, item, now)
	}
	return nil
}

func (s *Scheduler) fire(ctx context.Context, item DueItem, now time.Time) {
	left, ok := ShouldFire(item, now)
	if !ok {
		return
	}
	a := Alert{Item: item, Minutes: left}
	if err := s.sink.Deliver(ctx, a); err != nil {
		s.log.Warn("alert delivery failed", logx.String("title", item.Title), logx.Int64("minutes", left), logx.Err(err))
		return
	}
	s.log.Info("alert fired", logx.String("source", string(item.Source)), logx.String("title", item.Title), logx.Int64("minutes", left))
}

func (s *Scheduler) fetchTasks(ctx context.Context) ([]Task, error) {
	raw, err := s.src.TaskAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	tasks, err := DecodeTasks(raw)
	if err != nil {
		s.log.Warn("task payload undecodable", logx.Bytes("payload", raw, rawPayloadLogLimit), logx.Err(err))
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func (s *Scheduler) fetchEvents(ctx context.Context) ([]Event, error) {
	raw, err := s.src.EventAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	events, err := DecodeEvents(raw)
	if err != nil {
		s.log.Warn("event payload undecodable", logx.Bytes("payload", raw, rawPayloadLogLimit), logx.Err(err))
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

// Upcoming merges tasks and events due after now, soonest first, capped
// at UpcomingLimit. It does not fire anything.
func (s *Scheduler) Upcoming(ctx context.Context, now time.Time) ([]DueItem, error) {
	tasks, err := s.fetchTasks(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.fetchEvents(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]DueItem, 0, len(tasks)+len(events))
	for _, t := range tasks {
		item, ok, err := TaskDue(t, s.cfg.Location)
		if err != nil {
			s.log.Debug("task skipped", logx.Err(err))
			continue
		}
		if ok {
			items = append(items, item)
		}
	}
	for _, e := range events {
		item, err := EventDue(e, s.cfg.Location)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return SelectUpcoming(items, now, UpcomingLimit), nil
}

// SelectUpcoming keeps items due after now, sorted ascending, at most limit.
func SelectUpcoming(items []DueItem, now time.Time, limit int) []DueItem {
	out := make([]DueItem, 0, len(items))
	for _, it := range items {
		if it.Due.After(now) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
