package alerts

import (
	"encoding/json"
	"time"
)

// LabelKind classifies the task labels the engine understands.
type LabelKind uint8

const (
	LabelOther LabelKind = iota
	LabelTodoDate
	LabelTodoTime
	LabelDoneDate
	LabelReminder
	LabelCanceled
)

// Label is one task attribute, classified at decode time.
type Label struct {
	Kind  LabelKind
	Name  string
	Value string
}

func classify(typ, name, value string) Label {
	l := Label{Kind: LabelOther, Name: name, Value: value}
	if typ != "label" {
		return l
	}
	switch name {
	case "todoDate":
		l.Kind = LabelTodoDate
	case "todoTime":
		l.Kind = LabelTodoTime
	case "doneDate":
		l.Kind = LabelDoneDate
	case "reminder":
		l.Kind = LabelReminder
	case "canceled":
		l.Kind = LabelCanceled
	}
	return l
}

// Task is a backend note carrying todo labels.
type Task struct {
	ID     string
	Title  string
	Labels []Label
}

func (t *Task) UnmarshalJSON(b []byte) error {
	var w struct {
		NoteID     string `json:"noteId"`
		Title      string `json:"title"`
		Attributes []struct {
			Type  string `json:"type"`
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"attributes"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	t.ID = w.NoteID
	t.Title = w.Title
	t.Labels = make([]Label, 0, len(w.Attributes))
	for _, a := range w.Attributes {
		t.Labels = append(t.Labels, classify(a.Type, a.Name, a.Value))
	}
	return nil
}

// Event is a backend calendar entry. StartTime has no offset.
type Event struct {
	Name      string `json:"name"`
	StartTime string `json:"startTime"`
}

type SourceKind string

const (
	SourceTask  SourceKind = "task"
	SourceEvent SourceKind = "event"
)

// DueItem is a task or event with its resolved due time. It is
// recomputed on every poll and never stored.
type DueItem struct {
	Source   SourceKind
	Title    string
	Due      time.Time
	Reminder bool
}

// DecodeTasks decodes a task_alerts payload.
func DecodeTasks(raw []byte) ([]Task, error) {
	var out []Task
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeEvents decodes an event_alerts payload.
func DecodeEvents(raw []byte) ([]Event, error) {
	var out []Event
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
