// Package reminder holds the interactive reminder builder: a single
// session slot that accumulates an offset from button presses and a
// label from free text, then yields the time to schedule.
package reminder

import (
	"errors"
	"strings"
	"time"
)

// DefaultLabel is the label of a freshly started session.
const DefaultLabel = "Reminder"

var ErrNoSession = errors.New("reminder: no active session")

// Step is a fixed offset increment bound to one button.
type Step string

const (
	Step10m Step = "10m"
	Step1h  Step = "1h"
	Step1d  Step = "1d"
	Step1w  Step = "1w"
)

// Steps lists the increments in keyboard order.
var Steps = [...]Step{Step10m, Step1h, Step1d, Step1w}

func (s Step) Duration() time.Duration {
	switch s {
	case Step10m:
		return 10 * time.Minute
	case Step1h:
		return time.Hour
	case Step1d:
		return 24 * time.Hour
	case Step1w:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Session is the in-flight reminder.
type Session struct {
	MessageID int // chat message re-rendered on every change
	Label     string
	Anchor    time.Time
	Offset    time.Duration
}

// At is the moment the reminder is due.
func (s Session) At() time.Time { return s.Anchor.Add(s.Offset) }

// Scheduled is what Save hands to the backend.
type Scheduled struct {
	At    time.Time
	Label string
}

// Machine owns the one session slot. It is not safe for concurrent use;
// the update consumer is its only caller.
type Machine struct {
	cur *Session
}

// Active reports whether a session is being built.
func (m *Machine) Active() bool { return m.cur != nil }

// Current returns a copy of the active session.
func (m *Machine) Current() (Session, bool) {
	if m.cur == nil {
		return Session{}, false
	}
	return *m.cur, true
}

// Start discards any unfinished session and begins a new one anchored at
// now. messageID is the chat message that will display it.
func (m *Machine) Start(now time.Time, messageID int) Session {
	m.cur = &Session{MessageID: messageID, Label: DefaultLabel, Anchor: now}
	return *m.cur
}

// Track sets the message that displays the session.
func (m *Machine) Track(messageID int) error {
	if m.cur == nil {
		return ErrNoSession
	}
	m.cur.MessageID = messageID
	return nil
}

func (m *Machine) Increment(step Step) (Session, error) {
	if m.cur == nil {
		return Session{}, ErrNoSession
	}
	m.cur.Offset += step.Duration()
	return *m.cur, nil
}

func (m *Machine) SetLabel(label string) (Session, error) {
	if m.cur == nil {
		return Session{}, ErrNoSession
	}
	m.cur.Label = label
	return *m.cur, nil
}

func (m *Machine) SetAnchor(t time.Time) (Session, error) {
	if m.cur == nil {
		return Session{}, ErrNoSession
	}
	m.cur.Anchor = t
	return *m.cur, nil
}

// Save ends the session and returns anchor + offset with the label.
func (m *Machine) Save() (Scheduled, Session, error) {
	if m.cur == nil {
		return Scheduled{}, Session{}, ErrNoSession
	}
	s := *m.cur
	m.cur = nil
	return Scheduled{At: s.At(), Label: s.Label}, s, nil
}

// Reset drops the session without saving.
func (m *Machine) Reset() { m.cur = nil }

// Action is what a button press asks for.
type Action uint8

const (
	ActionIncrement Action = iota + 1
	ActionSave
)

type Callback struct {
	Action Action
	Step   Step // set for ActionIncrement
}

const callbackSuffix = "_cb"

// SaveData is the callback payload of the save button.
const SaveData = "save" + callbackSuffix

// StepData is the callback payload of an increment button.
func StepData(s Step) string { return string(s) + callbackSuffix }

// ParseCallback maps 10m_cb, 1h_cb, 1d_cb, 1w_cb and save_cb.
func ParseCallback(data string) (Callback, bool) {
	data = strings.TrimSpace(data)
	if data == SaveData {
		return Callback{Action: ActionSave}, true
	}
	for _, s := range Steps {
		if data == StepData(s) {
			return Callback{Action: ActionIncrement, Step: s}, true
		}
	}
	return Callback{}, false
}
