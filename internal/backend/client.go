// Package backend talks to the note server: token login, the two alert
// feeds and the note, event and reminder creation endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	logx "noterelay/pkg/logx"
)

const (
	pathLogin       = "/api/login/token"
	pathNotes       = "/api/clipper/notes"
	pathTaskAlerts  = "/custom/task_alerts"
	pathEventAlerts = "/custom/event_alerts"
	pathNewEvent    = "/custom/new_event"
	pathNewReminder = "/custom/new_reminder"

	maxBody = 8 << 20
)

var ErrNoCredentials = errors.New("backend: no token and no username/password configured")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend %s: http %d", e.Op, e.Code)
	}
	return fmt.Sprintf("backend %s: http %d: %s", e.Op, e.Code, e.Body)
}

type Config struct {
	BaseURL  string // "host:port" or a full http(s) URL
	Username string
	Password string
	Token    string // skips login when set
	Timeout  time.Duration
}

// Client is safe for concurrent use. It does not retry.
type Client struct {
	base *url.URL
	cfg  Config
	http *http.Client
	log  logx.Logger

	mu    sync.Mutex
	token string
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("backend: base_url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("backend: base_url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend: base_url %q has no host", cfg.BaseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		base:  u,
		cfg:   cfg,
		http:  &http.Client{Timeout: timeout},
		log:   log,
		token: strings.TrimSpace(cfg.Token),
	}, nil
}

// Login exchanges the configured credentials for an API token.
func (c *Client) Login(ctx context.Context) error {
	if c.cfg.Username == "" && c.cfg.Password == "" {
		return ErrNoCredentials
	}
	body := map[string]string{"username": c.cfg.Username, "password": c.cfg.Password}
	raw, err := c.do(ctx, "login", http.MethodPost, pathLogin, "", body)
	if err != nil {
		return err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("backend login: decode: %w", err)
	}
	if out.Token == "" {
		return errors.New("backend login: empty token")
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	c.log.Info("logged in")
	return nil
}

func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()
	if tok != "" {
		return tok, nil
	}
	if err := c.Login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

// TaskAlerts returns the raw task feed.
func (c *Client) TaskAlerts(ctx context.Context) ([]byte, error) {
	return c.authed(ctx, "task_alerts", http.MethodGet, pathTaskAlerts, nil)
}

// EventAlerts returns the raw event feed.
func (c *Client) EventAlerts(ctx context.Context) ([]byte, error) {
	return c.authed(ctx, "event_alerts", http.MethodGet, pathEventAlerts, nil)
}

// CreateNote stores an HTML text note.
func (c *Client) CreateNote(ctx context.Context, title, content string) error {
	body := map[string]string{"title": title, "content": content, "clipType": "note"}
	_, err := c.authed(ctx, "create_note", http.MethodPost, pathNotes, body)
	return err
}

// EventRequest is one calendar event to store. Start and End are sent as
// wall-clock time without an offset.
type EventRequest struct {
	UID         string
	Name        string
	Summary     string
	SummaryHTML string
	Location    string
	Start       time.Time
	End         time.Time
	FileName    string
	FileData    string
}

const wallClock = "2006-01-02T15:04:05"

func (r EventRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		UID         string `json:"uid"`
		Name        string `json:"name"`
		Summary     string `json:"summary"`
		SummaryHTML string `json:"summaryHtml"`
		Location    string `json:"location"`
		FileName    string `json:"fileName"`
		FileData    string `json:"fileData"`
		StartTime   string `json:"startTime"`
		EndTime     string `json:"endTime"`
	}{
		UID:         r.UID,
		Name:        r.Name,
		Summary:     r.Summary,
		SummaryHTML: r.SummaryHTML,
		Location:    r.Location,
		FileName:    r.FileName,
		FileData:    r.FileData,
		StartTime:   r.Start.Format(wallClock),
		EndTime:     r.End.Format(wallClock),
	})
}

func (c *Client) CreateEvent(ctx context.Context, ev EventRequest) error {
	_, err := c.authed(ctx, "create_event", http.MethodPost, pathNewEvent, ev)
	return err
}

// CreateReminder schedules a reminder task at the given instant.
func (c *Client) CreateReminder(ctx context.Context, at time.Time, label string) error {
	body := map[string]string{"time": at.Format(time.RFC3339), "task": label}
	_, err := c.authed(ctx, "create_reminder", http.MethodPost, pathNewReminder, body)
	return err
}

func (c *Client) authed(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	tok, err := c.authToken(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.do(ctx, op, method, path, tok, body)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized && c.cfg.Username != "" {
		// Stale session: the next call logs in again.
		c.mu.Lock()
		if c.token == tok {
			c.token = ""
		}
		c.mu.Unlock()
	}
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend %s: encode: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	u := *c.base
	u.Path = c.base.Path + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", op, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("backend %s: read body: %w", op, err)
	}
	c.log.Debug("backend call", logx.String("op", op), logx.Int("status", resp.StatusCode), logx.Duration("took", time.Since(start)))
	if resp.StatusCode/100 != 2 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Body: msg}
	}
	return raw, nil
}
