package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "noterelay/pkg/logx"
)

// Store is the persistence API used by the relay and the notifier.
type Store interface {
	AppendJournal(ctx context.Context, e JournalEntry) error
	// RecentJournal returns up to limit entries, newest first.
	RecentJournal(ctx context.Context, limit int) ([]JournalEntry, error)
	PutDedup(ctx context.Context, key string, until time.Time) error
	GetDedup(ctx context.Context, key string) (until time.Time, ok bool, err error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func stamp(e *JournalEntry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
}
