// Package checkpoint persists resolved per-item outcomes so batch runs can be
// resumed after a crash or an early stop.
package checkpoint

import (
	"context"
	"fmt"
	"strings"

	"yt-transcripts/internal/model"
)

const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Checkpoint maps an item id to its resolved outcome. Absent ids are pending.
type Checkpoint map[string]model.Outcome

// Resolved reports whether id has a success or permanent failure entry.
func (c Checkpoint) Resolved(id string) bool {
	o, ok := c[id]
	return ok && o.IsResolved()
}

// Store is a durable checkpoint. Record must not return before the entry is
// safe from a process crash.
type Store interface {
	Load(ctx context.Context) (Checkpoint, error)
	Record(ctx context.Context, id string, outcome model.Outcome) error
	Close() error
}

type Options struct {
	Driver string
	Path   string
	DSN    string
}

func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverCSV:
		return NewCSVStore(opts.Path)
	case DriverSQLite:
		dsn := strings.TrimSpace(opts.DSN)
		if dsn == "" {
			dsn = opts.Path
		}
		return OpenSQL(ctx, DriverSQLite, dsn)
	case DriverPostgres:
		return OpenSQL(ctx, DriverPostgres, opts.DSN)
	default:
		return nil, fmt.Errorf("unknown checkpoint driver %q (expected csv, sqlite, or postgres)", opts.Driver)
	}
}

func validateRecord(id string, outcome model.Outcome) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("record checkpoint: id is required")
	}
	payload, err := model.EncodePayload(outcome)
	if err != nil {
		return "", fmt.Errorf("record checkpoint %s: %w", id, err)
	}
	return payload, nil
}
