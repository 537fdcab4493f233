package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"yt-transcripts/internal/model"
)

const sqlSchema = `CREATE TABLE IF NOT EXISTS transcript_checkpoint (
	id         TEXT PRIMARY KEY,
	transcript TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLStore keeps the checkpoint in a single table. Each Record is one
// autocommitted upsert.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("checkpoint %s: dsn is required", driver)
	}
	sqlDriver := "sqlite"
	if driver == DriverPostgres {
		sqlDriver = "pgx"
	}
	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: open: %w", driver, err)
	}
	db.SetMaxOpenConns(1) // single writer
	if _, err := db.ExecContext(ctx, sqlSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("checkpoint %s: init schema: %w", driver, err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

func (s *SQLStore) Load(ctx context.Context) (Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, transcript FROM transcript_checkpoint ORDER BY updated_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load %s checkpoint: %w", s.driver, err)
	}
	defer rows.Close()

	cp := Checkpoint{}
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("%w: scan %s checkpoint: %v", model.ErrCorruptCheckpoint, s.driver, err)
		}
		outcome, ok := model.DecodePayload(payload)
		if !ok {
			continue
		}
		cp[id] = outcome
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s checkpoint: %v", model.ErrCorruptCheckpoint, s.driver, err)
	}
	return cp, nil
}

func (s *SQLStore) Record(ctx context.Context, id string, outcome model.Outcome) error {
	payload, err := validateRecord(id, outcome)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcript_checkpoint (id, transcript, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET transcript = excluded.transcript, updated_at = excluded.updated_at`,
		id, payload, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("persist %s checkpoint %s: %w", s.driver, id, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
