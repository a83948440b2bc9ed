package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound is wrapped by every lookup that finds no row.
var ErrNotFound = errors.New("not found")

type DB struct {
	*sql.DB
}

// New opens a Postgres connection pool and checks it is reachable.
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: conn}, nil
}

// Wrap adopts an existing handle.
func Wrap(conn *sql.DB) *DB {
	return &DB{DB: conn}
}

const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	id                  UUID PRIMARY KEY,
	source_type         TEXT NOT NULL,
	source_url          TEXT,
	source_text         TEXT,
	source_name         TEXT,
	style               TEXT NOT NULL,
	duration            TEXT NOT NULL,
	script_only         BOOLEAN NOT NULL DEFAULT FALSE,
	status              TEXT NOT NULL,
	total_lines         INTEGER,
	segments_succeeded  INTEGER,
	audio_duration_ms   INTEGER,
	script_asset_id     UUID,
	audio_asset_id      UUID,
	mp3_asset_id        UUID,
	transcript_asset_id UUID,
	source_metadata     JSONB,
	status_message      TEXT,
	error_code          TEXT,
	error_message       TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS assets (
	id             UUID PRIMARY KEY,
	episode_id     UUID NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	segment_id     UUID,
	type           TEXT NOT NULL,
	storage_bucket TEXT NOT NULL,
	storage_path   TEXT NOT NULL,
	content_type   TEXT,
	byte_size      BIGINT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS segments (
	id             UUID PRIMARY KEY,
	episode_id     UUID NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	turn_index     INTEGER NOT NULL,
	speaker        TEXT NOT NULL,
	dialogue       TEXT NOT NULL,
	status         TEXT NOT NULL,
	audio_asset_id UUID REFERENCES assets(id),
	duration_ms    INTEGER,
	offset_ms      INTEGER,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (episode_id, turn_index)
);

CREATE TABLE IF NOT EXISTS jobs (
	id            UUID PRIMARY KEY,
	episode_id    UUID NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
	type          TEXT NOT NULL,
	status        TEXT NOT NULL,
	attempts      INTEGER NOT NULL DEFAULT 0,
	started_at    TIMESTAMPTZ,
	finished_at   TIMESTAMPTZ,
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS episodes_status_created_idx ON episodes (status, created_at DESC);
CREATE INDEX IF NOT EXISTS jobs_episode_idx ON jobs (episode_id, created_at);
`

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
