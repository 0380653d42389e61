// Package pgsink persists ingestion results in PostgreSQL, as the pluggable
// alternative to the default in-memory index.
package pgsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/opsforge/gridloader/internal/ingest"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Sink stores one record per key with the field mapping as JSONB.
// It implements ingest.Sink.
type Sink struct {
	db    DBTX
	table string
}

// New returns a sink writing to the named table. The table name is embedded
// in SQL, so it must come from configuration, never from user input.
func New(db DBTX, table string) *Sink {
	if table == "" {
		table = "grid_records"
	}
	return &Sink{db: db, table: table}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			key    text PRIMARY KEY,
			fields jsonb NOT NULL,
			loaded_at timestamptz NOT NULL DEFAULT now()
		)`, s.table))
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Put upserts the record under key. The indexer has already disambiguated
// colliding keys, so an existing row only means the same source was loaded
// again.
func (s *Sink) Put(ctx context.Context, key string, rec ingest.Record) error {
	fields, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %q: %w", key, err)
	}

	_, err = s.db.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (key, fields) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET fields = EXCLUDED.fields, loaded_at = now()`,
		s.table), key, fields)
	if err != nil {
		return fmt.Errorf("insert record %q: %w", key, err)
	}
	return nil
}

// Get looks up the record stored under key.
func (s *Sink) Get(ctx context.Context, key string) (ingest.Record, bool, error) {
	var fields []byte
	err := s.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT fields FROM %s WHERE key = $1`, s.table), key).Scan(&fields)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup record %q: %w", key, err)
	}

	var rec ingest.Record
	if err := json.Unmarshal(fields, &rec); err != nil {
		return nil, false, fmt.Errorf("decode record %q: %w", key, err)
	}
	return rec, true, nil
}
