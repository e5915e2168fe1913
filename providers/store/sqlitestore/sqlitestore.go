// Package sqlitestore provides a SQLite backed idguard.RecordStore.
//
// Records are kept in a single table keyed by the stored lookup value. The
// store never looks inside values: a raw identifier written in legacy mode
// and a digest written in protected mode are just different keys, which is
// what lets idguard.Lookup find both.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hengadev/idguard"
)

const schema = `CREATE TABLE IF NOT EXISTS identity_records (
	id TEXT PRIMARY KEY,
	lookup_value TEXT NOT NULL UNIQUE,
	fields TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

const upsertQuery = `INSERT INTO identity_records (id, lookup_value, fields, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(lookup_value) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`

const selectQuery = `SELECT id, fields, created_at, updated_at
	FROM identity_records WHERE lookup_value = ?`

const countQuery = `SELECT COUNT(*) FROM identity_records`

// Store persists identity records in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at dsn and creates the records table if needed.
//
// Usage:
//
//	store, err := sqlitestore.Open(ctx, "file:identities.db?_busy_timeout=5000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. Call Migrate before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the records table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create identity_records table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts fields, or replaces the fields of the record with the same
// lookup value.
func (s *Store) Save(ctx context.Context, lookupField string, fields map[string]string) (idguard.Record, error) {
	key := fields[lookupField]
	if key == "" {
		return idguard.Record{}, fmt.Errorf("%w: lookup field %q is empty", idguard.ErrInvalidFormat, lookupField)
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return idguard.Record{}, fmt.Errorf("failed to encode record fields: %w", err)
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, upsertQuery, uuid.NewString(), key, string(payload), now, now); err != nil {
		return idguard.Record{}, fmt.Errorf("failed to save record: %w", err)
	}

	return s.FindByLookup(ctx, lookupField, key)
}

// FindByLookup returns the record whose stored lookup value equals key.
func (s *Store) FindByLookup(ctx context.Context, lookupField, key string) (idguard.Record, error) {
	var (
		rec     idguard.Record
		payload string
	)

	err := s.db.QueryRowContext(ctx, selectQuery, key).Scan(&rec.ID, &payload, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return idguard.Record{}, fmt.Errorf("%w: %s", idguard.ErrNotFound, lookupField)
		}
		return idguard.Record{}, fmt.Errorf("failed to find record: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &rec.Fields); err != nil {
		return idguard.Record{}, fmt.Errorf("failed to decode record fields: %w", err)
	}
	return rec, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}
