// Package store keeps the planner's saved state as JSON values under
// string keys in SQLite. It backs the "save/load" surface of the web API
// and the CLI; the calculators never see it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// DocumentVersion is written into every export.
	DocumentVersion = 1
	maxKeyLen       = 200
)

var (
	// ErrNotFound is returned by Get and Delete for unknown keys.
	ErrNotFound = errors.New("state key not found")
	// ErrInvalidKey is returned for empty or oversized keys.
	ErrInvalidKey = errors.New("invalid state key")
	// ErrInvalidValue is returned when a value is not valid JSON.
	ErrInvalidValue = errors.New("state value is not valid JSON")
	// ErrInvalidDocument is returned by Import for unsupported documents.
	ErrInvalidDocument = errors.New("invalid state document")
)

// Document is the whole state as exported and imported.
type Document struct {
	Version    int                        `json:"version"`
	ExportedAt time.Time                  `json:"exported_at"`
	Entries    map[string]json.RawMessage `json:"entries"`
}

// Store manages the state table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS state (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

func checkKey(key string) error {
	if key == "" || len(key) > maxKeyLen {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func checkValue(key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("%w: key %q", ErrInvalidValue, key)
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return json.RawMessage(value), nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value json.RawMessage) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := checkValue(key, value); err != nil {
		return err
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	return retryOnContention(func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, string(value), now,
		)
		return err
	})
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	var n int64
	err := retryOnContention(func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, key)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return nil
}

// Keys lists every key in ascending order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM state ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Export returns the whole state.
func (s *Store) Export(ctx context.Context) (Document, error) {
	doc := Document{
		Version:    DocumentVersion,
		ExportedAt: s.now().UTC(),
		Entries:    make(map[string]json.RawMessage),
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM state`)
	if err != nil {
		return Document{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Document{}, err
		}
		doc.Entries[k] = json.RawMessage(v)
	}
	return doc, rows.Err()
}

// Import writes every entry of doc in one transaction. With replace set
// the existing state is cleared first. Nothing is written if any entry is
// invalid.
func (s *Store) Import(ctx context.Context, doc Document, replace bool) error {
	if doc.Version != DocumentVersion {
		return fmt.Errorf("%w: version %d", ErrInvalidDocument, doc.Version)
	}
	for k, v := range doc.Entries {
		if err := checkKey(k); err != nil {
			return err
		}
		if err := checkValue(k, v); err != nil {
			return err
		}
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	return retryOnContention(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if replace {
			if _, err := tx.ExecContext(ctx, `DELETE FROM state`); err != nil {
				return err
			}
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for k, v := range doc.Entries {
			if _, err := stmt.ExecContext(ctx, k, string(v), now); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// Clear removes every key.
func (s *Store) Clear(ctx context.Context) error {
	return retryOnContention(func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM state`)
		return err
	})
}
