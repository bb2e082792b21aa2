// Package variables implements the per-user variable store backing the
// /variables endpoints. Values are arbitrary JSON documents.
package variables

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned for get/delete of a missing variable.
var ErrNotFound = errors.New("variable not found")

// ErrExists is returned by Set without overwrite onto an existing name.
var ErrExists = errors.New("variable already exists")

// Store persists variables in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New initializes the schema on db and returns a Store. The database handle
// is shared with the other SQLite-backed stores and not closed here.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS variables (
		username TEXT NOT NULL,
		name TEXT NOT NULL,
		value BLOB NOT NULL,
		updated INTEGER NOT NULL,
		PRIMARY KEY (username, name)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Set stores value under (user, name). Without overwrite an existing
// variable of the same name is an ErrExists.
func (s *Store) Set(ctx context.Context, user, name string, value json.RawMessage, overwrite bool) error {
	if name == "" {
		return fmt.Errorf("variable name is required")
	}
	if !json.Valid(value) {
		return fmt.Errorf("value is not valid JSON")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !overwrite {
		var one int
		err := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM variables WHERE username = ? AND name = ?", user, name,
		).Scan(&one)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", ErrExists, name)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("query variable: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO variables (username, name, value, updated) VALUES (?, ?, ?, ?)
		 ON CONFLICT (username, name) DO UPDATE SET value = excluded.value, updated = excluded.updated`,
		user, name, []byte(value), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert variable: %w", err)
	}
	return nil
}

// Get retrieves the value stored under (user, name).
func (s *Store) Get(ctx context.Context, user, name string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM variables WHERE username = ? AND name = ?", user, name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query variable: %w", err)
	}
	return json.RawMessage(value), nil
}

// List returns all variables for user, keyed by name.
func (s *Store) List(ctx context.Context, user string) (map[string]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, value FROM variables WHERE username = ? ORDER BY name", user,
	)
	if err != nil {
		return nil, fmt.Errorf("query variables: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var name string
		var value []byte
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		out[name] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// Delete removes the variable stored under (user, name).
func (s *Store) Delete(ctx context.Context, user, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM variables WHERE username = ? AND name = ?", user, name,
	)
	if err != nil {
		return fmt.Errorf("delete variable: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
