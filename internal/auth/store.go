// Package auth implements the user store and API key verification used by
// the HTTP basic-auth middleware.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// Roles a user may hold. Admins may manage deployments and users.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ErrInvalidCredentials is returned for unknown users or wrong keys. The
// two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUserExists is returned by CreateUser for a duplicate username.
var ErrUserExists = errors.New("user already exists")

// ErrUserNotFound is returned by DeleteUser for an unknown username.
var ErrUserNotFound = errors.New("user not found")

// Store persists users and hashed API keys in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New initializes the schema on db and returns a Store.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// CreateUser registers username with role and returns a freshly generated
// API key. The key is shown once; only its hash is stored.
func (s *Store) CreateUser(ctx context.Context, username, role string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("username is required")
	}
	if role != RoleAdmin && role != RoleUser {
		return "", fmt.Errorf("unknown role: %s", role)
	}
	key := uuid.NewString()
	if err := s.insertUser(ctx, username, key, role); err != nil {
		return "", err
	}
	return key, nil
}

// CreateUserWithKey registers username with a caller-supplied key. Used for
// bootstrap credentials from configuration.
func (s *Store) CreateUserWithKey(ctx context.Context, username, key, role string) error {
	if username == "" || key == "" {
		return fmt.Errorf("username and key are required")
	}
	if role != RoleAdmin && role != RoleUser {
		return fmt.Errorf("unknown role: %s", role)
	}
	return s.insertUser(ctx, username, key, role)
}

func (s *Store) insertUser(ctx context.Context, username, key, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE username = ?", username).Scan(&one)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrUserExists, username)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("query user: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (username, key_hash, role, created) VALUES (?, ?, ?, ?)",
		username, hashKey(key), role, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// DeleteUser removes username from the store.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return nil
}

// Verify checks username/key and returns the matched user.
func (s *Store) Verify(ctx context.Context, username, key string) (types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stored, role string
	var created int64
	err := s.db.QueryRowContext(ctx,
		"SELECT key_hash, role, created FROM users WHERE username = ?", username,
	).Scan(&stored, &role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		// Burn a comparison anyway so unknown users cost the same as bad keys.
		subtle.ConstantTimeCompare([]byte(hashKey(key)), []byte(hashKey("")))
		return types.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.User{}, fmt.Errorf("query user: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(hashKey(key)), []byte(stored)) != 1 {
		return types.User{}, ErrInvalidCredentials
	}
	return types.User{Username: username, Role: role, CreatedAt: time.Unix(created, 0)}, nil
}

// Count returns the number of registered users.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Bootstrap creates the admin user from configuration when the user table
// is empty. Returns true if the user was created.
func (s *Store) Bootstrap(ctx context.Context, username, key string) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 || username == "" || key == "" {
		return false, nil
	}
	if err := s.CreateUserWithKey(ctx, username, key, RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}
