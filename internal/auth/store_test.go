package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s, err := New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestCreateAndVerify(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	key, err := s.CreateUser(ctx, "alice", RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if key == "" {
		t.Fatalf("expected generated key")
	}
	u, err := s.Verify(ctx, "alice", key)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if u.Username != "alice" || u.Role != RoleUser {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, "", RoleUser); err == nil {
		t.Fatalf("expected error for empty username")
	}
	if _, err := s.CreateUser(ctx, "bob", "root"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, "alice", RoleUser); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := s.CreateUser(ctx, "alice", RoleAdmin)
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	key, err := s.CreateUser(ctx, "alice", RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.Verify(ctx, "alice", key+"x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong key, got %v", err)
	}
	if _, err := s.Verify(ctx, "nobody", key); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	key, err := s.CreateUser(ctx, "alice", RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := s.Verify(ctx, "alice", key); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials after delete, got %v", err)
	}
	if err := s.DeleteUser(ctx, "alice"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestBootstrap(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, err := s.Bootstrap(ctx, "admin", "secret")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !created {
		t.Fatalf("expected bootstrap to create the admin")
	}
	u, err := s.Verify(ctx, "admin", "secret")
	if err != nil {
		t.Fatalf("verify admin: %v", err)
	}
	if u.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %s", u.Role)
	}

	// Further bootstraps are no-ops once any user exists.
	created, err = s.Bootstrap(ctx, "admin2", "other")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if created {
		t.Fatalf("bootstrap should not create a second user")
	}
}

func TestBootstrapSkipsEmptyCredentials(t *testing.T) {
	s := newStore(t)
	created, err := s.Bootstrap(context.Background(), "", "")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if created {
		t.Fatalf("bootstrap without credentials should be a no-op")
	}
	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty user table, got %d", n)
	}
}
