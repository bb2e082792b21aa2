package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	origHome, hadHome := os.LookupEnv("HOME")
	origUserProfile, hadUserProfile := os.LookupEnv("USERPROFILE")
	t.Cleanup(func() {
		if hadHome {
			_ = os.Setenv("HOME", origHome)
		} else {
			_ = os.Unsetenv("HOME")
		}
		if hadUserProfile {
			_ = os.Setenv("USERPROFILE", origUserProfile)
		} else {
			_ = os.Unsetenv("USERPROFILE")
		}
	})

	home := t.TempDir()
	_ = os.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		_ = os.Setenv("USERPROFILE", home)
	}
	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("got %q err=%v", got, err)
	}
	p, err := ExpandHome("~")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != home {
		t.Fatalf("expected %q, got %q", home, p)
	}
	exp, err := ExpandHome("~/sub")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if exp != filepath.Join(home, "sub") && runtime.GOOS != "windows" {
		t.Fatalf("unexpected expanded path: %q", exp)
	}
}

func TestPathExists(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "f")
	if PathExists(p) {
		t.Fatalf("expected missing")
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !PathExists(p) {
		t.Fatalf("expected present")
	}
}

func TestSecureJoin(t *testing.T) {
	root := t.TempDir()
	p, err := SecureJoin(root, "a/b.txt")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p != filepath.Join(root, "a", "b.txt") {
		t.Fatalf("unexpected path: %q", p)
	}
	// inner dot segments that stay inside the root are fine
	if _, err := SecureJoin(root, "a/../b.txt"); err != nil {
		t.Fatalf("join with inner ..: %v", err)
	}
	for _, bad := range []string{"", "../x", "a/../../x", "/etc/passwd"} {
		if _, err := SecureJoin(root, bad); !errors.Is(err, ErrUnsafePath) {
			t.Fatalf("expected ErrUnsafePath for %q, got %v", bad, err)
		}
	}
}
