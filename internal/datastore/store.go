// Package datastore implements the per-user file store backing the
// /data endpoints. Files live under <root>/<username>/ and every name is
// confined to that subtree.
package datastore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/mlinsightlab/mlil/internal/common/fsutil"
	"github.com/mlinsightlab/mlil/pkg/types"
)

// ErrFileNotFound is returned when a requested file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrFileExists is returned by Put without overwrite onto an existing file.
var ErrFileExists = errors.New("file already exists")

// Store is a filesystem-backed data store rooted at a directory.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a Store.
func New(root string) (*Store, error) {
	expanded, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create data root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute data root directory.
func (s *Store) Root() string { return s.root }

// resolve maps (user, name) onto a path under the user's subtree.
func (s *Store) resolve(user, name string) (string, error) {
	userRoot, err := fsutil.SecureJoin(s.root, user)
	if err != nil {
		return "", err
	}
	return fsutil.SecureJoin(userRoot, name)
}

// Put writes b as the named file for user. Without overwrite an existing
// file of the same name is an ErrFileExists.
func (s *Store) Put(user, name string, b []byte, overwrite bool) error {
	path, err := s.resolve(user, name)
	if err != nil {
		return err
	}
	if !overwrite && fsutil.PathExists(path) {
		return fmt.Errorf("%w: %s", ErrFileExists, name)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Get reads the named file for user.
func (s *Store) Get(user, name string) ([]byte, error) {
	path, err := s.resolve(user, name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, err
	}
	return b, nil
}

// Delete removes the named file for user.
func (s *Store) Delete(user, name string) error {
	path, err := s.resolve(user, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return err
	}
	return nil
}

// List enumerates files under the user's directory (or a subdirectory of
// it), recursively. Names are relative to the listed directory, with
// forward slashes. A missing directory lists as empty.
func (s *Store) List(user, dir string) ([]types.FileInfo, error) {
	base, err := fsutil.SecureJoin(s.root, user)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		base, err = fsutil.SecureJoin(base, dir)
		if err != nil {
			return nil, err
		}
	}
	var out []types.FileInfo
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		out = append(out, types.FileInfo{
			Name:         filepath.ToSlash(rel),
			SizeBytes:    info.Size(),
			ModifiedUnix: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
