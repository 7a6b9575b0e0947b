// Package storage persists extracted artifacts so that Markdown can refer to
// them by path or URL instead of embedding them inline.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for object names that are empty or escape the
// store root.
var ErrInvalidName = errors.New("storage: invalid object name")

// Store saves artifact bytes and returns a reference usable as a Markdown
// link target.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)

	// Workspace describes where artifacts end up, such as a directory path
	// or a bucket URL.
	Workspace() string
}

// CleanName validates an object name and returns it in slash form.
func CleanName(name string) (string, error) {
	name = path.Clean("/" + filepath.ToSlash(name))
	name = strings.TrimPrefix(name, "/")
	if name == "" || name == "." {
		return "", ErrInvalidName
	}
	return name, nil
}

// DirStore writes artifacts below a local directory.
type DirStore struct {
	Root string

	// Prefix is prepended to returned references. When empty, references
	// are paths relative to Root.
	Prefix string
}

// NewDirStore returns a DirStore rooted at dir, creating it if needed.
func NewDirStore(dir, prefix string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &DirStore{Root: dir, Prefix: prefix}, nil
}

// Put writes data to Root/name.
func (s *DirStore) Put(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	if s.Prefix == "" {
		return name, nil
	}
	return strings.TrimSuffix(s.Prefix, "/") + "/" + name, nil
}

// Workspace returns the root directory.
func (s *DirStore) Workspace() string {
	if abs, err := filepath.Abs(s.Root); err == nil {
		return abs
	}
	return s.Root
}
