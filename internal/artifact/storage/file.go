// Package storage holds the backing stores for artifact content.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore writes artifacts as files in a directory
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed. An empty dir uses the OS
// temp directory.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory artifacts are written to
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes content to dir/name and returns the file path. Each call
// stages its own temp file, so concurrent saves of one name do not collide.
func (s *FileStore) Save(_ context.Context, name string, content []byte) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to stage artifact: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}
	// CreateTemp opens with 0600
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to set artifact mode: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return path, nil
}

// Delete removes the file at location
func (s *FileStore) Delete(_ context.Context, location string) error {
	if err := os.Remove(location); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}
