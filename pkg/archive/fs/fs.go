package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSArchiveStore implements archive.Store on a local directory. Keys map to
// file paths under the base directory; intermediate directories are created
// on demand.
//
// Filesystem operations are thread-safe at the OS level. Concurrent Puts to
// the same key are last-write-wins.
type FSArchiveStore struct {
	basePath string
}

// NewFSArchiveStore creates a filesystem-backed archive rooted at basePath.
// The base directory is created if it does not exist.
func NewFSArchiveStore(ctx context.Context, basePath string) (*FSArchiveStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &FSArchiveStore{basePath: basePath}, nil
}

// filePath resolves a key to a path under the base directory, refusing keys
// that would escape it.
func (s *FSArchiveStore) filePath(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return filepath.Join(s.basePath, cleaned), nil
}

func (s *FSArchiveStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.filePath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create archive subdirectory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %q: %w", key, err)
	}

	return nil
}

func (s *FSArchiveStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.filePath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %q: %w", key, err)
	}

	return data, nil
}

func (s *FSArchiveStore) Close() error {
	return nil
}
