package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rateboard-io/corpus/internal/domain"
)

// LocalStore keeps uploaded files under a single root directory on disk.
// Paths are treated as keys relative to the root; they cannot escape it.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at the given directory,
// creating it if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("upload root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) resolve(path string) string {
	return filepath.Join(s.root, filepath.Clean("/"+path))
}

// Store writes the reader's contents under the given path.
func (s *LocalStore) Store(ctx context.Context, path string, r io.Reader) error {
	full := s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}

// Fetch returns the on-disk location of a stored file. No copy is made, so
// the cleanup function is a no-op.
func (s *LocalStore) Fetch(ctx context.Context, path string) (string, func(), error) {
	full := s.resolve(path)
	if _, err := os.Stat(full); err != nil {
		return "", nil, mapStatError(path, err)
	}
	return full, func() {}, nil
}

// Stat returns the size of a stored file in bytes.
func (s *LocalStore) Stat(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(s.resolve(path))
	if err != nil {
		return 0, mapStatError(path, err)
	}
	return info.Size(), nil
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, path string) error {
	if err := os.Remove(s.resolve(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func mapStatError(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, fmt.Sprintf("stored file %s not found", path), err)
	}
	return err
}
