package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes objects under a directory served at publicBaseURL.
// Intended for development.
type LocalStore struct {
	root          string
	publicBaseURL string
	now           func() time.Time
}

func NewLocalStore(root, publicBaseURL string) *LocalStore {
	return &LocalStore{
		root:          root,
		publicBaseURL: publicBaseURL,
		now:           time.Now,
	}
}

func (s *LocalStore) Root() string {
	return s.root
}

// Put writes to a temp file and renames it over the destination so readers
// never see a partially written image.
func (s *LocalStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	dst, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return withVersion(s.URL(path), s.now()), nil
}

func (s *LocalStore) Delete(ctx context.Context, path string) error {
	dst, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(path string) string {
	return joinURL(s.publicBaseURL, path)
}

func (s *LocalStore) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}
