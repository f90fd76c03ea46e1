package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes objects to a directory that is served at BaseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the storage directory.
func (s *LocalStore) Dir() string { return s.dir }

// Upload implements ObjectStore.
func (s *LocalStore) Upload(ctx context.Context, filename string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := ObjectName(filename)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing object: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// Owns implements Resolver.
func (s *LocalStore) Owns(url string) bool {
	return strings.HasPrefix(url, s.baseURL+"/")
}

// Fetch implements Fetcher for URLs produced by Upload.
func (s *LocalStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !s.Owns(url) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}
	name := path.Base(strings.TrimPrefix(url, s.baseURL+"/"))
	if name == "." || name == ".." || name == "/" || strings.Contains(name, "\\") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}
