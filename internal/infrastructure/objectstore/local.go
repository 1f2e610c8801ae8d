// Package objectstore persists uploaded binary objects. LocalStore keeps
// them on the local filesystem under a base directory and serves them from
// a base URL; an S3-compatible store can replace it behind the same
// interface.
package objectstore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes objects to baseDir and returns URLs under baseURL.
type LocalStore struct {
	baseDir string
	baseURL string
}

// NewLocalStore creates a local object store rooted at baseDir.
func NewLocalStore(baseDir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create object store dir: %w", err)
	}
	return &LocalStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put stores the object under key and returns its public URL.
// The key must be a relative path without traversal.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("empty object key")
	}
	clean = clean[1:]

	target := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}

	return s.baseURL + "/" + clean, nil
}
