// Package artifact persists the files produced by a run.
//
// Every run writes under its own run ID, either in a local directory or in an
// S3-compatible bucket.
package artifact

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// Store saves one named artifact and returns where it ended up.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// LocalStore writes artifacts to Root/RunID/key.
type LocalStore struct {
	Root  string
	RunID string
}

// NewLocalStore returns a store rooted at dir for the given run.
func NewLocalStore(dir, runID string) *LocalStore {
	return &LocalStore{Root: dir, RunID: runID}
}

// Dir is the directory artifacts of this run are written to.
func (s *LocalStore) Dir() string {
	return filepath.Join(s.Root, s.RunID)
}

// Put writes data to a file named key. contentType is not recorded.
func (s *LocalStore) Put(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkKey(key); err != nil {
		return "", err
	}
	dst := filepath.Join(s.Dir(), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrapf(err, "create artifact directory for %s", key)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write artifact %s", key)
	}
	return dst, nil
}

// checkKey rejects keys that would escape the run directory.
func checkKey(key string) error {
	if key == "" {
		return errors.NewValidationError("key", "artifact key is required", key)
	}
	clean := path.Clean(key)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.NewValidationError("key", "artifact key must stay inside the run directory", key)
	}
	return nil
}
