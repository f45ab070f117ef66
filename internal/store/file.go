// Package store persists prediction snapshots.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const snapshotExt = ".json"

// FileStore keeps one JSON document per slug in a directory. Writes go to a
// temporary file in the same directory which is then renamed over the target,
// so readers see either the old or the new document.
type FileStore struct {
	dir     string
	syncDir func(dir string) error
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, syncDir: syncDir}, nil
}

// Save atomically replaces the snapshot for snap.Slug.
func (s *FileStore) Save(_ context.Context, snap domain.PredictionSnapshot) error {
	if !domain.ValidSlug(snap.Slug) {
		return fmt.Errorf("%w: invalid slug %q", domain.ErrStoreWrite, snap.Slug)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %w", domain.ErrStoreWrite, snap.Slug, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+snap.Slug+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %w", domain.ErrStoreWrite, snap.Slug, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %w", domain.ErrStoreWrite, snap.Slug, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync %s: %w", domain.ErrStoreWrite, snap.Slug, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", domain.ErrStoreWrite, snap.Slug, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", domain.ErrStoreWrite, snap.Slug, err)
	}
	if err := os.Rename(tmpName, s.path(snap.Slug)); err != nil {
		return fmt.Errorf("%w: rename %s: %w", domain.ErrStoreWrite, snap.Slug, err)
	}
	committed = true

	// The rename is only durable once the directory entry is flushed.
	if err := s.syncDir(s.dir); err != nil {
		return fmt.Errorf("%w: sync dir for %s: %w", domain.ErrStoreWrite, snap.Slug, err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return err
	}
	return d.Close()
}

// Load returns the current snapshot for slug.
func (s *FileStore) Load(_ context.Context, slug string) (domain.PredictionSnapshot, error) {
	if !domain.ValidSlug(slug) {
		return domain.PredictionSnapshot{}, domain.ErrNotFound
	}

	data, err := os.ReadFile(s.path(slug))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.PredictionSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PredictionSnapshot{}, fmt.Errorf("read snapshot %s: %w", slug, err)
	}

	var snap domain.PredictionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.PredictionSnapshot{}, fmt.Errorf("decode snapshot %s: %w", slug, err)
	}
	return snap, nil
}

// List returns the slugs with a stored snapshot, sorted. Temporary files are ignored.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	slugs := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		slug := strings.TrimSuffix(name, snapshotExt)
		if domain.ValidSlug(slug) {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (s *FileStore) path(slug string) string {
	return filepath.Join(s.dir, slug+snapshotExt)
}
