// Package filestore persists the report collection as a single JSON document.
//
// Every mutation reads the whole collection, applies the change and writes the
// whole collection back through a temp file and rename, so readers observe
// either the previous or the next collection and never a partial write. An
// advisory file lock serializes writers across processes (for example a
// running server and a seed import).
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

const lockRetryDelay = 10 * time.Millisecond

// Repository implements domain.Repository on a JSON file.
type Repository struct {
	path string
	mu   sync.Mutex // flock is per handle, so goroutines sharing it still need this
	lock *flock.Flock
}

// New returns a repository backed by path, creating its parent directory.
// A missing file is treated as an empty collection.
func New(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Repository{path: path, lock: flock.New(path + ".lock")}, nil
}

// All returns every report in storage order.
func (r *Repository) All(_ context.Context) ([]domain.Report, error) {
	return r.load()
}

// Get returns the report with the given id.
func (r *Repository) Get(_ context.Context, id string) (domain.Report, error) {
	reports, err := r.load()
	if err != nil {
		return domain.Report{}, err
	}
	i := indexOf(reports, id)
	if i < 0 {
		return domain.Report{}, domain.ErrReportNotFound
	}
	return reports[i], nil
}

// Insert appends report to the collection.
func (r *Repository) Insert(ctx context.Context, report domain.Report) error {
	return r.mutate(ctx, func(reports []domain.Report) ([]domain.Report, error) {
		if indexOf(reports, report.ID) >= 0 {
			return nil, fmt.Errorf("duplicate report id %s", report.ID)
		}
		return append(reports, report), nil
	})
}

// Update replaces the stored report carrying the same id.
func (r *Repository) Update(ctx context.Context, report domain.Report) error {
	return r.mutate(ctx, func(reports []domain.Report) ([]domain.Report, error) {
		i := indexOf(reports, report.ID)
		if i < 0 {
			return nil, domain.ErrReportNotFound
		}
		reports[i] = report
		return reports, nil
	})
}

// Delete removes the report with the given id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.mutate(ctx, func(reports []domain.Report) ([]domain.Report, error) {
		i := indexOf(reports, id)
		if i < 0 {
			return nil, domain.ErrReportNotFound
		}
		return slices.Delete(reports, i, i+1), nil
	})
}

// Ping checks that the data directory is reachable.
func (r *Repository) Ping(_ context.Context) error {
	info, err := os.Stat(filepath.Dir(r.path))
	if err != nil {
		return fmt.Errorf("stat data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", filepath.Dir(r.path))
	}
	return nil
}

func (r *Repository) mutate(ctx context.Context, fn func([]domain.Report) ([]domain.Report, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	locked, err := r.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock %s: %w", r.path, err)
	}
	if !locked {
		return fmt.Errorf("lock %s: not acquired", r.path)
	}
	defer r.lock.Unlock() //nolint:errcheck // released on process exit regardless

	reports, err := r.load()
	if err != nil {
		return err
	}
	next, err := fn(reports)
	if err != nil {
		return err
	}
	return r.save(next)
}

func (r *Repository) load() ([]domain.Report, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Report{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Report{}, nil
	}

	var reports []domain.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	return reports, nil
}

func (r *Repository) save(reports []domain.Report) error {
	if reports == nil {
		reports = []domain.Report{}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

func indexOf(reports []domain.Report, id string) int {
	return slices.IndexFunc(reports, func(r domain.Report) bool { return r.ID == id })
}
