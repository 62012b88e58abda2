package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

// LocalSink stores blobs as files in a single directory.
type LocalSink struct {
	dir      string
	maxBytes int64
}

// NewLocalSink creates dir if needed and returns a sink rooted there.
func NewLocalSink(dir string, maxBytes int64) (*LocalSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalSink{dir: dir, maxBytes: maxBytes}, nil
}

// Store writes r to a new file with a generated name.
func (s *LocalSink) Store(_ context.Context, r io.Reader, declaredName string) (string, error) {
	name, err := newName(declaredName)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if err == nil && n > s.maxBytes {
		err = domain.ErrImageTooLarge
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close blob: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, domain.ErrImageTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write blob: %w", err)
	}
	return name, nil
}

// Remove deletes the named file. A missing file is not an error.
func (s *LocalSink) Remove(_ context.Context, name string) error {
	if !domain.ValidBlobName(name) {
		return fmt.Errorf("%w: blob name %q", domain.ErrValidation, name)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// Retrieve opens the named file for reading.
func (s *LocalSink) Retrieve(_ context.Context, name string) (io.ReadCloser, error) {
	if !domain.ValidBlobName(name) {
		return nil, domain.ErrImageNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Exists reports whether the named blob is present. Used by integrity checks.
func (s *LocalSink) Exists(_ context.Context, name string) (bool, error) {
	if !domain.ValidBlobName(name) {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return true, nil
}
