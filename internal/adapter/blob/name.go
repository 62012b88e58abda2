// Package blob implements domain.BlobSink on a local directory and on S3.
package blob

import (
	"fmt"
	"io"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

const (
	nameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	nameSize     = 32
)

// newName returns a random blob name carrying the accepted extension of
// declared, or ErrUnsupportedImage.
func newName(declared string) (string, error) {
	ext, ok := domain.ImageExt(declared)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedImage, declared)
	}
	return gonanoid.MustGenerate(nameAlphabet, nameSize) + "." + ext, nil
}

// readLimited reads r fully, failing with ErrImageTooLarge past maxBytes.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, domain.ErrImageTooLarge
	}
	return data, nil
}
