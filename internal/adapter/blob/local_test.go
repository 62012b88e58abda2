package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

var blobNamePattern = regexp.MustCompile(`^[0-9a-zA-Z]{32}\.(png|jpg|jpeg|gif)$`)

func newTestLocalSink(t *testing.T, maxBytes int64) (*LocalSink, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads", "images")
	sink, err := NewLocalSink(dir, maxBytes)
	require.NoError(t, err)
	return sink, dir
}

func TestLocalSink_StoreRetrieveRemove(t *testing.T) {
	ctx := context.Background()
	sink, dir := newTestLocalSink(t, 1024)

	name, err := sink.Store(ctx, strings.NewReader("png-bytes"), "Pothole.PNG")
	require.NoError(t, err)
	assert.Regexp(t, blobNamePattern, name)
	assert.True(t, strings.HasSuffix(name, ".png"), "extension is lowercased")

	onDisk, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(onDisk))

	rc, err := sink.Retrieve(ctx, name)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(got))

	ok, err := sink.Exists(ctx, name)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, sink.Remove(ctx, name))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// Removing again is a no-op.
	require.NoError(t, sink.Remove(ctx, name))
}

func TestLocalSink_NamesAreUnique(t *testing.T) {
	ctx := context.Background()
	sink, _ := newTestLocalSink(t, 1024)

	a, err := sink.Store(ctx, strings.NewReader("a"), "same.jpg")
	require.NoError(t, err)
	b, err := sink.Store(ctx, strings.NewReader("b"), "same.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLocalSink_RejectsDisallowedExtension(t *testing.T) {
	sink, dir := newTestLocalSink(t, 1024)

	_, err := sink.Store(context.Background(), strings.NewReader("%PDF"), "notes.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedImage))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalSink_RejectsOversizedUpload(t *testing.T) {
	sink, dir := newTestLocalSink(t, 4)

	_, err := sink.Store(context.Background(), strings.NewReader("12345"), "big.gif")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrImageTooLarge))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file is removed")
}

func TestLocalSink_RetrieveMissing(t *testing.T) {
	sink, _ := newTestLocalSink(t, 1024)

	_, err := sink.Retrieve(context.Background(), "doesnotexist.png")
	assert.True(t, errors.Is(err, domain.ErrImageNotFound))
}

func TestLocalSink_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	sink, dir := newTestLocalSink(t, 1024)
	outside := filepath.Join(filepath.Dir(dir), "secret.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	_, err := sink.Retrieve(ctx, "../secret.png")
	assert.True(t, errors.Is(err, domain.ErrImageNotFound))

	err = sink.Remove(ctx, "../secret.png")
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr, "file outside the upload dir is untouched")
}
