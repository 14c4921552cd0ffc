package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/fvc/internal/objects"
)

func newTestFS(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func encode(t *testing.T, content string) (string, []byte) {
	t.Helper()
	encoded, err := objects.Encode([]byte(content))
	require.NoError(t, err)
	return objects.HashBlob([]byte(content)), encoded
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestFS(t)
	ctx := context.Background()

	hash, encoded := encode(t, "some file content\n")

	has, err := s.Has(ctx, hash)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.Put(ctx, hash, bytes.NewReader(encoded)))

	has, err = s.Has(ctx, hash)
	require.NoError(t, err)
	assert.True(t, has)

	rc, err := s.Get(ctx, hash)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)

	content, err := objects.DecodeVerify(got, hash)
	require.NoError(t, err)
	assert.Equal(t, "some file content\n", string(content))
}

func TestPutIsIdempotent(t *testing.T) {
	s := newTestFS(t)
	ctx := context.Background()

	hash, encoded := encode(t, "dedupe me")
	require.NoError(t, s.Put(ctx, hash, bytes.NewReader(encoded)))
	require.NoError(t, s.Put(ctx, hash, bytes.NewReader(encoded)))

	count, err := s.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPutRejectsHashMismatch(t *testing.T) {
	s := newTestFS(t)
	ctx := context.Background()

	_, encoded := encode(t, "actual content")
	wrongHash := objects.HashBlob([]byte("different content"))

	err := s.Put(ctx, wrongHash, bytes.NewReader(encoded))
	assert.ErrorIs(t, err, ErrHashMismatch)

	has, err := s.Has(ctx, wrongHash)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPutRejectsInvalidHash(t *testing.T) {
	s := newTestFS(t)
	assert.Error(t, s.Put(context.Background(), "../../etc/passwd", bytes.NewReader(nil)))
	assert.Error(t, s.Put(context.Background(), "short", bytes.NewReader(nil)))
}

func TestGetMissingBlob(t *testing.T) {
	s := newTestFS(t)
	hash, _ := encode(t, "never stored")

	_, err := s.Get(context.Background(), hash)
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestFS(t)
	ctx := context.Background()

	hash, encoded := encode(t, "delete me")
	require.NoError(t, s.Put(ctx, hash, bytes.NewReader(encoded)))
	require.NoError(t, s.Delete(ctx, hash))

	has, err := s.Has(ctx, hash)
	require.NoError(t, err)
	assert.False(t, has)

	// Deleting again is not an error.
	require.NoError(t, s.Delete(ctx, hash))
}

func TestListHashes(t *testing.T) {
	s := newTestFS(t)
	ctx := context.Background()

	var want []string
	for _, content := range []string{"one", "two", "three"} {
		hash, encoded := encode(t, content)
		require.NoError(t, s.Put(ctx, hash, bytes.NewReader(encoded)))
		want = append(want, hash)
	}

	got, err := s.ListHashes(ctx)
	require.NoError(t, err)

	sort.Strings(want)
	sort.Strings(got)
	assert.Equal(t, want, got)
}

func TestListHashesIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	hash, encoded := encode(t, "real blob")
	require.NoError(t, s.Put(ctx, hash, bytes.NewReader(encoded)))

	// Leftover temp files and unrelated entries are skipped.
	require.NoError(t, os.WriteFile(filepath.Join(dir, hash[:2], ".tmp-123"), []byte("junk"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("junk"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-prefix"), 0755))

	got, err := s.ListHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{hash}, got)
}
