package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/fvc/internal/models"
	"github.com/kilupskalvis/fvc/internal/objects"
	"github.com/kilupskalvis/fvc/internal/remote/blobstore"
	"github.com/kilupskalvis/fvc/internal/remote/metastore"
)

func putBlob(t *testing.T, blobs blobstore.BlobStore, content string) string {
	t.Helper()
	hash := objects.HashBlob([]byte(content))
	encoded, err := objects.Encode([]byte(content))
	require.NoError(t, err)
	require.NoError(t, blobs.Put(context.Background(), hash, bytes.NewReader(encoded)))
	return hash
}

func TestGarbageCollectRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	meta, err := metastore.NewBboltStore(filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	defer meta.Close()

	blobs, err := blobstore.NewFSStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	live := putBlob(t, blobs, "referenced content")
	orphan1 := putBlob(t, blobs, "orphan one")
	orphan2 := putBlob(t, blobs, "orphan two")

	require.NoError(t, meta.InsertCommit(ctx, &models.Commit{
		ID:        "c1",
		Message:   "keep",
		Timestamp: time.Now(),
		Files:     map[string]string{"a.txt": live},
	}))

	result, err := GarbageCollect(ctx, meta, blobs, logger)
	require.NoError(t, err)

	assert.Equal(t, 3, result.BlobsScanned)
	assert.Equal(t, 2, result.BlobsDeleted)
	assert.Equal(t, 1, result.ReferencedBlobs)

	has, err := blobs.Has(ctx, live)
	require.NoError(t, err)
	assert.True(t, has)

	for _, hash := range []string{orphan1, orphan2} {
		has, err := blobs.Has(ctx, hash)
		require.NoError(t, err)
		assert.False(t, has)
	}
}

func TestGarbageCollectEmptyRepo(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	meta, err := metastore.NewBboltStore(filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	defer meta.Close()

	blobs, err := blobstore.NewFSStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	result, err := GarbageCollect(context.Background(), meta, blobs, logger)
	require.NoError(t, err)
	assert.Equal(t, 0, result.BlobsScanned)
	assert.Equal(t, 0, result.BlobsDeleted)
}
