package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kilupskalvis/fvc/internal/remote/blobstore"
	"github.com/kilupskalvis/fvc/internal/remote/metastore"
)

// GCResult summarizes a garbage collection run.
type GCResult struct {
	BlobsScanned    int `json:"blobs_scanned"`
	BlobsDeleted    int `json:"blobs_deleted"`
	ReferencedBlobs int `json:"referenced_blobs"`
}

// GarbageCollect deletes blobs not referenced by any commit manifest.
// Commits are never deleted; only orphaned blob content is reclaimed.
func GarbageCollect(ctx context.Context, meta metastore.MetaStore, blobs blobstore.BlobStore, logger *slog.Logger) (*GCResult, error) {
	referenced, err := meta.GetAllBlobHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect referenced blobs: %w", err)
	}

	stored, err := blobs.ListHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored blobs: %w", err)
	}

	result := &GCResult{
		BlobsScanned:    len(stored),
		ReferencedBlobs: len(referenced),
	}

	for _, hash := range stored {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if referenced[hash] {
			continue
		}
		if err := blobs.Delete(ctx, hash); err != nil {
			logger.Warn("gc: failed to delete blob", "hash", hash, "error", err)
			continue
		}
		result.BlobsDeleted++
	}

	logger.Info("garbage collection complete",
		"scanned", result.BlobsScanned,
		"deleted", result.BlobsDeleted,
		"referenced", result.ReferencedBlobs,
	)

	return result, nil
}
