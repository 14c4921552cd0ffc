package store

import (
	"encoding/json"
	"fmt"

	"github.com/kilupskalvis/fvc/internal/objects"
	"github.com/kilupskalvis/fvc/internal/remote"
	bolt "go.etcd.io/bbolt"
)

// InsertCommitBundle atomically inserts a commit and its blobs from a
// remote bundle into the local store. This is used during pull/fetch to
// store downloaded data. The operation is idempotent; if the commit
// already exists, no changes are made.
func (s *Store) InsertCommitBundle(bundle *remote.CommitBundle) error {
	if bundle == nil || bundle.Commit == nil {
		return fmt.Errorf("invalid commit bundle: nil commit")
	}

	// Verify blob integrity before touching the database.
	for hash, encoded := range bundle.Blobs {
		if !objects.ValidHash(hash) {
			return fmt.Errorf("invalid blob hash in bundle: %q", hash)
		}
		if _, err := objects.DecodeVerify(encoded, hash); err != nil {
			return fmt.Errorf("verify bundle blob: %w", err)
		}
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		commitBucket := tx.Bucket(bucketCommits)
		if commitBucket == nil {
			return fmt.Errorf("commits bucket not found")
		}

		// Idempotent: skip if commit already exists
		if commitBucket.Get([]byte(bundle.Commit.ID)) != nil {
			return nil
		}

		commitData, err := json.Marshal(bundle.Commit)
		if err != nil {
			return fmt.Errorf("marshal commit: %w", err)
		}
		if err := commitBucket.Put([]byte(bundle.Commit.ID), commitData); err != nil {
			return fmt.Errorf("store commit: %w", err)
		}

		for hash, encoded := range bundle.Blobs {
			if err := putBlobTx(tx, hash, encoded); err != nil {
				return fmt.Errorf("store bundle blob: %w", err)
			}
		}
		return nil
	})
}

// BuildCommitBundle assembles a commit and the blobs it references for
// upload. Hashes present in skipBlobs are omitted (the receiver already
// has them).
func (s *Store) BuildCommitBundle(commitID string, skipBlobs map[string]bool) (*remote.CommitBundle, error) {
	commit, err := s.GetCommit(commitID)
	if err != nil {
		return nil, err
	}
	if commit == nil {
		return nil, fmt.Errorf("commit not found: %s", commitID)
	}

	bundle := &remote.CommitBundle{
		Commit: commit,
		Blobs:  make(map[string][]byte),
	}
	for _, blobHash := range commit.Files {
		if skipBlobs[blobHash] {
			continue
		}
		if _, ok := bundle.Blobs[blobHash]; ok {
			continue
		}
		encoded, found, err := s.GetBlobEncoded(blobHash)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("blob %s referenced by commit %s not found", blobHash, commitID)
		}
		bundle.Blobs[blobHash] = encoded
	}
	return bundle, nil
}
