package store

import (
	"fmt"

	"github.com/kilupskalvis/fvc/internal/objects"
	bolt "go.etcd.io/bbolt"
)

// PutBlob stores file content as a compressed, content-addressed blob and
// returns its hash. Storing the same content twice is a no-op.
func (s *Store) PutBlob(content []byte) (string, error) {
	hash := objects.HashBlob(content)

	encoded, err := objects.Encode(content)
	if err != nil {
		return "", fmt.Errorf("encode blob: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return putBlobTx(tx, hash, encoded)
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// putBlobTx writes an encoded blob inside an existing transaction.
func putBlobTx(tx *bolt.Tx, hash string, encoded []byte) error {
	bucket := tx.Bucket(bucketBlobs)
	if bucket == nil {
		return fmt.Errorf("blobs bucket not found")
	}
	if bucket.Get([]byte(hash)) != nil {
		return nil // content-addressed: already stored
	}
	return bucket.Put([]byte(hash), encoded)
}

// GetBlob retrieves and decodes a blob's content by hash.
func (s *Store) GetBlob(hash string) ([]byte, bool, error) {
	encoded, found, err := s.GetBlobEncoded(hash)
	if err != nil || !found {
		return nil, found, err
	}

	content, err := objects.Decode(encoded)
	if err != nil {
		return nil, true, fmt.Errorf("decode blob %s: %w", hash, err)
	}
	return content, true, nil
}

// GetBlobEncoded retrieves a blob's stored (compressed) bytes by hash.
// Used by the remote layer to ship blobs without re-encoding.
func (s *Store) GetBlobEncoded(hash string) ([]byte, bool, error) {
	var encoded []byte
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketBlobs)
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(hash))
		if data == nil {
			return nil
		}
		found = true
		encoded = append([]byte(nil), data...)
		return nil
	})

	return encoded, found, err
}

// PutBlobEncoded stores already-encoded blob bytes received from a remote,
// verifying that the content matches the claimed hash.
func (s *Store) PutBlobEncoded(hash string, encoded []byte) error {
	if !objects.ValidHash(hash) {
		return fmt.Errorf("invalid blob hash: %q", hash)
	}
	if _, err := objects.DecodeVerify(encoded, hash); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return putBlobTx(tx, hash, encoded)
	})
}

// HasBlob checks if a blob with the given hash exists.
func (s *Store) HasBlob(hash string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketBlobs)
		if bucket == nil {
			return nil
		}
		exists = bucket.Get([]byte(hash)) != nil
		return nil
	})
	return exists, err
}

// FilterMissingBlobs returns the subset of hashes not present locally.
// Used during push/pull negotiation.
func (s *Store) FilterMissingBlobs(hashes []string) ([]string, error) {
	var missing []string
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketBlobs)
		for _, h := range hashes {
			if bucket == nil || bucket.Get([]byte(h)) == nil {
				missing = append(missing, h)
			}
		}
		return nil
	})
	return missing, err
}
