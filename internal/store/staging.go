package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/kilupskalvis/fvc/internal/models"
	bolt "go.etcd.io/bbolt"
)

// AddStagedFile adds or replaces a staging area entry, keyed by path.
func (s *Store) AddStagedFile(f *models.StagedFile) error {
	if f == nil || f.Path == "" {
		return fmt.Errorf("invalid staged file: empty path")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketStagedFiles)
		if err != nil {
			return fmt.Errorf("create staged files bucket: %w", err)
		}

		key := []byte(f.Path)
		isNew := bucket.Get(key) == nil

		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("marshal staged file: %w", err)
		}
		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("store staged file: %w", err)
		}

		if isNew {
			if err := s.adjustStagedCount(tx, 1); err != nil {
				return fmt.Errorf("increment staged count: %w", err)
			}
		}
		return nil
	})
}

// RemoveStagedFile removes a staging area entry by path. Removing a path
// that is not staged is a no-op.
func (s *Store) RemoveStagedFile(path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketStagedFiles)
		if bucket == nil {
			return nil
		}

		key := []byte(path)
		if bucket.Get(key) == nil {
			return nil
		}

		if err := bucket.Delete(key); err != nil {
			return fmt.Errorf("delete staged file: %w", err)
		}
		if err := s.adjustStagedCount(tx, -1); err != nil {
			return fmt.Errorf("decrement staged count: %w", err)
		}
		return nil
	})
}

// GetStagedFile retrieves a staging entry by path. Returns (nil, nil) if
// the path is not staged.
func (s *Store) GetStagedFile(path string) (*models.StagedFile, error) {
	var staged *models.StagedFile

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketStagedFiles)
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(path))
		if data == nil {
			return nil
		}

		staged = &models.StagedFile{}
		return json.Unmarshal(data, staged)
	})

	return staged, err
}

// GetAllStagedFiles retrieves all staging entries sorted by path.
func (s *Store) GetAllStagedFiles() ([]*models.StagedFile, error) {
	var files []*models.StagedFile

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketStagedFiles)
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			f := &models.StagedFile{}
			if err := json.Unmarshal(v, f); err != nil {
				return fmt.Errorf("unmarshal staged file: %w", err)
			}
			files = append(files, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// ClearStagedFiles removes all entries from the staging area.
func (s *Store) ClearStagedFiles() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketStagedFiles); err != nil && err != bolt.ErrBucketNotFound {
			return fmt.Errorf("delete staged files bucket: %w", err)
		}
		if err := s.resetStagedCount(tx); err != nil {
			return fmt.Errorf("reset staged count: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketStagedFiles); err != nil {
			return fmt.Errorf("recreate staged files bucket: %w", err)
		}
		return nil
	})
}

// GetStagedFilesCount returns the number of staged entries.
func (s *Store) GetStagedFilesCount() (int, error) {
	var count int

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketCounters)
		if bucket == nil {
			return nil
		}

		data := bucket.Get(counterStagedCount)
		if data == nil {
			return nil
		}

		var err error
		count, err = strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("parse staged count: %w", err)
		}
		return nil
	})

	return count, err
}

// adjustStagedCount adjusts the staged entry counter by the given delta.
func (s *Store) adjustStagedCount(tx *bolt.Tx, delta int) error {
	bucket, err := tx.CreateBucketIfNotExists(bucketCounters)
	if err != nil {
		return fmt.Errorf("create counters bucket: %w", err)
	}

	var current int
	if data := bucket.Get(counterStagedCount); data != nil {
		current, err = strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("parse staged count: %w", err)
		}
	}

	next := current + delta
	if next < 0 {
		next = 0
	}
	return bucket.Put(counterStagedCount, []byte(strconv.Itoa(next)))
}

// resetStagedCount resets the staged entry counter to 0.
func (s *Store) resetStagedCount(tx *bolt.Tx) error {
	bucket, err := tx.CreateBucketIfNotExists(bucketCounters)
	if err != nil {
		return fmt.Errorf("create counters bucket: %w", err)
	}
	return bucket.Put(counterStagedCount, []byte("0"))
}
