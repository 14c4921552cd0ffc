package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kilupskalvis/fvc/internal/models"
	bolt "go.etcd.io/bbolt"
)

// ErrAmbiguousCommit is returned when a short commit ID matches more than
// one commit.
var ErrAmbiguousCommit = errors.New("ambiguous commit ID")

// CreateCommit stores a commit record keyed by its ID.
func (s *Store) CreateCommit(commit *models.Commit) error {
	if commit == nil || commit.ID == "" {
		return fmt.Errorf("invalid commit: empty ID")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketCommits)
		if bucket == nil {
			return fmt.Errorf("commits bucket not found")
		}

		data, err := json.Marshal(commit)
		if err != nil {
			return fmt.Errorf("marshal commit: %w", err)
		}
		return bucket.Put([]byte(commit.ID), data)
	})
}

// GetCommit retrieves a commit by its full ID. Returns (nil, nil) if not found.
func (s *Store) GetCommit(id string) (*models.Commit, error) {
	var commit *models.Commit

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketCommits)
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}

		commit = &models.Commit{}
		return json.Unmarshal(data, commit)
	})

	if err != nil {
		return nil, err
	}
	return commit, nil
}

// HasCommit checks if a commit with the given ID exists.
func (s *Store) HasCommit(id string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketCommits)
		if bucket == nil {
			return nil
		}
		exists = bucket.Get([]byte(id)) != nil
		return nil
	})
	return exists, err
}

// GetCommitByShortID retrieves a commit by an ID prefix. Returns (nil, nil)
// if no commit matches, and an error if the prefix is ambiguous.
func (s *Store) GetCommitByShortID(shortID string) (*models.Commit, error) {
	if shortID == "" {
		return nil, fmt.Errorf("empty commit ID")
	}

	var matched []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketCommits)
		if bucket == nil {
			return nil
		}

		prefix := []byte(shortID)
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if matched != nil {
				return fmt.Errorf("%w: %s", ErrAmbiguousCommit, shortID)
			}
			matched = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if matched == nil {
		return nil, nil
	}

	commit := &models.Commit{}
	if err := json.Unmarshal(matched, commit); err != nil {
		return nil, fmt.Errorf("unmarshal commit: %w", err)
	}
	return commit, nil
}

// GetCommitLog walks the parent chain starting at fromID and returns the
// commits newest first. limit <= 0 means no limit. The walk stops quietly
// at a commit that is not present locally (shallow history).
func (s *Store) GetCommitLog(fromID string, limit int) ([]*models.Commit, error) {
	var log []*models.Commit

	current := fromID
	for current != "" {
		if limit > 0 && len(log) >= limit {
			break
		}
		commit, err := s.GetCommit(current)
		if err != nil {
			return nil, err
		}
		if commit == nil {
			break
		}
		log = append(log, commit)
		current = commit.ParentID
	}
	return log, nil
}

// GetParentCommit returns the parent hash of a commit, or "" when the
// commit has no parent or is not present locally.
func (s *Store) GetParentCommit(hash string) (string, error) {
	commit, err := s.GetCommit(hash)
	if err != nil {
		return "", err
	}
	if commit == nil {
		return "", nil
	}
	return commit.ParentID, nil
}

// GetCommitFiles returns the file manifest (path to blob hash) of a
// commit. A missing commit yields an empty manifest.
func (s *Store) GetCommitFiles(hash string) (map[string]string, error) {
	commit, err := s.GetCommit(hash)
	if err != nil {
		return nil, err
	}
	if commit == nil {
		return map[string]string{}, nil
	}
	if commit.Files == nil {
		return map[string]string{}, nil
	}
	return commit.Files, nil
}

// GetFileContent returns a file's content at a commit, or "" when the
// commit does not track the path.
func (s *Store) GetFileContent(hash, path string) (string, error) {
	files, err := s.GetCommitFiles(hash)
	if err != nil {
		return "", err
	}
	blobHash, ok := files[path]
	if !ok {
		return "", nil
	}

	content, found, err := s.GetBlob(blobHash)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("blob %s referenced by commit %s not found", blobHash, hash)
	}
	return string(content), nil
}
